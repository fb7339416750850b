// Package objective composes the weighted soft-constraint objective (spec
// §4.5, S1-S7) onto a built model.Result. Every soft penalty is linear over
// the existing 0/1 decision variables, so the whole objective stays inside
// the pseudo-boolean fragment internal/cpsat understands; weights are
// scaled by objectiveScale and rounded to integer coefficients since
// cpsat.Model only takes integer terms.
package objective

import (
	"math"
	"sort"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/model"
)

// objectiveScale converts fractional weights (spec §4.5 weights are
// arbitrary non-negative reals) into integer cpsat coefficients without
// losing more than 1/objectiveScale of precision.
const objectiveScale = 100

// Compose adds S1-S7 to res.CP's objective, weighted by dm.Weights. Passing
// domain.Weights{} (the CLI's --no-soft path) makes every term's weight
// zero, so Compose becomes a no-op and the model reduces to pure
// feasibility search.
func Compose(res *model.Result, dm *domain.DomainModel) {
	w := dm.Weights
	postGaps(res, w.Gaps)
	postWorkload(res, dm, w.Workload)
	postDayWishes(res, dm, w.DayWishes)
	postCompact(res, dm, w.Compact)
	postDoubleLessons(res, dm, w.DoubleLessons)
	postSubjectSpread(res, dm, w.SubjectSpread)
	postDeputatDev(res, dm, w.DeputatDev)
}

func scaled(w float64) int {
	return int(math.Round(w * objectiveScale))
}

// postGaps is S1: penalize every gap-unit C14 identified, so the solver
// prefers compact timetables even within the hard gap ceiling.
func postGaps(res *model.Result, weight float64) {
	coeff := scaled(weight)
	if coeff == 0 {
		return
	}
	for _, v := range res.Gap {
		res.CP.AddObjectiveTerm(v, coeff)
	}
}

// postWorkload is S2: bias toward fewer total scheduled lessons per
// teacher, pulling usage toward the low end of the deputat band (spec
// §4.4 C7) absent other pressure.
func postWorkload(res *model.Result, dm *domain.DomainModel, weight float64) {
	coeff := scaled(weight)
	if coeff == 0 {
		return
	}
	byTeacher := map[string][]cpsat.VarID{}
	for key, v := range res.X {
		byTeacher[key.Teacher] = append(byTeacher[key.Teacher], v)
	}
	for _, teacherID := range dm.TeacherIDs() {
		for _, v := range byTeacher[teacherID] {
			res.CP.AddObjectiveTerm(v, coeff)
		}
	}
}

// postDayWishes is S3: penalize any lesson scheduled on a teacher's
// preferred free day.
func postDayWishes(res *model.Result, dm *domain.DomainModel, weight float64) {
	coeff := scaled(weight)
	if coeff == 0 {
		return
	}
	for key, v := range res.ActT {
		t := dm.Teachers[key.Teacher]
		if t.PreferredFreeDays[key.Day] {
			res.CP.AddObjectiveTerm(v, coeff)
		}
	}
}

// postCompact is S4: penalize schedule gaps for Sek-II courses, which are
// exempt from the hard C9 prefix rule.
func postCompact(res *model.Result, dm *domain.DomainModel, weight float64) {
	coeff := scaled(weight)
	if coeff == 0 {
		return
	}
	for _, classID := range dm.ClassIDs() {
		cls := dm.Classes[classID]
		if !cls.IsCourse {
			continue
		}
		for _, day := range res.Index.Days() {
			for _, run := range res.Index.RunsForDay(day) {
				periods := run.Periods
				if len(periods) < 3 {
					continue
				}
				actVars := map[int]cpsat.VarID{}
				anyMissing := false
				for _, p := range periods {
					v, ok := res.ActC[model.ClassSlotKey{Class: classID, Day: day, Period: p}]
					if !ok {
						anyMissing = true
						break
					}
					actVars[p] = v
				}
				if anyMissing {
					continue
				}
				before := actVars[periods[0]]
				after := actVars[periods[len(periods)-1]]
				for i := 1; i+1 < len(periods); i++ {
					p := periods[i]
					cur := actVars[p]
					gv := res.CP.NewBoolVar("compactGap:" + classID)
					res.CP.AddLinear("compactGapA:"+classID, []cpsat.Term{{Var: gv, Coeff: 1}, {Var: cur, Coeff: 1}}, cpsat.LE, 1)
					res.CP.AddImplication("compactGapB:"+classID, gv, before)
					res.CP.AddImplication("compactGapC:"+classID, gv, after)
					res.CP.AddLinear("compactGapD:"+classID,
						[]cpsat.Term{{Var: before, Coeff: 1}, {Var: after, Coeff: 1}, {Var: cur, Coeff: -1}, {Var: gv, Coeff: -1}},
						cpsat.LE, 1)
					res.CP.AddObjectiveTerm(gv, coeff)
				}
			}
		}
	}
}

// postDoubleLessons is S5: reward (negative coefficient) scheduling a
// subject as a double when DoublePreferred is set but not mandatory —
// mandatory doubles are already a hard constraint (C13) and carry no
// additional soft reward.
func postDoubleLessons(res *model.Result, dm *domain.DomainModel, weight float64) {
	coeff := scaled(weight)
	if coeff == 0 {
		return
	}
	for key, v := range res.Y {
		subj := dm.Subjects[key.Subject]
		if subj.DoubleRequired || !subj.DoublePreferred {
			continue
		}
		res.CP.AddObjectiveTerm(v, -coeff)
	}
}

// postSubjectSpread is S6: discourage stacking more than one lesson of the
// same (class, subject) on the same day — outside of an actual double —
// by biasing every same-day occurrence past the first in sorted slot
// order.
func postSubjectSpread(res *model.Result, dm *domain.DomainModel, weight float64) {
	coeff := scaled(weight)
	if coeff == 0 {
		return
	}
	type group struct {
		class, subject string
		day            int
	}
	byGroup := map[group][]model.SlotAssignKey{}
	for key := range res.X {
		subj := dm.Subjects[key.Subject]
		if subj.DoubleRequired {
			continue
		}
		g := group{class: key.Class, subject: key.Subject, day: key.Day}
		byGroup[g] = append(byGroup[g], key)
	}
	for _, keys := range byGroup {
		if len(keys) < 2 {
			continue
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Period < keys[j].Period })
		for _, key := range keys[1:] {
			res.CP.AddObjectiveTerm(res.X[key], coeff)
		}
	}
}

// postDeputatDev is S7: penalize the symmetric deviation |sum(x[t]) -
// deputat(t)| from each teacher's rounded target, linearised as two
// unary-unit ladders sharing the same link constraint: excess units
// (bounded by the hard deputat_max, C7) cover any amount sum(x) lands
// above target, and shortfall units (bounded by deputat_min, C7) cover any
// amount it lands below. Both ladders are driven to their minimum by the
// objective, so the solver only pays for units it actually needs, and a
// teacher exactly at target pays nothing.
func postDeputatDev(res *model.Result, dm *domain.DomainModel, weight float64) {
	coeff := scaled(weight)
	if coeff == 0 {
		return
	}
	byTeacher := map[string][]cpsat.VarID{}
	for key, v := range res.X {
		byTeacher[key.Teacher] = append(byTeacher[key.Teacher], v)
	}
	for _, teacherID := range dm.TeacherIDs() {
		vars := byTeacher[teacherID]
		if len(vars) == 0 {
			continue
		}
		t := dm.Teachers[teacherID]
		target := int(math.Round(t.Deputat))
		maxExcess := int(math.Round(t.DeputatMax)) - target
		maxShortfall := target - int(math.Round(t.DeputatMin))

		var excessVars, shortfallVars []cpsat.VarID
		for k := 0; k < maxExcess; k++ {
			ev := res.CP.NewBoolVar("deputatExcess:" + teacherID)
			excessVars = append(excessVars, ev)
			res.CP.AddObjectiveTerm(ev, coeff)
		}
		for k := 0; k < maxShortfall; k++ {
			sv := res.CP.NewBoolVar("deputatShortfall:" + teacherID)
			shortfallVars = append(shortfallVars, sv)
			res.CP.AddObjectiveTerm(sv, coeff)
		}
		if len(excessVars) == 0 && len(shortfallVars) == 0 {
			continue
		}

		// sum(x) - sum(excess) + sum(shortfall) = target, i.e. excess units
		// absorb anything above target and shortfall units anything below.
		terms := make([]cpsat.Term, 0, len(vars)+len(excessVars)+len(shortfallVars))
		for _, v := range vars {
			terms = append(terms, cpsat.Term{Var: v, Coeff: 1})
		}
		for _, ev := range excessVars {
			terms = append(terms, cpsat.Term{Var: ev, Coeff: -1})
		}
		for _, sv := range shortfallVars {
			terms = append(terms, cpsat.Term{Var: sv, Coeff: 1})
		}
		res.CP.AddLinear("deputatDevLink:"+teacherID, terms, cpsat.EQ, target)
	}
}
