package model

import (
	"fmt"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
)

// postActiveLinks defines act_c[c,d,p] = sum_{t,s} x[t,c,s,d,p] and
// act_t[t,d,p] = sum_{c,s} x[t,c,s,d,p] + sum leading-coupling contributions,
// via equality constraints. C5/C4 already guarantee these sums are 0 or 1,
// so the active variables are exact indicators (spec §4.3 "Class active" /
// "Teacher active").
func (b *Builder) postActiveLinks() {
	byClassSlot := map[ClassSlotKey][]cpsat.VarID{}
	for _, key := range sortedSlotAssignKeys(b.result.X) {
		k := ClassSlotKey{Class: key.Class, Day: key.Day, Period: key.Period}
		byClassSlot[k] = append(byClassSlot[k], b.result.X[key])
	}
	for _, k := range sortedClassSlotKeys(b.result.ActC) {
		actVar := b.result.ActC[k]
		terms := toTerms(byClassSlot[k])
		terms = append(terms, cpsat.Term{Var: actVar, Coeff: -1})
		b.result.CP.AddLinear(fmt.Sprintf("actC-link:%s:%d:%d", k.Class, k.Day, k.Period), terms, cpsat.EQ, 0)
	}

	byTeacherSlot := map[TeacherSlotKey][]cpsat.VarID{}
	for _, key := range sortedSlotAssignKeys(b.result.X) {
		k := TeacherSlotKey{Teacher: key.Teacher, Day: key.Day, Period: key.Period}
		byTeacherSlot[k] = append(byTeacherSlot[k], b.result.X[key])
	}
	for _, key := range sortedLeadKeys(b.result.Lead) {
		k := TeacherSlotKey{Teacher: key.Teacher, Day: key.Day, Period: key.Period}
		byTeacherSlot[k] = append(byTeacherSlot[k], b.result.Lead[key])
	}
	for _, k := range sortedTeacherSlotKeys(b.result.ActT) {
		actVar := b.result.ActT[k]
		terms := toTerms(byTeacherSlot[k])
		terms = append(terms, cpsat.Term{Var: actVar, Coeff: -1})
		b.result.CP.AddLinear(fmt.Sprintf("actT-link:%s:%d:%d", k.Teacher, k.Day, k.Period), terms, cpsat.EQ, 0)
	}
}

// postC9 posts the Sek-I compact-class constraint: the active-period set
// of each non-course class on each day is a prefix of that day's
// contiguity run (courses are exempt — spec §4.4 C9).
func (b *Builder) postC9() {
	for _, classID := range b.dm.ClassIDs() {
		cls := b.dm.Classes[classID]
		if cls.IsCourse {
			continue
		}
		for _, day := range b.idx.Days() {
			for _, run := range b.idx.RunsForDay(day) {
				for i := 0; i+1 < len(run.Periods); i++ {
					p, pNext := run.Periods[i], run.Periods[i+1]
					if p > cls.MaxPeriod || pNext > cls.MaxPeriod {
						continue
					}
					cur, ok1 := b.result.ActC[ClassSlotKey{Class: classID, Day: day, Period: p}]
					next, ok2 := b.result.ActC[ClassSlotKey{Class: classID, Day: day, Period: pNext}]
					if !ok1 || !ok2 {
						continue
					}
					// act_c[next] <= act_c[cur]
					b.result.CP.AddImplication(fmt.Sprintf("C9:%s:%d:%d", classID, day, p), next, cur)
				}
			}
		}
	}
}

// postC10 posts the per-teacher-day hour ceiling: sum_p act_t[t,d,p] <=
// max_hours_per_day(t).
func (b *Builder) postC10() {
	type teacherDayKey struct {
		Teacher string
		Day     int
	}
	byTeacherDay := map[teacherDayKey][]cpsat.VarID{}
	for _, k := range sortedTeacherSlotKeys(b.result.ActT) {
		key := teacherDayKey{Teacher: k.Teacher, Day: k.Day}
		byTeacherDay[key] = append(byTeacherDay[key], b.result.ActT[k])
	}
	for _, teacherID := range b.dm.TeacherIDs() {
		t := b.dm.Teachers[teacherID]
		for _, day := range b.idx.Days() {
			vars := byTeacherDay[teacherDayKey{Teacher: teacherID, Day: day}]
			if len(vars) == 0 {
				continue
			}
			b.result.CP.AddLinear(fmt.Sprintf("C10:%s:%d", teacherID, day), toTerms(vars), cpsat.LE, t.MaxHoursPerDay)
		}
	}
}

// postC14 posts the teacher gap bound. Within each day's contiguity run,
// gap(t,d) = (last_active-first_active+1) - sum(act_t) over the run; we
// linearise this with an explicit gap-unit variable per "hole" candidate
// position: gapUnit[t,d,p] = 1 iff p lies strictly between the first and
// last active period of the run on day d and p itself is inactive. Pauses
// sit outside the run by construction (spec §4.2) so they never count.
func (b *Builder) postC14() {
	for _, teacherID := range b.dm.TeacherIDs() {
		t := b.dm.Teachers[teacherID]
		var weekGapUnits []cpsat.VarID
		for _, day := range b.idx.Days() {
			var dayGapUnits []cpsat.VarID
			for _, run := range b.idx.RunsForDay(day) {
				periods := run.Periods
				if len(periods) < 3 {
					continue
				}
				actVars := map[int]cpsat.VarID{}
				anyMissing := false
				for _, p := range periods {
					v, ok := b.result.ActT[TeacherSlotKey{Teacher: teacherID, Day: day, Period: p}]
					if !ok {
						anyMissing = true
						break
					}
					actVars[p] = v
				}
				if anyMissing {
					continue
				}
				for i := 1; i+1 < len(periods); i++ {
					p := periods[i]
					// gapUnit[p] is 1 exactly when act_t[p]=0 while there is
					// at least one active period before and after it on this
					// run; we approximate the "inside the active span" test
					// with "some earlier period active AND some later period
					// active", each expressed as an OR-helper bound below.
					before := actVars[periods[0]]
					after := actVars[periods[len(periods)-1]]
					gv := b.result.CP.NewBoolVar(fmt.Sprintf("gap:%s:%d:%d", teacherID, day, p))
					cur := actVars[p]
					// gv <= 1 - cur  (gap only where this period is inactive)
					b.result.CP.AddLinear(fmt.Sprintf("gapA:%s:%d:%d", teacherID, day, p),
						[]cpsat.Term{{Var: gv, Coeff: 1}, {Var: cur, Coeff: 1}}, cpsat.LE, 1)
					// gv <= before, gv <= after (bracketed by activity)
					b.result.CP.AddImplication(fmt.Sprintf("gapB:%s:%d:%d", teacherID, day, p), gv, before)
					b.result.CP.AddImplication(fmt.Sprintf("gapC:%s:%d:%d", teacherID, day, p), gv, after)
					// gv >= before + after - cur - 1
					b.result.CP.AddLinear(fmt.Sprintf("gapD:%s:%d:%d", teacherID, day, p),
						[]cpsat.Term{{Var: before, Coeff: 1}, {Var: after, Coeff: 1}, {Var: cur, Coeff: -1}, {Var: gv, Coeff: -1}},
						cpsat.LE, 1)
					dayGapUnits = append(dayGapUnits, gv)
					weekGapUnits = append(weekGapUnits, gv)
					b.result.Gap[TeacherSlotKey{Teacher: teacherID, Day: day, Period: p}] = gv
				}
			}
			if len(dayGapUnits) > 0 {
				b.result.CP.AddLinear(fmt.Sprintf("C14day:%s:%d", teacherID, day), toTerms(dayGapUnits), cpsat.LE, t.MaxGapsPerDay)
			}
		}
		if len(weekGapUnits) > 0 {
			b.result.CP.AddLinear(fmt.Sprintf("C14week:%s", teacherID), toTerms(weekGapUnits), cpsat.LE, t.MaxGapsPerWeek)
		}
	}
}
