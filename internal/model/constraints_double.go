package model

import (
	"fmt"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
)

// postC12C13 posts the double-period family (spec §4.4 C12/C13).
//
// C12 "double only in DBL": structurally guaranteed by createDoubleVars,
// which only creates y[t,c,s,d,p] when p is a double-start period and both
// halves admit an x variable; here we add the link inequality y <= x for
// both halves, so a double can never be counted without both lessons
// actually being scheduled.
//
// C13 "double counts": for subjects with DoubleRequired, the number of
// doubles across the week, taught by the assigned teacher, must equal
// floor(hours/2); if hours is odd, the
// one remaining single lesson must fall on a day that hosts no double for
// that same (teacher, class, subject) — spec §4.4 "odd-N singleton on a
// different day". When the required count is exactly 1, there is no
// redundancy in where the solver can place it, so a warning is recorded;
// when hours is 1, no double can exist, and a warning is recorded as well.
func (b *Builder) postC12C13() {
	for _, first := range sortedSlotAssignKeys(b.result.Y) {
		yVar := b.result.Y[first]
		second := SlotAssignKey{Teacher: first.Teacher, Class: first.Class, Subject: first.Subject,
			Day: first.Day, Period: first.Period + 1}
		xFirst, ok1 := b.result.X[first]
		xSecond, ok2 := b.result.X[second]
		if !ok1 || !ok2 {
			continue
		}
		b.result.CP.AddImplication(fmt.Sprintf("C12:%v:first", first), yVar, xFirst)
		b.result.CP.AddImplication(fmt.Sprintf("C12:%v:second", first), yVar, xSecond)
	}

	type perKey struct {
		xByDay map[int][]cpsat.VarID
		yByDay map[int][]cpsat.VarID
		// pairedOf maps an x var to the y var it is a half of, when any.
		pairedOf map[cpsat.VarID]cpsat.VarID
	}
	groups := map[AssignKey]*perKey{}
	get := func(ak AssignKey) *perKey {
		g, ok := groups[ak]
		if !ok {
			g = &perKey{xByDay: map[int][]cpsat.VarID{}, yByDay: map[int][]cpsat.VarID{}, pairedOf: map[cpsat.VarID]cpsat.VarID{}}
			groups[ak] = g
		}
		return g
	}
	for _, key := range sortedSlotAssignKeys(b.result.X) {
		xv := b.result.X[key]
		ak := assignKey(key.Teacher, key.Class, key.Subject)
		g := get(ak)
		g.xByDay[key.Day] = append(g.xByDay[key.Day], xv)
	}
	for _, key := range sortedSlotAssignKeys(b.result.Y) {
		yv := b.result.Y[key]
		ak := assignKey(key.Teacher, key.Class, key.Subject)
		g := get(ak)
		g.yByDay[key.Day] = append(g.yByDay[key.Day], yv)
		first := key
		second := SlotAssignKey{Teacher: key.Teacher, Class: key.Class, Subject: key.Subject, Day: key.Day, Period: key.Period + 1}
		if xv, ok := b.result.X[first]; ok {
			g.pairedOf[xv] = yv
		}
		if xv, ok := b.result.X[second]; ok {
			g.pairedOf[xv] = yv
		}
	}

	for _, ak := range sortedAssignKeys(groups) {
		g := groups[ak]
		subj := b.dm.Subjects[ak.Subject]
		if !subj.DoubleRequired {
			continue
		}
		hours := b.dm.Classes[ak.Class].Curriculum[ak.Subject]
		requiredDoubles := hours / 2

		var yAll []cpsat.VarID
		for _, day := range sortedInts(g.yByDay) {
			yAll = append(yAll, g.yByDay[day]...)
		}
		// sum y[t,c,s] = floor(hours/2) * a[t,c,s]: only the assigned teacher
		// carries the doubles, so the sum over t equals floor(hours/2).
		terms := toTerms(yAll)
		rhs := requiredDoubles
		if av, ok := b.result.A[ak]; ok && requiredDoubles > 0 {
			terms = append(terms, cpsat.Term{Var: av, Coeff: -requiredDoubles})
			rhs = 0
		}
		b.result.CP.AddLinear(fmt.Sprintf("C13count:%s:%s:%s", ak.Teacher, ak.Class, ak.Subject), terms, cpsat.EQ, rhs)

		if requiredDoubles == 1 {
			b.result.Warnings = append(b.result.Warnings, fmt.Sprintf(
				"teacher %s, class %s, subject %s: required double count is 1 (singleton only; no placement redundancy)",
				ak.Teacher, ak.Class, ak.Subject))
		}
		if hours == 1 {
			b.result.Warnings = append(b.result.Warnings, fmt.Sprintf(
				"teacher %s, class %s, subject %s: double required but curriculum is 1 hour (singleton only; no double possible)",
				ak.Teacher, ak.Class, ak.Subject))
		}

		if hours%2 == 1 {
			for _, day := range sortedInts(g.xByDay) {
				xs := g.xByDay[day]
				ys := g.yByDay[day]
				terms := make([]cpsat.Term, 0, len(xs)+len(ys))
				for _, xv := range xs {
					if paired, ok := g.pairedOf[xv]; ok {
						terms = append(terms, cpsat.Term{Var: xv, Coeff: 1}, cpsat.Term{Var: paired, Coeff: -1})
					} else {
						terms = append(terms, cpsat.Term{Var: xv, Coeff: 1})
					}
				}
				for _, yv := range ys {
					terms = append(terms, cpsat.Term{Var: yv, Coeff: 1})
				}
				name := fmt.Sprintf("C13single:%s:%s:%s:%d", ak.Teacher, ak.Class, ak.Subject, day)
				b.result.CP.AddLinear(name, terms, cpsat.LE, 1)
			}
		}
	}
}
