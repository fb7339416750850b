package model

import (
	"fmt"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
)

// postC11 posts the coupling family (spec §4.4 C11a-d):
//
//	C11a  sum_{d,p} u[k,d,p] = hours_per_week(k)      — coupling fills its hours
//	C11b  act_c[c,d,p] + u[k,d,p] <= 1 for involved c  — coupling blocks its classes
//	C11c  sum_t g[k,i,t] = 1                           — one teacher per group
//	C11d  lead[k,i,t,d,p] <= g[k,i,t], lead <= u[k,d,p],
//	      lead >= g+u-1                                — lead is the (g ∧ u) conjunction
func (b *Builder) postC11() {
	for _, couplingID := range b.dm.CouplingIDs() {
		cp := b.dm.Couplings[couplingID]

		var uVars []cpsat.VarID
		for _, uk := range sortedCoupleSlotKeys(b.result.U) {
			if uk.Coupling == couplingID {
				uVars = append(uVars, b.result.U[uk])
			}
		}
		if len(uVars) > 0 {
			b.result.CP.AddLinear(fmt.Sprintf("C11a:%s", couplingID), toTerms(uVars), cpsat.EQ, cp.HoursPerWeek)
		}

		for _, uk := range sortedCoupleSlotKeys(b.result.U) {
			if uk.Coupling != couplingID {
				continue
			}
			uv := b.result.U[uk]
			for _, classID := range cp.InvolvedClasses {
				actVar, ok := b.result.ActC[ClassSlotKey{Class: classID, Day: uk.Day, Period: uk.Period}]
				if !ok {
					continue
				}
				b.result.CP.AddLinear(fmt.Sprintf("C11b:%s:%s:%d:%d", couplingID, classID, uk.Day, uk.Period),
					[]cpsat.Term{{Var: actVar, Coeff: 1}, {Var: uv, Coeff: 1}}, cpsat.LE, 1)
			}
		}

		for gi := range cp.Groups {
			var gVars []cpsat.VarID
			for _, gk := range sortedCoupleGroupKeys(b.result.G) {
				if gk.Coupling == couplingID && gk.Group == gi {
					gVars = append(gVars, b.result.G[gk])
				}
			}
			if len(gVars) > 0 {
				b.result.CP.AddLinear(fmt.Sprintf("C11c:%s:%d", couplingID, gi), toTerms(gVars), cpsat.EQ, 1)
			}
		}

		for _, lk := range sortedLeadKeys(b.result.Lead) {
			if lk.Coupling != couplingID {
				continue
			}
			leadVar := b.result.Lead[lk]
			gv, gok := b.result.G[CoupleGroupKey{Coupling: couplingID, Group: lk.Group, Teacher: lk.Teacher}]
			uv, uok := b.result.U[CoupleSlotKey{Coupling: couplingID, Day: lk.Day, Period: lk.Period}]
			if !gok || !uok {
				continue
			}
			name := fmt.Sprintf("C11d:%s:%d:%s:%d:%d", couplingID, lk.Group, lk.Teacher, lk.Day, lk.Period)
			b.result.CP.AddImplication(name+":g", leadVar, gv)
			b.result.CP.AddImplication(name+":u", leadVar, uv)
			// lead >= g + u - 1  <=>  g + u - lead <= 1
			b.result.CP.AddLinear(name+":conj",
				[]cpsat.Term{{Var: gv, Coeff: 1}, {Var: uv, Coeff: 1}, {Var: leadVar, Coeff: -1}}, cpsat.LE, 1)
		}
	}
}
