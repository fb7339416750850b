package model

// applyPins fixes a[t,c,s] (and, unless assignOnly, x[t,c,s,d,p]) to 1 for
// every domain.Pin, forcing the solver to honour manually fixed lessons
// (spec §3 "Pin", §4.6 "Pass 2"). Pins referencing a variable the admissible
// set never created (e.g. an unqualified teacher) are skipped; the relaxer
// is responsible for surfacing and progressively dropping such conflicts.
func (b *Builder) applyPins(assignOnly bool) {
	for _, pin := range b.dm.Pins {
		ak := assignKey(pin.Teacher, pin.Class, pin.Subject)
		if av, ok := b.result.A[ak]; ok {
			b.result.CP.Fix(av, 1)
		}
		if assignOnly {
			continue
		}
		sk := slotKey(pin.Teacher, pin.Class, pin.Subject, pin.Day, pin.Period)
		if xv, ok := b.result.X[sk]; ok {
			b.result.CP.Fix(xv, 1)
		}
	}
}
