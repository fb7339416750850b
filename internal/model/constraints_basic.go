package model

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
)

// classSubjectKey groups assignment variables by (class, subject) for C1.
type classSubjectKey struct {
	Class, Subject string
}

func sortedClassSubjectKeys(m map[classSubjectKey][]cpsat.VarID) []classSubjectKey {
	keys := make([]classSubjectKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Class != keys[j].Class {
			return keys[i].Class < keys[j].Class
		}
		return keys[i].Subject < keys[j].Subject
	})
	return keys
}

// postC1 posts "unique teacher": sum_t a[t,c,s] = 1 for every (c,s) with
// positive, uncoupled curriculum demand.
func (b *Builder) postC1() {
	groups := map[classSubjectKey][]cpsat.VarID{}
	for _, key := range sortedAssignKeys(b.result.A) {
		cs := classSubjectKey{Class: key.Class, Subject: key.Subject}
		groups[cs] = append(groups[cs], b.result.A[key])
	}
	for _, cs := range sortedClassSubjectKeys(groups) {
		terms := toTerms(groups[cs])
		b.result.CP.AddLinear(fmt.Sprintf("C1:%s:%s", cs.Class, cs.Subject), terms, cpsat.EQ, 1)
	}
}

// postC2 posts "curriculum met": sum_{t,d,p} x[t,c,s,d,p] = curriculum[c][s].
func (b *Builder) postC2() {
	groups := map[classSubjectKey][]cpsat.VarID{}
	for _, key := range sortedSlotAssignKeys(b.result.X) {
		cs := classSubjectKey{Class: key.Class, Subject: key.Subject}
		groups[cs] = append(groups[cs], b.result.X[key])
	}
	for _, cs := range sortedClassSubjectKeys(groups) {
		hours := b.dm.Classes[cs.Class].Curriculum[cs.Subject]
		terms := toTerms(groups[cs])
		b.result.CP.AddLinear(fmt.Sprintf("C2:%s:%s", cs.Class, cs.Subject), terms, cpsat.EQ, hours)
	}
}

// postC3 posts "slot implies assign": x[t,c,s,d,p] <= a[t,c,s].
func (b *Builder) postC3() {
	for _, key := range sortedSlotAssignKeys(b.result.X) {
		xv := b.result.X[key]
		av := b.result.A[assignKey(key.Teacher, key.Class, key.Subject)]
		b.result.CP.AddImplication(fmt.Sprintf("C3:%v", key), xv, av)
	}
}

// postC4 posts "teacher no-double": at most one of {direct lesson, led
// coupling} per (t,d,p).
func (b *Builder) postC4() {
	byTeacherSlot := map[TeacherSlotKey][]cpsat.VarID{}
	for _, key := range sortedSlotAssignKeys(b.result.X) {
		k := TeacherSlotKey{Teacher: key.Teacher, Day: key.Day, Period: key.Period}
		byTeacherSlot[k] = append(byTeacherSlot[k], b.result.X[key])
	}
	for _, key := range sortedLeadKeys(b.result.Lead) {
		k := TeacherSlotKey{Teacher: key.Teacher, Day: key.Day, Period: key.Period}
		byTeacherSlot[k] = append(byTeacherSlot[k], b.result.Lead[key])
	}
	for _, k := range sortedTeacherSlotKeys(byTeacherSlot) {
		vars := byTeacherSlot[k]
		if len(vars) <= 1 {
			continue
		}
		b.result.CP.AddLinear(fmt.Sprintf("C4:%s:%d:%d", k.Teacher, k.Day, k.Period), toTerms(vars), cpsat.LE, 1)
	}
}

// postC5 posts "class no-double": at most one direct lesson plus the
// class's own coupling contribution per (c,d,p).
func (b *Builder) postC5() {
	byClassSlot := map[ClassSlotKey][]cpsat.VarID{}
	for _, key := range sortedSlotAssignKeys(b.result.X) {
		k := ClassSlotKey{Class: key.Class, Day: key.Day, Period: key.Period}
		byClassSlot[k] = append(byClassSlot[k], b.result.X[key])
	}
	for _, couplingID := range b.dm.CouplingIDs() {
		cp := b.dm.Couplings[couplingID]
		for _, uk := range sortedCoupleSlotKeys(b.result.U) {
			if uk.Coupling != couplingID {
				continue
			}
			uv := b.result.U[uk]
			for _, classID := range cp.InvolvedClasses {
				k := ClassSlotKey{Class: classID, Day: uk.Day, Period: uk.Period}
				byClassSlot[k] = append(byClassSlot[k], uv)
			}
		}
	}
	for _, k := range sortedClassSlotKeys(byClassSlot) {
		vars := byClassSlot[k]
		if len(vars) <= 1 {
			continue
		}
		b.result.CP.AddLinear(fmt.Sprintf("C5:%s:%d:%d", k.Class, k.Day, k.Period), toTerms(vars), cpsat.LE, 1)
	}
}

// postC6 posts "teacher unavailable": no x variable exists for unavailable
// slots (enforced structurally in createSlotVars), reaffirmed here as an
// explicit zero constraint for any stray variable a future change might add.
func (b *Builder) postC6() {
	for _, key := range sortedSlotAssignKeys(b.result.X) {
		v := b.result.X[key]
		t := b.dm.Teachers[key.Teacher]
		if t.IsUnavailable(key.Day, key.Period) {
			b.result.CP.AddLinear(fmt.Sprintf("C6:%v", key), []cpsat.Term{{Var: v, Coeff: 1}}, cpsat.EQ, 0)
		}
	}
}

// postC7 posts the deputat band: deputat_min(t) <= sum x[t] <= deputat_max(t).
func (b *Builder) postC7() {
	byTeacher := map[string][]cpsat.VarID{}
	for _, key := range sortedSlotAssignKeys(b.result.X) {
		byTeacher[key.Teacher] = append(byTeacher[key.Teacher], b.result.X[key])
	}
	widen := b.opts.WidenDeputatPercent
	for _, teacherID := range b.dm.TeacherIDs() {
		vars := byTeacher[teacherID]
		if len(vars) == 0 {
			continue
		}
		t := b.dm.Teachers[teacherID]
		lo := t.DeputatMin
		hi := t.DeputatMax
		if widen > 0 {
			lo = lo * (1 - widen)
			hi = hi * (1 + widen)
		}
		terms := toTerms(vars)
		b.result.CP.AddLinear(fmt.Sprintf("C7lo:%s", teacherID), terms, cpsat.GE, int(lo))
		b.result.CP.AddLinear(fmt.Sprintf("C7hi:%s", teacherID), terms, cpsat.LE, int(hi))
	}
}

// roomSlotKey groups room-capacity contributions for C8.
type roomSlotKey struct {
	Room        string
	Day, Period int
}

func sortedRoomSlotKeys(m map[roomSlotKey][]cpsat.VarID) []roomSlotKey {
	keys := make([]roomSlotKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Period < b.Period
	})
	return keys
}

// postC8 posts room capacity: for each room type and (d,p), direct lessons
// plus coupling contributions whose subject uses that room type must not
// exceed capacity.
func (b *Builder) postC8() {
	groups := map[roomSlotKey][]cpsat.VarID{}
	for _, key := range sortedSlotAssignKeys(b.result.X) {
		subj := b.dm.Subjects[key.Subject]
		if subj.RoomType == "" {
			continue
		}
		k := roomSlotKey{Room: subj.RoomType, Day: key.Day, Period: key.Period}
		groups[k] = append(groups[k], b.result.X[key])
	}
	for _, couplingID := range b.dm.CouplingIDs() {
		cp := b.dm.Couplings[couplingID]
		for _, g := range cp.Groups {
			subj := b.dm.Subjects[g.Subject]
			if subj.RoomType == "" {
				continue
			}
			for _, uk := range sortedCoupleSlotKeys(b.result.U) {
				if uk.Coupling != couplingID {
					continue
				}
				uv := b.result.U[uk]
				k := roomSlotKey{Room: subj.RoomType, Day: uk.Day, Period: uk.Period}
				groups[k] = append(groups[k], uv)
			}
		}
	}
	for _, k := range sortedRoomSlotKeys(groups) {
		vars := groups[k]
		rt, ok := b.dm.RoomTypes[k.Room]
		if !ok || rt.IsUnbounded() {
			continue
		}
		b.result.CP.AddLinear(fmt.Sprintf("C8:%s:%d:%d", k.Room, k.Day, k.Period), toTerms(vars), cpsat.LE, rt.Capacity)
	}
}

func toTerms(vars []cpsat.VarID) []cpsat.Term {
	terms := make([]cpsat.Term, len(vars))
	for i, v := range vars {
		terms[i] = cpsat.Term{Var: v, Coeff: 1}
	}
	return terms
}
