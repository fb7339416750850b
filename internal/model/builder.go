package model

import (
	"go.uber.org/zap"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/slotindex"
)

// Result is the built decision-variable set plus the cpsat.Model it was
// posted onto, handed to the objective composer and, after solving, to
// the decoder.
type Result struct {
	CP    *cpsat.Model
	Index *slotindex.Index
	DM    *domain.DomainModel

	A    map[AssignKey]cpsat.VarID
	X    map[SlotAssignKey]cpsat.VarID
	Y    map[SlotAssignKey]cpsat.VarID
	ActC map[ClassSlotKey]cpsat.VarID
	ActT map[TeacherSlotKey]cpsat.VarID
	U    map[CoupleSlotKey]cpsat.VarID
	G    map[CoupleGroupKey]cpsat.VarID
	Lead map[LeadKey]cpsat.VarID
	// Gap holds the per-(teacher,day,period) gap-unit variables C14 builds,
	// reused by the objective composer for the S1 soft gap penalty.
	Gap map[TeacherSlotKey]cpsat.VarID

	// Warnings collects non-fatal diagnostics raised while posting
	// constraints (e.g. a C13 singleton double with no placement slack),
	// surfaced alongside audit.Report.Warnings by the CLI.
	Warnings []string
}

// Options controls which optional pieces the builder includes, used by
// the constraint relaxer (spec §4.8) and the two-pass driver (spec §4.6).
type Options struct {
	// AssignOnly builds only `a` variables plus C1 and the Sek-II
	// qualification gate — used by two-pass Pass 1.
	AssignOnly bool
	// FixedAssignments pre-fixes a[t,c,s] to the given boolean value —
	// used by two-pass Pass 2 once Pass 1 has decided the assignment.
	FixedAssignments map[AssignKey]bool

	DisableDoubles      bool // relaxer: drop C12/C13
	DisableRooms        bool // relaxer: drop C8
	DisableCouplings    bool // relaxer: drop C11a-d
	DisableCompactness  bool // relaxer: drop C9
	WidenDeputatPercent float64 // relaxer: widen C7 band by this fraction
}

// Builder constructs the variable set and posts hard constraints.
type Builder struct {
	dm     *domain.DomainModel
	idx    *slotindex.Index
	log    *zap.Logger
	opts   Options
	result *Result
}

// New returns a Builder for dm, with logging via log (nil is a no-op logger).
func New(dm *domain.DomainModel, idx *slotindex.Index, log *zap.Logger, opts Options) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{dm: dm, idx: idx, log: log, opts: opts}
}

// Build runs variable creation (§4.3) then posts every applicable hard
// constraint (§4.4) in deterministic order.
func (b *Builder) Build() *Result {
	b.result = &Result{
		CP:    cpsat.NewModel(),
		Index: b.idx,
		DM:    b.dm,
		A:     map[AssignKey]cpsat.VarID{},
		X:     map[SlotAssignKey]cpsat.VarID{},
		Y:     map[SlotAssignKey]cpsat.VarID{},
		ActC:  map[ClassSlotKey]cpsat.VarID{},
		ActT:  map[TeacherSlotKey]cpsat.VarID{},
		U:     map[CoupleSlotKey]cpsat.VarID{},
		G:     map[CoupleGroupKey]cpsat.VarID{},
		Lead:  map[LeadKey]cpsat.VarID{},
		Gap:   map[TeacherSlotKey]cpsat.VarID{},
	}

	b.createAssignVars()
	if b.opts.AssignOnly {
		b.postC1()
		b.applyPins(true)
		return b.result
	}

	b.createSlotVars()
	b.createDoubleVars()
	b.createActiveVars()
	b.createCouplingVars()

	b.postC1()
	b.postC2()
	b.postC3()
	b.postC4()
	b.postC5()
	b.postC6()
	b.postC7()
	if !b.opts.DisableRooms {
		b.postC8()
	}
	b.postActiveLinks()
	if !b.opts.DisableCompactness {
		b.postC9()
	}
	b.postC10()
	if !b.opts.DisableCouplings {
		b.postC11()
	}
	if !b.opts.DisableDoubles {
		b.postC12C13()
	}
	b.postC14()
	b.postC15()
	b.applyPins(false)

	b.log.Debug("model built",
		zap.Int("num_vars", b.result.CP.NumVars()),
		zap.Int("num_constraints", b.result.CP.NumConstraints()),
	)

	return b.result
}

// createAssignVars creates a[t,c,s] for every (t,c,s) satisfying the
// admissibility rule of spec §4.3 "Assignment".
func (b *Builder) createAssignVars() {
	for _, classID := range b.dm.ClassIDs() {
		cls := b.dm.Classes[classID]
		coupled := coupledSubjects(b.dm, classID)
		for _, subjectID := range b.dm.SubjectIDs() {
			if cls.Curriculum[subjectID] <= 0 {
				continue
			}
			if coupled[subjectID] {
				continue
			}
			for _, teacherID := range b.dm.TeacherIDs() {
				t := b.dm.Teachers[teacherID]
				if !t.QualifiedFor(subjectID) {
					continue
				}
				if cls.IsCourse && !t.CanTeachSek2 {
					continue
				}
				key := assignKey(teacherID, classID, subjectID)
				v := b.result.CP.NewBoolVar("a:" + teacherID + ":" + classID + ":" + subjectID)
				b.result.A[key] = v
				if fix, ok := b.opts.FixedAssignments[key]; ok {
					if fix {
						b.result.CP.Fix(v, 1)
					} else {
						b.result.CP.Fix(v, 0)
					}
				}
			}
		}
	}
}

// createSlotVars creates x[t,c,s,d,p] for every (t,c,s) with an `a`
// variable and every (d,p) in S(c)\unavailable(t). Pins are not consulted
// here; applyPins fixes the pinned variables after creation.
func (b *Builder) createSlotVars() {
	for _, key := range sortedAssignKeys(b.result.A) {
		cls := b.dm.Classes[key.Class]
		mask := b.idx.ClassMask(cls)
		t := b.dm.Teachers[key.Teacher]
		for _, sk := range mask {
			if t.IsUnavailable(sk.Day, sk.Period) {
				continue
			}
			sak := slotKey(key.Teacher, key.Class, key.Subject, sk.Day, sk.Period)
			v := b.result.CP.NewBoolVar("x:" + sak.Teacher + ":" + sak.Class + ":" + sak.Subject)
			b.result.X[sak] = v
		}
	}
}

// createDoubleVars creates y[t,c,s,d,p] only for p in DBL where both
// (d,p) and (d,p+1) admit an x variable (spec §4.3 "Double").
func (b *Builder) createDoubleVars() {
	dbl := b.idx.DoubleStarts()
	dblStarts := sortedInts(dbl)
	for _, key := range sortedAssignKeys(b.result.A) {
		for _, p := range dblStarts {
			for _, day := range b.idx.Days() {
				first := slotKey(key.Teacher, key.Class, key.Subject, day, p)
				second := slotKey(key.Teacher, key.Class, key.Subject, day, p+1)
				if _, ok1 := b.result.X[first]; !ok1 {
					continue
				}
				if _, ok2 := b.result.X[second]; !ok2 {
					continue
				}
				v := b.result.CP.NewBoolVar("y:" + first.Teacher + ":" + first.Class + ":" + first.Subject)
				b.result.Y[first] = v
			}
		}
	}
}

// createActiveVars creates act_c[c,d,p] and act_t[t,d,p] for every slot a
// class or teacher can possibly occupy.
func (b *Builder) createActiveVars() {
	for _, classID := range b.dm.ClassIDs() {
		cls := b.dm.Classes[classID]
		for _, sk := range b.idx.ClassMask(cls) {
			k := ClassSlotKey{Class: classID, Day: sk.Day, Period: sk.Period}
			b.result.ActC[k] = b.result.CP.NewBoolVar("actC:" + classID)
		}
	}
	for _, teacherID := range b.dm.TeacherIDs() {
		t := b.dm.Teachers[teacherID]
		for _, sk := range b.idx.All() {
			if t.IsUnavailable(sk.Day, sk.Period) {
				continue
			}
			k := TeacherSlotKey{Teacher: teacherID, Day: sk.Day, Period: sk.Period}
			b.result.ActT[k] = b.result.CP.NewBoolVar("actT:" + teacherID)
		}
	}
}

// createCouplingVars creates u[k,d,p], g[k,i,t] and the lead[k,i,t,d,p]
// conjunction helper variables (spec §4.3 "Couple slot"/"Couple group
// assign").
func (b *Builder) createCouplingVars() {
	for _, couplingID := range b.dm.CouplingIDs() {
		cp := b.dm.Couplings[couplingID]
		refClass := b.dm.Classes[cp.InvolvedClasses[0]]
		for _, sk := range b.idx.ClassMask(refClass) {
			k := CoupleSlotKey{Coupling: couplingID, Day: sk.Day, Period: sk.Period}
			b.result.U[k] = b.result.CP.NewBoolVar("u:" + couplingID)
		}
		for gi, g := range cp.Groups {
			for _, teacherID := range b.dm.TeacherIDs() {
				t := b.dm.Teachers[teacherID]
				if !t.QualifiedFor(g.Subject) {
					continue
				}
				anyCourse := false
				for _, classID := range cp.InvolvedClasses {
					if b.dm.Classes[classID].IsCourse {
						anyCourse = true
						break
					}
				}
				if anyCourse && !t.CanTeachSek2 {
					continue
				}
				gk := CoupleGroupKey{Coupling: couplingID, Group: gi, Teacher: teacherID}
				b.result.G[gk] = b.result.CP.NewBoolVar("g:" + couplingID + ":" + teacherID)

				for _, sk := range b.idx.ClassMask(refClass) {
					if t.IsUnavailable(sk.Day, sk.Period) {
						continue
					}
					lk := LeadKey{Coupling: couplingID, Group: gi, Teacher: teacherID, Day: sk.Day, Period: sk.Period}
					b.result.Lead[lk] = b.result.CP.NewBoolVar("lead:" + couplingID + ":" + teacherID)
				}
			}
		}
	}
}
