package domain

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sek-scheduler/pkg/schedulerrors"
)

// DomainModel is the fully populated external input contract (spec §6):
// it owns every entity by value, is immutable once built, and is the sole
// read surface for the auditor, model builder and decoder.
type DomainModel struct {
	TimeGrid    TimeGrid
	Subjects    map[string]Subject
	RoomTypes   map[string]RoomType
	Classes     map[string]SchoolClass
	Teachers    map[string]Teacher
	Couplings   map[string]Coupling
	CourseTracks map[string]CourseTrack
	Pins        []Pin
	Weights     Weights
	Limits      Limits
}

// ClassIDs returns class ids in stable (sorted) order — the deterministic
// iteration order spec §5 requires for reproducible constraint posting.
func (m *DomainModel) ClassIDs() []string { return sortedKeys(m.Classes) }

// TeacherIDs returns teacher ids in stable order.
func (m *DomainModel) TeacherIDs() []string { return sortedKeys(m.Teachers) }

// SubjectIDs returns subject ids in stable order.
func (m *DomainModel) SubjectIDs() []string { return sortedKeys(m.Subjects) }

// CouplingIDs returns coupling ids in stable order.
func (m *DomainModel) CouplingIDs() []string { return sortedKeys(m.Couplings) }

// CourseTrackIDs returns course track ids in stable order.
func (m *DomainModel) CourseTrackIDs() []string { return sortedKeys(m.CourseTracks) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CoupledSubjectsFor returns the set of subject ids that class c satisfies
// through a coupling rather than through C1/C2 direct assignment.
func (m *DomainModel) CoupledSubjectsFor(classID string) map[string]bool {
	out := map[string]bool{}
	for _, cp := range m.Couplings {
		involved := false
		for _, c := range cp.InvolvedClasses {
			if c == classID {
				involved = true
				break
			}
		}
		if !involved {
			continue
		}
		for _, g := range cp.Groups {
			out[g.Subject] = true
		}
	}
	return out
}

// Validate checks every structural invariant in spec §3 "Invariants" and
// returns a *schedulerrors.Error of KindInvalidInput naming the offending
// entity on the first violation found, in a deterministic scan order.
func (m *DomainModel) Validate() error {
	if err := m.TimeGrid.Validate(); err != nil {
		return err
	}

	activeSlots := m.activeSlotCount()

	// Invariant 1 & 2: per (class, subject) coverage and bound.
	for _, classID := range m.ClassIDs() {
		c := m.Classes[classID]
		classSlots := m.ClassSlotCount(classID)
		total := 0
		for _, subjectID := range sortedKeysInt(c.Curriculum) {
			hours := c.Curriculum[subjectID]
			if hours <= 0 {
				continue
			}
			total += hours
			if _, ok := m.Subjects[subjectID]; !ok {
				return schedulerrors.New(schedulerrors.KindInvalidInput,
					fmt.Sprintf("class %s curriculum references unknown subject %s", classID, subjectID)).WithEntity(classID)
			}
			if !m.hasQualifiedTeacher(subjectID) {
				return schedulerrors.New(schedulerrors.KindInvalidInput,
					fmt.Sprintf("no teacher qualified for subject %s required by class %s", subjectID, classID)).WithEntity(subjectID)
			}
		}
		if total > classSlots {
			return schedulerrors.New(schedulerrors.KindInvalidInput,
				fmt.Sprintf("class %s curriculum hours %d exceed available slots %d", classID, total, classSlots)).WithEntity(classID)
		}
	}
	_ = activeSlots

	// Invariant 4: coupling participants share a grade. Their hours_per_week
	// is not compared here.
	for _, couplingID := range m.CouplingIDs() {
		cp := m.Couplings[couplingID]
		if len(cp.InvolvedClasses) < 2 {
			return schedulerrors.New(schedulerrors.KindInvalidInput,
				fmt.Sprintf("coupling %s needs at least 2 involved classes", couplingID)).WithEntity(couplingID)
		}
		var grade int
		for i, classID := range cp.InvolvedClasses {
			cls, ok := m.Classes[classID]
			if !ok {
				return schedulerrors.New(schedulerrors.KindInvalidInput,
					fmt.Sprintf("coupling %s references unknown class %s", couplingID, classID)).WithEntity(couplingID)
			}
			if i == 0 {
				grade = cls.Grade
			} else if cls.Grade != grade {
				return schedulerrors.New(schedulerrors.KindInvalidInput,
					fmt.Sprintf("coupling %s mixes grades", couplingID)).WithEntity(couplingID)
			}
		}
		for _, g := range cp.Groups {
			if _, ok := m.Subjects[g.Subject]; !ok {
				return schedulerrors.New(schedulerrors.KindInvalidInput,
					fmt.Sprintf("coupling %s group %s references unknown subject %s", couplingID, g.Label, g.Subject)).WithEntity(couplingID)
			}
		}
	}

	// Invariant 5: pins reference valid entities within bounds.
	for i, p := range m.Pins {
		cls, ok := m.Classes[p.Class]
		if !ok {
			return schedulerrors.New(schedulerrors.KindInvalidInput,
				fmt.Sprintf("pin #%d references unknown class %s", i, p.Class)).WithEntity(p.Class)
		}
		if p.Period > cls.MaxPeriod {
			return schedulerrors.New(schedulerrors.KindInvalidInput,
				fmt.Sprintf("pin #%d period %d exceeds class %s max period %d", i, p.Period, p.Class, cls.MaxPeriod)).WithEntity(p.Class)
		}
		t, ok := m.Teachers[p.Teacher]
		if !ok {
			return schedulerrors.New(schedulerrors.KindInvalidInput,
				fmt.Sprintf("pin #%d references unknown teacher %s", i, p.Teacher)).WithEntity(p.Teacher)
		}
		if !t.QualifiedFor(p.Subject) {
			return schedulerrors.New(schedulerrors.KindInvalidInput,
				fmt.Sprintf("pin #%d teacher %s not qualified for subject %s", i, p.Teacher, p.Subject)).WithEntity(p.Teacher)
		}
	}

	// CourseTrack participants must all be courses.
	for _, trackID := range m.CourseTrackIDs() {
		tr := m.CourseTracks[trackID]
		for _, courseID := range tr.CourseIDs {
			cls, ok := m.Classes[courseID]
			if !ok {
				return schedulerrors.New(schedulerrors.KindInvalidInput,
					fmt.Sprintf("course track %s references unknown class %s", trackID, courseID)).WithEntity(trackID)
			}
			if !cls.IsCourse {
				return schedulerrors.New(schedulerrors.KindInvalidInput,
					fmt.Sprintf("course track %s references non-course class %s", trackID, courseID)).WithEntity(trackID)
			}
		}
	}

	return nil
}

func (m *DomainModel) hasQualifiedTeacher(subjectID string) bool {
	for _, teacherID := range m.TeacherIDs() {
		if m.Teachers[teacherID].QualifiedFor(subjectID) {
			return true
		}
	}
	return false
}

// activeSlotCount returns |S|, the global active-slot count.
func (m *DomainModel) activeSlotCount() int {
	return m.TimeGrid.Workdays * len(m.TimeGrid.Slots)
}

// ClassSlotCount returns |S(c)|, the class-local slot mask size.
func (m *DomainModel) ClassSlotCount(classID string) int {
	cls, ok := m.Classes[classID]
	if !ok {
		return 0
	}
	count := 0
	for _, s := range m.TimeGrid.Slots {
		if s.PeriodNumber > cls.MaxPeriod {
			continue
		}
		if s.IsSek2Only && !cls.IsCourse {
			continue
		}
		count++
	}
	return count * m.TimeGrid.Workdays
}

func sortedKeysInt(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
