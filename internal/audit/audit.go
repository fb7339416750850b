// Package audit implements the feasibility auditor (spec §4.1): static,
// O(|teachers|·|classes|) resource checks run before any solve attempt.
package audit

import (
	"fmt"

	"github.com/noah-isme/sek-scheduler/internal/domain"
)

// Report is the auditor's verdict.
type Report struct {
	Feasible bool
	Errors   []string
	Warnings []string
}

const warningBand = 0.95

// Run executes every check in spec §4.1 against m and returns a Report.
// It never mutates m and is safe to call repeatedly.
func Run(m *domain.DomainModel) *Report {
	r := &Report{Feasible: true}

	perSubjectCapacity(m, r)
	roomSlotCapacity(m, r)
	perTeacherFloor(m, r)
	aggregateDeputatFloor(m, r)
	sek2Capability(m, r)

	if len(r.Errors) > 0 {
		r.Feasible = false
	}
	return r
}

func demand(m *domain.DomainModel, subjectID string) int {
	total := 0
	for _, classID := range m.ClassIDs() {
		total += m.Classes[classID].Curriculum[subjectID]
	}
	return total
}

func supply(m *domain.DomainModel, subjectID string) float64 {
	var total float64
	for _, teacherID := range m.TeacherIDs() {
		t := m.Teachers[teacherID]
		if t.QualifiedFor(subjectID) {
			total += t.Deputat
		}
	}
	return total
}

func perSubjectCapacity(m *domain.DomainModel, r *Report) {
	for _, subjectID := range m.SubjectIDs() {
		d := demand(m, subjectID)
		if d == 0 {
			continue
		}
		s := supply(m, subjectID)
		if float64(d) > s {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"subject %s: demand %d hours exceeds qualified teacher supply %.1f hours", subjectID, d, s))
			continue
		}
		if s > 0 && float64(d) >= warningBand*s {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"subject %s: demand %d is within %.0f%% of qualified supply %.1f", subjectID, d, warningBand*100, s))
		}
	}
}

func roomSlotCapacity(m *domain.DomainModel, r *Report) {
	globalSlots := m.TimeGrid.Workdays * len(m.TimeGrid.Slots)
	perRoomDemand := map[string]int{}
	for _, subjectID := range m.SubjectIDs() {
		subj := m.Subjects[subjectID]
		if subj.RoomType == "" {
			continue
		}
		perRoomDemand[subj.RoomType] += demand(m, subjectID)
	}
	for roomTypeID, d := range perRoomDemand {
		rt, ok := m.RoomTypes[roomTypeID]
		if !ok || rt.IsUnbounded() {
			continue
		}
		capacitySlots := rt.Capacity * globalSlots
		if d > capacitySlots {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"room type %s: demand %d lesson-hours exceeds capacity %d rooms x %d slots = %d",
				roomTypeID, d, rt.Capacity, globalSlots, capacitySlots))
		}
	}
}

func perTeacherFloor(m *domain.DomainModel, r *Report) {
	globalSlots := m.TimeGrid.Workdays * len(m.TimeGrid.Slots)
	for _, teacherID := range m.TeacherIDs() {
		t := m.Teachers[teacherID]
		available := globalSlots - len(t.Unavailable)
		if float64(available) < t.DeputatMin {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"teacher %s: only %d available slots but deputat_min is %.1f", teacherID, available, t.DeputatMin))
		}
	}
}

func aggregateDeputatFloor(m *domain.DomainModel, r *Report) {
	var totalDeputat float64
	for _, teacherID := range m.TeacherIDs() {
		totalDeputat += m.Teachers[teacherID].Deputat
	}
	var totalDemand int
	for _, classID := range m.ClassIDs() {
		totalDemand += m.Classes[classID].TotalCurriculumHours()
	}
	if totalDeputat < float64(totalDemand) {
		r.Errors = append(r.Errors, fmt.Sprintf(
			"aggregate teacher deputat %.1f is below total curriculum demand %d", totalDeputat, totalDemand))
	}
}

func sek2Capability(m *domain.DomainModel, r *Report) {
	hasCourse := false
	for _, classID := range m.ClassIDs() {
		if m.Classes[classID].IsCourse {
			hasCourse = true
			break
		}
	}
	if !hasCourse {
		return
	}
	subjectsInCourses := map[string]bool{}
	for _, classID := range m.ClassIDs() {
		cls := m.Classes[classID]
		if !cls.IsCourse {
			continue
		}
		for _, subjectID := range m.SubjectIDs() {
			if cls.Curriculum[subjectID] > 0 {
				subjectsInCourses[subjectID] = true
			}
		}
	}
	for subjectID := range subjectsInCourses {
		ok := false
		for _, teacherID := range m.TeacherIDs() {
			t := m.Teachers[teacherID]
			if t.QualifiedFor(subjectID) && t.CanTeachSek2 {
				ok = true
				break
			}
		}
		if !ok {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"subject %s is taught in a course but no Sek-II-capable teacher is qualified", subjectID))
		}
	}
}
