package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sek-scheduler/internal/decode"
	"github.com/noah-isme/sek-scheduler/internal/domain"
)

func fixtureDomainModel() *domain.DomainModel {
	return &domain.DomainModel{
		Subjects: map[string]domain.Subject{
			"math": {ID: "math", RoomType: "regular"},
		},
		RoomTypes: map[string]domain.RoomType{
			"regular": {TypeID: "regular", Capacity: 1},
		},
		Classes: map[string]domain.SchoolClass{
			"5a": {ID: "5a", MaxPeriod: 2, Curriculum: map[string]int{"math": 2}},
		},
		Teachers: map[string]domain.Teacher{
			"t1": {ID: "t1", QualifiedSubjects: map[string]bool{"math": true}, DeputatMin: 0, DeputatMax: 10},
		},
		Couplings:    map[string]domain.Coupling{},
		CourseTracks: map[string]domain.CourseTrack{},
	}
}

func TestRunAcceptsValidSchedule(t *testing.T) {
	dm := fixtureDomainModel()
	entries := []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1, RoomType: "regular"},
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 2, RoomType: "regular"},
	}
	report := Run(dm, entries)
	assert.True(t, report.Feasible())
	assert.Empty(t, report.Errors)
}

func TestRunRejectsCurriculumMismatch(t *testing.T) {
	dm := fixtureDomainModel()
	entries := []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1, RoomType: "regular"},
	}
	report := Run(dm, entries)
	require.False(t, report.Feasible())
	assert.Contains(t, report.SortedErrors()[0], "curriculum requires")
}

func TestRunRejectsTeacherDoubleBooking(t *testing.T) {
	dm := fixtureDomainModel()
	dm.Classes["5b"] = domain.SchoolClass{ID: "5b", MaxPeriod: 2, Curriculum: map[string]int{"math": 2}}
	entries := []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1, RoomType: "regular"},
		{Teacher: "t1", Class: "5b", Subject: "math", Day: 0, Period: 1, RoomType: "regular"},
	}
	report := Run(dm, entries)
	require.False(t, report.Feasible())
	found := false
	for _, e := range report.Errors {
		if e == "teacher t1 double-booked day 0 period 1 (classes 5a and 5b)" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunRejectsRoomOverCapacity(t *testing.T) {
	dm := fixtureDomainModel()
	dm.Teachers["t2"] = domain.Teacher{ID: "t2", QualifiedSubjects: map[string]bool{"math": true}, DeputatMax: 10}
	dm.Classes["5b"] = domain.SchoolClass{ID: "5b", MaxPeriod: 2, Curriculum: map[string]int{"math": 2}}
	entries := []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1, RoomType: "regular"},
		{Teacher: "t2", Class: "5b", Subject: "math", Day: 0, Period: 1, RoomType: "regular"},
	}
	report := Run(dm, entries)
	require.False(t, report.Feasible())
	assert.Contains(t, report.SortedErrors()[len(report.SortedErrors())-1], "over capacity")
}

func TestRunRejectsUnqualifiedTeacher(t *testing.T) {
	dm := fixtureDomainModel()
	entries := []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5a", Subject: "french", Day: 0, Period: 1},
	}
	report := Run(dm, entries)
	require.False(t, report.Feasible())
	hasQualErr := false
	for _, e := range report.Errors {
		if e == "teacher t1 not qualified for subject french (class 5a)" {
			hasQualErr = true
		}
	}
	assert.True(t, hasQualErr)
}

func gridDomainModel() *domain.DomainModel {
	dm := fixtureDomainModel()
	dm.TimeGrid = domain.TimeGrid{
		Slots: []domain.LessonSlot{
			{PeriodNumber: 1}, {PeriodNumber: 2}, {PeriodNumber: 3}, {PeriodNumber: 4},
		},
		Workdays:      3,
		Sek1MaxPeriod: 4,
		Sek2MaxPeriod: 4,
	}
	dm.Classes["5a"] = domain.SchoolClass{ID: "5a", MaxPeriod: 4, Curriculum: map[string]int{"math": 2}}
	t1 := dm.Teachers["t1"]
	t1.MaxHoursPerDay = 4
	t1.MaxGapsPerDay = 4
	t1.MaxGapsPerWeek = 8
	dm.Teachers["t1"] = t1
	return dm
}

func TestRunRejectsCompactPrefixGap(t *testing.T) {
	dm := gridDomainModel()
	entries := []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1, RoomType: "regular"},
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 3, RoomType: "regular"},
	}
	report := Run(dm, entries)
	require.False(t, report.Feasible())
	found := false
	for _, e := range report.Errors {
		if e == "class 5a day 0: active period 3 follows a gap, violating the compact prefix rule" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunRejectsMaxHoursPerDay(t *testing.T) {
	dm := gridDomainModel()
	t1 := dm.Teachers["t1"]
	t1.MaxHoursPerDay = 1
	dm.Teachers["t1"] = t1
	entries := []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1, RoomType: "regular"},
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 2, RoomType: "regular"},
	}
	report := Run(dm, entries)
	require.False(t, report.Feasible())
	found := false
	for _, e := range report.Errors {
		if e == "teacher t1 day 0: 2 lessons exceeds max 1 per day" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunWarnsOnSingletonDoubleRequirement(t *testing.T) {
	dm := gridDomainModel()
	dm.Subjects["math"] = domain.Subject{ID: "math", RoomType: "regular", DoubleRequired: true}
	dm.Classes["5a"] = domain.SchoolClass{ID: "5a", MaxPeriod: 4, Curriculum: map[string]int{"math": 2}}
	entries := []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1, RoomType: "regular", IsFirstOfDouble: true},
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 2, RoomType: "regular"},
	}
	report := Run(dm, entries)
	assert.True(t, report.Feasible())
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings, "teacher t1, class 5a, subject math: required double count is 1 (singleton only; no placement redundancy)")
}

func TestRunRejectsWrongDoubleCount(t *testing.T) {
	dm := gridDomainModel()
	dm.Subjects["math"] = domain.Subject{ID: "math", RoomType: "regular", DoubleRequired: true}
	dm.Classes["5a"] = domain.SchoolClass{ID: "5a", MaxPeriod: 4, Curriculum: map[string]int{"math": 4}}
	entries := []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1, RoomType: "regular", IsFirstOfDouble: true},
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 2, RoomType: "regular"},
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 1, Period: 1, RoomType: "regular"},
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 1, Period: 2, RoomType: "regular"},
	}
	report := Run(dm, entries)
	require.False(t, report.Feasible())
	found := false
	for _, e := range report.Errors {
		if e == "teacher t1 class 5a subject math has 1 double lessons, requires 2" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunRejectsGapBound(t *testing.T) {
	dm := gridDomainModel()
	t1 := dm.Teachers["t1"]
	t1.MaxGapsPerDay = 0
	t1.MaxGapsPerWeek = 0
	dm.Teachers["t1"] = t1
	dm.Classes["5a"] = domain.SchoolClass{ID: "5a", MaxPeriod: 4, Curriculum: map[string]int{"math": 2}}
	entries := []decode.ScheduleEntry{
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1, RoomType: "regular"},
		{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 3, RoomType: "regular"},
	}
	report := Run(dm, entries)
	require.False(t, report.Feasible())
	foundDay, foundWeek := false, false
	for _, e := range report.Errors {
		if e == "teacher t1 day 0: 1 gaps exceeds max 0 per day" {
			foundDay = true
		}
		if e == "teacher t1: 1 gaps exceeds max 0 per week" {
			foundWeek = true
		}
	}
	assert.True(t, foundDay)
	assert.True(t, foundWeek)
}
