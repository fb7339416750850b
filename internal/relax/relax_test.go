package relax

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/slotindex"
)

// roomBoundDomainModel packs two classes' single weekly math lesson into
// the only available slot, sharing a room type with capacity 1 — feasible
// only once room capacity (C8) is relaxed.
func roomBoundDomainModel() *domain.DomainModel {
	grid := domain.TimeGrid{
		Slots:         []domain.LessonSlot{{PeriodNumber: 1}},
		Workdays:      1,
		Sek1MaxPeriod: 1,
		Sek2MaxPeriod: 1,
	}
	return &domain.DomainModel{
		TimeGrid: grid,
		Subjects: map[string]domain.Subject{
			"math": {ID: "math", RoomType: "regular"},
		},
		RoomTypes: map[string]domain.RoomType{
			"regular": {TypeID: "regular", Capacity: 1},
		},
		Classes: map[string]domain.SchoolClass{
			"5a": {ID: "5a", MaxPeriod: 1, Curriculum: map[string]int{"math": 1}},
			"5b": {ID: "5b", MaxPeriod: 1, Curriculum: map[string]int{"math": 1}},
		},
		Teachers: map[string]domain.Teacher{
			"t1": {ID: "t1", QualifiedSubjects: map[string]bool{"math": true}, DeputatMax: 1, MaxHoursPerDay: 1, MaxGapsPerDay: 1, MaxGapsPerWeek: 1},
			"t2": {ID: "t2", QualifiedSubjects: map[string]bool{"math": true}, DeputatMax: 1, MaxHoursPerDay: 1, MaxGapsPerDay: 1, MaxGapsPerWeek: 1},
		},
		Couplings:    map[string]domain.Coupling{},
		CourseTracks: map[string]domain.CourseTrack{},
		Weights:      domain.Weights{},
	}
}

func TestDiagnoseFindsRoomOffender(t *testing.T) {
	dm := roomBoundDomainModel()
	idx := slotindex.Build(&dm.TimeGrid)

	report := Diagnose(context.Background(), dm, idx, nil, 2*time.Second, 2, 1)

	require.NotEmpty(t, report.Attempts)
	assert.Equal(t, "disable_rooms", report.Offender)
	assert.Contains(t, report.String(), "disable_rooms")
}

func TestDefaultStepsOrder(t *testing.T) {
	steps := DefaultSteps()
	require.Len(t, steps, 5)
	assert.Equal(t, "disable_doubles", steps[0].Name)
	assert.Equal(t, "disable_rooms", steps[1].Name)
	assert.Equal(t, "disable_couplings", steps[2].Name)
	assert.Equal(t, "widen_deputat_20pct", steps[3].Name)
	assert.Equal(t, "disable_compactness", steps[4].Name)
}
