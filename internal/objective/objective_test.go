package objective

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/model"
	"github.com/noah-isme/sek-scheduler/internal/slotindex"
)

func tinyDomainModel() *domain.DomainModel {
	grid := domain.TimeGrid{
		Slots:         []domain.LessonSlot{{PeriodNumber: 1}, {PeriodNumber: 2}, {PeriodNumber: 3}},
		Workdays:      3,
		Sek1MaxPeriod: 3,
		Sek2MaxPeriod: 3,
	}
	return &domain.DomainModel{
		TimeGrid: grid,
		Subjects: map[string]domain.Subject{
			"math": {ID: "math", Category: domain.CategoryHauptfach},
		},
		RoomTypes: map[string]domain.RoomType{},
		Classes: map[string]domain.SchoolClass{
			"5a": {ID: "5a", Grade: 5, MaxPeriod: 3, Curriculum: map[string]int{"math": 3}},
		},
		Teachers: map[string]domain.Teacher{
			"t1": {
				ID: "t1", QualifiedSubjects: map[string]bool{"math": true},
				Deputat: 3, DeputatMin: 0, DeputatMax: 9,
				PreferredFreeDays: map[int]bool{2: true},
				MaxHoursPerDay:    3,
				MaxGapsPerDay:     3,
				MaxGapsPerWeek:    9,
			},
		},
		Couplings:    map[string]domain.Coupling{},
		CourseTracks: map[string]domain.CourseTrack{},
		Weights:      domain.Weights{Gaps: 5, DayWishes: 3},
	}
}

func TestComposeWithZeroWeightsAddsNoObjective(t *testing.T) {
	dm := tinyDomainModel()
	dm.Weights = domain.Weights{}
	idx := slotindex.Build(&dm.TimeGrid)
	res := model.New(dm, idx, nil, model.Options{}).Build()

	Compose(res, dm)
	assert.False(t, res.CP.HasObjective())
}

func TestComposePenalizesPreferredFreeDay(t *testing.T) {
	dm := tinyDomainModel()
	idx := slotindex.Build(&dm.TimeGrid)
	res := model.New(dm, idx, nil, model.Options{}).Build()

	Compose(res, dm)
	require.True(t, res.CP.HasObjective())

	sol := cpsat.Solve(res.CP, cpsat.SolveParams{TimeLimit: 2 * time.Second, NumWorkers: 2, Seed: 7})
	require.Contains(t, []cpsat.Status{cpsat.StatusOptimal, cpsat.StatusFeasible}, sol.Status)

	for key, v := range res.ActT {
		if key.Day == 2 {
			assert.False(t, sol.Value(v), "teacher should avoid the preferred free day when it's not forced")
		}
	}
}

func TestPostDeputatDevPenalizesShortfallBelowTarget(t *testing.T) {
	grid := domain.TimeGrid{
		Slots:         []domain.LessonSlot{{PeriodNumber: 1}, {PeriodNumber: 2}, {PeriodNumber: 3}},
		Workdays:      3,
		Sek1MaxPeriod: 3,
		Sek2MaxPeriod: 3,
	}
	dm := &domain.DomainModel{
		TimeGrid: grid,
		Subjects: map[string]domain.Subject{
			"math": {ID: "math", Category: domain.CategoryHauptfach},
		},
		RoomTypes: map[string]domain.RoomType{},
		Classes: map[string]domain.SchoolClass{
			"5a": {ID: "5a", Grade: 5, MaxPeriod: 3, Curriculum: map[string]int{"math": 3}},
		},
		Teachers: map[string]domain.Teacher{
			"t1": {
				ID: "t1", QualifiedSubjects: map[string]bool{"math": true},
				// Target (5) sits above the 3 hours this teacher can ever
				// be assigned, so C2 fixes sum(x)=3 and S7 must report the
				// shortfall, not just stay silent the way a one-directional
				// excess-only penalty would.
				Deputat: 5, DeputatMin: 0, DeputatMax: 9,
				MaxHoursPerDay: 3,
				MaxGapsPerDay:  3,
				MaxGapsPerWeek: 9,
			},
		},
		Couplings:    map[string]domain.Coupling{},
		CourseTracks: map[string]domain.CourseTrack{},
		Weights:      domain.Weights{DeputatDev: 4},
	}
	idx := slotindex.Build(&dm.TimeGrid)
	res := model.New(dm, idx, nil, model.Options{}).Build()

	Compose(res, dm)
	require.True(t, res.CP.HasObjective())

	sol := cpsat.Solve(res.CP, cpsat.SolveParams{TimeLimit: 2 * time.Second, NumWorkers: 2, Seed: 11})
	require.Contains(t, []cpsat.Status{cpsat.StatusOptimal, cpsat.StatusFeasible}, sol.Status)

	activeShortfall, activeExcess := 0, 0
	for i := 0; i < res.CP.NumVars(); i++ {
		v := cpsat.VarID(i)
		name := res.CP.Name(v)
		if !sol.Value(v) {
			continue
		}
		switch {
		case len(name) >= len("deputatShortfall:") && name[:len("deputatShortfall:")] == "deputatShortfall:":
			activeShortfall++
		case len(name) >= len("deputatExcess:") && name[:len("deputatExcess:")] == "deputatExcess:":
			activeExcess++
		}
	}
	assert.Equal(t, 2, activeShortfall, "5 target - 3 actual hours = 2 shortfall units")
	assert.Equal(t, 0, activeExcess)
}

func TestScaledRoundsToNearestInt(t *testing.T) {
	assert.Equal(t, 500, scaled(5))
	assert.Equal(t, 0, scaled(0))
	assert.Equal(t, 150, scaled(1.5))
}
