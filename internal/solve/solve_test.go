package solve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
	"github.com/noah-isme/sek-scheduler/internal/decode"
	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/slotindex"
)

func tinyDomainModel(classCount int) *domain.DomainModel {
	grid := domain.TimeGrid{
		Slots:         []domain.LessonSlot{{PeriodNumber: 1}, {PeriodNumber: 2}},
		Workdays:      2,
		Sek1MaxPeriod: 2,
		Sek2MaxPeriod: 2,
	}
	dm := &domain.DomainModel{
		TimeGrid: grid,
		Subjects: map[string]domain.Subject{
			"math": {ID: "math", Category: domain.CategoryHauptfach},
		},
		RoomTypes: map[string]domain.RoomType{},
		Classes:   map[string]domain.SchoolClass{},
		Teachers: map[string]domain.Teacher{
			"t1": {
				ID:                "t1",
				QualifiedSubjects: map[string]bool{"math": true},
				Deputat:           float64(2 * classCount),
				DeputatMin:        0,
				DeputatMax:        float64(2 * classCount),
				MaxHoursPerDay:    2 * classCount,
				MaxGapsPerDay:     2 * classCount,
				MaxGapsPerWeek:    2 * classCount,
			},
		},
		Couplings:    map[string]domain.Coupling{},
		CourseTracks: map[string]domain.CourseTrack{},
		Weights:      domain.DefaultWeights(),
	}
	for i := 0; i < classCount; i++ {
		id := classNameForIndex(i)
		dm.Classes[id] = domain.SchoolClass{ID: id, Grade: 5, MaxPeriod: 2, Curriculum: map[string]int{"math": 2}}
	}
	return dm
}

func classNameForIndex(i int) string {
	return string(rune('a'+i)) + "-class"
}

func TestSolveSinglePassProducesFeasibleSchedule(t *testing.T) {
	dm := tinyDomainModel(1)
	idx := slotindex.Build(&dm.TimeGrid)
	driver := New(dm, idx, nil)

	out, err := driver.Solve(context.Background(), Params{
		TimeLimit:  2 * time.Second,
		NumWorkers: 2,
		Seed:       1,
	})
	require.NoError(t, err)
	assert.False(t, out.UsedTwoPass)
	assert.Contains(t, []cpsat.Status{cpsat.StatusOptimal, cpsat.StatusFeasible}, out.Status)
}

func TestSolveAutoEnablesTwoPassAboveThreshold(t *testing.T) {
	dm := tinyDomainModel(1)
	idx := slotindex.Build(&dm.TimeGrid)
	driver := New(dm, idx, nil)

	out, err := driver.Solve(context.Background(), Params{
		TimeLimit:        2 * time.Second,
		NumWorkers:       2,
		Seed:             1,
		TwoPassThreshold: 1,
	})
	require.NoError(t, err)
	assert.True(t, out.UsedTwoPass)
}

func TestSolveForceOffOverridesThreshold(t *testing.T) {
	dm := tinyDomainModel(1)
	idx := slotindex.Build(&dm.TimeGrid)
	driver := New(dm, idx, nil)

	out, err := driver.Solve(context.Background(), Params{
		TimeLimit:        2 * time.Second,
		NumWorkers:       2,
		Seed:             1,
		TwoPassThreshold: 1,
		TwoPassForce:     "off",
	})
	require.NoError(t, err)
	assert.False(t, out.UsedTwoPass)
}

func TestShouldUseTwoPassDecisionTable(t *testing.T) {
	dm := tinyDomainModel(3)
	idx := slotindex.Build(&dm.TimeGrid)
	driver := New(dm, idx, nil)

	assert.True(t, driver.shouldUseTwoPass(Params{TwoPassForce: "on"}))
	assert.False(t, driver.shouldUseTwoPass(Params{TwoPassForce: "off"}))
	assert.True(t, driver.shouldUseTwoPass(Params{TwoPassThreshold: 3}))
	assert.False(t, driver.shouldUseTwoPass(Params{TwoPassThreshold: 4}))
}

func TestResolveIncrementalCarriesOverUnchangedSlots(t *testing.T) {
	dm := tinyDomainModel(1)
	idx := slotindex.Build(&dm.TimeGrid)
	driver := New(dm, idx, nil)

	first, err := driver.Solve(context.Background(), Params{TimeLimit: 2 * time.Second, NumWorkers: 2, Seed: 3})
	require.NoError(t, err)
	prevEntries := decode.Decode(first.Result, first.Solution)

	second, err := driver.ResolveIncremental(context.Background(), prevEntries, Params{
		TimeLimit:      2 * time.Second,
		RelaxTimeLimit: 2 * time.Second,
		NumWorkers:     2,
		Seed:           3,
	})
	require.NoError(t, err)
	assert.Contains(t, []cpsat.Status{cpsat.StatusOptimal, cpsat.StatusFeasible}, second.Status)

	active := 0
	for _, v := range second.Result.X {
		if second.Solution.Value(v) {
			active++
		}
	}
	assert.Equal(t, 2, active)

	secondEntries := decode.Decode(second.Result, second.Solution)
	secondKeys := map[string]bool{}
	for _, e := range secondEntries {
		secondKeys[e.Key()] = true
	}
	for _, e := range prevEntries {
		assert.True(t, secondKeys[e.Key()], "expected %s to carry over", e.Key())
	}
}

func TestRemainingTimeNeverGoesNegative(t *testing.T) {
	start := time.Now().Add(-10 * time.Second)
	d := remainingTime(start, 1*time.Second)
	assert.Equal(t, time.Millisecond, d)
}

func TestStatusErrorMapsStatusesToKinds(t *testing.T) {
	assert.NoError(t, statusError(cpsat.StatusOptimal))
	assert.NoError(t, statusError(cpsat.StatusFeasible))
	assert.Error(t, statusError(cpsat.StatusInfeasible))
	assert.Error(t, statusError(cpsat.StatusUnknown))
}
