package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/slotindex"
)

func tinyDomainModel() *domain.DomainModel {
	grid := domain.TimeGrid{
		Slots: []domain.LessonSlot{
			{PeriodNumber: 1}, {PeriodNumber: 2},
		},
		Workdays:      2,
		Sek1MaxPeriod: 2,
		Sek2MaxPeriod: 2,
	}
	return &domain.DomainModel{
		TimeGrid: grid,
		Subjects: map[string]domain.Subject{
			"math": {ID: "math", Category: domain.CategoryHauptfach},
		},
		RoomTypes: map[string]domain.RoomType{},
		Classes: map[string]domain.SchoolClass{
			"5a": {ID: "5a", Grade: 5, MaxPeriod: 2, Curriculum: map[string]int{"math": 2}},
		},
		Teachers: map[string]domain.Teacher{
			"t1": {
				ID:                "t1",
				QualifiedSubjects: map[string]bool{"math": true},
				Deputat:           2,
				DeputatMin:        0,
				DeputatMax:        4,
				MaxHoursPerDay:    2,
				MaxGapsPerDay:     2,
				MaxGapsPerWeek:    4,
			},
		},
		Couplings:    map[string]domain.Coupling{},
		CourseTracks: map[string]domain.CourseTrack{},
		Weights:      domain.DefaultWeights(),
	}
}

func TestBuildCreatesAssignAndSlotVars(t *testing.T) {
	dm := tinyDomainModel()
	idx := slotindex.Build(&dm.TimeGrid)
	res := New(dm, idx, nil, Options{}).Build()

	require.Len(t, res.A, 1)
	key := AssignKey{Teacher: "t1", Class: "5a", Subject: "math"}
	require.Contains(t, res.A, key)

	// 2 days x 2 periods, all available to the single teacher.
	assert.Len(t, res.X, 4)
	assert.Greater(t, res.CP.NumVars(), 0)
	assert.Greater(t, res.CP.NumConstraints(), 0)
}

func TestAssignOnlyBuildSkipsSlotVars(t *testing.T) {
	dm := tinyDomainModel()
	idx := slotindex.Build(&dm.TimeGrid)
	res := New(dm, idx, nil, Options{AssignOnly: true}).Build()

	assert.Len(t, res.A, 1)
	assert.Empty(t, res.X)
	assert.Empty(t, res.ActC)
}

func TestBuiltModelIsSolvable(t *testing.T) {
	dm := tinyDomainModel()
	idx := slotindex.Build(&dm.TimeGrid)
	res := New(dm, idx, nil, Options{}).Build()

	sol := cpsat.Solve(res.CP, cpsat.SolveParams{TimeLimit: 2 * time.Second, NumWorkers: 2, Seed: 1})
	require.Contains(t, []cpsat.Status{cpsat.StatusOptimal, cpsat.StatusFeasible}, sol.Status)

	active := 0
	for _, v := range res.X {
		if sol.Value(v) {
			active++
		}
	}
	assert.Equal(t, 2, active, "math's 2 weekly hours should land on exactly 2 slots")
}

// richDomainModel exercises every map-grouped constraint family (couplings,
// doubles, multiple teachers/classes/subjects) so a determinism test has
// enough composite keys for map-iteration randomization to actually bite.
func richDomainModel() *domain.DomainModel {
	grid := domain.TimeGrid{
		Slots: []domain.LessonSlot{
			{PeriodNumber: 1}, {PeriodNumber: 2}, {PeriodNumber: 3}, {PeriodNumber: 4},
		},
		Workdays:      5,
		Sek1MaxPeriod: 4,
		Sek2MaxPeriod: 4,
	}
	return &domain.DomainModel{
		TimeGrid: grid,
		Subjects: map[string]domain.Subject{
			"math":    {ID: "math", Category: domain.CategoryHauptfach, DoubleRequired: true, RoomType: "regular"},
			"german":  {ID: "german", Category: domain.CategoryHauptfach, RoomType: "regular"},
			"sport":   {ID: "sport", Category: domain.CategorySport, RoomType: "gym"},
			"history": {ID: "history", Category: domain.CategoryGesellschaft, RoomType: "regular"},
		},
		RoomTypes: map[string]domain.RoomType{
			"regular": {TypeID: "regular", Capacity: 3},
			"gym":     {TypeID: "gym", Capacity: 1},
		},
		Classes: map[string]domain.SchoolClass{
			"5a": {ID: "5a", Grade: 5, MaxPeriod: 4, Curriculum: map[string]int{"math": 4, "german": 2, "sport": 2}},
			"5b": {ID: "5b", Grade: 5, MaxPeriod: 4, Curriculum: map[string]int{"math": 4, "german": 2, "history": 2}},
			"6a": {ID: "6a", Grade: 6, MaxPeriod: 4, Curriculum: map[string]int{"math": 4, "german": 2}},
		},
		Teachers: map[string]domain.Teacher{
			"t1": {ID: "t1", QualifiedSubjects: map[string]bool{"math": true, "german": true},
				Deputat: 10, DeputatMin: 0, DeputatMax: 14, MaxHoursPerDay: 4, MaxGapsPerDay: 4, MaxGapsPerWeek: 8},
			"t2": {ID: "t2", QualifiedSubjects: map[string]bool{"german": true, "history": true, "sport": true},
				Deputat: 8, DeputatMin: 0, DeputatMax: 12, MaxHoursPerDay: 4, MaxGapsPerDay: 4, MaxGapsPerWeek: 8},
			"t3": {ID: "t3", QualifiedSubjects: map[string]bool{"sport": true, "history": true},
				Deputat: 6, DeputatMin: 0, DeputatMax: 10, MaxHoursPerDay: 4, MaxGapsPerDay: 4, MaxGapsPerWeek: 8},
		},
		Couplings: map[string]domain.Coupling{
			"sport-5a-5b": {
				ID:              "sport-5a-5b",
				InvolvedClasses: []string{"5a", "5b"},
				HoursPerWeek:    2,
				Groups: []domain.CouplingGroup{
					{Label: "sport-group", Subject: "sport", Hours: 2},
				},
			},
		},
		CourseTracks: map[string]domain.CourseTrack{},
		Weights:      domain.DefaultWeights(),
	}
}

// TestBuildIsDeterministicAcrossRuns exercises spec §5's determinism
// requirement (testable property 10): building the same domain model twice
// must assign variable ids and post constraints in the exact same order,
// since Go map iteration order is randomized per run and several
// constraint posters group variables through intermediate maps.
func TestBuildIsDeterministicAcrossRuns(t *testing.T) {
	dm := richDomainModel()
	idx := slotindex.Build(&dm.TimeGrid)

	var varRuns [][]string
	var constraintRuns [][]string
	for i := 0; i < 5; i++ {
		res := New(dm, idx, nil, Options{}).Build()
		varRuns = append(varRuns, res.CP.VarNames())
		constraintRuns = append(constraintRuns, res.CP.ConstraintNames())
	}

	for i := 1; i < len(varRuns); i++ {
		assert.Equal(t, varRuns[0], varRuns[i], "variable creation order must be stable across runs")
		assert.Equal(t, constraintRuns[0], constraintRuns[i], "constraint posting order must be stable across runs")
	}
}

func TestSingletonDoubleRequirementEmitsWarning(t *testing.T) {
	dm := tinyDomainModel()
	dm.Subjects["math"] = domain.Subject{ID: "math", Category: domain.CategoryHauptfach, DoubleRequired: true}
	dm.Classes["5a"] = domain.SchoolClass{ID: "5a", Grade: 5, MaxPeriod: 2, Curriculum: map[string]int{"math": 2}}
	idx := slotindex.Build(&dm.TimeGrid)

	res := New(dm, idx, nil, Options{}).Build()
	require.NotEmpty(t, res.Warnings)
	found := false
	for _, w := range res.Warnings {
		if w == "teacher t1, class 5a, subject math: required double count is 1 (singleton only; no placement redundancy)" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPinsFixAssignment(t *testing.T) {
	dm := tinyDomainModel()
	dm.Pins = []domain.Pin{{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1}}
	idx := slotindex.Build(&dm.TimeGrid)
	res := New(dm, idx, nil, Options{}).Build()

	pinned := res.X[SlotAssignKey{Teacher: "t1", Class: "5a", Subject: "math", Day: 0, Period: 1}]
	val, ok := res.CP.Fixed(pinned)
	require.True(t, ok)
	assert.Equal(t, 1, val)
}
