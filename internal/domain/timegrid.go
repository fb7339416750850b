// Package domain holds the immutable scheduling domain model: time grid,
// subjects, teachers, classes, rooms, couplings, course tracks and pins
// (spec §3). A DomainModel is built once per solve, never mutated during
// model construction or solving, and owns every entity by value; entities
// reference each other only by id (spec §9 "Cyclic references").
package domain

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sek-scheduler/pkg/schedulerrors"
)

// LessonSlot is one entry in the daily time grid.
type LessonSlot struct {
	PeriodNumber int    // 1-based
	Start        string // "HH:MM"
	End          string // "HH:MM"
	IsSek2Only   bool
}

// Pause is a non-teaching interval anchored after a given period.
type Pause struct {
	AfterPeriod int
}

// DoubleBlock is a (p, p+1) pair that may host a double-period.
type DoubleBlock struct {
	First int
}

// Second returns the second period of the block.
func (b DoubleBlock) Second() int { return b.First + 1 }

// TimeGrid is the finite ordered sequence of lesson slots plus pauses,
// double blocks and the Sek-I/Sek-II period ceilings (spec §3 "Time grid").
type TimeGrid struct {
	Slots          []LessonSlot
	Pauses         []Pause
	DoubleBlocks   []DoubleBlock
	Sek1MaxPeriod  int
	Sek2MaxPeriod  int
	Workdays       int // default 5
}

// Periods returns the sorted distinct period numbers in the grid.
func (g *TimeGrid) Periods() []int {
	periods := make([]int, 0, len(g.Slots))
	for _, s := range g.Slots {
		periods = append(periods, s.PeriodNumber)
	}
	sort.Ints(periods)
	return periods
}

// SlotByPeriod looks up a LessonSlot by period number.
func (g *TimeGrid) SlotByPeriod(p int) (LessonSlot, bool) {
	for _, s := range g.Slots {
		if s.PeriodNumber == p {
			return s, true
		}
	}
	return LessonSlot{}, false
}

// pauseAfter reports whether a pause is anchored right after period p.
func (g *TimeGrid) pauseAfter(p int) bool {
	for _, ps := range g.Pauses {
		if ps.AfterPeriod == p {
			return true
		}
	}
	return false
}

// Validate checks the structural invariant of spec §3 invariant 3:
// double_blocks ⊆ { (p, p+1) : no pause ends at p }.
func (g *TimeGrid) Validate() error {
	if g.Workdays <= 0 {
		return schedulerrors.New(schedulerrors.KindInvalidInput, "time grid workdays must be positive")
	}
	known := map[int]bool{}
	for _, s := range g.Slots {
		if known[s.PeriodNumber] {
			return schedulerrors.New(schedulerrors.KindInvalidInput,
				fmt.Sprintf("duplicate period_number %d in time grid", s.PeriodNumber))
		}
		known[s.PeriodNumber] = true
	}
	for _, db := range g.DoubleBlocks {
		if !known[db.First] || !known[db.Second()] {
			return schedulerrors.New(schedulerrors.KindInvalidInput,
				fmt.Sprintf("double block (%d,%d) references unknown period", db.First, db.Second()))
		}
		if g.pauseAfter(db.First) {
			return schedulerrors.New(schedulerrors.KindInvalidInput,
				fmt.Sprintf("double block (%d,%d) straddles a pause", db.First, db.Second()))
		}
	}
	return nil
}

// DoubleStarts returns DBL, the set of valid double-start periods.
func (g *TimeGrid) DoubleStarts() map[int]bool {
	dbl := make(map[int]bool, len(g.DoubleBlocks))
	for _, db := range g.DoubleBlocks {
		dbl[db.First] = true
	}
	return dbl
}

// MaxPeriodFor returns the period ceiling for a Sek-I/Sek-II class.
func (g *TimeGrid) MaxPeriodFor(isCourse bool) int {
	if isCourse {
		return g.Sek2MaxPeriod
	}
	return g.Sek1MaxPeriod
}
