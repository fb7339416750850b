// Package slotindex builds the bijection between (day, period) pairs and
// contiguous integer indices, the per-class slot masks, and the
// contiguity-run structure used by the compactness (C9) and gap (C14)
// constraints (spec §4.2).
package slotindex

import (
	"sort"

	"github.com/noah-isme/sek-scheduler/internal/domain"
)

// Index is the slot indexer: S, S(c), DBL, next() and the slot-to-index
// map. It keeps no index-to-day map.
type Index struct {
	grid *domain.TimeGrid

	slots   []domain.SlotKey        // S, in (day, period) order
	idxOf   map[domain.SlotKey]int  // inverse of slots
	periods []int                   // sorted distinct period numbers
	runs    map[int][]Run           // day -> contiguity runs
}

// Run is a maximal sub-sequence of periods on one day with no pause
// between consecutive entries (spec §4.2 "contiguity run").
type Run struct {
	Day     int
	Periods []int // sorted ascending
}

// Build constructs S, the slot-to-index map and the contiguity runs for grid.
func Build(grid *domain.TimeGrid) *Index {
	idx := &Index{
		grid:    grid,
		idxOf:   map[domain.SlotKey]int{},
		periods: grid.Periods(),
		runs:    map[int][]Run{},
	}

	for d := 0; d < grid.Workdays; d++ {
		for _, p := range idx.periods {
			key := domain.SlotKey{Day: d, Period: p}
			idx.idxOf[key] = len(idx.slots)
			idx.slots = append(idx.slots, key)
		}
		idx.runs[d] = buildRuns(d, idx.periods, grid)
	}

	return idx
}

func buildRuns(day int, periods []int, grid *domain.TimeGrid) []Run {
	var runs []Run
	var current []int
	for i, p := range periods {
		if i == 0 {
			current = []int{p}
			continue
		}
		prev := periods[i-1]
		if pauseBetween(grid, prev, p) {
			runs = append(runs, Run{Day: day, Periods: current})
			current = []int{p}
		} else {
			current = append(current, p)
		}
	}
	if len(current) > 0 {
		runs = append(runs, Run{Day: day, Periods: current})
	}
	return runs
}

func pauseBetween(grid *domain.TimeGrid, prev, next int) bool {
	if next != prev+1 {
		// Non-adjacent period numbers always reflect a gap in the grid
		// definition itself, which we treat as boundary-equivalent to a
		// pause: it must not host a double block or count as a teaching gap.
		return true
	}
	for _, ps := range grid.Pauses {
		if ps.AfterPeriod == prev {
			return true
		}
	}
	return false
}

// All returns S in deterministic (day, period) order.
func (idx *Index) All() []domain.SlotKey { return idx.slots }

// IndexOf returns the contiguous integer index of a slot, or -1.
func (idx *Index) IndexOf(day, period int) int {
	if i, ok := idx.idxOf[domain.SlotKey{Day: day, Period: period}]; ok {
		return i
	}
	return -1
}

// Next returns the next active period on the same day after p, and
// whether one exists — next(d, p) of spec §4.2.
func (idx *Index) Next(day, p int) (int, bool) {
	periods := idx.periods
	for i, cur := range periods {
		if cur == p && i+1 < len(periods) {
			return periods[i+1], true
		}
	}
	return 0, false
}

// RunsForDay returns the contiguity runs for a given day.
func (idx *Index) RunsForDay(day int) []Run { return idx.runs[day] }

// ClassMask returns S(c): the class-local slot mask of spec §3.
func (idx *Index) ClassMask(cls domain.SchoolClass) []domain.SlotKey {
	var out []domain.SlotKey
	for _, key := range idx.slots {
		slot, ok := idx.grid.SlotByPeriod(key.Period)
		if !ok {
			continue
		}
		if slot.PeriodNumber > cls.MaxPeriod {
			continue
		}
		if slot.IsSek2Only && !cls.IsCourse {
			continue
		}
		out = append(out, key)
	}
	return out
}

// ClassMaskSet returns ClassMask as a lookup set.
func (idx *Index) ClassMaskSet(cls domain.SchoolClass) map[domain.SlotKey]bool {
	out := map[domain.SlotKey]bool{}
	for _, k := range idx.ClassMask(cls) {
		out[k] = true
	}
	return out
}

// DoubleStarts returns DBL: the set of valid double-start periods.
func (idx *Index) DoubleStarts() map[int]bool { return idx.grid.DoubleStarts() }

// Periods returns the sorted distinct period numbers.
func (idx *Index) Periods() []int { return append([]int(nil), idx.periods...) }

// Days returns the sorted day indices 0..Workdays-1.
func (idx *Index) Days() []int {
	days := make([]int, idx.grid.Workdays)
	for i := range days {
		days[i] = i
	}
	return days
}

// SortSlotKeys sorts a slice of SlotKey in (day, period) order, used
// wherever downstream code needs the deterministic iteration order
// spec §5 requires.
func SortSlotKeys(keys []domain.SlotKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return keys[i].Period < keys[j].Period
	})
}
