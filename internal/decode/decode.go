// Package decode is the solution decoder (spec §4.7): it reads the fixed
// x/y/u/lead values out of a solved model.Result into a flat ScheduleEntry
// list, then assigns concrete rooms. Room assignment is not part of the
// core CP-SAT-class encoding (spec leaves it an Open Question); this
// decoder resolves that question with a deterministic greedy
// lexicographic assignment. Because C8 already bounds the aggregate
// per-(room type, day, period) count to the type's capacity before the
// solver ever returns, the greedy pass can only ever be choosing which
// interchangeable room a lesson gets, never whether one is free.
package decode

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/model"
)

// ScheduleEntry is one decoded lesson, ready for persistence or display.
type ScheduleEntry struct {
	Teacher string
	Class   string
	Subject string
	Day     int
	Period  int
	IsFirstOfDouble bool
	RoomType string
	RoomIndex int // 1-based index within RoomType's capacity, 0 if unbounded
	Coupling string // "" unless this entry was produced by a coupling
	CouplingGroup int
}

// Decode reads res/sol into a sorted ScheduleEntry list and assigns rooms.
func Decode(res *model.Result, sol *cpsat.Solution) []ScheduleEntry {
	entries := decodeDirect(res, sol)
	entries = append(entries, decodeCouplings(res, sol)...)

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Day != entries[j].Day {
			return entries[i].Day < entries[j].Day
		}
		if entries[i].Period != entries[j].Period {
			return entries[i].Period < entries[j].Period
		}
		if entries[i].Class != entries[j].Class {
			return entries[i].Class < entries[j].Class
		}
		return entries[i].Teacher < entries[j].Teacher
	})

	assignRooms(entries, res.DM)
	markDoubles(entries, res, sol)
	return entries
}

func decodeDirect(res *model.Result, sol *cpsat.Solution) []ScheduleEntry {
	var entries []ScheduleEntry
	for key, v := range res.X {
		if !sol.Value(v) {
			continue
		}
		subj := res.DM.Subjects[key.Subject]
		entries = append(entries, ScheduleEntry{
			Teacher: key.Teacher, Class: key.Class, Subject: key.Subject,
			Day: key.Day, Period: key.Period, RoomType: subj.RoomType,
		})
	}
	return entries
}

func decodeCouplings(res *model.Result, sol *cpsat.Solution) []ScheduleEntry {
	var entries []ScheduleEntry
	for uk, uv := range res.U {
		if !sol.Value(uv) {
			continue
		}
		cp := res.DM.Couplings[uk.Coupling]
		for gi, g := range cp.Groups {
			var leadTeacher string
			for lk, lv := range res.Lead {
				if lk.Coupling != uk.Coupling || lk.Group != gi || lk.Day != uk.Day || lk.Period != uk.Period {
					continue
				}
				if sol.Value(lv) {
					leadTeacher = lk.Teacher
					break
				}
			}
			if leadTeacher == "" {
				continue
			}
			subj := res.DM.Subjects[g.Subject]
			for _, classID := range cp.InvolvedClasses {
				entries = append(entries, ScheduleEntry{
					Teacher: leadTeacher, Class: classID, Subject: g.Subject,
					Day: uk.Day, Period: uk.Period, RoomType: subj.RoomType,
					Coupling: uk.Coupling, CouplingGroup: gi,
				})
			}
		}
	}
	return entries
}

func markDoubles(entries []ScheduleEntry, res *model.Result, sol *cpsat.Solution) {
	for i := range entries {
		e := entries[i]
		key := model.SlotAssignKey{Teacher: e.Teacher, Class: e.Class, Subject: e.Subject, Day: e.Day, Period: e.Period}
		if yv, ok := res.Y[key]; ok && sol.Value(yv) {
			entries[i].IsFirstOfDouble = true
		}
	}
}

// assignRooms greedily assigns a 1-based room index within each bounded
// room type, per (day, period), in the deterministic entry order Decode
// already sorted into. Capacity is never exceeded because C8 already
// bounds the aggregate count per (room type, day, period); the greedy
// pass only picks which of the rt.Capacity interchangeable rooms each
// lesson gets.
func assignRooms(entries []ScheduleEntry, dm *domain.DomainModel) {
	type slotKey struct {
		Room        string
		Day, Period int
	}
	used := map[slotKey]map[int]bool{}
	for i := range entries {
		e := &entries[i]
		if e.RoomType == "" {
			continue
		}
		rt, ok := dm.RoomTypes[e.RoomType]
		if !ok || rt.IsUnbounded() {
			continue
		}
		k := slotKey{Room: e.RoomType, Day: e.Day, Period: e.Period}
		if used[k] == nil {
			used[k] = map[int]bool{}
		}
		for idx := 1; idx <= rt.Capacity; idx++ {
			if !used[k][idx] {
				used[k][idx] = true
				e.RoomIndex = idx
				break
			}
		}
	}
}

// Key returns a stable string identity for a ScheduleEntry, used by
// persistence layers and the validator for deduplication and diffing.
func (e ScheduleEntry) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", e.Teacher, e.Class, e.Subject, e.Day, e.Period)
}
