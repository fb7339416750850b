// Package validate is the independent validator (spec §4.9): it re-checks
// every hard invariant directly against a decoded ScheduleEntry list by
// plain aggregation, without touching internal/model or internal/cpsat,
// so a bug in the model builder's constraint posting cannot also hide the
// violation it introduced from the thing meant to catch it.
package validate

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sek-scheduler/internal/decode"
	"github.com/noah-isme/sek-scheduler/internal/domain"
	"github.com/noah-isme/sek-scheduler/internal/slotindex"
)

// Report is the validator's verdict.
type Report struct {
	Errors   []string
	Warnings []string
}

// Feasible reports whether no hard-invariant violation was found.
func (r *Report) Feasible() bool { return len(r.Errors) == 0 }

// Run checks entries against dm from scratch.
func Run(dm *domain.DomainModel, entries []decode.ScheduleEntry) *Report {
	r := &Report{}
	idx := slotindex.Build(&dm.TimeGrid)
	checkUniqueTeacher(dm, entries, r)
	checkCurriculum(dm, entries, r)
	checkTeacherNoDouble(entries, r)
	checkClassNoDouble(entries, r)
	checkAvailability(dm, entries, r)
	checkDeputatBand(dm, entries, r)
	checkRoomCapacity(dm, entries, r)
	checkAdmissibleSlots(dm, entries, r)
	checkCouplingIntegrity(dm, entries, r)
	checkCourseTrackSync(dm, entries, r)
	checkCompactClass(dm, idx, entries, r)
	checkMaxHoursPerDay(dm, entries, r)
	checkDoubleCounts(dm, entries, r)
	checkGapBound(dm, idx, entries, r)
	return r
}

func checkUniqueTeacher(dm *domain.DomainModel, entries []decode.ScheduleEntry, r *Report) {
	teachersFor := map[[2]string]map[string]bool{}
	for _, e := range entries {
		if e.Coupling != "" {
			continue
		}
		k := [2]string{e.Class, e.Subject}
		if teachersFor[k] == nil {
			teachersFor[k] = map[string]bool{}
		}
		teachersFor[k][e.Teacher] = true
	}
	for k, teachers := range teachersFor {
		if len(teachers) > 1 {
			r.Errors = append(r.Errors, fmt.Sprintf("class %s subject %s taught by %d different teachers", k[0], k[1], len(teachers)))
		}
	}
}

func checkCurriculum(dm *domain.DomainModel, entries []decode.ScheduleEntry, r *Report) {
	hours := map[[2]string]int{}
	for _, e := range entries {
		hours[[2]string{e.Class, e.Subject}]++
	}
	for _, classID := range dm.ClassIDs() {
		cls := dm.Classes[classID]
		for subjectID, want := range cls.Curriculum {
			if want <= 0 {
				continue
			}
			if dm.CoupledSubjectsFor(classID)[subjectID] {
				continue
			}
			got := hours[[2]string{classID, subjectID}]
			if got != want {
				r.Errors = append(r.Errors, fmt.Sprintf("class %s subject %s has %d lessons, curriculum requires %d", classID, subjectID, got, want))
			}
		}
	}
}

type teacherSlot struct {
	Teacher     string
	Day, Period int
}

type classSlot struct {
	Class       string
	Day, Period int
}

func checkTeacherNoDouble(entries []decode.ScheduleEntry, r *Report) {
	seen := map[teacherSlot]string{}
	for _, e := range entries {
		k := teacherSlot{Teacher: e.Teacher, Day: e.Day, Period: e.Period}
		if other, ok := seen[k]; ok && other != e.Class {
			r.Errors = append(r.Errors, fmt.Sprintf("teacher %s double-booked day %d period %d (classes %s and %s)", e.Teacher, e.Day, e.Period, other, e.Class))
		}
		seen[k] = e.Class
	}
}

func checkClassNoDouble(entries []decode.ScheduleEntry, r *Report) {
	seen := map[classSlot]string{}
	for _, e := range entries {
		k := classSlot{Class: e.Class, Day: e.Day, Period: e.Period}
		if other, ok := seen[k]; ok && other != e.Subject {
			r.Errors = append(r.Errors, fmt.Sprintf("class %s double-booked day %d period %d (subjects %s and %s)", e.Class, e.Day, e.Period, other, e.Subject))
		}
		seen[k] = e.Subject
	}
}

func checkAvailability(dm *domain.DomainModel, entries []decode.ScheduleEntry, r *Report) {
	for _, e := range entries {
		t := dm.Teachers[e.Teacher]
		if t.IsUnavailable(e.Day, e.Period) {
			r.Errors = append(r.Errors, fmt.Sprintf("teacher %s scheduled during an unavailable slot day %d period %d", e.Teacher, e.Day, e.Period))
		}
	}
}

func checkDeputatBand(dm *domain.DomainModel, entries []decode.ScheduleEntry, r *Report) {
	hours := map[string]int{}
	for _, e := range entries {
		hours[e.Teacher]++
	}
	for _, teacherID := range dm.TeacherIDs() {
		t := dm.Teachers[teacherID]
		h := hours[teacherID]
		if float64(h) < t.DeputatMin || float64(h) > t.DeputatMax {
			r.Errors = append(r.Errors, fmt.Sprintf("teacher %s has %d lessons, outside deputat band [%.1f,%.1f]", teacherID, h, t.DeputatMin, t.DeputatMax))
		}
	}
}

func checkRoomCapacity(dm *domain.DomainModel, entries []decode.ScheduleEntry, r *Report) {
	type slotKey struct {
		Room        string
		Day, Period int
	}
	counts := map[slotKey]int{}
	for _, e := range entries {
		if e.RoomType == "" {
			continue
		}
		counts[slotKey{Room: e.RoomType, Day: e.Day, Period: e.Period}]++
	}
	for k, n := range counts {
		rt, ok := dm.RoomTypes[k.Room]
		if !ok || rt.IsUnbounded() {
			continue
		}
		if n > rt.Capacity {
			r.Errors = append(r.Errors, fmt.Sprintf("room type %s day %d period %d over capacity: %d > %d", k.Room, k.Day, k.Period, n, rt.Capacity))
		}
	}
}

func checkAdmissibleSlots(dm *domain.DomainModel, entries []decode.ScheduleEntry, r *Report) {
	for _, e := range entries {
		cls := dm.Classes[e.Class]
		if e.Period > cls.MaxPeriod {
			r.Errors = append(r.Errors, fmt.Sprintf("class %s scheduled at period %d beyond its max period %d", e.Class, e.Period, cls.MaxPeriod))
		}
		t := dm.Teachers[e.Teacher]
		if !t.QualifiedFor(e.Subject) {
			r.Errors = append(r.Errors, fmt.Sprintf("teacher %s not qualified for subject %s (class %s)", e.Teacher, e.Subject, e.Class))
		}
	}
}

func checkCouplingIntegrity(dm *domain.DomainModel, entries []decode.ScheduleEntry, r *Report) {
	slotsFor := map[string]map[[2]int]bool{}
	for _, e := range entries {
		if e.Coupling == "" {
			continue
		}
		if slotsFor[e.Coupling] == nil {
			slotsFor[e.Coupling] = map[[2]int]bool{}
		}
		slotsFor[e.Coupling][[2]int{e.Day, e.Period}] = true
	}
	for couplingID, cp := range dm.Couplings {
		got := len(slotsFor[couplingID])
		if got != cp.HoursPerWeek {
			r.Errors = append(r.Errors, fmt.Sprintf("coupling %s has %d scheduled slots, expects %d", couplingID, got, cp.HoursPerWeek))
		}
	}
}

func checkCourseTrackSync(dm *domain.DomainModel, entries []decode.ScheduleEntry, r *Report) {
	slotsFor := map[string]map[[2]int]bool{}
	for _, e := range entries {
		if slotsFor[e.Class] == nil {
			slotsFor[e.Class] = map[[2]int]bool{}
		}
		slotsFor[e.Class][[2]int{e.Day, e.Period}] = true
	}
	for _, trackID := range dm.CourseTrackIDs() {
		track := dm.CourseTracks[trackID]
		if len(track.CourseIDs) < 2 {
			continue
		}
		ref := slotsFor[track.CourseIDs[0]]
		for _, other := range track.CourseIDs[1:] {
			if !sameSlotSet(ref, slotsFor[other]) {
				r.Errors = append(r.Errors, fmt.Sprintf("course track %s: %s and %s run at different slots", trackID, track.CourseIDs[0], other))
			}
		}
	}
}

// checkCompactClass re-derives C9: on each day, a non-course class's active
// periods within that day's contiguity run must form a prefix starting at
// the run's first period — no active period may follow a gap.
func checkCompactClass(dm *domain.DomainModel, idx *slotindex.Index, entries []decode.ScheduleEntry, r *Report) {
	activeAt := map[classSlot]bool{}
	for _, e := range entries {
		activeAt[classSlot{Class: e.Class, Day: e.Day, Period: e.Period}] = true
	}
	for _, classID := range dm.ClassIDs() {
		cls := dm.Classes[classID]
		if cls.IsCourse {
			continue
		}
		for _, day := range idx.Days() {
			for _, run := range idx.RunsForDay(day) {
				gapSeen := false
				for _, p := range run.Periods {
					if p > cls.MaxPeriod {
						continue
					}
					if !activeAt[classSlot{Class: classID, Day: day, Period: p}] {
						gapSeen = true
						continue
					}
					if gapSeen {
						r.Errors = append(r.Errors, fmt.Sprintf("class %s day %d: active period %d follows a gap, violating the compact prefix rule", classID, day, p))
					}
				}
			}
		}
	}
}

// checkMaxHoursPerDay re-derives C10. A teacher with MaxHoursPerDay <= 0 is
// treated as not yet configured (fixture default) rather than "zero hours
// allowed", matching the zero-means-unset convention checkRoomCapacity
// already applies to unbounded room types.
func checkMaxHoursPerDay(dm *domain.DomainModel, entries []decode.ScheduleEntry, r *Report) {
	type teacherDay struct {
		Teacher string
		Day     int
	}
	counts := map[teacherDay]int{}
	for _, e := range entries {
		counts[teacherDay{Teacher: e.Teacher, Day: e.Day}]++
	}
	keys := make([]teacherDay, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Teacher != keys[j].Teacher {
			return keys[i].Teacher < keys[j].Teacher
		}
		return keys[i].Day < keys[j].Day
	})
	for _, k := range keys {
		t := dm.Teachers[k.Teacher]
		if t.MaxHoursPerDay <= 0 {
			continue
		}
		if n := counts[k]; n > t.MaxHoursPerDay {
			r.Errors = append(r.Errors, fmt.Sprintf("teacher %s day %d: %d lessons exceeds max %d per day", k.Teacher, k.Day, n, t.MaxHoursPerDay))
		}
	}
}

// checkDoubleCounts re-derives C13: every (teacher, class, subject) whose
// subject requires doubles must have exactly hours/2 double-starts. It also
// emits the same singleton warnings model.Builder raises when that count is
// exactly 1 or the subject has a single hour, since the validator runs
// independently and must surface the same diagnostic.
func checkDoubleCounts(dm *domain.DomainModel, entries []decode.ScheduleEntry, r *Report) {
	type tcsKey struct {
		Teacher, Class, Subject string
	}
	hours := map[tcsKey]int{}
	doubles := map[tcsKey]int{}
	for _, e := range entries {
		if e.Coupling != "" {
			continue
		}
		k := tcsKey{Teacher: e.Teacher, Class: e.Class, Subject: e.Subject}
		hours[k]++
		if e.IsFirstOfDouble {
			doubles[k]++
		}
	}
	keys := make([]tcsKey, 0, len(hours))
	for k := range hours {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Teacher != keys[j].Teacher {
			return keys[i].Teacher < keys[j].Teacher
		}
		if keys[i].Class != keys[j].Class {
			return keys[i].Class < keys[j].Class
		}
		return keys[i].Subject < keys[j].Subject
	})
	for _, k := range keys {
		subj := dm.Subjects[k.Subject]
		if !subj.DoubleRequired {
			continue
		}
		want := hours[k] / 2
		if got := doubles[k]; got != want {
			r.Errors = append(r.Errors, fmt.Sprintf("teacher %s class %s subject %s has %d double lessons, requires %d", k.Teacher, k.Class, k.Subject, got, want))
		}
		if want == 1 {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"teacher %s, class %s, subject %s: required double count is 1 (singleton only; no placement redundancy)",
				k.Teacher, k.Class, k.Subject))
		}
		if hours[k] == 1 {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"teacher %s, class %s, subject %s: double required but curriculum is 1 hour (singleton only; no double possible)",
				k.Teacher, k.Class, k.Subject))
		}
	}
}

// checkGapBound re-derives C14: within each day's contiguity run, any
// inactive period strictly between a teacher's first and last active period
// on that run counts as a gap; the per-day and per-week totals must stay
// within MaxGapsPerDay/MaxGapsPerWeek. Unlike checkMaxHoursPerDay, zero is a
// legitimate ceiling here (a teacher who wants no gaps at all), so it is
// enforced literally; runs only exist when the caller populated a TimeGrid,
// so callers that never built one (bare fixtures) never trip it.
func checkGapBound(dm *domain.DomainModel, idx *slotindex.Index, entries []decode.ScheduleEntry, r *Report) {
	activeAt := map[teacherSlot]bool{}
	for _, e := range entries {
		activeAt[teacherSlot{Teacher: e.Teacher, Day: e.Day, Period: e.Period}] = true
	}
	for _, teacherID := range dm.TeacherIDs() {
		t := dm.Teachers[teacherID]
		weekGaps := 0
		for _, day := range idx.Days() {
			dayGaps := 0
			for _, run := range idx.RunsForDay(day) {
				periods := run.Periods
				if len(periods) < 3 {
					continue
				}
				first, last := -1, -1
				for _, p := range periods {
					if activeAt[teacherSlot{Teacher: teacherID, Day: day, Period: p}] {
						if first == -1 {
							first = p
						}
						last = p
					}
				}
				if first == -1 {
					continue
				}
				for _, p := range periods {
					if p <= first || p >= last {
						continue
					}
					if !activeAt[teacherSlot{Teacher: teacherID, Day: day, Period: p}] {
						dayGaps++
					}
				}
			}
			if dayGaps > t.MaxGapsPerDay {
				r.Errors = append(r.Errors, fmt.Sprintf("teacher %s day %d: %d gaps exceeds max %d per day", teacherID, day, dayGaps, t.MaxGapsPerDay))
			}
			weekGaps += dayGaps
		}
		if weekGaps > t.MaxGapsPerWeek {
			r.Errors = append(r.Errors, fmt.Sprintf("teacher %s: %d gaps exceeds max %d per week", teacherID, weekGaps, t.MaxGapsPerWeek))
		}
	}
}

func sameSlotSet(a, b map[[2]int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// SortedErrors returns r.Errors in a deterministic, stable order for
// output (spec §5 reproducibility).
func (r *Report) SortedErrors() []string {
	out := append([]string(nil), r.Errors...)
	sort.Strings(out)
	return out
}
