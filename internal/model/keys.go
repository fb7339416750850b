// Package model is the model builder (spec §4.3/§4.4): it produces the
// decision-variable set and posts every hard constraint onto a cpsat.Model.
package model

import (
	"sort"

	"github.com/noah-isme/sek-scheduler/internal/domain"
)

// AssignKey identifies an a[t,c,s] variable.
type AssignKey struct {
	Teacher, Class, Subject string
}

// SlotAssignKey identifies an x[t,c,s,d,p] or y[t,c,s,d,p] variable.
type SlotAssignKey struct {
	Teacher, Class, Subject string
	Day, Period             int
}

// ClassSlotKey identifies an act_c[c,d,p] variable.
type ClassSlotKey struct {
	Class       string
	Day, Period int
}

// TeacherSlotKey identifies an act_t[t,d,p] variable.
type TeacherSlotKey struct {
	Teacher     string
	Day, Period int
}

// CoupleSlotKey identifies a u[k,d,p] variable.
type CoupleSlotKey struct {
	Coupling    string
	Day, Period int
}

// CoupleGroupKey identifies a g[k,i,t] variable.
type CoupleGroupKey struct {
	Coupling string
	Group    int
	Teacher  string
}

// LeadKey identifies a lead[k,i,t,d,p] conjunction variable: teacher t is
// leading group i of coupling k at (d,p), used by C4/C11d.
type LeadKey struct {
	Coupling    string
	Group       int
	Teacher     string
	Day, Period int
}

// sortedAssignKeys returns the keys of an AssignKey-keyed map in stable
// (teacher, class, subject) order, so variable creation and constraint
// posting stay deterministic across runs (spec §5).
func sortedAssignKeys[V any](m map[AssignKey]V) []AssignKey {
	keys := make([]AssignKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Teacher != b.Teacher {
			return a.Teacher < b.Teacher
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.Subject < b.Subject
	})
	return keys
}

// sortedSlotAssignKeys returns the keys of a SlotAssignKey-keyed map in
// stable (teacher, class, subject, day, period) order.
func sortedSlotAssignKeys[V any](m map[SlotAssignKey]V) []SlotAssignKey {
	keys := make([]SlotAssignKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Teacher != b.Teacher {
			return a.Teacher < b.Teacher
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Period < b.Period
	})
	return keys
}

// sortedClassSlotKeys returns the keys of a ClassSlotKey-keyed map in
// stable (class, day, period) order.
func sortedClassSlotKeys[V any](m map[ClassSlotKey]V) []ClassSlotKey {
	keys := make([]ClassSlotKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Period < b.Period
	})
	return keys
}

// sortedTeacherSlotKeys returns the keys of a TeacherSlotKey-keyed map in
// stable (teacher, day, period) order.
func sortedTeacherSlotKeys[V any](m map[TeacherSlotKey]V) []TeacherSlotKey {
	keys := make([]TeacherSlotKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Teacher != b.Teacher {
			return a.Teacher < b.Teacher
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Period < b.Period
	})
	return keys
}

// sortedCoupleSlotKeys returns the keys of a CoupleSlotKey-keyed map in
// stable (coupling, day, period) order.
func sortedCoupleSlotKeys[V any](m map[CoupleSlotKey]V) []CoupleSlotKey {
	keys := make([]CoupleSlotKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Coupling != b.Coupling {
			return a.Coupling < b.Coupling
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Period < b.Period
	})
	return keys
}

// sortedCoupleGroupKeys returns the keys of a CoupleGroupKey-keyed map in
// stable (coupling, group, teacher) order.
func sortedCoupleGroupKeys[V any](m map[CoupleGroupKey]V) []CoupleGroupKey {
	keys := make([]CoupleGroupKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Coupling != b.Coupling {
			return a.Coupling < b.Coupling
		}
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Teacher < b.Teacher
	})
	return keys
}

// sortedLeadKeys returns the keys of a LeadKey-keyed map in stable
// (coupling, group, teacher, day, period) order.
func sortedLeadKeys[V any](m map[LeadKey]V) []LeadKey {
	keys := make([]LeadKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Coupling != b.Coupling {
			return a.Coupling < b.Coupling
		}
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Teacher != b.Teacher {
			return a.Teacher < b.Teacher
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Period < b.Period
	})
	return keys
}

// sortedInts returns the keys of an int-keyed map in ascending order.
func sortedInts[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func slotKey(teacher, class, subject string, day, period int) SlotAssignKey {
	return SlotAssignKey{Teacher: teacher, Class: class, Subject: subject, Day: day, Period: period}
}

func assignKey(teacher, class, subject string) AssignKey {
	return AssignKey{Teacher: teacher, Class: class, Subject: subject}
}

// coupledSubjects returns, for class c, the subject ids satisfied through
// a coupling instead of direct assignment (spec §4.3 "Assignment").
func coupledSubjects(m *domain.DomainModel, classID string) map[string]bool {
	return m.CoupledSubjectsFor(classID)
}
