package domain

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sek-scheduler/pkg/schedulerrors"
)

// Input is the JSON wire format for a DomainModel (spec §6 "Domain input
// contract"), kept separate from the core domain model: struct-keyed maps
// like Teacher.Unavailable don't marshal directly, so Input uses plain
// slices and converts them into the domain model's lookup sets via
// ToDomainModel.
type Input struct {
	TimeGrid     TimeGridInput  `json:"time_grid" validate:"required"`
	Subjects     []SubjectInput `json:"subjects" validate:"required,min=1,dive"`
	RoomTypes    []RoomType     `json:"room_types"`
	Classes      []ClassInput   `json:"classes" validate:"required,min=1,dive"`
	Teachers     []TeacherInput `json:"teachers" validate:"required,min=1,dive"`
	Couplings    []Coupling     `json:"couplings"`
	CourseTracks []CourseTrack  `json:"course_tracks"`
	Pins         []Pin          `json:"pins"`
	Weights      Weights        `json:"weights"`
	Limits       Limits         `json:"limits"`
}

// TimeGridInput is the wire form of TimeGrid (identical shape; named
// separately so the JSON schema reads as part of Input).
type TimeGridInput struct {
	Slots         []LessonSlot  `json:"slots" validate:"required,min=1"`
	Pauses        []Pause       `json:"pauses"`
	DoubleBlocks  []DoubleBlock `json:"double_blocks"`
	Sek1MaxPeriod int           `json:"sek1_max_period" validate:"min=1"`
	Sek2MaxPeriod int           `json:"sek2_max_period" validate:"min=1"`
	Workdays      int           `json:"workdays" validate:"required,min=1"`
}

// SubjectInput is the wire form of Subject.
type SubjectInput struct {
	ID              string          `json:"id" validate:"required"`
	Name            string          `json:"name"`
	Short           string          `json:"short"`
	Category        SubjectCategory `json:"category" validate:"required"`
	RoomType        string          `json:"room_type"`
	DoubleRequired  bool            `json:"double_required"`
	DoublePreferred bool            `json:"double_preferred"`
	IsHauptfach     bool            `json:"is_hauptfach"`
}

// ClassInput is the wire form of SchoolClass.
type ClassInput struct {
	ID         string         `json:"id" validate:"required"`
	Grade      int            `json:"grade" validate:"min=1"`
	Curriculum map[string]int `json:"curriculum"`
	MaxPeriod  int            `json:"max_period" validate:"required,min=1"`
	IsCourse   bool           `json:"is_course"`
	CourseType CourseType     `json:"course_type"`
}

// TeacherInput is the wire form of Teacher: Unavailable and
// PreferredFreeDays travel as slices instead of struct/int-keyed sets.
type TeacherInput struct {
	ID                string    `json:"id" validate:"required"`
	QualifiedSubjects []string  `json:"qualified_subjects" validate:"required,min=1"`
	Deputat           float64   `json:"deputat" validate:"min=0"`
	DeputatMin        float64   `json:"deputat_min" validate:"min=0"`
	DeputatMax        float64   `json:"deputat_max" validate:"min=0,gtefield=DeputatMin"`
	Unavailable       []SlotKey `json:"unavailable"`
	PreferredFreeDays []int     `json:"preferred_free_days"`
	MaxHoursPerDay    int       `json:"max_hours_per_day" validate:"required,min=1"`
	MaxGapsPerDay     int       `json:"max_gaps_per_day" validate:"min=0"`
	MaxGapsPerWeek    int       `json:"max_gaps_per_week" validate:"min=0"`
	CanTeachSek2      bool      `json:"can_teach_sek2"`
}

var inputValidator = validator.New()

// ParseInput decodes a domain model from JSON bytes and checks its
// structural shape (required ids, min=1 hour counts) before any semantic
// DomainModel.Validate or feasibility audit ever runs, the way the
// teacher's handlers reject a malformed request body before it reaches a
// service method.
func ParseInput(data []byte) (*Input, error) {
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	if err := inputValidator.Struct(&in); err != nil {
		return nil, schedulerrors.Wrap(err, schedulerrors.KindInvalidInput, "input failed structural validation")
	}
	return &in, nil
}

// ToDomainModel converts the wire representation into the immutable,
// lookup-set-based DomainModel the rest of the core operates on.
func (in *Input) ToDomainModel() *DomainModel {
	dm := &DomainModel{
		TimeGrid: TimeGrid{
			Slots:         in.TimeGrid.Slots,
			Pauses:        in.TimeGrid.Pauses,
			DoubleBlocks:  in.TimeGrid.DoubleBlocks,
			Sek1MaxPeriod: in.TimeGrid.Sek1MaxPeriod,
			Sek2MaxPeriod: in.TimeGrid.Sek2MaxPeriod,
			Workdays:      in.TimeGrid.Workdays,
		},
		Subjects:     map[string]Subject{},
		RoomTypes:    map[string]RoomType{},
		Classes:      map[string]SchoolClass{},
		Teachers:     map[string]Teacher{},
		Couplings:    map[string]Coupling{},
		CourseTracks: map[string]CourseTrack{},
		Pins:         in.Pins,
		Weights:      in.Weights,
		Limits:       in.Limits,
	}

	for _, s := range in.Subjects {
		dm.Subjects[s.ID] = Subject{
			ID: s.ID, Name: s.Name, Short: s.Short, Category: s.Category,
			RoomType: s.RoomType, DoubleRequired: s.DoubleRequired,
			DoublePreferred: s.DoublePreferred, IsHauptfach: s.IsHauptfach,
		}
	}
	for _, rt := range in.RoomTypes {
		dm.RoomTypes[rt.TypeID] = rt
	}
	for _, c := range in.Classes {
		dm.Classes[c.ID] = SchoolClass{
			ID: c.ID, Grade: c.Grade, Curriculum: c.Curriculum,
			MaxPeriod: c.MaxPeriod, IsCourse: c.IsCourse, CourseType: c.CourseType,
		}
	}
	for _, t := range in.Teachers {
		qualified := map[string]bool{}
		for _, s := range t.QualifiedSubjects {
			qualified[s] = true
		}
		unavailable := map[SlotKey]bool{}
		for _, sk := range t.Unavailable {
			unavailable[sk] = true
		}
		preferredFree := map[int]bool{}
		for _, d := range t.PreferredFreeDays {
			preferredFree[d] = true
		}
		dm.Teachers[t.ID] = Teacher{
			ID: t.ID, QualifiedSubjects: qualified, Deputat: t.Deputat,
			DeputatMin: t.DeputatMin, DeputatMax: t.DeputatMax,
			Unavailable: unavailable, PreferredFreeDays: preferredFree,
			MaxHoursPerDay: t.MaxHoursPerDay, MaxGapsPerDay: t.MaxGapsPerDay,
			MaxGapsPerWeek: t.MaxGapsPerWeek, CanTeachSek2: t.CanTeachSek2,
		}
	}
	for _, cp := range in.Couplings {
		dm.Couplings[cp.ID] = cp
	}
	for _, tr := range in.CourseTracks {
		dm.CourseTracks[tr.ID] = tr
	}

	return dm
}
