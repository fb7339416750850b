package domain

// SubjectCategory is a sum type over the curricular categories of spec §3.
type SubjectCategory string

const (
	CategoryHauptfach   SubjectCategory = "hauptfach"
	CategorySprache     SubjectCategory = "sprache"
	CategoryNw          SubjectCategory = "nw"
	CategoryMusisch     SubjectCategory = "musisch"
	CategorySport       SubjectCategory = "sport"
	CategoryGesellschaft SubjectCategory = "gesellschaft"
)

// RoomType describes a concurrency-limited resource pool; the zero value
// (empty TypeID) is the unnamed "regular" room type with unbounded capacity.
type RoomType struct {
	TypeID   string
	Capacity int // number of concurrent rooms; 0 with TypeID=="" means unbounded
}

// IsUnbounded reports whether this room type has no capacity ceiling.
func (r RoomType) IsUnbounded() bool { return r.TypeID == "" }

// Subject is one curricular subject.
type Subject struct {
	ID              string
	Name            string
	Short           string
	Category        SubjectCategory
	RoomType        string // "" = none
	DoubleRequired  bool
	DoublePreferred bool
	IsHauptfach     bool
}

// Teacher qualifications, workload and availability (spec §3 "Teacher").
type Teacher struct {
	ID                  string
	QualifiedSubjects   map[string]bool // subject id set
	Deputat             float64         // target weekly hours
	DeputatMin          float64
	DeputatMax          float64
	Unavailable         map[SlotKey]bool
	PreferredFreeDays   map[int]bool // day index set
	MaxHoursPerDay      int
	MaxGapsPerDay       int
	MaxGapsPerWeek      int
	CanTeachSek2        bool
}

// QualifiedFor reports whether t may teach subjectID.
func (t *Teacher) QualifiedFor(subjectID string) bool {
	return t.QualifiedSubjects[subjectID]
}

// IsUnavailable reports whether t cannot teach at (day, period).
func (t *Teacher) IsUnavailable(day, period int) bool {
	return t.Unavailable[SlotKey{Day: day, Period: period}]
}

// CourseType distinguishes upper-secondary course kinds.
type CourseType string

const (
	CourseTypeNone CourseType = "none"
	CourseTypeLK   CourseType = "LK"
	CourseTypeGK   CourseType = "GK"
)

// SchoolClass is a Sek-I class or a Sek-II course (spec §3 "SchoolClass").
type SchoolClass struct {
	ID         string
	Grade      int
	Curriculum map[string]int // subject id -> weekly hours, >= 0
	MaxPeriod  int
	IsCourse   bool
	CourseType CourseType
}

// TotalCurriculumHours sums the weekly hours across all subjects.
func (c *SchoolClass) TotalCurriculumHours() int {
	total := 0
	for _, h := range c.Curriculum {
		total += h
	}
	return total
}

// CouplingKind distinguishes the two coupling flavours of spec §3.
type CouplingKind string

const (
	CouplingReliEthik CouplingKind = "reli_ethik"
	CouplingWPF       CouplingKind = "wpf"
)

// CouplingGroup is one subject lane inside a Coupling.
type CouplingGroup struct {
	Label   string
	Subject string
	Hours   int
}

// Coupling is a cross-class coupling group (spec §3, GLOSSARY "Coupling").
type Coupling struct {
	ID               string
	Kind             CouplingKind
	InvolvedClasses  []string
	Groups           []CouplingGroup
	HoursPerWeek     int
}

// CourseTrack is a lane of Sek-II courses that must run in lock-step.
type CourseTrack struct {
	ID           string
	CourseIDs    []string
	HoursPerWeek int
}

// Pin fixes a single lesson to a (teacher, class, subject, day, period).
type Pin struct {
	Teacher string
	Class   string
	Subject string
	Day     int
	Period  int
}

// SlotKey identifies a (day, period) pair.
type SlotKey struct {
	Day    int
	Period int
}

// Weights are the non-negative objective coefficients of spec §4.5.
type Weights struct {
	Gaps           float64
	Workload       float64
	DayWishes      float64
	Compact        float64
	DoubleLessons  float64
	SubjectSpread  float64
	DeputatDev     float64
}

// DefaultWeights mirrors a conservative, strictly-positive default band.
func DefaultWeights() Weights {
	return Weights{
		Gaps:          5,
		Workload:      2,
		DayWishes:     3,
		Compact:       1,
		DoubleLessons: 1,
		SubjectSpread: 2,
		DeputatDev:    4,
	}
}

// Zeroed returns the all-zero weights used by the CLI's --no-soft flag.
func (w Weights) Zeroed() Weights { return Weights{} }

// Limits carries solver-level tuning knobs distinct from objective weights.
type Limits struct {
	TimeLimitSeconds int
	NumWorkers       int // 0 = detect logical cores
	Seed             int64
}
