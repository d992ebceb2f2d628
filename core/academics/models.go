package academics

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/hisakoh/campushub/core"
)

// Weekdays, Monday=1 .. Sunday=7.
const (
	DayMonday = iota + 1
	DayTuesday
	DayWednesday
	DayThursday
	DayFriday
	DaySaturday
	DaySunday
)

// Class periods per day.
const (
	PeriodFirst = iota + 1
	PeriodSecond
	PeriodThird
	PeriodFourth
	PeriodFifth

	PeriodCount = 5
)

// Academic terms per year.
const (
	TermSpring = iota + 1
	TermSummer
	TermFall
	TermWinter

	TermCount = 4
)

// MaxAttendance is the cap on per-registration attendance counts.
const MaxAttendance = 15

var ErrInvalidSlot = errors.New("day must be in [1,7] and period in [1,5]")

// PeriodTime is the canonical wall-clock start/end of a class period.
// Reference data, not user-editable.
type PeriodTime struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

var periodTimes = map[int]PeriodTime{
	PeriodFirst:  {Start: "09:00", End: "10:30"},
	PeriodSecond: {Start: "10:40", End: "12:10"},
	PeriodThird:  {Start: "13:00", End: "14:30"},
	PeriodFourth: {Start: "14:40", End: "16:10"},
	PeriodFifth:  {Start: "16:20", End: "17:50"},
}

// PeriodTimeOf returns the wall-clock bounds of a class period.
func PeriodTimeOf(period int) (PeriodTime, error) {
	pt, ok := periodTimes[period]
	if !ok {
		return PeriodTime{}, core.NewValidationError(ErrInvalidSlot,
			core.FieldError{Field: "period", Error: "period must be between 1 and 5"})
	}
	return pt, nil
}

// SlotID derives the stable slot identity from (day, period).
// The mapping is bijective over the 35 valid combinations.
func SlotID(day, period int) (int, error) {
	var flds []core.FieldError
	if day < DayMonday || day > DaySunday {
		flds = append(flds, core.FieldError{Field: "day", Error: "day must be between 1 and 7, got " + strconv.Itoa(day)})
	}
	if period < PeriodFirst || period > PeriodFifth {
		flds = append(flds, core.FieldError{Field: "period", Error: "period must be between 1 and 5, got " + strconv.Itoa(period)})
	}
	if len(flds) > 0 {
		return 0, core.NewValidationError(ErrInvalidSlot, flds...)
	}
	return (day-1)*PeriodCount + period, nil
}

// Slot is one weekly recurring (weekday, class-period) position.
// Its id is a pure function of (Day, Period); see SlotID.
type Slot struct {
	ID     int `json:"id"`
	Day    int `json:"day"`
	Period int `json:"period"`
}

// AllSlots enumerates all 35 slots with derived ids, in id order.
// Used by the idempotent bootstrap seeding.
func AllSlots() []Slot {
	slots := make([]Slot, 0, DaySunday*PeriodCount)
	for day := DayMonday; day <= DaySunday; day++ {
		for period := PeriodFirst; period <= PeriodFifth; period++ {
			id, _ := SlotID(day, period)
			slots = append(slots, Slot{ID: id, Day: day, Period: period})
		}
	}
	return slots
}

// Term is one of the four recurring academic terms. Its concrete date bounds
// are set administratively each calendar cycle and may be unset.
type Term struct {
	Number    int       `json:"number"`
	StartDate null.Time `json:"start_date"`
	EndDate   null.Time `json:"end_date"`
}

// Contains reports whether the term's [start, end] date range inclusively
// contains the calendar date of `now`. Terms with unset bounds contain nothing.
func (t Term) Contains(now time.Time) bool {
	if !t.StartDate.Valid || !t.EndDate.Valid {
		return false
	}
	d := dateOf(now)
	return !d.Before(dateOf(t.StartDate.Time)) && !d.After(dateOf(t.EndDate.Time))
}

// FiscalYear derives the academic-year number from the term's end date:
// a term ending in January-March belongs to the previous fiscal year.
// Returns 0 when the end date is unset.
func (t Term) FiscalYear() int {
	if !t.EndDate.Valid {
		return 0
	}
	end := t.EndDate.Time
	year := end.Year()
	if end.Month() <= time.March {
		year--
	}
	return year
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Lecture is a teachable offering occupying a set of terms and slots.
type Lecture struct {
	ID               string      `json:"id"`
	SyllabusID       null.String `json:"syllabus_id,omitempty"`
	Name             string      `json:"name"`
	Room             string      `json:"room"`
	Instructor       string      `json:"instructor"`
	Note             string      `json:"note"`
	Grade            int         `json:"grade"`
	Terms            []int       `json:"terms"` // term numbers
	Slots            []int       `json:"slots"` // slot ids
	IsPublic         bool        `json:"is_public"`
	IsPublicEditable bool        `json:"is_public_editable"`
	OwnerID          int         `json:"owner_id"`
	CreatedAt        time.Time   `json:"created_at"` // UTC
	UpdatedAt        time.Time   `json:"updated_at"` // UTC
}

// SharesTermAndSlot reports whether two lectures collide on the timetable:
// they must share at least one term AND at least one slot. Sharing only a term
// or only a slot is not a collision.
func (l Lecture) SharesTermAndSlot(other Lecture) bool {
	return intersects(l.Terms, other.Terms) && intersects(l.Slots, other.Slots)
}

func (l Lecture) VisibleTo(userID int) bool {
	return l.IsPublic || l.OwnerID == userID
}

func (l Lecture) EditableBy(userID int) bool {
	return l.OwnerID == userID || l.IsPublicEditable
}

func (l Lecture) OccupiesSlot(slotID int) bool {
	return contains(l.Slots, slotID)
}

func (l Lecture) RunsInTerm(termNumber int) bool {
	return contains(l.Terms, termNumber)
}

func intersects(a, b []int) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}

func contains(s []int, x int) bool {
	for _, v := range s {
		if v == x {
			return true
		}
	}
	return false
}

// Registration binds one user to one lecture for one fiscal year.
// At most one registration exists per (user, lecture, year).
type Registration struct {
	ID              int       `json:"id"`
	UserID          int       `json:"-"`
	LectureID       string    `json:"lecture_id"`
	Year            int       `json:"year"`
	AttendanceCount int       `json:"attendance_count"`
	RegisteredAt    time.Time `json:"registered_at"` // UTC

	Lecture *Lecture `json:"lecture,omitempty"` // populated on reads
}
