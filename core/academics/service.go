package academics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/hisakoh/campushub/core"
)

var (
	// errors
	ErrNoCurrentTerm        = errors.New("no term covers the current date")
	ErrLectureNotFound      = errors.New("lecture not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationExists   = errors.New("already registered for this lecture and year")

	nowFunc = time.Now // mockable
)

// ConflictError is returned when a candidate registration collides with
// existing ones in the same term and slot. Lectures holds the distinct names
// of the colliding lectures.
type ConflictError struct {
	Lectures []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("登録しようとしている講義の日程が（%s）と重複しています。", strings.Join(e.Lectures, ", "))
}

type (
	Repository interface {
		QueryTerms(ctx context.Context) ([]Term, error)
		UpsertTerms(ctx context.Context, numbers ...int) error
		SetTermDates(ctx context.Context, number int, start, end null.Time) (Term, error)
		QuerySlots(ctx context.Context) ([]Slot, error)
		UpsertSlots(ctx context.Context, slots ...Slot) error

		CreateLecture(ctx context.Context, lec Lecture) (Lecture, error)
		GetLectureByID(ctx context.Context, id string) (Lecture, error)
		// QueryLectures returns the user's own lectures plus public ones.
		QueryLectures(ctx context.Context, userID int) ([]Lecture, error)
		UpdateLecture(ctx context.Context, lec Lecture) (Lecture, error)
		DeleteLecture(ctx context.Context, id string) error

		// CreateRegistrationIfNoConflict runs the collision check and the
		// insert as a single atomic unit: no other registration for the same
		// user may complete in between. It returns the distinct names of
		// colliding lectures when the check fails.
		CreateRegistrationIfNoConflict(ctx context.Context, reg Registration, candidate Lecture) (Registration, []string, error)
		QueryRegistrations(ctx context.Context, userID, year int) ([]Registration, error)
		GetRegistration(ctx context.Context, id, userID int) (Registration, error)
		DeleteRegistration(ctx context.Context, id, userID int) error
		// QueryRegistrationsForSlot returns every registration (lecture
		// populated) whose lecture occupies the slot, runs in the term and
		// matches the fiscal year.
		QueryRegistrationsForSlot(ctx context.Context, slotID, termNumber, year int) ([]Registration, error)

		// Attendance mutations are atomic read-modify-writes saturating at
		// [0, MaxAttendance]; both return the persisted count.
		IncrementAttendance(ctx context.Context, id, userID int) (int, error)
		DecrementAttendance(ctx context.Context, id, userID int) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureReferenceData seeds the 4 terms and all 35 slots. It is idempotent:
// re-running never duplicates or renumbers rows.
func (svc *Service) EnsureReferenceData(ctx context.Context) error {
	numbers := make([]int, 0, TermCount)
	for n := TermSpring; n <= TermWinter; n++ {
		numbers = append(numbers, n)
	}
	if err := svc.repo.UpsertTerms(ctx, numbers...); err != nil {
		return errors.Wrap(err, "seeding terms")
	}
	if err := svc.repo.UpsertSlots(ctx, AllSlots()...); err != nil {
		return errors.Wrap(err, "seeding slots")
	}
	return nil
}

func (svc *Service) Terms(ctx context.Context) ([]Term, error) {
	return svc.repo.QueryTerms(ctx)
}

func (svc *Service) Slots(ctx context.Context) ([]Slot, error) {
	return svc.repo.QuerySlots(ctx)
}

// SetTermDates updates a term's concrete date bounds for the current cycle.
func (svc *Service) SetTermDates(ctx context.Context, number int, start, end null.Time) (Term, error) {
	if number < TermSpring || number > TermWinter {
		return Term{}, core.NewValidationError(nil,
			core.FieldError{Field: "number", Error: "term number must be between 1 and 4"})
	}
	if start.Valid && end.Valid && end.Time.Before(start.Time) {
		return Term{}, core.NewValidationError(nil,
			core.FieldError{Field: "end_date", Error: "end date must not precede start date"})
	}
	return svc.repo.SetTermDates(ctx, number, start, end)
}

// CurrentTerm resolves the term whose date range contains `now` and derives
// the fiscal year from its end date. Resolution strategy: date-range
// containment; the nearest-future fallback is intentionally not used.
// ErrNoCurrentTerm is an expected outcome that callers must handle.
func (svc *Service) CurrentTerm(ctx context.Context, now time.Time) (Term, int, error) {
	terms, err := svc.repo.QueryTerms(ctx)
	if err != nil {
		return Term{}, 0, err
	}
	for _, t := range terms {
		if t.Contains(now) {
			return t, t.FiscalYear(), nil
		}
	}
	return Term{}, 0, ErrNoCurrentTerm
}

func (svc *Service) CreateLecture(ctx context.Context, ownerID int, nl NewLecture) (Lecture, error) {
	if err := nl.Validate(); err != nil {
		return Lecture{}, err
	}
	now := nowFunc().UTC()
	lec := Lecture{
		ID:               uuid.New().String(),
		SyllabusID:       nl.SyllabusID,
		Name:             core.CleanString(nl.Name),
		Room:             core.CleanString(nl.Room),
		Instructor:       core.CleanString(nl.Instructor),
		Note:             core.CleanString(nl.Note),
		Grade:            nl.Grade,
		Terms:            nl.Terms,
		Slots:            nl.Slots,
		IsPublic:         true,
		IsPublicEditable: true,
		OwnerID:          ownerID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if lec.Grade == 0 {
		lec.Grade = 1
	}
	if nl.IsPublic != nil {
		lec.IsPublic = *nl.IsPublic
	}
	if nl.IsPublicEditable != nil {
		lec.IsPublicEditable = *nl.IsPublicEditable
	}
	return svc.repo.CreateLecture(ctx, lec)
}

func (svc *Service) GetLecture(ctx context.Context, id string, userID int) (Lecture, error) {
	lec, err := svc.repo.GetLectureByID(ctx, id)
	if err != nil {
		return Lecture{}, err
	}
	if !lec.VisibleTo(userID) {
		return Lecture{}, ErrLectureNotFound
	}
	return lec, nil
}

func (svc *Service) QueryLectures(ctx context.Context, userID int) ([]Lecture, error) {
	return svc.repo.QueryLectures(ctx, userID)
}

func (svc *Service) UpdateLecture(ctx context.Context, id string, userID int, ul UpdateLecture) (Lecture, error) {
	if err := ul.Validate(); err != nil {
		return Lecture{}, err
	}
	lec, err := svc.GetLecture(ctx, id, userID)
	if err != nil {
		return Lecture{}, err
	}
	if !lec.EditableBy(userID) {
		return Lecture{}, ErrLectureNotFound
	}
	if ul.Name != "" {
		lec.Name = core.CleanString(ul.Name)
	}
	if ul.Room != nil {
		lec.Room = core.CleanString(*ul.Room)
	}
	if ul.Instructor != nil {
		lec.Instructor = core.CleanString(*ul.Instructor)
	}
	if ul.Note != nil {
		lec.Note = core.CleanString(*ul.Note)
	}
	if ul.Grade != 0 {
		lec.Grade = ul.Grade
	}
	if ul.Terms != nil {
		lec.Terms = ul.Terms
	}
	if ul.Slots != nil {
		lec.Slots = ul.Slots
	}
	// visibility flags can only be changed by the owner
	if lec.OwnerID == userID {
		if ul.IsPublic != nil {
			lec.IsPublic = *ul.IsPublic
		}
		if ul.IsPublicEditable != nil {
			lec.IsPublicEditable = *ul.IsPublicEditable
		}
	}
	lec.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateLecture(ctx, lec)
}

func (svc *Service) DeleteLecture(ctx context.Context, id string, userID int) error {
	lec, err := svc.repo.GetLectureByID(ctx, id)
	if err != nil {
		return err
	}
	if lec.OwnerID != userID {
		return ErrLectureNotFound
	}
	return svc.repo.DeleteLecture(ctx, id)
}

// Register runs the conflict check and creates the registration. A collision
// with any same-year registration sharing a term and a slot fails with
// *ConflictError carrying the colliding lecture names.
func (svc *Service) Register(ctx context.Context, userID int, nr NewRegistration) (Registration, error) {
	if err := nr.Validate(); err != nil {
		return Registration{}, err
	}
	lec, err := svc.repo.GetLectureByID(ctx, nr.LectureID)
	if err != nil {
		if err == ErrLectureNotFound {
			return Registration{}, core.NewValidationError(err,
				core.FieldError{Field: "lecture_id", Error: err.Error()})
		}
		return Registration{}, err
	}
	if !lec.VisibleTo(userID) {
		return Registration{}, core.NewValidationError(ErrLectureNotFound,
			core.FieldError{Field: "lecture_id", Error: ErrLectureNotFound.Error()})
	}

	reg := Registration{
		UserID:       userID,
		LectureID:    lec.ID,
		Year:         nr.Year,
		RegisteredAt: nowFunc().UTC(),
	}
	reg, colliding, err := svc.repo.CreateRegistrationIfNoConflict(ctx, reg, lec)
	if err != nil {
		if err == ErrRegistrationExists {
			return Registration{}, core.NewValidationError(err,
				core.FieldError{Field: "lecture_id", Error: err.Error()})
		}
		return Registration{}, err
	}
	if len(colliding) > 0 {
		return Registration{}, &ConflictError{Lectures: colliding}
	}
	return reg, nil
}

func (svc *Service) Registrations(ctx context.Context, userID, year int) ([]Registration, error) {
	return svc.repo.QueryRegistrations(ctx, userID, year)
}

func (svc *Service) GetRegistration(ctx context.Context, id, userID int) (Registration, error) {
	return svc.repo.GetRegistration(ctx, id, userID)
}

func (svc *Service) Unregister(ctx context.Context, id, userID int) error {
	return svc.repo.DeleteRegistration(ctx, id, userID)
}

// RegistrationsForSlot is the Lecture-Start Trigger's audience query.
func (svc *Service) RegistrationsForSlot(ctx context.Context, slotID, termNumber, year int) ([]Registration, error) {
	return svc.repo.QueryRegistrationsForSlot(ctx, slotID, termNumber, year)
}

// IncrementAttendance bumps the attendance count, saturating at MaxAttendance.
func (svc *Service) IncrementAttendance(ctx context.Context, id, userID int) (int, error) {
	return svc.repo.IncrementAttendance(ctx, id, userID)
}

// DecrementAttendance lowers the attendance count, saturating at 0.
func (svc *Service) DecrementAttendance(ctx context.Context, id, userID int) (int, error) {
	return svc.repo.DecrementAttendance(ctx, id, userID)
}
