package academics_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/hisakoh/campushub/core"
	"github.com/hisakoh/campushub/core/academics"
	dummydb "github.com/hisakoh/campushub/storage/database/dummy"
)

func TestMain(m *testing.M) {
	core.InitValidators()
	os.Exit(m.Run())
}

func setup(t *testing.T) (*academics.Service, academics.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatal(err)
	}
	repo := dummydb.NewAcademicsRepository(db)
	svc := academics.NewService(repo)
	if err = svc.EnsureReferenceData(context.Background()); err != nil {
		t.Fatal(err)
	}
	return svc, repo
}

func createLecture(t *testing.T, svc *academics.Service, name string, terms, slots []int) academics.Lecture {
	t.Helper()
	lec, err := svc.CreateLecture(context.Background(), 1, academics.NewLecture{
		Name:  name,
		Terms: terms,
		Slots: slots,
	})
	if err != nil {
		t.Fatalf("CreateLecture(%q) error = %v", name, err)
	}
	return lec
}

func TestService_EnsureReferenceData(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	// re-running must not duplicate
	if err := svc.EnsureReferenceData(ctx); err != nil {
		t.Fatal(err)
	}

	terms, err := svc.Terms(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(terms) != academics.TermCount {
		t.Errorf("len(terms) = %d, want %d", len(terms), academics.TermCount)
	}

	slots, err := svc.Slots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 35 {
		t.Errorf("len(slots) = %d, want 35", len(slots))
	}
}

func TestService_CurrentTerm(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	// no term has dates yet
	if _, _, err := svc.CurrentTerm(ctx, time.Now()); err != academics.ErrNoCurrentTerm {
		t.Fatalf("CurrentTerm() error = %v, want %v", err, academics.ErrNoCurrentTerm)
	}

	_, err := svc.SetTermDates(ctx, academics.TermWinter,
		null.TimeFrom(time.Date(2027, time.January, 6, 0, 0, 0, 0, time.UTC)),
		null.TimeFrom(time.Date(2027, time.March, 20, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatal(err)
	}

	term, year, err := svc.CurrentTerm(ctx, time.Date(2027, time.February, 10, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if term.Number != academics.TermWinter {
		t.Errorf("term.Number = %d, want %d", term.Number, academics.TermWinter)
	}
	// winter ends in March: previous fiscal year
	if year != 2026 {
		t.Errorf("year = %d, want 2026", year)
	}

	if _, _, err = svc.CurrentTerm(ctx, time.Date(2027, time.May, 1, 0, 0, 0, 0, time.UTC)); err != academics.ErrNoCurrentTerm {
		t.Errorf("CurrentTerm() error = %v, want %v", err, academics.ErrNoCurrentTerm)
	}
}

func TestService_SetTermDates(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.SetTermDates(ctx, 9, null.Time{}, null.Time{}); err == nil {
		t.Error("SetTermDates(9) error = nil, want validation error")
	}

	start := null.TimeFrom(time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC))
	end := null.TimeFrom(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC))
	if _, err := svc.SetTermDates(ctx, academics.TermSpring, start, end); err == nil {
		t.Error("SetTermDates(end < start) error = nil, want validation error")
	}
}

func TestService_Register_conflicts(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	mathID, _ := academics.SlotID(academics.DayMonday, academics.PeriodFirst)
	physID, _ := academics.SlotID(academics.DayTuesday, academics.PeriodThird)

	math := createLecture(t, svc, "数学", []int{academics.TermSpring}, []int{mathID})
	sameSlot := createLecture(t, svc, "物理", []int{academics.TermSpring}, []int{mathID})
	termOnly := createLecture(t, svc, "化学", []int{academics.TermSpring}, []int{physID})
	slotOnly := createLecture(t, svc, "英語", []int{academics.TermFall}, []int{mathID})

	if _, err := svc.Register(ctx, 1, academics.NewRegistration{LectureID: math.ID, Year: 2026}); err != nil {
		t.Fatalf("registering math: %v", err)
	}

	// same term + same slot collides
	_, err := svc.Register(ctx, 1, academics.NewRegistration{LectureID: sameSlot.ID, Year: 2026})
	cErr, ok := err.(*academics.ConflictError)
	if !ok {
		t.Fatalf("Register() error = %v, want *ConflictError", err)
	}
	if len(cErr.Lectures) != 1 || cErr.Lectures[0] != "数学" {
		t.Errorf("ConflictError.Lectures = %v, want [数学]", cErr.Lectures)
	}

	// same lecture+year is a duplicate, not a conflict
	if _, err = svc.Register(ctx, 1, academics.NewRegistration{LectureID: math.ID, Year: 2026}); err == nil {
		t.Error("duplicate Register() error = nil, want validation error")
	} else if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("duplicate Register() error = %T, want *core.ValidationError", err)
	}

	// different year does not collide
	if _, err = svc.Register(ctx, 1, academics.NewRegistration{LectureID: sameSlot.ID, Year: 2027}); err != nil {
		t.Errorf("next-year Register() error = %v", err)
	}

	// shared term only / shared slot only do not collide
	if _, err = svc.Register(ctx, 1, academics.NewRegistration{LectureID: termOnly.ID, Year: 2026}); err != nil {
		t.Errorf("term-only Register() error = %v", err)
	}
	if _, err = svc.Register(ctx, 1, academics.NewRegistration{LectureID: slotOnly.ID, Year: 2026}); err != nil {
		t.Errorf("slot-only Register() error = %v", err)
	}

	// another user is unaffected
	if _, err = svc.Register(ctx, 2, academics.NewRegistration{LectureID: sameSlot.ID, Year: 2026}); err != nil {
		t.Errorf("other-user Register() error = %v", err)
	}
}

func TestService_Register_privateLecture(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	private := false
	lec, err := svc.CreateLecture(ctx, 1, academics.NewLecture{
		Name:     "秘密のゼミ",
		Terms:    []int{academics.TermSpring},
		Slots:    []int{1},
		IsPublic: &private,
	})
	if err != nil {
		t.Fatal(err)
	}

	// owner can register
	if _, err = svc.Register(ctx, 1, academics.NewRegistration{LectureID: lec.ID, Year: 2026}); err != nil {
		t.Errorf("owner Register() error = %v", err)
	}
	// others cannot see it
	if _, err = svc.Register(ctx, 2, academics.NewRegistration{LectureID: lec.ID, Year: 2026}); err == nil {
		t.Error("non-owner Register() error = nil, want validation error")
	}
}

func TestService_Attendance_saturates(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	lec := createLecture(t, svc, "数学", []int{academics.TermSpring}, []int{1})
	reg, err := svc.Register(ctx, 1, academics.NewRegistration{LectureID: lec.ID, Year: 2026})
	if err != nil {
		t.Fatal(err)
	}

	// decrement at zero stays at zero
	for i := 0; i < 3; i++ {
		count, err := svc.DecrementAttendance(ctx, reg.ID, 1)
		if err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Fatalf("DecrementAttendance() = %d, want 0", count)
		}
	}

	// increments past the cap stay at the cap
	var count int
	for i := 0; i < academics.MaxAttendance+5; i++ {
		if count, err = svc.IncrementAttendance(ctx, reg.ID, 1); err != nil {
			t.Fatal(err)
		}
	}
	if count != academics.MaxAttendance {
		t.Errorf("IncrementAttendance() = %d, want %d", count, academics.MaxAttendance)
	}

	count, err = svc.DecrementAttendance(ctx, reg.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if count != academics.MaxAttendance-1 {
		t.Errorf("DecrementAttendance() = %d, want %d", count, academics.MaxAttendance-1)
	}

	// other users cannot touch it
	if _, err = svc.IncrementAttendance(ctx, reg.ID, 2); err != academics.ErrRegistrationNotFound {
		t.Errorf("IncrementAttendance(other user) error = %v, want %v", err, academics.ErrRegistrationNotFound)
	}
}

func TestService_RegistrationsForSlot(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	slotID, _ := academics.SlotID(academics.DayMonday, academics.PeriodFirst)
	otherSlotID, _ := academics.SlotID(academics.DayMonday, academics.PeriodSecond)

	match := createLecture(t, svc, "数学", []int{academics.TermSpring}, []int{slotID})
	otherSlot := createLecture(t, svc, "物理", []int{academics.TermSpring}, []int{otherSlotID})
	otherTerm := createLecture(t, svc, "化学", []int{academics.TermFall}, []int{slotID})

	for usrID, lec := range map[int]academics.Lecture{1: match, 2: otherSlot, 3: otherTerm} {
		if _, err := svc.Register(ctx, usrID, academics.NewRegistration{LectureID: lec.ID, Year: 2026}); err != nil {
			t.Fatal(err)
		}
	}
	// same lecture+slot but wrong year
	if _, err := svc.Register(ctx, 4, academics.NewRegistration{LectureID: match.ID, Year: 2027}); err != nil {
		t.Fatal(err)
	}

	regs, err := svc.RegistrationsForSlot(ctx, slotID, academics.TermSpring, 2026)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 1 {
		t.Fatalf("len(regs) = %d, want 1", len(regs))
	}
	if regs[0].Lecture == nil || regs[0].Lecture.Name != "数学" {
		t.Errorf("regs[0].Lecture = %+v, want 数学", regs[0].Lecture)
	}
}
