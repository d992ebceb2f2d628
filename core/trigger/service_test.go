package trigger_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/hisakoh/campushub/core"
	"github.com/hisakoh/campushub/core/academics"
	"github.com/hisakoh/campushub/core/task"
	"github.com/hisakoh/campushub/core/trigger"
	"github.com/hisakoh/campushub/core/webpush"
	dummypushsvc "github.com/hisakoh/campushub/services/push/dummy"
	dummydb "github.com/hisakoh/campushub/storage/database/dummy"
)

func TestMain(m *testing.M) {
	core.InitValidators()
	os.Exit(m.Run())
}

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type fixture struct {
	svc       *trigger.Service
	acaSvc    *academics.Service
	taskSvc   *task.Service
	pushSvc   *webpush.Service
	transport *dummypushsvc.Transport
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatal(err)
	}

	acaSvc := academics.NewService(dummydb.NewAcademicsRepository(db))
	taskSvc := task.NewService(dummydb.NewTaskRepository(db))
	transport := dummypushsvc.NewTransport()
	pushSvc := webpush.NewService(dummydb.NewWebpushRepository(db), transport, testLogger{})

	ctx := context.Background()
	if err = acaSvc.EnsureReferenceData(ctx); err != nil {
		t.Fatal(err)
	}
	// spring term: 2026-04-06 .. 2026-07-31 -> fiscal year 2026
	if _, err = acaSvc.SetTermDates(ctx, academics.TermSpring,
		null.TimeFrom(time.Date(2026, time.April, 6, 0, 0, 0, 0, time.UTC)),
		null.TimeFrom(time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		svc:       trigger.NewService(acaSvc, taskSvc, pushSvc, testLogger{}, time.UTC),
		acaSvc:    acaSvc,
		taskSvc:   taskSvc,
		pushSvc:   pushSvc,
		transport: transport,
	}
}

func (f *fixture) registerStudent(t *testing.T, userID int, lectureName, room string, day, period int) {
	t.Helper()
	ctx := context.Background()

	slotID, err := academics.SlotID(day, period)
	if err != nil {
		t.Fatal(err)
	}
	lec, err := f.acaSvc.CreateLecture(ctx, userID, academics.NewLecture{
		Name:  lectureName,
		Room:  room,
		Terms: []int{academics.TermSpring},
		Slots: []int{slotID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err = f.acaSvc.Register(ctx, userID, academics.NewRegistration{LectureID: lec.ID, Year: 2026}); err != nil {
		t.Fatal(err)
	}

	_, _, err = f.pushSvc.Subscribe(ctx, userID, webpush.NewSubscription{
		Endpoint: "https://push.example.com/user-" + lectureName,
		Keys:     webpush.SubscriptionKeys{P256dh: "p", Auth: "a"},
	})
	if err != nil {
		t.Fatal(err)
	}
}

// 2026-04-20 is a Monday inside the spring term.
var mondayMorning = time.Date(2026, time.April, 20, 9, 0, 0, 0, time.UTC)

func TestService_NotifyLectureStart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.registerStudent(t, 1, "数学", "A101", academics.DayMonday, academics.PeriodFirst)
	f.registerStudent(t, 2, "物理", "", academics.DayMonday, academics.PeriodFirst)
	f.registerStudent(t, 3, "化学", "B202", academics.DayTuesday, academics.PeriodFirst)

	if err := f.svc.NotifyLectureStart(ctx, mondayMorning, academics.PeriodFirst); err != nil {
		t.Fatal(err)
	}

	sent := f.transport.Sent()
	if len(sent) != 2 {
		t.Fatalf("len(sent) = %d, want 2", len(sent))
	}
	bodies := make(map[string]core.PushMessage, len(sent))
	for _, s := range sent {
		bodies[s.Message.Body] = s.Message
	}

	want := "数学（09:00〜10:30）が A101 で始まります"
	msg, ok := bodies[want]
	if !ok {
		t.Fatalf("missing notification %q; got %v", want, bodies)
	}
	if msg.Title != "出席を登録しよう！" {
		t.Errorf("Title = %q", msg.Title)
	}
	if msg.URL != "/timetable/2026/1/1" {
		t.Errorf("URL = %q, want /timetable/2026/1/1", msg.URL)
	}
	if msg.Type != string(webpush.CategoryLecture) {
		t.Errorf("Type = %q, want %q", msg.Type, webpush.CategoryLecture)
	}

	// an unset room falls back to a placeholder
	if _, ok = bodies["物理（09:00〜10:30）が 未設定 で始まります"]; !ok {
		t.Errorf("missing placeholder-room notification; got %v", bodies)
	}
}

func TestService_NotifyLectureStart_weekend(t *testing.T) {
	f := setup(t)

	// students registered to weekend slots exist, but Saturday never fires
	f.registerStudent(t, 1, "数学", "A101", academics.DaySaturday, academics.PeriodFirst)

	saturday := time.Date(2026, time.April, 25, 9, 0, 0, 0, time.UTC)
	if err := f.svc.NotifyLectureStart(context.Background(), saturday, academics.PeriodFirst); err != nil {
		t.Fatal(err)
	}
	if sent := f.transport.Sent(); len(sent) != 0 {
		t.Errorf("len(sent) = %d, want 0", len(sent))
	}
}

func TestService_NotifyLectureStart_noCurrentTerm(t *testing.T) {
	f := setup(t)

	f.registerStudent(t, 1, "数学", "A101", academics.DayMonday, academics.PeriodFirst)

	// a Monday outside every term: quiet no-op
	offSeason := time.Date(2026, time.August, 17, 9, 0, 0, 0, time.UTC)
	if err := f.svc.NotifyLectureStart(context.Background(), offSeason, academics.PeriodFirst); err != nil {
		t.Fatal(err)
	}
	if sent := f.transport.Sent(); len(sent) != 0 {
		t.Errorf("len(sent) = %d, want 0", len(sent))
	}
}

func TestService_NotifyLectureStart_invalidPeriod(t *testing.T) {
	f := setup(t)
	if err := f.svc.NotifyLectureStart(context.Background(), mondayMorning, 9); err == nil {
		t.Error("NotifyLectureStart(period 9) error = nil, want validation error")
	}
}

func TestService_RemindDueTasks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.pushSvc.Subscribe(ctx, 1, webpush.NewSubscription{
		Endpoint: "https://push.example.com/user-1",
		Keys:     webpush.SubscriptionKeys{P256dh: "p", Auth: "a"},
	})
	if err != nil {
		t.Fatal(err)
	}

	now := mondayMorning
	mk := func(title string, due time.Time, status string) {
		t.Helper()
		created, err := f.taskSvc.Create(ctx, 1, task.NewTask{Title: title, DueDate: null.TimeFrom(due)})
		if err != nil {
			t.Fatal(err)
		}
		if status != task.StatusOpen {
			if _, err = f.taskSvc.Update(ctx, created.ID, 1, task.UpdateTask{Status: status}); err != nil {
				t.Fatal(err)
			}
		}
	}
	mk("レポート提出", now.Add(6*time.Hour), task.StatusOpen)
	mk("来週の課題", now.Add(48*time.Hour), task.StatusOpen)
	mk("終わった課題", now.Add(6*time.Hour), task.StatusDone)

	if err = f.svc.RemindDueTasks(ctx, now); err != nil {
		t.Fatal(err)
	}

	sent := f.transport.Sent()
	if len(sent) != 1 {
		t.Fatalf("len(sent) = %d, want 1", len(sent))
	}
	if !strings.Contains(sent[0].Message.Body, "レポート提出") {
		t.Errorf("Body = %q, want it to mention レポート提出", sent[0].Message.Body)
	}
	if sent[0].Message.Type != string(webpush.CategoryTask) {
		t.Errorf("Type = %q, want %q", sent[0].Message.Type, webpush.CategoryTask)
	}
}
