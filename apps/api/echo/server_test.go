package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hisakoh/campushub/core"
	"github.com/hisakoh/campushub/core/academics"
	"github.com/hisakoh/campushub/core/task"
	"github.com/hisakoh/campushub/core/user"
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

func testConfig() *core.Config {
	return &core.Config{
		TestMode:  true,
		AppName:   "CampusHub",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
		},
	}
}

func setup(t *testing.T) (*Server, *user.Service) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatal(err)
	}

	usrSvc := user.NewService(dummydb.NewUserRepository(db))
	acaSvc := academics.NewService(dummydb.NewAcademicsRepository(db))
	pushSvc := webpush.NewService(dummydb.NewWebpushRepository(db), dummypushsvc.NewTransport(), testLogger{})
	taskSvc := task.NewService(dummydb.NewTaskRepository(db))

	if err = acaSvc.EnsureReferenceData(context.Background()); err != nil {
		t.Fatal(err)
	}

	server := NewServer(ServerDeps{
		Conf:         testConfig(),
		Logger:       testLogger{},
		UserSvc:      usrSvc,
		AcademicsSvc: acaSvc,
		WebpushSvc:   pushSvc,
		TaskSvc:      taskSvc,
		Validate:     core.Validate,
		Translator:   core.Translator,
	})
	return server, usrSvc
}

func createTestUser(t *testing.T, svc *user.Service, uname string, admin bool) user.User {
	t.Helper()
	usr, err := svc.Create(context.Background(), user.NewUser{
		Username: uname,
		Email:    uname + "@test.test",
		Password: "s3cr3t-pwd",
		IsAdmin:  admin,
	})
	if err != nil {
		t.Fatal(err)
	}
	return usr
}

func do(t *testing.T, server *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, server *Server, uname string) string {
	t.Helper()
	rec := do(t, server, http.MethodPost, "/v1/users/login", "", map[string]string{
		"username": uname,
		"password": "s3cr3t-pwd",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Token
}

func TestServer_auth(t *testing.T) {
	server, usrSvc := setup(t)
	createTestUser(t, usrSvc, "student", false)

	// bad credentials
	rec := do(t, server, http.MethodPost, "/v1/users/login", "", map[string]string{
		"username": "student", "password": "nope",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad login status = %d, want 400", rec.Code)
	}

	// no token
	rec = do(t, server, http.MethodGet, "/v1/lectures", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthed status = %d, want 401", rec.Code)
	}

	// happy path
	token := login(t, server, "student")
	rec = do(t, server, http.MethodGet, "/v1/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"username":"student"`) {
		t.Errorf("me body = %s", rec.Body.String())
	}
}

func TestServer_registrationFlow(t *testing.T) {
	server, usrSvc := setup(t)
	createTestUser(t, usrSvc, "student", false)
	token := login(t, server, "student")

	// create two lectures on the same slot and term
	mkLecture := func(name string) string {
		rec := do(t, server, http.MethodPost, "/v1/lectures", token, map[string]interface{}{
			"name":  name,
			"terms": []int{academics.TermSpring},
			"slots": []int{1},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create lecture status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var lec academics.Lecture
		if err := json.Unmarshal(rec.Body.Bytes(), &lec); err != nil {
			t.Fatal(err)
		}
		return lec.ID
	}
	mathID := mkLecture("数学")
	physID := mkLecture("物理")

	// register the first
	rec := do(t, server, http.MethodPost, "/v1/registrations", token, map[string]interface{}{
		"lecture_id": mathID, "year": 2026,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var reg academics.Registration
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatal(err)
	}

	// the second collides
	rec = do(t, server, http.MethodPost, "/v1/registrations", token, map[string]interface{}{
		"lecture_id": physID, "year": 2026,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("conflicting register status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "数学") {
		t.Errorf("conflict body = %s, want colliding lecture name", rec.Body.String())
	}

	// attendance saturates via the API too
	attendancePath := fmt.Sprintf("/v1/registrations/%d/attendance", reg.ID)
	var last AttendanceResponse
	for i := 0; i < academics.MaxAttendance+2; i++ {
		rec = do(t, server, http.MethodPost, attendancePath, token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("attendance status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &last); err != nil {
			t.Fatal(err)
		}
	}
	if last.AttendanceCount != academics.MaxAttendance {
		t.Errorf("attendance_count = %d, want %d", last.AttendanceCount, academics.MaxAttendance)
	}
}

func TestServer_adminOnly(t *testing.T) {
	server, usrSvc := setup(t)
	createTestUser(t, usrSvc, "student", false)
	createTestUser(t, usrSvc, "admin", true)

	studentToken := login(t, server, "student")
	adminToken := login(t, server, "admin")

	body := map[string]interface{}{
		"start_date": "2026-04-06T00:00:00Z",
		"end_date":   "2026-07-31T00:00:00Z",
	}
	rec := do(t, server, http.MethodPut, "/v1/academics/terms/1", studentToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, server, http.MethodPut, "/v1/academics/terms/1", adminToken, body)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestServer_pushSubscriptions(t *testing.T) {
	server, usrSvc := setup(t)
	createTestUser(t, usrSvc, "student", false)
	token := login(t, server, "student")

	sub := map[string]interface{}{
		"endpoint": "https://push.example.com/ep-1",
		"keys":     map[string]string{"p256dh": "p", "auth": "a"},
	}
	rec := do(t, server, http.MethodPost, "/v1/push/subscriptions", token, sub)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// idempotent re-subscribe
	rec = do(t, server, http.MethodPost, "/v1/push/subscriptions", token, sub)
	assert.Equal(t, http.StatusOK, rec.Code)

	// keys never leak in responses
	assert.NotContains(t, rec.Body.String(), `"p256dh"`)

	rec = do(t, server, http.MethodPost, "/v1/push/test", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, server, http.MethodGet, "/v1/push/logs", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"sent"`)
}
