package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nust-timetable/timetable-manager/backend/internal/config"
	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/export"
	"github.com/nust-timetable/timetable-manager/backend/internal/timeslot"
	"github.com/nust-timetable/timetable-manager/backend/internal/timetable"
	"github.com/nust-timetable/timetable-manager/backend/internal/timetable/timetabletest"
)

type fakeRepo struct {
	mu      sync.Mutex
	users   map[int64]*domain.User
	courses []*domain.Course
	venues  []*domain.Venue
	filters []domain.CourseFilter
}

func (f *fakeRepo) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepo) CreateUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = int64(len(f.users) + 1)
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return nil
}

func (f *fakeRepo) GetCourses(_ context.Context, filter domain.CourseFilter) ([]*domain.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.courses, nil
}

func (f *fakeRepo) GetVenues(_ context.Context) ([]*domain.Venue, error) {
	return f.venues, nil
}

type fakeMail struct {
	mu   sync.Mutex
	sent []domain.MailMessage
}

func (f *fakeMail) Publish(_ context.Context, msg domain.MailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

type testEnv struct {
	h     *Handler
	repo  *fakeRepo
	store *timetabletest.Store
	mail  *fakeMail
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.SiteURL = "https://timetable.example"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600

	hash, err := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &fakeRepo{
		users: map[int64]*domain.User{
			1: {ID: 1, StudentNumber: "221000001", FirstName: "Selma", LastName: "Nakale", Email: "selma@example.com", PasswordHash: string(hash)},
			2: {ID: 2, StudentNumber: "221000002", FirstName: "David", LastName: "Kandjii", Email: "david@example.com", PasswordHash: string(hash)},
		},
		courses: []*domain.Course{{ID: 1, Code: "PRG510S", Name: "Programming 1"}},
		venues:  []*domain.Venue{{ID: 10, Code: "LAB1", Name: "Computer Lab 1"}},
	}
	store := timetabletest.NewStore()
	mail := &fakeMail{}
	catalog := timeslot.Default()

	opts, err := export.NewOptions("UTC", "2025-07-14", 14)
	require.NoError(t, err)

	h, err := NewHandler(cfg, repo, timetable.NewService(store, catalog), catalog, export.NewExporter(catalog, opts), mail, nil)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{h: h, repo: repo, store: store, mail: mail}
}

// do sends a request as userID; 0 sends it without a cookie.
func (e *testEnv) do(t *testing.T, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, _, err := e.h.signToken(userID)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: token})
	}

	rec := httptest.NewRecorder()
	e.h.Mux.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	ScheduleID int64           `json:"schedule_id"`
	Version    int32           `json:"version"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func saveBody(name string) map[string]any {
	return map[string]any{
		"name":     name,
		"semester": 2,
		"year":     2025,
		"items": []map[string]any{
			{"course_id": 1, "day": 1, "time": "07:30", "class_type": "theory", "duration": 1},
			{"course_id": 2, "day": "Wednesday", "time": "10:30:00", "class_type": "practical", "duration": 2, "venue_id": 10},
		},
	}
}

func (e *testEnv) save(t *testing.T, userID int64, name string) envelope {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/schedules", userID, saveBody(name))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func TestSaveAndLoadSchedule(t *testing.T) {
	e := newTestEnv(t)

	first := e.save(t, 1, "Sem2")
	assert.True(t, first.Success)
	assert.Equal(t, "schedule created", first.Message)
	assert.NotZero(t, first.ScheduleID)
	assert.Equal(t, int32(1), first.Version)

	second := e.save(t, 1, "Sem2")
	assert.Equal(t, first.ScheduleID, second.ScheduleID)
	assert.Equal(t, int32(2), second.Version)
	assert.Equal(t, "schedule updated", second.Message)

	rec := e.do(t, http.MethodGet, "/schedules/"+itoa(first.ScheduleID), 1, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view domain.ScheduleView
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	assert.True(t, view.IsOwner)
	assert.Len(t, view.ShareToken, 32)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "07:30", view.Items[0].Time)
	assert.Equal(t, "10:30", view.Items[1].Time)
	assert.Equal(t, "11:30", view.Items[1].ContinuationTime)
	assert.Equal(t, "LAB1", view.Items[1].VenueCode)

	rec = e.do(t, http.MethodGet, "/schedules", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Schedule
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	assert.Len(t, list, 1)
}

func TestSaveScheduleRequiresAuth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/schedules", 0, saveBody("Sem2"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, decode(t, rec).Success)

	req := httptest.NewRequest(http.MethodGet, "/schedules", nil)
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: "garbage"})
	out := httptest.NewRecorder()
	e.h.Mux.ServeHTTP(out, req)
	assert.Equal(t, http.StatusUnauthorized, out.Code)
}

func TestSaveScheduleBadPayload(t *testing.T) {
	e := newTestEnv(t)

	cases := map[string]any{
		"not json":       "{",
		"missing name":   map[string]any{"semester": 1, "year": 2025, "items": []any{}},
		"missing items":  map[string]any{"name": "x", "semester": 1, "year": 2025},
		"bad duration":   map[string]any{"name": "x", "semester": 1, "year": 2025, "items": []map[string]any{{"course_id": 1, "day": 1, "time": "07:30", "class_type": "theory", "duration": 3}}},
		"bad class type": map[string]any{"name": "x", "semester": 1, "year": 2025, "items": []map[string]any{{"course_id": 1, "day": 1, "time": "07:30", "class_type": "practical_cont", "duration": 1}}},
		"bad day":        map[string]any{"name": "x", "semester": 1, "year": 2025, "items": []map[string]any{{"course_id": 1, "day": 6, "time": "07:30", "class_type": "theory", "duration": 1}}},
		"blank name":     map[string]any{"name": "   ", "semester": 1, "year": 2025, "items": []any{}},
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/schedules", 1, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.False(t, decode(t, rec).Success)
		})
	}
	assert.Zero(t, e.store.ScheduleCount())
}

func TestSaveScheduleRejectedPlacements(t *testing.T) {
	e := newTestEnv(t)

	body := map[string]any{
		"name": "Sem2", "semester": 2, "year": 2025,
		"items": []map[string]any{
			{"course_id": 2, "day": 3, "time": "12:30", "class_type": "practical", "duration": 2},
			{"course_id": 1, "day": 1, "time": "13:30", "class_type": "theory", "duration": 1},
		},
	}
	rec := e.do(t, http.MethodPost, "/schedules", 1, body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var data struct {
		Rejections []struct {
			Index  int    `json:"index"`
			Reason string `json:"reason"`
		} `json:"rejections"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	require.Len(t, data.Rejections, 2)
	assert.Equal(t, "InsufficientContiguousSlots", data.Rejections[0].Reason)
	assert.Equal(t, 1, data.Rejections[1].Index)
	assert.Equal(t, "LunchSlot", data.Rejections[1].Reason)

	assert.Zero(t, e.store.ScheduleCount())
}

func TestSaveScheduleFailureIsGeneric(t *testing.T) {
	e := newTestEnv(t)
	e.store.FailOn("InsertScheduleItem")

	rec := e.do(t, http.MethodPost, "/schedules", 1, saveBody("Sem2"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "failed to save schedule", env.Message)
	assert.NotContains(t, rec.Body.String(), "injected")
}

func TestSaveScheduleByIDOfAnotherUser(t *testing.T) {
	e := newTestEnv(t)
	saved := e.save(t, 1, "Sem2")

	body := saveBody("Sem2")
	body["schedule_id"] = saved.ScheduleID
	rec := e.do(t, http.MethodPost, "/schedules", 2, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteSchedule(t *testing.T) {
	e := newTestEnv(t)
	saved := e.save(t, 1, "Sem2")
	path := "/schedules/" + itoa(saved.ScheduleID)

	rec := e.do(t, http.MethodDelete, path, 2, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	s, _ := e.store.Schedule(saved.ScheduleID)
	assert.True(t, s.IsActive)

	rec = e.do(t, http.MethodDelete, path, 1, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, path, 1, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/schedules/abc", 1, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSharedSchedule(t *testing.T) {
	e := newTestEnv(t)
	saved := e.save(t, 1, "Sem2")
	s, _ := e.store.Schedule(saved.ScheduleID)
	token := *s.ShareToken

	rec := e.do(t, http.MethodGet, "/schedules/"+itoa(saved.ScheduleID), 2, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/shared/"+itoa(saved.ScheduleID)+"?token=wrong", 0, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, "/shared/"+itoa(saved.ScheduleID)+"?token="+token, 0, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view domain.ScheduleView
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	assert.False(t, view.IsOwner)
	assert.Empty(t, view.ShareToken)
	assert.Len(t, view.Items, 2)

	rec = e.do(t, http.MethodGet, "/shared/"+itoa(saved.ScheduleID)+"?token="+token, 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	assert.True(t, view.IsOwner)
}

func TestShareScheduleQueuesMail(t *testing.T) {
	e := newTestEnv(t)
	saved := e.save(t, 1, "Sem2")
	path := "/schedules/" + itoa(saved.ScheduleID) + "/share"

	rec := e.do(t, http.MethodPost, path, 1, map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, path, 2, map[string]string{"email": "friend@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, path, 1, map[string]string{"email": "friend@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, e.mail.sent, 1)
	msg := e.mail.sent[0]
	assert.Equal(t, domain.MailTypeShareSchedule, msg.Type)
	assert.Equal(t, "friend@example.com", msg.To)
	data := msg.Data.(domain.ShareScheduleMailData)
	assert.Equal(t, "Selma Nakale", data.SenderName)
	assert.True(t, strings.HasPrefix(data.Link, "https://timetable.example/shared/"+itoa(saved.ScheduleID)+"?token="))
}

func TestScheduleVersions(t *testing.T) {
	e := newTestEnv(t)
	e.save(t, 1, "Sem2")
	saved := e.save(t, 1, "Sem2")
	base := "/schedules/" + itoa(saved.ScheduleID) + "/versions"

	rec := e.do(t, http.MethodGet, base, 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var versions []domain.ScheduleVersion
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &versions))
	require.Len(t, versions, 2)
	assert.Equal(t, int32(1), versions[0].VersionNumber)
	assert.Equal(t, int32(2), versions[1].VersionNumber)

	rec = e.do(t, http.MethodGet, base+"/2", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v timetable.VersionView
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &v))
	assert.Equal(t, "Sem2", v.Snapshot.Name)
	assert.Len(t, v.Snapshot.Items, 2)

	rec = e.do(t, http.MethodGet, base+"/3", 1, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, base, 2, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportSchedule(t *testing.T) {
	e := newTestEnv(t)
	saved := e.save(t, 1, "Sem2")
	path := "/schedules/" + itoa(saved.ScheduleID) + "/export"

	rec := e.do(t, http.MethodGet, path+"?format=csv", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sem2_2025.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3)

	rec = e.do(t, http.MethodGet, path+"?format=ics", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")

	rec = e.do(t, http.MethodGet, path+"?format=pdf", 1, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, path+"?format=csv", 2, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReferenceData(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/courses?year=2&semester=1&search=prg", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, e.repo.filters, 1)
	assert.Equal(t, int32(2), *e.repo.filters[0].YearLevel)
	assert.Equal(t, int32(1), *e.repo.filters[0].Semester)
	assert.Equal(t, "prg", e.repo.filters[0].Search)

	rec = e.do(t, http.MethodGet, "/courses?year=two", 1, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/venues", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/time-slots", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []domain.TimeSlot
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &slots))
	assert.Len(t, slots, 60)
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	body := map[string]any{
		"student_number": "221234567",
		"first_name":     "Ndapewa",
		"last_name":      "Shikongo",
		"email":          "Ndapewa@Example.com",
		"password":       "Secret123",
		"year_of_study":  2,
		"program":        "Bachelor of Computer Science",
	}
	rec := e.do(t, http.MethodPost, "/auth/register", 0, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password_hash")

	require.Len(t, e.mail.sent, 1)
	assert.Equal(t, domain.MailTypeWelcome, e.mail.sent[0].Type)
	assert.Equal(t, "ndapewa@example.com", e.mail.sent[0].To)

	weak := map[string]any{}
	for k, v := range body {
		weak[k] = v
	}
	weak["password"] = "alllowercase1"
	rec = e.do(t, http.MethodPost, "/auth/register", 0, weak)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/auth/login", 0, map[string]string{"email": "ndapewa@example.com", "password": "Wrong1234"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/auth/login", 0, map[string]string{"email": "ndapewa@example.com", "password": "Secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	e.h.Mux.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	var user domain.User
	require.NoError(t, json.Unmarshal(decode(t, me).Data, &user))
	assert.Equal(t, "221234567", user.StudentNumber)
}

func TestRequestIDHeader(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/time-slots", 0, nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
