package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sibeo/internal/api/client"
	"sibeo/internal/auth"
	"sibeo/internal/common"
	"sibeo/internal/config"
	"sibeo/internal/demo"
	"sibeo/internal/models"
	"sibeo/internal/services/courses"
	"sibeo/internal/services/dashboard"
	"sibeo/internal/services/manage"
)

type fakeSession struct {
	user        *models.User
	outcome     auth.Outcome
	logins      int
	registered  []string
	logoutCalls int
	// signs the user out after this many User calls; zero never does
	expireAfter int
	userCalls   int
}

func (f *fakeSession) User() *models.User {
	f.userCalls++
	if f.expireAfter > 0 && f.userCalls > f.expireAfter {
		return nil
	}
	return f.user
}

func (f *fakeSession) Login(ctx context.Context, email, password string) auth.Outcome {
	f.logins++
	return f.outcome
}

func (f *fakeSession) Register(ctx context.Context, name, email, password string, role models.Role) auth.Outcome {
	f.registered = append(f.registered, string(role))
	return f.outcome
}

func (f *fakeSession) Logout(ctx context.Context) {
	f.logoutCalls++
	f.user = nil
}

// fakeBackend serves every service from fixed data
type fakeBackend struct {
	courses     []models.Course
	modules     map[int64][]models.Module
	enrollments []models.Enrollment
	enroll      client.Result[struct{}]
	deleted     []int64
}

func (f *fakeBackend) GetAllCourses(ctx context.Context) []models.Course { return f.courses }

func (f *fakeBackend) GetCourseDetail(ctx context.Context, id int64) *models.Course {
	for _, c := range f.courses {
		if c.ID == id {
			course := c
			return &course
		}
	}
	return nil
}

func (f *fakeBackend) GetCourseModules(ctx context.Context, courseID int64) []models.Module {
	return f.modules[courseID]
}

func (f *fakeBackend) GetCourseStudents(ctx context.Context, courseID int64) []models.User {
	return []models.User{{ID: 5, Name: "Ani Student"}}
}

func (f *fakeBackend) GetMyEnrollments(ctx context.Context) []models.Enrollment { return f.enrollments }

func (f *fakeBackend) EnrollCourse(ctx context.Context, courseID int64) client.Result[struct{}] {
	return f.enroll
}

func (f *fakeBackend) GetInstructorDashboard(ctx context.Context) *models.InstructorDashboard {
	return &models.InstructorDashboard{Courses: f.courses, Stats: models.InstructorStats{TotalEnrollments: 4}}
}

func (f *fakeBackend) GetStudentProgress(ctx context.Context) *models.StudentProgress {
	return &models.StudentProgress{Enrollments: []models.Enrollment{}}
}

func (f *fakeBackend) CreateCourse(ctx context.Context, input *client.CourseInput) client.Result[*models.Course] {
	return client.Result[*models.Course]{Success: true, Data: &models.Course{ID: 99, Title: input.Title}}
}

func (f *fakeBackend) DeleteCourse(ctx context.Context, id int64) client.Result[struct{}] {
	f.deleted = append(f.deleted, id)
	return client.Result[struct{}]{Success: true}
}

func (f *fakeBackend) UnenrollCourse(ctx context.Context, enrollmentID int64) client.Result[struct{}] {
	return client.Result[struct{}]{Success: true}
}

func (f *fakeBackend) UpdateCourse(ctx context.Context, id int64, input *client.CourseInput) client.Result[struct{}] {
	return client.Result[struct{}]{Success: true}
}

func (f *fakeBackend) CreateModule(ctx context.Context, courseID int64, input *client.ModuleInput) client.Result[*models.Module] {
	return client.Result[*models.Module]{Error: "Not course owner"}
}

func (f *fakeBackend) UpdateModule(ctx context.Context, id int64, input *client.ModuleInput) client.Result[struct{}] {
	return client.Result[struct{}]{Success: true}
}

func (f *fakeBackend) DeleteModule(ctx context.Context, id int64) client.Result[struct{}] {
	return client.Result[struct{}]{Success: true}
}

var (
	student    = &models.User{ID: 5, Name: "Ani Student", Email: "ani@example.com", Role: models.RoleStudent}
	instructor = &models.User{ID: 1, Name: "Ahmad Fauzi", Email: "ahmad@example.com", Role: models.RoleInstructor}
)

type testServer struct {
	*Server
	session *fakeSession
	backend *fakeBackend
}

func newTestServer(t *testing.T, user *models.User) *testServer {
	t.Helper()
	session := &fakeSession{user: user}
	backend := &fakeBackend{
		courses: []models.Course{{ID: 7, Title: "Go Concurrency", Description: "Goroutines", Category: "Pemrograman", InstructorID: 1}},
		modules: map[int64][]models.Module{7: {{ID: 1, CourseID: 7, Title: "Intro", Content: "hello"}}},
	}
	flash, err := NewFlashSigner("test-secret", time.Minute)
	require.NoError(t, err)

	logger := zap.NewNop()
	srv, err := NewServer(Deps{
		Session:   session,
		Forms:     auth.NewFormValidator(config.AuthConfig{InstructorCode: "292929"}),
		Courses:   courses.NewService(backend, demo.Default(), logger),
		Dashboard: dashboard.NewService(backend, logger),
		Manage:    manage.NewService(backend, logger),
		Flash:     flash,
		Logger:    logger,
	})
	require.NoError(t, err)
	return &testServer{Server: srv, session: session, backend: backend}
}

func newRequest(method, target string, form url.Values) *http.Request {
	if form == nil {
		return httptest.NewRequest(method, target, nil)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (ts *testServer) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := newRequest(method, target, form)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return ts.serve(req)
}

func (ts *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func flashCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie && c.Value != "" {
			found = c
		}
	}
	require.NotNil(t, found, "expected a flash cookie")
	return found
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get(common.RequestIDHeader))
}

func TestHealth_Unhealthy(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.health = func(ctx context.Context) error { return errors.New("bucket unreachable") }

	rec := ts.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "bucket unreachable")
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(common.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()

	ts.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(common.RequestIDHeader))
}

func TestPublicPages(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Go Concurrency")

	rec = ts.do(http.MethodGet, "/courses?q=goroutine", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Go Concurrency")

	rec = ts.do(http.MethodGet, "/courses?q=figma", nil)
	assert.Contains(t, rec.Body.String(), "Tidak ada kursus yang ditemukan")
}

func TestCoursesShowSamplesWhenAPIIsEmpty(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.backend.courses = nil

	rec := ts.do(http.MethodGet, "/courses", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Digital Marketing Mastery")
}

func TestCourseDetail(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/courses/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Masuk untuk Mendaftar")
	assert.NotContains(t, rec.Body.String(), "hello")

	rec = ts.do(http.MethodGet, "/courses/abc", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/courses/12345", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kursus tidak ditemukan")
}

func TestCourseDetail_EnrolledStudentSeesModules(t *testing.T) {
	ts := newTestServer(t, student)
	ts.backend.enrollments = []models.Enrollment{{ID: 1, CourseID: 7}}

	rec := ts.do(http.MethodGet, "/courses/7", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello")
	assert.Contains(t, rec.Body.String(), "Anda sudah terdaftar")
}

func TestProtectedPagesRedirect(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, target := range []string{"/dashboard", "/my-courses", "/dashboard/courses/7"} {
		rec := ts.do(http.MethodGet, target, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, target)
		assert.Equal(t, "/login", rec.Header().Get("Location"), target)
	}

	rec := ts.do(http.MethodPost, "/courses/7/enroll", url.Values{})
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestCourseManagerRequiresInstructor(t *testing.T) {
	ts := newTestServer(t, student)

	rec := ts.do(http.MethodGet, "/dashboard/courses/7", nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestLogin(t *testing.T) {
	t.Run("incomplete form", func(t *testing.T) {
		ts := newTestServer(t, nil)
		rec := ts.do(http.MethodPost, "/login", url.Values{"email": {"a@b.c"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Mohon isi email dan password")
		assert.Zero(t, ts.session.logins)
	})

	t.Run("rejected", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.session.outcome = auth.Outcome{Error: auth.MsgInvalidCredentials}
		rec := ts.do(http.MethodPost, "/login", url.Values{"email": {"a@b.c"}, "password": {"x"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Login Gagal")
	})

	t.Run("accepted", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.session.outcome = auth.Outcome{Success: true}
		rec := ts.do(http.MethodPost, "/login", url.Values{"email": {"a@b.c"}, "password": {"x"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})

	t.Run("already signed in", func(t *testing.T) {
		ts := newTestServer(t, student)
		rec := ts.do(http.MethodGet, "/login", nil)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})
}

func TestRegister(t *testing.T) {
	form := url.Values{
		"name":             {"Ani"},
		"email":            {"ani@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
		"role":             {"instructor"},
	}

	ts := newTestServer(t, nil)
	rec := ts.do(http.MethodPost, "/register", form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kode Verifikasi Diperlukan")
	assert.Empty(t, ts.session.registered)

	form.Set("instructor_code", "292929")
	ts.session.outcome = auth.Outcome{Success: true}
	rec = ts.do(http.MethodPost, "/register", form)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"instructor"}, ts.session.registered)

	ts.session.outcome = auth.Outcome{Error: auth.MsgEmailTaken}
	rec = ts.do(http.MethodPost, "/register", form)
	assert.Contains(t, rec.Body.String(), "Email Sudah Terdaftar")
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, student)

	rec := ts.do(http.MethodPost, "/logout", url.Values{})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, 1, ts.session.logoutCalls)
}

func TestEnrollFailureIsFlashed(t *testing.T) {
	ts := newTestServer(t, student)
	ts.backend.enroll = client.Result[struct{}]{Error: "Kursus sudah penuh"}

	rec := ts.do(http.MethodPost, "/courses/7/enroll", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/courses/7", rec.Header().Get("Location"))

	rec = ts.do(http.MethodGet, "/courses/7", nil, flashCookieFrom(t, rec))
	assert.Contains(t, rec.Body.String(), "Kursus sudah penuh")
}

func TestTamperedFlashIsIgnored(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/courses", nil, &http.Cookie{Name: flashCookie, Value: "not-a-token"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `role="alert"`)
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t, instructor)

	rec := ts.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Selamat datang, Ahmad Fauzi! (Instruktur)")
	assert.Contains(t, rec.Body.String(), "Go Concurrency")

	rec = ts.do(http.MethodPost, "/dashboard/courses", url.Values{"title": {"Rust"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = ts.do(http.MethodGet, "/dashboard", nil, flashCookieFrom(t, rec))
	assert.Contains(t, rec.Body.String(), "Judul dan deskripsi wajib diisi")

	rec = ts.do(http.MethodPost, "/dashboard/courses/7/delete", url.Values{})
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, []int64{7}, ts.backend.deleted)
}

func TestMyCourses(t *testing.T) {
	ts := newTestServer(t, instructor)
	rec := ts.do(http.MethodGet, "/my-courses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Halaman ini hanya untuk siswa")

	ts = newTestServer(t, student)
	ts.backend.enrollments = []models.Enrollment{{EnrollmentID: 3, Course: &models.Course{ID: 7, Title: "Go Concurrency"}}}
	rec = ts.do(http.MethodGet, "/my-courses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/my-courses/3/unenroll")

	rec = ts.do(http.MethodPost, "/my-courses/3/unenroll", url.Values{})
	assert.Equal(t, "/my-courses", rec.Header().Get("Location"))
}

func TestManageCourse(t *testing.T) {
	ts := newTestServer(t, instructor)

	rec := ts.do(http.MethodGet, "/dashboard/courses/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ani Student")
	assert.Contains(t, rec.Body.String(), "Intro")

	rec = ts.do(http.MethodPost, "/dashboard/courses/7", url.Values{"title": {"Go 2"}, "description": {"More"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = ts.do(http.MethodGet, "/dashboard/courses/7", nil, flashCookieFrom(t, rec))
	assert.Contains(t, rec.Body.String(), "Perubahan berhasil disimpan")

	rec = ts.do(http.MethodPost, "/dashboard/courses/7/modules", url.Values{"title": {"New"}, "content": {"Body"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/courses/7", rec.Header().Get("Location"))
	rec = ts.do(http.MethodGet, "/dashboard/courses/7", nil, flashCookieFrom(t, rec))
	assert.Contains(t, rec.Body.String(), "Not course owner")

	rec = ts.do(http.MethodGet, "/dashboard/courses/404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFlashSigner(t *testing.T) {
	signer, err := NewFlashSigner("secret", time.Minute)
	require.NoError(t, err)

	token, err := signer.Sign(auth.Popup{Title: "T", Message: "M", Kind: auth.PopupInfo})
	require.NoError(t, err)

	popup, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "M", popup.Message)

	other, err := NewFlashSigner("other", time.Minute)
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(Deps{})
	assert.Error(t, err)
}

func TestCrossSiteWritesRejected(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"foreign origin", map[string]string{"Origin": "https://evil.example"}},
		{"cross-site fetch", map[string]string{"Sec-Fetch-Site": "cross-site", "Origin": "https://evil.example"}},
		{"same-site fetch", map[string]string{"Sec-Fetch-Site": "same-site"}},
		{"opaque origin", map[string]string{"Origin": "null"}},
		{"foreign referer", map[string]string{"Referer": "https://evil.example/page"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, instructor)
			req := newRequest(http.MethodPost, "/dashboard/courses/7/delete", url.Values{})
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rec := ts.serve(req)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Empty(t, ts.backend.deleted)
		})
	}
}

func TestSameOriginWritesAllowed(t *testing.T) {
	ts := newTestServer(t, instructor)
	req := newRequest(http.MethodPost, "/dashboard/courses/7/delete", url.Values{})
	req.Header.Set("Origin", "http://"+req.Host)
	req.Header.Set("Sec-Fetch-Site", "same-origin")

	rec := ts.serve(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []int64{7}, ts.backend.deleted)
}

func TestLogoutRequiresPost(t *testing.T) {
	ts := newTestServer(t, student)

	rec := ts.do(http.MethodGet, "/logout", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, ts.session.logoutCalls)

	req := newRequest(http.MethodPost, "/logout", url.Values{})
	req.Header.Set("Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, ts.serve(req).Code)
	assert.Equal(t, 0, ts.session.logoutCalls)
}

func TestSessionEndingMidRequest(t *testing.T) {
	ts := newTestServer(t, instructor)
	ts.session.expireAfter = 1

	rec := ts.do(http.MethodPost, "/dashboard/courses", url.Values{
		"title":       {"Go Testing"},
		"description": {"Table tests"},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestMalformedFormIsLogged(t *testing.T) {
	ts := newTestServer(t, nil)
	core, logs := observer.New(zapcore.DebugLevel)
	ts.Server.logger = zap.New(core)

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader("name=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := ts.serve(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("Form binding failed").Len())
	assert.Empty(t, ts.session.registered)
}
