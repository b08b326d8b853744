package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/infra/memory"
	"lms-progress-service/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router      *gin.Engine
	store       *memory.Store
	enrollments *app.EnrollmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Nop()
	store := memory.NewStore()
	seed := []error{
		store.PutCourse(domain.Course{ID: "c1", TeacherID: "t1", Title: "Go Basics", Status: domain.CoursePublished}),
		store.PutCourse(domain.Course{ID: "draft", TeacherID: "t1", Status: domain.CourseDraft}),
		store.PutStudent(domain.Student{ID: "s1", FullName: "Ada Lovelace", Status: domain.StudentActive}),
		store.PutStudent(domain.Student{ID: "s2", FullName: "Alan Turing", Status: domain.StudentActive}),
		store.PutSection(domain.Section{ID: "A", CourseID: "c1", PositionOrder: 1}),
		store.PutLesson(domain.Lesson{ID: "a1", SectionID: "A", PositionOrder: 1}),
		store.PutLesson(domain.Lesson{ID: "a2", SectionID: "A", PositionOrder: 2}),
		store.PutLesson(domain.Lesson{ID: "a3", SectionID: "A", PositionOrder: 3}),
		store.PutLesson(domain.Lesson{ID: "a4", SectionID: "A", PositionOrder: 4}),
		store.PutQuiz(domain.Quiz{
			ID: "quiz-1", CourseID: "c1", PassingMarks: 1,
			Questions: []domain.Question{
				{ID: "q1", Options: []domain.Option{{ID: "o1"}, {ID: "o2", Correct: true}}},
			},
		}),
		store.PutAssignment(domain.Assignment{ID: "as1", CourseID: "c1", MaxMarks: 10}),
	}
	for _, err := range seed {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	agg := app.NewAggregator(log)
	ledger := app.NewLedger(store, log)
	enrollments := app.NewEnrollmentService(store, agg, ledger, memory.NewFeedStore(), log)
	coursework := app.NewCourseworkService(store, memory.NewQuizRepository(store, time.Minute), ledger, enrollments, log)

	router := NewRouter(RouterConfig{
		Log:               log,
		EnrollmentHandler: NewEnrollmentHandler(log, enrollments),
		CourseworkHandler: NewCourseworkHandler(log, coursework),
		ActivityHandler:   NewActivityHandler(log, ledger),
		WSHandler:         NewWSHandler(log, enrollments),
	})
	return &testEnv{router: router, store: store, enrollments: enrollments}
}

func (e *testEnv) do(t *testing.T, method, path string, actor *domain.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(HeaderUserID, actor.ID)
		req.Header.Set(HeaderUserRole, string(actor.Role))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

var (
	ada   = &domain.Actor{ID: "s1", Role: domain.RoleStudent}
	alan  = &domain.Actor{ID: "s2", Role: domain.RoleStudent}
	owner = &domain.Actor{ID: "t1", Role: domain.RoleInstructor}
	root  = &domain.Actor{ID: "root", Role: domain.RoleAdmin}
)

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestIdentityIsRequired(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/enrollments", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := decode[ErrorEnvelope](t, rec); got.Error.Code != "unauthorized" {
		t.Fatalf("unexpected envelope %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/enrollments", &domain.Actor{ID: "s1", Role: "guest"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected unknown role rejected, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/progress/instructor/analytics", ada, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected student kept out of instructor routes, got %d", rec.Code)
	}
}

func TestEnrollStatusCodes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/enrollments/courses/c1", ada, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[struct {
		EnrollmentID string            `json:"enrollmentId"`
		Enrollment   domain.Enrollment `json:"enrollment"`
	}](t, rec)
	if created.EnrollmentID == "" || created.Enrollment.Status != domain.EnrollmentActive {
		t.Fatalf("unexpected body %+v", created)
	}

	cases := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"duplicate", "/enrollments/courses/c1", http.StatusConflict, domain.ErrAlreadyEnrolled.Code},
		{"draft", "/enrollments/courses/draft", http.StatusBadRequest, domain.ErrCourseNotPublished.Code},
		{"missing", "/enrollments/courses/nope", http.StatusNotFound, domain.ErrCourseNotFound.Code},
	}
	for _, c := range cases {
		rec := env.do(t, http.MethodPost, c.path, ada, nil)
		if rec.Code != c.status {
			t.Fatalf("%s: expected %d, got %d", c.name, c.status, rec.Code)
		}
		if got := decode[ErrorEnvelope](t, rec); got.Error.Code != c.code {
			t.Fatalf("%s: expected code %s, got %+v", c.name, c.code, got)
		}
	}
}

func TestLessonProgressFlow(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPut, "/lessons/a1/progress", ada, map[string]any{"completed": true})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected not enrolled, got %d", rec.Code)
	}

	e, err := env.enrollments.Enroll(context.Background(), "s1", "c1")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}

	rec = env.do(t, http.MethodPut, "/lessons/a1/progress", ada, map[string]any{"completed": true, "timeSpent": 30})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[struct {
		OK         bool                  `json:"ok"`
		Progress   domain.LessonProgress `json:"progress"`
		Enrollment domain.Enrollment     `json:"enrollment"`
	}](t, rec)
	if !body.OK || !body.Progress.Completed || body.Enrollment.ProgressPercentage != 25 {
		t.Fatalf("unexpected body %+v", body)
	}

	rec = env.do(t, http.MethodPut, "/lessons/a2/progress", ada, map[string]any{"timeSpent": -1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected negative time rejected, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/enrollments/"+e.ID+"/progress", ada, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: %d", rec.Code)
	}
	progress := decode[domain.EnrollmentProgress](t, rec)
	if progress.Percentage != 25 || progress.CompletedLessons != 1 || len(progress.Sections) != 1 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	if rec := env.do(t, http.MethodGet, "/enrollments/"+e.ID+"/progress", alan, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected other student rejected, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/enrollments/"+e.ID+"/progress", root, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected admin allowed, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/enrollments/"+e.ID+"/certificate", owner, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected certificate refused before completion, got %d", rec.Code)
	}
}

func TestCertificateAfterCompletion(t *testing.T) {
	env := newTestEnv(t)
	e, err := env.enrollments.Enroll(context.Background(), "s1", "c1")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	for _, lesson := range []string{"a1", "a2", "a3", "a4"} {
		if rec := env.do(t, http.MethodPut, "/lessons/"+lesson+"/progress", ada, map[string]any{"completed": true}); rec.Code != http.StatusOK {
			t.Fatalf("complete %s: %d", lesson, rec.Code)
		}
	}

	type certBody struct {
		CertificateID string             `json:"certificateId"`
		Certificate   domain.Certificate `json:"certificate"`
	}
	first := decode[certBody](t, env.do(t, http.MethodPost, "/enrollments/"+e.ID+"/certificate", owner, nil))
	second := decode[certBody](t, env.do(t, http.MethodPost, "/enrollments/"+e.ID+"/certificate", owner, nil))
	if first.CertificateID == "" || first.CertificateID != second.CertificateID {
		t.Fatalf("expected one certificate, got %q and %q", first.CertificateID, second.CertificateID)
	}

	rec := env.do(t, http.MethodGet, "/progress/instructor/courses/c1", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("roster: %d", rec.Code)
	}
	roster := decode[domain.CourseRoster](t, rec)
	if roster.Stats.CertificatesIssued != 1 || len(roster.Enrollments) != 1 || roster.Enrollments[0].Progress != 100 {
		t.Fatalf("unexpected roster %+v", roster)
	}
}

func TestCourseworkRoutes(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.enrollments.Enroll(context.Background(), "s1", "c1"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/quizzes/quiz-1/attempts", ada, map[string]any{"answers": map[string]string{"q1": "o2"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("attempt: %d %s", rec.Code, rec.Body.String())
	}
	if res := decode[domain.QuizResult](t, rec); !res.Attempt.Passed || res.Correct != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	rec = env.do(t, http.MethodPost, "/quizzes/quiz-1/attempts", ada, map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected missing answers rejected, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/assignments/as1/submissions", ada, map[string]any{"text": "essay"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	sub := decode[domain.AssignmentSubmission](t, rec)

	rec = env.do(t, http.MethodPut, "/submissions/"+sub.ID+"/grade", owner, map[string]any{"marksObtained": 12})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected marks above max rejected, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPut, "/submissions/"+sub.ID+"/grade", owner, map[string]any{"marksObtained": 9, "feedback": "good"})
	if rec.Code != http.StatusOK {
		t.Fatalf("grade: %d %s", rec.Code, rec.Body.String())
	}

	if rec := env.do(t, http.MethodGet, "/assignments/as1/submissions", owner, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected studentId required for instructors, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/assignments/as1/submissions?studentId=s1", owner, nil)
	list := decode[struct {
		Submissions []domain.AssignmentSubmission `json:"submissions"`
	}](t, rec)
	if len(list.Submissions) != 1 || *list.Submissions[0].MarksObtained != 9 {
		t.Fatalf("unexpected submissions %+v", list)
	}
}

func TestActivityRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/activities", ada, map[string]any{"activityType": "Login"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("append: %d %s", rec.Code, rec.Body.String())
	}
	entry := decode[domain.ActivityLogEntry](t, rec)

	if rec := env.do(t, http.MethodPost, "/activities", ada, map[string]any{"activityType": "Teleport"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown type rejected, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/activities?limit=x", ada, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad limit rejected, got %d", rec.Code)
	}

	sum := decode[domain.ActivitySummary](t, env.do(t, http.MethodGet, "/activities/summary", ada, nil))
	if sum.TotalActivities != 1 || sum.ByType[domain.ActivityLogin] != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	streak := decode[domain.Streak](t, env.do(t, http.MethodGet, "/activities/streak", ada, nil))
	if streak.CurrentStreak != 1 {
		t.Fatalf("unexpected streak %+v", streak)
	}

	if rec := env.do(t, http.MethodDelete, "/activities/"+entry.ID, ada, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected student delete rejected, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/activities/"+entry.ID, root, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin delete: %d", rec.Code)
	}
}

func TestCertificateListRoute(t *testing.T) {
	env := newTestEnv(t)
	e, err := env.enrollments.Enroll(context.Background(), "s1", "c1")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	for _, lesson := range []string{"a1", "a2", "a3", "a4"} {
		if rec := env.do(t, http.MethodPut, "/lessons/"+lesson+"/progress", ada, map[string]any{"completed": true}); rec.Code != http.StatusOK {
			t.Fatalf("complete %s: %d", lesson, rec.Code)
		}
	}
	if rec := env.do(t, http.MethodPost, "/enrollments/"+e.ID+"/certificate", owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("issue: %d %s", rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/certificates", ada, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	body := decode[struct {
		Certificates []domain.StudentCertificate `json:"certificates"`
	}](t, rec)
	if len(body.Certificates) != 1 || body.Certificates[0].CourseTitle != "Go Basics" || body.Certificates[0].EnrollmentID != e.ID {
		t.Fatalf("unexpected certificates %+v", body)
	}

	if rec := env.do(t, http.MethodGet, "/certificates", owner, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected instructors rejected, got %d", rec.Code)
	}
}

func TestInstructorReportRoutes(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []string{"s1", "s2"} {
		if _, err := env.enrollments.Enroll(context.Background(), id, "c1"); err != nil {
			t.Fatalf("enroll %s: %v", id, err)
		}
	}
	rec := env.do(t, http.MethodPost, "/assignments/as1/submissions", ada, map[string]any{"text": "essay"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	sub := decode[domain.AssignmentSubmission](t, rec)
	if rec := env.do(t, http.MethodPost, "/assignments/as1/submissions", alan, map[string]any{"text": "draft"}); rec.Code != http.StatusCreated {
		t.Fatalf("submit s2: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/submissions/"+sub.ID+"/grade", owner, map[string]any{"marksObtained": 7}); rec.Code != http.StatusOK {
		t.Fatalf("grade: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPut, "/lessons/a1/progress", ada, map[string]any{"completed": true}); rec.Code != http.StatusOK {
		t.Fatalf("lesson progress: %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/assignments/as1/stats", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %d %s", rec.Code, rec.Body.String())
	}
	report := decode[domain.AssignmentReport](t, rec)
	if report.TotalSubmissions != 2 || report.SubmissionsGraded != 1 || report.HighestMarks == nil || *report.HighestMarks != 7 {
		t.Fatalf("unexpected report %+v", report)
	}
	if rec := env.do(t, http.MethodGet, "/assignments/as1/stats", ada, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected students rejected, got %d", rec.Code)
	}
	other := &domain.Actor{ID: "t2", Role: domain.RoleInstructor}
	if rec := env.do(t, http.MethodGet, "/assignments/as1/stats", other, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected other instructor rejected, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/progress/instructor/courses/c1/activity", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("class activity: %d %s", rec.Code, rec.Body.String())
	}
	activity := decode[domain.ClassActivity](t, rec)
	if activity.ActiveStudents != 2 || activity.CourseID != "c1" {
		t.Fatalf("unexpected class activity %+v", activity)
	}
	var adaDay *domain.DailyActivity
	for i := range activity.Days {
		if activity.Days[i].StudentID == "s1" {
			adaDay = &activity.Days[i]
		}
	}
	if adaDay == nil || adaDay.FullName != "Ada Lovelace" {
		t.Fatalf("expected a row for s1, got %+v", activity.Days)
	}
	if adaDay.ByType[domain.ActivityLessonView] != 1 || adaDay.ByType[domain.ActivitySubmission] != 1 {
		t.Fatalf("unexpected s1 breakdown %+v", adaDay.ByType)
	}
	if rec := env.do(t, http.MethodGet, "/progress/instructor/courses/c1/activity", other, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected other instructor rejected, got %d", rec.Code)
	}
}
