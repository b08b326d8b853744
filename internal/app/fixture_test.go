package app_test

import (
	"context"
	"testing"
	"time"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/infra/memory"
	"lms-progress-service/internal/logger"
)

type fixture struct {
	store       *memory.Store
	agg         *app.Aggregator
	ledger      *app.Ledger
	enrollments *app.EnrollmentService
	coursework  *app.CourseworkService
	feeds       *memory.FeedStore
	now         time.Time
}

var (
	student    = domain.Actor{ID: "s1", Role: domain.RoleStudent}
	instructor = domain.Actor{ID: "t1", Role: domain.RoleInstructor}
	admin      = domain.Actor{ID: "root", Role: domain.RoleAdmin}
)

// newFixture seeds course c1 taught by t1: section A (a1, a2, a3) and
// section B (b1), a two-question quiz and one assignment.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		feeds: memory.NewFeedStore(),
		now:   time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	log := logger.Nop()

	f.agg = app.NewAggregator(log)
	f.ledger = app.NewLedger(f.store, log).WithClock(clock)
	f.enrollments = app.NewEnrollmentService(f.store, f.agg, f.ledger, f.feeds, log).WithClock(clock)
	quizzes := memory.NewQuizRepository(f.store, time.Minute)
	f.coursework = app.NewCourseworkService(f.store, quizzes, f.ledger, f.enrollments, log).WithClock(clock)

	seed := []error{
		f.store.PutCourse(domain.Course{ID: "c1", TeacherID: "t1", Title: "Go Basics", Status: domain.CoursePublished, CreatedAt: f.now}),
		f.store.PutCourse(domain.Course{ID: "draft", TeacherID: "t1", Title: "Draft", Status: domain.CourseDraft, CreatedAt: f.now.Add(time.Hour)}),
		f.store.PutStudent(domain.Student{ID: "s1", FullName: "Ada Lovelace", Status: domain.StudentActive}),
		f.store.PutStudent(domain.Student{ID: "s2", FullName: "Alan Turing", Status: domain.StudentActive}),
		f.store.PutStudent(domain.Student{ID: "blocked", FullName: "Mallory", Status: domain.StudentBlocked}),
		f.store.PutSection(domain.Section{ID: "A", CourseID: "c1", Title: "Intro", PositionOrder: 1}),
		f.store.PutSection(domain.Section{ID: "B", CourseID: "c1", Title: "Types", PositionOrder: 2}),
		f.store.PutLesson(domain.Lesson{ID: "a1", SectionID: "A", PositionOrder: 1}),
		f.store.PutLesson(domain.Lesson{ID: "a2", SectionID: "A", PositionOrder: 2}),
		f.store.PutLesson(domain.Lesson{ID: "a3", SectionID: "A", PositionOrder: 3}),
		f.store.PutLesson(domain.Lesson{ID: "b1", SectionID: "B", PositionOrder: 1}),
		f.store.PutQuiz(domain.Quiz{
			ID: "quiz-1", CourseID: "c1", Title: "Basics", PassingMarks: 2,
			Questions: []domain.Question{
				{ID: "q1", Options: []domain.Option{{ID: "o1"}, {ID: "o2", Correct: true}}},
				{ID: "q2", Points: 2, Options: []domain.Option{{ID: "o3", Correct: true}, {ID: "o4"}}},
			},
		}),
		f.store.PutAssignment(domain.Assignment{ID: "as1", CourseID: "c1", Title: "Essay", MaxMarks: 10}),
	}
	for _, err := range seed {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return f
}

func (f *fixture) enroll(t *testing.T, studentID string) domain.Enrollment {
	t.Helper()
	e, err := f.enrollments.Enroll(context.Background(), studentID, "c1")
	if err != nil {
		t.Fatalf("enroll %s: %v", studentID, err)
	}
	return e
}

func (f *fixture) complete(t *testing.T, studentID string, lessons ...string) domain.Enrollment {
	t.Helper()
	var e domain.Enrollment
	for _, lesson := range lessons {
		var err error
		_, e, err = f.enrollments.UpdateLessonProgress(context.Background(), studentID, lesson, domain.ProgressDelta{Completed: true, TimeSpent: 60})
		if err != nil {
			t.Fatalf("complete %s: %v", lesson, err)
		}
	}
	return e
}
