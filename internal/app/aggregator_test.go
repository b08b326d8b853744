package app_test

import (
	"context"
	"testing"
	"time"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
)

func TestPercentage(t *testing.T) {
	cases := []struct {
		done, total, want int
	}{
		{0, 0, 0},
		{2, 3, 67},
		{1, 3, 33},
		{1, 2, 50},
		{4, 4, 100},
		{1, 8, 13},
	}
	for _, c := range cases {
		if got := app.Percentage(c.done, c.total); got != c.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", c.done, c.total, got, c.want)
		}
	}
}

func TestCourseProgressTwoSections(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "s1")
	f.complete(t, "s1", "a1", "a2")

	cp, err := f.agg.CourseProgress(context.Background(), f.store, "s1", "c1")
	if err != nil {
		t.Fatalf("course progress: %v", err)
	}
	if len(cp.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(cp.Sections))
	}
	if cp.Sections[0].SectionID != "A" || cp.Sections[0].Percentage != 67 {
		t.Fatalf("expected section A at 67%%, got %+v", cp.Sections[0])
	}
	if cp.Sections[1].SectionID != "B" || cp.Sections[1].Percentage != 0 {
		t.Fatalf("expected section B at 0%%, got %+v", cp.Sections[1])
	}
	if cp.Percentage != 50 || cp.CompletedLessons != 2 || cp.TotalLessons != 4 {
		t.Fatalf("expected 2/4 = 50%%, got %+v", cp)
	}
}

func TestCourseProgressEmptyCourse(t *testing.T) {
	f := newFixture(t)
	cp, err := f.agg.CourseProgress(context.Background(), f.store, "s1", "draft")
	if err != nil {
		t.Fatalf("course progress: %v", err)
	}
	if cp.Percentage != 0 || cp.TotalLessons != 0 || len(cp.Sections) != 0 {
		t.Fatalf("expected empty progress, got %+v", cp)
	}
}

func TestCourseProgressSkipsOrphanedRows(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "s1")
	f.complete(t, "s1", "a1", "b1")

	f.store.DeleteLesson("b1")

	cp, err := f.agg.CourseProgress(context.Background(), f.store, "s1", "c1")
	if err != nil {
		t.Fatalf("orphaned progress must not fail aggregation: %v", err)
	}
	if cp.TotalLessons != 3 || cp.CompletedLessons != 1 {
		t.Fatalf("expected 1/3 after lesson removal, got %+v", cp)
	}
	if cp.SkippedRecords != 1 {
		t.Fatalf("expected 1 skipped record, got %d", cp.SkippedRecords)
	}
}

func TestCourseProgressAfterSectionDelete(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "s1")
	f.complete(t, "s1", "a1", "b1")

	f.store.DeleteSection("A")

	cp, err := f.agg.CourseProgress(context.Background(), f.store, "s1", "c1")
	if err != nil {
		t.Fatalf("aggregate after section delete: %v", err)
	}
	if len(cp.Sections) != 1 || cp.TotalLessons != 1 || cp.CompletedLessons != 1 || cp.Percentage != 100 {
		t.Fatalf("expected only section B to count, got %+v", cp)
	}
	if cp.SkippedRecords != 1 {
		t.Fatalf("expected a1 progress skipped as orphaned, got %d", cp.SkippedRecords)
	}
}

func TestCourseProgressIgnoresOtherCourses(t *testing.T) {
	f := newFixture(t)
	if err := f.store.PutCourse(domain.Course{ID: "c2", TeacherID: "t2", Status: domain.CoursePublished}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.store.PutSection(domain.Section{ID: "X", CourseID: "c2"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.store.PutLesson(domain.Lesson{ID: "x1", SectionID: "X"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := f.store.UpsertLessonProgress(context.Background(), "s1", "x1", domain.ProgressDelta{Completed: true}, time.Now()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cp, err := f.agg.CourseProgress(context.Background(), f.store, "s1", "c1")
	if err != nil {
		t.Fatalf("course progress: %v", err)
	}
	if cp.CompletedLessons != 0 || cp.SkippedRecords != 0 {
		t.Fatalf("expected other-course progress ignored, got %+v", cp)
	}
}

func TestInstructorAverageIsMeanOfStudentViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.PutStudent(domain.Student{ID: "s3", Status: domain.StudentActive}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		f.enroll(t, id)
	}
	f.complete(t, "s1", "a1")             // 25
	f.complete(t, "s2", "a1", "a2", "a3") // 75
	f.complete(t, "s3", "a1", "a2")       // 50, then dropped

	e3, _ := f.store.GetEnrollment(ctx, "s3", "c1")
	if _, err := f.enrollments.Drop(ctx, domain.Actor{ID: "s3", Role: domain.RoleStudent}, e3.ID); err != nil {
		t.Fatalf("drop: %v", err)
	}

	avg, results, err := f.agg.CourseAverage(ctx, f.store, "c1")
	if err != nil {
		t.Fatalf("course average: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected dropped enrollment excluded, got %d results", len(results))
	}
	sum := 0
	for _, r := range results {
		cp, err := f.agg.CourseProgress(ctx, f.store, r.Enrollment.StudentID, "c1")
		if err != nil {
			t.Fatalf("student view: %v", err)
		}
		sum += cp.Percentage
	}
	if want := sum / len(results); avg != want || avg != 50 {
		t.Fatalf("expected instructor average %d (50), got %d", want, avg)
	}
}

func TestQuizAndAssignmentStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enroll(t, "s1")

	if _, err := f.coursework.SubmitQuizAttempt(ctx, "s1", "quiz-1", map[string]string{"q1": "o1"}); err != nil {
		t.Fatalf("attempt 1: %v", err)
	}
	if _, err := f.coursework.SubmitQuizAttempt(ctx, "s1", "quiz-1", map[string]string{"q1": "o2", "q2": "o3"}); err != nil {
		t.Fatalf("attempt 2: %v", err)
	}
	qs, err := f.agg.QuizStats(ctx, f.store, "s1", "c1")
	if err != nil {
		t.Fatalf("quiz stats: %v", err)
	}
	if qs.Attempts != 2 || qs.QuizzesTaken != 1 || qs.PassedQuizzes != 1 || qs.AverageScore != 1.5 {
		t.Fatalf("expected all-attempts average 1.5, got %+v", qs)
	}

	sub, err := f.coursework.SubmitAssignment(ctx, "s1", "as1", domain.SubmissionContent{Text: "essay"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	as, _ := f.agg.AssignmentStats(ctx, f.store, "s1", "c1")
	if as.AssignmentsSubmitted != 1 || as.SubmissionsGraded != 0 || as.AverageMarks != 0 {
		t.Fatalf("expected ungraded submission, got %+v", as)
	}
	if _, err := f.coursework.GradeSubmission(ctx, instructor, sub.ID, 8, "good"); err != nil {
		t.Fatalf("grade: %v", err)
	}
	as, _ = f.agg.AssignmentStats(ctx, f.store, "s1", "")
	if as.SubmissionsGraded != 1 || as.AverageMarks != 8 {
		t.Fatalf("expected graded average 8, got %+v", as)
	}
}
