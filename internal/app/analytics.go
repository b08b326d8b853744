package app

import (
	"context"
	"errors"
	"sort"

	"lms-progress-service/internal/domain"
)

// StudentAnalytics is the student dashboard across every course.
func (s *EnrollmentService) StudentAnalytics(ctx context.Context, studentID string) (domain.StudentAnalytics, error) {
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return domain.StudentAnalytics{}, err
	}
	enrollments, err := s.ListEnrollments(ctx, studentID)
	if err != nil {
		return domain.StudentAnalytics{}, err
	}
	rows, err := s.store.ListLessonProgress(ctx, studentID)
	if err != nil {
		return domain.StudentAnalytics{}, err
	}
	var ts domain.TimeStats
	for _, row := range rows {
		ts.TotalTimeSpent += row.TimeSpent
		if row.Completed {
			ts.LessonsCompleted++
		}
	}
	quizzes, err := s.agg.QuizStats(ctx, s.store, studentID, "")
	if err != nil {
		return domain.StudentAnalytics{}, err
	}
	assignments, err := s.agg.AssignmentStats(ctx, s.store, studentID, "")
	if err != nil {
		return domain.StudentAnalytics{}, err
	}
	streak, err := s.ledger.Streak(ctx, studentID)
	if err != nil {
		return domain.StudentAnalytics{}, err
	}
	return domain.StudentAnalytics{
		Enrollments:     enrollments,
		TimeStats:       ts,
		QuizStats:       quizzes,
		AssignmentStats: assignments,
		LearningStreak:  streak,
	}, nil
}

// InstructorAnalytics summarizes every course the instructor teaches.
// AverageStudentProgress is the mean over all counted enrollments of all courses.
func (s *EnrollmentService) InstructorAnalytics(ctx context.Context, actor domain.Actor) (domain.InstructorAnalytics, error) {
	if !actor.IsInstructor() {
		return domain.InstructorAnalytics{}, domain.ErrForbidden
	}
	courses, err := s.store.ListCoursesForTeacher(ctx, actor.ID)
	if err != nil {
		return domain.InstructorAnalytics{}, err
	}
	out := domain.InstructorAnalytics{Courses: make([]domain.CourseAnalytics, 0, len(courses))}
	students := make(map[string]bool)
	var all []int
	for _, course := range courses {
		stats, results, err := s.courseAnalytics(ctx, course)
		if err != nil {
			return domain.InstructorAnalytics{}, err
		}
		for _, r := range results {
			students[r.Enrollment.StudentID] = true
			all = append(all, r.Progress.Percentage)
		}
		if course.Status == domain.CoursePublished {
			out.PublishedCourses++
		}
		out.Courses = append(out.Courses, stats)
	}
	out.TotalCourses = len(courses)
	out.TotalStudents = len(students)
	out.AverageStudentProgress = roundedMean(all)
	return out, nil
}

// CourseRoster lists every enrollment of a course with live progress.
// Dropped enrollments show their frozen percentage.
func (s *EnrollmentService) CourseRoster(ctx context.Context, actor domain.Actor, courseID string) (domain.CourseRoster, error) {
	if err := ownsCourse(ctx, s.store, actor, courseID); err != nil {
		return domain.CourseRoster{}, err
	}
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return domain.CourseRoster{}, err
	}
	stats, results, err := s.courseAnalytics(ctx, course)
	if err != nil {
		return domain.CourseRoster{}, err
	}
	live := make(map[string]domain.CourseProgress, len(results))
	for _, r := range results {
		live[r.Enrollment.ID] = r.Progress
	}

	enrollments, err := s.store.ListEnrollmentsForCourse(ctx, courseID)
	if err != nil {
		return domain.CourseRoster{}, err
	}
	rows := make([]domain.StudentProgressRow, 0, len(enrollments))
	for _, e := range enrollments {
		row := domain.StudentProgressRow{
			EnrollmentID: e.ID,
			StudentID:    e.StudentID,
			Status:       e.Status,
			Progress:     e.ProgressPercentage,
			EnrollDate:   e.EnrollDate,
		}
		if cp, ok := live[e.ID]; ok {
			row.Progress = cp.Percentage
			row.CompletedLessons = cp.CompletedLessons
		}
		student, err := s.store.GetStudent(ctx, e.StudentID)
		switch {
		case err == nil:
			row.FullName = student.FullName
		case !errors.Is(err, domain.ErrStudentNotFound):
			return domain.CourseRoster{}, err
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].EnrollDate.After(rows[j].EnrollDate) })
	return domain.CourseRoster{Stats: stats, Enrollments: rows}, nil
}

func (s *EnrollmentService) courseAnalytics(ctx context.Context, course domain.Course) (domain.CourseAnalytics, []StudentResult, error) {
	avg, results, err := s.agg.CourseAverage(ctx, s.store, course.ID)
	if err != nil {
		return domain.CourseAnalytics{}, nil, err
	}
	enrollments, err := s.store.ListEnrollmentsForCourse(ctx, course.ID)
	if err != nil {
		return domain.CourseAnalytics{}, nil, err
	}
	stats := domain.CourseAnalytics{
		CourseID:         course.ID,
		Title:            course.Title,
		Status:           course.Status,
		TotalEnrollments: len(enrollments),
		AverageProgress:  avg,
	}
	for _, e := range enrollments {
		switch e.Status {
		case domain.EnrollmentActive:
			stats.ActiveStudents++
		case domain.EnrollmentCompleted:
			stats.CompletedStudents++
		}
		if e.CertificateIssued {
			stats.CertificatesIssued++
		}
	}
	return stats, results, nil
}
