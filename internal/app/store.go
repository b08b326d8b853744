package app

import (
	"context"
	"time"

	"lms-progress-service/internal/domain"
)

// CatalogReader exposes the structural reference data owned by the course CRUD service.
type CatalogReader interface {
	GetCourse(ctx context.Context, courseID string) (domain.Course, error)
	ListCoursesForTeacher(ctx context.Context, teacherID string) ([]domain.Course, error)
	GetStudent(ctx context.Context, studentID string) (domain.Student, error)
	GetSection(ctx context.Context, sectionID string) (domain.Section, error)
	// ListSectionsForCourse returns sections ordered by position, ties broken by id.
	ListSectionsForCourse(ctx context.Context, courseID string) ([]domain.Section, error)
	GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error)
	// ListLessonsForSection returns lessons ordered by position, ties broken by id.
	ListLessonsForSection(ctx context.Context, sectionID string) ([]domain.Lesson, error)
	ListQuizzesForCourse(ctx context.Context, courseID string) ([]domain.Quiz, error)
	GetAssignment(ctx context.Context, assignmentID string) (domain.Assignment, error)
	ListAssignmentsForCourse(ctx context.Context, courseID string) ([]domain.Assignment, error)
}

// EnrollmentStore persists enrollments and certificates. There is no generic
// update: every mutation is a named transition.
type EnrollmentStore interface {
	// GetEnrollment returns the current (non-Dropped) enrollment for the pair,
	// or the most recent Dropped one when no current enrollment exists.
	GetEnrollment(ctx context.Context, studentID, courseID string) (domain.Enrollment, error)
	GetEnrollmentByID(ctx context.Context, enrollmentID string) (domain.Enrollment, error)
	ListEnrollmentsForStudent(ctx context.Context, studentID string) ([]domain.Enrollment, error)
	ListEnrollmentsForCourse(ctx context.Context, courseID string) ([]domain.Enrollment, error)
	CreateEnrollment(ctx context.Context, e domain.Enrollment) error
	SetEnrollmentStatus(ctx context.Context, enrollmentID string, status domain.EnrollmentStatus) error
	MarkCertificateIssued(ctx context.Context, enrollmentID string) error
	DeleteEnrollment(ctx context.Context, enrollmentID string) error
	GetCertificateForEnrollment(ctx context.Context, enrollmentID string) (domain.Certificate, error)
	// ListCertificatesForStudent returns certificates newest first.
	ListCertificatesForStudent(ctx context.Context, studentID string) ([]domain.Certificate, error)
	CreateCertificate(ctx context.Context, c domain.Certificate) error
}

// ProgressWriter is the single write path for Enrollment.ProgressPercentage.
// EnrollmentService.recompute is its only caller.
type ProgressWriter interface {
	SaveEnrollmentProgress(ctx context.Context, enrollmentID string, percentage int, status domain.EnrollmentStatus, completionDate *time.Time) error
}

type LessonProgressStore interface {
	GetLessonProgress(ctx context.Context, studentID, lessonID string) (domain.LessonProgress, error)
	// UpsertLessonProgress creates the row or updates it, adding delta.TimeSpent
	// to the stored total atomically.
	UpsertLessonProgress(ctx context.Context, studentID, lessonID string, delta domain.ProgressDelta, now time.Time) (domain.LessonProgress, error)
	ListLessonProgress(ctx context.Context, studentID string) ([]domain.LessonProgress, error)
}

type AttemptStore interface {
	CreateQuizAttempt(ctx context.Context, a domain.QuizAttempt) error
	ListQuizAttempts(ctx context.Context, studentID, quizID string) ([]domain.QuizAttempt, error)
	ListQuizAttemptsForStudent(ctx context.Context, studentID string) ([]domain.QuizAttempt, error)
}

type SubmissionStore interface {
	GetSubmission(ctx context.Context, submissionID string) (domain.AssignmentSubmission, error)
	// SaveSubmission inserts the first submission or replaces the content of the
	// current one in place. created reports which happened.
	SaveSubmission(ctx context.Context, sub domain.AssignmentSubmission) (saved domain.AssignmentSubmission, created bool, err error)
	GradeSubmission(ctx context.Context, submissionID string, marks int, feedback string, gradedAt time.Time) (domain.AssignmentSubmission, error)
	ListSubmissions(ctx context.Context, studentID, assignmentID string) ([]domain.AssignmentSubmission, error)
	ListSubmissionsForStudent(ctx context.Context, studentID string) ([]domain.AssignmentSubmission, error)
	ListSubmissionsForAssignment(ctx context.Context, assignmentID string) ([]domain.AssignmentSubmission, error)
}

type ActivityStore interface {
	AppendActivity(ctx context.Context, entry domain.ActivityLogEntry) error
	// ListActivities returns entries newest first.
	ListActivities(ctx context.Context, studentID string, filter domain.ActivityFilter) ([]domain.ActivityLogEntry, error)
	// ListCourseActivities returns every student's entries for one course, newest first.
	ListCourseActivities(ctx context.Context, courseID string) ([]domain.ActivityLogEntry, error)
	DeleteActivity(ctx context.Context, logID string) error
}

// Store is the Entity Store.
type Store interface {
	CatalogReader
	EnrollmentStore
	ProgressWriter
	LessonProgressStore
	AttemptStore
	SubmissionStore
	ActivityStore

	// WithinTx runs fn against a transactional view of the store. fn's error
	// rolls everything back. Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}
