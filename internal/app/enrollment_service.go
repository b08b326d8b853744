package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/logger"
)

// EnrollmentService owns the enrollment lifecycle and every write that moves
// a student's progress.
type EnrollmentService struct {
	store  Store
	agg    *Aggregator
	ledger *Ledger
	feeds  FeedRepository
	log    *logger.Logger
	now    func() time.Time
}

func NewEnrollmentService(store Store, agg *Aggregator, ledger *Ledger, feeds FeedRepository, log *logger.Logger) *EnrollmentService {
	return &EnrollmentService{
		store:  store,
		agg:    agg,
		ledger: ledger,
		feeds:  feeds,
		log:    log.With("component", "enrollment"),
		now:    time.Now,
	}
}

// WithClock swaps the clock; used by tests for deterministic timestamps.
func (s *EnrollmentService) WithClock(now func() time.Time) *EnrollmentService {
	s.now = now
	return s
}

// Enroll creates an Active enrollment and immediately folds in any lesson
// progress the student kept from an earlier enrollment.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) (domain.Enrollment, error) {
	var out domain.Enrollment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		student, err := tx.GetStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if student.Status == domain.StudentBlocked {
			return domain.ErrStudentBlocked
		}

		existing, err := tx.GetEnrollment(ctx, studentID, courseID)
		switch {
		case err == nil && existing.Counts():
			return domain.ErrAlreadyEnrolled.Detail("student %s already has a %s enrollment in course %s", studentID, existing.Status, courseID)
		case err != nil && !errors.Is(err, domain.ErrEnrollmentNotFound):
			return err
		}

		course, err := tx.GetCourse(ctx, courseID)
		if err != nil {
			return err
		}
		if course.Status != domain.CoursePublished {
			return domain.ErrCourseNotPublished
		}

		e := domain.Enrollment{
			ID:         uuid.NewString(),
			StudentID:  studentID,
			CourseID:   courseID,
			Status:     domain.EnrollmentActive,
			EnrollDate: s.now().UTC(),
		}
		if err := tx.CreateEnrollment(ctx, e); err != nil {
			return err
		}
		out, err = s.recompute(ctx, tx, e)
		return err
	})
	if err != nil {
		return domain.Enrollment{}, err
	}
	s.log.Info("student enrolled", "enrollment_id", out.ID, "course_id", courseID, "progress", out.ProgressPercentage)
	return out, nil
}

// RecomputeProgress refreshes the cached percentage of one enrollment.
func (s *EnrollmentService) RecomputeProgress(ctx context.Context, enrollmentID string) (domain.Enrollment, error) {
	var out domain.Enrollment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		e, err := tx.GetEnrollmentByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		out, err = s.recompute(ctx, tx, e)
		return err
	})
	if err != nil {
		return domain.Enrollment{}, err
	}
	s.publish(ctx, out)
	return out, nil
}

// recompute is the only writer of Enrollment.ProgressPercentage. An Active
// enrollment that reaches 100% becomes Completed. Dropped enrollments are frozen.
func (s *EnrollmentService) recompute(ctx context.Context, tx Store, e domain.Enrollment) (domain.Enrollment, error) {
	if e.Status == domain.EnrollmentDropped {
		return e, nil
	}
	cp, err := s.agg.CourseProgress(ctx, tx, e.StudentID, e.CourseID)
	if err != nil {
		return e, fmt.Errorf("recompute %s: %w", e.ID, err)
	}

	status, completion := e.Status, e.CompletionDate
	if cp.Percentage == 100 && status == domain.EnrollmentActive {
		now := s.now().UTC()
		status, completion = domain.EnrollmentCompleted, &now
	}
	if cp.Percentage == e.ProgressPercentage && status == e.Status {
		return e, nil
	}
	if err := tx.SaveEnrollmentProgress(ctx, e.ID, cp.Percentage, status, completion); err != nil {
		return e, err
	}
	if status != e.Status {
		s.log.Info("enrollment completed", "enrollment_id", e.ID, "course_id", e.CourseID)
	}
	e.ProgressPercentage, e.Status, e.CompletionDate = cp.Percentage, status, completion
	return e, nil
}

// UpdateLessonProgress applies a client progress report, recomputes the
// enrollment and logs a LessonView, all in one transaction.
func (s *EnrollmentService) UpdateLessonProgress(ctx context.Context, studentID, lessonID string, delta domain.ProgressDelta) (domain.LessonProgress, domain.Enrollment, error) {
	if err := domain.Validate(delta); err != nil {
		return domain.LessonProgress{}, domain.Enrollment{}, err
	}
	var (
		progress   domain.LessonProgress
		enrollment domain.Enrollment
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		lesson, err := tx.GetLesson(ctx, lessonID)
		if err != nil {
			return err
		}
		section, err := tx.GetSection(ctx, lesson.SectionID)
		if err != nil {
			return fmt.Errorf("lesson %s: %w", lessonID, err)
		}
		if _, err := tx.GetStudent(ctx, studentID); err != nil {
			return err
		}
		enrollment, err = currentEnrollment(ctx, tx, studentID, section.CourseID)
		if err != nil {
			return err
		}

		progress, err = tx.UpsertLessonProgress(ctx, studentID, lessonID, delta, s.now().UTC())
		if err != nil {
			return err
		}
		enrollment, err = s.recompute(ctx, tx, enrollment)
		if err != nil {
			return err
		}
		_, err = s.ledger.record(ctx, tx, studentID, domain.ActivityLessonView, section.CourseID, lessonID)
		return err
	})
	if err != nil {
		return domain.LessonProgress{}, domain.Enrollment{}, err
	}
	s.publish(ctx, enrollment)
	return progress, enrollment, nil
}

// currentEnrollment requires an Active or Completed enrollment for the pair.
func currentEnrollment(ctx context.Context, src EnrollmentStore, studentID, courseID string) (domain.Enrollment, error) {
	e, err := src.GetEnrollment(ctx, studentID, courseID)
	if errors.Is(err, domain.ErrEnrollmentNotFound) {
		return e, domain.ErrNotEnrolled
	}
	if err != nil {
		return e, err
	}
	if !e.Counts() {
		return e, domain.ErrNotEnrolled.Detail("enrollment %s is %s", e.ID, e.Status)
	}
	return e, nil
}

// IssueCertificate is idempotent: a second call returns the first certificate.
func (s *EnrollmentService) IssueCertificate(ctx context.Context, actor domain.Actor, enrollmentID string) (domain.Certificate, error) {
	if !actor.IsInstructor() {
		return domain.Certificate{}, domain.ErrForbidden.Detail("only the course instructor may issue certificates")
	}
	var cert domain.Certificate
	created := false
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		e, err := tx.GetEnrollmentByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if err := ownsCourse(ctx, tx, actor, e.CourseID); err != nil {
			return err
		}
		if e.Status != domain.EnrollmentCompleted {
			return domain.ErrNotCompleted
		}

		cert, err = tx.GetCertificateForEnrollment(ctx, e.ID)
		switch {
		case err == nil:
			if !e.CertificateIssued {
				return tx.MarkCertificateIssued(ctx, e.ID)
			}
			return nil
		case !errors.Is(err, domain.ErrCertificateMissing):
			return err
		}

		issued := s.now().UTC()
		id := uuid.NewString()
		cert = domain.Certificate{
			ID:           id,
			EnrollmentID: e.ID,
			StudentID:    e.StudentID,
			CourseID:     e.CourseID,
			Number:       certificateNumber(issued, id),
			IssuedAt:     issued,
		}
		if err := tx.CreateCertificate(ctx, cert); err != nil {
			return err
		}
		created = true
		return tx.MarkCertificateIssued(ctx, e.ID)
	})
	if err != nil {
		return domain.Certificate{}, err
	}
	if created {
		s.log.Info("certificate issued", "enrollment_id", enrollmentID, "certificate_id", cert.ID)
	}
	return cert, nil
}

// ListCertificates returns the student's certificates, newest first, with
// the title of each course.
func (s *EnrollmentService) ListCertificates(ctx context.Context, studentID string) ([]domain.StudentCertificate, error) {
	certs, err := s.store.ListCertificatesForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StudentCertificate, 0, len(certs))
	for _, c := range certs {
		row := domain.StudentCertificate{Certificate: c}
		course, err := s.store.GetCourse(ctx, c.CourseID)
		switch {
		case err == nil:
			row.CourseTitle, row.TeacherID = course.Title, course.TeacherID
		case !errors.Is(err, domain.ErrCourseNotFound):
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func certificateNumber(issued time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return "CERT-" + issued.Format("20060102") + "-" + suffix
}

// Drop moves an Active enrollment to Dropped. Its progress stays frozen.
func (s *EnrollmentService) Drop(ctx context.Context, actor domain.Actor, enrollmentID string) (domain.Enrollment, error) {
	var out domain.Enrollment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		e, err := tx.GetEnrollmentByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if err := authorizeEnrollment(ctx, tx, actor, e, false); err != nil {
			return err
		}
		if e.Status != domain.EnrollmentActive {
			return domain.ErrInvalidTransition.Detail("cannot drop a %s enrollment", e.Status)
		}
		if err := tx.SetEnrollmentStatus(ctx, e.ID, domain.EnrollmentDropped); err != nil {
			return err
		}
		e.Status = domain.EnrollmentDropped
		out = e
		return nil
	})
	if err != nil {
		return domain.Enrollment{}, err
	}
	s.log.Info("enrollment dropped", "enrollment_id", enrollmentID, "by", actor.Role)
	return out, nil
}

// Unenroll deletes the enrollment. Lesson progress, quiz attempts and
// submissions are kept so a later re-enrollment resumes where it left off.
func (s *EnrollmentService) Unenroll(ctx context.Context, actor domain.Actor, enrollmentID string) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		e, err := tx.GetEnrollmentByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if err := authorizeEnrollment(ctx, tx, actor, e, false); err != nil {
			return err
		}
		return tx.DeleteEnrollment(ctx, e.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("student unenrolled", "enrollment_id", enrollmentID, "by", actor.Role)
	return nil
}

// authorizeEnrollment lets the enrolled student and the owning instructor
// through, plus admins when allowAdmin is set.
func authorizeEnrollment(ctx context.Context, src CatalogReader, actor domain.Actor, e domain.Enrollment, allowAdmin bool) error {
	switch actor.Role {
	case domain.RoleStudent:
		if e.StudentID == actor.ID {
			return nil
		}
	case domain.RoleInstructor:
		return ownsCourse(ctx, src, actor, e.CourseID)
	case domain.RoleAdmin:
		if allowAdmin {
			return nil
		}
	}
	return domain.ErrForbidden
}

type courseReader interface {
	GetCourse(ctx context.Context, courseID string) (domain.Course, error)
}

func ownsCourse(ctx context.Context, src courseReader, actor domain.Actor, courseID string) error {
	if !actor.IsInstructor() {
		return domain.ErrForbidden
	}
	course, err := src.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if course.TeacherID != actor.ID {
		return domain.ErrForbidden.Detail("course %s belongs to another instructor", courseID)
	}
	return nil
}

// Progress builds the full progress view of one enrollment from live data.
func (s *EnrollmentService) Progress(ctx context.Context, actor domain.Actor, enrollmentID string) (domain.EnrollmentProgress, error) {
	e, err := s.store.GetEnrollmentByID(ctx, enrollmentID)
	if err != nil {
		return domain.EnrollmentProgress{}, err
	}
	if err := authorizeEnrollment(ctx, s.store, actor, e, true); err != nil {
		return domain.EnrollmentProgress{}, err
	}
	return s.progressOf(ctx, e)
}

func (s *EnrollmentService) progressOf(ctx context.Context, e domain.Enrollment) (domain.EnrollmentProgress, error) {
	cp, err := s.agg.CourseProgress(ctx, s.store, e.StudentID, e.CourseID)
	if err != nil {
		return domain.EnrollmentProgress{}, err
	}
	quizzes, err := s.agg.QuizStats(ctx, s.store, e.StudentID, e.CourseID)
	if err != nil {
		return domain.EnrollmentProgress{}, err
	}
	assignments, err := s.agg.AssignmentStats(ctx, s.store, e.StudentID, e.CourseID)
	if err != nil {
		return domain.EnrollmentProgress{}, err
	}
	if e.Status == domain.EnrollmentDropped {
		// Lesson counts stay live; the percentage is the one frozen at drop time.
		cp.Percentage = e.ProgressPercentage
	}
	return domain.EnrollmentProgress{
		Enrollment:      e,
		CourseProgress:  cp,
		QuizStats:       quizzes,
		AssignmentStats: assignments,
	}, nil
}

// ListEnrollments returns the student's enrollments, newest first.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, studentID string) ([]domain.Enrollment, error) {
	list, err := s.store.ListEnrollmentsForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].EnrollDate.After(list[j].EnrollDate) })
	return list, nil
}

// Subscribe returns a channel of progress updates for an enrollment. The
// first value is the current progress. The caller must invoke cancel.
func (s *EnrollmentService) Subscribe(ctx context.Context, actor domain.Actor, enrollmentID string) (<-chan ProgressUpdate, func(), error) {
	current, err := s.Progress(ctx, actor, enrollmentID)
	if err != nil {
		return nil, nil, err
	}
	feed := s.feeds.GetOrCreate(enrollmentID)
	ch, cancel := feed.Subscribe(current)
	return ch, func() {
		cancel()
		s.feeds.DeleteIfEmpty(enrollmentID)
	}, nil
}

// publish pushes fresh progress to live subscribers, if any.
func (s *EnrollmentService) publish(ctx context.Context, e domain.Enrollment) {
	feed, ok := s.feeds.Get(e.ID)
	if !ok || feed.IsEmpty() {
		return
	}
	progress, err := s.progressOf(ctx, e)
	if err != nil {
		s.log.Warn("progress feed update failed", "enrollment_id", e.ID, "error", err)
		return
	}
	feed.Publish(progress)
}
