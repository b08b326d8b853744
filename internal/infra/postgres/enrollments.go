package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"

	"lms-progress-service/internal/domain"
)

const enrollmentColumns = `id, student_id, course_id, status, progress_percentage, enroll_date, completion_date, certificate_issued`

func scanEnrollment(row pgx.Row) (domain.Enrollment, error) {
	var e domain.Enrollment
	err := row.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.Status, &e.ProgressPercentage, &e.EnrollDate, &e.CompletionDate, &e.CertificateIssued)
	return e, err
}

// GetEnrollment prefers the current enrollment, then the latest Dropped one.
func (s *Store) GetEnrollment(ctx context.Context, studentID, courseID string) (domain.Enrollment, error) {
	query := s.forUpdate(`SELECT ` + enrollmentColumns + ` FROM enrollments
		WHERE student_id = $1 AND course_id = $2
		ORDER BY (status <> 'Dropped') DESC, enroll_date DESC
		LIMIT 1`)
	e, err := scanEnrollment(s.q.QueryRow(ctx, query, studentID, courseID))
	return e, mapError("get enrollment", err, domain.ErrEnrollmentNotFound)
}

func (s *Store) GetEnrollmentByID(ctx context.Context, enrollmentID string) (domain.Enrollment, error) {
	query := s.forUpdate(`SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`)
	e, err := scanEnrollment(s.q.QueryRow(ctx, query, enrollmentID))
	return e, mapError("get enrollment", err, domain.ErrEnrollmentNotFound)
}

func (s *Store) ListEnrollmentsForStudent(ctx context.Context, studentID string) ([]domain.Enrollment, error) {
	rows, err := s.q.Query(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 ORDER BY enroll_date, id`, studentID)
	if err != nil {
		return nil, mapError("list enrollments", err, nil)
	}
	out, err := collect(rows, scanEnrollment)
	return out, mapError("list enrollments", err, nil)
}

func (s *Store) ListEnrollmentsForCourse(ctx context.Context, courseID string) ([]domain.Enrollment, error) {
	rows, err := s.q.Query(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE course_id = $1 ORDER BY enroll_date, id`, courseID)
	if err != nil {
		return nil, mapError("list enrollments", err, nil)
	}
	out, err := collect(rows, scanEnrollment)
	return out, mapError("list enrollments", err, nil)
}

// CreateEnrollment relies on enrollments_current_uniq to reject a second
// Active or Completed enrollment for the pair.
func (s *Store) CreateEnrollment(ctx context.Context, e domain.Enrollment) error {
	if err := domain.Validate(e); err != nil {
		return err
	}
	_, err := s.q.Exec(ctx, `INSERT INTO enrollments (`+enrollmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.StudentID, e.CourseID, e.Status, e.ProgressPercentage, e.EnrollDate, e.CompletionDate, e.CertificateIssued)
	return mapError("create enrollment", err, nil)
}

func (s *Store) SaveEnrollmentProgress(ctx context.Context, enrollmentID string, percentage int, status domain.EnrollmentStatus, completionDate *time.Time) error {
	if percentage < 0 || percentage > 100 {
		return domain.ErrInvalidInput.Detail("progress %d out of range", percentage)
	}
	tag, err := s.q.Exec(ctx, `UPDATE enrollments SET progress_percentage = $2, status = $3, completion_date = $4 WHERE id = $1`,
		enrollmentID, percentage, status, completionDate)
	if err != nil {
		return mapError("save progress", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}

func (s *Store) SetEnrollmentStatus(ctx context.Context, enrollmentID string, status domain.EnrollmentStatus) error {
	return s.execOne(ctx, "set status", domain.ErrEnrollmentNotFound,
		`UPDATE enrollments SET status = $2 WHERE id = $1`, enrollmentID, status)
}

func (s *Store) MarkCertificateIssued(ctx context.Context, enrollmentID string) error {
	return s.execOne(ctx, "mark certificate", domain.ErrEnrollmentNotFound,
		`UPDATE enrollments SET certificate_issued = TRUE WHERE id = $1`, enrollmentID)
}

// DeleteEnrollment cascades to the certificate only.
func (s *Store) DeleteEnrollment(ctx context.Context, enrollmentID string) error {
	return s.execOne(ctx, "delete enrollment", domain.ErrEnrollmentNotFound,
		`DELETE FROM enrollments WHERE id = $1`, enrollmentID)
}

func (s *Store) execOne(ctx context.Context, op string, notFound error, sql string, args ...interface{}) error {
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(op, err, nil)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func (s *Store) GetCertificateForEnrollment(ctx context.Context, enrollmentID string) (domain.Certificate, error) {
	var c domain.Certificate
	err := s.q.QueryRow(ctx, `SELECT id, enrollment_id, student_id, course_id, number, issued_at FROM certificates WHERE enrollment_id = $1`, enrollmentID).
		Scan(&c.ID, &c.EnrollmentID, &c.StudentID, &c.CourseID, &c.Number, &c.IssuedAt)
	return c, mapError("get certificate", err, domain.ErrCertificateMissing)
}

func (s *Store) ListCertificatesForStudent(ctx context.Context, studentID string) ([]domain.Certificate, error) {
	rows, err := s.q.Query(ctx, `SELECT id, enrollment_id, student_id, course_id, number, issued_at FROM certificates WHERE student_id = $1 ORDER BY issued_at DESC, id`, studentID)
	if err != nil {
		return nil, mapError("list certificates", err, nil)
	}
	out, err := collect(rows, func(row pgx.Row) (domain.Certificate, error) {
		var c domain.Certificate
		err := row.Scan(&c.ID, &c.EnrollmentID, &c.StudentID, &c.CourseID, &c.Number, &c.IssuedAt)
		return c, err
	})
	return out, mapError("list certificates", err, nil)
}

func (s *Store) CreateCertificate(ctx context.Context, c domain.Certificate) error {
	if err := domain.Validate(c); err != nil {
		return err
	}
	_, err := s.q.Exec(ctx, `INSERT INTO certificates (id, enrollment_id, student_id, course_id, number, issued_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.EnrollmentID, c.StudentID, c.CourseID, c.Number, c.IssuedAt)
	return mapError("create certificate", err, nil)
}
