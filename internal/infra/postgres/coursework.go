package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"

	"lms-progress-service/internal/domain"
)

const (
	attemptColumns    = `id, quiz_id, student_id, score, total_marks, passed, attempt_date`
	submissionColumns = `id, assignment_id, student_id, file_url, text_content, link, submitted_at, marks_obtained, feedback, graded_at, attempt_number`
)

func scanAttempt(row pgx.Row) (domain.QuizAttempt, error) {
	var a domain.QuizAttempt
	err := row.Scan(&a.ID, &a.QuizID, &a.StudentID, &a.Score, &a.TotalMarks, &a.Passed, &a.AttemptDate)
	return a, err
}

func scanSubmission(row pgx.Row) (domain.AssignmentSubmission, error) {
	var sub domain.AssignmentSubmission
	err := row.Scan(&sub.ID, &sub.AssignmentID, &sub.StudentID, &sub.FileURL, &sub.Text, &sub.Link,
		&sub.SubmittedAt, &sub.MarksObtained, &sub.Feedback, &sub.GradedAt, &sub.AttemptNumber)
	return sub, err
}

func (s *Store) CreateQuizAttempt(ctx context.Context, a domain.QuizAttempt) error {
	if err := domain.Validate(a); err != nil {
		return err
	}
	_, err := s.q.Exec(ctx, `INSERT INTO quiz_attempts (`+attemptColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.QuizID, a.StudentID, a.Score, a.TotalMarks, a.Passed, a.AttemptDate)
	return mapError("create quiz attempt", err, nil)
}

func (s *Store) ListQuizAttempts(ctx context.Context, studentID, quizID string) ([]domain.QuizAttempt, error) {
	rows, err := s.q.Query(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts WHERE student_id = $1 AND quiz_id = $2 ORDER BY attempt_date, id`, studentID, quizID)
	if err != nil {
		return nil, mapError("list quiz attempts", err, nil)
	}
	out, err := collect(rows, scanAttempt)
	return out, mapError("list quiz attempts", err, nil)
}

func (s *Store) ListQuizAttemptsForStudent(ctx context.Context, studentID string) ([]domain.QuizAttempt, error) {
	rows, err := s.q.Query(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts WHERE student_id = $1 ORDER BY attempt_date, id`, studentID)
	if err != nil {
		return nil, mapError("list quiz attempts", err, nil)
	}
	out, err := collect(rows, scanAttempt)
	return out, mapError("list quiz attempts", err, nil)
}

func (s *Store) GetSubmission(ctx context.Context, submissionID string) (domain.AssignmentSubmission, error) {
	sub, err := scanSubmission(s.q.QueryRow(ctx, `SELECT `+submissionColumns+` FROM assignment_submissions WHERE id = $1`, submissionID))
	return sub, mapError("get submission", err, domain.ErrSubmissionNotFound)
}

// SaveSubmission inserts or replaces the content of the student's submission
// in one statement. xmax is zero only for freshly inserted rows.
func (s *Store) SaveSubmission(ctx context.Context, sub domain.AssignmentSubmission) (domain.AssignmentSubmission, bool, error) {
	if err := domain.Validate(sub); err != nil {
		return domain.AssignmentSubmission{}, false, err
	}
	var (
		saved    domain.AssignmentSubmission
		inserted bool
	)
	err := s.q.QueryRow(ctx, `
		INSERT INTO assignment_submissions (id, assignment_id, student_id, file_url, text_content, link, submitted_at, attempt_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id, assignment_id) DO UPDATE SET
			file_url       = EXCLUDED.file_url,
			text_content   = EXCLUDED.text_content,
			link           = EXCLUDED.link,
			submitted_at   = EXCLUDED.submitted_at,
			attempt_number = assignment_submissions.attempt_number + 1,
			marks_obtained = NULL,
			feedback       = NULL,
			graded_at      = NULL
		RETURNING `+submissionColumns+`, (xmax = 0)`,
		sub.ID, sub.AssignmentID, sub.StudentID, sub.FileURL, sub.Text, sub.Link, sub.SubmittedAt, sub.AttemptNumber).
		Scan(&saved.ID, &saved.AssignmentID, &saved.StudentID, &saved.FileURL, &saved.Text, &saved.Link,
			&saved.SubmittedAt, &saved.MarksObtained, &saved.Feedback, &saved.GradedAt, &saved.AttemptNumber, &inserted)
	if err != nil {
		return domain.AssignmentSubmission{}, false, mapError("save submission", err, nil)
	}
	return saved, inserted, nil
}

func (s *Store) GradeSubmission(ctx context.Context, submissionID string, marks int, feedback string, gradedAt time.Time) (domain.AssignmentSubmission, error) {
	sub, err := scanSubmission(s.q.QueryRow(ctx, `
		UPDATE assignment_submissions SET marks_obtained = $2, feedback = $3, graded_at = $4
		WHERE id = $1
		RETURNING `+submissionColumns, submissionID, marks, feedback, gradedAt))
	return sub, mapError("grade submission", err, domain.ErrSubmissionNotFound)
}

func (s *Store) ListSubmissions(ctx context.Context, studentID, assignmentID string) ([]domain.AssignmentSubmission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+submissionColumns+` FROM assignment_submissions WHERE student_id = $1 AND assignment_id = $2 ORDER BY submitted_at`, studentID, assignmentID)
	if err != nil {
		return nil, mapError("list submissions", err, nil)
	}
	out, err := collect(rows, scanSubmission)
	return out, mapError("list submissions", err, nil)
}

func (s *Store) ListSubmissionsForStudent(ctx context.Context, studentID string) ([]domain.AssignmentSubmission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+submissionColumns+` FROM assignment_submissions WHERE student_id = $1 ORDER BY submitted_at`, studentID)
	if err != nil {
		return nil, mapError("list submissions", err, nil)
	}
	out, err := collect(rows, scanSubmission)
	return out, mapError("list submissions", err, nil)
}

func (s *Store) ListSubmissionsForAssignment(ctx context.Context, assignmentID string) ([]domain.AssignmentSubmission, error) {
	rows, err := s.q.Query(ctx, `SELECT `+submissionColumns+` FROM assignment_submissions WHERE assignment_id = $1 ORDER BY submitted_at`, assignmentID)
	if err != nil {
		return nil, mapError("list submissions", err, nil)
	}
	out, err := collect(rows, scanSubmission)
	return out, mapError("list submissions", err, nil)
}
