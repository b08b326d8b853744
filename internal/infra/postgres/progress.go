package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"

	"lms-progress-service/internal/domain"
)

const progressColumns = `student_id, lesson_id, completed, last_position, time_spent, completed_at, updated_at`

func scanProgress(row pgx.Row) (domain.LessonProgress, error) {
	var p domain.LessonProgress
	err := row.Scan(&p.StudentID, &p.LessonID, &p.Completed, &p.LastPosition, &p.TimeSpent, &p.CompletedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) GetLessonProgress(ctx context.Context, studentID, lessonID string) (domain.LessonProgress, error) {
	p, err := scanProgress(s.q.QueryRow(ctx, `SELECT `+progressColumns+` FROM lesson_progress WHERE student_id = $1 AND lesson_id = $2`, studentID, lessonID))
	return p, mapError("get lesson progress", err, domain.ErrProgressNotFound)
}

// UpsertLessonProgress adds time_spent in the database so concurrent reports
// for the same lesson never lose time. completed_at is stamped on the first
// completion and cleared when the lesson is marked incomplete.
func (s *Store) UpsertLessonProgress(ctx context.Context, studentID, lessonID string, delta domain.ProgressDelta, now time.Time) (domain.LessonProgress, error) {
	if err := domain.Validate(delta); err != nil {
		return domain.LessonProgress{}, err
	}
	if _, err := s.GetLesson(ctx, lessonID); err != nil {
		return domain.LessonProgress{}, err
	}
	if _, err := s.GetStudent(ctx, studentID); err != nil {
		return domain.LessonProgress{}, err
	}

	p, err := scanProgress(s.q.QueryRow(ctx, `
		INSERT INTO lesson_progress (`+progressColumns+`)
		VALUES ($1, $2, $3::boolean, $4, $5, CASE WHEN $3::boolean THEN $6::timestamptz END, $6::timestamptz)
		ON CONFLICT (student_id, lesson_id) DO UPDATE SET
			completed     = EXCLUDED.completed,
			last_position = EXCLUDED.last_position,
			time_spent    = lesson_progress.time_spent + EXCLUDED.time_spent,
			completed_at  = CASE
				WHEN NOT EXCLUDED.completed THEN NULL
				WHEN lesson_progress.completed THEN lesson_progress.completed_at
				ELSE EXCLUDED.updated_at
			END,
			updated_at    = EXCLUDED.updated_at
		RETURNING `+progressColumns,
		studentID, lessonID, delta.Completed, delta.LastPosition, delta.TimeSpent, now))
	return p, mapError("upsert lesson progress", err, nil)
}

func (s *Store) ListLessonProgress(ctx context.Context, studentID string) ([]domain.LessonProgress, error) {
	rows, err := s.q.Query(ctx, `SELECT `+progressColumns+` FROM lesson_progress WHERE student_id = $1 ORDER BY lesson_id`, studentID)
	if err != nil {
		return nil, mapError("list lesson progress", err, nil)
	}
	out, err := collect(rows, scanProgress)
	return out, mapError("list lesson progress", err, nil)
}
