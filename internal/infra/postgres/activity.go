package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"

	"lms-progress-service/internal/domain"
)

const activityColumns = `id, student_id, course_id, lesson_id, activity_date, activity_type`

func scanActivity(row pgx.Row) (domain.ActivityLogEntry, error) {
	var e domain.ActivityLogEntry
	err := row.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.LessonID, &e.ActivityDate, &e.ActivityType)
	return e, err
}

func (s *Store) AppendActivity(ctx context.Context, entry domain.ActivityLogEntry) error {
	if err := domain.Validate(entry); err != nil {
		return err
	}
	_, err := s.q.Exec(ctx, `INSERT INTO activity_logs (`+activityColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.StudentID, entry.CourseID, entry.LessonID, entry.ActivityDate, entry.ActivityType)
	return mapError("append activity", err, nil)
}

// ListActivities returns newest entries first. Empty filter fields match
// anything and a zero limit returns every row.
func (s *Store) ListActivities(ctx context.Context, studentID string, filter domain.ActivityFilter) ([]domain.ActivityLogEntry, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+activityColumns+` FROM activity_logs
		WHERE student_id = $1
			AND ($2::text = '' OR course_id = $2)
			AND ($3::text = '' OR lesson_id = $3)
		ORDER BY activity_date DESC, id
		LIMIT NULLIF($4::int, 0)`,
		studentID, filter.CourseID, filter.LessonID, filter.Limit)
	if err != nil {
		return nil, mapError("list activities", err, nil)
	}
	out, err := collect(rows, scanActivity)
	return out, mapError("list activities", err, nil)
}

func (s *Store) ListCourseActivities(ctx context.Context, courseID string) ([]domain.ActivityLogEntry, error) {
	rows, err := s.q.Query(ctx, `SELECT `+activityColumns+` FROM activity_logs WHERE course_id = $1 ORDER BY activity_date DESC, id`, courseID)
	if err != nil {
		return nil, mapError("list course activities", err, nil)
	}
	out, err := collect(rows, scanActivity)
	return out, mapError("list course activities", err, nil)
}

func (s *Store) DeleteActivity(ctx context.Context, logID string) error {
	return s.execOne(ctx, "delete activity", domain.ErrActivityNotFound, `DELETE FROM activity_logs WHERE id = $1`, logID)
}
