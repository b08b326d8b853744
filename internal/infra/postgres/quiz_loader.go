package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"

	"lms-progress-service/internal/domain"
)

// Quiz content is stored as JSONB; course_id is duplicated into its own
// column for listing.

func decodeQuiz(raw []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// LoadQuiz lets the store back the quiz caches.
func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		raw      []byte
		courseID string
	)
	err := s.q.QueryRow(ctx, `SELECT data, course_id FROM quizzes WHERE id = $1`, quizID).Scan(&raw, &courseID)
	if err != nil {
		return domain.Quiz{}, mapError("load quiz", err, domain.ErrQuizNotFound)
	}
	quiz, err := decodeQuiz(raw)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.ID, quiz.CourseID = quizID, courseID
	return quiz, nil
}

func (s *Store) ListQuizzesForCourse(ctx context.Context, courseID string) ([]domain.Quiz, error) {
	rows, err := s.q.Query(ctx, `SELECT id, data FROM quizzes WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, mapError("list quizzes", err, nil)
	}
	out, err := collect(rows, func(row pgx.Row) (domain.Quiz, error) {
		var (
			id  string
			raw []byte
		)
		if err := row.Scan(&id, &raw); err != nil {
			return domain.Quiz{}, err
		}
		quiz, err := decodeQuiz(raw)
		quiz.ID, quiz.CourseID = id, courseID
		return quiz, err
	})
	return out, mapError("list quizzes", err, nil)
}

// PutQuiz stores quiz content. The course CRUD service normally owns this
// table; the method exists for seeding and tests.
func (s *Store) PutQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := domain.Validate(quiz); err != nil {
		return err
	}
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO quizzes (id, course_id, data) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET course_id = EXCLUDED.course_id, data = EXCLUDED.data`,
		quiz.ID, quiz.CourseID, raw)
	return mapError("put quiz", err, nil)
}
