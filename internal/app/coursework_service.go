package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/logger"
)

// CourseworkService records quiz attempts and assignment submissions.
type CourseworkService struct {
	store       Store
	quizzes     QuizRepository
	ledger      *Ledger
	enrollments *EnrollmentService
	log         *logger.Logger
	now         func() time.Time
}

func NewCourseworkService(store Store, quizzes QuizRepository, ledger *Ledger, enrollments *EnrollmentService, log *logger.Logger) *CourseworkService {
	return &CourseworkService{
		store:       store,
		quizzes:     quizzes,
		ledger:      ledger,
		enrollments: enrollments,
		log:         log.With("component", "coursework"),
		now:         time.Now,
	}
}

func (s *CourseworkService) WithClock(now func() time.Time) *CourseworkService {
	s.now = now
	return s
}

// SubmitQuizAttempt scores answers (questionID -> optionID) and stores a new attempt.
// Unanswered questions score zero.
func (s *CourseworkService) SubmitQuizAttempt(ctx context.Context, studentID, quizID string, answers map[string]string) (domain.QuizResult, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	score, correct, err := scoreAttempt(quiz, answers)
	if err != nil {
		return domain.QuizResult{}, err
	}

	attempt := domain.QuizAttempt{
		ID:          uuid.NewString(),
		QuizID:      quiz.ID,
		StudentID:   studentID,
		Score:       score,
		TotalMarks:  quiz.TotalMarks(),
		Passed:      score >= quiz.PassingMarks,
		AttemptDate: s.now().UTC(),
	}
	var enrollment domain.Enrollment
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		enrollment, err = currentEnrollment(ctx, tx, studentID, quiz.CourseID)
		if err != nil {
			return err
		}
		if err := domain.Validate(attempt); err != nil {
			return err
		}
		if err := tx.CreateQuizAttempt(ctx, attempt); err != nil {
			return err
		}
		_, err = s.ledger.record(ctx, tx, studentID, domain.ActivityQuizAttempt, quiz.CourseID, "")
		return err
	})
	if err != nil {
		return domain.QuizResult{}, err
	}
	s.log.Info("quiz attempt recorded", "quiz_id", quizID, "student", studentID, "score", score, "passed", attempt.Passed)
	s.enrollments.publish(ctx, enrollment)
	return domain.QuizResult{Attempt: attempt, Correct: correct}, nil
}

// scoreAttempt validates every answer against the quiz and sums the points
// of the correct ones.
func scoreAttempt(quiz domain.Quiz, answers map[string]string) (score, correct int, err error) {
	questions := make(map[string]domain.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions[q.ID] = q
	}
	for questionID, optionID := range answers {
		question, ok := questions[questionID]
		if !ok {
			return 0, 0, domain.ErrQuestionNotFound.Detail("question %s is not part of quiz %s", questionID, quiz.ID)
		}
		var selected *domain.Option
		for i := range question.Options {
			if question.Options[i].ID == optionID {
				selected = &question.Options[i]
				break
			}
		}
		if selected == nil {
			return 0, 0, domain.ErrOptionNotFound.Detail("option %s is not part of question %s", optionID, questionID)
		}
		if selected.Correct {
			score += question.Worth()
			correct++
		}
	}
	return score, correct, nil
}

// ListQuizAttempts returns the student's attempts for a quiz, oldest first.
func (s *CourseworkService) ListQuizAttempts(ctx context.Context, studentID, quizID string) ([]domain.QuizAttempt, error) {
	return s.store.ListQuizAttempts(ctx, studentID, quizID)
}

// SubmitAssignment stores the student's submission. Resubmitting replaces the
// content in place, bumps AttemptNumber and clears any previous grade.
func (s *CourseworkService) SubmitAssignment(ctx context.Context, studentID, assignmentID string, content domain.SubmissionContent) (domain.AssignmentSubmission, error) {
	if content.Empty() {
		return domain.AssignmentSubmission{}, domain.ErrInvalidInput.Detail("submission needs a file, text or link")
	}
	sub := domain.AssignmentSubmission{
		ID:                uuid.NewString(),
		AssignmentID:      assignmentID,
		StudentID:         studentID,
		SubmissionContent: content,
		SubmittedAt:       s.now().UTC(),
		AttemptNumber:     1,
	}
	if err := domain.Validate(sub); err != nil {
		return domain.AssignmentSubmission{}, err
	}

	var (
		saved   domain.AssignmentSubmission
		created bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		assignment, err := tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if _, err := currentEnrollment(ctx, tx, studentID, assignment.CourseID); err != nil {
			return err
		}
		saved, created, err = tx.SaveSubmission(ctx, sub)
		if err != nil {
			return err
		}
		_, err = s.ledger.record(ctx, tx, studentID, domain.ActivitySubmission, assignment.CourseID, "")
		return err
	})
	if err != nil {
		return domain.AssignmentSubmission{}, err
	}
	s.log.Info("assignment submitted", "assignment_id", assignmentID, "student", studentID, "attempt", saved.AttemptNumber, "created", created)
	return saved, nil
}

// GradeSubmission lets the course instructor grade a submission with marks
// between zero and the assignment's maximum.
func (s *CourseworkService) GradeSubmission(ctx context.Context, actor domain.Actor, submissionID string, marks int, feedback string) (domain.AssignmentSubmission, error) {
	var (
		graded     domain.AssignmentSubmission
		enrollment domain.Enrollment
		enrolled   bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		sub, err := tx.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		assignment, err := tx.GetAssignment(ctx, sub.AssignmentID)
		if err != nil {
			return err
		}
		if err := ownsCourse(ctx, tx, actor, assignment.CourseID); err != nil {
			return err
		}
		if marks < 0 || marks > assignment.MaxMarks {
			return domain.ErrInvalidInput.Detail("marks must be between 0 and %d", assignment.MaxMarks)
		}
		graded, err = tx.GradeSubmission(ctx, submissionID, marks, feedback, s.now().UTC())
		if err != nil {
			return err
		}
		enrollment, err = currentEnrollment(ctx, tx, sub.StudentID, assignment.CourseID)
		enrolled = err == nil
		return nil
	})
	if err != nil {
		return domain.AssignmentSubmission{}, err
	}
	s.log.Info("submission graded", "submission_id", submissionID, "marks", marks, "grader", actor.ID)
	if enrolled {
		s.enrollments.publish(ctx, enrollment)
	}
	return graded, nil
}

// ListSubmissions returns a student's submissions for an assignment. Students
// see their own; the course instructor sees anyone's.
func (s *CourseworkService) ListSubmissions(ctx context.Context, actor domain.Actor, studentID, assignmentID string) ([]domain.AssignmentSubmission, error) {
	assignment, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsStudent():
		if studentID != actor.ID {
			return nil, domain.ErrForbidden
		}
	case actor.IsInstructor():
		if err := ownsCourse(ctx, s.store, actor, assignment.CourseID); err != nil {
			return nil, err
		}
	case !actor.IsAdmin():
		return nil, domain.ErrForbidden
	}
	return s.store.ListSubmissions(ctx, studentID, assignmentID)
}

// AssignmentReport summarizes every student's current submission for one
// assignment. Only the course instructor may read it.
func (s *CourseworkService) AssignmentReport(ctx context.Context, actor domain.Actor, assignmentID string) (domain.AssignmentReport, error) {
	assignment, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.AssignmentReport{}, err
	}
	if err := ownsCourse(ctx, s.store, actor, assignment.CourseID); err != nil {
		return domain.AssignmentReport{}, err
	}
	subs, err := s.store.ListSubmissionsForAssignment(ctx, assignmentID)
	if err != nil {
		return domain.AssignmentReport{}, err
	}

	stats := assignmentStats(subs)
	report := domain.AssignmentReport{
		AssignmentID:      assignment.ID,
		CourseID:          assignment.CourseID,
		Title:             assignment.Title,
		MaxMarks:          assignment.MaxMarks,
		TotalSubmissions:  len(subs),
		SubmissionsGraded: stats.SubmissionsGraded,
		AverageMarks:      stats.AverageMarks,
	}
	for _, sub := range subs {
		if sub.MarksObtained == nil {
			continue
		}
		marks := *sub.MarksObtained
		if report.HighestMarks == nil || marks > *report.HighestMarks {
			report.HighestMarks = &marks
		}
		if report.LowestMarks == nil || marks < *report.LowestMarks {
			report.LowestMarks = &marks
		}
	}
	return report, nil
}
