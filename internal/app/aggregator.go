package app

import (
	"context"
	"errors"
	"math"

	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/logger"
)

// ProgressSource is the read surface the aggregator needs. Both the store
// and a transactional view of it satisfy it.
type ProgressSource interface {
	CatalogReader
	LessonProgressStore
	AttemptStore
	SubmissionStore
	ListEnrollmentsForCourse(ctx context.Context, courseID string) ([]domain.Enrollment, error)
}

// Aggregator turns raw per-lesson completion flags into percentages. It never writes.
type Aggregator struct {
	log *logger.Logger
}

func NewAggregator(log *logger.Logger) *Aggregator {
	return &Aggregator{log: log.With("component", "aggregator")}
}

// Percentage is round(100*done/total), with an empty denominator defined as 0.
func Percentage(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// roundedMean averages integer percentages and rounds half away from zero.
func roundedMean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}

// CourseProgress computes section and course completion for one student.
// Records that do not line up with the course structure are skipped and logged.
func (a *Aggregator) CourseProgress(ctx context.Context, src ProgressSource, studentID, courseID string) (domain.CourseProgress, error) {
	out := domain.CourseProgress{CourseID: courseID, StudentID: studentID, Sections: []domain.SectionProgress{}}

	sections, err := src.ListSectionsForCourse(ctx, courseID)
	if err != nil {
		return out, err
	}
	rows, err := src.ListLessonProgress(ctx, studentID)
	if err != nil {
		return out, err
	}
	completed := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.Completed {
			completed[row.LessonID] = true
		}
	}

	sectionIDs := make(map[string]bool, len(sections))
	counted := make(map[string]bool)
	for _, section := range sections {
		if section.CourseID != courseID {
			a.log.Warn("skipping section from another course", "section_id", section.ID, "course_id", courseID)
			out.SkippedRecords++
			continue
		}
		sectionIDs[section.ID] = true

		lessons, err := src.ListLessonsForSection(ctx, section.ID)
		if err != nil {
			return out, err
		}
		sp := domain.SectionProgress{SectionID: section.ID, Title: section.Title, PositionOrder: section.PositionOrder}
		for _, lesson := range lessons {
			if lesson.SectionID != section.ID || counted[lesson.ID] {
				a.log.Warn("skipping inconsistent lesson", "lesson_id", lesson.ID, "section_id", section.ID)
				out.SkippedRecords++
				continue
			}
			counted[lesson.ID] = true
			sp.TotalLessons++
			if completed[lesson.ID] {
				sp.CompletedLessons++
			}
		}
		sp.Percentage = Percentage(sp.CompletedLessons, sp.TotalLessons)
		out.TotalLessons += sp.TotalLessons
		out.CompletedLessons += sp.CompletedLessons
		out.Sections = append(out.Sections, sp)
	}
	out.Percentage = Percentage(out.CompletedLessons, out.TotalLessons)

	for _, row := range rows {
		if counted[row.LessonID] {
			continue
		}
		skipped, err := a.checkStray(ctx, src, row, sectionIDs)
		if err != nil {
			return out, err
		}
		if skipped {
			out.SkippedRecords++
		}
	}
	return out, nil
}

// checkStray looks at a progress row that did not count toward the course.
// Rows for other courses are fine; rows for deleted lessons are orphans.
func (a *Aggregator) checkStray(ctx context.Context, src ProgressSource, row domain.LessonProgress, sectionIDs map[string]bool) (bool, error) {
	lesson, err := src.GetLesson(ctx, row.LessonID)
	switch {
	case errors.Is(err, domain.ErrLessonNotFound):
		a.log.Warn("skipping orphaned lesson progress", "lesson_id", row.LessonID, "student", row.StudentID)
		return true, nil
	case err != nil:
		return false, err
	}
	if sectionIDs[lesson.SectionID] {
		a.log.Warn("lesson progress not reachable from section listing", "lesson_id", lesson.ID, "section_id", lesson.SectionID)
		return true, nil
	}
	return false, nil
}

// CourseAverage applies CourseProgress to every Active or Completed enrollment
// and averages the per-student percentages, so the instructor view always
// equals the mean of the student views.
func (a *Aggregator) CourseAverage(ctx context.Context, src ProgressSource, courseID string) (int, []StudentResult, error) {
	enrollments, err := src.ListEnrollmentsForCourse(ctx, courseID)
	if err != nil {
		return 0, nil, err
	}
	results := make([]StudentResult, 0, len(enrollments))
	values := make([]int, 0, len(enrollments))
	for _, e := range enrollments {
		if !e.Counts() {
			continue
		}
		cp, err := a.CourseProgress(ctx, src, e.StudentID, courseID)
		if err != nil {
			return 0, nil, err
		}
		results = append(results, StudentResult{Enrollment: e, Progress: cp})
		values = append(values, cp.Percentage)
	}
	return roundedMean(values), results, nil
}

// StudentResult pairs an enrollment with its live progress.
type StudentResult struct {
	Enrollment domain.Enrollment
	Progress   domain.CourseProgress
}

// QuizStats averages over every attempt of the course's quizzes.
// An empty courseID covers all of the student's attempts.
func (a *Aggregator) QuizStats(ctx context.Context, src ProgressSource, studentID, courseID string) (domain.QuizStats, error) {
	if courseID == "" {
		attempts, err := src.ListQuizAttemptsForStudent(ctx, studentID)
		if err != nil {
			return domain.QuizStats{}, err
		}
		return quizStats(attempts), nil
	}
	quizzes, err := src.ListQuizzesForCourse(ctx, courseID)
	if err != nil {
		return domain.QuizStats{}, err
	}
	var attempts []domain.QuizAttempt
	for _, quiz := range quizzes {
		list, err := src.ListQuizAttempts(ctx, studentID, quiz.ID)
		if err != nil {
			return domain.QuizStats{}, err
		}
		attempts = append(attempts, list...)
	}
	return quizStats(attempts), nil
}

func quizStats(attempts []domain.QuizAttempt) domain.QuizStats {
	stats := domain.QuizStats{Attempts: len(attempts)}
	if len(attempts) == 0 {
		return stats
	}
	taken := make(map[string]bool)
	passed := make(map[string]bool)
	sum := 0
	for _, at := range attempts {
		taken[at.QuizID] = true
		if at.Passed {
			passed[at.QuizID] = true
		}
		sum += at.Score
	}
	stats.QuizzesTaken = len(taken)
	stats.PassedQuizzes = len(passed)
	stats.AverageScore = round2(float64(sum) / float64(len(attempts)))
	return stats
}

// AssignmentStats reports submissions and the average over graded ones.
// An empty courseID covers all of the student's submissions.
func (a *Aggregator) AssignmentStats(ctx context.Context, src ProgressSource, studentID, courseID string) (domain.AssignmentStats, error) {
	if courseID == "" {
		subs, err := src.ListSubmissionsForStudent(ctx, studentID)
		if err != nil {
			return domain.AssignmentStats{}, err
		}
		return assignmentStats(subs), nil
	}
	assignments, err := src.ListAssignmentsForCourse(ctx, courseID)
	if err != nil {
		return domain.AssignmentStats{}, err
	}
	var subs []domain.AssignmentSubmission
	for _, as := range assignments {
		list, err := src.ListSubmissions(ctx, studentID, as.ID)
		if err != nil {
			return domain.AssignmentStats{}, err
		}
		subs = append(subs, list...)
	}
	return assignmentStats(subs), nil
}

func assignmentStats(subs []domain.AssignmentSubmission) domain.AssignmentStats {
	stats := domain.AssignmentStats{}
	submitted := make(map[string]bool)
	sum := 0
	for _, sub := range subs {
		submitted[sub.AssignmentID] = true
		if sub.MarksObtained != nil {
			stats.SubmissionsGraded++
			sum += *sub.MarksObtained
		}
	}
	stats.AssignmentsSubmitted = len(submitted)
	if stats.SubmissionsGraded > 0 {
		stats.AverageMarks = round2(float64(sum) / float64(stats.SubmissionsGraded))
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
