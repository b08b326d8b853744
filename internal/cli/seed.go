package cli

import (
	"time"

	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/infra/memory"
)

// seedDemoCatalog fills an in-memory store with one published course so the
// service is usable without a database.
func seedDemoCatalog(store *memory.Store) error {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	steps := []error{
		store.PutCourse(domain.Course{ID: "course-go", TeacherID: "teacher-1", Title: "Go Fundamentals", Status: domain.CoursePublished, CreatedAt: created}),
		store.PutStudent(domain.Student{ID: "student-1", FullName: "Demo Student", Status: domain.StudentActive}),
		store.PutSection(domain.Section{ID: "sec-basics", CourseID: "course-go", Title: "Basics", PositionOrder: 1}),
		store.PutSection(domain.Section{ID: "sec-concurrency", CourseID: "course-go", Title: "Concurrency", PositionOrder: 2}),
		store.PutLesson(domain.Lesson{ID: "les-syntax", SectionID: "sec-basics", Title: "Syntax", PositionOrder: 1}),
		store.PutLesson(domain.Lesson{ID: "les-types", SectionID: "sec-basics", Title: "Types", PositionOrder: 2}),
		store.PutLesson(domain.Lesson{ID: "les-goroutines", SectionID: "sec-concurrency", Title: "Goroutines", PositionOrder: 1}),
		store.PutLesson(domain.Lesson{ID: "les-channels", SectionID: "sec-concurrency", Title: "Channels", PositionOrder: 2}),
		store.PutQuiz(domain.Quiz{
			ID:           "quiz-1",
			CourseID:     "course-go",
			Title:        "Basics check",
			PassingMarks: 1,
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
					Points: 1,
				},
			},
		}),
		store.PutAssignment(domain.Assignment{ID: "assign-1", CourseID: "course-go", Title: "Worker pool", MaxMarks: 100}),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	return nil
}
