package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"

	"lms-progress-service/internal/domain"
)

const (
	courseColumns  = `id, teacher_id, title, status, created_at`
	sectionColumns = `id, course_id, title, position_order`
	lessonColumns  = `id, section_id, title, content_type, content_url, position_order`
)

func scanCourse(row pgx.Row) (domain.Course, error) {
	var c domain.Course
	err := row.Scan(&c.ID, &c.TeacherID, &c.Title, &c.Status, &c.CreatedAt)
	return c, err
}

func scanSection(row pgx.Row) (domain.Section, error) {
	var sec domain.Section
	err := row.Scan(&sec.ID, &sec.CourseID, &sec.Title, &sec.PositionOrder)
	return sec, err
}

func scanLesson(row pgx.Row) (domain.Lesson, error) {
	var l domain.Lesson
	err := row.Scan(&l.ID, &l.SectionID, &l.Title, &l.ContentType, &l.ContentURL, &l.PositionOrder)
	return l, err
}

func (s *Store) GetCourse(ctx context.Context, courseID string) (domain.Course, error) {
	c, err := scanCourse(s.q.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, courseID))
	return c, mapError("get course", err, domain.ErrCourseNotFound)
}

func (s *Store) ListCoursesForTeacher(ctx context.Context, teacherID string) ([]domain.Course, error) {
	rows, err := s.q.Query(ctx, `SELECT `+courseColumns+` FROM courses WHERE teacher_id = $1 ORDER BY created_at, id`, teacherID)
	if err != nil {
		return nil, mapError("list courses", err, nil)
	}
	out, err := collect(rows, scanCourse)
	return out, mapError("list courses", err, nil)
}

func (s *Store) GetStudent(ctx context.Context, studentID string) (domain.Student, error) {
	var st domain.Student
	err := s.q.QueryRow(ctx, `SELECT id, full_name, email, status FROM students WHERE id = $1`, studentID).
		Scan(&st.ID, &st.FullName, &st.Email, &st.Status)
	return st, mapError("get student", err, domain.ErrStudentNotFound)
}

func (s *Store) GetSection(ctx context.Context, sectionID string) (domain.Section, error) {
	sec, err := scanSection(s.q.QueryRow(ctx, `SELECT `+sectionColumns+` FROM sections WHERE id = $1`, sectionID))
	return sec, mapError("get section", err, domain.ErrSectionNotFound)
}

func (s *Store) ListSectionsForCourse(ctx context.Context, courseID string) ([]domain.Section, error) {
	rows, err := s.q.Query(ctx, `SELECT `+sectionColumns+` FROM sections WHERE course_id = $1 ORDER BY position_order, id`, courseID)
	if err != nil {
		return nil, mapError("list sections", err, nil)
	}
	out, err := collect(rows, scanSection)
	return out, mapError("list sections", err, nil)
}

func (s *Store) GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error) {
	l, err := scanLesson(s.q.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, lessonID))
	return l, mapError("get lesson", err, domain.ErrLessonNotFound)
}

func (s *Store) ListLessonsForSection(ctx context.Context, sectionID string) ([]domain.Lesson, error) {
	rows, err := s.q.Query(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE section_id = $1 ORDER BY position_order, id`, sectionID)
	if err != nil {
		return nil, mapError("list lessons", err, nil)
	}
	out, err := collect(rows, scanLesson)
	return out, mapError("list lessons", err, nil)
}

func (s *Store) GetAssignment(ctx context.Context, assignmentID string) (domain.Assignment, error) {
	var a domain.Assignment
	err := s.q.QueryRow(ctx, `SELECT id, course_id, title, max_marks FROM assignments WHERE id = $1`, assignmentID).
		Scan(&a.ID, &a.CourseID, &a.Title, &a.MaxMarks)
	return a, mapError("get assignment", err, domain.ErrAssignmentNotFound)
}

func (s *Store) ListAssignmentsForCourse(ctx context.Context, courseID string) ([]domain.Assignment, error) {
	rows, err := s.q.Query(ctx, `SELECT id, course_id, title, max_marks FROM assignments WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, mapError("list assignments", err, nil)
	}
	out, err := collect(rows, func(row pgx.Row) (domain.Assignment, error) {
		var a domain.Assignment
		err := row.Scan(&a.ID, &a.CourseID, &a.Title, &a.MaxMarks)
		return a, err
	})
	return out, mapError("list assignments", err, nil)
}
