package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
)

// Store is an in-memory implementation of app.Store. All access is
// serialized by one mutex; WithinTx holds it for the whole callback and
// restores a snapshot when the callback fails.
type Store struct {
	mu   *sync.Mutex
	t    *tables
	inTx bool
}

var _ app.Store = (*Store)(nil)

type progressKey struct {
	studentID string
	lessonID  string
}

type tables struct {
	courses      map[string]domain.Course
	students     map[string]domain.Student
	sections     map[string]domain.Section
	lessons      map[string]domain.Lesson
	quizzes      map[string]domain.Quiz
	assignments  map[string]domain.Assignment
	enrollments  map[string]domain.Enrollment
	certificates map[string]domain.Certificate // by enrollment id
	progress     map[progressKey]domain.LessonProgress
	attempts     []domain.QuizAttempt
	submissions  map[string]domain.AssignmentSubmission
	activities   []domain.ActivityLogEntry
}

func newTables() *tables {
	return &tables{
		courses:      make(map[string]domain.Course),
		students:     make(map[string]domain.Student),
		sections:     make(map[string]domain.Section),
		lessons:      make(map[string]domain.Lesson),
		quizzes:      make(map[string]domain.Quiz),
		assignments:  make(map[string]domain.Assignment),
		enrollments:  make(map[string]domain.Enrollment),
		certificates: make(map[string]domain.Certificate),
		progress:     make(map[progressKey]domain.LessonProgress),
		submissions:  make(map[string]domain.AssignmentSubmission),
	}
}

func (t *tables) clone() *tables {
	out := newTables()
	copyMap(out.courses, t.courses)
	copyMap(out.students, t.students)
	copyMap(out.sections, t.sections)
	copyMap(out.lessons, t.lessons)
	copyMap(out.quizzes, t.quizzes)
	copyMap(out.assignments, t.assignments)
	copyMap(out.enrollments, t.enrollments)
	copyMap(out.certificates, t.certificates)
	copyMap(out.progress, t.progress)
	copyMap(out.submissions, t.submissions)
	out.attempts = append([]domain.QuizAttempt(nil), t.attempts...)
	out.activities = append([]domain.ActivityLogEntry(nil), t.activities...)
	return out
}

func copyMap[K comparable, V any](dst, src map[K]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, t: newTables()}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	tx := &Store{mu: s.mu, t: s.t, inTx: true}
	if err := fn(ctx, tx); err != nil {
		*s.t = *snapshot
		return err
	}
	return nil
}

// Seeding. Catalog data is owned by another service; these stand in for it.

func (s *Store) PutCourse(c domain.Course) error {
	if err := domain.Validate(c); err != nil {
		return err
	}
	defer s.lock()()
	s.t.courses[c.ID] = c
	return nil
}

func (s *Store) PutStudent(st domain.Student) error {
	if err := domain.Validate(st); err != nil {
		return err
	}
	defer s.lock()()
	s.t.students[st.ID] = st
	return nil
}

func (s *Store) PutSection(sec domain.Section) error {
	if err := domain.Validate(sec); err != nil {
		return err
	}
	defer s.lock()()
	s.t.sections[sec.ID] = sec
	return nil
}

func (s *Store) PutLesson(l domain.Lesson) error {
	if err := domain.Validate(l); err != nil {
		return err
	}
	defer s.lock()()
	s.t.lessons[l.ID] = l
	return nil
}

func (s *Store) PutQuiz(q domain.Quiz) error {
	if err := domain.Validate(q); err != nil {
		return err
	}
	defer s.lock()()
	s.t.quizzes[q.ID] = q
	return nil
}

func (s *Store) PutAssignment(a domain.Assignment) error {
	if err := domain.Validate(a); err != nil {
		return err
	}
	defer s.lock()()
	s.t.assignments[a.ID] = a
	return nil
}

// DeleteLesson removes a lesson but keeps any progress rows pointing at it.
func (s *Store) DeleteLesson(lessonID string) {
	defer s.lock()()
	delete(s.t.lessons, lessonID)
}

// DeleteSection removes a section and its lessons.
func (s *Store) DeleteSection(sectionID string) {
	defer s.lock()()
	delete(s.t.sections, sectionID)
	for id, l := range s.t.lessons {
		if l.SectionID == sectionID {
			delete(s.t.lessons, id)
		}
	}
}

// LoadQuiz lets the store back a quiz cache.
func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	defer s.lock()()
	q, ok := s.t.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, nil
}

// Catalog

func (s *Store) GetCourse(_ context.Context, courseID string) (domain.Course, error) {
	defer s.lock()()
	c, ok := s.t.courses[courseID]
	if !ok {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return c, nil
}

func (s *Store) ListCoursesForTeacher(_ context.Context, teacherID string) ([]domain.Course, error) {
	defer s.lock()()
	out := []domain.Course{}
	for _, c := range s.t.courses {
		if c.TeacherID == teacherID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetStudent(_ context.Context, studentID string) (domain.Student, error) {
	defer s.lock()()
	st, ok := s.t.students[studentID]
	if !ok {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	return st, nil
}

func (s *Store) GetSection(_ context.Context, sectionID string) (domain.Section, error) {
	defer s.lock()()
	sec, ok := s.t.sections[sectionID]
	if !ok {
		return domain.Section{}, domain.ErrSectionNotFound
	}
	return sec, nil
}

func (s *Store) ListSectionsForCourse(_ context.Context, courseID string) ([]domain.Section, error) {
	defer s.lock()()
	out := []domain.Section{}
	for _, sec := range s.t.sections {
		if sec.CourseID == courseID {
			out = append(out, sec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PositionOrder != out[j].PositionOrder {
			return out[i].PositionOrder < out[j].PositionOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetLesson(_ context.Context, lessonID string) (domain.Lesson, error) {
	defer s.lock()()
	l, ok := s.t.lessons[lessonID]
	if !ok {
		return domain.Lesson{}, domain.ErrLessonNotFound
	}
	return l, nil
}

func (s *Store) ListLessonsForSection(_ context.Context, sectionID string) ([]domain.Lesson, error) {
	defer s.lock()()
	out := []domain.Lesson{}
	for _, l := range s.t.lessons {
		if l.SectionID == sectionID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PositionOrder != out[j].PositionOrder {
			return out[i].PositionOrder < out[j].PositionOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListQuizzesForCourse(_ context.Context, courseID string) ([]domain.Quiz, error) {
	defer s.lock()()
	out := []domain.Quiz{}
	for _, q := range s.t.quizzes {
		if q.CourseID == courseID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetAssignment(_ context.Context, assignmentID string) (domain.Assignment, error) {
	defer s.lock()()
	a, ok := s.t.assignments[assignmentID]
	if !ok {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	return a, nil
}

func (s *Store) ListAssignmentsForCourse(_ context.Context, courseID string) ([]domain.Assignment, error) {
	defer s.lock()()
	out := []domain.Assignment{}
	for _, a := range s.t.assignments {
		if a.CourseID == courseID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Enrollments

func (s *Store) GetEnrollment(_ context.Context, studentID, courseID string) (domain.Enrollment, error) {
	defer s.lock()()
	var (
		latest domain.Enrollment
		found  bool
	)
	for _, e := range s.t.enrollments {
		if e.StudentID != studentID || e.CourseID != courseID {
			continue
		}
		if e.Counts() {
			return e, nil
		}
		if !found || e.EnrollDate.After(latest.EnrollDate) {
			latest, found = e, true
		}
	}
	if !found {
		return domain.Enrollment{}, domain.ErrEnrollmentNotFound
	}
	return latest, nil
}

func (s *Store) GetEnrollmentByID(_ context.Context, enrollmentID string) (domain.Enrollment, error) {
	defer s.lock()()
	e, ok := s.t.enrollments[enrollmentID]
	if !ok {
		return domain.Enrollment{}, domain.ErrEnrollmentNotFound
	}
	return e, nil
}

func (s *Store) ListEnrollmentsForStudent(_ context.Context, studentID string) ([]domain.Enrollment, error) {
	defer s.lock()()
	return s.t.filterEnrollments(func(e domain.Enrollment) bool { return e.StudentID == studentID }), nil
}

func (s *Store) ListEnrollmentsForCourse(_ context.Context, courseID string) ([]domain.Enrollment, error) {
	defer s.lock()()
	return s.t.filterEnrollments(func(e domain.Enrollment) bool { return e.CourseID == courseID }), nil
}

func (t *tables) filterEnrollments(keep func(domain.Enrollment) bool) []domain.Enrollment {
	out := []domain.Enrollment{}
	for _, e := range t.enrollments {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnrollDate.Equal(out[j].EnrollDate) {
			return out[i].EnrollDate.Before(out[j].EnrollDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CreateEnrollment rejects a second Active or Completed enrollment for the pair.
func (s *Store) CreateEnrollment(_ context.Context, e domain.Enrollment) error {
	if err := domain.Validate(e); err != nil {
		return err
	}
	defer s.lock()()
	for _, other := range s.t.enrollments {
		if other.StudentID == e.StudentID && other.CourseID == e.CourseID && other.Counts() && e.Counts() {
			return domain.ErrAlreadyEnrolled
		}
	}
	s.t.enrollments[e.ID] = e
	return nil
}

func (s *Store) SaveEnrollmentProgress(_ context.Context, enrollmentID string, percentage int, status domain.EnrollmentStatus, completionDate *time.Time) error {
	defer s.lock()()
	e, ok := s.t.enrollments[enrollmentID]
	if !ok {
		return domain.ErrEnrollmentNotFound
	}
	e.ProgressPercentage, e.Status, e.CompletionDate = percentage, status, completionDate
	if err := domain.Validate(e); err != nil {
		return err
	}
	s.t.enrollments[enrollmentID] = e
	return nil
}

func (s *Store) SetEnrollmentStatus(_ context.Context, enrollmentID string, status domain.EnrollmentStatus) error {
	defer s.lock()()
	e, ok := s.t.enrollments[enrollmentID]
	if !ok {
		return domain.ErrEnrollmentNotFound
	}
	e.Status = status
	if err := domain.Validate(e); err != nil {
		return err
	}
	s.t.enrollments[enrollmentID] = e
	return nil
}

func (s *Store) MarkCertificateIssued(_ context.Context, enrollmentID string) error {
	defer s.lock()()
	e, ok := s.t.enrollments[enrollmentID]
	if !ok {
		return domain.ErrEnrollmentNotFound
	}
	e.CertificateIssued = true
	s.t.enrollments[enrollmentID] = e
	return nil
}

// DeleteEnrollment removes the enrollment and its certificate. Lesson
// progress, attempts and submissions stay.
func (s *Store) DeleteEnrollment(_ context.Context, enrollmentID string) error {
	defer s.lock()()
	if _, ok := s.t.enrollments[enrollmentID]; !ok {
		return domain.ErrEnrollmentNotFound
	}
	delete(s.t.enrollments, enrollmentID)
	delete(s.t.certificates, enrollmentID)
	return nil
}

func (s *Store) GetCertificateForEnrollment(_ context.Context, enrollmentID string) (domain.Certificate, error) {
	defer s.lock()()
	c, ok := s.t.certificates[enrollmentID]
	if !ok {
		return domain.Certificate{}, domain.ErrCertificateMissing
	}
	return c, nil
}

func (s *Store) ListCertificatesForStudent(_ context.Context, studentID string) ([]domain.Certificate, error) {
	defer s.lock()()
	out := []domain.Certificate{}
	for _, c := range s.t.certificates {
		if c.StudentID == studentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.After(out[j].IssuedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateCertificate(_ context.Context, c domain.Certificate) error {
	if err := domain.Validate(c); err != nil {
		return err
	}
	defer s.lock()()
	if _, ok := s.t.enrollments[c.EnrollmentID]; !ok {
		return domain.ErrEnrollmentNotFound
	}
	if _, ok := s.t.certificates[c.EnrollmentID]; ok {
		return domain.ErrAlreadyEnrolled.Detail("certificate already issued for enrollment %s", c.EnrollmentID)
	}
	s.t.certificates[c.EnrollmentID] = c
	return nil
}

// Lesson progress

func (s *Store) GetLessonProgress(_ context.Context, studentID, lessonID string) (domain.LessonProgress, error) {
	defer s.lock()()
	p, ok := s.t.progress[progressKey{studentID, lessonID}]
	if !ok {
		return domain.LessonProgress{}, domain.ErrProgressNotFound
	}
	return p, nil
}

func (s *Store) UpsertLessonProgress(_ context.Context, studentID, lessonID string, delta domain.ProgressDelta, now time.Time) (domain.LessonProgress, error) {
	if err := domain.Validate(delta); err != nil {
		return domain.LessonProgress{}, err
	}
	defer s.lock()()
	if _, ok := s.t.lessons[lessonID]; !ok {
		return domain.LessonProgress{}, domain.ErrLessonNotFound
	}
	if _, ok := s.t.students[studentID]; !ok {
		return domain.LessonProgress{}, domain.ErrStudentNotFound
	}

	key := progressKey{studentID, lessonID}
	p, ok := s.t.progress[key]
	if !ok {
		p = domain.LessonProgress{StudentID: studentID, LessonID: lessonID}
	}
	switch {
	case delta.Completed && !p.Completed:
		completedAt := now
		p.CompletedAt = &completedAt
	case !delta.Completed:
		p.CompletedAt = nil
	}
	p.Completed = delta.Completed
	p.LastPosition = delta.LastPosition
	p.TimeSpent += delta.TimeSpent
	p.UpdatedAt = now
	s.t.progress[key] = p
	return p, nil
}

func (s *Store) ListLessonProgress(_ context.Context, studentID string) ([]domain.LessonProgress, error) {
	defer s.lock()()
	out := []domain.LessonProgress{}
	for key, p := range s.t.progress {
		if key.studentID == studentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessonID < out[j].LessonID })
	return out, nil
}

// Quiz attempts

func (s *Store) CreateQuizAttempt(_ context.Context, a domain.QuizAttempt) error {
	if err := domain.Validate(a); err != nil {
		return err
	}
	defer s.lock()()
	s.t.attempts = append(s.t.attempts, a)
	return nil
}

func (s *Store) ListQuizAttempts(_ context.Context, studentID, quizID string) ([]domain.QuizAttempt, error) {
	defer s.lock()()
	out := []domain.QuizAttempt{}
	for _, a := range s.t.attempts {
		if a.StudentID == studentID && a.QuizID == quizID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListQuizAttemptsForStudent(_ context.Context, studentID string) ([]domain.QuizAttempt, error) {
	defer s.lock()()
	out := []domain.QuizAttempt{}
	for _, a := range s.t.attempts {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

// Submissions

func (s *Store) GetSubmission(_ context.Context, submissionID string) (domain.AssignmentSubmission, error) {
	defer s.lock()()
	sub, ok := s.t.submissions[submissionID]
	if !ok {
		return domain.AssignmentSubmission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *Store) SaveSubmission(_ context.Context, sub domain.AssignmentSubmission) (domain.AssignmentSubmission, bool, error) {
	if err := domain.Validate(sub); err != nil {
		return domain.AssignmentSubmission{}, false, err
	}
	defer s.lock()()
	for id, existing := range s.t.submissions {
		if existing.StudentID != sub.StudentID || existing.AssignmentID != sub.AssignmentID {
			continue
		}
		existing.SubmissionContent = sub.SubmissionContent
		existing.SubmittedAt = sub.SubmittedAt
		existing.AttemptNumber++
		existing.MarksObtained, existing.Feedback, existing.GradedAt = nil, nil, nil
		s.t.submissions[id] = existing
		return existing, false, nil
	}
	s.t.submissions[sub.ID] = sub
	return sub, true, nil
}

func (s *Store) GradeSubmission(_ context.Context, submissionID string, marks int, feedback string, gradedAt time.Time) (domain.AssignmentSubmission, error) {
	defer s.lock()()
	sub, ok := s.t.submissions[submissionID]
	if !ok {
		return domain.AssignmentSubmission{}, domain.ErrSubmissionNotFound
	}
	sub.MarksObtained, sub.Feedback, sub.GradedAt = &marks, &feedback, &gradedAt
	s.t.submissions[submissionID] = sub
	return sub, nil
}

func (s *Store) ListSubmissions(_ context.Context, studentID, assignmentID string) ([]domain.AssignmentSubmission, error) {
	defer s.lock()()
	return s.t.filterSubmissions(func(sub domain.AssignmentSubmission) bool {
		return sub.StudentID == studentID && sub.AssignmentID == assignmentID
	}), nil
}

func (s *Store) ListSubmissionsForStudent(_ context.Context, studentID string) ([]domain.AssignmentSubmission, error) {
	defer s.lock()()
	return s.t.filterSubmissions(func(sub domain.AssignmentSubmission) bool { return sub.StudentID == studentID }), nil
}

func (s *Store) ListSubmissionsForAssignment(_ context.Context, assignmentID string) ([]domain.AssignmentSubmission, error) {
	defer s.lock()()
	return s.t.filterSubmissions(func(sub domain.AssignmentSubmission) bool { return sub.AssignmentID == assignmentID }), nil
}

func (t *tables) filterSubmissions(keep func(domain.AssignmentSubmission) bool) []domain.AssignmentSubmission {
	out := []domain.AssignmentSubmission{}
	for _, sub := range t.submissions {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

// Activity ledger

func (s *Store) AppendActivity(_ context.Context, entry domain.ActivityLogEntry) error {
	if err := domain.Validate(entry); err != nil {
		return err
	}
	defer s.lock()()
	s.t.activities = append(s.t.activities, entry)
	return nil
}

func (s *Store) ListActivities(_ context.Context, studentID string, filter domain.ActivityFilter) ([]domain.ActivityLogEntry, error) {
	defer s.lock()()
	out := []domain.ActivityLogEntry{}
	for i := len(s.t.activities) - 1; i >= 0; i-- {
		e := s.t.activities[i]
		if e.StudentID != studentID {
			continue
		}
		if filter.CourseID != "" && (e.CourseID == nil || *e.CourseID != filter.CourseID) {
			continue
		}
		if filter.LessonID != "" && (e.LessonID == nil || *e.LessonID != filter.LessonID) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ActivityDate.After(out[j].ActivityDate) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ListCourseActivities(_ context.Context, courseID string) ([]domain.ActivityLogEntry, error) {
	defer s.lock()()
	out := []domain.ActivityLogEntry{}
	for i := len(s.t.activities) - 1; i >= 0; i-- {
		if e := s.t.activities[i]; e.CourseID != nil && *e.CourseID == courseID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ActivityDate.After(out[j].ActivityDate) })
	return out, nil
}

func (s *Store) DeleteActivity(_ context.Context, logID string) error {
	defer s.lock()()
	for i, e := range s.t.activities {
		if e.ID == logID {
			s.t.activities = append(s.t.activities[:i], s.t.activities[i+1:]...)
			return nil
		}
	}
	return domain.ErrActivityNotFound
}
