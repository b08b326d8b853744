package domain

import "time"

// Role is the caller role supplied by the upstream auth layer.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Actor identifies the caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsStudent() bool    { return a.Role == RoleStudent }
func (a Actor) IsInstructor() bool { return a.Role == RoleInstructor }
func (a Actor) IsAdmin() bool      { return a.Role == RoleAdmin }

type CourseStatus string

const (
	CourseDraft     CourseStatus = "Draft"
	CoursePublished CourseStatus = "Published"
	CourseArchived  CourseStatus = "Archived"
)

// Course is reference data owned by the course CRUD service.
type Course struct {
	ID        string       `json:"id" validate:"required"`
	TeacherID string       `json:"teacherId" validate:"required"`
	Title     string       `json:"title"`
	Status    CourseStatus `json:"status" validate:"oneof=Draft Published Archived"`
	CreatedAt time.Time    `json:"createdAt"`
}

type StudentStatus string

const (
	StudentActive  StudentStatus = "Active"
	StudentBlocked StudentStatus = "Blocked"
)

type Student struct {
	ID       string        `json:"id" validate:"required"`
	FullName string        `json:"fullName"`
	Email    string        `json:"email"`
	Status   StudentStatus `json:"status" validate:"oneof=Active Blocked"`
}

// Section is an ordered grouping of lessons within a course.
type Section struct {
	ID            string `json:"id" validate:"required"`
	CourseID      string `json:"courseId" validate:"required"`
	Title         string `json:"title"`
	PositionOrder int    `json:"positionOrder"`
}

type Lesson struct {
	ID            string `json:"id" validate:"required"`
	SectionID     string `json:"sectionId" validate:"required"`
	Title         string `json:"title"`
	ContentType   string `json:"contentType"`
	ContentURL    string `json:"contentUrl"`
	PositionOrder int    `json:"positionOrder"`
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "Active"
	EnrollmentCompleted EnrollmentStatus = "Completed"
	EnrollmentDropped   EnrollmentStatus = "Dropped"
)

// Enrollment binds one student to one course. ProgressPercentage is a
// derived cache written only by the progress recompute path.
type Enrollment struct {
	ID                 string           `json:"enrollmentId" validate:"required"`
	StudentID          string           `json:"studentId" validate:"required"`
	CourseID           string           `json:"courseId" validate:"required"`
	Status             EnrollmentStatus `json:"status" validate:"oneof=Active Completed Dropped"`
	ProgressPercentage int              `json:"progressPercentage" validate:"min=0,max=100"`
	EnrollDate         time.Time        `json:"enrollDate"`
	CompletionDate     *time.Time       `json:"completionDate,omitempty"`
	CertificateIssued  bool             `json:"certificateIssued"`
}

// Counts reports whether the enrollment takes part in course statistics.
func (e Enrollment) Counts() bool {
	return e.Status == EnrollmentActive || e.Status == EnrollmentCompleted
}

type Certificate struct {
	ID           string    `json:"certificateId" validate:"required"`
	EnrollmentID string    `json:"enrollmentId" validate:"required"`
	StudentID    string    `json:"studentId" validate:"required"`
	CourseID     string    `json:"courseId" validate:"required"`
	Number       string    `json:"number" validate:"required"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// LessonProgress is keyed by (StudentID, LessonID).
type LessonProgress struct {
	StudentID    string     `json:"studentId"`
	LessonID     string     `json:"lessonId"`
	Completed    bool       `json:"completed"`
	LastPosition int        `json:"lastPosition"`
	TimeSpent    int        `json:"timeSpent"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ProgressDelta is a single lesson progress report from a client.
// TimeSpent is added to the stored total.
type ProgressDelta struct {
	Completed    bool `json:"completed"`
	LastPosition int  `json:"lastPosition" validate:"min=0"`
	TimeSpent    int  `json:"timeSpent" validate:"min=0"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
	Points  int      `json:"points"` // defaults to 1 if zero
}

// Quiz is a collection of questions belonging to a course.
type Quiz struct {
	ID           string     `json:"id" validate:"required"`
	CourseID     string     `json:"courseId" validate:"required"`
	Title        string     `json:"title"`
	PassingMarks int        `json:"passingMarks" validate:"min=0"`
	Questions    []Question `json:"questions"`
}

// TotalMarks is the maximum achievable score.
func (q Quiz) TotalMarks() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Worth()
	}
	return total
}

// Worth is the number of points a correct answer earns.
func (q Question) Worth() int {
	if q.Points == 0 {
		return 1
	}
	return q.Points
}

// QuizAttempt is append-only; a student may attempt a quiz many times.
type QuizAttempt struct {
	ID          string    `json:"attemptId" validate:"required"`
	QuizID      string    `json:"quizId" validate:"required"`
	StudentID   string    `json:"studentId" validate:"required"`
	Score       int       `json:"score" validate:"min=0"`
	TotalMarks  int       `json:"totalMarks" validate:"min=0"`
	Passed      bool      `json:"passed"`
	AttemptDate time.Time `json:"attemptDate"`
}

type Assignment struct {
	ID       string `json:"id" validate:"required"`
	CourseID string `json:"courseId" validate:"required"`
	Title    string `json:"title"`
	MaxMarks int    `json:"maxMarks" validate:"min=0"`
}

// SubmissionContent is what a student hands in. FileURL comes from the upload service.
type SubmissionContent struct {
	FileURL string `json:"fileUrl" validate:"omitempty,url"`
	Text    string `json:"text"`
	Link    string `json:"link" validate:"omitempty,url"`
}

// Empty reports whether nothing was submitted.
func (c SubmissionContent) Empty() bool {
	return c.FileURL == "" && c.Text == "" && c.Link == ""
}

// AssignmentSubmission is the current submission of a student for an assignment.
type AssignmentSubmission struct {
	ID           string `json:"submissionId" validate:"required"`
	AssignmentID string `json:"assignmentId" validate:"required"`
	StudentID    string `json:"studentId" validate:"required"`

	SubmissionContent

	SubmittedAt   time.Time  `json:"submittedAt"`
	MarksObtained *int       `json:"marksObtained,omitempty"`
	Feedback      *string    `json:"feedback,omitempty"`
	GradedAt      *time.Time `json:"gradedAt,omitempty"`
	AttemptNumber int        `json:"attemptNumber" validate:"min=1"`
}

type ActivityType string

const (
	ActivityLogin       ActivityType = "Login"
	ActivityLessonView  ActivityType = "LessonView"
	ActivityQuizAttempt ActivityType = "QuizAttempt"
	ActivitySubmission  ActivityType = "Submission"
)

// ActivityTypes lists every accepted activity type in display order.
var ActivityTypes = []ActivityType{ActivityLogin, ActivityLessonView, ActivityQuizAttempt, ActivitySubmission}

// ActivityLogEntry is an append-only learning event.
type ActivityLogEntry struct {
	ID           string       `json:"logId" validate:"required"`
	StudentID    string       `json:"studentId" validate:"required"`
	CourseID     *string      `json:"courseId,omitempty"`
	LessonID     *string      `json:"lessonId,omitempty"`
	ActivityDate time.Time    `json:"activityDate" validate:"required"`
	ActivityType ActivityType `json:"activityType" validate:"oneof=Login LessonView QuizAttempt Submission"`
}

// ActivityFilter narrows an activity listing. Zero values mean "any".
type ActivityFilter struct {
	CourseID string
	LessonID string
	Limit    int
}
