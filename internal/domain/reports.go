package domain

import "time"

// SectionProgress is the completion of one section for one student.
type SectionProgress struct {
	SectionID        string `json:"sectionId"`
	Title            string `json:"title"`
	PositionOrder    int    `json:"positionOrder"`
	TotalLessons     int    `json:"totalLessons"`
	CompletedLessons int    `json:"completedLessons"`
	Percentage       int    `json:"sectionProgress"`
}

// CourseProgress is the live completion of a course for one student.
type CourseProgress struct {
	CourseID         string            `json:"courseId"`
	StudentID        string            `json:"studentId"`
	Sections         []SectionProgress `json:"sectionProgress"`
	TotalLessons     int               `json:"totalLessons"`
	CompletedLessons int               `json:"completedLessons"`
	Percentage       int               `json:"overallProgress"`
	SkippedRecords   int               `json:"-"`
}

// QuizStats averages scores over every attempt, not only the latest one.
type QuizStats struct {
	QuizzesTaken  int     `json:"quizzesTaken"`
	Attempts      int     `json:"attempts"`
	AverageScore  float64 `json:"averageScore"`
	PassedQuizzes int     `json:"passedQuizzes"`
}

type AssignmentStats struct {
	AssignmentsSubmitted int     `json:"assignmentsSubmitted"`
	SubmissionsGraded    int     `json:"submissionsGraded"`
	AverageMarks         float64 `json:"averageMarks"`
}

// EnrollmentProgress is the full progress view of one enrollment.
type EnrollmentProgress struct {
	Enrollment Enrollment `json:"enrollment"`

	CourseProgress

	QuizStats       QuizStats       `json:"quizStats"`
	AssignmentStats AssignmentStats `json:"assignmentStats"`
}

// StudentProgressRow is one line of the instructor's per-course roster.
type StudentProgressRow struct {
	EnrollmentID     string           `json:"enrollmentId"`
	StudentID        string           `json:"studentId"`
	FullName         string           `json:"fullName"`
	Status           EnrollmentStatus `json:"status"`
	Progress         int              `json:"progress"`
	CompletedLessons int              `json:"completedLessons"`
	EnrollDate       time.Time        `json:"enrollDate"`
}

// CourseAnalytics aggregates a course across its counted enrollments.
type CourseAnalytics struct {
	CourseID           string       `json:"courseId"`
	Title              string       `json:"title"`
	Status             CourseStatus `json:"status"`
	TotalEnrollments   int          `json:"totalEnrollments"`
	ActiveStudents     int          `json:"activeStudents"`
	CompletedStudents  int          `json:"completedStudents"`
	CertificatesIssued int          `json:"certificatesIssued"`
	AverageProgress    int          `json:"averageProgress"`
}

type InstructorAnalytics struct {
	Courses                []CourseAnalytics `json:"courses"`
	TotalCourses           int               `json:"totalCourses"`
	PublishedCourses       int               `json:"publishedCourses"`
	TotalStudents          int               `json:"totalStudents"`
	AverageStudentProgress int               `json:"averageStudentProgress"`
}

type CourseRoster struct {
	Stats       CourseAnalytics      `json:"courseStats"`
	Enrollments []StudentProgressRow `json:"enrollments"`
}

type TimeStats struct {
	TotalTimeSpent   int `json:"totalTimeSpent"`
	LessonsCompleted int `json:"lessonsCompleted"`
}

// Streak counts consecutive days with at least one activity.
type Streak struct {
	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`
}

type ActivitySummary struct {
	TotalActivities int                  `json:"totalActivities"`
	ByType          map[ActivityType]int `json:"byType"`
	ActiveCourses   int                  `json:"activeCourses"`
	FirstActivity   *time.Time           `json:"firstActivity,omitempty"`
	LastActivity    *time.Time           `json:"lastActivity,omitempty"`
}

type StudentAnalytics struct {
	Enrollments     []Enrollment    `json:"enrollments"`
	TimeStats       TimeStats       `json:"timeStats"`
	QuizStats       QuizStats       `json:"quizStats"`
	AssignmentStats AssignmentStats `json:"assignmentStats"`
	LearningStreak  Streak          `json:"learningStreak"`
}

// StudentCertificate is a certificate with the course it was issued for.
type StudentCertificate struct {
	Certificate

	CourseTitle string `json:"courseTitle"`
	TeacherID   string `json:"teacherId"`
}

// AssignmentReport aggregates every student's current submission for one assignment.
type AssignmentReport struct {
	AssignmentID string `json:"assignmentId"`
	CourseID     string `json:"courseId"`
	Title        string `json:"title"`
	MaxMarks     int    `json:"maxMarks"`

	TotalSubmissions  int     `json:"totalSubmissions"`
	SubmissionsGraded int     `json:"submissionsGraded"`
	AverageMarks      float64 `json:"averageMarks"`
	HighestMarks      *int    `json:"highestMarks,omitempty"`
	LowestMarks       *int    `json:"lowestMarks,omitempty"`
}

// DailyActivity counts one student's activity in a course on one UTC day.
type DailyActivity struct {
	StudentID     string               `json:"studentId"`
	FullName      string               `json:"fullName"`
	Day           time.Time            `json:"day"`
	ActivityCount int                  `json:"activityCount"`
	ByType        map[ActivityType]int `json:"byType"`
	LastActivity  time.Time            `json:"lastActivity"`
}

// ClassActivity is the instructor's view of a course's activity, newest day first.
type ClassActivity struct {
	CourseID       string          `json:"courseId"`
	ActiveStudents int             `json:"activeStudents"`
	Days           []DailyActivity `json:"days"`
}

// QuizResult is returned after an attempt is scored.
type QuizResult struct {
	Attempt QuizAttempt `json:"attempt"`
	Correct int         `json:"correct"`
}
