package http

import (
	"github.com/gin-gonic/gin"

	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	EnrollmentHandler *EnrollmentHandler
	CourseworkHandler *CourseworkHandler
	ActivityHandler   *ActivityHandler
	WSHandler         *WSHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Log))

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	api := r.Group("/")
	api.Use(Identity())

	students := RequireRole(domain.RoleStudent)
	instructors := RequireRole(domain.RoleInstructor)

	if h := cfg.EnrollmentHandler; h != nil {
		api.POST("/enrollments/courses/:courseId", students, h.Enroll)
		api.GET("/enrollments", students, h.ListEnrollments)
		api.GET("/enrollments/:enrollmentId/progress", h.Progress)
		api.POST("/enrollments/:enrollmentId/certificate", instructors, h.IssueCertificate)
		api.POST("/enrollments/:enrollmentId/drop", h.Drop)
		api.DELETE("/enrollments/:enrollmentId", h.Unenroll)
		api.GET("/certificates", students, h.ListCertificates)
		api.PUT("/lessons/:lessonId/progress", students, h.UpdateLessonProgress)

		api.GET("/progress/student/analytics", students, h.StudentAnalytics)
		api.GET("/progress/instructor/analytics", instructors, h.InstructorAnalytics)
		api.GET("/progress/instructor/courses/:courseId", instructors, h.CourseRoster)
	}

	if h := cfg.CourseworkHandler; h != nil {
		api.POST("/quizzes/:quizId/attempts", students, h.SubmitQuizAttempt)
		api.GET("/quizzes/:quizId/attempts", students, h.ListQuizAttempts)
		api.POST("/assignments/:assignmentId/submissions", students, h.SubmitAssignment)
		api.GET("/assignments/:assignmentId/submissions", h.ListSubmissions)
		api.GET("/assignments/:assignmentId/stats", instructors, h.AssignmentReport)
		api.PUT("/submissions/:submissionId/grade", instructors, h.GradeSubmission)
	}

	if h := cfg.ActivityHandler; h != nil {
		api.POST("/activities", students, h.Append)
		api.GET("/activities", students, h.List)
		api.GET("/activities/summary", students, h.Summary)
		api.GET("/activities/streak", students, h.Streak)
		api.DELETE("/activities/:logId", RequireRole(domain.RoleAdmin), h.Delete)
		api.GET("/progress/instructor/courses/:courseId/activity", instructors, h.ClassActivity)
	}

	if cfg.WSHandler != nil {
		api.GET("/ws/enrollments/:enrollmentId/progress", cfg.WSHandler.ServeWS)
	}
	return r
}
