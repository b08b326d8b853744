package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/logger"
)

type EnrollmentHandler struct {
	log     *logger.Logger
	service *app.EnrollmentService
}

func NewEnrollmentHandler(log *logger.Logger, service *app.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{
		log:     log.With("handler", "EnrollmentHandler"),
		service: service,
	}
}

// POST /enrollments/courses/:courseId
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	actor := actorFrom(c)
	enrollment, err := h.service.Enroll(c.Request.Context(), actor.ID, c.Param("courseId"))
	if err != nil {
		respondDomainError(c, h.log, "enroll", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"enrollmentId": enrollment.ID,
		"enrollment":   enrollment,
	})
}

// GET /enrollments
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	enrollments, err := h.service.ListEnrollments(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		respondDomainError(c, h.log, "list enrollments", err)
		return
	}
	RespondOK(c, gin.H{"enrollments": enrollments})
}

// GET /enrollments/:enrollmentId/progress
func (h *EnrollmentHandler) Progress(c *gin.Context) {
	progress, err := h.service.Progress(c.Request.Context(), actorFrom(c), c.Param("enrollmentId"))
	if err != nil {
		respondDomainError(c, h.log, "progress", err)
		return
	}
	RespondOK(c, progress)
}

// POST /enrollments/:enrollmentId/certificate
func (h *EnrollmentHandler) IssueCertificate(c *gin.Context) {
	cert, err := h.service.IssueCertificate(c.Request.Context(), actorFrom(c), c.Param("enrollmentId"))
	if err != nil {
		respondDomainError(c, h.log, "issue certificate", err)
		return
	}
	RespondOK(c, gin.H{
		"certificateId": cert.ID,
		"certificate":   cert,
	})
}

// POST /enrollments/:enrollmentId/drop
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	enrollment, err := h.service.Drop(c.Request.Context(), actorFrom(c), c.Param("enrollmentId"))
	if err != nil {
		respondDomainError(c, h.log, "drop enrollment", err)
		return
	}
	RespondOK(c, gin.H{"enrollment": enrollment})
}

// DELETE /enrollments/:enrollmentId
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	if err := h.service.Unenroll(c.Request.Context(), actorFrom(c), c.Param("enrollmentId")); err != nil {
		respondDomainError(c, h.log, "unenroll", err)
		return
	}
	RespondOK(c, gin.H{"ok": true})
}

// GET /certificates
func (h *EnrollmentHandler) ListCertificates(c *gin.Context) {
	certs, err := h.service.ListCertificates(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		respondDomainError(c, h.log, "list certificates", err)
		return
	}
	RespondOK(c, gin.H{"certificates": certs})
}

type lessonProgressRequest struct {
	Completed    bool `json:"completed"`
	LastPosition int  `json:"lastPosition" binding:"min=0"`
	TimeSpent    int  `json:"timeSpent" binding:"min=0"`
}

// PUT /lessons/:lessonId/progress
func (h *EnrollmentHandler) UpdateLessonProgress(c *gin.Context) {
	var req lessonProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	progress, enrollment, err := h.service.UpdateLessonProgress(c.Request.Context(), actorFrom(c).ID, c.Param("lessonId"), domain.ProgressDelta{
		Completed:    req.Completed,
		LastPosition: req.LastPosition,
		TimeSpent:    req.TimeSpent,
	})
	if err != nil {
		respondDomainError(c, h.log, "update lesson progress", err)
		return
	}
	RespondOK(c, gin.H{
		"ok":         true,
		"progress":   progress,
		"enrollment": enrollment,
	})
}

// GET /progress/student/analytics
func (h *EnrollmentHandler) StudentAnalytics(c *gin.Context) {
	analytics, err := h.service.StudentAnalytics(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		respondDomainError(c, h.log, "student analytics", err)
		return
	}
	RespondOK(c, analytics)
}

// GET /progress/instructor/analytics
func (h *EnrollmentHandler) InstructorAnalytics(c *gin.Context) {
	analytics, err := h.service.InstructorAnalytics(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondDomainError(c, h.log, "instructor analytics", err)
		return
	}
	RespondOK(c, analytics)
}

// GET /progress/instructor/courses/:courseId
func (h *EnrollmentHandler) CourseRoster(c *gin.Context) {
	roster, err := h.service.CourseRoster(c.Request.Context(), actorFrom(c), c.Param("courseId"))
	if err != nil {
		respondDomainError(c, h.log, "course roster", err)
		return
	}
	RespondOK(c, roster)
}
