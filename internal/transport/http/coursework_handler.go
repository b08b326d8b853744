package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/logger"
)

type CourseworkHandler struct {
	log     *logger.Logger
	service *app.CourseworkService
}

func NewCourseworkHandler(log *logger.Logger, service *app.CourseworkService) *CourseworkHandler {
	return &CourseworkHandler{
		log:     log.With("handler", "CourseworkHandler"),
		service: service,
	}
}

type quizAttemptRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// POST /quizzes/:quizId/attempts
func (h *CourseworkHandler) SubmitQuizAttempt(c *gin.Context) {
	var req quizAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	result, err := h.service.SubmitQuizAttempt(c.Request.Context(), actorFrom(c).ID, c.Param("quizId"), req.Answers)
	if err != nil {
		respondDomainError(c, h.log, "submit quiz attempt", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GET /quizzes/:quizId/attempts
func (h *CourseworkHandler) ListQuizAttempts(c *gin.Context) {
	attempts, err := h.service.ListQuizAttempts(c.Request.Context(), actorFrom(c).ID, c.Param("quizId"))
	if err != nil {
		respondDomainError(c, h.log, "list quiz attempts", err)
		return
	}
	RespondOK(c, gin.H{"attempts": attempts})
}

type submissionRequest struct {
	FileURL string `json:"fileUrl"`
	Text    string `json:"text"`
	Link    string `json:"link"`
}

// POST /assignments/:assignmentId/submissions
func (h *CourseworkHandler) SubmitAssignment(c *gin.Context) {
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	sub, err := h.service.SubmitAssignment(c.Request.Context(), actorFrom(c).ID, c.Param("assignmentId"), domain.SubmissionContent{
		FileURL: req.FileURL,
		Text:    req.Text,
		Link:    req.Link,
	})
	if err != nil {
		respondDomainError(c, h.log, "submit assignment", err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// GET /assignments/:assignmentId/submissions?studentId=
//
// Students always see their own submission; instructors name the student.
func (h *CourseworkHandler) ListSubmissions(c *gin.Context) {
	actor := actorFrom(c)
	studentID := c.Query("studentId")
	if actor.IsStudent() && studentID == "" {
		studentID = actor.ID
	}
	if studentID == "" {
		RespondError(c, http.StatusBadRequest, domain.ErrInvalidInput.Code, domain.ErrInvalidInput.Detail("studentId is required"))
		return
	}
	subs, err := h.service.ListSubmissions(c.Request.Context(), actor, studentID, c.Param("assignmentId"))
	if err != nil {
		respondDomainError(c, h.log, "list submissions", err)
		return
	}
	RespondOK(c, gin.H{"submissions": subs})
}

type gradeRequest struct {
	MarksObtained *int   `json:"marksObtained" binding:"required"`
	Feedback      string `json:"feedback"`
}

// PUT /submissions/:submissionId/grade
func (h *CourseworkHandler) GradeSubmission(c *gin.Context) {
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	sub, err := h.service.GradeSubmission(c.Request.Context(), actorFrom(c), c.Param("submissionId"), *req.MarksObtained, req.Feedback)
	if err != nil {
		respondDomainError(c, h.log, "grade submission", err)
		return
	}
	RespondOK(c, sub)
}

// GET /assignments/:assignmentId/stats
func (h *CourseworkHandler) AssignmentReport(c *gin.Context) {
	report, err := h.service.AssignmentReport(c.Request.Context(), actorFrom(c), c.Param("assignmentId"))
	if err != nil {
		respondDomainError(c, h.log, "assignment report", err)
		return
	}
	RespondOK(c, report)
}
