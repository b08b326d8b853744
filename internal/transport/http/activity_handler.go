package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/logger"
)

type ActivityHandler struct {
	log    *logger.Logger
	ledger *app.Ledger
}

func NewActivityHandler(log *logger.Logger, ledger *app.Ledger) *ActivityHandler {
	return &ActivityHandler{
		log:    log.With("handler", "ActivityHandler"),
		ledger: ledger,
	}
}

type appendActivityRequest struct {
	ActivityType domain.ActivityType `json:"activityType" binding:"required"`
	CourseID     string              `json:"courseId"`
	LessonID     string              `json:"lessonId"`
}

// POST /activities
func (h *ActivityHandler) Append(c *gin.Context) {
	var req appendActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	entry, err := h.ledger.Append(c.Request.Context(), actorFrom(c).ID, req.ActivityType, req.CourseID, req.LessonID)
	if err != nil {
		respondDomainError(c, h.log, "append activity", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GET /activities?courseId=&lessonId=&limit=
func (h *ActivityHandler) List(c *gin.Context) {
	filter := domain.ActivityFilter{
		CourseID: c.Query("courseId"),
		LessonID: c.Query("lessonId"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			RespondError(c, http.StatusBadRequest, domain.ErrInvalidInput.Code, domain.ErrInvalidInput.Detail("limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}
	entries, err := h.ledger.List(c.Request.Context(), actorFrom(c).ID, filter)
	if err != nil {
		respondDomainError(c, h.log, "list activities", err)
		return
	}
	RespondOK(c, gin.H{"activities": entries})
}

// GET /activities/summary?courseId=
func (h *ActivityHandler) Summary(c *gin.Context) {
	var (
		sum domain.ActivitySummary
		err error
	)
	if courseID := c.Query("courseId"); courseID != "" {
		sum, err = h.ledger.SummarizeCourse(c.Request.Context(), actorFrom(c).ID, courseID)
	} else {
		sum, err = h.ledger.Summarize(c.Request.Context(), actorFrom(c).ID)
	}
	if err != nil {
		respondDomainError(c, h.log, "summarize activities", err)
		return
	}
	RespondOK(c, sum)
}

// GET /activities/streak
func (h *ActivityHandler) Streak(c *gin.Context) {
	streak, err := h.ledger.Streak(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		respondDomainError(c, h.log, "learning streak", err)
		return
	}
	RespondOK(c, streak)
}

// DELETE /activities/:logId
func (h *ActivityHandler) Delete(c *gin.Context) {
	if err := h.ledger.Delete(c.Request.Context(), actorFrom(c), c.Param("logId")); err != nil {
		respondDomainError(c, h.log, "delete activity", err)
		return
	}
	RespondOK(c, gin.H{"ok": true})
}

// GET /progress/instructor/courses/:courseId/activity
func (h *ActivityHandler) ClassActivity(c *gin.Context) {
	activity, err := h.ledger.ClassActivity(c.Request.Context(), actorFrom(c), c.Param("courseId"))
	if err != nil {
		respondDomainError(c, h.log, "class activity", err)
		return
	}
	RespondOK(c, activity)
}
