package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/logger"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindState:
		return http.StatusBadRequest
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError renders err with its domain code. Anything that is not
// a domain error is logged and hidden behind a 500.
func respondDomainError(c *gin.Context, log *logger.Logger, op string, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.Error(op+" failed", "error", err, "path", c.FullPath())
		RespondError(c, http.StatusInternalServerError, "InternalError", errors.New("internal error"))
		return
	}
	RespondError(c, statusFor(de.Kind), de.Code, de)
}

func domainCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// respondBindError reports a malformed request body.
func respondBindError(c *gin.Context, err error) {
	RespondError(c, http.StatusBadRequest, domain.ErrInvalidInput.Code, err)
}
