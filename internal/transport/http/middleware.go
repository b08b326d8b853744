package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lms-progress-service/internal/domain"
	"lms-progress-service/internal/logger"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	actorKey = "actor"
)

// RequestLogger logs one line per request, at a level that follows the status.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if actor, ok := c.Get(actorKey); ok {
			fields = append(fields, "user_id", actor.(domain.Actor).ID)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// Identity trusts the caller identity set by the upstream auth layer.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		role := domain.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if id == "" {
			RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing caller identity"))
			return
		}
		switch role {
		case domain.RoleStudent, domain.RoleInstructor, domain.RoleAdmin:
		default:
			RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("unknown caller role"))
			return
		}
		c.Set(actorKey, domain.Actor{ID: id, Role: role})
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		RespondError(c, http.StatusForbidden, domain.ErrForbidden.Code, domain.ErrForbidden)
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		return v.(domain.Actor)
	}
	return domain.Actor{}
}
