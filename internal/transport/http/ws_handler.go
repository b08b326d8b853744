package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/logger"
)

type WSHandler struct {
	log      *logger.Logger
	service  *app.EnrollmentService
	upgrader websocket.Upgrader
}

func NewWSHandler(log *logger.Logger, service *app.EnrollmentService) *WSHandler {
	return &WSHandler{
		log:     log.With("handler", "WSHandler"),
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ServeWS streams progress updates of one enrollment. The subscription is
// authorized before the upgrade so that failures surface as plain HTTP errors.
func (h *WSHandler) ServeWS(c *gin.Context) {
	enrollmentID := c.Param("enrollmentId")
	actor := actorFrom(c)

	ctx := c.Request.Context()
	updates, cancel, err := h.service.Subscribe(ctx, actor, enrollmentID)
	if err != nil {
		respondDomainError(c, h.log, "subscribe", err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "enrollment_id", enrollmentID, "error", err)
		return
	}
	defer conn.Close()

	log := h.log.With("enrollment_id", enrollmentID, "user_id", actor.ID)
	log.Debug("progress feed opened")

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "progress", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "recompute":
			// The fresh value reaches this client through the feed.
			if _, err := h.service.RecomputeProgress(ctx, enrollmentID); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: wsError(err)}
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	log.Debug("progress feed closed")
}

func wsError(err error) errorPayload {
	payload := errorPayload{Message: err.Error()}
	if code := domainCode(err); code != "" {
		payload.Code = code
	}
	return payload
}
