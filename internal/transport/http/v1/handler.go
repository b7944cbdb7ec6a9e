// Package v1 provides the version 1 HTTP handlers of the tutor service.
package v1

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/AsfandAhmad/Study-ChatBot/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, log logrus.FieldLogger) *Handler {
	return &Handler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Owners are not authenticated, so origins are not either.
				return true
			},
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/v1/topics", h.ListTopics)

	// Conversations
	e.POST("/v1/owners/:owner_id/messages", h.SendMessage)
	e.GET("/v1/owners/:owner_id/threads", h.ListThreads)
	e.GET("/v1/owners/:owner_id/threads/:thread_id/turns", h.ListTurns)
	e.POST("/v1/owners/:owner_id/sessions/:session_id/new", h.NewConversation)
	e.POST("/v1/owners/:owner_id/sessions/:session_id/flush", h.FlushSession)
	e.GET("/v1/owners/:owner_id/watch", h.Watch)

	// Artifacts
	e.POST("/v1/owners/:owner_id/quiz", h.GenerateQuiz)
	e.POST("/v1/owners/:owner_id/study-plan", h.GenerateStudyPlan)
	e.GET("/v1/owners/:owner_id/artifacts", h.ListArtifacts)
	e.POST("/v1/owners/:owner_id/artifacts", h.SaveArtifact)
	e.DELETE("/v1/owners/:owner_id/artifacts/:artifact_id", h.DeleteArtifact)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"version":  "0.1.0",
		"sessions": h.service.SessionCount(),
	})
}

// ListTopics lists the topics the router can assign.
// GET /v1/topics
func (h *Handler) ListTopics(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"topics": h.service.Topics(),
	})
}
