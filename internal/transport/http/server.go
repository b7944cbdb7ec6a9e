// Package http provides the HTTP server of the tutor service.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/AsfandAhmad/Study-ChatBot/internal/service"
	v1 "github.com/AsfandAhmad/Study-ChatBot/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server. A nil metricsHandler
// leaves /metrics unregistered.
func NewServer(svc *service.Service, metricsHandler http.Handler, log logrus.FieldLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}

	v1Handler := v1.NewHandler(svc, log)
	v1Handler.RegisterRoutes(e)

	return e
}
