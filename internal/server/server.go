// Package server is the HTTP side server of the bot: health check and
// Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Pinger проверяет доступность базы.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	echo   *echo.Echo
	db     Pinger
	addr   string
	logger *logrus.Logger
}

func New(addr string, db Pinger, logger *logrus.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, db: db, addr: addr, logger: logger}
	s.registerHandlers()
	return s
}

func (s *Server) registerHandlers() {
	s.echo.GET("/health", s.health)
	s.echo.Any("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (s *Server) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.WithError(err).Error("Health check: database unreachable")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Handler отдает echo как http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start слушает addr до Shutdown.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.addr).Info("Starting HTTP server")
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
