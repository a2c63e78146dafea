package opsserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/meridian-social/meridian/internal/core/ports"
)

// ServerConfig configures the operational HTTP listener.
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server exposes health and metrics for the cache process. The caches
// themselves stay an in-process library boundary; nothing here reads or
// writes cache entries.
type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	healthCheckers []ports.HealthChecker
	caches         []ports.CacheMaintenance
}

func NewServer(cfg *ServerConfig, logger *logrus.Logger, checkers []ports.HealthChecker, caches []ports.CacheMaintenance) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:           e,
		config:         cfg,
		logger:         logger,
		healthCheckers: checkers,
		caches:         caches,
	}

	e.GET("/healthz", s.healthCheck)
	e.GET("/cachez", s.cacheStats)
	e.GET("/metrics", echo.WrapHandler(s.metricsHandler()))

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Infof("Starting ops server on %s", addr)
	return s.echo.StartServer(server)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
