package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/recipe-app-api/backend/config"
)

// ShutdownTimeout bounds how long in-flight requests may drain on shutdown
const ShutdownTimeout = 5 * time.Second

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	log    *logrus.Logger
}

// New creates a server listening on the configured address
func New(cfg *config.Config, router *gin.Engine, log *logrus.Logger) *Server {
	return &Server{
		router: router,
		log:    log,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the server is shut down
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, waiting up to ShutdownTimeout
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
