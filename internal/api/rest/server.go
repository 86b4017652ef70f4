package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parishkeep/parishkeep/internal/config"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

// Server wraps the HTTP server lifecycle
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	log        *logger.Logger
	cfg        *config.Config
}

// NewServer creates the HTTP server around a configured router
func NewServer(router *gin.Engine, cfg *config.Config, log *logger.Logger) *Server {
	return &Server{
		router: router,
		log:    log,
		cfg:    cfg,
	}
}

// Start runs the server until Shutdown or a listener error
func (s *Server) Start() error {
	port := s.cfg.App.Port
	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.App.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.App.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Infow("Starting server", "port", port, "env", s.cfg.App.Env)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infow("Server is shutting down")
	return s.httpServer.Shutdown(ctx)
}
