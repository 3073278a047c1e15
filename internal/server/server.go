// Package server assembles the gin router, wires handlers to their
// subsystems, and owns the HTTP listener lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muxfetch/muxfetch/internal/config"
	"github.com/muxfetch/muxfetch/internal/events"
	"github.com/muxfetch/muxfetch/internal/jobs"
	"github.com/muxfetch/muxfetch/internal/logger"
	"github.com/muxfetch/muxfetch/internal/middleware"
	"github.com/muxfetch/muxfetch/internal/resolver"
	"github.com/muxfetch/muxfetch/internal/system"
)

// Version of the service, reported by the status endpoint.
const Version = "1.0.0"

// Dependencies carries the wired subsystems the HTTP layer serves.
type Dependencies struct {
	Manager  *jobs.Manager
	Resolver resolver.Service
	EventBus events.EventBus
	Monitor  *system.Monitor
}

// Server hosts the HTTP API.
type Server struct {
	cfg    *config.Config
	deps   Dependencies
	router *gin.Engine
	http   *http.Server
}

// New builds the router and returns a server ready to start.
func New(cfg *config.Config, deps Dependencies) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures and returns the main router
func (s *Server) setupRouter() *gin.Engine {
	r := gin.Default()

	if s.cfg.Server.EnableCORS {
		// CORS middleware
		r.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}

			c.Next()
		})
	}

	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorLogger())

	s.setupRoutes(r)

	return r
}

// Engine exposes the underlying router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.router
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.http = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
	}

	logger.Info("HTTP server listening", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests until
// ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	logger.Info("shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
