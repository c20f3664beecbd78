// Package server exposes the local control API for the scheduler daemon.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/desk-dashboard/internal/scheduler"
	"github.com/desk-dashboard/internal/storage"
	"github.com/desk-dashboard/pkg/logger"
)

// Jobs is the scheduler surface the API needs
type Jobs interface {
	Jobs() []scheduler.JobInfo
	RunNow(ctx context.Context, name string) error
	State() scheduler.State
}

// Server serves health, job and usage endpoints
type Server struct {
	jobs   Jobs
	usage  storage.UsageCounter
	now    func() time.Time
	log    *logger.Logger
	engine *gin.Engine
}

// New builds the router
func New(jobs Jobs, usage storage.UsageCounter, log *logger.Logger) *Server {
	s := &Server{
		jobs:  jobs,
		usage: usage,
		now:   time.Now,
		log:   log.WithComponent("server"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.health)
	r.GET("/jobs", s.listJobs)
	r.POST("/jobs/:name/run", s.runJob)
	r.GET("/usage/:api", s.apiUsage)

	s.engine = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Control API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// GET /health
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"scheduler": s.jobs.State().String(),
	})
}

// GET /jobs
func (s *Server) listJobs(c *gin.Context) {
	c.JSON(http.StatusOK, s.jobs.Jobs())
}

// POST /jobs/:name/run
func (s *Server) runJob(c *gin.Context) {
	name := c.Param("name")
	err := s.jobs.RunNow(c.Request.Context(), name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"job": name, "error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"job": name, "ok": true})
	}
}

// GET /usage/:api?model=
func (s *Server) apiUsage(c *gin.Context) {
	api := c.Param("api")
	model := c.Query("model")

	stats, err := storage.UsageStats(c.Request.Context(), s.usage, api, model, s.now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"api":   api,
		"model": model,
		"hour":  stats.Hour,
		"day":   stats.Day,
		"total": stats.Total,
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request")
	}
}
