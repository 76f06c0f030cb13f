// Package server exposes monitor-mode status over HTTP: liveness, Prometheus
// metrics and the recorded run history.
package server

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gotrs-io/uiflow/internal/history"
	"github.com/gotrs-io/uiflow/internal/report"
	"github.com/gotrs-io/uiflow/internal/runner"
)

// maxRecent bounds the in-memory run list used when history is disabled
const maxRecent = 50

// RunStore is the subset of history.Store the server reads
type RunStore interface {
	Recent(ctx context.Context, profile string, limit int) ([]history.RunSummary, error)
	Latest(ctx context.Context, profile string) (*report.Report, error)
	ScenarioStats(ctx context.Context, profile string, window int) ([]history.ScenarioStat, error)
}

// JobSource reports scheduler state for /healthz
type JobSource interface {
	Statuses() []runner.TaskStatus
}

// Server serves monitor status
type Server struct {
	engine  *gin.Engine
	store   RunStore
	metrics *report.Metrics
	logger  *log.Logger
	started time.Time
	jobs    JobSource

	mu     sync.RWMutex
	recent []*report.Report
}

// New builds the router. store may be nil, in which case run listings come
// from the reports recorded in this process.
func New(store RunStore, metrics *report.Metrics) *Server {
	if metrics == nil {
		metrics = report.NewMetrics()
	}
	s := &Server{
		engine:  gin.New(),
		store:   store,
		metrics: metrics,
		logger:  log.New(os.Stdout, "[SERVER] ", log.LstdFlags),
		started: time.Now(),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/api/v1")
	v1.GET("/runs/latest", s.handleLatest)
	v1.GET("/runs", s.handleRuns)
	v1.GET("/scenarios/stats", s.handleStats)
}

// SetJobs attaches the scheduler whose tasks /healthz lists
func (s *Server) SetJobs(src JobSource) { s.jobs = src }

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.engine }

// Save records a finished run; it makes Server usable as a report sink
func (s *Server) Save(_ context.Context, r *report.Report) error {
	s.metrics.Observe(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append([]*report.Report{r}, s.recent...)
	if len(s.recent) > maxRecent {
		s.recent = s.recent[:maxRecent]
	}
	return nil
}

func (s *Server) latestLocal(profile string) *report.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.recent {
		if profile == "" || r.Profile == profile {
			return r
		}
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if r := s.latestLocal(""); r != nil {
		body["last_run"] = gin.H{
			"id":          r.RunID,
			"finished_at": r.FinishedAt,
			"succeeded":   r.Succeeded(),
		}
	}
	if s.jobs != nil {
		body["jobs"] = s.jobs.Statuses()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleLatest(c *gin.Context) {
	profile := c.Query("profile")
	if r := s.latestLocal(profile); r != nil {
		c.JSON(http.StatusOK, r)
		return
	}
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded yet"})
		return
	}
	r, err := s.store.Latest(c.Request.Context(), profile)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded yet"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleRuns(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 20)
	if !ok {
		return
	}
	profile := c.Query("profile")

	if s.store != nil {
		runs, err := s.store.Recent(c.Request.Context(), profile, limit)
		if err != nil {
			s.internalError(c, err)
			return
		}
		if runs == nil {
			runs = []history.RunSummary{}
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs, "source": "history"})
		return
	}

	s.mu.RLock()
	runs := []history.RunSummary{}
	for _, r := range s.recent {
		if len(runs) == limit {
			break
		}
		if profile == "" || r.Profile == profile {
			runs = append(runs, history.Summarize(r))
		}
	}
	s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"runs": runs, "source": "memory"})
}

func (s *Server) handleStats(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
		return
	}
	window, ok := intQuery(c, "window", 0)
	if !ok {
		return
	}
	stats, err := s.store.ScenarioStats(c.Request.Context(), c.Query("profile"), window)
	if err != nil {
		s.internalError(c, err)
		return
	}
	out := make([]gin.H, 0, len(stats))
	for _, st := range stats {
		out = append(out, gin.H{
			"position":        st.Position,
			"name":            st.Name,
			"runs":            st.Runs,
			"passed":          st.Passed,
			"failed":          st.Failed,
			"skipped":         st.Skipped,
			"avg_duration_ms": st.AvgDurationMs,
			"pass_rate":       st.PassRate(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": out})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// intQuery parses a non-negative integer query parameter, answering 400 on
// malformed input
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " parameter"})
		return 0, false
	}
	return v, true
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Status server listening on %s", addr)
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
		s.logger.Println("Shutting down status server...")
		return srv.Shutdown(shutdownCtx)
	}
}
