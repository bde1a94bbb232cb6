// Package httpapi exposes a facts backend over a PostgREST-shaped REST API
// and provides a client implementing the remote contract against it.
//
//	GET   /rest/v1/facts?category=eq.science&order=votesInteresting.desc&limit=600
//	POST  /rest/v1/facts            {"text", "source", "category"}
//	PATCH /rest/v1/facts?id=eq.42   {"votesInteresting": 25}
//	GET   /healthz
//
// Writes answer with a one-element JSON array holding the stored row.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/queryir"
	"github.com/roach88/til/internal/repository"
)

const (
	factsTable = repository.FactsTable
	factsPath  = "/rest/v1/facts"
)

// Server serves one backend over HTTP.
type Server struct {
	backend repository.Remote
	logger  *slog.Logger
	engine  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer builds the routes over backend.
func NewServer(backend repository.Remote, opts ...Option) *Server {
	s := &Server{backend: backend, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	g := gin.New()
	g.Use(requestLogger(s.logger), gin.Recovery())
	g.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	g.GET(factsPath, s.list)
	g.POST(factsPath, s.create)
	g.PATCH(factsPath, s.patch)
	s.engine = g
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) list(c *gin.Context) {
	q, err := parseSelect(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	facts, err := s.backend.Select(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, facts)
}

type createRequest struct {
	Text     string `json:"text" binding:"required"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

func (s *Server) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	created, err := s.backend.Insert(c.Request.Context(), queryir.Insert{
		Into: factsTable,
		Values: []queryir.Assignment{
			{Field: fact.ColumnText, Value: req.Text},
			{Field: fact.ColumnSource, Value: req.Source},
			{Field: fact.ColumnCategory, Value: req.Category},
		},
		Returning: fact.Columns,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, []fact.Fact{created})
}

func (s *Server) patch(c *gin.Context) {
	filter, err := parseFilter(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if filter == nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "patch requires a filter"})
		return
	}

	var body map[string]int64
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"err": "nothing to update"})
		return
	}

	for col := range body {
		if !fact.IsVoteColumn(col) {
			c.JSON(http.StatusBadRequest, gin.H{"err": "only vote counters can be patched: " + col})
			return
		}
	}
	set := make([]queryir.Assignment, 0, len(body))
	for _, col := range fact.Columns {
		if v, ok := body[col]; ok {
			set = append(set, queryir.Assignment{Field: col, Value: v})
		}
	}

	updated, err := s.backend.Update(c.Request.Context(), queryir.Update{
		Table:     factsTable,
		Set:       set,
		Filter:    filter,
		Returning: fact.Columns,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, []fact.Fact{updated})
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, queryir.ErrNoMatch):
		c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
	case errors.Is(err, queryir.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
	default:
		s.logger.ErrorContext(c.Request.Context(), "backend failure", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.DebugContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
