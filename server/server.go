// Package server exposes the run journal as a read-only JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/smacross/backtest"
	"github.com/rustyeddy/smacross/internal/logging"
	"github.com/rustyeddy/smacross/journal"
	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/market"
)

// Store is the read side of the journal.
type Store interface {
	ListRuns(ctx context.Context) ([]journal.Run, error)
	GetRun(ctx context.Context, runID string) (journal.Run, error)
	ListTrades(ctx context.Context, runID string) ([]ledger.TradeEvent, error)
	ListBars(ctx context.Context, runID string) ([]market.Bar, error)
	ListEquity(ctx context.Context, runID string) ([]backtest.EquityPoint, error)
}

type Server struct {
	addr   string
	store  Store
	router *gin.Engine
}

func New(addr string, store Store) (*Server, error) {
	if store == nil {
		return nil, errors.New("server: store is required")
	}
	if addr == "" {
		addr = ":8000"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLog(), cors())

	s := &Server{addr: addr, store: store, router: router}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/runs", s.handleRunList)
	s.router.GET("/runs/:id", s.handleRunDetail)
	s.router.GET("/runs/:id/bars", s.handleRunBars)
	s.router.GET("/runs/:id/trades", s.handleRunTrades)
	s.router.GET("/runs/:id/equity", s.handleRunEquity)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string { return s.addr }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRunList(c *gin.Context) {
	runs, err := s.store.ListRuns(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleRunDetail(c *gin.Context) {
	run, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleRunBars(c *gin.Context) {
	bars, err := s.store.ListBars(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bars)
}

func (s *Server) handleRunTrades(c *gin.Context) {
	trades, err := s.store.ListTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) handleRunEquity(c *gin.Context) {
	eq, err := s.store.ListEquity(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eq)
}

func fail(c *gin.Context, err error) {
	if errors.Is(err, journal.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	logging.For("server").Error("request failed", "path", c.Request.URL.Path, "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// cors allows any origin, for a local chart front end.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLog() gin.HandlerFunc {
	log := logging.For("server")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logging.For("server").Info("listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	case err := <-errCh:
		return err
	}
}
