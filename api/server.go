// Package api serves the Battlesnake HTTP protocol on top of the engine.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brensch/snekmax/config"
	"github.com/brensch/snekmax/engine"
	"github.com/brensch/snekmax/store"
)

// Archive receives every decision made by /move. Flush is called on /end.
type Archive interface {
	Record(row store.DecisionRow)
	Flush(ctx context.Context) error
}

const endFlushTimeout = 5 * time.Second

type live struct {
	cfg    config.Config
	engine *engine.Engine
}

// Server holds the engine and the config it was built from. Both are swapped
// together by Apply, so in-flight moves finish on the engine they started with.
type Server struct {
	current atomic.Pointer[live]
	archive Archive
	logger  *slog.Logger
	Info    InfoResponse
}

func NewServer(cfg config.Config, archive Archive, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		archive: archive,
		logger:  logger,
		Info: InfoResponse{
			APIVersion: "1",
			Author:     "snekmax",
			Color:      "#e8590c",
			Head:       "default",
			Tail:       "default",
			Version:    "1.0.0",
		},
	}
	if err := s.Apply(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply rebuilds the engine from cfg. On error the running engine is kept.
func (s *Server) Apply(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	eng, err := cfg.NewEngine(s.logger.With("component", "engine"))
	if err != nil {
		return err
	}
	s.current.Store(&live{cfg: cfg, engine: eng})
	return nil
}

func (s *Server) Config() config.Config { return s.current.Load().cfg }

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())

	router.GET("/", s.handleIndex)
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.POST("/start", s.handleStart)
	router.POST("/move", s.handleMove)
	router.POST("/end", s.handleEnd)
	return router
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, s.Info)
}

func (s *Server) handleStart(c *gin.Context) {
	var req GameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("game started",
		"game_id", req.Game.ID,
		"ruleset", req.Game.Ruleset.Name,
		"map", req.Game.Map,
		"timeout_ms", req.Game.Timeout,
		"you", req.You.Name,
	)
	c.Status(http.StatusOK)
}

// handleMove answers within the host's timeout. The deadline is measured
// from the moment the request arrived.
func (s *Server) handleMove(c *gin.Context) {
	arrived := time.Now()
	cur := s.current.Load()

	var req GameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rs := ToRuleset(req.Game.Ruleset)
	state, err := ToGameState(&req, rs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deadline := arrived.Add(cur.cfg.ComputeBudget(req.Timeout()))
	d := cur.engine.Decide(c.Request.Context(), engine.Request{
		State:    state,
		Ruleset:  rs,
		Deadline: deadline,
	})

	if s.archive != nil {
		source := req.Game.Source
		if source == "" {
			source = "live"
		}
		s.archive.Record(store.NewDecisionRow(req.Game.ID, source, rs, state, d))
	}

	c.JSON(http.StatusOK, MoveResponse{Move: d.Move.String(), Shout: shout(d)})
}

func (s *Server) handleEnd(c *gin.Context) {
	var req GameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	youAlive := false
	for _, snake := range req.Board.Snakes {
		if snake.ID == req.You.ID {
			youAlive = true
			break
		}
	}
	result := "lost"
	switch {
	case youAlive && len(req.Board.Snakes) == 1:
		result = "won"
	case youAlive:
		result = "unfinished"
	case len(req.Board.Snakes) == 0:
		result = "draw"
	}
	s.logger.Info("game ended", "game_id", req.Game.ID, "turn", req.Turn, "result", result)

	if s.archive != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), endFlushTimeout)
		defer cancel()
		if err := s.archive.Flush(ctx); err != nil {
			s.logger.Warn("archive flush failed", "game_id", req.Game.ID, "error", err)
		}
	}
	c.Status(http.StatusOK)
}

func shout(d engine.Decision) string {
	switch {
	case d.Forced:
		return "forced"
	case d.Fallback:
		return "out of time"
	default:
		return "depth " + strconv.Itoa(d.Depth)
	}
}
