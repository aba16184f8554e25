// Package engine turns a game state and a deadline into exactly one move.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/heuristic"
	"github.com/brensch/snekmax/rules"
	"github.com/brensch/snekmax/search"
)

// Request is one decision's input. State is read, never modified or kept.
type Request struct {
	State    *game.GameState
	Ruleset  rules.Ruleset
	Deadline time.Time
}

type Decision struct {
	Move  game.Move
	Value heuristic.Value
	Depth int
	Nodes int64

	// Safe is the root move set after the safety filter.
	Safe     []game.Move
	Forced   bool
	Fallback bool
	Elapsed  time.Duration
}

// Engine is safe for concurrent Decide calls; every call builds its own
// search tree and transposition table.
type Engine struct {
	searcher *search.Searcher
	eval     heuristic.Evaluator
	logger   *slog.Logger
}

func New(cfg search.Config, eval heuristic.Evaluator, logger *slog.Logger) *Engine {
	if eval == nil {
		eval = heuristic.NewWeighted(heuristic.DefaultWeights())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		searcher: search.New(cfg, eval, logger.With("component", "search")),
		eval:     eval,
		logger:   logger,
	}
}

func (e *Engine) Config() search.Config { return e.searcher.Config() }

// Decide always returns a move. When no search depth completes in time the
// move comes from a one-ply evaluation of each candidate.
func (e *Engine) Decide(ctx context.Context, req Request) Decision {
	start := time.Now()
	state := req.State
	if state == nil {
		return Decision{Move: game.MoveUp, Fallback: true, Elapsed: time.Since(start)}
	}
	you := state.YouId

	d := Decision{Safe: rules.SafeMoves(state, you, req.Ruleset)}
	switch {
	case len(d.Safe) == 1:
		d.Move = d.Safe[0]
		d.Forced = true
	default:
		res, err := e.searcher.Search(ctx, state, req.Ruleset, you, d.Safe, req.Deadline)
		if err != nil {
			if !errors.Is(err, search.ErrNoCompletedDepth) {
				e.logger.Warn("search failed", "turn", state.Turn, "error", err)
			}
			d.Move, d.Value = e.onePly(state, req.Ruleset, you, d.Safe)
			d.Fallback = true
		} else {
			d.Move, d.Value, d.Depth = res.Move, res.Value, res.Depth
		}
		d.Nodes = res.Nodes
	}
	d.Elapsed = time.Since(start)

	e.logger.Info("decision",
		"turn", state.Turn,
		"you", you,
		"move", d.Move.String(),
		"depth", d.Depth,
		"nodes", d.Nodes,
		"score", d.Value.Score,
		"forced", d.Forced,
		"fallback", d.Fallback,
		"elapsed", d.Elapsed,
	)
	return d
}

// onePly ranks each candidate by evaluating the position after only our snake
// moves. Ties keep the earlier candidate.
func (e *Engine) onePly(state *game.GameState, rs rules.Ruleset, you string, moves []game.Move) (game.Move, heuristic.Value) {
	if len(moves) == 0 {
		return game.MoveUp, heuristic.LossValue
	}
	best := moves[0]
	bestValue := e.eval.Evaluate(rules.Project(state, rs, you, best), you)
	for _, m := range moves[1:] {
		v := e.eval.Evaluate(rules.Project(state, rs, you, m), you)
		if bestValue.Less(v) {
			best, bestValue = m, v
		}
	}
	return best, bestValue
}
