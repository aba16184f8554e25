// Package search picks moves with a deadline-bounded paranoid max-n search.
//
// Every tick is expanded as an explicit sequence of plies: we choose first
// (maximising), then each live opponent in board order chooses to minimise
// our value, then the tick is simulated with rules.Step. Alpha-beta bounds are
// threaded through every ply and depths are deepened iteratively until the
// deadline; only fully completed depths count.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/heuristic"
	"github.com/brensch/snekmax/rules"
)

// ErrNoCompletedDepth is returned when the deadline passes before depth 1
// finishes.
var ErrNoCompletedDepth = errors.New("no search depth completed")

type Config struct {
	// SafetyBuffer is subtracted from the deadline before polling.
	SafetyBuffer time.Duration
	MaxDepth     int

	// Parallel searches each root move in its own goroutine.
	Parallel bool

	// TableSize bounds the transposition table entry count.
	TableSize int
	Opponents OpponentModel
}

func DefaultConfig() Config {
	return Config{
		SafetyBuffer: 30 * time.Millisecond,
		MaxDepth:     32,
		TableSize:    1 << 18,
		Opponents:    Paranoid{},
	}
}

// Result describes the deepest completed search.
type Result struct {
	Move  game.Move
	Value heuristic.Value

	// Depth is the number of ticks the deepest completed iteration looked at.
	Depth int
	Nodes int64

	// Exhaustive is set when that iteration never stopped at the depth limit.
	Exhaustive bool
	Root       []MoveValue
	Elapsed    time.Duration
}

type MoveValue struct {
	Move  game.Move
	Value heuristic.Value
}

type Searcher struct {
	cfg    Config
	eval   heuristic.Evaluator
	logger *slog.Logger
}

func New(cfg Config, eval heuristic.Evaluator, logger *slog.Logger) *Searcher {
	if cfg.Opponents == nil {
		cfg.Opponents = Paranoid{}
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	if cfg.TableSize <= 0 {
		cfg.TableSize = DefaultConfig().TableSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{cfg: cfg, eval: eval, logger: logger}
}

func (s *Searcher) Config() Config { return s.cfg }

// Search runs iterative deepening for snake id over the candidate root moves
// until deadline minus the safety buffer, ctx cancellation or MaxDepth. A zero
// deadline means no time limit. state is never modified.
func (s *Searcher) Search(ctx context.Context, state *game.GameState, rs rules.Ruleset, id string, roots []game.Move, deadline time.Time) (Result, error) {
	start := time.Now()
	if len(roots) == 0 {
		roots = rules.SafeMoves(state, id, rs)
	}

	var stop time.Time
	if !deadline.IsZero() {
		stop = deadline.Add(-s.cfg.SafetyBuffer)
	}

	table := NewTable(s.cfg.TableSize)
	var (
		best  Result
		nodes int64
	)
	for depth := 1; depth <= s.cfg.MaxDepth; depth++ {
		values, n, limited, err := s.searchDepth(ctx, state, rs, id, roots, depth, stop, table)
		nodes += n
		if err != nil {
			s.logger.Debug("depth aborted", "depth", depth, "nodes", n, "elapsed", time.Since(start))
			break
		}

		best = Result{Depth: depth, Exhaustive: !limited, Root: make([]MoveValue, len(roots))}
		for i, m := range roots {
			best.Root[i] = MoveValue{Move: m, Value: values[i]}
		}
		// Ties go to the earlier root, which is move priority order.
		best.Move, best.Value = roots[0], values[0]
		for i := 1; i < len(roots); i++ {
			if best.Value.Less(values[i]) {
				best.Move, best.Value = roots[i], values[i]
			}
		}
		s.logger.Debug("depth complete",
			"depth", depth,
			"move", best.Move.String(),
			"score", best.Value.Score,
			"space", best.Value.Space,
			"nodes", n,
			"elapsed", time.Since(start),
		)

		if !limited || best.Value.Score <= heuristic.Loss+depth || best.Value.Score >= heuristic.Win {
			break
		}
	}

	best.Nodes = nodes
	best.Elapsed = time.Since(start)
	if best.Depth == 0 {
		return best, fmt.Errorf("search %s: %w", id, ErrNoCompletedDepth)
	}
	return best, nil
}

// searchDepth evaluates every root move to the given depth. Values for
// sequential search are alpha-beta bounds: any move that does not beat the
// best earlier move reports a value no better than it, which keeps the
// earliest best move on top.
func (s *Searcher) searchDepth(ctx context.Context, state *game.GameState, rs rules.Ruleset, id string, roots []game.Move, depth int, stop time.Time, table *Table) ([]heuristic.Value, int64, bool, error) {
	newWorker := func(done <-chan struct{}) *worker {
		return &worker{
			me:        id,
			rs:        rs,
			eval:      s.eval,
			opponents: s.cfg.Opponents,
			table:     table,
			stop:      stop,
			done:      done,
			rootTurn:  state.Turn,
		}
	}

	values := make([]heuristic.Value, len(roots))
	opponents := liveOpponents(state, id)

	if !s.cfg.Parallel || len(roots) == 1 {
		w := newWorker(ctx.Done())
		alpha := negInf
		for i, m := range roots {
			v, err := w.reply(state, opponents, 0, map[string]game.Move{id: m}, depth, alpha, posInf)
			if err != nil {
				return nil, w.nodes, true, err
			}
			values[i] = v
			if alpha.Less(v) {
				alpha = v
			}
		}
		return values, w.nodes, w.limited, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := make([]*worker, len(roots))
	for i, m := range roots {
		workers[i] = newWorker(gctx.Done())
		g.Go(func() error {
			w := workers[i]
			v, err := w.reply(state, opponents, 0, map[string]game.Move{id: m}, depth, negInf, posInf)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	err := g.Wait()

	var nodes int64
	limited := false
	for _, w := range workers {
		nodes += w.nodes
		limited = limited || w.limited
	}
	if err != nil {
		return nil, nodes, true, err
	}
	return values, nodes, limited, nil
}
