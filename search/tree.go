package search

import (
	"errors"
	"math"
	"time"

	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/heuristic"
	"github.com/brensch/snekmax/rules"
)

var errAborted = errors.New("search aborted")

var (
	negInf = heuristic.Value{Score: math.MinInt}
	posInf = heuristic.Value{Score: math.MaxInt}
)

// worker walks one subtree. Workers are not shared between goroutines; the
// table is.
type worker struct {
	me        string
	rs        rules.Ruleset
	eval      heuristic.Evaluator
	opponents OpponentModel
	table     *Table

	stop     time.Time
	done     <-chan struct{}
	rootTurn int32

	nodes   int64
	limited bool
}

func (w *worker) expired() bool {
	w.nodes++
	select {
	case <-w.done:
		return true
	default:
	}
	return !w.stop.IsZero() && !time.Now().Before(w.stop)
}

// tick evaluates state at a tick boundary where it is our turn to choose,
// with depth ticks left to look at.
func (w *worker) tick(state *game.GameState, depth int, alpha, beta heuristic.Value) (heuristic.Value, error) {
	if w.expired() {
		return negInf, errAborted
	}

	me, ok := state.SnakeByID(w.me)
	if !ok || !me.Alive() {
		return heuristic.Value{Score: heuristic.Loss + int(state.Turn-w.rootTurn)}, nil
	}
	opponents := liveOpponents(state, w.me)
	if len(opponents) == 0 && len(state.Snakes) > 1 {
		return w.eval.Evaluate(state, w.me), nil
	}
	if depth == 0 {
		w.limited = true
		return w.eval.Evaluate(state, w.me), nil
	}

	key := tableKey(state.Fingerprint(), depth, state.Turn, 0)
	moves := rules.SafeMoves(state, w.me, w.rs)
	origAlpha, origBeta := alpha, beta
	if e, ok := w.table.get(key); ok {
		if e.limited {
			w.limited = true
		}
		switch e.bound {
		case BoundExact:
			return e.value, nil
		case BoundLower:
			if alpha.Less(e.value) {
				alpha = e.value
			}
		case BoundUpper:
			if e.value.Less(beta) {
				beta = e.value
			}
		}
		if !alpha.Less(beta) {
			return e.value, nil
		}
		moves = bestFirst(moves, e.best)
	}

	outer := w.limited
	w.limited = false

	best, bestMove := negInf, moves[0]
	for _, m := range moves {
		v, err := w.reply(state, opponents, 0, map[string]game.Move{w.me: m}, depth, alpha, beta)
		if err != nil {
			return negInf, err
		}
		if best.Less(v) {
			best, bestMove = v, m
		}
		if alpha.Less(best) {
			alpha = best
		}
		if !alpha.Less(beta) {
			break
		}
	}

	bound := BoundExact
	switch {
	case !origAlpha.Less(best):
		bound = BoundUpper
	case !best.Less(origBeta):
		bound = BoundLower
	}
	w.table.put(key, entry{value: best, bound: bound, best: bestMove, limited: w.limited})
	w.limited = w.limited || outer
	return best, nil
}

// reply runs the ply of opponents[k], minimising our value with the moves
// chosen so far this tick held fixed. Once every opponent has chosen the
// tick is simulated.
func (w *worker) reply(state *game.GameState, opponents []string, k int, chosen map[string]game.Move, depth int, alpha, beta heuristic.Value) (heuristic.Value, error) {
	if k == len(opponents) {
		return w.tick(rules.Step(state, chosen, w.rs), depth-1, alpha, beta)
	}
	if w.expired() {
		return negInf, errAborted
	}

	id := opponents[k]
	best := posInf
	for _, m := range w.opponents.Moves(state, id, w.rs) {
		chosen[id] = m
		v, err := w.reply(state, opponents, k+1, chosen, depth, alpha, beta)
		if err != nil {
			return negInf, err
		}
		if v.Less(best) {
			best = v
		}
		if best.Less(beta) {
			beta = best
		}
		if !alpha.Less(beta) {
			break
		}
	}
	delete(chosen, id)
	return best, nil
}

func liveOpponents(state *game.GameState, me string) []string {
	ids := make([]string, 0, len(state.Snakes))
	for i := range state.Snakes {
		s := &state.Snakes[i]
		if s.Id != me && s.Alive() {
			ids = append(ids, s.Id)
		}
	}
	return ids
}

// bestFirst moves m to the front of moves, keeping the rest in order.
func bestFirst(moves []game.Move, m game.Move) []game.Move {
	for i, x := range moves {
		if x != m {
			continue
		}
		if i == 0 {
			return moves
		}
		out := make([]game.Move, 0, len(moves))
		out = append(out, m)
		out = append(out, moves[:i]...)
		return append(out, moves[i+1:]...)
	}
	return moves
}
