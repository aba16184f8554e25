// Package heuristic scores Battlesnake positions from one snake's point of view.
package heuristic

import (
	"fmt"

	"github.com/brensch/snekmax/game"
)

const (
	// Loss is the most negative score a position can get. Terminal losses in
	// search add the number of ticks survived so later deaths rank higher.
	Loss = -1_000_000_000
	// Win is returned once every opponent is gone.
	Win = 1_000_000_000
)

// Value is an evaluation result. Values compare lexicographically: Score,
// then reachable Space, then Food (minus the distance to the nearest food,
// only populated while the snake is hungry).
type Value struct {
	Score int
	Space int
	Food  int
}

// LossValue and WinValue are the terminal values.
var (
	LossValue = Value{Score: Loss}
	WinValue  = Value{Score: Win}
)

// Compare returns -1, 0 or 1.
func (v Value) Compare(o Value) int {
	switch {
	case v.Score != o.Score:
		return cmpInt(v.Score, o.Score)
	case v.Space != o.Space:
		return cmpInt(v.Space, o.Space)
	default:
		return cmpInt(v.Food, o.Food)
	}
}

func (v Value) Less(o Value) bool { return v.Compare(o) < 0 }

func (v Value) String() string {
	return fmt.Sprintf("score=%d space=%d food=%d", v.Score, v.Space, v.Food)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Evaluator scores state for the snake with the given id. Implementations
// must be safe for concurrent use and must not modify state.
type Evaluator interface {
	Evaluate(state *game.GameState, id string) Value
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(state *game.GameState, id string) Value

func (f EvaluatorFunc) Evaluate(state *game.GameState, id string) Value { return f(state, id) }
