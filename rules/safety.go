package rules

import (
	"github.com/brensch/snekmax/game"
)

// SafeMoves returns the moves for snake id that are not certainly fatal one
// tick ahead, in priority order.
//
// Only outcomes that hold whatever the other snakes do are pruned: leaving the
// board, running into a segment that is guaranteed to still be there next
// tick, or starving. Head-to-head contests and tails that may or may not move
// are left to the search. When every move is fatal all four are returned so
// the caller can still rank them.
func SafeMoves(state *game.GameState, id string, rs Ruleset) []game.Move {
	s, ok := state.SnakeByID(id)
	if !ok || !s.Alive() {
		return allMoves()
	}

	safe := make([]game.Move, 0, 4)
	for _, m := range game.AllMoves {
		if !certainlyFatal(state, s, rs, m) {
			safe = append(safe, m)
		}
	}
	if len(safe) == 0 {
		return allMoves()
	}
	return safe
}

func allMoves() []game.Move {
	return append([]game.Move(nil), game.AllMoves[:]...)
}

// IsSafe reports whether m survives the SafeMoves checks.
func IsSafe(state *game.GameState, id string, rs Ruleset, m game.Move) bool {
	s, ok := state.SnakeByID(id)
	if !ok || !s.Alive() {
		return false
	}
	return !certainlyFatal(state, s, rs, m)
}

func certainlyFatal(state *game.GameState, s *game.Snake, rs Ruleset, m game.Move) bool {
	p := state.Neighbor(s.Head(), m)
	if !state.IsInside(p) {
		return true
	}

	ate := state.IsFood(p)
	if !ate && !rs.Constrictor() {
		damage := int32(1)
		if state.IsHazard(p) {
			damage += rs.HazardDamagePerTurn
		}
		if s.Health-damage <= 0 {
			return true
		}
	}

	for i := range state.Snakes {
		o := &state.Snakes[i]
		if !o.Alive() {
			continue
		}
		last := len(o.Body) - 1
		for j, b := range o.Body {
			if b != p {
				continue
			}
			if j < last || tailStays(o, rs) {
				return true
			}
		}
	}
	return false
}

// tailStays reports whether a snake's tail is certain to remain in place next
// tick: the snake grew last tick (stacked tail) or grows every tick.
func tailStays(s *game.Snake, rs Ruleset) bool {
	if rs.Constrictor() {
		return true
	}
	n := len(s.Body)
	return n >= 2 && s.Body[n-1] == s.Body[n-2]
}
