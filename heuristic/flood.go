package heuristic

import (
	"github.com/brensch/snekmax/game"
)

// obstacles marks every cell a flood fill may not enter: live snake bodies
// and hazards.
func obstacles(state *game.GameState) []bool {
	blocked := make([]bool, state.Cells())
	for i := range state.Snakes {
		s := &state.Snakes[i]
		if !s.Alive() {
			continue
		}
		for _, p := range s.Body {
			if state.IsInside(p) {
				blocked[state.Index(p)] = true
			}
		}
	}
	for _, h := range state.Hazards {
		if state.IsInside(h) {
			blocked[state.Index(h)] = true
		}
	}
	return blocked
}

// fill runs one BFS from start over unblocked cells. start itself is never
// counted; its open neighbours seed the walk. dist is the step count to the
// closest reachable food, -1 if none is reachable.
func fill(state *game.GameState, start game.Point, blocked []bool) (space, dist int) {
	dist = -1
	if len(blocked) == 0 {
		return 0, dist
	}

	food := make([]bool, len(blocked))
	for _, f := range state.Food {
		if state.IsInside(f) {
			food[state.Index(f)] = true
		}
	}

	seen := make([]bool, len(blocked))
	if state.IsInside(start) {
		seen[state.Index(start)] = true
	}

	type step struct {
		p game.Point
		d int
	}
	queue := make([]step, 0, len(blocked))
	push := func(p game.Point, d int) {
		if !state.IsInside(p) {
			return
		}
		idx := state.Index(p)
		if seen[idx] || blocked[idx] {
			return
		}
		seen[idx] = true
		queue = append(queue, step{p: p, d: d})
	}

	for _, m := range game.AllMoves {
		push(state.Neighbor(start, m), 1)
	}
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		space++
		if dist < 0 && food[state.Index(cur.p)] {
			dist = cur.d
		}
		for _, m := range game.AllMoves {
			push(state.Neighbor(cur.p, m), cur.d+1)
		}
	}
	return space, dist
}

// Room counts the open cells reachable from p, p included when it is open
// itself. Live bodies and hazards block.
func Room(state *game.GameState, p game.Point) int {
	if !state.IsInside(p) {
		return 0
	}
	blocked := obstacles(state)
	if blocked[state.Index(p)] {
		return 0
	}
	space, _ := fill(state, p, blocked)
	return space + 1
}

// Reach returns the flood-fill space from the head of snake id and the BFS
// distance to the nearest reachable food (-1 when there is none).
func Reach(state *game.GameState, id string) (space, foodDist int) {
	s, ok := state.SnakeByID(id)
	if !ok || !s.Alive() {
		return 0, -1
	}
	return fill(state, s.Head(), obstacles(state))
}
