// Package rules advances Battlesnake states.
//
// Step is the deterministic transition used by the search; PlaceFood is the
// only source of randomness and is applied by local play, never inside search.
package rules

import (
	"github.com/brensch/snekmax/game"
)

// Elimination causes recorded in game.Snake.Eliminated.
const (
	DeathStarvation      = "starvation"
	DeathWallCollision   = "wall-collision"
	DeathSelfCollision   = "snake-self-collision"
	DeathSnakeCollision  = "snake-collision"
	DeathHeadToHead      = "head-collision"
	DeathNoMoveSubmitted = "no-move"
)

const (
	NameStandard           = "standard"
	NameSolo               = "solo"
	NameRoyale             = "royale"
	NameWrapped            = "wrapped"
	NameConstrictor        = "constrictor"
	NameWrappedConstrictor = "wrapped-constrictor"
)

const MaxHealth = 100

// DefaultHazardDamage is the extra damage per tick spent on a hazard in the
// hosted game modes.
const DefaultHazardDamage = 14

// Ruleset carries the per-game knobs the engine needs.
type Ruleset struct {
	Name                string
	HazardDamagePerTurn int32
	Food                FoodSettings
}

func Standard() Ruleset {
	return Ruleset{
		Name:                NameStandard,
		HazardDamagePerTurn: DefaultHazardDamage,
		Food:                DefaultFoodSettings,
	}
}

// Constrictor rules: no starvation and every snake grows every tick.
func (r Ruleset) Constrictor() bool {
	return r.Name == NameConstrictor || r.Name == NameWrappedConstrictor
}

// Wrapped reports whether board edges connect under this ruleset.
func (r Ruleset) Wrapped() bool {
	return r.Name == NameWrapped || r.Name == NameWrappedConstrictor
}

// Step advances the game by one tick given a move for every living snake.
// A live snake missing from moves is eliminated. The input is not modified.
func Step(state *game.GameState, moves map[string]game.Move, rs Ruleset) *game.GameState {
	next := state.Clone()
	next.Turn++

	alive := make([]bool, len(next.Snakes))
	ate := make([]bool, len(next.Snakes))

	// 1. Move heads and shift bodies.
	for i := range next.Snakes {
		s := &next.Snakes[i]
		if !s.Alive() {
			continue
		}
		m, ok := moves[s.Id]
		if !ok {
			s.Eliminated = DeathNoMoveSubmitted
			continue
		}
		alive[i] = true
		newHead := next.Neighbor(s.Body[0], m)
		copy(s.Body[1:], s.Body[:len(s.Body)-1])
		s.Body[0] = newHead
	}

	cells := cellMarks(next)

	// 2. Feed and grow.
	var eaten []game.Point
	for i := range next.Snakes {
		if !alive[i] {
			continue
		}
		s := &next.Snakes[i]
		head := s.Body[0]
		if cells.has(next, head, markFood) {
			ate[i] = true
			eaten = append(eaten, head)
		}
		if ate[i] || rs.Constrictor() {
			s.Body = append(s.Body, s.Body[len(s.Body)-1])
		}
	}
	if len(eaten) > 0 {
		remaining := next.Food[:0]
		for _, f := range next.Food {
			consumed := false
			for _, e := range eaten {
				if e == f {
					consumed = true
					break
				}
			}
			if !consumed {
				remaining = append(remaining, f)
			}
		}
		next.Food = remaining
	}

	// 3. Health.
	for i := range next.Snakes {
		if !alive[i] {
			continue
		}
		s := &next.Snakes[i]
		switch {
		case ate[i] || rs.Constrictor():
			s.Health = MaxHealth
		default:
			s.Health--
			if cells.has(next, s.Body[0], markHazard) {
				s.Health -= rs.HazardDamagePerTurn
			}
		}
	}

	// 4. Eliminations. Starvation and walls first; collisions only count
	// against snakes that survived that pass.
	causes := make([]string, len(next.Snakes))
	for i := range next.Snakes {
		if !alive[i] {
			continue
		}
		s := &next.Snakes[i]
		switch {
		case s.Health <= 0:
			causes[i] = DeathStarvation
		case !next.IsInside(s.Body[0]):
			causes[i] = DeathWallCollision
		}
	}
	for i := range next.Snakes {
		if !alive[i] || causes[i] != "" {
			continue
		}
		causes[i] = collisionCause(next, i, alive, causes)
	}
	for i, c := range causes {
		if c != "" {
			next.Snakes[i].Eliminated = c
		}
	}

	return next
}

const (
	markFood uint8 = 1 << iota
	markHazard
)

// marks flags food and hazard cells on a flat grid so per-snake lookups do
// not scan the item lists.
type marks []uint8

func cellMarks(state *game.GameState) marks {
	m := make(marks, state.Cells())
	for _, f := range state.Food {
		if state.IsInside(f) {
			m[state.Index(f)] |= markFood
		}
	}
	for _, h := range state.Hazards {
		if state.IsInside(h) {
			m[state.Index(h)] |= markHazard
		}
	}
	return m
}

func (m marks) has(state *game.GameState, p game.Point, flag uint8) bool {
	return state.IsInside(p) && m[state.Index(p)]&flag != 0
}

func collisionCause(state *game.GameState, i int, alive []bool, causes []string) string {
	s := &state.Snakes[i]
	head := s.Body[0]

	for _, b := range s.Body[1:] {
		if b == head {
			return DeathSelfCollision
		}
	}

	for j := range state.Snakes {
		if j == i || !alive[j] || causes[j] == DeathStarvation || causes[j] == DeathWallCollision {
			continue
		}
		for _, b := range state.Snakes[j].Body[1:] {
			if b == head {
				return DeathSnakeCollision
			}
		}
	}

	for j := range state.Snakes {
		if j == i || !alive[j] || causes[j] == DeathStarvation || causes[j] == DeathWallCollision {
			continue
		}
		other := &state.Snakes[j]
		if other.Body[0] == head && len(s.Body) <= len(other.Body) {
			return DeathHeadToHead
		}
	}

	return ""
}

// Project moves a single snake while every other snake stays where it is.
// Other bodies, heads included, are solid. Used for one-ply estimates where
// opponent moves are unknown.
func Project(state *game.GameState, rs Ruleset, id string, m game.Move) *game.GameState {
	next := state.Clone()
	next.Turn++

	s, ok := next.SnakeByID(id)
	if !ok || !s.Alive() {
		return next
	}

	newHead := next.Neighbor(s.Body[0], m)
	copy(s.Body[1:], s.Body[:len(s.Body)-1])
	s.Body[0] = newHead

	ate := false
	for i, f := range next.Food {
		if f == newHead {
			ate = true
			next.Food = append(next.Food[:i], next.Food[i+1:]...)
			break
		}
	}
	if ate || rs.Constrictor() {
		s.Body = append(s.Body, s.Body[len(s.Body)-1])
		s.Health = MaxHealth
	} else {
		s.Health--
		if next.IsHazard(newHead) {
			s.Health -= rs.HazardDamagePerTurn
		}
	}

	switch {
	case s.Health <= 0:
		s.Eliminated = DeathStarvation
	case !next.IsInside(newHead):
		s.Eliminated = DeathWallCollision
	default:
		for _, b := range s.Body[1:] {
			if b == newHead {
				s.Eliminated = DeathSelfCollision
				return next
			}
		}
		for i := range next.Snakes {
			o := &next.Snakes[i]
			if o.Id == id || !o.Alive() {
				continue
			}
			for _, b := range o.Body {
				if b == newHead {
					s.Eliminated = DeathSnakeCollision
					return next
				}
			}
		}
	}

	return next
}

// IsGameOver is true once at most one snake remains in a multi-snake game,
// or no snake remains in a solo game.
func IsGameOver(state *game.GameState) bool {
	live := state.LiveSnakes()
	if len(state.Snakes) > 1 {
		return live <= 1
	}
	return live == 0
}

// Winner returns the id of the sole surviving snake, or "" for a draw or an
// unfinished game.
func Winner(state *game.GameState) string {
	if state.LiveSnakes() != 1 {
		return ""
	}
	for i := range state.Snakes {
		if state.Snakes[i].Alive() {
			return state.Snakes[i].Id
		}
	}
	return ""
}
