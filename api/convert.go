package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/rules"
)

var ErrBadRequest = errors.New("bad request")

// MaxBoardSide is the largest width or height accepted. Hosted games top out
// at 25.
const MaxBoardSide = 25

// ToRuleset maps the payload's ruleset onto the rules package. A zero
// hazardDamagePerTurn falls back to the hosted default.
func ToRuleset(r Ruleset) rules.Ruleset {
	name := r.Name
	if name == "" {
		name = rules.NameStandard
	}
	damage := int32(r.Settings.HazardDamagePerTurn)
	if damage <= 0 {
		damage = rules.DefaultHazardDamage
	}
	return rules.Ruleset{
		Name:                name,
		HazardDamagePerTurn: damage,
		Food: rules.FoodSettings{
			MinimumFood:     r.Settings.MinimumFood,
			FoodSpawnChance: r.Settings.FoodSpawnChance,
		},
	}
}

// ToGameState converts an API request to our game state. Snakes keep the
// board's order.
func ToGameState(req *GameRequest, rs rules.Ruleset) (*game.GameState, error) {
	if req.Board.Width <= 0 || req.Board.Height <= 0 ||
		req.Board.Width > MaxBoardSide || req.Board.Height > MaxBoardSide {
		return nil, fmt.Errorf("%w: board %dx%d", ErrBadRequest, req.Board.Width, req.Board.Height)
	}
	if req.You.ID == "" {
		return nil, fmt.Errorf("%w: missing you.id", ErrBadRequest)
	}

	state := &game.GameState{
		Width:   int32(req.Board.Width),
		Height:  int32(req.Board.Height),
		YouId:   req.You.ID,
		Turn:    int32(req.Turn),
		Wrapped: rs.Wrapped(),
		Food:    toPoints(req.Board.Food),
		Hazards: toPoints(req.Board.Hazards),
	}

	state.Snakes = make([]game.Snake, len(req.Board.Snakes))
	for i, s := range req.Board.Snakes {
		if len(s.Body) == 0 {
			return nil, fmt.Errorf("%w: snake %s has no body", ErrBadRequest, s.ID)
		}
		state.Snakes[i] = game.Snake{
			Id:     s.ID,
			Health: int32(s.Health),
			Body:   toPoints(s.Body),
		}
		if head := state.Snakes[i].Head(); !state.IsInside(head) {
			return nil, fmt.Errorf("%w: snake %s head (%d,%d) off the %dx%d board",
				ErrBadRequest, s.ID, head.X, head.Y, req.Board.Width, req.Board.Height)
		}
	}
	return state, nil
}

// Timeout is the host's per-move timeout, zero when the payload omits it.
func (req *GameRequest) Timeout() time.Duration {
	return time.Duration(req.Game.Timeout) * time.Millisecond
}

func toPoints(cs []Coord) []game.Point {
	ps := make([]game.Point, len(cs))
	for i, c := range cs {
		ps[i] = game.Point{X: int32(c.X), Y: int32(c.Y)}
	}
	return ps
}
