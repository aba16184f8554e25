package heuristic

import (
	"github.com/brensch/snekmax/game"
)

// Weights tunes the Weighted evaluator. Space dominates by default.
type Weights struct {
	Space       int `yaml:"space"`
	TrapPenalty int `yaml:"trap_penalty"`
	Length      int `yaml:"length"`
	Health      int `yaml:"health"`
	Food        int `yaml:"food"`

	// Health above LowHealth earns Health points per unit.
	LowHealth int32 `yaml:"low_health"`
	// At or below StarvingHealth the position takes StarvingPenalty.
	StarvingHealth  int32 `yaml:"starving_health"`
	StarvingPenalty int   `yaml:"starving_penalty"`
	// Food proximity only counts below FoodSeekHealth.
	FoodSeekHealth int32 `yaml:"food_seek_health"`
}

func DefaultWeights() Weights {
	return Weights{
		Space:           10,
		TrapPenalty:     400,
		Length:          30,
		Health:          1,
		Food:            240,
		LowHealth:       30,
		StarvingHealth:  10,
		StarvingPenalty: 600,
		FoodSeekHealth:  40,
	}
}

// Weighted is the default evaluator: a single flood fill from the snake's
// head supplies both the space term and the nearest food distance.
type Weighted struct {
	W Weights
}

func NewWeighted(w Weights) *Weighted {
	return &Weighted{W: w}
}

func (e *Weighted) Evaluate(state *game.GameState, id string) Value {
	me, ok := state.SnakeByID(id)
	if !ok || !me.Alive() {
		return LossValue
	}

	opponents, alive := 0, 0
	longest := 0
	for i := range state.Snakes {
		o := &state.Snakes[i]
		if o.Id == id {
			continue
		}
		opponents++
		if !o.Alive() {
			continue
		}
		alive++
		if o.Length() > longest {
			longest = o.Length()
		}
	}
	if opponents > 0 && alive == 0 {
		return WinValue
	}

	space, foodDist := fill(state, me.Head(), obstacles(state))

	w := e.W
	v := Value{Space: space}
	v.Score = w.Space * space
	if space < me.Length() {
		v.Score -= w.TrapPenalty
	}
	if alive > 0 {
		v.Score += w.Length * (me.Length() - longest)
	}
	if me.Health > w.LowHealth {
		v.Score += w.Health * int(me.Health-w.LowHealth)
	}
	if me.Health <= w.StarvingHealth {
		v.Score -= w.StarvingPenalty
	}

	if me.Health < w.FoodSeekHealth {
		if foodDist > 0 {
			v.Score += w.Food / foodDist
			v.Food = -foodDist
		} else {
			v.Food = -state.Cells()
		}
	}
	return v
}
