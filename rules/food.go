package rules

import (
	"math/rand"

	"github.com/brensch/snekmax/game"
)

// FoodSettings matches the Battlesnake server knobs:
// - MinimumFood: ensure at least this many food items exist after each turn
// - FoodSpawnChance: percentage chance (0-100) to spawn one extra food each turn
type FoodSettings struct {
	MinimumFood     int
	FoodSpawnChance int
}

var DefaultFoodSettings = FoodSettings{MinimumFood: 1, FoodSpawnChance: 15}

// PlaceFood returns a copy of state with food spawned per settings. Food only
// lands on cells free of live snakes and existing food.
//
// With a nil rng the placement is derived from the state fingerprint, so
// replays of the same game place food identically.
func PlaceFood(state *game.GameState, rng *rand.Rand, settings FoodSettings) *game.GameState {
	return placeFood(state, rng, settings, 0x464F4F445F494E49) // "FOOD_INI"
}

func placeFood(state *game.GameState, rng *rand.Rand, settings FoodSettings, salt uint64) *game.GameState {
	out := state.Clone()
	if out.Width <= 0 || out.Height <= 0 {
		return out
	}
	if settings.MinimumFood < 0 {
		settings.MinimumFood = 0
	}
	if settings.FoodSpawnChance < 0 {
		settings.FoodSpawnChance = 0
	}
	if settings.FoodSpawnChance > 100 {
		settings.FoodSpawnChance = 100
	}

	// Decide how much to place before doing any grid work.
	deficit := settings.MinimumFood - len(out.Food)
	if deficit < 0 {
		deficit = 0
	}

	seed := mix(state.Fingerprint()^uint64(uint32(state.Turn)), salt)
	spawnExtra := false
	if settings.FoodSpawnChance > 0 {
		if rng != nil {
			spawnExtra = rng.Intn(100) < settings.FoodSpawnChance
		} else {
			spawnExtra = int(seed%100) < settings.FoodSpawnChance
		}
	}

	toSpawn := deficit
	if spawnExtra {
		toSpawn++
	}
	if toSpawn == 0 {
		return out
	}

	if rng == nil {
		s := int64(mix(seed, salt))
		if s == 0 {
			s = 1
		}
		rng = rand.New(rand.NewSource(s))
	}

	occupied := make([]bool, out.Cells())
	for i := range out.Snakes {
		if !out.Snakes[i].Alive() {
			continue
		}
		for _, p := range out.Snakes[i].Body {
			if out.IsInside(p) {
				occupied[out.Index(p)] = true
			}
		}
	}
	for _, f := range out.Food {
		if out.IsInside(f) {
			occupied[out.Index(f)] = true
		}
	}

	available := make([]game.Point, 0, out.Cells())
	for y := int32(0); y < out.Height; y++ {
		for x := int32(0); x < out.Width; x++ {
			p := game.Point{X: x, Y: y}
			if !occupied[out.Index(p)] {
				available = append(available, p)
			}
		}
	}

	for ; toSpawn > 0 && len(available) > 0; toSpawn-- {
		i := rng.Intn(len(available))
		out.Food = append(out.Food, available[i])
		available[i] = available[len(available)-1]
		available = available[:len(available)-1]
	}

	return out
}

// mix is a splitmix64 finaliser.
func mix(a, b uint64) uint64 {
	x := a + b
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
