// Package selfplay plays the engine against itself on a local board.
package selfplay

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/snekmax/engine"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/rules"
	"github.com/brensch/snekmax/store"
)

const Source = "selfplay"

type Options struct {
	Width   int32
	Height  int32
	Snakes  int
	Ruleset rules.Ruleset

	// MoveBudget is the per-decision compute time given to every snake.
	MoveBudget time.Duration
	// MaxTurns ends the game as a draw; zero means no limit.
	MaxTurns int
	Seed     int64
}

func DefaultOptions() Options {
	return Options{
		Width:      11,
		Height:     11,
		Snakes:     2,
		Ruleset:    rules.Standard(),
		MoveBudget: 100 * time.Millisecond,
		MaxTurns:   500,
	}
}

type GameResult struct {
	GameID string
	Winner string
	Turns  int
	Rows   []store.TurnRow
}

// Turn is reported after every tick.
type Turn struct {
	GameID string
	Turn   int32
	Alive  int
	Moves  map[string]game.Move
}

// startPoints are the standard-board spawn points scaled to the board.
func startPoints(width, height int32) []game.Point {
	lo, hiX, hiY := int32(1), width-2, height-2
	midX, midY := width/2, height/2
	return []game.Point{
		{X: lo, Y: lo},
		{X: hiX, Y: hiY},
		{X: lo, Y: hiY},
		{X: hiX, Y: lo},
		{X: midX, Y: lo},
		{X: midX, Y: hiY},
		{X: lo, Y: midY},
		{X: hiX, Y: midY},
	}
}

// InitialState places n stacked length-3 snakes on spawn points chosen by
// rng and enforces the minimum food.
func InitialState(rng *rand.Rand, width, height int32, n int, rs rules.Ruleset) (*game.GameState, error) {
	if width < 3 || height < 3 {
		return nil, fmt.Errorf("board %dx%d too small", width, height)
	}
	spawns := startPoints(width, height)
	if n < 1 || n > len(spawns) {
		return nil, fmt.Errorf("snake count %d outside 1..%d", n, len(spawns))
	}
	rng.Shuffle(len(spawns), func(i, j int) { spawns[i], spawns[j] = spawns[j], spawns[i] })

	state := &game.GameState{
		Width:   width,
		Height:  height,
		Wrapped: rs.Wrapped(),
		Snakes:  make([]game.Snake, n),
	}
	for i := 0; i < n; i++ {
		p := spawns[i]
		state.Snakes[i] = game.Snake{
			Id:     fmt.Sprintf("snake%d", i+1),
			Health: rules.MaxHealth,
			Body:   []game.Point{p, p, p},
		}
	}
	state.YouId = state.Snakes[0].Id

	// Only the minimum at game start.
	return rules.PlaceFood(state, rng, rules.FoodSettings{MinimumFood: rs.Food.MinimumFood}), nil
}

// PlayGame runs one game to completion. Every live snake decides concurrently
// each turn on its own copy of the state. When ctx is cancelled the partial
// game is returned with ctx's error.
func PlayGame(ctx context.Context, eng *engine.Engine, opts Options, onTurn func(Turn)) (GameResult, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	state, err := InitialState(rng, opts.Width, opts.Height, opts.Snakes, opts.Ruleset)
	if err != nil {
		return GameResult{}, err
	}

	res := GameResult{GameID: uuid.NewString()}
	rows := make([]store.TurnRow, 0, 256)

	for !rules.IsGameOver(state) {
		if opts.MaxTurns > 0 && int(state.Turn) >= opts.MaxTurns {
			break
		}
		if err := ctx.Err(); err != nil {
			res.Rows, res.Turns = rows, int(state.Turn)
			return res, err
		}

		moves := decideAll(ctx, eng, state, opts)
		rows = append(rows, store.NewTurnRow(res.GameID, Source, opts.Ruleset, state, moves))

		state = rules.Step(state, moves, opts.Ruleset)
		state = rules.PlaceFood(state, rng, opts.Ruleset.Food)

		if onTurn != nil {
			onTurn(Turn{GameID: res.GameID, Turn: state.Turn, Alive: state.LiveSnakes(), Moves: moves})
		}
	}

	// Final frame carries the outcome and no moves.
	rows = append(rows, store.NewTurnRow(res.GameID, Source, opts.Ruleset, state, nil))

	res.Winner = rules.Winner(state)
	res.Turns = int(state.Turn)
	for i := range rows {
		rows[i].Winner = res.Winner
	}
	res.Rows = rows
	return res, nil
}

func decideAll(ctx context.Context, eng *engine.Engine, state *game.GameState, opts Options) map[string]game.Move {
	moves := make(map[string]game.Move, len(state.Snakes))
	var mu sync.Mutex
	var wg sync.WaitGroup

	deadline := time.Now().Add(opts.MoveBudget)
	for _, snake := range state.Snakes {
		if !snake.Alive() {
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			local := state.Clone()
			local.YouId = id
			d := eng.Decide(ctx, engine.Request{State: local, Ruleset: opts.Ruleset, Deadline: deadline})

			mu.Lock()
			moves[id] = d.Move
			mu.Unlock()
		}(snake.Id)
	}
	wg.Wait()
	return moves
}
