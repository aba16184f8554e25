package selfplay

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/brensch/snekmax/engine"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/rules"
	"github.com/brensch/snekmax/search"
	"github.com/brensch/snekmax/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastEngine() *engine.Engine {
	cfg := search.DefaultConfig()
	cfg.MaxDepth = 2
	cfg.SafetyBuffer = time.Millisecond
	return engine.New(cfg, nil, quietLogger())
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.Width, opts.Height = 7, 7
	opts.MoveBudget = 20 * time.Millisecond
	opts.MaxTurns = 30
	opts.Seed = 42
	return opts
}

func TestInitialState(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	state, err := InitialState(rng, 11, 11, 4, rules.Standard())
	if err != nil {
		t.Fatalf("initial state: %v", err)
	}
	t.Logf("\n%s", game.Format(state))

	if len(state.Snakes) != 4 || state.YouId != "snake1" {
		t.Fatalf("snakes=%d you=%s", len(state.Snakes), state.YouId)
	}
	heads := map[game.Point]bool{}
	for _, s := range state.Snakes {
		if s.Length() != 3 || s.Health != rules.MaxHealth {
			t.Fatalf("snake %s length=%d health=%d", s.Id, s.Length(), s.Health)
		}
		if !state.IsInside(s.Head()) || heads[s.Head()] {
			t.Fatalf("snake %s bad spawn %v", s.Id, s.Head())
		}
		heads[s.Head()] = true
	}
	if len(state.Food) != rules.DefaultFoodSettings.MinimumFood {
		t.Fatalf("food=%d want=%d", len(state.Food), rules.DefaultFoodSettings.MinimumFood)
	}

	if _, err := InitialState(rng, 11, 11, 9, rules.Standard()); err == nil {
		t.Fatalf("expected error for too many snakes")
	}
	if _, err := InitialState(rng, 2, 2, 1, rules.Standard()); err == nil {
		t.Fatalf("expected error for tiny board")
	}
}

// Each recorded row, stepped with its recorded moves, must reproduce the bodies
// and health of the next row. Food spawning does not touch snakes.
func TestPlayGame_RowsReplay(t *testing.T) {
	opts := smallOptions()
	var turns int
	res, err := PlayGame(context.Background(), fastEngine(), opts, func(Turn) { turns++ })
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	t.Logf("game=%s winner=%q turns=%d rows=%d", res.GameID, res.Winner, res.Turns, len(res.Rows))

	if len(res.Rows) != res.Turns+1 || turns != res.Turns {
		t.Fatalf("rows=%d callbacks=%d turns=%d", len(res.Rows), turns, res.Turns)
	}
	if res.Turns > opts.MaxTurns {
		t.Fatalf("turns=%d exceeds max %d", res.Turns, opts.MaxTurns)
	}

	for i := 0; i+1 < len(res.Rows); i++ {
		row, next := res.Rows[i], res.Rows[i+1]
		if row.Turn != int32(i) || row.Winner != res.Winner || row.Source != Source {
			t.Fatalf("row %d turn=%d winner=%q source=%s", i, row.Turn, row.Winner, row.Source)
		}
		stepped := rules.Step(row.GameState("snake1"), row.Moves(), opts.Ruleset)
		want := next.GameState("snake1")
		if diff := cmp.Diff(want.Snakes, stepped.Snakes, cmpopts.EquateEmpty()); diff != "" {
			t.Logf("before:\n%s", game.Format(row.GameState("snake1")))
			t.Fatalf("turn %d replay mismatch (-recorded +stepped):\n%s", i, diff)
		}
	}

	last := res.Rows[len(res.Rows)-1]
	if len(last.Moves()) != 0 {
		t.Fatalf("final row has moves %v", last.Moves())
	}
}

func TestPlayGame_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := PlayGame(ctx, fastEngine(), smallOptions(), nil)
	if err == nil {
		t.Fatalf("expected error from cancelled context")
	}
	if len(res.Rows) != 0 || res.Turns != 0 {
		t.Fatalf("rows=%d turns=%d", len(res.Rows), res.Turns)
	}
}

func TestRun_WritesBatches(t *testing.T) {
	dir := t.TempDir()
	opts := smallOptions()
	opts.MaxTurns = 10

	var stats Stats
	updates := make(chan GameUpdate, 8)
	err := Run(context.Background(), fastEngine(), opts, RunOptions{
		Workers:       2,
		Games:         3,
		GamesPerFlush: 2,
		OutDir:        dir,
	}, &stats, updates, quietLogger())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := stats.Games.Load(); got != 3 {
		t.Fatalf("games=%d want=3", got)
	}
	var wins int64
	for _, n := range stats.WinCounts() {
		wins += n
	}
	if wins != 3 {
		t.Fatalf("win tally=%d want=3", wins)
	}
	if len(updates) != 3 {
		t.Fatalf("updates=%d want=3", len(updates))
	}

	batches, err := store.ListBatches(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("batches=%d want=2", len(batches))
	}
	ids := map[string]bool{}
	for _, p := range batches {
		rows, err := store.ReadRows[store.TurnRow](p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		for _, r := range rows {
			ids[r.GameID] = true
		}
	}
	if len(ids) != 3 {
		t.Fatalf("distinct games=%d want=3", len(ids))
	}
}

func TestRun_SeededRunsRepeat(t *testing.T) {
	openings := func() []string {
		dir := t.TempDir()
		opts := smallOptions()
		opts.MaxTurns = 2
		err := Run(context.Background(), fastEngine(), opts, RunOptions{
			Workers: 3,
			Games:   3,
			OutDir:  dir,
		}, nil, nil, quietLogger())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		batches, err := store.ListBatches(dir)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		var out []string
		for _, p := range batches {
			rows, err := store.ReadRows[store.TurnRow](p)
			if err != nil {
				t.Fatalf("read %s: %v", p, err)
			}
			for _, r := range rows {
				if r.Turn == 0 {
					out = append(out, game.Format(r.GameState("snake1")))
				}
			}
		}
		sort.Strings(out)
		return out
	}

	first, second := openings(), openings()
	if len(first) != 3 {
		t.Fatalf("openings=%d want=3", len(first))
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("seeded runs differ (-first +second):\n%s", diff)
	}

	seeds := map[int64]bool{}
	for i := int64(1); i <= 3; i++ {
		seeds[GameSeed(42, i)] = true
	}
	if len(seeds) != 3 {
		t.Fatalf("distinct seeds=%d want=3", len(seeds))
	}
}
