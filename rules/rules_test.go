package rules

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brensch/snekmax/game"
)

func noFood() Ruleset {
	rs := Standard()
	rs.Food = FoodSettings{}
	return rs
}

func logStep(t *testing.T, name string, before *game.GameState, moves map[string]game.Move, after *game.GameState) {
	t.Helper()
	ids := make([]string, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var mv strings.Builder
	mv.WriteString("Moves:")
	for _, id := range ids {
		fmt.Fprintf(&mv, " %s=%s", id, moves[id])
	}
	t.Logf("=== %s ===\nBefore:\n%s%s\nAfter:\n%s", name, game.Format(before), mv.String(), game.Format(after))
}

func snake(t *testing.T, s *game.GameState, id string) *game.Snake {
	t.Helper()
	sn, ok := s.SnakeByID(id)
	if !ok {
		t.Fatalf("snake %s missing", id)
	}
	return sn
}

func TestStep_NormalMove_NoFood(t *testing.T) {
	before := &game.GameState{
		Width:  7,
		Height: 7,
		YouId:  "me",
		Snakes: []game.Snake{{
			Id:     "me",
			Health: 10,
			Body:   []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}},
		}},
	}

	moves := map[string]game.Move{"me": game.MoveUp}
	after := Step(before, moves, noFood())
	logStep(t, "normal move", before, moves, after)

	want := []game.Point{{X: 3, Y: 4}, {X: 3, Y: 3}, {X: 3, Y: 2}}
	if diff := cmp.Diff(want, after.Snakes[0].Body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if after.Snakes[0].Health != 9 {
		t.Fatalf("health=%d want=9", after.Snakes[0].Health)
	}
	if after.Turn != 1 {
		t.Fatalf("turn=%d want=1", after.Turn)
	}
}

func TestStep_EatFood_GrowsByAppendingTail(t *testing.T) {
	before := &game.GameState{
		Width:  7,
		Height: 7,
		YouId:  "me",
		Snakes: []game.Snake{{
			Id:     "me",
			Health: 10,
			Body:   []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}},
		}},
		Food: []game.Point{{X: 3, Y: 4}, {X: 0, Y: 0}},
	}

	moves := map[string]game.Move{"me": game.MoveUp}
	after := Step(before, moves, noFood())
	logStep(t, "eat food", before, moves, after)

	want := []game.Point{{X: 3, Y: 4}, {X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 2}}
	if diff := cmp.Diff(want, after.Snakes[0].Body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if after.Snakes[0].Health != 100 {
		t.Fatalf("health=%d want=100", after.Snakes[0].Health)
	}
	if after.IsFood(game.Point{X: 3, Y: 4}) {
		t.Fatalf("eaten food still on board: %v", after.Food)
	}
	if len(after.Food) != 1 {
		t.Fatalf("food len=%d want=1", len(after.Food))
	}
}

func TestStep_BothMove_OneEats(t *testing.T) {
	before := &game.GameState{
		Width:  7,
		Height: 7,
		YouId:  "a",
		Snakes: []game.Snake{
			{Id: "a", Health: 10, Body: []game.Point{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}},
			{Id: "b", Health: 10, Body: []game.Point{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}}},
		},
		Food: []game.Point{{X: 1, Y: 2}},
	}

	moves := map[string]game.Move{"a": game.MoveUp, "b": game.MoveLeft}
	after := Step(before, moves, noFood())
	logStep(t, "one eats", before, moves, after)

	a, b := snake(t, after, "a"), snake(t, after, "b")
	if !a.Alive() || !b.Alive() {
		t.Fatalf("expected both snakes alive")
	}
	wantA := []game.Point{{X: 1, Y: 2}, {X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}
	if diff := cmp.Diff(wantA, a.Body); diff != "" {
		t.Fatalf("a body mismatch (-want +got):\n%s", diff)
	}
	wantB := []game.Point{{X: 4, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}}
	if diff := cmp.Diff(wantB, b.Body); diff != "" {
		t.Fatalf("b body mismatch (-want +got):\n%s", diff)
	}
	if a.Health != 100 || b.Health != 9 {
		t.Fatalf("health a=%d b=%d want 100/9", a.Health, b.Health)
	}
	if len(after.Food) != 0 {
		t.Fatalf("food len=%d want=0", len(after.Food))
	}
}

func TestStep_Deterministic(t *testing.T) {
	before := game.MustParseBoard(`
		|  |  |  |  |H |
		|  |Y0|  |A2|  |
		|  |Y1|  |A1|  |
		|  |Y2|  |A0|  |
		|  |  |F |F |  |
	`, "Y")
	snapshot := before.Clone()
	moves := map[string]game.Move{"Y": game.MoveUp, "A": game.MoveDown}

	first := Step(before, moves, Standard())
	for i := 0; i < 20; i++ {
		again := Step(before, moves, Standard())
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs:\n%s", i, diff)
		}
	}
	if diff := cmp.Diff(snapshot, before); diff != "" {
		t.Fatalf("input mutated:\n%s", diff)
	}

	a := snake(t, first, "A")
	if a.Health != 100 || len(a.Body) != 4 {
		t.Fatalf("A health=%d len=%d want 100/4", a.Health, len(a.Body))
	}
	if first.IsFood(game.Point{X: 3, Y: 0}) || !first.IsFood(game.Point{X: 2, Y: 0}) {
		t.Fatalf("food=%v want only (2,0)", first.Food)
	}
}

func TestStep_Starvation(t *testing.T) {
	before := &game.GameState{
		Width:  5,
		Height: 5,
		Snakes: []game.Snake{
			{Id: "hungry", Health: 1, Body: []game.Point{{X: 1, Y: 1}, {X: 1, Y: 0}}},
			{Id: "fine", Health: 50, Body: []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}}},
		},
	}
	moves := map[string]game.Move{"hungry": game.MoveUp, "fine": game.MoveUp}
	after := Step(before, moves, noFood())
	logStep(t, "starvation", before, moves, after)

	h := snake(t, after, "hungry")
	if h.Alive() || h.Eliminated != DeathStarvation {
		t.Fatalf("hungry eliminated=%q want %q", h.Eliminated, DeathStarvation)
	}
	if h.Health != 0 {
		t.Fatalf("hungry health=%d want=0", h.Health)
	}
	f := snake(t, after, "fine")
	if f.Health != 49 {
		t.Fatalf("fine health=%d want=49", f.Health)
	}

	// The dead snake is skipped from here on.
	again := Step(after, map[string]game.Move{"fine": game.MoveUp}, noFood())
	if snake(t, again, "hungry").Eliminated != DeathStarvation {
		t.Fatalf("elimination cause should persist")
	}
	if snake(t, again, "fine").Health != 48 {
		t.Fatalf("fine health=%d want=48", snake(t, again, "fine").Health)
	}
}

func TestStep_EatOnStarveTurn(t *testing.T) {
	before := &game.GameState{
		Width:  5,
		Height: 5,
		Snakes: []game.Snake{{Id: "y", Health: 1, Body: []game.Point{{X: 1, Y: 1}, {X: 1, Y: 0}}}},
		Food:   []game.Point{{X: 1, Y: 2}},
	}
	after := Step(before, map[string]game.Move{"y": game.MoveUp}, noFood())
	if y := snake(t, after, "y"); !y.Alive() || y.Health != 100 {
		t.Fatalf("alive=%v health=%d want alive/100", y.Alive(), y.Health)
	}
}

func TestStep_Collisions(t *testing.T) {
	cases := []struct {
		name   string
		board  string
		moves  map[string]game.Move
		causes map[string]string
	}{
		{
			name: "head to head equal length",
			board: `
				|  |  |  |  |  |
				|  |Y0|Y1|Y2|  |
				|  |  |  |  |  |
				|  |A0|A1|A2|  |
				|  |  |  |  |  |`,
			moves:  map[string]game.Move{"Y": game.MoveDown, "A": game.MoveUp},
			causes: map[string]string{"Y": DeathHeadToHead, "A": DeathHeadToHead},
		},
		{
			name: "head to head longer wins",
			board: `
				|  |  |  |  |  |
				|  |Y0|Y1|Y2|Y3|
				|  |  |  |  |  |
				|  |A0|A1|A2|  |
				|  |  |  |  |  |`,
			moves:  map[string]game.Move{"Y": game.MoveDown, "A": game.MoveUp},
			causes: map[string]string{"Y": "", "A": DeathHeadToHead},
		},
		{
			name: "into other body",
			board: `
				|  |  |  |  |  |
				|  |Y0|Y1|Y2|  |
				|A2|A1|A0|  |  |
				|  |  |  |  |  |
				|  |  |  |  |  |`,
			moves:  map[string]game.Move{"Y": game.MoveDown, "A": game.MoveRight},
			causes: map[string]string{"Y": DeathSnakeCollision, "A": ""},
		},
		{
			name: "chase own tail",
			board: `
				|  |Y7|Y6|  |  |
				|  |Y0|Y5|  |  |
				|  |Y1|Y4|  |  |
				|  |Y2|Y3|  |  |
				|  |  |  |  |  |`,
			moves:  map[string]game.Move{"Y": game.MoveUp},
			causes: map[string]string{"Y": ""},
		},
		{
			name: "into own body",
			board: `
				|Y8|Y7|Y6|  |  |
				|  |Y0|Y5|  |  |
				|  |Y1|Y4|  |  |
				|  |Y2|Y3|  |  |
				|  |  |  |  |  |`,
			moves:  map[string]game.Move{"Y": game.MoveUp},
			causes: map[string]string{"Y": DeathSelfCollision},
		},
		{
			name: "off the board",
			board: `
				|Y0|  |  |
				|Y1|  |  |
				|  |  |  |`,
			moves:  map[string]game.Move{"Y": game.MoveLeft},
			causes: map[string]string{"Y": DeathWallCollision},
		},
		{
			name: "missing move",
			board: `
				|Y0|  |A0|
				|Y1|  |A1|
				|  |  |  |`,
			moves:  map[string]game.Move{"Y": game.MoveRight},
			causes: map[string]string{"Y": "", "A": DeathNoMoveSubmitted},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := game.MustParseBoard(tc.board, "Y")
			after := Step(before, tc.moves, noFood())
			logStep(t, tc.name, before, tc.moves, after)
			for id, want := range tc.causes {
				if got := snake(t, after, id).Eliminated; got != want {
					t.Fatalf("%s eliminated=%q want=%q", id, got, want)
				}
			}
		})
	}
}

func TestStep_Hazards(t *testing.T) {
	before := game.MustParseBoard(`
		|  |  |  |  |  |
		|H |Y0|Y1|Y2|  |
		|Z |  |  |  |  |
		|  |  |  |  |  |
		|  |  |  |  |  |
	`, "Y")
	rs := noFood()

	after := Step(before, map[string]game.Move{"Y": game.MoveLeft}, rs)
	if got, want := after.You().Health, int32(100-1-DefaultHazardDamage); got != want {
		t.Fatalf("health=%d want=%d", got, want)
	}

	// Food on a hazard heals instead of damaging.
	fed := Step(after, map[string]game.Move{"Y": game.MoveDown}, rs)
	if fed.You().Health != 100 || fed.You().Length() != 4 {
		t.Fatalf("health=%d len=%d want 100/4", fed.You().Health, fed.You().Length())
	}

	low := before.Clone()
	low.Snakes[0].Health = DefaultHazardDamage + 1
	dead := Step(low, map[string]game.Move{"Y": game.MoveLeft}, rs)
	if dead.You().Eliminated != DeathStarvation {
		t.Fatalf("eliminated=%q want starvation", dead.You().Eliminated)
	}
}

func TestStep_Wrapped(t *testing.T) {
	state := game.MustParseBoard(`
		|  |  |  |  |  |
		|  |Y0|  |  |  |
		|  |Y1|  |  |  |
		|  |Y2|  |  |  |
		|  |  |  |  |  |
	`, "Y")
	state.Wrapped = true
	rs := noFood()
	rs.Name = NameWrapped

	for i := 0; i < 4; i++ {
		state = Step(state, map[string]game.Move{"Y": game.MoveUp}, rs)
	}
	want := []game.Point{{X: 1, Y: 2}, {X: 1, Y: 1}, {X: 1, Y: 0}}
	if diff := cmp.Diff(want, state.You().Body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if !state.You().Alive() {
		t.Fatalf("snake died on wrapped board: %s", state.You().Eliminated)
	}
}

func TestStep_Constrictor(t *testing.T) {
	state := game.MustParseBoard(`
		|  |  |  |  |  |
		|  |Y0|  |  |  |
		|  |Y1|  |  |  |
		|  |Y2|  |  |  |
		|  |  |  |  |  |
	`, "Y")
	rs := noFood()
	rs.Name = NameConstrictor

	for _, m := range []game.Move{game.MoveUp, game.MoveRight, game.MoveRight, game.MoveRight} {
		state = Step(state, map[string]game.Move{"Y": m}, rs)
	}
	y := state.You()
	if y.Head() != (game.Point{X: 4, Y: 4}) || y.Length() != 7 || y.Health != 100 {
		t.Fatalf("head=%v len=%d health=%d", y.Head(), y.Length(), y.Health)
	}
	if y.Body[6] != (game.Point{X: 1, Y: 2}) {
		t.Fatalf("tail=%v want=(1,2)", y.Body[6])
	}
}

func TestProject(t *testing.T) {
	state := game.MustParseBoard(`
		|  |  |  |  |  |
		|  |Y0|A0|A1|  |
		|  |Y1|  |  |  |
		|  |Y2|  |  |  |
		|  |  |  |  |  |
	`, "Y")

	into := Project(state, Standard(), "Y", game.MoveRight)
	if into.You().Eliminated != DeathSnakeCollision {
		t.Fatalf("moving into a static head: eliminated=%q", into.You().Eliminated)
	}
	if a := snake(t, into, "A"); a.Head() != (game.Point{X: 2, Y: 3}) {
		t.Fatalf("opponent moved: %v", a.Body)
	}

	up := Project(state, Standard(), "Y", game.MoveUp)
	if !up.You().Alive() || up.You().Head() != (game.Point{X: 1, Y: 4}) {
		t.Fatalf("up: %+v", up.You())
	}
}

func TestIsGameOverAndWinner(t *testing.T) {
	state := game.MustParseBoard(`
		|Y0|  |A0|
		|Y1|  |A1|
		|  |  |  |`, "Y")
	if IsGameOver(state) {
		t.Fatalf("two live snakes is not game over")
	}
	state.Snakes[1].Eliminated = DeathWallCollision
	if !IsGameOver(state) || Winner(state) != "Y" {
		t.Fatalf("over=%v winner=%q", IsGameOver(state), Winner(state))
	}

	solo := &game.GameState{Width: 3, Height: 3, Snakes: []game.Snake{{Id: "s", Health: 5, Body: []game.Point{{X: 1, Y: 1}}}}}
	if IsGameOver(solo) {
		t.Fatalf("solo snake alive is not game over")
	}
}

func TestFood_MinimumFoodIsEnforced(t *testing.T) {
	before := &game.GameState{
		Width:  5,
		Height: 5,
		Snakes: []game.Snake{{Id: "me", Health: 100, Body: []game.Point{{X: 2, Y: 2}, {X: 2, Y: 1}, {X: 2, Y: 0}}}},
	}

	after := PlaceFood(before, nil, FoodSettings{MinimumFood: 3, FoodSpawnChance: 0})
	if len(after.Food) != 3 {
		t.Fatalf("food len=%d want=3", len(after.Food))
	}
	for _, f := range after.Food {
		if before.IsOccupiedByBody(f) {
			t.Fatalf("food spawned on snake at (%d,%d)", f.X, f.Y)
		}
	}
	if len(before.Food) != 0 {
		t.Fatalf("input mutated")
	}

	again := PlaceFood(before, nil, FoodSettings{MinimumFood: 3, FoodSpawnChance: 0})
	if diff := cmp.Diff(after.Food, again.Food); diff != "" {
		t.Fatalf("nil rng placement not reproducible:\n%s", diff)
	}
}

func TestFood_SpawnChanceCanAddExtra(t *testing.T) {
	before := &game.GameState{
		Width:  5,
		Height: 5,
		Snakes: []game.Snake{{Id: "me", Health: 100, Body: []game.Point{{X: 2, Y: 2}}}},
		Food:   []game.Point{{X: 0, Y: 0}},
	}

	after := PlaceFood(before, rand.New(rand.NewSource(7)), FoodSettings{MinimumFood: 0, FoodSpawnChance: 100})
	if len(after.Food) != 2 {
		t.Fatalf("food len=%d want=2", len(after.Food))
	}
}
