package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brensch/snekmax/game"
)

func TestSafeMoves_CornerLeavesOneMove(t *testing.T) {
	state := game.MustParseBoard(`
		|  |  |  |  |  |
		|  |  |  |  |  |
		|  |  |  |  |  |
		|  |  |  |  |  |
		|Y0|Y1|Y2|  |  |
	`, "Y")

	got := SafeMoves(state, "Y", Standard())
	if diff := cmp.Diff([]game.Move{game.MoveUp}, got); diff != "" {
		t.Fatalf("safe moves mismatch (-want +got):\n%s", diff)
	}
}

func TestSafeMoves_Tails(t *testing.T) {
	state := game.MustParseBoard(`
		|  |  |  |  |  |
		|  |  |  |  |  |
		|  |Y0|A2|A1|A0|
		|  |Y1|  |  |  |
		|  |Y2|  |  |  |
	`, "Y")

	// A's tail may move away, so stepping onto it is left to the search.
	got := SafeMoves(state, "Y", Standard())
	want := []game.Move{game.MoveUp, game.MoveLeft, game.MoveRight}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("moving tail (-want +got):\n%s", diff)
	}

	a, _ := state.SnakeByID("A")
	a.Body = append(a.Body, a.Body[len(a.Body)-1])
	got = SafeMoves(state, "Y", Standard())
	want = []game.Move{game.MoveUp, game.MoveLeft}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("stacked tail (-want +got):\n%s", diff)
	}

	constrictor := Standard()
	constrictor.Name = NameConstrictor
	a.Body = a.Body[:len(a.Body)-1]
	if IsSafe(state, "Y", constrictor, game.MoveRight) {
		t.Fatalf("tails never move under constrictor")
	}
}

func TestSafeMoves_Starvation(t *testing.T) {
	state := game.MustParseBoard(`
		|  |  |  |
		|  |Y0|F |
		|  |Y1|  |
	`, "Y")
	state.Snakes[0].Health = 1

	got := SafeMoves(state, "Y", Standard())
	if diff := cmp.Diff([]game.Move{game.MoveRight}, got); diff != "" {
		t.Fatalf("safe moves mismatch (-want +got):\n%s", diff)
	}

	state.Food = nil
	got = SafeMoves(state, "Y", Standard())
	if diff := cmp.Diff(game.AllMoves[:], got); diff != "" {
		t.Fatalf("all fatal should return every move (-want +got):\n%s", diff)
	}
}

func TestSafeMoves_DeadSnake(t *testing.T) {
	state := game.MustParseBoard(`
		|  |  |  |
		|  |Y0|  |
		|  |Y1|  |
	`, "Y")
	state.Snakes[0].Eliminated = DeathWallCollision

	if got := SafeMoves(state, "Y", Standard()); len(got) != 4 {
		t.Fatalf("len=%d want=4", len(got))
	}
	if IsSafe(state, "Y", Standard(), game.MoveUp) {
		t.Fatalf("dead snake has no safe moves")
	}
	if got := SafeMoves(state, "nobody", Standard()); len(got) != 4 {
		t.Fatalf("unknown id len=%d want=4", len(got))
	}
}
