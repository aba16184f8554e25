package search

import (
	"fmt"

	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/heuristic"
	"github.com/brensch/snekmax/rules"
)

// OpponentModel decides which moves an opponent ply branches over. The
// opponent ply always minimises the searching snake's value over the
// returned moves, so a model returning a single move fixes that opponent's
// choice.
type OpponentModel interface {
	Name() string
	Moves(state *game.GameState, id string, rs rules.Ruleset) []game.Move
}

// Paranoid assumes every opponent picks whatever is worst for us among its
// non-fatal moves.
type Paranoid struct{}

func (Paranoid) Name() string { return "paranoid" }

func (Paranoid) Moves(state *game.GameState, id string, rs rules.Ruleset) []game.Move {
	return rules.SafeMoves(state, id, rs)
}

// Greedy assumes each opponent heads for the neighbouring cell with the most
// room, ties going to move priority. No branching.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Moves(state *game.GameState, id string, rs rules.Ruleset) []game.Move {
	safe := rules.SafeMoves(state, id, rs)
	s, ok := state.SnakeByID(id)
	if !ok || len(safe) <= 1 {
		return safe
	}
	best, bestRoom := safe[0], -1
	for _, m := range safe {
		room := heuristic.Room(state, state.Neighbor(s.Head(), m))
		if room > bestRoom {
			best, bestRoom = m, room
		}
	}
	return []game.Move{best}
}

// ParseOpponentModel maps a config name to a model.
func ParseOpponentModel(name string) (OpponentModel, error) {
	switch name {
	case "", "paranoid":
		return Paranoid{}, nil
	case "greedy":
		return Greedy{}, nil
	}
	return nil, fmt.Errorf("unknown opponent model %q", name)
}
