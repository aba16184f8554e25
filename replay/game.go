package replay

import (
	"fmt"
	"sort"
	"time"

	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/rules"
	"github.com/brensch/snekmax/store"
)

// Game is a finished game as a sequence of frames.
type Game struct {
	ID      string
	Ruleset rules.Ruleset
	Timeout time.Duration
	Frames  []Frame
	// Names maps snake id to display name where known.
	Names map[string]string
}

// Frame is one turn's state and the move each snake played from it. The last
// frame has no moves.
type Frame struct {
	State *game.GameState
	Moves map[string]game.Move
}

// inferMoves fills each frame's moves from the head positions in the next one.
func (g *Game) inferMoves() {
	for i := 0; i+1 < len(g.Frames); i++ {
		cur, next := g.Frames[i].State, g.Frames[i+1].State
		moves := make(map[string]game.Move)
		for _, s := range cur.Snakes {
			if !s.Alive() {
				continue
			}
			ns, ok := next.SnakeByID(s.Id)
			if !ok || len(ns.Body) == 0 {
				continue
			}
			if m, ok := cur.MoveBetween(s.Head(), ns.Head()); ok {
				moves[s.Id] = m
			}
		}
		g.Frames[i].Moves = moves
	}
}

// SnakeID resolves a snake by id or display name.
func (g *Game) SnakeID(nameOrID string) (string, error) {
	if len(g.Frames) == 0 {
		return "", fmt.Errorf("%w: game %s", ErrNoFrames, g.ID)
	}
	if _, ok := g.Frames[0].State.SnakeByID(nameOrID); ok {
		return nameOrID, nil
	}
	for id, name := range g.Names {
		if name == nameOrID {
			return id, nil
		}
	}
	return "", fmt.Errorf("snake %q not in game %s", nameOrID, g.ID)
}

// GamesFromTurnRows groups archived turn rows into games ordered by id, with
// frames ordered by turn.
func GamesFromTurnRows(rows []store.TurnRow) []*Game {
	byID := make(map[string]*Game)
	var ids []string
	for _, r := range rows {
		g, ok := byID[r.GameID]
		if !ok {
			g = &Game{ID: r.GameID, Ruleset: rulesetByName(r.Ruleset), Names: map[string]string{}}
			byID[r.GameID] = g
			ids = append(ids, r.GameID)
		}
		moves := r.Moves()
		if len(moves) == 0 {
			moves = nil
		}
		g.Frames = append(g.Frames, Frame{State: r.GameState(""), Moves: moves})
	}
	sort.Strings(ids)

	out := make([]*Game, 0, len(ids))
	for _, id := range ids {
		g := byID[id]
		sort.SliceStable(g.Frames, func(i, j int) bool { return g.Frames[i].State.Turn < g.Frames[j].State.Turn })
		out = append(out, g)
	}
	return out
}

func rulesetByName(name string) rules.Ruleset {
	rs := rules.Standard()
	if name != "" {
		rs.Name = name
	}
	return rs
}
