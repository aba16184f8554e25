package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/brensch/snekmax/engine"
	"github.com/brensch/snekmax/game"
)

// Disagreement is a turn where the engine picked a different move.
type Disagreement struct {
	Turn   int32
	Played game.Move
	Ours   game.Move
	Depth  int
	Score  int
}

type Report struct {
	GameID    string
	Snake     string
	Turns     int
	Agreed    int
	Forced    int
	Fallbacks int
	// MaxDepth is the deepest completed search over all turns.
	MaxDepth     int
	TotalElapsed time.Duration
	MaxElapsed   time.Duration
	Disagreed    []Disagreement
}

func (r Report) Agreement() float64 {
	if r.Turns == 0 {
		return 0
	}
	return float64(r.Agreed) / float64(r.Turns)
}

func (r Report) MeanElapsed() time.Duration {
	if r.Turns == 0 {
		return 0
	}
	return r.TotalElapsed / time.Duration(r.Turns)
}

func (r Report) String() string {
	return fmt.Sprintf("game=%s snake=%s turns=%d agreed=%d (%.1f%%) forced=%d fallbacks=%d max_depth=%d mean=%v max=%v",
		r.GameID, r.Snake, r.Turns, r.Agreed, 100*r.Agreement(), r.Forced, r.Fallbacks, r.MaxDepth,
		r.MeanElapsed().Round(time.Microsecond), r.MaxElapsed.Round(time.Microsecond))
}

// Replay asks the engine for snake's move on every frame where it was alive
// and had a recorded move, giving each decision budget of compute.
func Replay(ctx context.Context, eng *engine.Engine, g *Game, snake string, budget time.Duration) (Report, error) {
	id, err := g.SnakeID(snake)
	if err != nil {
		return Report{}, err
	}
	rep := Report{GameID: g.ID, Snake: id}

	for _, f := range g.Frames {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		played, ok := f.Moves[id]
		if !ok {
			continue
		}
		s, ok := f.State.SnakeByID(id)
		if !ok || !s.Alive() {
			continue
		}

		state := f.State.Clone()
		state.YouId = id
		d := eng.Decide(ctx, engine.Request{
			State:    state,
			Ruleset:  g.Ruleset,
			Deadline: time.Now().Add(budget),
		})

		rep.Turns++
		rep.TotalElapsed += d.Elapsed
		rep.MaxElapsed = max(rep.MaxElapsed, d.Elapsed)
		rep.MaxDepth = max(rep.MaxDepth, d.Depth)
		if d.Forced {
			rep.Forced++
		}
		if d.Fallback {
			rep.Fallbacks++
		}
		if d.Move == played {
			rep.Agreed++
			continue
		}
		rep.Disagreed = append(rep.Disagreed, Disagreement{
			Turn:   state.Turn,
			Played: played,
			Ours:   d.Move,
			Depth:  d.Depth,
			Score:  d.Value.Score,
		})
	}
	return rep, nil
}
