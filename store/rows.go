package store

import (
	"github.com/brensch/snekmax/engine"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/rules"
)

// NoMove marks a snake with no recorded move on a turn.
const NoMove int32 = -1

// DecisionRow is one engine decision: the state it saw and what it chose.
//
// Move is 0=Up, 1=Down, 2=Left, 3=Right.
type DecisionRow struct {
	GameID  string `parquet:"game_id,dict"`
	Turn    int32  `parquet:"turn"`
	YouID   string `parquet:"you_id,dict"`
	Ruleset string `parquet:"ruleset,dict"`
	Source  string `parquet:"source,dict"`

	Width   int32 `parquet:"width"`
	Height  int32 `parquet:"height"`
	Wrapped bool  `parquet:"wrapped"`

	FoodX   []int32 `parquet:"food_x"`
	FoodY   []int32 `parquet:"food_y"`
	HazardX []int32 `parquet:"hazard_x"`
	HazardY []int32 `parquet:"hazard_y"`

	Snakes []SnakeRow `parquet:"snakes"`

	Move          int32 `parquet:"move"`
	Depth         int32 `parquet:"depth"`
	Nodes         int64 `parquet:"nodes"`
	Score         int64 `parquet:"score"`
	Space         int32 `parquet:"space"`
	Forced        bool  `parquet:"forced"`
	Fallback      bool  `parquet:"fallback"`
	ElapsedMicros int64 `parquet:"elapsed_us"`
}

// TurnRow is one tick of a locally played game with every snake's move.
type TurnRow struct {
	GameID  string `parquet:"game_id,dict"`
	Turn    int32  `parquet:"turn"`
	Ruleset string `parquet:"ruleset,dict"`
	Source  string `parquet:"source,dict"`

	Width   int32 `parquet:"width"`
	Height  int32 `parquet:"height"`
	Wrapped bool  `parquet:"wrapped"`

	FoodX   []int32 `parquet:"food_x"`
	FoodY   []int32 `parquet:"food_y"`
	HazardX []int32 `parquet:"hazard_x"`
	HazardY []int32 `parquet:"hazard_y"`

	Snakes []SnakeRow `parquet:"snakes"`

	// Winner is set on every row once the game is over; empty for a draw.
	Winner string `parquet:"winner,dict,optional"`
}

type SnakeRow struct {
	ID         string  `parquet:"id,dict"`
	Health     int32   `parquet:"health"`
	BodyX      []int32 `parquet:"body_x"`
	BodyY      []int32 `parquet:"body_y"`
	Eliminated string  `parquet:"eliminated,dict,optional"`
	Move       int32   `parquet:"move"`
}

type board struct {
	foodX, foodY, hazardX, hazardY []int32
	snakes                         []SnakeRow
}

func encodeBoard(state *game.GameState, moves map[string]game.Move) board {
	var b board
	b.foodX, b.foodY = splitPoints(state.Food)
	b.hazardX, b.hazardY = splitPoints(state.Hazards)
	b.snakes = make([]SnakeRow, len(state.Snakes))
	for i := range state.Snakes {
		s := &state.Snakes[i]
		row := SnakeRow{
			ID:         s.Id,
			Health:     s.Health,
			Eliminated: s.Eliminated,
			Move:       NoMove,
		}
		row.BodyX, row.BodyY = splitPoints(s.Body)
		if m, ok := moves[s.Id]; ok {
			row.Move = int32(m)
		}
		b.snakes[i] = row
	}
	return b
}

func decodeBoard(width, height int32, wrapped bool, turn int32, you string, foodX, foodY, hazardX, hazardY []int32, snakes []SnakeRow) *game.GameState {
	state := &game.GameState{
		Width:   width,
		Height:  height,
		Wrapped: wrapped,
		Turn:    turn,
		YouId:   you,
		Food:    joinPoints(foodX, foodY),
		Hazards: joinPoints(hazardX, hazardY),
		Snakes:  make([]game.Snake, len(snakes)),
	}
	for i, s := range snakes {
		state.Snakes[i] = game.Snake{
			Id:         s.ID,
			Health:     s.Health,
			Body:       joinPoints(s.BodyX, s.BodyY),
			Eliminated: s.Eliminated,
		}
	}
	return state
}

// NewDecisionRow records decision d made for state.
func NewDecisionRow(gameID, source string, rs rules.Ruleset, state *game.GameState, d engine.Decision) DecisionRow {
	b := encodeBoard(state, map[string]game.Move{state.YouId: d.Move})
	return DecisionRow{
		GameID:        gameID,
		Turn:          state.Turn,
		YouID:         state.YouId,
		Ruleset:       rs.Name,
		Source:        source,
		Width:         state.Width,
		Height:        state.Height,
		Wrapped:       state.Wrapped,
		FoodX:         b.foodX,
		FoodY:         b.foodY,
		HazardX:       b.hazardX,
		HazardY:       b.hazardY,
		Snakes:        b.snakes,
		Move:          int32(d.Move),
		Depth:         int32(d.Depth),
		Nodes:         d.Nodes,
		Score:         int64(d.Value.Score),
		Space:         int32(d.Value.Space),
		Forced:        d.Forced,
		Fallback:      d.Fallback,
		ElapsedMicros: d.Elapsed.Microseconds(),
	}
}

// GameState rebuilds the state the decision was made on.
func (r DecisionRow) GameState() *game.GameState {
	return decodeBoard(r.Width, r.Height, r.Wrapped, r.Turn, r.YouID, r.FoodX, r.FoodY, r.HazardX, r.HazardY, r.Snakes)
}

// NewTurnRow records state together with the moves each snake submitted for
// the following tick.
func NewTurnRow(gameID, source string, rs rules.Ruleset, state *game.GameState, moves map[string]game.Move) TurnRow {
	b := encodeBoard(state, moves)
	return TurnRow{
		GameID:  gameID,
		Turn:    state.Turn,
		Ruleset: rs.Name,
		Source:  source,
		Width:   state.Width,
		Height:  state.Height,
		Wrapped: state.Wrapped,
		FoodX:   b.foodX,
		FoodY:   b.foodY,
		HazardX: b.hazardX,
		HazardY: b.hazardY,
		Snakes:  b.snakes,
	}
}

// GameState rebuilds the turn's state as seen by snake you.
func (r TurnRow) GameState(you string) *game.GameState {
	return decodeBoard(r.Width, r.Height, r.Wrapped, r.Turn, you, r.FoodX, r.FoodY, r.HazardX, r.HazardY, r.Snakes)
}

// Moves returns the recorded move per snake.
func (r TurnRow) Moves() map[string]game.Move {
	out := make(map[string]game.Move, len(r.Snakes))
	for _, s := range r.Snakes {
		if s.Move >= 0 && int(s.Move) < len(game.AllMoves) {
			out[s.ID] = game.Move(s.Move)
		}
	}
	return out
}

func splitPoints(ps []game.Point) (xs, ys []int32) {
	xs = make([]int32, len(ps))
	ys = make([]int32, len(ps))
	for i, p := range ps {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}

func joinPoints(xs, ys []int32) []game.Point {
	n := min(len(xs), len(ys))
	ps := make([]game.Point, n)
	for i := 0; i < n; i++ {
		ps[i] = game.Point{X: xs[i], Y: ys[i]}
	}
	return ps
}
