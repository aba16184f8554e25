// Package game defines the core board types for Battlesnake.
//
// A GameState is a snapshot of one tick. It is treated as an immutable value:
// the rules package produces successor states instead of mutating in place,
// which lets the search share parents freely between goroutines.
package game

// Point is a board coordinate.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left.
type Point struct {
	X int32
	Y int32
}

// Snake is one participant. Body is head-first.
//
// Eliminated holds the death cause once the snake is out of the game. Dead
// snakes are kept in the state so terminal positions can still be scored.
type Snake struct {
	Id         string
	Health     int32
	Body       []Point
	Eliminated string
}

// Alive reports whether the snake is still in play.
func (s *Snake) Alive() bool {
	return s.Eliminated == "" && len(s.Body) > 0
}

// Head returns the first body segment.
func (s *Snake) Head() Point {
	return s.Body[0]
}

// Length is the number of body segments, stacked ones included.
func (s *Snake) Length() int {
	return len(s.Body)
}

// GameState is the complete state needed for rules and evaluation.
// YouId selects the snake the engine is deciding for.
type GameState struct {
	Width   int32
	Height  int32
	Snakes  []Snake
	Food    []Point
	Hazards []Point
	YouId   string
	Turn    int32

	// Wrapped boards connect opposite edges.
	Wrapped bool
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		Width:   s.Width,
		Height:  s.Height,
		YouId:   s.YouId,
		Turn:    s.Turn,
		Wrapped: s.Wrapped,
	}

	if len(s.Food) > 0 {
		out.Food = make([]Point, len(s.Food))
		copy(out.Food, s.Food)
	}
	if len(s.Hazards) > 0 {
		out.Hazards = make([]Point, len(s.Hazards))
		copy(out.Hazards, s.Hazards)
	}

	if len(s.Snakes) > 0 {
		out.Snakes = make([]Snake, len(s.Snakes))
		for i := range s.Snakes {
			out.Snakes[i] = Snake{
				Id:         s.Snakes[i].Id,
				Health:     s.Snakes[i].Health,
				Eliminated: s.Snakes[i].Eliminated,
			}
			if len(s.Snakes[i].Body) > 0 {
				out.Snakes[i].Body = make([]Point, len(s.Snakes[i].Body))
				copy(out.Snakes[i].Body, s.Snakes[i].Body)
			}
		}
	}

	return out
}

// IsInside reports whether p lies on the grid.
func (s *GameState) IsInside(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// IsOccupiedByBody reports whether any live snake has a segment on p.
func (s *GameState) IsOccupiedByBody(p Point) bool {
	for i := range s.Snakes {
		if !s.Snakes[i].Alive() {
			continue
		}
		for _, b := range s.Snakes[i].Body {
			if b == p {
				return true
			}
		}
	}
	return false
}

func (s *GameState) IsFood(p Point) bool {
	for _, f := range s.Food {
		if f == p {
			return true
		}
	}
	return false
}

func (s *GameState) IsHazard(p Point) bool {
	for _, h := range s.Hazards {
		if h == p {
			return true
		}
	}
	return false
}

// SnakeByID returns the snake with the given id, alive or not.
func (s *GameState) SnakeByID(id string) (*Snake, bool) {
	for i := range s.Snakes {
		if s.Snakes[i].Id == id {
			return &s.Snakes[i], true
		}
	}
	return nil, false
}

// You returns the snake selected by YouId, or nil.
func (s *GameState) You() *Snake {
	snake, _ := s.SnakeByID(s.YouId)
	return snake
}

// Neighbor returns the cell reached from p by m. On wrapped boards the result
// is folded back onto the grid; otherwise it may lie outside.
func (s *GameState) Neighbor(p Point, m Move) Point {
	d := m.Delta()
	n := Point{X: p.X + d.X, Y: p.Y + d.Y}
	if s.Wrapped && s.Width > 0 && s.Height > 0 {
		n.X = ((n.X % s.Width) + s.Width) % s.Width
		n.Y = ((n.Y % s.Height) + s.Height) % s.Height
	}
	return n
}

// Index maps an in-bounds point to a flat cell index.
func (s *GameState) Index(p Point) int {
	return int(p.Y)*int(s.Width) + int(p.X)
}

// Cells is the number of cells on the grid.
func (s *GameState) Cells() int {
	return int(s.Width) * int(s.Height)
}

// LiveSnakes returns the number of snakes still in play.
func (s *GameState) LiveSnakes() int {
	n := 0
	for i := range s.Snakes {
		if s.Snakes[i].Alive() {
			n++
		}
	}
	return n
}
