package game

import (
	"errors"
	"fmt"
	"strings"
)

// Move is one of the four cardinal directions. There is no "stay".
type Move uint8

const (
	MoveUp Move = iota
	MoveDown
	MoveLeft
	MoveRight
)

// AllMoves lists the moves in fixed priority order. Ties anywhere in the
// engine are broken by this order.
var AllMoves = [4]Move{MoveUp, MoveDown, MoveLeft, MoveRight}

var ErrUnknownMove = errors.New("unknown move")

var moveNames = [4]string{"up", "down", "left", "right"}

func (m Move) String() string {
	if int(m) < len(moveNames) {
		return moveNames[m]
	}
	return fmt.Sprintf("move(%d)", uint8(m))
}

// Delta is the coordinate change applied by m.
func (m Move) Delta() Point {
	switch m {
	case MoveUp:
		return Point{Y: 1}
	case MoveDown:
		return Point{Y: -1}
	case MoveLeft:
		return Point{X: -1}
	case MoveRight:
		return Point{X: 1}
	}
	return Point{}
}

// ParseMove accepts the wire names ("up", "Down", ...).
func ParseMove(s string) (Move, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return MoveUp, nil
	case "down":
		return MoveDown, nil
	case "left":
		return MoveLeft, nil
	case "right":
		return MoveRight, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMove, s)
}

// MoveBetween returns the move that takes a head from one cell to an adjacent
// one, accounting for wrap-around.
func (s *GameState) MoveBetween(from, to Point) (Move, bool) {
	for _, m := range AllMoves {
		if s.Neighbor(from, m) == to {
			return m, true
		}
	}
	return 0, false
}
