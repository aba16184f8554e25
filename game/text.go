package game

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrParse = errors.New("parse board")

// ParseBoard builds a state from an ASCII picture, top row first:
//
//	|  |Y0|  |
//	|F |Y1|H |
//	|Z |Y2|  |
//
// Each cell is empty, F (food), H (hazard), Z (food on a hazard) or a snake
// segment written as its one-letter id followed by the segment index (0 is the
// head). Lines that do not start with '|' are ignored. Snakes start with full
// health; you names the snake the engine plays.
func ParseBoard(text, you string) (*GameState, error) {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		cells := strings.Split(strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|"), "|")
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrParse)
	}

	width := len(rows[0])
	state := &GameState{
		Width:  int32(width),
		Height: int32(len(rows)),
		YouId:  you,
	}

	type segment struct {
		idx int
		p   Point
	}
	segments := make(map[string][]segment)

	for r, cells := range rows {
		if len(cells) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrParse, r, len(cells), width)
		}
		y := int32(len(rows) - 1 - r)
		for x, raw := range cells {
			cell := strings.TrimSpace(raw)
			p := Point{X: int32(x), Y: y}
			switch {
			case cell == "":
			case cell == "F":
				state.Food = append(state.Food, p)
			case cell == "H":
				state.Hazards = append(state.Hazards, p)
			case cell == "Z":
				state.Food = append(state.Food, p)
				state.Hazards = append(state.Hazards, p)
			case len(cell) >= 2:
				idx, err := strconv.Atoi(cell[1:])
				if err != nil {
					return nil, fmt.Errorf("%w: cell %q at (%d,%d)", ErrParse, cell, x, y)
				}
				id := cell[:1]
				segments[id] = append(segments[id], segment{idx: idx, p: p})
			default:
				return nil, fmt.Errorf("%w: cell %q at (%d,%d)", ErrParse, cell, x, y)
			}
		}
	}

	ids := make([]string, 0, len(segments))
	for id := range segments {
		ids = append(ids, id)
	}
	// You first, then alphabetical, so fixtures are stable.
	sort.Slice(ids, func(i, j int) bool {
		if (ids[i] == you) != (ids[j] == you) {
			return ids[i] == you
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		segs := segments[id]
		sort.Slice(segs, func(i, j int) bool { return segs[i].idx < segs[j].idx })
		body := make([]Point, len(segs))
		for i, sg := range segs {
			body[i] = sg.p
		}
		state.Snakes = append(state.Snakes, Snake{Id: id, Health: 100, Body: body})
	}

	return state, nil
}

// MustParseBoard is ParseBoard for fixtures known to be valid.
func MustParseBoard(text, you string) *GameState {
	s, err := ParseBoard(text, you)
	if err != nil {
		panic(err)
	}
	return s
}

// Format renders the board top-to-bottom. Heads are upper case, bodies lower
// case (snakes lettered by slice position), food '*', hazards '~', food on a
// hazard '%'. Eliminated snakes are not drawn.
func Format(state *GameState) string {
	if state == nil {
		return "<nil state>\n"
	}
	w, h := int(state.Width), int(state.Height)
	if w <= 0 || h <= 0 {
		return "<empty board>\n"
	}

	grid := make([][]byte, h)
	for y := range grid {
		grid[y] = make([]byte, w)
		for x := range grid[y] {
			grid[y][x] = '.'
		}
	}
	for _, p := range state.Hazards {
		if state.IsInside(p) {
			grid[p.Y][p.X] = '~'
		}
	}
	for _, p := range state.Food {
		if !state.IsInside(p) {
			continue
		}
		if grid[p.Y][p.X] == '~' {
			grid[p.Y][p.X] = '%'
		} else {
			grid[p.Y][p.X] = '*'
		}
	}
	for i, s := range state.Snakes {
		if !s.Alive() {
			continue
		}
		sym := byte('a' + i%26)
		for j := len(s.Body) - 1; j >= 0; j-- {
			p := s.Body[j]
			if !state.IsInside(p) {
				continue
			}
			if j == 0 {
				grid[p.Y][p.X] = sym - 32
			} else {
				grid[p.Y][p.X] = sym
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "turn=%d %dx%d you=%s\n", state.Turn, w, h, state.YouId)
	for y := h - 1; y >= 0; y-- {
		b.Write(grid[y])
		b.WriteByte('\n')
	}
	for _, s := range state.Snakes {
		status := "alive"
		if !s.Alive() {
			status = s.Eliminated
		}
		fmt.Fprintf(&b, "%s health=%d len=%d %s\n", s.Id, s.Health, len(s.Body), status)
	}
	return b.String()
}
