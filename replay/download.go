// Package replay re-runs the engine over finished games and measures how often
// it agrees with the moves that were actually played.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/rules"
)

var ErrNoFrames = errors.New("no frames")

// DownloadConfig holds downloader configuration
type DownloadConfig struct {
	EngineURL      string // WebSocket URL template, %s is the game id
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

func DefaultDownloadConfig() DownloadConfig {
	return DownloadConfig{
		EngineURL:      "wss://engine.battlesnake.com/games/%s/events",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// GameEvent represents an event from the WebSocket stream
type GameEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// GameInfo from the "game_info" event
type GameInfo struct {
	Game    GameDetails `json:"game"`
	Ruleset RulesetInfo `json:"ruleset"`
}

type GameDetails struct {
	ID      string      `json:"id"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Timeout int         `json:"timeout"`
	Ruleset RulesetInfo `json:"ruleset"`
}

type RulesetInfo struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Settings RulesetSettings `json:"settings"`
}

type RulesetSettings struct {
	FoodSpawnChance     int `json:"foodSpawnChance"`
	MinimumFood         int `json:"minimumFood"`
	HazardDamagePerTurn int `json:"hazardDamagePerTurn"`
}

// FrameData from "frame" events
type FrameData struct {
	Turn    int         `json:"turn"`
	Snakes  []SnakeData `json:"snakes"`
	Food    []Coord     `json:"food"`
	Hazards []Coord     `json:"hazards"`
	Board   BoardData   `json:"board,omitempty"`
}

type SnakeData struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Health int     `json:"health"`
	Body   []Coord `json:"body"`
	Author string  `json:"author,omitempty"`
	Death  *Death  `json:"death,omitempty"`
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type BoardData struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Death struct {
	Cause string `json:"cause"`
	Turn  int    `json:"turn"`
}

// Download connects to the game's event stream and collects every frame.
func Download(ctx context.Context, cfg DownloadConfig, gameID string, logger *slog.Logger) (*Game, error) {
	if logger == nil {
		logger = slog.Default()
	}
	url := fmt.Sprintf(cfg.EngineURL, gameID)

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.ConnectTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var info GameInfo
	var frames []FrameData

read:
	for {
		conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			// Timeout or unexpected close: keep what arrived.
			if len(frames) > 0 {
				logger.Warn("event stream ended early", "game_id", gameID, "frames", len(frames), "error", err)
				break
			}
			return nil, fmt.Errorf("read error: %w", err)
		}

		var event GameEvent
		if err := json.Unmarshal(message, &event); err != nil {
			logger.Warn("failed to parse event", "game_id", gameID, "error", err)
			continue
		}

		switch event.Type {
		case "game_info":
			if err := json.Unmarshal(event.Data, &info); err != nil {
				logger.Warn("failed to parse game_info", "game_id", gameID, "error", err)
			}
		case "frame":
			var frame FrameData
			if err := json.Unmarshal(event.Data, &frame); err != nil {
				logger.Warn("failed to parse frame", "game_id", gameID, "error", err)
				continue
			}
			frames = append(frames, frame)
		case "game_end":
			break read
		}
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: game %s", ErrNoFrames, gameID)
	}
	return fromFrames(gameID, info, frames), nil
}

func fromFrames(gameID string, info GameInfo, frames []FrameData) *Game {
	rsInfo := info.Ruleset
	if rsInfo.Name == "" {
		rsInfo = info.Game.Ruleset
	}
	rs := rules.Ruleset{
		Name:                rsInfo.Name,
		HazardDamagePerTurn: int32(rsInfo.Settings.HazardDamagePerTurn),
		Food: rules.FoodSettings{
			MinimumFood:     rsInfo.Settings.MinimumFood,
			FoodSpawnChance: rsInfo.Settings.FoodSpawnChance,
		},
	}
	if rs.Name == "" {
		rs.Name = rules.NameStandard
	}
	if rs.HazardDamagePerTurn <= 0 {
		rs.HazardDamagePerTurn = rules.DefaultHazardDamage
	}

	width, height := info.Game.Width, info.Game.Height
	if width == 0 || height == 0 {
		width, height = frames[0].Board.Width, frames[0].Board.Height
	}
	if width == 0 || height == 0 {
		width, height = 11, 11
	}

	g := &Game{
		ID:      gameID,
		Ruleset: rs,
		Timeout: time.Duration(info.Game.Timeout) * time.Millisecond,
		Frames:  make([]Frame, len(frames)),
		Names:   make(map[string]string),
	}
	for i, fd := range frames {
		state := &game.GameState{
			Width:   int32(width),
			Height:  int32(height),
			Turn:    int32(fd.Turn),
			Wrapped: rs.Wrapped(),
			Food:    toPoints(fd.Food),
			Hazards: toPoints(fd.Hazards),
			Snakes:  make([]game.Snake, len(fd.Snakes)),
		}
		for j, s := range fd.Snakes {
			snake := game.Snake{Id: s.ID, Health: int32(s.Health), Body: toPoints(s.Body)}
			if s.Name != "" {
				g.Names[s.ID] = s.Name
			}
			if s.Death != nil {
				snake.Eliminated = s.Death.Cause
				if snake.Eliminated == "" {
					snake.Eliminated = "eliminated"
				}
			}
			state.Snakes[j] = snake
		}
		g.Frames[i] = Frame{State: state}
	}
	g.inferMoves()
	return g
}

func toPoints(cs []Coord) []game.Point {
	ps := make([]game.Point, len(cs))
	for i, c := range cs {
		ps[i] = game.Point{X: int32(c.X), Y: int32(c.Y)}
	}
	return ps
}
