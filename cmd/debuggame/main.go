// Command debuggame decides a single /move payload and prints the board,
// the decision and optionally a PNG of the position.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/brensch/snekmax/api"
	"github.com/brensch/snekmax/config"
	"github.com/brensch/snekmax/engine"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/heuristic"
	"github.com/brensch/snekmax/logging"
	"github.com/brensch/snekmax/render"
	"github.com/brensch/snekmax/rules"
)

func main() {
	var (
		inPath    string
		pngPath   string
		blockSize int
		budget    time.Duration
	)
	cfg, err := config.Parse(os.Args[0], os.Args[1:], func(fs *flag.FlagSet) {
		fs.StringVar(&inPath, "in", "-", "Path to a /move request body (- for stdin)")
		fs.StringVar(&pngPath, "png", "", "Write the board to this PNG file")
		fs.IntVar(&blockSize, "block-size", render.DefaultBlockSize, "PNG pixels per cell")
		fs.DurationVar(&budget, "budget", 0, "Compute budget (0 uses the payload timeout minus the latency reserve)")
	})
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Format, cfg.Log.Level, os.Stderr)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	raw, err := readInput(inPath)
	if err != nil {
		log.Fatalf("read %s: %v", inPath, err)
	}
	var req api.GameRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Fatalf("decode request: %v", err)
	}
	rs := api.ToRuleset(req.Game.Ruleset)
	state, err := api.ToGameState(&req, rs)
	if err != nil {
		log.Fatalf("convert request: %v", err)
	}

	eng, err := cfg.NewEngine(logger.With("component", "engine"))
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	if budget <= 0 {
		budget = cfg.ComputeBudget(req.Timeout())
	}
	d := eng.Decide(context.Background(), engine.Request{
		State:    state,
		Ruleset:  rs,
		Deadline: time.Now().Add(budget),
	})

	fmt.Printf("game=%s turn=%d you=%s ruleset=%s budget=%v\n\n", req.Game.ID, state.Turn, state.YouId, rs.Name, budget)
	fmt.Print(game.Format(state))
	fmt.Println()
	fmt.Printf("safe:     %v\n", d.Safe)
	for _, m := range d.Safe {
		fmt.Printf("  %-5s room=%d\n", m, roomAfter(state, rs, m))
	}
	fmt.Printf("move:     %s\n", d.Move)
	fmt.Printf("value:    %v\n", d.Value)
	fmt.Printf("depth:    %d\n", d.Depth)
	fmt.Printf("nodes:    %d\n", d.Nodes)
	fmt.Printf("forced:   %v\n", d.Forced)
	fmt.Printf("fallback: %v\n", d.Fallback)
	fmt.Printf("elapsed:  %v\n", d.Elapsed)

	if pngPath != "" {
		if err := render.SavePNG(state, pngPath, blockSize, 0); err != nil {
			log.Fatalf("png: %v", err)
		}
		log.Printf("Board written to: %s", pngPath)
	}
}

// roomAfter is the free area reachable from our head after playing m alone.
func roomAfter(state *game.GameState, rs rules.Ruleset, m game.Move) int {
	space, _ := heuristic.Reach(rules.Project(state, rs, state.YouId, m), state.YouId)
	return space
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
