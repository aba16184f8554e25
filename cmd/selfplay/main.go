// Command selfplay plays snekmax against itself and archives the games.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekmax/config"
	"github.com/brensch/snekmax/logging"
	"github.com/brensch/snekmax/rules"
	"github.com/brensch/snekmax/selfplay"
)

type model struct {
	stats       *selfplay.Stats
	games       int64
	turns       int64
	startTime   time.Time
	recentGames []string
	updates     chan selfplay.GameUpdate
	done        <-chan struct{}
	runErr      *error
	finished    bool
	err         error
}

type TickMsg time.Time

type doneMsg struct{ err error }

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForUpdate(updates chan selfplay.GameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func waitForDone(done <-chan struct{}, runErr *error) tea.Cmd {
	return func() tea.Msg {
		<-done
		return doneMsg{err: *runErr}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), waitForDone(m.done, m.runErr), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.games = m.stats.Games.Load()
		m.turns = m.stats.Turns.Load()
		return m, tickCmd()
	case selfplay.GameUpdate:
		winner := msg.Result.Winner
		if winner == "" {
			winner = "draw"
		}
		line := fmt.Sprintf("Worker %d: Winner %s, Turns %d", msg.WorkerID, winner, msg.Result.Turns)
		m.recentGames = append([]string{line}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	case doneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	gamesPerSec := float64(m.games) / duration.Seconds()
	turnsPerSec := float64(m.turns) / duration.Seconds()
	if duration.Seconds() < 1 {
		gamesPerSec, turnsPerSec = 0, 0
	}

	s := fmt.Sprintf("Games Played: %d\n", m.games)
	s += fmt.Sprintf("Total Turns:  %d\n", m.turns)
	s += fmt.Sprintf("Duration:     %s\n", duration.Round(time.Second))
	s += fmt.Sprintf("Games/Sec:    %.2f\n", gamesPerSec)
	s += fmt.Sprintf("Turns/Sec:    %.2f\n\n", turnsPerSec)

	s += "Wins:\n"
	wins := m.stats.WinCounts()
	ids := make([]string, 0, len(wins))
	for id := range wins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s += fmt.Sprintf("  %-8s %d\n", id, wins[id])
	}

	s += "\nRecent Games:\n"
	for _, g := range m.recentGames {
		s += g + "\n"
	}

	s += "\nPress q to quit.\n"
	return s
}

func main() {
	opts := selfplay.DefaultOptions()
	ro := selfplay.RunOptions{Workers: 4, GamesPerFlush: 50}
	var rulesetName string
	var width, height int
	var noTUI bool

	cfg, err := config.Parse(os.Args[0], os.Args[1:], func(fs *flag.FlagSet) {
		fs.StringVar(&ro.OutDir, "out-dir", "data/selfplay", "Output directory for turn parquet batches (empty disables)")
		fs.IntVar(&ro.Workers, "workers", ro.Workers, "Number of concurrent games")
		fs.Int64Var(&ro.Games, "games", 0, "Stop after this many games (0 runs until interrupted)")
		fs.IntVar(&ro.GamesPerFlush, "games-per-flush", ro.GamesPerFlush, "Games buffered per parquet file")
		fs.IntVar(&opts.Snakes, "snakes", opts.Snakes, "Snakes per game")
		fs.IntVar(&width, "width", int(opts.Width), "Board width")
		fs.IntVar(&height, "height", int(opts.Height), "Board height")
		fs.StringVar(&rulesetName, "ruleset", rules.NameStandard, "standard, wrapped, constrictor or wrapped-constrictor")
		fs.DurationVar(&opts.MoveBudget, "move-budget", opts.MoveBudget, "Compute time per decision")
		fs.IntVar(&opts.MaxTurns, "max-turns", opts.MaxTurns, "Declare a draw after this many turns")
		fs.Int64Var(&opts.Seed, "seed", 0, "Base RNG seed (0 uses the clock)")
		fs.BoolVar(&noTUI, "no-tui", false, "Log progress instead of showing the TUI")
	})
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	opts.Width, opts.Height = int32(width), int32(height)
	opts.Ruleset.Name = rulesetName

	// The TUI owns the terminal; engine logs stay quiet unless asked for.
	level := cfg.Log.Level
	if !noTUI && level == "info" {
		level = "warn"
	}
	logger, err := logging.New(cfg.Log.Format, level, os.Stderr)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	eng, err := cfg.NewEngine(logger.With("component", "engine"))
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stats := &selfplay.Stats{}
	updates := make(chan selfplay.GameUpdate, ro.Workers)
	// runErr is written once before done is closed.
	var runErr error
	done := make(chan struct{})
	go func() {
		runErr = selfplay.Run(ctx, eng, opts, ro, stats, updates, logger.With("component", "selfplay"))
		close(done)
	}()

	if noTUI {
		runHeadless(stats, updates, done, &runErr)
		return
	}

	p := tea.NewProgram(model{stats: stats, startTime: time.Now(), updates: updates, done: done, runErr: &runErr})
	final, err := p.Run()
	if err != nil {
		log.Fatal(err)
	}
	if m, ok := final.(model); ok && m.finished {
		if m.err != nil {
			log.Fatalf("selfplay: %v", m.err)
		}
		log.Printf("Run complete (games=%d)", stats.Games.Load())
		return
	}
	cancel()
	log.Printf("Shutdown requested; waiting for workers to finish current games...")
	select {
	case <-done:
		if runErr != nil {
			log.Fatalf("selfplay: %v", runErr)
		}
	case <-time.After(time.Minute):
		log.Fatalf("selfplay: shutdown timed out")
	}
	log.Printf("Shutdown complete (games=%d)", stats.Games.Load())
}

func runHeadless(stats *selfplay.Stats, updates chan selfplay.GameUpdate, done <-chan struct{}, runErr *error) {
	startTime := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			if *runErr != nil {
				log.Fatalf("selfplay: %v", *runErr)
			}
			log.Printf("Run complete: games=%d turns=%d wins=%v", stats.Games.Load(), stats.Turns.Load(), stats.WinCounts())
			return
		case u := <-updates:
			log.Printf("Worker %d: Winner %q, Turns %d", u.WorkerID, u.Result.Winner, u.Result.Turns)
		case <-ticker.C:
			turns := stats.Turns.Load()
			log.Printf("Stats: games=%d turns/s=%.2f", stats.Games.Load(), float64(turns)/time.Since(startTime).Seconds())
		}
	}
}
