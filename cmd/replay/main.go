// Command replay re-decides finished games with the current engine and
// reports how often it agrees with the moves that were played.
//
// Games come from the Battlesnake engine event stream (-game, or discovered
// from the leaderboard with -discover) or from local selfplay parquet
// batches (-parquet).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brensch/snekmax/config"
	"github.com/brensch/snekmax/logging"
	"github.com/brensch/snekmax/replay"
	"github.com/brensch/snekmax/store"
)

func main() {
	var (
		gameIDs     string
		discover    bool
		player      string
		limit       int
		parquetPath string
		snake       string
		budget      time.Duration
		verbose     bool
		seenPath    string
	)
	dl := replay.DefaultDownloadConfig()
	dc := replay.DefaultDiscoveryConfig()

	cfg, err := config.Parse(os.Args[0], os.Args[1:], func(fs *flag.FlagSet) {
		fs.StringVar(&gameIDs, "game", "", "Comma separated game ids to download")
		fs.BoolVar(&discover, "discover", false, "Discover game ids from the leaderboard")
		fs.StringVar(&dc.Leaderboard, "leaderboard", dc.Leaderboard, "Leaderboard arena to discover from")
		fs.StringVar(&player, "player", "", "Only discover this player's games")
		fs.IntVar(&limit, "limit", 5, "Maximum games to discover")
		fs.StringVar(&parquetPath, "parquet", "", "Replay games from a selfplay parquet file or directory")
		fs.StringVar(&snake, "snake", "", "Snake id or name to re-decide for (defaults to -player, then the first snake)")
		fs.DurationVar(&budget, "budget", 0, "Compute per decision (0 uses the game timeout minus the latency reserve)")
		fs.StringVar(&dl.EngineURL, "engine-url", dl.EngineURL, "Event stream URL template")
		fs.BoolVar(&verbose, "v", false, "Print every disagreement")
		fs.StringVar(&seenPath, "seen-log", "", "Skip games listed in this file and append replayed ones")
	})
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Format, cfg.Log.Level, os.Stderr)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	eng, err := cfg.NewEngine(logger.With("component", "engine"))
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var seen *store.SeenLog
	if seenPath != "" {
		if seen, err = store.OpenSeenLog(seenPath); err != nil {
			log.Fatalf("seen log: %v", err)
		}
		defer seen.Close()
		log.Printf("Seen log %s has %d games", seenPath, seen.Len())
	}

	games, err := loadGames(ctx, parquetPath, gameIDs, discover, player, limit, dl, dc, seen, logger)
	if err != nil {
		log.Fatalf("load games: %v", err)
	}
	if len(games) == 0 {
		log.Fatalf("no games to replay: pass -game, -discover or -parquet")
	}
	if snake == "" {
		snake = player
	}

	var turns, agreed int
	for _, g := range games {
		who := snake
		if who == "" && len(g.Frames) > 0 && len(g.Frames[0].State.Snakes) > 0 {
			who = g.Frames[0].State.Snakes[0].Id
		}
		b := budget
		if b <= 0 {
			b = cfg.ComputeBudget(g.Timeout)
		}

		rep, err := replay.Replay(ctx, eng, g, who, b)
		if err != nil {
			log.Printf("replay %s: %v", g.ID, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		fmt.Println(rep.String())
		if verbose {
			for _, d := range rep.Disagreed {
				fmt.Printf("  turn %3d played=%-5s ours=%-5s depth=%d score=%d\n", d.Turn, d.Played, d.Ours, d.Depth, d.Score)
			}
		}
		turns += rep.Turns
		agreed += rep.Agreed
		if seen != nil {
			if err := seen.Add(g.ID); err != nil {
				log.Printf("seen log: %v", err)
			}
		}
	}
	if turns > 0 {
		fmt.Printf("total: games=%d turns=%d agreement=%.1f%%\n", len(games), turns, 100*float64(agreed)/float64(turns))
	}
}

func loadGames(ctx context.Context, parquetPath, gameIDs string, discover bool, player string, limit int, dl replay.DownloadConfig, dc replay.DiscoveryConfig, seen *store.SeenLog, logger *slog.Logger) ([]*replay.Game, error) {
	if parquetPath != "" {
		games, err := loadParquet(parquetPath)
		if err != nil || seen == nil {
			return games, err
		}
		fresh := games[:0]
		for _, g := range games {
			if !seen.Has(g.ID) {
				fresh = append(fresh, g)
			}
		}
		return fresh, nil
	}

	var ids []string
	for _, id := range strings.Split(gameIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if discover {
		found, err := replay.NewDiscoverer(dc, logger).Discover(ctx, player, limit)
		if err != nil {
			return nil, err
		}
		logger.Info("discovered games", "count", len(found))
		ids = append(ids, found...)
	}
	if seen != nil {
		ids = seen.Filter(ids)
	}

	var games []*replay.Game
	for _, id := range ids {
		g, err := replay.Download(ctx, dl, id, logger)
		if err != nil {
			log.Printf("download %s: %v", id, err)
			continue
		}
		games = append(games, g)
	}
	return games, nil
}

func loadParquet(path string) ([]*replay.Game, error) {
	paths := []string{path}
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		paths, err = store.ListBatches(path)
		if err != nil {
			return nil, err
		}
	}
	var rows []store.TurnRow
	for _, p := range paths {
		batch, err := store.ReadRows[store.TurnRow](p)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return replay.GamesFromTurnRows(rows), nil
}
