package selfplay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/brensch/snekmax/engine"
	"github.com/brensch/snekmax/store"
)

type RunOptions struct {
	Workers int
	// Games stops the run after this many finished games; zero runs until ctx
	// is cancelled.
	Games         int64
	GamesPerFlush int
	// OutDir receives parquet batches of turn rows. Empty disables archiving.
	OutDir string
}

type GameUpdate struct {
	WorkerID int
	Result   GameResult
}

// Stats are live counters for a run.
type Stats struct {
	Games atomic.Int64
	Turns atomic.Int64
	Wins  sync.Map // winner id -> *atomic.Int64
}

func (s *Stats) addWin(id string) {
	if id == "" {
		id = "draw"
	}
	v, _ := s.Wins.LoadOrStore(id, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

// WinCounts snapshots the per-winner tally.
func (s *Stats) WinCounts() map[string]int64 {
	out := make(map[string]int64)
	s.Wins.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}

// Run plays games on opts.Workers goroutines until ro.Games are done or ctx is
// cancelled. Finished games are sent to updates without blocking and written
// in batches of GamesPerFlush. Partial games are discarded.
func Run(ctx context.Context, eng *engine.Engine, opts Options, ro RunOptions, stats *Stats, updates chan<- GameUpdate, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if ro.Workers <= 0 {
		ro.Workers = 1
	}
	if stats == nil {
		stats = &Stats{}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writeReqs := make(chan []store.TurnRow, ro.Workers*4)
	writerDone := make(chan error, 1)
	go func() {
		writerDone <- writerLoop(ro.OutDir, ro.GamesPerFlush, writeReqs, logger)
	}()

	var started atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < ro.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for ctx.Err() == nil {
				index := started.Add(1)
				if ro.Games > 0 && index > ro.Games {
					return
				}
				gameOpts := opts
				if opts.Seed != 0 {
					gameOpts.Seed = GameSeed(opts.Seed, index)
				}
				res, err := PlayGame(ctx, eng, gameOpts, func(Turn) { stats.Turns.Add(1) })
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						logger.Warn("game aborted", "worker", workerID, "game_id", res.GameID, "error", err)
					}
					return
				}

				total := stats.Games.Add(1)
				stats.addWin(res.Winner)
				logger.Debug("game finished", "worker", workerID, "game", total, "winner", res.Winner, "turns", res.Turns)

				writeReqs <- res.Rows
				if updates != nil {
					select {
					case updates <- GameUpdate{WorkerID: workerID, Result: res}:
					default:
					}
				}
				if ro.Games > 0 && total >= ro.Games {
					cancel()
				}
			}
		}(i)
	}

	wg.Wait()
	close(writeReqs)
	return <-writerDone
}

// GameSeed derives the seed of the index'th game started in a run. Games of a
// seeded run get the same seeds whichever worker plays them.
func GameSeed(base, index int64) int64 {
	return base + index*1000003
}

func writerLoop(outDir string, gamesPerFlush int, in <-chan []store.TurnRow, logger *slog.Logger) error {
	if outDir == "" {
		for range in {
		}
		return nil
	}
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var w *store.BatchWriter[store.TurnRow]
	var firstErr error
	flush := func(reason string) {
		if w == nil {
			return
		}
		outPath, rows, games, err := w.Finalize()
		w = nil
		if err != nil {
			logger.Error("parquet flush failed", "reason", reason, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		logger.Info("parquet flush ok", "reason", reason, "path", outPath, "games", games, "rows", rows)
	}

	for rows := range in {
		if w == nil {
			var err error
			w, err = store.NewBatchWriter[store.TurnRow](outDir, "selfplay", store.SchemaTurn)
			if err != nil {
				logger.Error("open batch writer", "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}
		if err := w.WriteGame(rows); err != nil {
			logger.Error("write game", "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if w.BufferedGames() >= gamesPerFlush {
			flush("count")
		}
	}
	flush("final")
	return firstErr
}
