package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrRecorderClosed = errors.New("recorder closed")

// Recorder buffers decision rows off the request path and flushes them as
// parquet batches on a row count, on a timer, or on demand.
type Recorder struct {
	dir        string
	flushCount int
	flushEvery time.Duration
	logger     *slog.Logger

	in      chan DecisionRow
	flushes chan chan error

	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
	closeErr  error
}

func NewRecorder(dir string, flushCount int, flushEvery time.Duration, logger *slog.Logger) *Recorder {
	if flushCount <= 0 {
		flushCount = 1000
	}
	if flushEvery <= 0 {
		flushEvery = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		dir:        dir,
		flushCount: flushCount,
		flushEvery: flushEvery,
		logger:     logger,
		in:         make(chan DecisionRow, 4*flushCount),
		flushes:    make(chan chan error),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go r.loop()
	return r
}

// Record queues a row. It never blocks: when the queue is full the row is
// dropped and logged.
func (r *Recorder) Record(row DecisionRow) {
	select {
	case <-r.quit:
		return
	default:
	}
	select {
	case r.in <- row:
	default:
		r.logger.Warn("decision archive queue full, dropping row", "game_id", row.GameID, "turn", row.Turn)
	}
}

// Flush writes everything queued so far.
func (r *Recorder) Flush(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case r.flushes <- reply:
	case <-r.quit:
		return ErrRecorderClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending rows and stops the background loop. It returns the
// error of the final flush, or the last failed flush if rows were dropped.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() { close(r.quit) })
	<-r.done
	return r.closeErr
}

func (r *Recorder) loop() {
	defer close(r.done)

	pending := make([]DecisionRow, 0, r.flushCount)
	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	// Rows kept for retry after failed flushes are capped here; the oldest go
	// first.
	maxPending := 4 * r.flushCount
	var lastErr error
	var dropped int

	flush := func(reason string) error {
		if len(pending) == 0 {
			return nil
		}
		outPath, err := WriteBatchAtomic(r.dir, "decisions", SchemaDecision, pending)
		if err != nil {
			r.logger.Error("decision archive flush failed", "reason", reason, "rows", len(pending), "error", err)
			lastErr = err
			if over := len(pending) - maxPending; over > 0 {
				r.logger.Warn("decision archive dropping oldest rows", "rows", over)
				pending = append(pending[:0], pending[over:]...)
				dropped += over
			}
			return err
		}
		r.logger.Info("decision archive flushed", "reason", reason, "path", outPath, "rows", len(pending))
		pending = pending[:0]
		return nil
	}
	drain := func() {
		for {
			select {
			case row := <-r.in:
				pending = append(pending, row)
			default:
				return
			}
		}
	}

	for {
		select {
		case row := <-r.in:
			pending = append(pending, row)
			if len(pending)%r.flushCount == 0 {
				_ = flush("count")
			}
		case reply := <-r.flushes:
			drain()
			reply <- flush("request")
		case <-ticker.C:
			_ = flush("interval")
		case <-r.quit:
			drain()
			if err := flush("close"); err != nil {
				r.closeErr = err
			} else if dropped > 0 {
				r.closeErr = fmt.Errorf("decision archive dropped %d rows: %w", dropped, lastErr)
			}
			return
		}
	}
}
