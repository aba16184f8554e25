package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/brensch/snekmax/engine"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/heuristic"
	"github.com/brensch/snekmax/rules"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleState(t *testing.T) *game.GameState {
	t.Helper()
	state := game.MustParseBoard(`
|  |  |F |  |
|Y0|  |  |H |
|Y1|  |A0|A1|
|Y2|  |  |A2|
`, "Y")
	state.Turn = 12
	state.Snakes[1].Health = 55
	return state
}

func TestDecisionRow_RoundTrip(t *testing.T) {
	state := sampleState(t)
	d := engine.Decision{
		Move:    game.MoveRight,
		Value:   heuristic.Value{Score: 420, Space: 9},
		Depth:   4,
		Nodes:   1234,
		Elapsed: 3 * time.Millisecond,
	}
	row := NewDecisionRow("game-1", "live", rules.Standard(), state, d)

	dir := t.TempDir()
	path, err := WriteBatchAtomic(dir, "decisions", SchemaDecision, []DecisionRow{row})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("batch written to %s, want dir %s", path, dir)
	}

	got, err := ReadRows[DecisionRow](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows=%d want=1", len(got))
	}
	if diff := cmp.Diff(row, got[0], cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
	if got[0].ElapsedMicros != 3000 || got[0].Move != int32(game.MoveRight) {
		t.Fatalf("elapsed=%d move=%d", got[0].ElapsedMicros, got[0].Move)
	}

	rebuilt := got[0].GameState()
	if diff := cmp.Diff(state, rebuilt, cmpopts.EquateEmpty()); diff != "" {
		t.Logf("want:\n%s\ngot:\n%s", game.Format(state), game.Format(rebuilt))
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestTurnRow_Moves(t *testing.T) {
	state := sampleState(t)
	moves := map[string]game.Move{"Y": game.MoveUp}
	row := NewTurnRow("game-2", "selfplay", rules.Standard(), state, moves)
	row.Winner = "Y"

	if diff := cmp.Diff(moves, row.Moves()); diff != "" {
		t.Fatalf("moves mismatch (-want +got):\n%s", diff)
	}
	if row.Snakes[1].Move != NoMove {
		t.Fatalf("snake A move=%d want=%d", row.Snakes[1].Move, NoMove)
	}

	path, err := WriteBatchAtomic(t.TempDir(), "turns", SchemaTurn, []TurnRow{row})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadRows[TurnRow](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]TurnRow{row}, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	as := got[0].GameState("A")
	if as.YouId != "A" || as.You().Health != 55 {
		t.Fatalf("rebuilt you=%s health=%d", as.YouId, as.You().Health)
	}
}

func TestBatchWriter(t *testing.T) {
	dir := t.TempDir()

	empty, err := NewBatchWriter[TurnRow](dir, "turns", SchemaTurn)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p, rows, games, err := empty.Finalize(); err != nil || p != "" || rows != 0 || games != 0 {
		t.Fatalf("empty finalize path=%q rows=%d games=%d err=%v", p, rows, games, err)
	}

	w, err := NewBatchWriter[TurnRow](dir, "turns", SchemaTurn)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	state := sampleState(t)
	game1 := []TurnRow{
		NewTurnRow("g1", "selfplay", rules.Standard(), state, nil),
		NewTurnRow("g1", "selfplay", rules.Standard(), state, nil),
	}
	game2 := []TurnRow{NewTurnRow("g2", "selfplay", rules.Standard(), state, nil)}
	if err := w.WriteGame(game1); err != nil {
		t.Fatalf("write game1: %v", err)
	}
	if err := w.WriteGame(game2); err != nil {
		t.Fatalf("write game2: %v", err)
	}
	if w.BufferedGames() != 2 || w.BufferedRows() != 3 {
		t.Fatalf("buffered games=%d rows=%d", w.BufferedGames(), w.BufferedRows())
	}

	p, rows, games, err := w.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if p != w.OutPath() || rows != 3 || games != 2 {
		t.Fatalf("finalize path=%q rows=%d games=%d", p, rows, games)
	}
	if err := w.WriteGame(game2); err == nil {
		t.Fatalf("expected error writing after finalize")
	}

	batches, err := ListBatches(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(batches) != 1 || batches[0] != p {
		t.Fatalf("batches=%v want [%s]", batches, p)
	}
	got, err := ReadRows[TurnRow](p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 || got[2].GameID != "g2" {
		t.Fatalf("rows=%d last=%s", len(got), got[len(got)-1].GameID)
	}
}

func TestRecorder_FlushAndClose(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(dir, 100, time.Hour, quietLogger())

	state := sampleState(t)
	for i := 0; i < 3; i++ {
		state.Turn = int32(i)
		rec.Record(NewDecisionRow("g", "live", rules.Standard(), state, engine.Decision{Move: game.MoveUp}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rec.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	batches, err := ListBatches(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("batches=%d want=1", len(batches))
	}
	rows, err := ReadRows[DecisionRow](batches[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 || rows[2].Turn != 2 {
		t.Fatalf("rows=%d", len(rows))
	}

	// Nothing queued: no new file.
	if err := rec.Flush(ctx); err != nil {
		t.Fatalf("second flush: %v", err)
	}

	rec.Record(NewDecisionRow("g", "live", rules.Standard(), state, engine.Decision{Move: game.MoveDown}))
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	batches, _ = ListBatches(dir)
	if len(batches) != 2 {
		t.Fatalf("batches after close=%d want=2", len(batches))
	}
	if err := rec.Flush(ctx); err != ErrRecorderClosed {
		t.Fatalf("flush after close err=%v want=%v", err, ErrRecorderClosed)
	}
	rec.Record(DecisionRow{})
}

func TestRecorder_FlushOnCount(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(dir, 2, time.Hour, quietLogger())
	defer rec.Close()

	state := sampleState(t)
	rec.Record(NewDecisionRow("g", "live", rules.Standard(), state, engine.Decision{}))
	rec.Record(NewDecisionRow("g", "live", rules.Standard(), state, engine.Decision{}))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if batches, _ := ListBatches(dir); len(batches) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no batch written after reaching flush count")
}

func TestRecorder_FailedFlushes(t *testing.T) {
	// A regular file where the archive directory should be.
	path := filepath.Join(t.TempDir(), "decisions")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	rec := NewRecorder(path, 1, time.Hour, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state := sampleState(t)
	for i := 0; i < 6; i++ {
		state.Turn = int32(i)
		rec.Record(NewDecisionRow("g", "live", rules.Standard(), state, engine.Decision{}))
		if err := rec.Flush(ctx); err == nil {
			t.Fatalf("flush %d into a file succeeded", i)
		}
	}

	// Once writable again, Close keeps the newest four rows and reports the drop.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	err := rec.Close()
	if err == nil || !strings.Contains(err.Error(), "dropped 2 rows") {
		t.Fatalf("close err=%v want dropped 2 rows", err)
	}
	batches, _ := ListBatches(path)
	if len(batches) != 1 {
		t.Fatalf("batches=%d want=1", len(batches))
	}
	rows, err := ReadRows[DecisionRow](batches[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 4 || rows[0].Turn != 2 || rows[3].Turn != 5 {
		t.Fatalf("rows=%d first=%d", len(rows), rows[0].Turn)
	}
}

func TestRecorder_CloseReportsFlushError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	rec := NewRecorder(path, 100, time.Hour, quietLogger())
	rec.Record(NewDecisionRow("g", "live", rules.Standard(), sampleState(t), engine.Decision{}))
	if err := rec.Close(); err == nil {
		t.Fatalf("close err=nil want flush error")
	}
}

func TestSeenLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "seen.log")

	l, err := OpenSeenLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, id := range []string{"a", "b", "a"} {
		if err := l.Add(id); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	if err := l.Add(""); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if l.Len() != 2 || !l.Has("a") || l.Has("c") {
		t.Fatalf("len=%d", l.Len())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Add("c"); err != ErrSeenLogClosed {
		t.Fatalf("add after close err=%v", err)
	}

	reopened, err := OpenSeenLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if diff := cmp.Diff([]string{"c", "d"}, reopened.Filter([]string{"a", "c", "b", "d"})); diff != "" {
		t.Fatalf("filter (-want +got):\n%s", diff)
	}
}
