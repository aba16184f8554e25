package store

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrSeenLogClosed = errors.New("seen log is closed")

// SeenLog is an append-only file of game ids, one per line, used to skip
// games that were already processed. A torn final line from a crash is
// ignored on the next open.
type SeenLog struct {
	mu   sync.RWMutex
	file *os.File
	ids  map[string]struct{}
}

func OpenSeenLog(path string) (*SeenLog, error) {
	if path == "" {
		return nil, fmt.Errorf("seen log path is required")
	}

	ids := make(map[string]struct{})
	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if id := strings.TrimSpace(scanner.Text()); id != "" {
				ids[id] = struct{}{}
			}
		}
		_ = f.Close()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open seen log: %w", err)
	}
	return &SeenLog{file: file, ids: ids}, nil
}

func (l *SeenLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *SeenLog) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

func (l *SeenLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// Add appends id and syncs. Known ids are a no-op.
func (l *SeenLog) Add(id string) error {
	if id == "" {
		return fmt.Errorf("empty game id")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ids[id]; ok {
		return nil
	}
	if l.file == nil {
		return ErrSeenLogClosed
	}
	if _, err := l.file.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("append seen log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync seen log: %w", err)
	}
	l.ids[id] = struct{}{}
	return nil
}

// Filter returns the ids not yet in the log, keeping their order.
func (l *SeenLog) Filter(ids []string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := l.ids[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
