package search

import (
	"sync"

	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/heuristic"
)

// Bound says how a stored value relates to the true minimax value.
type Bound uint8

const (
	BoundExact Bound = iota
	BoundLower
	BoundUpper
)

const tableShards = 16

type entry struct {
	value heuristic.Value
	bound Bound
	best  game.Move
	// limited is set when some line under this node stopped at the depth
	// limit rather than at a terminal state.
	limited bool
}

type shard struct {
	mu sync.Mutex
	m  map[uint64]entry
}

// Table is a transposition table owned by a single decision. It is safe for
// concurrent use; keys are spread across mutex-guarded shards. A shard that
// fills up is cleared.
type Table struct {
	shards   [tableShards]shard
	perShard int
}

func NewTable(size int) *Table {
	per := size / tableShards
	if per < 1 {
		per = 1
	}
	t := &Table{perShard: per}
	for i := range t.shards {
		t.shards[i].m = make(map[uint64]entry)
	}
	return t
}

func (t *Table) shard(key uint64) *shard {
	return &t.shards[key%tableShards]
}

func (t *Table) get(key uint64) (entry, bool) {
	sh := t.shard(key)
	sh.mu.Lock()
	e, ok := sh.m[key]
	sh.mu.Unlock()
	return e, ok
}

func (t *Table) put(key uint64, e entry) {
	sh := t.shard(key)
	sh.mu.Lock()
	if _, ok := sh.m[key]; !ok && len(sh.m) >= t.perShard {
		clear(sh.m)
	}
	sh.m[key] = e
	sh.mu.Unlock()
}

// Len reports the number of stored entries.
func (t *Table) Len() int {
	n := 0
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}

// tableKey folds the remaining depth, the tick and the mover into a board
// fingerprint.
func tableKey(fp uint64, depth int, turn int32, mover int) uint64 {
	x := fp ^ uint64(depth)<<48 ^ uint64(uint32(turn))<<16 ^ uint64(mover)
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
