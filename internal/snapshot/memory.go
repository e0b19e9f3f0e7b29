package snapshot

import (
	"context"
	"sync"

	"github.com/docwatch/docwatch/internal/watch"
)

// Memory implements watch.SnapshotGateway in process memory. Used by
// tests and by runs that have no database configured.
type Memory struct {
	mu   sync.RWMutex
	logs map[watch.SnapshotKey][]watch.Snapshot
}

// NewMemory returns an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{logs: make(map[watch.SnapshotKey][]watch.Snapshot)}
}

// LoadLatest returns the most recently appended snapshot for the key,
// nil when none exists.
func (m *Memory) LoadLatest(_ context.Context, key watch.SnapshotKey) (*watch.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log := m.logs[key]
	if len(log) == 0 {
		return nil, nil
	}
	snap := log[len(log)-1]
	return &snap, nil
}

// Append adds a snapshot to the key's log.
func (m *Memory) Append(_ context.Context, snap watch.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := snap.Key()
	m.logs[key] = append(m.logs[key], snap)
	return nil
}

// Len reports how many snapshots the key's log holds.
func (m *Memory) Len(key watch.SnapshotKey) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.logs[key])
}
