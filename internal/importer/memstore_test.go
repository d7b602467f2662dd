package importer

import (
	"context"
	"sort"
	"sync"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/google/uuid"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu sync.Mutex

	nextID int64
	items  map[uuid.UUID][]catalog.StoredRecord
	runs   []Run

	insertErr   error
	insertCalls int
}

func newMemStore() *memStore {
	return &memStore{items: make(map[uuid.UUID][]catalog.StoredRecord)}
}

func (m *memStore) InsertRecords(_ context.Context, runID uuid.UUID, records []catalog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertCalls++
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, r := range records {
		m.nextID++
		m.items[runID] = append(m.items[runID], catalog.StoredRecord{ID: m.nextID, Record: r})
	}
	return nil
}

func (m *memStore) RecordRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) ListRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]Run(nil), m.runs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) RollbackRun(_ context.Context, runID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].ID != runID {
			continue
		}
		switch m.runs[i].Status {
		case RunRolledBack:
			return 0, ErrAlreadyRolledBack
		case RunFailed:
			return 0, ErrRunNotCommitted
		}
		n := int64(len(m.items[runID]))
		delete(m.items, runID)
		m.runs[i].Status = RunRolledBack
		return n, nil
	}
	return 0, ErrRunNotFound
}

func (m *memStore) ListItems(_ context.Context, runID uuid.UUID, limit int) ([]catalog.StoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.items[runID]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return append([]catalog.StoredRecord(nil), items...), nil
}

func (m *memStore) totalItems() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, items := range m.items {
		n += len(items)
	}
	return n
}
