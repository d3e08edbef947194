package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/couchcryptid/weather-stats-etl/internal/observability"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// memStore mimics the SQL gateway: a unique natural key, all-or-nothing
// batches, and append-only stats.
type memStore struct {
	mu    sync.Mutex
	obs   []domain.Observation
	keys  map[domain.NaturalKey]struct{}
	stats []domain.YearlyStat

	// conflictOnBatch forces the next batch insert to fail as if another
	// writer had inserted one of its keys first.
	conflictOnBatch bool
	existsErr       error
	batchCalls      int
	singleCalls     int
}

func newMemStore() *memStore {
	return &memStore{keys: make(map[domain.NaturalKey]struct{})}
}

func (m *memStore) Exists(_ context.Context, key domain.NaturalKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.keys[key]
	return ok, nil
}

func (m *memStore) InsertObservation(_ context.Context, o domain.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singleCalls++
	if _, ok := m.keys[o.Key()]; ok {
		return domain.ErrDuplicate
	}
	m.put(o)
	return nil
}

func (m *memStore) InsertObservations(_ context.Context, batch []domain.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.conflictOnBatch {
		m.conflictOnBatch = false
		return domain.ErrStorageConflict
	}
	for _, o := range batch {
		if _, ok := m.keys[o.Key()]; ok {
			return domain.ErrStorageConflict
		}
	}
	for _, o := range batch {
		m.put(o)
	}
	return nil
}

func (m *memStore) put(o domain.Observation) {
	o.ID = int64(len(m.obs) + 1)
	m.obs = append(m.obs, o)
	m.keys[o.Key()] = struct{}{}
}

func (m *memStore) ScanObservations(_ context.Context) ([]domain.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Observation(nil), m.obs...), nil
}

func (m *memStore) AppendYearlyStat(_ context.Context, s domain.YearlyStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = int64(len(m.stats) + 1)
	m.stats = append(m.stats, s)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.obs)
}

type mockPublisher struct {
	observations [][]domain.Observation
	stats        [][]domain.YearlyStat
	err          error
}

func (p *mockPublisher) PublishObservations(_ context.Context, batch []domain.Observation) error {
	p.observations = append(p.observations, batch)
	return p.err
}

func (p *mockPublisher) PublishYearlyStats(_ context.Context, stats []domain.YearlyStat) error {
	p.stats = append(p.stats, stats)
	return p.err
}

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

// writeFile writes lines joined by newlines into dir/name and returns the path.
func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}
