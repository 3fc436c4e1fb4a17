package application

import (
	"context"
	"sync"

	"github.com/alorle/iptv-relay/internal/snapshot"
)

type mockSnapshotRepository struct {
	mu       sync.Mutex
	saved    []snapshot.Snapshot
	saveFunc func(ctx context.Context, s snapshot.Snapshot) error
	findFunc func(ctx context.Context, sourceURL string) (snapshot.Snapshot, error)
	pingFunc func(ctx context.Context) error
}

func (m *mockSnapshotRepository) Save(ctx context.Context, s snapshot.Snapshot) error {
	m.mu.Lock()
	m.saved = append(m.saved, s)
	m.mu.Unlock()
	if m.saveFunc != nil {
		return m.saveFunc(ctx, s)
	}
	return nil
}

func (m *mockSnapshotRepository) FindBySourceURL(ctx context.Context, sourceURL string) (snapshot.Snapshot, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, sourceURL)
	}
	return snapshot.Snapshot{}, snapshot.ErrSnapshotNotFound
}

func (m *mockSnapshotRepository) Ping(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

func (m *mockSnapshotRepository) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}
