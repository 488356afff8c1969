package progress_test

import (
	"context"
	"sync"

	"github.com/alorle/iptv-player/internal/userdata"
)

type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]string)}
}

func (m *memoryCache) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryCache) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *memoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryCache) Ping(ctx context.Context) error { return m.err }

type mockProgressStore struct {
	getProgressFunc  func(ctx context.Context, token, url string) (userdata.Position, bool, error)
	saveProgressFunc func(ctx context.Context, token string, rec userdata.ProgressRecord) (bool, error)
}

func (m *mockProgressStore) GetProgress(ctx context.Context, token, url string) (userdata.Position, bool, error) {
	if m.getProgressFunc != nil {
		return m.getProgressFunc(ctx, token, url)
	}
	return userdata.Position{}, false, nil
}

func (m *mockProgressStore) SaveProgress(ctx context.Context, token string, rec userdata.ProgressRecord) (bool, error) {
	if m.saveProgressFunc != nil {
		return m.saveProgressFunc(ctx, token, rec)
	}
	return false, nil
}

func (m *mockProgressStore) ResetProgress(ctx context.Context, token, url string) error {
	return nil
}

func (m *mockProgressStore) ContinueWatching(ctx context.Context, token string) ([]userdata.ProgressItem, error) {
	return nil, nil
}
