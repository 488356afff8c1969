package playback_test

import (
	"context"
	"sync"
	"time"

	"github.com/alorle/iptv-player/internal/playback"
	"github.com/alorle/iptv-player/internal/port/driven"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) playback.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs every timer that became due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

// Pending returns the number of armed timers.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type attachCall struct {
	req     driven.AttachRequest
	sink    driven.EventSink
	binding *fakeBinding
}

type fakeTransport struct {
	attached  chan attachCall
	attachErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{attached: make(chan attachCall, 16)}
}

func (f *fakeTransport) Attach(ctx context.Context, req driven.AttachRequest, sink driven.EventSink) (driven.Binding, error) {
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	b := &fakeBinding{}
	f.attached <- attachCall{req: req, sink: sink, binding: b}
	return b, nil
}

type fakeBinding struct {
	mu       sync.Mutex
	seeks    []float64
	plays    int
	pauses   int
	recovers int
	detached bool
}

func (b *fakeBinding) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays++
	return nil
}

func (b *fakeBinding) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pauses++
	return nil
}

func (b *fakeBinding) Seek(position float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seeks = append(b.seeks, position)
	return nil
}

func (b *fakeBinding) RecoverMedia() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recovers++
	return nil
}

func (b *fakeBinding) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detached = true
	return nil
}

func (b *fakeBinding) Seeks() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]float64(nil), b.seeks...)
}

func (b *fakeBinding) Detached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.detached
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]string)}
}

func (m *memoryCache) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryCache) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryCache) Ping(ctx context.Context) error { return nil }
