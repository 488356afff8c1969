package driven

import (
	"context"
	"log/slog"
	"sync"
	"time"

	port "github.com/alorle/iptv-player/internal/port/driven"
)

// DefaultTickInterval is how often an attached binding reports its position.
const DefaultTickInterval = 250 * time.Millisecond

// loadFunc resolves a stream and returns its duration in seconds, or zero
// when the stream has no end.
type loadFunc func(ctx context.Context) (float64, error)

// mediaBinding drives a virtual playhead for a loaded stream. Loading runs
// in the background and is repeated by RecoverMedia.
type mediaBinding struct {
	ctx    context.Context
	cancel context.CancelFunc
	load   loadFunc
	sink   port.EventSink
	tick   time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	loaded   bool
	playing  bool
	detached bool
	position float64
	duration float64
	lastTick time.Time

	wg sync.WaitGroup
}

func newMediaBinding(ctx context.Context, load loadFunc, sink port.EventSink, tick time.Duration, logger *slog.Logger) *mediaBinding {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	bctx, cancel := context.WithCancel(ctx)
	b := &mediaBinding{
		ctx:    bctx,
		cancel: cancel,
		load:   load,
		sink:   sink,
		tick:   tick,
		logger: logger,
		now:    time.Now,
	}
	b.wg.Add(2)
	go b.runLoad()
	go b.runPlayhead()
	return b
}

func (b *mediaBinding) runLoad() {
	defer b.wg.Done()

	duration, err := b.load(b.ctx)
	if b.ctx.Err() != nil {
		return
	}
	if err != nil {
		b.logger.Debug("stream load failed", "error", err)
		b.emit(port.TransportEvent{Kind: port.TransportFailure, Err: err})
		return
	}

	b.mu.Lock()
	b.loaded = true
	b.duration = duration
	b.mu.Unlock()
	b.emit(port.TransportEvent{Kind: port.TransportReady, Duration: duration})
}

func (b *mediaBinding) runPlayhead() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.advance()
		}
	}
}

func (b *mediaBinding) advance() {
	b.mu.Lock()
	if !b.loaded || !b.playing || b.detached {
		b.mu.Unlock()
		return
	}
	now := b.now()
	b.position += now.Sub(b.lastTick).Seconds()
	b.lastTick = now

	ended := false
	if b.duration > 0 && b.position >= b.duration {
		b.position = b.duration
		b.playing = false
		ended = true
	}
	ev := port.TransportEvent{Kind: port.TransportTimeUpdate, Position: b.position, Duration: b.duration}
	b.mu.Unlock()

	b.emit(ev)
	if ended {
		b.emit(port.TransportEvent{Kind: port.TransportEnded, Position: ev.Position, Duration: ev.Duration})
	}
}

func (b *mediaBinding) emit(ev port.TransportEvent) {
	b.mu.Lock()
	detached := b.detached
	b.mu.Unlock()
	if detached || b.ctx.Err() != nil {
		return
	}
	b.sink(ev)
}

func (b *mediaBinding) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.playing {
		b.playing = true
		b.lastTick = b.now()
	}
	return nil
}

func (b *mediaBinding) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playing = false
	return nil
}

func (b *mediaBinding) Seek(position float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if position < 0 {
		position = 0
	}
	if b.duration > 0 && position > b.duration {
		position = b.duration
	}
	b.position = position
	b.lastTick = b.now()
	return nil
}

func (b *mediaBinding) RecoverMedia() error {
	b.mu.Lock()
	if b.detached {
		b.mu.Unlock()
		return nil
	}
	b.loaded = false
	b.playing = false
	b.mu.Unlock()

	b.wg.Add(1)
	go b.runLoad()
	return nil
}

func (b *mediaBinding) Detach() error {
	b.mu.Lock()
	b.detached = true
	b.mu.Unlock()
	b.cancel()
	b.wg.Wait()
	return nil
}
