package driven

import (
	"context"

	"github.com/alorle/iptv-player/internal/stream"
)

// TransportEventKind enumerates the lifecycle signals a binding reports.
type TransportEventKind int

const (
	// TransportReady means the media is loaded and can start playing.
	TransportReady TransportEventKind = iota
	// TransportTimeUpdate carries the current playback position.
	TransportTimeUpdate
	// TransportEnded means a finite stream played to its end.
	TransportEnded
	// TransportFailure carries an error classified with stream.Classify.
	TransportFailure
)

// TransportEvent is delivered to the EventSink of a binding.
// Duration is zero when it is unknown, as for live streams.
type TransportEvent struct {
	Kind     TransportEventKind
	Position float64
	Duration float64
	Err      error
}

// EventSink receives transport events. Implementations must not block.
type EventSink func(TransportEvent)

// AttachRequest describes what a transport should load.
type AttachRequest struct {
	URL          string
	Strategy     stream.Kind
	ViaProxy     bool
	DurationHint float64
}

// Transport loads a stream with one delivery strategy.
// This is a driven port implemented by the HLS and direct adapters.
type Transport interface {
	// Attach starts loading the stream and returns immediately. Progress and
	// failures are reported through sink until the binding is detached or ctx
	// is cancelled. An error is returned only when loading cannot start.
	Attach(ctx context.Context, req AttachRequest, sink EventSink) (Binding, error)
}

// Binding is an attached stream.
type Binding interface {
	Play() error
	Pause() error
	// Seek moves the playhead to an absolute position in seconds.
	Seek(position float64) error
	// RecoverMedia asks the binding to reload media after a decode failure.
	RecoverMedia() error
	// Detach releases the stream. No events are delivered afterwards.
	Detach() error
}

// TransportSet maps each strategy to its transport.
type TransportSet map[stream.Kind]Transport
