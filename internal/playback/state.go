package playback

import (
	"fmt"
	"time"

	"github.com/alorle/iptv-player/internal/stream"
)

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateEnded
	StateErrored
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateErrored:
		return "errored"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Policy holds the retry ladder parameters.
type Policy struct {
	HLSMaxAttempts    int
	DirectMaxAttempts int
	HLSBackoff        time.Duration
	DirectBackoff     time.Duration
	// ProxyAvailable enables the one-time switch to the relay endpoint.
	ProxyAvailable bool
	// SkipStep is the distance covered by a skip command, in seconds.
	SkipStep float64
}

// DefaultPolicy returns the standard ladder: three HLS attempts two seconds
// apart, two direct attempts one second apart.
func DefaultPolicy() Policy {
	return Policy{
		HLSMaxAttempts:    3,
		DirectMaxAttempts: 2,
		HLSBackoff:        2 * time.Second,
		DirectBackoff:     time.Second,
		SkipStep:          10,
	}
}

func (p Policy) maxAttempts(k stream.Kind) int {
	if k == stream.KindHLS {
		return p.HLSMaxAttempts
	}
	return p.DirectMaxAttempts
}

func (p Policy) backoff(k stream.Kind) time.Duration {
	if k == stream.KindHLS {
		return p.HLSBackoff
	}
	return p.DirectBackoff
}

// Snapshot is the observable state of a session.
type Snapshot struct {
	State    State
	Detected stream.Kind
	Strategy stream.Kind

	UsingProxy         bool
	Attempts           int
	MediaRecoveryUsed  bool
	DirectFallbackUsed bool

	Position float64
	Duration float64

	LastError stream.FailureClass
	Terminal  bool
	Readies   int
}

// RetryCount is the number of attempts beyond the first.
func (s Snapshot) RetryCount() int {
	if s.Attempts <= 1 {
		return 0
	}
	return s.Attempts - 1
}

// Playing reports whether media is currently advancing.
func (s Snapshot) Playing() bool {
	return s.State == StatePlaying
}
