package circuitbreaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alorle/iptv-player/metrics"
)

// State represents the current state of the circuit breaker
type State int

const (
	// StateClosed means the circuit is operating normally
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests
	StateOpen
	// StateHalfOpen means the circuit is testing if it can close
	StateHalfOpen
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config contains the configuration for a circuit breaker
type Config struct {
	Name             string        // Name used in logs and metrics
	FailureThreshold int           // Number of consecutive failures before opening
	Timeout          time.Duration // How long to wait in OPEN before transitioning to HALF-OPEN
	HalfOpenRequests int           // Number of test requests allowed in HALF-OPEN state
	// IsFailure decides whether an error counts against the circuit.
	// Defaults to every non-nil error.
	IsFailure func(error) bool
	Logger    *slog.Logger
	// Now replaces the wall clock, for tests.
	Now func() time.Time
}

var (
	// ErrCircuitOpen is returned when the circuit breaker is in OPEN state
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrHalfOpenLimitReached is returned when too many requests are made in HALF-OPEN state
	ErrHalfOpenLimitReached = errors.New("circuit breaker half-open request limit reached")
)

// Breaker guards calls to a flaky dependency.
type Breaker struct {
	config Config
	mu     sync.RWMutex

	state             State
	failureCount      int
	halfOpenRequests  int
	halfOpenSuccesses int
	openedAt          time.Time
	logger            *slog.Logger
}

// New creates a new circuit breaker with the given configuration
func New(cfg Config) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests <= 0 {
		cfg.HalfOpenRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics.SetCircuitBreakerState(cfg.Name, StateClosed.String())

	return &Breaker{
		config: cfg,
		state:  StateClosed,
		logger: logger.With("circuit_breaker", cfg.Name),
	}
}

// Execute runs fn if the circuit allows it. Errors rejected by IsFailure are
// returned to the caller but count as successes for the circuit.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()

	if b.state == StateOpen && b.config.Now().Sub(b.openedAt) >= b.config.Timeout {
		b.transitionTo(StateHalfOpen)
	}

	switch b.state {
	case StateOpen:
		b.mu.Unlock()
		return ErrCircuitOpen

	case StateHalfOpen:
		if b.halfOpenRequests >= b.config.HalfOpenRequests {
			b.mu.Unlock()
			return ErrHalfOpenLimitReached
		}
		b.halfOpenRequests++
		b.mu.Unlock()

		err := fn()

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.config.IsFailure(err) {
			b.transitionTo(StateOpen)
			return err
		}
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.config.HalfOpenRequests {
			b.transitionTo(StateClosed)
		}
		return err

	default:
		b.mu.Unlock()

		err := fn()

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.config.IsFailure(err) {
			b.failureCount++
			if b.failureCount >= b.config.FailureThreshold {
				b.transitionTo(StateOpen)
			}
			return err
		}
		b.failureCount = 0
		return err
	}
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Reset resets the circuit breaker to CLOSED state
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateClosed)
}

// transitionTo changes the circuit breaker state
// Must be called with lock held
func (b *Breaker) transitionTo(newState State) {
	if b.state == newState {
		return
	}

	oldState := b.state
	b.state = newState

	b.logger.Info("circuit breaker state changed",
		"from", oldState.String(),
		"to", newState.String())
	metrics.SetCircuitBreakerState(b.config.Name, newState.String())

	switch newState {
	case StateClosed:
		b.failureCount = 0
		b.halfOpenRequests = 0
		b.halfOpenSuccesses = 0
		b.openedAt = time.Time{}

	case StateOpen:
		metrics.RecordCircuitBreakerTrip(b.config.Name)
		b.openedAt = b.config.Now()
		b.halfOpenRequests = 0
		b.halfOpenSuccesses = 0

	case StateHalfOpen:
		b.halfOpenRequests = 0
		b.halfOpenSuccesses = 0
	}
}
