package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/internal/progress"
	"github.com/alorle/iptv-player/internal/stream"
	"github.com/alorle/iptv-player/internal/userdata"
	"github.com/alorle/iptv-player/metrics"
)

const (
	inboxSize = 64

	// DefaultLoadTimeout bounds how long an attach may take to become ready.
	DefaultLoadTimeout = 30 * time.Second
)

// Session errors
var (
	ErrSessionClosed = errors.New("playback session closed")
	ErrNoTransport   = errors.New("no transport configured for stream strategy")
)

// Config holds the collaborators and parameters of a session.
type Config struct {
	Entry         catalog.Entry
	ProfileToken  string
	FromBeginning bool

	Policy      Policy
	Proxy       stream.Proxy
	Transports  driven.TransportSet
	Reconciler  *progress.Reconciler
	Hub         *Hub
	Clock       Clock
	LoadTimeout time.Duration
	Logger      *slog.Logger
}

type source int

const (
	sourceCommand source = iota
	sourceBinding
	sourceRetry
	sourceLoadTimeout
)

type envelope struct {
	source source
	seq    uint64
	ev     Event
	reply  chan Snapshot
}

// Session plays one catalog entry. All state changes happen on a single
// goroutine that consumes commands, transport events and timer expiries in
// arrival order; events from detached bindings and cancelled timers are
// discarded by sequence number.
type Session struct {
	id       string
	entry    catalog.Entry
	cfg      Config
	policy   Policy
	hub      *Hub
	ownsHub  bool
	recorder *progress.Recorder
	logger   *slog.Logger

	inbox     chan envelope
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.RWMutex
	published Snapshot

	// Owned by the event loop.
	state         Snapshot
	pending       []Event
	binding       driven.Binding
	bindingCancel context.CancelFunc
	gen           uint64
	retryTimer    Timer
	retrySeq      uint64
	loadTimer     Timer
}

// Start opens a session and begins loading the entry. The session lives until
// Close is called or ctx is cancelled.
func Start(ctx context.Context, cfg Config) (*Session, error) {
	detected := stream.Detect(cfg.Entry.URL())
	if cfg.Transports[stream.KindDirect] == nil {
		return nil, ErrNoTransport
	}
	if detected == stream.KindHLS && cfg.Transports[stream.KindHLS] == nil {
		return nil, ErrNoTransport
	}

	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.LoadTimeout == 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	policy := cfg.Policy
	policy.ProxyAvailable = cfg.Proxy.Enabled() && stream.Proxiable(cfg.Entry.URL())

	id := uuid.New().String()
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:     id,
		entry:  cfg.Entry,
		cfg:    cfg,
		policy: policy,
		hub:    cfg.Hub,
		logger: cfg.Logger.With("session_id", id, "entry_id", cfg.Entry.ID()),
		inbox:  make(chan envelope, inboxSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  Snapshot{State: StateIdle, Detected: detected},
	}
	if s.hub == nil {
		s.hub = NewHub(s.logger)
		s.ownsHub = true
	}
	if cfg.Reconciler != nil {
		s.recorder = cfg.Reconciler.NewRecorder(ctx, progress.RecorderTarget{
			ProfileToken: cfg.ProfileToken,
			EntryID:      cfg.Entry.ID(),
			Content:      userdata.RefFromEntry(cfg.Entry),
		})
	}
	s.published = s.state

	metrics.SessionOpened()
	s.logger.Info("playback session started",
		"detected", detected.String(),
		"proxy_available", policy.ProxyAvailable)

	s.inbox <- envelope{source: sourceCommand, ev: Begin{}}
	go s.run()

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Entry returns the entry being played.
func (s *Session) Entry() catalog.Entry { return s.entry }

// Hub returns the hub the session publishes to.
func (s *Session) Hub() *Hub { return s.hub }

// Snapshot returns the latest published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published
}

// Done is closed when the session has shut down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Play resumes a paused or ended session.
func (s *Session) Play() (Snapshot, error) { return s.do(Play{}) }

// Pause pauses a playing session.
func (s *Session) Pause() (Snapshot, error) { return s.do(Pause{}) }

// Toggle flips between playing and paused.
func (s *Session) Toggle() (Snapshot, error) { return s.do(Toggle{}) }

// Seek moves to an absolute position, clamped to the media duration.
func (s *Session) Seek(position float64) (Snapshot, error) { return s.do(Seek{Position: position}) }

// Skip moves relative to the current position. A zero delta uses the
// configured skip step forward.
func (s *Session) Skip(delta float64) (Snapshot, error) {
	if delta == 0 {
		delta = s.policy.SkipStep
	}
	return s.do(Skip{Delta: delta})
}

// Retry reloads the stream from scratch after an error.
func (s *Session) Retry() (Snapshot, error) { return s.do(Retry{}) }

// Close stops the session and waits until it has released every resource.
func (s *Session) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}

func (s *Session) do(ev Event) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case s.inbox <- envelope{source: sourceCommand, ev: ev, reply: reply}:
	case <-s.ctx.Done():
		return s.Snapshot(), ErrSessionClosed
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return s.Snapshot(), ErrSessionClosed
	}
}

func (s *Session) post(env envelope) {
	select {
	case s.inbox <- env:
	case <-s.ctx.Done():
	}
}

func (s *Session) run() {
	defer close(s.done)
	defer s.teardown()

	for {
		select {
		case <-s.ctx.Done():
			s.dispatch(Close{})
			return
		case env := <-s.inbox:
			if s.current(env) {
				s.dispatch(env.ev)
			}
			if env.reply != nil {
				env.reply <- s.state
			}
			if s.state.State == StateClosed {
				return
			}
		}
	}
}

func (s *Session) current(env envelope) bool {
	switch env.source {
	case sourceBinding:
		return s.binding != nil && env.seq == s.gen
	case sourceRetry:
		return env.seq == s.retrySeq
	case sourceLoadTimeout:
		return s.binding != nil && env.seq == s.gen && s.state.State == StateLoading
	default:
		return true
	}
}

func (s *Session) dispatch(ev Event) {
	s.pending = append(s.pending, ev)
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]

		if f, ok := next.(Failure); ok {
			metrics.RecordPlaybackFailure(f.Class.String())
			s.logger.Warn("playback failure",
				"class", f.Class.String(),
				"detail", f.Detail,
				"strategy", s.state.Strategy.String(),
				"attempt", s.state.Attempts,
				"proxy", s.state.UsingProxy)
		}

		prev := s.state
		state, actions := Transition(s.state, next, s.policy)
		s.state = state
		if changed(prev, state) {
			s.notify(NotifyState, "")
		}
		for _, a := range actions {
			s.execute(a)
		}

		s.mu.Lock()
		s.published = s.state
		s.mu.Unlock()
	}
}

func changed(prev, next Snapshot) bool {
	return prev.State != next.State ||
		prev.Strategy != next.Strategy ||
		prev.UsingProxy != next.UsingProxy ||
		prev.Attempts != next.Attempts
}

func (s *Session) execute(a Action) {
	switch act := a.(type) {
	case AttachAction:
		s.attach(act)

	case RecoverMediaAction:
		if s.binding == nil {
			return
		}
		s.logger.Info("recovering media in place")
		if err := s.binding.RecoverMedia(); err != nil {
			s.fail(err)
			return
		}
		s.armLoadTimer()

	case ScheduleRetryAction:
		s.stopRetry()
		seq := s.retrySeq
		s.logger.Info("retry scheduled", "delay", act.Delay.String(), "attempt", s.state.Attempts+1)
		s.retryTimer = s.cfg.Clock.AfterFunc(act.Delay, func() {
			s.post(envelope{source: sourceRetry, seq: seq, ev: RetryDue{}})
		})

	case CancelRetryAction:
		s.stopRetry()

	case ApplyResumeAction:
		s.stopLoadTimer()
		s.applyResume(act.Fresh)

	case PlayAction:
		if s.binding != nil {
			if err := s.binding.Play(); err != nil {
				s.logger.Debug("play failed", "error", err)
			}
		}

	case PauseAction:
		if s.binding != nil {
			if err := s.binding.Pause(); err != nil {
				s.logger.Debug("pause failed", "error", err)
			}
		}

	case SeekAction:
		if s.binding != nil {
			if err := s.binding.Seek(act.Position); err != nil {
				s.logger.Debug("seek failed", "position", act.Position, "error", err)
			}
		}

	case ReportPositionAction:
		if s.recorder != nil {
			s.recorder.Record(act.Position, act.Duration)
		}
		s.notify(NotifyPosition, "")

	case DetachAction:
		s.detach()

	case SurfaceErrorAction:
		metrics.RecordTerminalError(act.Class.String())
		s.logger.Error("playback failed", "class", act.Class.String(), "attempts", s.state.Attempts)
		s.notify(NotifyError, act.Message)
	}
}

func (s *Session) attach(act AttachAction) {
	s.detach()
	s.gen++
	gen := s.gen

	target := s.entry.URL()
	if act.ViaProxy {
		target = s.cfg.Proxy.Wrap(target)
	}

	transport := s.cfg.Transports[act.Strategy]
	if transport == nil {
		s.fail(&stream.UnsupportedFormatError{URL: target})
		return
	}

	metrics.RecordPlaybackAttempt(act.Strategy.String(), act.ViaProxy)
	s.logger.Info("attaching stream",
		"strategy", act.Strategy.String(),
		"proxy", act.ViaProxy,
		"attempt", s.state.Attempts)

	bctx, cancel := context.WithCancel(s.ctx)
	binding, err := transport.Attach(bctx, driven.AttachRequest{
		URL:          target,
		Strategy:     act.Strategy,
		ViaProxy:     act.ViaProxy,
		DurationHint: s.entry.Duration(),
	}, s.sink(bctx, gen))
	if err != nil {
		cancel()
		s.fail(err)
		return
	}

	s.binding = binding
	s.bindingCancel = cancel
	s.armLoadTimer()
}

// sink turns transport callbacks into envelopes tagged with the binding
// generation. Time updates are dropped rather than queued when the loop is
// busy.
func (s *Session) sink(bctx context.Context, gen uint64) driven.EventSink {
	return func(te driven.TransportEvent) {
		var ev Event
		switch te.Kind {
		case driven.TransportReady:
			ev = Ready{Duration: te.Duration}
		case driven.TransportTimeUpdate:
			env := envelope{source: sourceBinding, seq: gen, ev: TimeUpdate{Position: te.Position, Duration: te.Duration}}
			select {
			case s.inbox <- env:
			default:
			}
			return
		case driven.TransportEnded:
			ev = Ended{}
		case driven.TransportFailure:
			detail := ""
			if te.Err != nil {
				detail = te.Err.Error()
			}
			ev = Failure{Class: stream.Classify(te.Err), Detail: detail}
		default:
			return
		}
		select {
		case s.inbox <- envelope{source: sourceBinding, seq: gen, ev: ev}:
		case <-bctx.Done():
		}
	}
}

func (s *Session) fail(err error) {
	s.pending = append(s.pending, Failure{Class: stream.Classify(err), Detail: err.Error()})
}

func (s *Session) applyResume(fresh bool) {
	pos := s.state.Position
	if fresh {
		pos = 0
		if s.cfg.Reconciler != nil {
			pos = s.cfg.Reconciler.ResolveStartPosition(s.ctx, progress.ResumeQuery{
				ProfileToken:  s.cfg.ProfileToken,
				EntryID:       s.entry.ID(),
				URL:           s.entry.URL(),
				Duration:      s.state.Duration,
				FromBeginning: s.cfg.FromBeginning,
			})
		}
	}
	if pos <= 0 || s.binding == nil {
		return
	}
	if err := s.binding.Seek(pos); err != nil {
		s.logger.Debug("resume seek failed", "position", pos, "error", err)
		return
	}
	s.state.Position = pos
	s.logger.Info("resuming playback", "position", pos, "fresh", fresh)
}

func (s *Session) armLoadTimer() {
	s.stopLoadTimer()
	if s.cfg.LoadTimeout < 0 {
		return
	}
	gen := s.gen
	target := s.entry.URL()
	s.loadTimer = s.cfg.Clock.AfterFunc(s.cfg.LoadTimeout, func() {
		s.post(envelope{
			source: sourceLoadTimeout,
			seq:    gen,
			ev: Failure{
				Class:  stream.FailureNetwork,
				Detail: (&stream.NetworkError{Reason: stream.ReasonTimeout, URL: target}).Error(),
			},
		})
	})
}

func (s *Session) stopLoadTimer() {
	if s.loadTimer != nil {
		s.loadTimer.Stop()
		s.loadTimer = nil
	}
}

func (s *Session) stopRetry() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.retrySeq++
}

func (s *Session) detach() {
	s.stopLoadTimer()
	if s.binding == nil {
		return
	}
	s.bindingCancel()
	if err := s.binding.Detach(); err != nil {
		s.logger.Debug("detach failed", "error", err)
	}
	s.binding = nil
	s.bindingCancel = nil
	s.gen++
}

func (s *Session) notify(kind NotificationKind, message string) {
	s.hub.Publish(Notification{
		Kind:      kind,
		SessionID: s.id,
		EntryID:   s.entry.ID(),
		Snapshot:  s.state,
		Message:   message,
		At:        s.cfg.Clock.Now(),
	})
}

func (s *Session) teardown() {
	s.stopRetry()
	s.detach()
	if s.recorder != nil {
		s.recorder.Close()
	}
	s.cancel()
	if s.ownsHub {
		s.hub.Close()
	}
	metrics.SessionClosed()
	s.logger.Info("playback session closed")
}
