package playback

import (
	"math"

	"github.com/alorle/iptv-player/internal/stream"
)

// Messages shown for terminal errors.
const (
	MessageNetwork      = "The stream could not be reached. Check the connection and try again."
	MessageMedia        = "The stream could not be decoded."
	MessageIncompatible = "This stream format is not supported. Please report the incompatibility."
)

// Transition computes the next snapshot and the actions to run for an event.
// It is pure: all effects are described by the returned actions. Events that
// do not apply to the current state leave it unchanged and return no actions.
func Transition(s Snapshot, ev Event, p Policy) (Snapshot, []Action) {
	if s.State == StateClosed {
		return s, nil
	}

	switch e := ev.(type) {
	case Begin:
		if s.State != StateIdle {
			return s, nil
		}
		return begin(s)

	case Ready:
		if s.State != StateLoading {
			return s, nil
		}
		s.State = StatePlaying
		s.LastError = stream.FailureNone
		if e.Duration > 0 {
			s.Duration = e.Duration
		}
		s.Readies++
		return s, []Action{ApplyResumeAction{Fresh: s.Readies == 1}, PlayAction{}}

	case TimeUpdate:
		switch s.State {
		case StatePlaying:
			s.Position = e.Position
			if e.Duration > 0 {
				s.Duration = e.Duration
			}
			return s, []Action{ReportPositionAction{Position: s.Position, Duration: s.Duration}}
		case StatePaused:
			s.Position = e.Position
			return s, nil
		}
		return s, nil

	case Ended:
		if s.State != StatePlaying {
			return s, nil
		}
		s.State = StateEnded
		if s.Duration > 0 {
			s.Position = s.Duration
		}
		return s, nil

	case Play:
		return play(s)

	case Pause:
		return pause(s)

	case Toggle:
		if s.State == StatePlaying {
			return pause(s)
		}
		return play(s)

	case Seek:
		return seek(s, e.Position)

	case Skip:
		return seek(s, s.Position+e.Delta)

	case Failure:
		switch s.State {
		case StateLoading, StatePlaying, StatePaused:
		default:
			return s, nil
		}
		return fail(s, e.Class, p)

	case RetryDue:
		if s.State != StateErrored || s.Terminal {
			return s, nil
		}
		s.Attempts++
		s.State = StateLoading
		return s, []Action{AttachAction{Strategy: s.Strategy, ViaProxy: s.UsingProxy}}

	case Retry:
		if s.State != StateErrored {
			return s, nil
		}
		s.UsingProxy = false
		s.MediaRecoveryUsed = false
		s.DirectFallbackUsed = false
		s.Terminal = false
		s.LastError = stream.FailureNone
		next, actions := begin(s)
		return next, append([]Action{CancelRetryAction{}}, actions...)

	case Close:
		s.State = StateClosed
		return s, []Action{CancelRetryAction{}, DetachAction{}}
	}

	return s, nil
}

func begin(s Snapshot) (Snapshot, []Action) {
	s.Strategy = stream.KindDirect
	if s.Detected == stream.KindHLS {
		s.Strategy = stream.KindHLS
	}
	s.Attempts = 1
	s.State = StateLoading
	return s, []Action{AttachAction{Strategy: s.Strategy, ViaProxy: s.UsingProxy}}
}

func play(s Snapshot) (Snapshot, []Action) {
	if s.State != StatePaused && s.State != StateEnded {
		return s, nil
	}
	if s.State == StateEnded {
		s.Position = 0
		s.State = StatePlaying
		return s, []Action{SeekAction{Position: 0}, PlayAction{}}
	}
	s.State = StatePlaying
	return s, []Action{PlayAction{}}
}

func pause(s Snapshot) (Snapshot, []Action) {
	if s.State != StatePlaying {
		return s, nil
	}
	s.State = StatePaused
	return s, []Action{PauseAction{}}
}

// seek clamps the target to [0, duration]. Without a known duration, as for
// live streams, seeking does nothing.
func seek(s Snapshot, target float64) (Snapshot, []Action) {
	switch s.State {
	case StatePlaying, StatePaused, StateEnded:
	default:
		return s, nil
	}
	if s.Duration <= 0 || math.IsNaN(target) {
		return s, nil
	}
	target = math.Max(0, math.Min(target, s.Duration))
	s.Position = target
	if s.State == StateEnded {
		s.State = StatePaused
	}
	return s, []Action{SeekAction{Position: target}}
}

func fail(s Snapshot, class stream.FailureClass, p Policy) (Snapshot, []Action) {
	s.LastError = class

	switch class {
	case stream.FailureMediaDecode:
		if !s.MediaRecoveryUsed {
			s.MediaRecoveryUsed = true
			s.State = StateLoading
			return s, []Action{RecoverMediaAction{}}
		}
		return ladder(s, class, p)

	case stream.FailureNetwork:
		return ladder(s, class, p)

	default:
		if s.Strategy == stream.KindHLS && !s.DirectFallbackUsed {
			s.DirectFallbackUsed = true
			s.Strategy = stream.KindDirect
			s.Attempts = 1
			s.State = StateLoading
			return s, []Action{AttachAction{Strategy: s.Strategy, ViaProxy: s.UsingProxy}}
		}
		return terminal(s, class, MessageIncompatible)
	}
}

// ladder walks the retry steps for recoverable failures: one switch to the
// relay, then timed retries until the attempt bound is reached.
func ladder(s Snapshot, class stream.FailureClass, p Policy) (Snapshot, []Action) {
	limit := p.maxAttempts(s.Strategy)

	if !s.UsingProxy && p.ProxyAvailable && s.Attempts < limit {
		s.UsingProxy = true
		s.Attempts++
		s.State = StateLoading
		return s, []Action{AttachAction{Strategy: s.Strategy, ViaProxy: true}}
	}

	if s.Attempts < limit {
		s.State = StateErrored
		return s, []Action{DetachAction{}, ScheduleRetryAction{Delay: p.backoff(s.Strategy)}}
	}

	msg := MessageNetwork
	if class == stream.FailureMediaDecode {
		msg = MessageMedia
	}
	return terminal(s, class, msg)
}

func terminal(s Snapshot, class stream.FailureClass, msg string) (Snapshot, []Action) {
	s.State = StateErrored
	s.Terminal = true
	return s, []Action{DetachAction{}, SurfaceErrorAction{Class: class, Message: msg}}
}
