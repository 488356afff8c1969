package playback

import (
	"time"

	"github.com/alorle/iptv-player/internal/stream"
)

// Event is an input to Transition.
type Event interface{ isEvent() }

type (
	// Begin begins the first attach.
	Begin struct{}
	// Ready signals that the current binding can play.
	Ready struct{ Duration float64 }
	// TimeUpdate reports the playhead.
	TimeUpdate struct{ Position, Duration float64 }
	// Ended signals that finite media played to its end.
	Ended struct{}
	// Failure reports a classified binding error.
	Failure struct {
		Class  stream.FailureClass
		Detail string
	}
	// RetryDue fires when a scheduled retry delay elapses.
	RetryDue struct{}

	Play   struct{}
	Pause  struct{}
	Toggle struct{}
	// Seek moves to an absolute position.
	Seek struct{ Position float64 }
	// Skip moves relative to the current position.
	Skip struct{ Delta float64 }
	// Retry restarts loading from scratch after an error.
	Retry struct{}
	Close struct{}
)

func (Begin) isEvent()      {}
func (Ready) isEvent()      {}
func (TimeUpdate) isEvent() {}
func (Ended) isEvent()      {}
func (Failure) isEvent()    {}
func (RetryDue) isEvent()   {}
func (Play) isEvent()       {}
func (Pause) isEvent()      {}
func (Toggle) isEvent()     {}
func (Seek) isEvent()       {}
func (Skip) isEvent()       {}
func (Retry) isEvent()      {}
func (Close) isEvent()      {}

// Action is an effect requested by Transition and executed by the session.
type Action interface{ isAction() }

type (
	// AttachAction replaces the current binding with a new one.
	AttachAction struct {
		Strategy stream.Kind
		ViaProxy bool
	}
	// RecoverMediaAction asks the current binding to reload media in place.
	RecoverMediaAction struct{}
	// ScheduleRetryAction arms the retry timer.
	ScheduleRetryAction struct{ Delay time.Duration }
	// CancelRetryAction disarms the retry timer.
	CancelRetryAction struct{}
	// ApplyResumeAction seeks to the resume point. Fresh is set on the first
	// ready of a session, when the point comes from the progress stores.
	ApplyResumeAction struct{ Fresh bool }
	PlayAction        struct{}
	PauseAction       struct{}
	SeekAction        struct{ Position float64 }
	// ReportPositionAction publishes and persists the playhead.
	ReportPositionAction struct{ Position, Duration float64 }
	// DetachAction releases the current binding.
	DetachAction struct{}
	// SurfaceErrorAction reports a terminal error.
	SurfaceErrorAction struct {
		Class   stream.FailureClass
		Message string
	}
)

func (AttachAction) isAction()         {}
func (RecoverMediaAction) isAction()   {}
func (ScheduleRetryAction) isAction()  {}
func (CancelRetryAction) isAction()    {}
func (ApplyResumeAction) isAction()    {}
func (PlayAction) isAction()           {}
func (PauseAction) isAction()          {}
func (SeekAction) isAction()           {}
func (ReportPositionAction) isAction() {}
func (DetachAction) isAction()         {}
func (SurfaceErrorAction) isAction()   {}
