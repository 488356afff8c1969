package progress

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/alorle/iptv-player/internal/port/driven"
)

const (
	// DefaultEndMargin is how close to the end a position may be and still be
	// offered as a resume point.
	DefaultEndMargin = 10.0

	// DefaultSaveInterval is the minimum spacing of remote progress writes.
	DefaultSaveInterval = 10 * time.Second

	// DefaultRemoteTimeout bounds every remote progress call.
	DefaultRemoteTimeout = 5 * time.Second

	localKeyPrefix = "progress_"
)

// LocalKey returns the local cache key holding the position of an entry.
func LocalKey(entryID string) string {
	return localKeyPrefix + entryID
}

// Config tunes a Reconciler.
type Config struct {
	EndMargin     float64
	SaveInterval  time.Duration
	RemoteTimeout time.Duration
	QueueSize     int
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		EndMargin:     DefaultEndMargin,
		SaveInterval:  DefaultSaveInterval,
		RemoteTimeout: DefaultRemoteTimeout,
		QueueSize:     16,
	}
}

// Reconciler decides where playback starts and builds Recorders that persist
// positions. Remote state wins when it is usable; the local cache is the
// fallback.
type Reconciler struct {
	local  driven.KeyValueCache
	remote driven.ProgressStore
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. remote may be nil when no user-data
// service is configured.
func NewReconciler(local driven.KeyValueCache, remote driven.ProgressStore, cfg Config, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.EndMargin <= 0 {
		cfg.EndMargin = def.EndMargin
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = def.SaveInterval
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = def.RemoteTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	return &Reconciler{
		local:  local,
		remote: remote,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the time source used for rate limiting.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// ResumeQuery identifies the content whose start position is resolved.
type ResumeQuery struct {
	ProfileToken  string
	EntryID       string
	URL           string
	Duration      float64
	FromBeginning bool
}

// ResolveStartPosition returns the position playback should start from, in
// seconds. It never fails: unreachable stores and unusable values resolve to
// zero.
func (r *Reconciler) ResolveStartPosition(ctx context.Context, q ResumeQuery) float64 {
	if q.FromBeginning {
		return 0
	}

	if q.ProfileToken != "" && r.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, r.cfg.RemoteTimeout)
		pos, found, err := r.remote.GetProgress(rctx, q.ProfileToken, q.URL)
		cancel()
		switch {
		case err != nil:
			r.logger.Debug("remote progress unavailable", "entry_id", q.EntryID, "error", err)
		case found && !pos.Completed && r.usable(pos.Seconds, q.Duration):
			return pos.Seconds
		}
	}

	if r.local != nil {
		raw, found, err := r.local.Get(LocalKey(q.EntryID))
		if err != nil {
			r.logger.Debug("local progress unavailable", "entry_id", q.EntryID, "error", err)
			return 0
		}
		if !found {
			return 0
		}
		saved, err := strconv.ParseFloat(raw, 64)
		if err == nil && r.usable(saved, q.Duration) {
			return saved
		}
	}

	return 0
}

func (r *Reconciler) usable(pos, duration float64) bool {
	return pos > 0 && pos < duration-r.cfg.EndMargin
}

// Forget drops the local position of an entry.
func (r *Reconciler) Forget(entryID string) error {
	if r.local == nil {
		return nil
	}
	return r.local.Delete(LocalKey(entryID))
}
