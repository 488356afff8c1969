package progress

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/alorle/iptv-player/internal/userdata"
	"github.com/alorle/iptv-player/metrics"
)

// Recorder persists the positions of one playback session. Every positive
// position is written to the local cache; remote writes are rate limited and
// sent in order by a single background writer.
type Recorder struct {
	r       *Reconciler
	token   string
	entryID string
	content userdata.ContentRef
	limiter *rate.Limiter
	queue   chan userdata.ProgressRecord
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// RecorderTarget names the content a Recorder writes for.
type RecorderTarget struct {
	ProfileToken string
	EntryID      string
	Content      userdata.ContentRef
}

// NewRecorder starts a Recorder. Close must be called to stop its writer.
func (r *Reconciler) NewRecorder(ctx context.Context, target RecorderTarget) *Recorder {
	ctx, cancel := context.WithCancel(ctx)
	rec := &Recorder{
		r:       r,
		token:   target.ProfileToken,
		entryID: target.EntryID,
		content: target.Content,
		limiter: rate.NewLimiter(rate.Every(r.cfg.SaveInterval), 1),
		queue:   make(chan userdata.ProgressRecord, r.cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  r.logger.With("entry_id", target.EntryID),
	}
	go rec.writeLoop()
	return rec
}

// Record stores a position report. Failures are logged and never surfaced.
func (rec *Recorder) Record(seconds, duration float64) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.closed || seconds <= 0 {
		return
	}

	if rec.r.local != nil {
		if err := rec.r.local.Set(LocalKey(rec.entryID), strconv.FormatFloat(seconds, 'f', -1, 64)); err != nil {
			rec.logger.Debug("failed to save local progress", "error", err)
		}
	}

	if rec.token == "" || rec.r.remote == nil || duration <= 0 {
		return
	}
	if !rec.limiter.AllowN(rec.r.now(), 1) {
		return
	}

	select {
	case rec.queue <- userdata.ProgressRecord{Content: rec.content, Seconds: seconds, Duration: duration}:
	default:
		metrics.RecordProgressWrite("dropped")
		rec.logger.Debug("progress queue full, dropping remote write")
	}
}

func (rec *Recorder) writeLoop() {
	defer close(rec.done)
	for {
		select {
		case <-rec.ctx.Done():
			return
		case p, ok := <-rec.queue:
			if !ok {
				return
			}
			rec.write(p)
		}
	}
}

func (rec *Recorder) write(p userdata.ProgressRecord) {
	ctx, cancel := context.WithTimeout(rec.ctx, rec.r.cfg.RemoteTimeout)
	defer cancel()

	completed, err := rec.r.remote.SaveProgress(ctx, rec.token, p)
	if err != nil {
		metrics.RecordProgressWrite("error")
		rec.logger.Debug("failed to save remote progress", "error", err)
		return
	}
	metrics.RecordProgressWrite("ok")
	if completed {
		rec.logger.Debug("content marked completed", "position", p.Seconds)
	}
}

// Close stops the writer. Pending remote writes are abandoned.
func (rec *Recorder) Close() {
	rec.mu.Lock()
	if rec.closed {
		rec.mu.Unlock()
		return
	}
	rec.closed = true
	rec.mu.Unlock()

	rec.cancel()
	<-rec.done
}
