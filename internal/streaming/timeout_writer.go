package streaming

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrWriteTimeout indicates a write operation timed out.
	ErrWriteTimeout = errors.New("write timeout")
)

// TimeoutWriter wraps an io.Writer and enforces a write deadline on each
// write. When dst is an http.ResponseWriter the deadline is set through
// http.ResponseController and every write is flushed, so relayed media and
// event streams reach the client without buffering.
type TimeoutWriter struct {
	dst          io.Writer
	timeout      time.Duration
	logger       *slog.Logger
	client       string
	bytesWritten int64
}

// NewTimeoutWriter creates a new timeout-aware writer. client labels the
// consumer in log lines.
func NewTimeoutWriter(dst io.Writer, timeout time.Duration, logger *slog.Logger, client string) *TimeoutWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimeoutWriter{
		dst:     dst,
		timeout: timeout,
		logger:  logger,
		client:  client,
	}
}

// Write writes data to the underlying writer with a timeout.
// If the write doesn't complete within the timeout, it returns ErrWriteTimeout.
func (tw *TimeoutWriter) Write(p []byte) (n int, err error) {
	rw, isHTTP := tw.dst.(http.ResponseWriter)
	if isHTTP && tw.timeout > 0 {
		rc := http.NewResponseController(rw)
		if err := rc.SetWriteDeadline(time.Now().Add(tw.timeout)); err != nil {
			tw.logger.Debug("failed to set write deadline", "client", tw.client, "error", err)
		}
	}

	n, err = tw.dst.Write(p)
	tw.bytesWritten += int64(n)

	if err != nil {
		if isTimeoutError(err) {
			tw.logger.Warn("slow client detected - write timeout",
				"client", tw.client,
				"timeout", tw.timeout,
				"bytes_written", tw.bytesWritten,
				"error", err)
			return n, fmt.Errorf("%w: %v", ErrWriteTimeout, err)
		}
		return n, err
	}

	if isHTTP {
		if err := http.NewResponseController(rw).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return n, err
		}
	}
	return n, nil
}

// BytesWritten returns the total number of bytes written successfully.
func (tw *TimeoutWriter) BytesWritten() int64 {
	return tw.bytesWritten
}

// isTimeoutError checks if an error is a timeout error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline")
}
