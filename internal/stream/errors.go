package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// ErrMediaDecode reports that the media was reached but could not be decoded.
var ErrMediaDecode = errors.New("media decode error")

// NetworkReason narrows down a NetworkError.
type NetworkReason string

const (
	ReasonTimeout NetworkReason = "timeout"
	ReasonRefused NetworkReason = "refused"
	ReasonCORS    NetworkReason = "cors"
)

// NetworkError is a failure to reach or read a stream or playlist.
type NetworkError struct {
	Reason NetworkReason
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("network error (%s) fetching %s: status %d", e.Reason, e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("network error (%s) fetching %s: %v", e.Reason, e.URL, e.Err)
	default:
		return fmt.Sprintf("network error (%s) fetching %s", e.Reason, e.URL)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the error was caused by a deadline.
func (e *NetworkError) Timeout() bool { return e.Reason == ReasonTimeout }

// NewNetworkError wraps a transport error, deriving the reason from it.
func NewNetworkError(url string, err error) *NetworkError {
	reason := ReasonRefused
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		reason = ReasonTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		reason = ReasonRefused
	}
	return &NetworkError{Reason: reason, URL: url, Err: err}
}

// StatusError converts an unexpected HTTP status into a NetworkError.
// 401 and 403 are reported as access-policy rejections.
func StatusError(url string, status int) *NetworkError {
	reason := ReasonRefused
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		reason = ReasonCORS
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		reason = ReasonTimeout
	}
	return &NetworkError{Reason: reason, URL: url, Status: status}
}

// UnsupportedFormatError reports content the selected strategy cannot play.
type UnsupportedFormatError struct {
	URL         string
	ContentType string
}

func (e *UnsupportedFormatError) Error() string {
	if e.ContentType == "" {
		return fmt.Sprintf("unsupported stream format at %s", e.URL)
	}
	return fmt.Sprintf("unsupported stream format %q at %s", e.ContentType, e.URL)
}

// FailureClass is the coarse classification the playback engine reacts to.
type FailureClass int

const (
	FailureNone FailureClass = iota
	FailureNetwork
	FailureMediaDecode
	FailureUnsupported
)

func (c FailureClass) String() string {
	switch c {
	case FailureNone:
		return "none"
	case FailureNetwork:
		return "network"
	case FailureMediaDecode:
		return "media_decode"
	case FailureUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("FailureClass(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c FailureClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Classify maps an error onto a FailureClass. Errors that are neither network
// nor decode failures are treated as unsupported.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureNone
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return FailureNetwork
	}
	if errors.Is(err, ErrMediaDecode) {
		return FailureMediaDecode
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureNetwork
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return FailureNetwork
	}
	return FailureUnsupported
}
