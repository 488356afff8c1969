package stream_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/alorle/iptv-player/internal/stream"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want stream.FailureClass
	}{
		{name: "nil", err: nil, want: stream.FailureNone},
		{name: "network", err: stream.StatusError("http://x", http.StatusNotFound), want: stream.FailureNetwork},
		{name: "wrapped network", err: fmt.Errorf("attach: %w", stream.NewNetworkError("http://x", errors.New("boom"))), want: stream.FailureNetwork},
		{name: "deadline", err: context.DeadlineExceeded, want: stream.FailureNetwork},
		{name: "decode", err: fmt.Errorf("segment: %w", stream.ErrMediaDecode), want: stream.FailureMediaDecode},
		{name: "unsupported", err: &stream.UnsupportedFormatError{URL: "http://x", ContentType: "text/html"}, want: stream.FailureUnsupported},
		{name: "anything else", err: errors.New("weird"), want: stream.FailureUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stream.Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNetworkReasons(t *testing.T) {
	if r := stream.StatusError("http://x", http.StatusForbidden).Reason; r != stream.ReasonCORS {
		t.Errorf("403 reason = %v, want %v", r, stream.ReasonCORS)
	}
	if r := stream.StatusError("http://x", http.StatusBadGateway).Reason; r != stream.ReasonRefused {
		t.Errorf("502 reason = %v, want %v", r, stream.ReasonRefused)
	}
	err := stream.NewNetworkError("http://x", fmt.Errorf("dial: %w", context.DeadlineExceeded))
	if !err.Timeout() {
		t.Error("deadline should be reported as timeout")
	}
}
