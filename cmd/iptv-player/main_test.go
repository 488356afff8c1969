package main

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/alorle/iptv-player/config"
	"github.com/alorle/iptv-player/fetcher"
	"github.com/alorle/iptv-player/internal/application"
	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/m3u"
	"github.com/alorle/iptv-player/internal/port/driven"
)

func TestPlaybackPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Playback.HLSMaxAttempts = 5
	cfg.Playback.SkipStep = 30

	policy := playbackPolicy(cfg)
	if policy.HLSMaxAttempts != 5 || policy.DirectMaxAttempts != 2 {
		t.Errorf("unexpected attempts: %+v", policy)
	}
	if policy.HLSBackoff != 2*time.Second || policy.DirectBackoff != time.Second {
		t.Errorf("unexpected backoff: %+v", policy)
	}
	if policy.SkipStep != 30 {
		t.Errorf("expected skip step 30, got %v", policy.SkipStep)
	}
	if policy.ProxyAvailable {
		t.Error("proxy availability is decided per session")
	}
}

func TestProgressConfig(t *testing.T) {
	cfg := config.Default()

	got := progressConfig(cfg)
	if got.EndMargin != 10 || got.SaveInterval != 10*time.Second || got.RemoteTimeout != 5*time.Second {
		t.Errorf("unexpected progress config: %+v", got)
	}
}

func TestRefreshLoop(t *testing.T) {
	var calls atomic.Int32
	source := &fetcher.MockFetcher{
		FetchPlaylistFunc: func(ctx context.Context, url string) (driven.PlaylistText, error) {
			calls.Add(1)
			return driven.PlaylistText{Body: "#EXTM3U\n#EXTINF:-1,Canal\nhttp://cdn.example/a.m3u8\n"}, nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	parser := m3u.NewParser(catalog.NewClassifier(nil), "")
	svc := application.NewCatalogService(source, parser, "http://panel/playlist", language.Spanish, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refreshLoop(ctx, svc, 10*time.Millisecond, logger)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected repeated refreshes, got %d", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop")
	}
	if !svc.Status().Loaded {
		t.Error("expected the catalog to be loaded")
	}
}
