package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/alorle/iptv-player/internal/progress"
	"github.com/alorle/iptv-player/internal/userdata"
)

func TestRecorder_ThrottlesRemoteWrites(t *testing.T) {
	cache := newMemoryCache()
	saved := make(chan userdata.ProgressRecord, 10)
	remote := &mockProgressStore{
		saveProgressFunc: func(ctx context.Context, token string, rec userdata.ProgressRecord) (bool, error) {
			if token != "tok" {
				t.Errorf("SaveProgress() token = %q, want tok", token)
			}
			saved <- rec
			return false, nil
		},
	}

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := progress.NewReconciler(cache, remote, progress.DefaultConfig(), nil).
		WithClock(func() time.Time { return now })

	rec := r.NewRecorder(context.Background(), progress.RecorderTarget{
		ProfileToken: "tok",
		EntryID:      "e1",
		Content:      userdata.ContentRef{URL: "http://x/movie/1"},
	})
	defer rec.Close()

	rec.Record(5, 100)
	now = now.Add(5 * time.Second)
	rec.Record(6, 100)
	now = now.Add(5 * time.Second)
	rec.Record(20, 100)

	var got []float64
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case p := <-saved:
			got = append(got, p.Seconds)
		case <-timeout:
			t.Fatalf("timed out waiting for remote writes, got %v", got)
		}
	}
	if got[0] != 5 || got[1] != 20 {
		t.Errorf("remote writes = %v, want [5 20]", got)
	}

	select {
	case p := <-saved:
		t.Errorf("unexpected extra remote write at %v", p.Seconds)
	case <-time.After(50 * time.Millisecond):
	}

	if v, _, _ := cache.Get(progress.LocalKey("e1")); v != "20" {
		t.Errorf("local progress = %q, want 20", v)
	}
}

func TestRecorder_LocalOnly(t *testing.T) {
	cache := newMemoryCache()
	remote := &mockProgressStore{
		saveProgressFunc: func(ctx context.Context, token string, rec userdata.ProgressRecord) (bool, error) {
			t.Error("remote must not be written without a token")
			return false, nil
		},
	}
	r := progress.NewReconciler(cache, remote, progress.DefaultConfig(), nil)

	rec := r.NewRecorder(context.Background(), progress.RecorderTarget{EntryID: "e2"})
	rec.Record(0, 100)
	if _, found, _ := cache.Get(progress.LocalKey("e2")); found {
		t.Error("zero position must not be stored")
	}
	rec.Record(42.5, 0)
	rec.Close()
	rec.Record(50, 100)

	if v, _, _ := cache.Get(progress.LocalKey("e2")); v != "42.5" {
		t.Errorf("local progress = %q, want 42.5", v)
	}
}
