package playback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alorle/iptv-player/internal/playback"
)

func TestHub_DeliversInOrder(t *testing.T) {
	hub := playback.NewHub(nil)

	received := make(chan float64, 10)
	done := make(chan error, 1)
	go func() {
		done <- hub.Subscribe(context.Background(), "a", func(n playback.Notification) error {
			received <- n.Snapshot.Position
			return nil
		})
	}()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, waitFor, 5*time.Millisecond)

	for i := 1; i <= 3; i++ {
		hub.Publish(playback.Notification{Kind: playback.NotifyPosition, Snapshot: playback.Snapshot{Position: float64(i)}})
	}
	for i := 1; i <= 3; i++ {
		select {
		case got := <-received:
			assert.Equal(t, float64(i), got)
		case <-time.After(waitFor):
			t.Fatal("timed out waiting for notification")
		}
	}

	hub.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Subscribe did not return after Close")
	}

	err := hub.Subscribe(context.Background(), "b", func(playback.Notification) error { return nil })
	assert.ErrorIs(t, err, playback.ErrHubClosed)
}

func TestHub_DeliverErrorEndsSubscription(t *testing.T) {
	hub := playback.NewHub(nil)
	defer hub.Close()

	boom := errors.New("client gone")
	done := make(chan error, 1)
	go func() {
		done <- hub.Subscribe(context.Background(), "a", func(playback.Notification) error { return boom })
	}()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, waitFor, 5*time.Millisecond)

	hub.Publish(playback.Notification{Kind: playback.NotifyState})
	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(waitFor):
		t.Fatal("Subscribe did not return")
	}
	assert.Equal(t, 0, hub.Subscribers())
}

func TestHub_ContextCancel(t *testing.T) {
	hub := playback.NewHub(nil)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.Subscribe(ctx, "a", func(playback.Notification) error { return nil })
	}()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, waitFor, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("Subscribe did not return")
	}
}
