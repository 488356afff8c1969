package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const hubBufferSize = 64

// ErrHubClosed is returned by Subscribe once the hub has been closed.
var ErrHubClosed = errors.New("notification hub closed")

// NotificationKind tells subscribers what changed.
type NotificationKind int

const (
	NotifyState NotificationKind = iota
	NotifyPosition
	NotifyError
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyState:
		return "state"
	case NotifyPosition:
		return "position"
	case NotifyError:
		return "error"
	default:
		return fmt.Sprintf("NotificationKind(%d)", int(k))
	}
}

// Notification is one observable change of a session.
type Notification struct {
	Kind      NotificationKind
	SessionID string
	EntryID   string
	Snapshot  Snapshot
	Message   string
	At        time.Time
}

type hubClient struct {
	notes chan Notification
	id    string
}

// Hub fans session notifications out to subscribers. Each subscriber gets its
// own buffered queue, so delivery order matches publish order. Subscribers
// that fall behind are dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*hubClient
	closed  bool
	logger  *slog.Logger
}

// NewHub creates a Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]*hubClient),
		logger:  logger,
	}
}

// Publish delivers n to every subscriber without blocking.
func (h *Hub) Publish(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for id, client := range h.clients {
		select {
		case client.notes <- n:
		default:
			h.logger.Warn("dropping slow subscriber", "subscriber_id", id)
			close(client.notes)
			delete(h.clients, id)
		}
	}
}

// Subscribe registers a subscriber and blocks, calling deliver for each
// notification, until ctx is cancelled, the hub is closed, the subscriber is
// dropped or deliver returns an error.
func (h *Hub) Subscribe(ctx context.Context, id string, deliver func(Notification) error) error {
	client := &hubClient{
		notes: make(chan Notification, hubBufferSize),
		id:    id,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	if old, ok := h.clients[id]; ok {
		close(old.notes)
	}
	h.clients[id] = client
	h.mu.Unlock()

	defer h.unsubscribe(client)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-client.notes:
			if !ok {
				return nil
			}
			if err := deliver(n); err != nil {
				return err
			}
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, client := range h.clients {
		close(client.notes)
		delete(h.clients, id)
	}
}

// unsubscribe removes a client unless it was already replaced or dropped.
func (h *Hub) unsubscribe(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
	}
}
