package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/goccy/go-json"
	"github.com/gofiber/websocket/v2"
)

const (
	// Max subscribers on a single content thread.
	maxConnsPerRoom = 500
	// Max subscribers across the process.
	maxTotalConns = 10000
)

var (
	ErrRoomFull   = errors.New("thread subscriber limit reached")
	ErrServerFull = errors.New("server connection limit reached")
	ErrHubClosed  = errors.New("thread hub is shut down")
)

// ThreadHub maps content IDs to the websocket clients watching their threads.
type ThreadHub struct {
	mu         sync.RWMutex
	rooms      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool
	closeOnce  sync.Once
	notifier   *Notifier
	log        *observability.WSLogger
}

// NewThreadHub creates a hub. With an enabled notifier, events reach the hub
// through Redis so every instance sees them; otherwise Dispatch delivers locally.
func NewThreadHub(notifier *Notifier) *ThreadHub {
	return &ThreadHub{
		rooms:    make(map[uint]map[*Client]struct{}),
		notifier: notifier,
		log:      observability.NewWSLogger("thread hub"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *ThreadHub) Name() string { return "thread hub" }

// String implements fmt.Stringer for the supervisor.
func (h *ThreadHub) String() string { return h.Name() }

// Register subscribes conn to the thread of contentID.
func (h *ThreadHub) Register(contentID, userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}
	room, ok := h.rooms[contentID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[contentID] = room
	}
	if len(room) >= maxConnsPerRoom {
		return nil, ErrRoomFull
	}

	client := NewClient(h, conn, contentID, userID)
	room[client] = struct{}{}
	h.totalConns++
	observability.WebSocketRoomConnections.WithLabelValues(client.room()).Set(float64(len(room)))
	h.log.LogConnect(context.Background(), userID, client.room())
	return client, nil
}

// UnregisterClient removes client and closes its send queue. Safe to call twice.
func (h *ThreadHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.ContentID]
	if !ok {
		return
	}
	if _, exists := room[client]; !exists {
		return
	}
	delete(room, client)
	h.totalConns--
	close(client.Send)
	observability.WebSocketRoomConnections.WithLabelValues(client.room()).Set(float64(len(room)))
	if len(room) == 0 {
		delete(h.rooms, client.ContentID)
		observability.WebSocketRoomConnections.DeleteLabelValues(client.room())
	}
	h.log.LogDisconnect(context.Background(), client.UserID, client.room(), "unregistered")
}

// Subscribers returns the number of clients watching contentID.
func (h *ThreadHub) Subscribers(contentID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[contentID])
}

// Broadcast queues message for every subscriber of contentID and returns how
// many accepted it.
func (h *ThreadHub) Broadcast(contentID uint, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.rooms[contentID] {
		if c.TrySend(message) {
			delivered++
		}
	}
	return delivered
}

// Dispatch publishes event to every instance through Redis, falling back to
// local delivery when Redis is absent or the publish fails.
func (h *ThreadHub) Dispatch(ctx context.Context, event ThreadEvent) {
	if h.notifier.Enabled() {
		err := h.notifier.PublishThreadEvent(ctx, event)
		if err == nil {
			return
		}
		observability.LogAsyncOperationError(ctx, "publish_thread_event", err,
			map[string]interface{}{"content_id": event.ContentID, "type": event.Type})
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.Broadcast(event.ContentID, payload)
}

// StartWiring forwards every Redis thread message to local subscribers.
func (h *ThreadHub) StartWiring(ctx context.Context) error {
	return h.notifier.StartThreadSubscriber(ctx, func(channel, payload string) {
		var contentID uint
		if _, err := fmt.Sscanf(channel, "thread:content:%d", &contentID); err != nil {
			middleware.Logger.Warn("invalid thread channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(contentID, []byte(payload))
	})
}

// Serve wires the hub to Redis and holds until ctx is done, then shuts the
// hub down. It implements suture.Service.
func (h *ThreadHub) Serve(ctx context.Context) error {
	if err := h.StartWiring(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	_ = h.Shutdown(context.Background())
	return ctx.Err()
}

// Shutdown closes every subscriber queue, which makes each WritePump send a
// going-away frame, and rejects new registrations.
func (h *ThreadHub) Shutdown(_ context.Context) error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true
		for contentID, room := range h.rooms {
			for client := range room {
				close(client.Send)
			}
			observability.WebSocketRoomConnections.DeleteLabelValues(strconv.FormatUint(uint64(contentID), 10))
		}
		h.rooms = make(map[uint]map[*Client]struct{})
		h.totalConns = 0
	})
	return nil
}
