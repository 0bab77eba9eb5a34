package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send control frames, so inbound messages stay small.
	maxMessageSize = 4096

	sendBuffer = 64
)

var dropNotice = []byte(`{"type":"` + EventMessagesDrop + `","reason":"buffer_full"}`)

// WSHub is the part of a hub a client reports back to.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one websocket subscriber of a content thread.
type Client struct {
	Hub WSHub

	// Conn is nil for clients registered without a socket (tests, internal taps).
	Conn *websocket.Conn

	// Send buffers outbound frames for WritePump.
	Send chan []byte

	ContentID uint
	UserID    uint
}

// NewClient creates a Client with a buffered send queue.
func NewClient(hub WSHub, conn *websocket.Conn, contentID, userID uint) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		ContentID: contentID,
		UserID:    userID,
		Send:      make(chan []byte, sendBuffer),
	}
}

func (c *Client) room() string {
	return strconv.FormatUint(uint64(c.ContentID), 10)
}

// ReadPump drains control frames until the peer goes away, then unregisters.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("thread websocket read failed",
					slog.Uint64("user_id", uint64(c.UserID)),
					slog.String("room_id", c.room()),
					slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump forwards queued frames to the peer and keeps the connection alive
// with pings. It returns when Send is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. A full buffer drops the message and
// tries to tell the subscriber so it can re-fetch the thread.
func (c *Client) TrySend(message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
		return true
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
	middleware.Logger.WarnContext(context.Background(), "thread subscriber buffer full, dropped message",
		slog.Uint64("user_id", uint64(c.UserID)),
		slog.String("room_id", c.room()))

	select {
	case c.Send <- dropNotice:
	default:
	}
	return false
}
