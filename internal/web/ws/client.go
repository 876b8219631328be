package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mcoot/paintergame/internal/services/session"
)

// Client is one WebSocket connection. It implements session.Conn.
type Client struct {
	conn    *websocket.Conn
	config  Config
	logger  *slog.Logger
	limiter *rate.Limiter

	send    chan []byte
	closing chan struct{}
	once    sync.Once
	reason  string
}

var _ session.Conn = (*Client)(nil)

func newClient(conn *websocket.Conn, config Config, logger *slog.Logger) *Client {
	limit := rate.Inf
	if config.InboundRate > 0 {
		limit = rate.Limit(config.InboundRate)
	}
	return &Client{
		conn:    conn,
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(limit, max(config.InboundBurst, 1)),
		send:    make(chan []byte, config.SendBufferSize),
		closing: make(chan struct{}),
	}
}

// Send queues a frame for the write pump. A full buffer drops the frame.
func (c *Client) Send(msg []byte) bool {
	select {
	case <-c.closing:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close asks the write pump to flush, send a normal-closure frame carrying reason and hang up
func (c *Client) Close(reason string) {
	c.once.Do(func() {
		c.reason = reason
		close(c.closing)
	})
}

// readHandlers are the callbacks of the read pump
type readHandlers struct {
	onMessage func([]byte)
	onLimited func()
	onPong    func()
}

// readPump feeds inbound frames to its handlers until the connection fails
func (c *Client) readPump(ctx context.Context, h readHandlers) {
	defer c.Close("")

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		h.onPong()
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		if !c.limiter.Allow() {
			h.onLimited()
			continue
		}
		h.onMessage(raw)
	}
}

// writePump drains the send buffer and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closing:
			c.flush()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, c.reason))
			return
		}
	}
}

// flush writes whatever is still buffered
func (c *Client) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
	return c.conn.WriteMessage(messageType, data)
}
