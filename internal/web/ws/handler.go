package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/services/session"
)

const (
	// Time allowed to write a message to the peer
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	defaultPongWait = 60 * time.Second

	// Pings must be sent more often than pongs are awaited
	defaultPingPeriod = (defaultPongWait * 9) / 10

	defaultMaxMessageSize = 64 * 1024
	defaultSendBufferSize = 256
)

// Config tunes the WebSocket transport
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBufferSize int

	// InboundRate is the sustained messages per second a connection may send; zero disables throttling
	InboundRate  float64
	InboundBurst int
}

// DefaultConfig returns the transport defaults
func DefaultConfig() Config {
	return Config{
		WriteWait:      defaultWriteWait,
		PongWait:       defaultPongWait,
		PingPeriod:     defaultPingPeriod,
		MaxMessageSize: defaultMaxMessageSize,
		SendBufferSize: defaultSendBufferSize,
		InboundRate:    20,
		InboundBurst:   40,
	}
}

// Dispatcher is what the transport hands sessions and frames to
type Dispatcher interface {
	Connect(conn session.Conn) *session.Session
	Dispatch(ctx context.Context, s *session.Session, raw []byte)
	Reject(s *session.Session, msgType string, err error)
	Disconnect(ctx context.Context, s *session.Session)
	KeepAlive(ctx context.Context, s *session.Session)
}

// Handler upgrades HTTP requests to game connections
type Handler struct {
	dispatcher Dispatcher
	config     Config
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler
func NewHandler(dispatcher Dispatcher, config Config, logger *slog.Logger) *Handler {
	defaults := DefaultConfig()
	if config.WriteWait <= 0 {
		config.WriteWait = defaults.WriteWait
	}
	if config.PongWait <= 0 {
		config.PongWait = defaults.PongWait
	}
	if config.PingPeriod <= 0 || config.PingPeriod >= config.PongWait {
		config.PingPeriod = (config.PongWait * 9) / 10
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = defaults.SendBufferSize
	}

	return &Handler{
		dispatcher: dispatcher,
		config:     config,
		logger:     logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients are served from other origins
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP runs one connection until it closes
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(conn, h.config, h.logger)
	sess := h.dispatcher.Connect(client)
	client.logger = h.logger.With(slog.String("session_id", string(sess.ID)))
	client.logger.Info("websocket connected", slog.String("remote_addr", r.RemoteAddr))

	// The request context ends with ServeHTTP; connection work outlives it
	ctx := context.WithoutCancel(r.Context())

	go client.writePump()
	client.readPump(ctx, readHandlers{
		onMessage: func(raw []byte) { h.dispatcher.Dispatch(ctx, sess, raw) },
		onLimited: func() { h.dispatcher.Reject(sess, "", model.ErrRateLimited) },
		onPong:    func() { h.dispatcher.KeepAlive(ctx, sess) },
	})

	h.dispatcher.Disconnect(ctx, sess)
	client.logger.Info("websocket disconnected")
}
