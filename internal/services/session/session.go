package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/paintergame/internal/dependencies/clock"
	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/protocol"
)

// Conn is the transport handle of a session
type Conn interface {
	// Send queues a frame; false means it was dropped
	Send(msg []byte) bool
	// Close terminates the connection with a normal closure carrying reason
	Close(reason string)
}

// Session is one connected client
type Session struct {
	ID          model.SessionID
	ConnectedAt time.Time

	conn   Conn
	logger *slog.Logger

	mu          sync.RWMutex
	displayName string
	lobbyID     model.LobbyID
	graceTimer  clock.Timer
	timedOut    bool
	closed      bool
}

// DisplayName returns the accepted display name, empty until the handshake completes
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName
}

// HasDisplayName reports whether the handshake has completed
func (s *Session) HasDisplayName() bool {
	return s.DisplayName() != ""
}

// Member returns the identity lobbies and games see
func (s *Session) Member() model.Member {
	return model.Member{ID: s.ID, DisplayName: s.DisplayName()}
}

// LobbyID returns the lobby the session is in, empty if none
func (s *Session) LobbyID() model.LobbyID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lobbyID
}

// SetLobby records the lobby the session is in
func (s *Session) SetLobby(id model.LobbyID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobbyID = id
}

// ClearLobby forgets the lobby if it is still id
func (s *Session) ClearLobby(id model.LobbyID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lobbyID == id {
		s.lobbyID = ""
	}
}

// Send encodes and queues an outbound message
func (s *Session) Send(msgType string, data any) {
	raw, err := protocol.Encode(msgType, data)
	if err != nil {
		s.logger.Error("failed to encode message",
			slog.String("type", msgType),
			slog.String("error", err.Error()),
		)
		return
	}
	s.SendRaw(raw)
}

// SendRaw queues an already encoded frame
func (s *Session) SendRaw(raw []byte) {
	if !s.conn.Send(raw) {
		s.logger.Warn("dropped outbound message")
	}
}

// Fail reports a rejected message to the client
func (s *Session) Fail(err error) {
	s.Send(protocol.TypeFail, protocol.FailPayload{
		Error:   protocol.ReasonFor(err),
		Message: err.Error(),
	})
}

// Close terminates the connection with reason
func (s *Session) Close(reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.logger.Info("closing session", slog.String("reason", reason))
	s.conn.Close(reason)
}
