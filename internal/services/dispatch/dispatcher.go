package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/protocol"
	"github.com/mcoot/paintergame/internal/services/lobby"
	"github.com/mcoot/paintergame/internal/services/session"
)

type handlerFunc func(ctx context.Context, s *session.Session, env protocol.Envelope) error

// Dispatcher authorizes inbound messages and routes them to the session registry or lobbies
type Dispatcher struct {
	registry *session.Registry
	lobbies  lobby.ControllerInterface
	logger   *slog.Logger
	handlers map[string]handlerFunc
}

// New creates a new Dispatcher
func New(registry *session.Registry, lobbies lobby.ControllerInterface, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		lobbies:  lobbies,
		logger:   logger.With(slog.String("component", "dispatch")),
	}
	d.handlers = map[string]handlerFunc{
		protocol.TypeDisplayName:    d.handleDisplayName,
		protocol.TypeLobbyCreate:    d.handleLobbyCreate,
		protocol.TypeLobbyJoin:      d.handleLobbyJoin,
		protocol.TypeLobbyExit:      d.handleLobbyExit,
		protocol.TypeGameSettings:   d.handleGameSettings,
		protocol.TypeGameStart:      d.handleGameStart,
		protocol.TypeSelectWord:     d.handleSelectWord,
		protocol.TypeGuessWord:      d.handleGuessWord,
		protocol.TypeStroke:         d.handleStroke,
		protocol.TypeStrokeEnd:      d.handleStroke,
		protocol.TypeStrokeClear:    d.handleStroke,
		protocol.TypeStrokeSettings: d.handleStroke,
		protocol.TypePing:           d.handlePing,
	}
	return d
}

// Connect registers a new connection
func (d *Dispatcher) Connect(conn session.Conn) *session.Session {
	return d.registry.Register(conn)
}

// Dispatch runs one inbound frame through the protocol gates and its handler
func (d *Dispatcher) Dispatch(ctx context.Context, s *session.Session, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		d.Reject(s, "", err)
		return
	}
	if !s.HasDisplayName() && env.Type != protocol.TypeDisplayName {
		d.Reject(s, env.Type, model.ErrDisplayNameRequired)
		return
	}
	handler, ok := d.handlers[env.Type]
	if !ok || !protocol.IsInbound(env.Type) {
		d.Reject(s, env.Type, model.ErrUnknownMessageType)
		return
	}

	if err := handler(ctx, s, env); err != nil {
		d.Reject(s, env.Type, err)
	}
}

// Reject reports err to the session; identity violations close the connection
func (d *Dispatcher) Reject(s *session.Session, msgType string, err error) {
	reason := protocol.ReasonFor(err)
	d.logger.Debug("message rejected",
		slog.String("session_id", string(s.ID)),
		slog.String("type", msgType),
		slog.String("reason", reason),
	)
	if protocol.IsFatal(err) {
		s.Close(reason)
		return
	}
	if reason == protocol.ReasonUnspecified {
		d.logger.Error("unexpected error handling message",
			slog.String("session_id", string(s.ID)),
			slog.String("type", msgType),
			slog.String("error", err.Error()),
		)
	}
	s.Fail(err)
}

// Disconnect takes a closed session out of its lobby and releases its identity
func (d *Dispatcher) Disconnect(ctx context.Context, s *session.Session) {
	if id := s.LobbyID(); id != "" {
		if l, err := d.lobbies.Get(id); err == nil {
			err := l.Exit(ctx, s.ID)
			if err != nil && !errors.Is(err, model.ErrNotInLobby) && !errors.Is(err, model.ErrLobbyClosed) {
				d.logger.Error("failed to exit lobby on disconnect",
					slog.String("session_id", string(s.ID)),
					slog.String("lobby_id", string(id)),
					slog.String("error", err.Error()),
				)
			}
		}
		s.ClearLobby(id)
	}
	d.registry.Unregister(ctx, s)
}

// KeepAlive refreshes what a live session holds; the transport calls it on every pong
func (d *Dispatcher) KeepAlive(ctx context.Context, s *session.Session) {
	d.registry.KeepAlive(ctx, s)
}

// currentLobby returns the live lobby s is in
func (d *Dispatcher) currentLobby(s *session.Session) (*lobby.Lobby, error) {
	id := s.LobbyID()
	if id == "" {
		return nil, model.ErrNotInLobby
	}
	l, err := d.lobbies.Get(id)
	if err != nil {
		s.ClearLobby(id)
		return nil, model.ErrNotInLobby
	}
	return l, nil
}

func (d *Dispatcher) handleDisplayName(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	if s.HasDisplayName() {
		return model.ErrDisplayNameUnmodifiable
	}
	var req protocol.DisplayNameRequest
	if err := env.DecodeData(&req); err != nil || req.DisplayName == nil {
		return model.ErrDisplayNameInvalid
	}
	return d.registry.SetDisplayName(ctx, s, *req.DisplayName)
}

func (d *Dispatcher) handlePing(ctx context.Context, s *session.Session, _ protocol.Envelope) error {
	d.KeepAlive(ctx, s)
	return nil
}

func (d *Dispatcher) handleLobbyCreate(ctx context.Context, s *session.Session, _ protocol.Envelope) error {
	if s.LobbyID() != "" {
		return model.ErrAlreadyInLobby
	}
	_, err := d.lobbies.Create(ctx, s)
	return err
}

func (d *Dispatcher) handleLobbyJoin(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	if s.LobbyID() != "" {
		return model.ErrAlreadyInLobby
	}
	var req protocol.LobbyJoinRequest
	if err := env.DecodeData(&req); err != nil {
		return err
	}
	id := model.LobbyID(strings.ToUpper(strings.TrimSpace(req.ID)))
	if id == "" {
		return model.ErrLobbyNotFound
	}
	_, err := d.lobbies.Join(ctx, id, s)
	return err
}

func (d *Dispatcher) handleLobbyExit(ctx context.Context, s *session.Session, _ protocol.Envelope) error {
	l, err := d.currentLobby(s)
	if err != nil {
		return err
	}
	return l.Exit(ctx, s.ID)
}

func (d *Dispatcher) handleGameSettings(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	l, err := d.currentLobby(s)
	if err != nil {
		return err
	}
	var req protocol.GameSettingsRequest
	if err := env.DecodeData(&req); err != nil {
		return err
	}
	return l.UpdateSettings(ctx, s.ID, req.Settings.ToUpdate())
}

func (d *Dispatcher) handleGameStart(ctx context.Context, s *session.Session, _ protocol.Envelope) error {
	l, err := d.currentLobby(s)
	if err != nil {
		return err
	}
	return l.StartGame(ctx, s.ID)
}

func (d *Dispatcher) handleSelectWord(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	l, err := d.currentLobby(s)
	if err != nil {
		return err
	}
	var req protocol.WordRequest
	if err := env.DecodeData(&req); err != nil {
		return err
	}
	return l.SelectWord(ctx, s.ID, req.Word)
}

func (d *Dispatcher) handleGuessWord(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	l, err := d.currentLobby(s)
	if err != nil {
		return err
	}
	var req protocol.WordRequest
	if err := env.DecodeData(&req); err != nil {
		return err
	}
	_, err = l.Guess(ctx, s.ID, req.Word)
	return err
}

func (d *Dispatcher) handleStroke(ctx context.Context, s *session.Session, env protocol.Envelope) error {
	l, err := d.currentLobby(s)
	if err != nil {
		return err
	}
	return l.Stroke(ctx, s.ID, env.Type, env.Data)
}
