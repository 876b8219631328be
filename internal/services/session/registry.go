package session

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/paintergame/internal/dependencies/clock"
	"github.com/mcoot/paintergame/internal/dependencies/random"
	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/protocol"
	"github.com/mcoot/paintergame/internal/storage"
)

// DefaultHandshakeTimeout is how long a new connection may take to send its display name
const DefaultHandshakeTimeout = 10 * time.Second

var (
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
	nonAlphanumPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// Registry tracks live sessions and owns display-name identity
type Registry struct {
	storage          storage.Storage
	clock            clock.Clock
	random           random.Random
	logger           *slog.Logger
	handshakeTimeout time.Duration

	mu       sync.RWMutex
	sessions map[model.SessionID]*Session
}

// NewRegistry creates a new session Registry
func NewRegistry(
	storage storage.Storage,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	handshakeTimeout time.Duration,
) *Registry {
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	return &Registry{
		storage:          storage,
		clock:            clock,
		random:           random,
		logger:           logger.With(slog.String("component", "session")),
		handshakeTimeout: handshakeTimeout,
		sessions:         make(map[model.SessionID]*Session),
	}
}

// Register creates a session for a new connection and starts its handshake grace timer
func (r *Registry) Register(conn Conn) *Session {
	id := model.SessionID(r.random.UUID())
	s := &Session{
		ID:          id,
		ConnectedAt: r.clock.Now(),
		conn:        conn,
		logger:      r.logger.With(slog.String("session_id", string(id))),
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	s.mu.Lock()
	s.graceTimer = r.clock.AfterFunc(r.handshakeTimeout, func() { r.expire(s) })
	s.mu.Unlock()

	s.logger.Debug("session registered")
	return s
}

// expire closes a session that never completed its handshake
func (r *Registry) expire(s *Session) {
	s.mu.Lock()
	if s.displayName != "" || s.closed {
		s.mu.Unlock()
		return
	}
	s.timedOut = true
	s.mu.Unlock()

	s.logger.Info("handshake timed out")
	s.Close(protocol.ReasonDisplayNameTimeout)
}

// SetDisplayName sanitizes and claims a display name for s, then acknowledges it.
// Invalid, unavailable and late names are fatal for the connection; the caller closes it.
func (r *Registry) SetDisplayName(ctx context.Context, s *Session, raw string) error {
	s.mu.RLock()
	already, timedOut := s.displayName != "", s.timedOut
	s.mu.RUnlock()
	if already {
		return model.ErrDisplayNameUnmodifiable
	}
	if timedOut {
		return model.ErrHandshakeTimeout
	}

	name, err := SanitizeDisplayName(raw)
	if err != nil {
		return err
	}

	ok, err := r.storage.ClaimDisplayName(ctx, name, s.ID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrDisplayNameUnavailable
	}

	s.mu.Lock()
	if s.timedOut || s.displayName != "" {
		s.mu.Unlock()
		if err := r.storage.ReleaseDisplayName(ctx, name, s.ID); err != nil {
			s.logger.Error("failed to release display name",
				slog.String("display_name", name),
				slog.String("error", err.Error()),
			)
		}
		if s.timedOut {
			return model.ErrHandshakeTimeout
		}
		return model.ErrDisplayNameUnmodifiable
	}
	s.displayName = name
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	s.mu.Unlock()

	s.logger.Info("display name accepted", slog.String("display_name", name))
	s.Send(protocol.TypeConnected, protocol.ConnectedPayload{DisplayName: name})
	return nil
}

// Unregister forgets a disconnected session and releases its display name
func (r *Registry) Unregister(ctx context.Context, s *Session) {
	r.mu.Lock()
	_, live := r.sessions[s.ID]
	delete(r.sessions, s.ID)
	r.mu.Unlock()
	if !live {
		return
	}

	s.mu.Lock()
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	name := s.displayName
	s.closed = true
	s.mu.Unlock()

	if name != "" {
		if err := r.storage.ReleaseDisplayName(ctx, name, s.ID); err != nil {
			s.logger.Error("failed to release display name",
				slog.String("display_name", name),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logger.Debug("session unregistered")
}

// KeepAlive extends the display-name claim of a live session.
// A claim that lapsed is taken again; if another session took it meanwhile the connection is closed.
func (r *Registry) KeepAlive(ctx context.Context, s *Session) {
	name := s.DisplayName()
	if name == "" {
		return
	}

	held, err := r.storage.RefreshDisplayName(ctx, name, s.ID)
	if err != nil {
		s.logger.Warn("failed to refresh display name",
			slog.String("display_name", name),
			slog.String("error", err.Error()),
		)
		return
	}
	if held {
		return
	}

	ok, err := r.storage.ClaimDisplayName(ctx, name, s.ID)
	if err != nil {
		s.logger.Warn("failed to reclaim display name",
			slog.String("display_name", name),
			slog.String("error", err.Error()),
		)
		return
	}
	if !ok {
		s.logger.Warn("display name claimed by another session", slog.String("display_name", name))
		s.Close(protocol.ReasonDisplayNameUnavailable)
		return
	}
	s.logger.Info("display name reclaimed", slog.String("display_name", name))
}

// Shutdown closes every live session and releases its display name
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.RLock()
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.RUnlock()

	for _, s := range live {
		s.Close(protocol.ReasonServerShutdown)
		r.Unregister(ctx, s)
	}
	r.logger.Info("sessions shut down", slog.Int("count", len(live)))
}

// Get returns a live session by ID
func (r *Registry) Get(id model.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SanitizeDisplayName trims, strips tag-like substrings and then every non-alphanumeric character
func SanitizeDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	name = tagPattern.ReplaceAllString(name, "")
	name = nonAlphanumPattern.ReplaceAllString(name, "")
	if name == "" || len(name) > model.DisplayNameMaxLength {
		return "", model.ErrDisplayNameInvalid
	}
	return name, nil
}
