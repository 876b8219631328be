package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/paintergame/internal/dependencies/mocks"
	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/protocol"
	"github.com/mcoot/paintergame/internal/storage/memory"
	"github.com/mcoot/paintergame/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.registry = NewRegistry(s.storage, s.clock, s.random, testutil.NopLogger(), 10*time.Second)
	s.ctx = context.Background()
}

func (s *RegistrySuite) TestRegisterAssignsIDWithoutName() {
	conn := testutil.NewRecordingConn()

	sess := s.registry.Register(conn)

	s.Equal(model.SessionID("00000000-0000-4000-8000-000000000001"), sess.ID)
	s.False(sess.HasDisplayName())
	s.Empty(sess.LobbyID())
	s.Equal(1, s.registry.Count())

	got, ok := s.registry.Get(sess.ID)
	s.True(ok)
	s.Same(sess, got)
}

func (s *RegistrySuite) TestSetDisplayNameAcknowledges() {
	conn := testutil.NewRecordingConn()
	sess := s.registry.Register(conn)

	err := s.registry.SetDisplayName(s.ctx, sess, "  alice ")
	s.Require().NoError(err)

	s.Equal("alice", sess.DisplayName())
	var ack protocol.ConnectedPayload
	s.True(conn.LastData(protocol.TypeConnected, &ack))
	s.Equal("alice", ack.DisplayName)
}

func (s *RegistrySuite) TestSetDisplayNameTwiceIsSoftFailure() {
	sess := s.registry.Register(testutil.NewRecordingConn())
	s.Require().NoError(s.registry.SetDisplayName(s.ctx, sess, "alice"))

	err := s.registry.SetDisplayName(s.ctx, sess, "bob")

	s.ErrorIs(err, model.ErrDisplayNameUnmodifiable)
	s.Equal("alice", sess.DisplayName())
}

func (s *RegistrySuite) TestSetDisplayNameRejectsInvalid() {
	sess := s.registry.Register(testutil.NewRecordingConn())

	s.ErrorIs(s.registry.SetDisplayName(s.ctx, sess, "<b></b> !!"), model.ErrDisplayNameInvalid)
	s.ErrorIs(s.registry.SetDisplayName(s.ctx, sess, "abcdefghijklmnopqrstuvwxyz"), model.ErrDisplayNameInvalid)
	s.False(sess.HasDisplayName())
}

func (s *RegistrySuite) TestSetDisplayNameRejectsTakenName() {
	first := s.registry.Register(testutil.NewRecordingConn())
	second := s.registry.Register(testutil.NewRecordingConn())
	s.Require().NoError(s.registry.SetDisplayName(s.ctx, first, "alice"))

	err := s.registry.SetDisplayName(s.ctx, second, "<i>alice</i>")

	s.ErrorIs(err, model.ErrDisplayNameUnavailable)
}

func (s *RegistrySuite) TestUnregisterReleasesName() {
	first := s.registry.Register(testutil.NewRecordingConn())
	s.Require().NoError(s.registry.SetDisplayName(s.ctx, first, "alice"))

	s.registry.Unregister(s.ctx, first)
	s.Equal(0, s.registry.Count())

	second := s.registry.Register(testutil.NewRecordingConn())
	s.NoError(s.registry.SetDisplayName(s.ctx, second, "alice"))
}

func (s *RegistrySuite) TestHandshakeTimeoutClosesConnection() {
	conn := testutil.NewRecordingConn()
	sess := s.registry.Register(conn)

	s.clock.Advance(10 * time.Second)

	closed, reason := conn.Closed()
	s.True(closed)
	s.Equal(protocol.ReasonDisplayNameTimeout, reason)
	s.ErrorIs(s.registry.SetDisplayName(s.ctx, sess, "alice"), model.ErrHandshakeTimeout)
}

func (s *RegistrySuite) TestHandshakeTimerStopsOnceNamed() {
	conn := testutil.NewRecordingConn()
	sess := s.registry.Register(conn)
	s.Require().NoError(s.registry.SetDisplayName(s.ctx, sess, "alice"))

	s.Equal(0, s.clock.PendingTimers())
	s.clock.Advance(time.Minute)

	closed, _ := conn.Closed()
	s.False(closed)
}

func (s *RegistrySuite) TestUnregisterStopsHandshakeTimer() {
	sess := s.registry.Register(testutil.NewRecordingConn())

	s.registry.Unregister(s.ctx, sess)

	s.Equal(0, s.clock.PendingTimers())
}

func (s *RegistrySuite) TestSessionLobbyTracking() {
	sess := s.registry.Register(testutil.NewRecordingConn())

	sess.SetLobby("ABC234")
	s.Equal(model.LobbyID("ABC234"), sess.LobbyID())

	sess.ClearLobby("OTHER2")
	s.Equal(model.LobbyID("ABC234"), sess.LobbyID())

	sess.ClearLobby("ABC234")
	s.Empty(sess.LobbyID())
}

func (s *RegistrySuite) TestFailSendsReason() {
	conn := testutil.NewRecordingConn()
	sess := s.registry.Register(conn)

	sess.Fail(model.ErrNotOwner)

	var fail protocol.FailPayload
	s.True(conn.LastData(protocol.TypeFail, &fail))
	s.Equal(protocol.ReasonLobbyNotOwner, fail.Error)
}

// slowClaimStorage lets the handshake deadline pass while a claim is in flight
type slowClaimStorage struct {
	*memory.Storage
	clock *mocks.MockClock
}

func (s *slowClaimStorage) ClaimDisplayName(ctx context.Context, name string, owner model.SessionID) (bool, error) {
	ok, err := s.Storage.ClaimDisplayName(ctx, name, owner)
	s.clock.Advance(10 * time.Second)
	return ok, err
}

func (s *slowClaimStorage) ReleaseDisplayName(context.Context, string, model.SessionID) error {
	return errors.New("connection reset")
}

func (s *RegistrySuite) TestLateClaimIsReleasedAndFailuresLogged() {
	var logs bytes.Buffer
	store := &slowClaimStorage{Storage: s.storage, clock: s.clock}
	registry := NewRegistry(store, s.clock, s.random, slog.New(slog.NewJSONHandler(&logs, nil)), 10*time.Second)

	conn := testutil.NewRecordingConn()
	sess := registry.Register(conn)

	s.ErrorIs(registry.SetDisplayName(s.ctx, sess, "alice"), model.ErrHandshakeTimeout)
	s.Empty(sess.DisplayName())
	s.Contains(logs.String(), `"msg":"failed to release display name"`)
	s.Contains(logs.String(), "connection reset")
}

func (s *RegistrySuite) TestShutdownClosesAndReleasesEverySession() {
	aliceConn := testutil.NewRecordingConn()
	alice := s.registry.Register(aliceConn)
	s.Require().NoError(s.registry.SetDisplayName(s.ctx, alice, "alice"))
	pendingConn := testutil.NewRecordingConn()
	s.registry.Register(pendingConn)

	s.registry.Shutdown(s.ctx)

	s.Zero(s.registry.Count())
	s.Zero(s.clock.PendingTimers())
	for _, conn := range []*testutil.RecordingConn{aliceConn, pendingConn} {
		closed, reason := conn.Closed()
		s.True(closed)
		s.Equal(protocol.ReasonServerShutdown, reason)
	}
	ok, err := s.storage.ClaimDisplayName(s.ctx, "alice", "next")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RegistrySuite) TestUnregisterTwiceReleasesOnce() {
	alice := s.registry.Register(testutil.NewRecordingConn())
	s.Require().NoError(s.registry.SetDisplayName(s.ctx, alice, "alice"))
	s.registry.Unregister(s.ctx, alice)

	next := s.registry.Register(testutil.NewRecordingConn())
	s.Require().NoError(s.registry.SetDisplayName(s.ctx, next, "alice"))

	s.registry.Unregister(s.ctx, alice)
	held, err := s.storage.RefreshDisplayName(s.ctx, "alice", next.ID)
	s.Require().NoError(err)
	s.True(held)
}

func (s *RegistrySuite) TestKeepAliveWithoutNameIsNoop() {
	sess := s.registry.Register(testutil.NewRecordingConn())
	s.registry.KeepAlive(s.ctx, sess)
	s.Equal(1, s.registry.Count())
}

func TestSanitizeDisplayName(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "alice", want: "alice"},
		{raw: "  Bob42  ", want: "Bob42"},
		{raw: "<script>alert(1)</script>eve", want: "alert1eve"},
		{raw: "<b>carol</b>", want: "carol"},
		{raw: "<b>bob</b>!!", want: "bob"},
		{raw: "#<i>zoe</i>_", want: "zoe"},
		{raw: "b<o>b#1", want: "bb1"},
		{raw: "<<x>>y$", want: "y"},
		{raw: "a<b", want: "ab"},
		{raw: "<a!b>c", want: "c"},
		{raw: "x<y z>1", want: "x1"},
		{raw: "d@n!el", want: "dnel"},
		{raw: "émile", want: "mile"},
		{raw: "", wantErr: true},
		{raw: "<><>", wantErr: true},
		{raw: "!!!", wantErr: true},
		{raw: "abcdefghijklmnopqrstuvwx", want: "abcdefghijklmnopqrstuvwx"},
		{raw: "abcdefghijklmnopqrstuvwxy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := SanitizeDisplayName(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrDisplayNameInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
