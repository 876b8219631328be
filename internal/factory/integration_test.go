package factory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/paintergame/internal/api/response"
	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/protocol"
	"github.com/mcoot/paintergame/internal/services/game"
	"github.com/mcoot/paintergame/internal/services/session"
	redisstorage "github.com/mcoot/paintergame/internal/storage/redis"
	"github.com/mcoot/paintergame/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
	s.Require().NoError(s.app.LoadTestDictionary())
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Shutdown(s.ctx))
}

// Helpers

func (s *IntegrationSuite) connect(name string) (*session.Session, *testutil.RecordingConn) {
	conn := testutil.NewRecordingConn()
	sess := s.app.Dispatcher.Connect(conn)
	s.send(sess, protocol.TypeDisplayName, map[string]string{"displayName": name})
	s.Require().Equal([]string{protocol.TypeConnected}, conn.Types())
	conn.Reset()
	return sess, conn
}

func (s *IntegrationSuite) send(sess *session.Session, msgType string, data any) {
	frame := map[string]any{"type": msgType}
	if data != nil {
		frame["data"] = data
	}
	raw, err := json.Marshal(frame)
	s.Require().NoError(err)
	s.app.Dispatcher.Dispatch(s.ctx, sess, raw)
}

// advance moves the clock and waits for the lobby to handle the timers that fired
func (s *IntegrationSuite) advance(id model.LobbyID, d time.Duration) {
	s.app.MockClock.Advance(d)
	l, err := s.app.LobbyController.Get(id)
	s.Require().NoError(err)
	_, err = l.Info(s.ctx)
	s.Require().NoError(err)
}

func (s *IntegrationSuite) getJSON(path string, v any) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.app.Router.ServeHTTP(rec, req)
	if v != nil {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v))
	}
	return rec.Code
}

// Tests

func (s *IntegrationSuite) TestCompleteGameFlow() {
	alice, aliceConn := s.connect("alice")
	bob, bobConn := s.connect("bob")

	// Alice creates, bob joins with a lower-case code
	s.app.MockRandom.QueueString("PNT234")
	s.send(alice, protocol.TypeLobbyCreate, nil)
	s.Require().Equal(model.LobbyID("PNT234"), alice.LobbyID())
	s.send(bob, protocol.TypeLobbyJoin, map[string]string{"id": "pnt234"})
	s.Require().Equal(alice.LobbyID(), bob.LobbyID())

	var info protocol.LobbyInfoPayload
	s.Require().True(bobConn.LastData(protocol.TypeLobbyJoined, &info))
	s.Equal([]string{"alice", "bob"}, info.Users)
	s.Equal("alice", info.Owner)

	// One round, short turns, no hints
	s.send(alice, protocol.TypeGameSettings, map[string]any{
		"settings": map[string]any{"rounds": 1, "timer": 5000, "hintCount": 0},
	})
	s.send(alice, protocol.TypeGameStart, nil)
	s.Len(bobConn.OfType(protocol.TypeGameStarted), 1)

	var summary response.Lobby
	s.Equal(http.StatusOK, s.getJSON("/api/v1/lobbies/PNT234", &summary))
	s.True(summary.InGame)
	s.Equal([]string{"alice", "bob"}, summary.Members)

	// Alice paints first
	s.advance("PNT234", game.StartDelay)
	var sel protocol.SelectingPayload
	s.Require().True(aliceConn.LastData(protocol.TypeSelecting, &sel))
	s.Require().NotEmpty(sel.WordChoices)
	word := sel.WordChoices[0]
	s.send(alice, protocol.TypeSelectWord, map[string]string{"word": word})

	// Strokes reach the guesser only
	s.send(alice, protocol.TypeStroke, map[string]int{"x": 4, "y": 2})
	s.Len(bobConn.OfType(protocol.TypeStroke), 1)
	s.Empty(aliceConn.OfType(protocol.TypeStroke))

	s.send(bob, protocol.TypeGuessWord, map[string]string{"word": word})
	var correct protocol.CorrectGuessPayload
	s.Require().True(aliceConn.LastData(protocol.TypeCorrectGuess, &correct))
	s.Equal("bob", correct.Guesser)
	s.Equal(game.MaxPoints, correct.UserPoints["bob"])

	// Bob's turn times out with nobody guessing
	s.advance("PNT234", game.IntermissionDuration)
	s.advance("PNT234", game.SelectingDuration)
	s.advance("PNT234", 5*time.Second)
	s.advance("PNT234", game.IntermissionDuration)

	var ended protocol.EndedPayload
	s.Require().True(bobConn.LastData(protocol.TypeEnded, &ended))
	s.Equal(map[string]int{"alice": 0, "bob": game.MaxPoints}, ended.UserPoints)

	var results response.GameResults
	s.Equal(http.StatusOK, s.getJSON("/api/v1/lobbies/PNT234/results", &results))
	s.Require().Len(results.Results, 1)
	s.Require().NotNil(results.Results[0].Winner)
	s.Equal("bob", *results.Results[0].Winner)

	var health response.Health
	s.Equal(http.StatusOK, s.getJSON("/api/v1/health", &health))
	s.Equal(2, health.Sessions)
	s.Equal(1, health.Lobbies)
}

func (s *IntegrationSuite) TestDisconnectsEmptyTheLobby() {
	alice, _ := s.connect("alice")
	bob, bobConn := s.connect("bob")

	s.app.MockRandom.QueueString("PNT234")
	s.send(alice, protocol.TypeLobbyCreate, nil)
	s.send(bob, protocol.TypeLobbyJoin, map[string]string{"id": "PNT234"})

	s.app.Dispatcher.Disconnect(s.ctx, alice)

	var info protocol.LobbyInfoPayload
	s.Require().True(bobConn.LastData(protocol.TypeLobbyJoined, &info))
	s.Equal("bob", info.Owner)
	s.Equal([]string{"bob"}, info.Users)

	s.app.Dispatcher.Disconnect(s.ctx, bob)

	s.Zero(s.app.LobbyController.Count())
	s.Zero(s.app.SessionRegistry.Count())
	s.Equal(http.StatusNotFound, s.getJSON("/api/v1/lobbies/PNT234", nil))

	// Both names are free again
	carol, _ := s.connect("alice")
	s.Equal("alice", carol.DisplayName())
}

func (s *IntegrationSuite) TestDisplayNamesAreUniqueAcrossSessions() {
	s.connect("alice")

	conn := testutil.NewRecordingConn()
	sess := s.app.Dispatcher.Connect(conn)
	s.send(sess, protocol.TypeDisplayName, map[string]string{"displayName": "alice"})

	closed, reason := conn.Closed()
	s.True(closed)
	s.Equal(protocol.ReasonDisplayNameUnavailable, reason)
}

func (s *IntegrationSuite) TestLoadDictionaryFallsBackToBuiltInWords() {
	app := NewTestApp()
	defer func() { _ = app.Shutdown(s.ctx) }()

	s.Require().NoError(app.LoadDictionary(s.ctx, ""))
	s.True(app.DictionaryService.IsLoaded())

	cached, err := app.Storage.GetWordPool(s.ctx)
	s.Require().NoError(err)
	s.Equal(app.DictionaryService.WordCount(), len(cached))
}

func (s *IntegrationSuite) TestLoadDictionaryMissingFile() {
	err := s.app.LoadDictionary(s.ctx, "/nonexistent/words.txt")
	s.Error(err)
}

func (s *IntegrationSuite) TestNewRejectsUnknownStorage() {
	_, err := New(Config{StorageType: "postgres"})
	s.Error(err)

	_, err = New(Config{StorageType: StorageTypeRedis})
	s.Error(err)
}

func (s *IntegrationSuite) TestShutdownClosesLiveSessions() {
	app := NewTestApp()
	conn := testutil.NewRecordingConn()
	sess := app.Dispatcher.Connect(conn)
	s.Require().NoError(app.SessionRegistry.SetDisplayName(s.ctx, sess, "alice"))

	s.Require().NoError(app.Shutdown(s.ctx))

	closed, reason := conn.Closed()
	s.True(closed)
	s.Equal(protocol.ReasonServerShutdown, reason)
	s.Zero(app.SessionRegistry.Count())

	ok, err := app.Storage.ClaimDisplayName(s.ctx, "alice", "next")
	s.Require().NoError(err)
	s.True(ok)

	// The transport's own disconnect afterwards is harmless
	app.Dispatcher.Disconnect(s.ctx, sess)
}

// newRedisApp builds a test app on its own client to a shared Redis
func (s *IntegrationSuite) newRedisApp(mini *miniredis.Miniredis, cfg redisstorage.Config) *TestApp {
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	app := NewTestAppWithStorage(redisstorage.NewWithClient(client, cfg))
	s.Require().NoError(app.LoadTestDictionary())
	return app
}

func (s *IntegrationSuite) TestRedisNameClaimsEndWithTheProcess() {
	mini := miniredis.RunT(s.T())
	cfg := redisstorage.DefaultConfig()

	first := s.newRedisApp(mini, cfg)
	sess := first.Dispatcher.Connect(testutil.NewRecordingConn())
	s.Require().NoError(first.SessionRegistry.SetDisplayName(s.ctx, sess, "alice"))
	s.Require().NoError(first.Shutdown(s.ctx))

	second := s.newRedisApp(mini, cfg)
	defer func() { _ = second.Shutdown(s.ctx) }()

	returning := second.Dispatcher.Connect(testutil.NewRecordingConn())
	s.NoError(second.SessionRegistry.SetDisplayName(s.ctx, returning, "alice"))
}

func (s *IntegrationSuite) TestRedisNameClaimOutlivesItsTTLWhileAlive() {
	mini := miniredis.RunT(s.T())
	cfg := redisstorage.DefaultConfig()
	app := s.newRedisApp(mini, cfg)
	defer func() { _ = app.Shutdown(s.ctx) }()

	alice := app.Dispatcher.Connect(testutil.NewRecordingConn())
	s.Require().NoError(app.SessionRegistry.SetDisplayName(s.ctx, alice, "alice"))

	// Keep-alives carry the claim across several TTLs
	for range 3 {
		mini.FastForward(cfg.NameClaimTTL - time.Second)
		app.Dispatcher.Dispatch(s.ctx, alice, []byte(`{"type":"ping"}`))
	}

	conn := testutil.NewRecordingConn()
	other := app.Dispatcher.Connect(conn)
	app.Dispatcher.Dispatch(s.ctx, other, []byte(`{"type":"display_name","data":{"displayName":"alice"}}`))
	closed, reason := conn.Closed()
	s.True(closed)
	s.Equal(protocol.ReasonDisplayNameUnavailable, reason)
}

func (s *IntegrationSuite) TestRedisLapsedClaimIsTakenBackOnKeepAlive() {
	mini := miniredis.RunT(s.T())
	cfg := redisstorage.DefaultConfig()
	app := s.newRedisApp(mini, cfg)
	defer func() { _ = app.Shutdown(s.ctx) }()

	aliceConn := testutil.NewRecordingConn()
	alice := app.Dispatcher.Connect(aliceConn)
	s.Require().NoError(app.SessionRegistry.SetDisplayName(s.ctx, alice, "alice"))

	mini.FastForward(cfg.NameClaimTTL + time.Second)
	app.Dispatcher.KeepAlive(s.ctx, alice)

	closed, _ := aliceConn.Closed()
	s.False(closed)
	ok, err := app.Storage.ClaimDisplayName(s.ctx, "alice", "intruder")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *IntegrationSuite) TestRedisKeepAliveClosesSessionWhoseNameWasTaken() {
	mini := miniredis.RunT(s.T())
	cfg := redisstorage.DefaultConfig()
	app := s.newRedisApp(mini, cfg)
	defer func() { _ = app.Shutdown(s.ctx) }()

	aliceConn := testutil.NewRecordingConn()
	alice := app.Dispatcher.Connect(aliceConn)
	s.Require().NoError(app.SessionRegistry.SetDisplayName(s.ctx, alice, "alice"))

	mini.FastForward(cfg.NameClaimTTL + time.Second)
	ok, err := app.Storage.ClaimDisplayName(s.ctx, "alice", "intruder")
	s.Require().NoError(err)
	s.Require().True(ok)

	app.Dispatcher.KeepAlive(s.ctx, alice)

	closed, reason := aliceConn.Closed()
	s.True(closed)
	s.Equal(protocol.ReasonDisplayNameUnavailable, reason)
}
