package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/paintergame/internal/factory"
)

func startServer(t *testing.T) (*factory.TestApp, string) {
	t.Helper()

	app := factory.NewTestApp()
	require.NoError(t, app.LoadTestDictionary())
	server := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		server.Close()
		_ = app.Shutdown(context.Background())
	})
	return app, server.URL
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://paint.example.com/", "wss://paint.example.com/ws"},
		{"http://host/prefix", "ws://host/prefix/ws"},
	}
	for _, tt := range tests {
		c := &Config{ServerURL: tt.server}
		got, err := c.WebSocketURL()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := (&Config{ServerURL: "ftp://host"}).WebSocketURL()
	assert.Error(t, err)
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		line    string
		msgType string
		data    string
	}{
		{"apple pie", "guess_word", `{"word":"apple pie"}`},
		{"/create", "lobby_create", `null`},
		{"/join abc234", "lobby_join", `{"id":"abc234"}`},
		{"/exit", "lobby_exit", `null`},
		{"/start", "game_start", `null`},
		{"/select ice cream", "select_word", `{"word":"ice cream"}`},
		{"/settings rounds=2 timer=30000", "game_settings", `{"settings":{"rounds":2,"timer":30000}}`},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			msgType, data, err := parseInput(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.msgType, msgType)
			raw, err := json.Marshal(data)
			require.NoError(t, err)
			assert.JSONEq(t, tt.data, string(raw))
		})
	}

	for _, bad := range []string{"/join", "/select", "/settings", "/settings rounds", "/settings rounds=x", "/dance"} {
		_, _, err := parseInput(bad)
		assert.Error(t, err, bad)
	}
}

func TestHealthCommand(t *testing.T) {
	_, url := startServer(t)

	out, err := runCmd(t, "--server", url, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: ok")
	assert.Contains(t, out, "Sessions: 0")
	assert.Contains(t, out, "Words: 12")
}

func TestLobbyCommandsReportAPIErrors(t *testing.T) {
	_, url := startServer(t)

	out, err := runCmd(t, "--server", url, "-o", "json", "lobby", "list")
	require.NoError(t, err)
	var list LobbyList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Empty(t, list.Lobbies)

	_, err = runCmd(t, "--server", url, "lobby", "get", "ZZZ999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOBBY_NOT_FOUND")

	out, err = runCmd(t, "--server", url, "lobby", "results", "ZZZ999")
	require.NoError(t, err)
	assert.Contains(t, out, "No finished games for lobby ZZZ999")
}

func TestWatchCreatesLobby(t *testing.T) {
	app, url := startServer(t)
	app.MockRandom.QueueString("ABC234")

	out, err := runCmd(t, "--server", url, "-o", "json", "watch", "--name", "alice", "--create", "--until", "lobby_joined")
	require.NoError(t, err)

	var types []string
	var joined Event
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		types = append(types, e.Type)
		if e.Type == "lobby_joined" {
			joined = e
		}
	}
	assert.Equal(t, []string{"connected", "lobby_joined"}, types)

	var info struct {
		ID    string `json:"id"`
		Owner string `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(joined.Data, &info))
	assert.Equal(t, "ABC234", info.ID)
	assert.Equal(t, "alice", info.Owner)

	// Leaving the command disconnects the session and empties the lobby
	assert.Eventually(t, func() bool {
		return app.LobbyController.Count() == 0 && app.SessionRegistry.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchReportsServerClose(t *testing.T) {
	_, url := startServer(t)

	_, err := runCmd(t, "--server", url, "watch", "--name", "!!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DisplayName.Invalid")
}

func TestWatchRequiresName(t *testing.T) {
	t.Setenv("PAINTER_NAME", "")

	_, err := runCmd(t, "watch", "--create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name is required")
}
