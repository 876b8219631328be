package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func lastLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

// hijackRecorder is a ResponseRecorder that can be hijacked
type hijackRecorder struct {
	*httptest.ResponseRecorder
	server net.Conn
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return h.server, bufio.NewReadWriter(bufio.NewReader(h.server), bufio.NewWriter(h.server)), nil
}

func TestLoggingRecordsStatusAndSize(t *testing.T) {
	logger, buf := bufferLogger()
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	entry := lastLog(t, buf)
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "/api/v1/health", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
	assert.EqualValues(t, len("short and stout"), entry["size"])
	assert.Equal(t, false, entry["upgraded"])
}

func TestLoggingWarnsOnServerErrors(t *testing.T) {
	logger, buf := bufferLogger()
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "WARN", lastLog(t, buf)["level"])
}

func TestLoggingMarksUpgradedConnections(t *testing.T) {
	logger, buf := bufferLogger()
	server, client := net.Pipe()
	defer func() { _ = client.Close() }()

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))

	rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder(), server: server}
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	entry := lastLog(t, buf)
	assert.EqualValues(t, http.StatusSwitchingProtocols, entry["status"])
	assert.Equal(t, true, entry["upgraded"])
}

func TestHijackWithoutSupport(t *testing.T) {
	rw := &ResponseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	_, _, err := rw.Hijack()

	assert.Error(t, err)
	assert.Equal(t, http.StatusOK, rw.Status())
	assert.Zero(t, rw.Size())
}

func TestRecoveryUsesPanicHandler(t *testing.T) {
	logger, buf := bufferLogger()
	var recovered any
	handler := Recovery(logger, func(w http.ResponseWriter, r *http.Request, err any) {
		recovered = err
		w.WriteHeader(http.StatusInternalServerError)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lobbies", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "boom", recovered)
	entry := lastLog(t, buf)
	assert.Equal(t, "panic recovered", entry["msg"])
	assert.Equal(t, "/api/v1/lobbies", entry["path"])
}

func TestRecoveryDefaultHandler(t *testing.T) {
	logger, _ := bufferLogger()
	handler := Recovery(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoveryReraisesAbort(t *testing.T) {
	logger, buf := bufferLogger()
	handler := Recovery(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Empty(t, buf.String())
}

func TestRecoverySkipsResponseAfterUpgrade(t *testing.T) {
	logger, buf := bufferLogger()
	server, client := net.Pipe()
	defer func() { _ = client.Close() }()

	called := false
	inner := Recovery(logger, func(w http.ResponseWriter, r *http.Request, err any) {
		called = true
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
		panic("after upgrade")
	}))
	handler := Logging(logger)(inner)

	rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder(), server: server}
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.False(t, called)
	assert.Contains(t, buf.String(), `"upgraded":true`)
}
