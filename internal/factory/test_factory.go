package factory

import (
	"time"

	"github.com/mcoot/paintergame/internal/dependencies/mocks"
	"github.com/mcoot/paintergame/internal/storage"
	"github.com/mcoot/paintergame/internal/storage/memory"
	"github.com/mcoot/paintergame/internal/testutil"
	"github.com/mcoot/paintergame/internal/web/ws"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithStorage(memory.New())
}

// NewTestAppWithStorage creates a test App over the given storage backend
func NewTestAppWithStorage(store storage.Storage) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	wsConfig := ws.DefaultConfig()
	wsConfig.InboundRate = 0

	app := newWithDependencies(store, mockClock, mockRandom, Config{WebSocket: wsConfig}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// LoadTestDictionary loads a small word pool for testing
func (t *TestApp) LoadTestDictionary() error {
	return t.DictionaryService.LoadWords([]string{
		"apple", "banana", "cherry", "grape", "lemon",
		"house", "river", "mountain", "guitar", "rocket",
		"ice cream", "fire truck",
	})
}
