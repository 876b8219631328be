package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	names     map[string]model.SessionID
	summaries map[model.LobbyID]*model.LobbySummary
	results   map[model.LobbyID][]*model.GameResult
	wordPool  []string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		names:     make(map[string]model.SessionID),
		summaries: make(map[model.LobbyID]*model.LobbySummary),
		results:   make(map[model.LobbyID][]*model.GameResult),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Display name claims

func (s *Storage) ClaimDisplayName(ctx context.Context, name string, owner model.SessionID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.names[name]; taken {
		return false, nil
	}
	s.names[name] = owner
	return true, nil
}

func (s *Storage) ReleaseDisplayName(ctx context.Context, name string, owner model.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.names[name] == owner {
		delete(s.names, name)
	}
	return nil
}

func (s *Storage) RefreshDisplayName(ctx context.Context, name string, owner model.SessionID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names[name] == owner, nil
}

// Lobby directory operations

func (s *Storage) SaveLobbySummary(ctx context.Context, summary *model.LobbySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.ID] = cloneSummary(summary)
	return nil
}

func (s *Storage) GetLobbySummary(ctx context.Context, id model.LobbyID) (*model.LobbySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[id]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return cloneSummary(summary), nil
}

func (s *Storage) ListLobbySummaries(ctx context.Context) ([]*model.LobbySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.LobbySummary, 0, len(s.summaries))
	for _, summary := range s.summaries {
		out = append(out, cloneSummary(summary))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Storage) DeleteLobbySummary(ctx context.Context, id model.LobbyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.summaries, id)
	return nil
}

func (s *Storage) LobbyExists(ctx context.Context, id model.LobbyID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.summaries[id]
	return ok, nil
}

// Game result operations

func (s *Storage) AppendGameResult(ctx context.Context, result *model.GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.results[result.LobbyID], result)
	if len(list) > storage.DefaultMaxResults {
		list = list[len(list)-storage.DefaultMaxResults:]
	}
	s.results[result.LobbyID] = list
	return nil
}

func (s *Storage) GetGameResults(ctx context.Context, id model.LobbyID) ([]*model.GameResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.results[id]
	out := make([]*model.GameResult, len(list))
	copy(out, list)
	return out, nil
}

// Word pool operations

func (s *Storage) GetWordPool(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.wordPool) == 0 {
		return nil, model.ErrWordPoolEmpty
	}
	out := make([]string, len(s.wordPool))
	copy(out, s.wordPool)
	return out, nil
}

func (s *Storage) SaveWordPool(ctx context.Context, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wordPool = make([]string, len(words))
	copy(s.wordPool, words)
	return nil
}

func cloneSummary(summary *model.LobbySummary) *model.LobbySummary {
	c := *summary
	c.Members = append([]string(nil), summary.Members...)
	return &c
}
