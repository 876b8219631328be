package dictionary

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/storage"
)

//go:embed words.txt
var defaultWords string

// Service holds the word pool games draw candidates from
type Service struct {
	storage storage.Storage

	mu    sync.RWMutex
	words []string
}

// New creates a new dictionary Service
func New(storage storage.Storage) *Service {
	return &Service{
		storage: storage,
	}
}

// LoadFromStorage loads the word pool cached in storage
func (s *Service) LoadFromStorage(ctx context.Context) error {
	words, err := s.storage.GetWordPool(ctx)
	if err != nil {
		return err
	}
	return s.loadWords(words)
}

// LoadFromFile loads the word pool from a file (one entry per line) and caches it in storage
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open word pool: %w", err)
	}
	defer file.Close()

	words, err := readWords(file)
	if err != nil {
		return fmt.Errorf("read word pool: %w", err)
	}
	return s.loadAndSave(ctx, words)
}

// LoadDefault loads the built-in word pool and caches it in storage
func (s *Service) LoadDefault(ctx context.Context) error {
	words, err := readWords(strings.NewReader(defaultWords))
	if err != nil {
		return err
	}
	return s.loadAndSave(ctx, words)
}

// LoadWords directly loads a slice of words (useful for testing)
func (s *Service) LoadWords(words []string) error {
	return s.loadWords(words)
}

func (s *Service) loadAndSave(ctx context.Context, words []string) error {
	if err := s.loadWords(words); err != nil {
		return err
	}
	// Save the normalized pool for future use
	return s.storage.SaveWordPool(ctx, s.Words())
}

func (s *Service) loadWords(words []string) error {
	pool := make([]string, 0, len(words))
	index := make(map[string]struct{}, len(words))
	for _, raw := range words {
		word, ok := Normalize(raw)
		if !ok {
			continue
		}
		if _, dup := index[word]; dup {
			continue
		}
		index[word] = struct{}{}
		pool = append(pool, word)
	}
	if len(pool) == 0 {
		return model.ErrWordPoolEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = pool
	return nil
}

// Words returns a copy of the pool in load order
func (s *Service) Words() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.words))
	copy(out, s.words)
	return out
}

// IsLoaded returns whether a pool has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words) > 0
}

// WordCount returns the number of words in the pool
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Normalize lower-cases a pool entry and collapses its whitespace.
// Entries must consist of letters and single spaces only.
func Normalize(raw string) (string, bool) {
	word := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if word == "" {
		return "", false
	}
	for _, r := range word {
		if r != ' ' && !unicode.IsLetter(r) {
			return "", false
		}
	}
	return word, true
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// ServiceInterface is the word pool contract used by the lobby controller
type ServiceInterface interface {
	Words() []string
	IsLoaded() bool
	WordCount() int
	LoadFromStorage(ctx context.Context) error
	LoadFromFile(ctx context.Context, path string) error
	LoadDefault(ctx context.Context) error
	LoadWords(words []string) error
}

var _ ServiceInterface = (*Service)(nil)
