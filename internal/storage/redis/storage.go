package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/storage"
)

// releaseNameScript deletes a name claim only if it is still held by the releasing session
var releaseNameScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshNameScript extends a name claim's expiry only if it is still held by the refreshing session
var refreshNameScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Display name claims

func (s *Storage) ClaimDisplayName(ctx context.Context, name string, owner model.SessionID) (bool, error) {
	ok, err := s.client.SetNX(ctx, displayNameKey(name), string(owner), s.cfg.NameClaimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim display name: %w", err)
	}
	return ok, nil
}

func (s *Storage) ReleaseDisplayName(ctx context.Context, name string, owner model.SessionID) error {
	err := releaseNameScript.Run(ctx, s.client, []string{displayNameKey(name)}, string(owner)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release display name: %w", err)
	}
	return nil
}

func (s *Storage) RefreshDisplayName(ctx context.Context, name string, owner model.SessionID) (bool, error) {
	held, err := refreshNameScript.Run(ctx, s.client, []string{displayNameKey(name)},
		string(owner), s.cfg.NameClaimTTL.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("refresh display name: %w", err)
	}
	return held == 1, nil
}

// Lobby directory operations

func (s *Storage) SaveLobbySummary(ctx context.Context, summary *model.LobbySummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	key := lobbyKey(summary.ID)

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, s.cfg.LobbyTTL)
	pipe.SAdd(ctx, lobbiesIndexKey(), key)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetLobbySummary(ctx context.Context, id model.LobbyID) (*model.LobbySummary, error) {
	data, err := s.client.Get(ctx, lobbyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLobbyNotFound
		}
		return nil, err
	}

	var summary model.LobbySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Storage) ListLobbySummaries(ctx context.Context) ([]*model.LobbySummary, error) {
	keys, err := s.client.SMembers(ctx, lobbiesIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []*model.LobbySummary{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	summaries := make([]*model.LobbySummary, 0, len(values))
	var expired []interface{}
	for i, val := range values {
		str, ok := val.(string)
		if !ok {
			expired = append(expired, keys[i])
			continue
		}
		var summary model.LobbySummary
		if err := json.Unmarshal([]byte(str), &summary); err != nil {
			continue // Skip invalid data
		}
		summaries = append(summaries, &summary)
	}

	// Drop index entries whose summaries have expired
	if len(expired) > 0 {
		_ = s.client.SRem(ctx, lobbiesIndexKey(), expired...).Err()
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

func (s *Storage) DeleteLobbySummary(ctx context.Context, id model.LobbyID) error {
	key := lobbyKey(id)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, lobbiesIndexKey(), key)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) LobbyExists(ctx context.Context, id model.LobbyID) (bool, error) {
	exists, err := s.client.Exists(ctx, lobbyKey(id)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Game result operations

func (s *Storage) AppendGameResult(ctx context.Context, result *model.GameResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	key := resultsKey(result.LobbyID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.cfg.MaxResults > 0 {
		pipe.LTrim(ctx, key, int64(-s.cfg.MaxResults), -1)
	}
	if s.cfg.ResultTTL > 0 {
		pipe.Expire(ctx, key, s.cfg.ResultTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetGameResults(ctx context.Context, id model.LobbyID) ([]*model.GameResult, error) {
	values, err := s.client.LRange(ctx, resultsKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	results := make([]*model.GameResult, 0, len(values))
	for _, val := range values {
		var result model.GameResult
		if err := json.Unmarshal([]byte(val), &result); err != nil {
			continue // Skip invalid data
		}
		results = append(results, &result)
	}
	return results, nil
}

// Word pool operations

func (s *Storage) GetWordPool(ctx context.Context) ([]string, error) {
	key := wordPoolKey()

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrWordPoolEmpty
	}

	return s.client.LRange(ctx, key, 0, -1).Result()
}

func (s *Storage) SaveWordPool(ctx context.Context, words []string) error {
	key := wordPoolKey()

	// Replace the existing pool atomically
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)

	if len(words) > 0 {
		members := make([]interface{}, len(words))
		for i, w := range words {
			members[i] = w
		}
		pipe.RPush(ctx, key, members...)
	}

	_, err := pipe.Exec(ctx)
	return err
}
