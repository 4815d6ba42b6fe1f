package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"gastos/pkg/ledger"
)

// ErrNotFound is returned by stores for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Store keeps session data keyed by session id.
type Store interface {
	Get(ctx context.Context, id string) (ledger.SessionUser, error)
	Save(ctx context.Context, id string, user ledger.SessionUser, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	user      ledger.SessionUser
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are lost on restart
// and are not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, id string) (ledger.SessionUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return ledger.SessionUser{}, ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return ledger.SessionUser{}, ErrNotFound
	}
	return entry.user, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, user ledger.SessionUser, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[id] = memoryEntry{user: user, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep drops expired entries. Callers hold mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// redisClient is the subset of go-redis commands the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps sessions in Redis so several instances can share them.
type RedisStore struct {
	client redisClient
	prefix string
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redisClient) *RedisStore {
	return &RedisStore{client: client, prefix: "gastos:session:"}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (ledger.SessionUser, error) {
	data, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ledger.SessionUser{}, ErrNotFound
		}
		return ledger.SessionUser{}, fmt.Errorf("redis get: %w", err)
	}
	var user ledger.SessionUser
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return ledger.SessionUser{}, fmt.Errorf("decode session: %w", err)
	}
	return user, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, user ledger.SessionUser, ttl time.Duration) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// ConnectRedis returns a client for addr after checking it answers PING.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
