package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeStore holds pending sign-in codes keyed by email.
type CodeStore interface {
	// Put stores code for email, replacing any previous code.
	Put(ctx context.Context, email, code string, ttl time.Duration) error

	// Consume reports whether code matches the pending code for email.
	// The pending code is removed whether or not it matched.
	Consume(ctx context.Context, email, code string) (bool, error)
}

func codesEqual(a, b string) bool {
	return a != "" && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// MemoryCodeStore keeps codes in process memory.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]pendingCode
	now   func() time.Time
}

type pendingCode struct {
	code      string
	expiresAt time.Time
}

// NewMemoryCodeStore creates an empty in-memory code store.
func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: make(map[string]pendingCode), now: time.Now}
}

func (s *MemoryCodeStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = pendingCode{code: code, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryCodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.codes[email]
	if !ok {
		return false, nil
	}
	delete(s.codes, email)
	if s.now().After(p.expiresAt) {
		return false, nil
	}
	return codesEqual(p.code, code), nil
}

// DefaultCodePrefix namespaces code keys in Redis.
const DefaultCodePrefix = "memeforge:code:"

// RedisCodeStore keeps codes in Redis with key expiry.
type RedisCodeStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCodeStore creates a code store on an existing client.
func NewRedisCodeStore(client redis.UniversalClient, prefix string) *RedisCodeStore {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	return &RedisCodeStore{client: client, prefix: prefix}
}

func (s *RedisCodeStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+email, code, ttl).Err(); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.client.GetDel(ctx, s.prefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	return codesEqual(stored, code), nil
}

var (
	_ CodeStore = (*MemoryCodeStore)(nil)
	_ CodeStore = (*RedisCodeStore)(nil)
)
