package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"finportal/internal/models"
)

// VerificationSessionStore keeps in-flight OTP sessions. Get returns (nil, nil) when absent.
type VerificationSessionStore interface {
	Get(ctx context.Context, id string) (*models.VerificationSession, error)
	Save(ctx context.Context, s *models.VerificationSession, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	session   models.VerificationSession
	expiresAt time.Time
}

type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*models.VerificationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, id)
		return nil, nil
	}
	s := e.session
	return &s, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s *models.VerificationSession, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = memoryEntry{session: *s, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Cleanup drops expired sessions.
func (m *MemorySessionStore) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, id)
		}
	}
}

type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: "verify:"}
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*models.VerificationSession, error) {
	raw, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	return decodeSession(raw)
}

func (r *RedisSessionStore) Save(ctx context.Context, s *models.VerificationSession, ttl time.Duration) error {
	raw, err := encodeSession(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+s.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// redisSession keeps the entered digits, which the API representation hides.
// The outer Digits field shadows the embedded one tagged json:"-".
type redisSession struct {
	models.VerificationSession
	Digits string `json:"digits"`
}

func encodeSession(s *models.VerificationSession) ([]byte, error) {
	raw, err := json.Marshal(redisSession{VerificationSession: *s, Digits: s.Digits})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return raw, nil
}

func decodeSession(raw []byte) (*models.VerificationSession, error) {
	var rs redisSession
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	s := rs.VerificationSession
	s.Digits = rs.Digits
	return &s, nil
}
