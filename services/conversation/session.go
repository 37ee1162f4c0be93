package conversation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"slotline/models"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "convo:sess:"

// SessionStore persists per-session dialog state. Get returns (nil, nil) for
// an unknown session; the service creates a fresh one.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*models.ConversationSession, error)
	Save(ctx context.Context, session *models.ConversationSession) error
	Clear(ctx context.Context, sessionID string) error
}

// RedisSessionStore stores sessions as JSON blobs with a TTL, so abandoned
// conversations expire instead of leaking.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*models.ConversationSession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session models.ConversationSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *models.ConversationSession) error {
	b, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+session.SessionID, b, s.ttl).Err()
}

func (s *RedisSessionStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

// MemorySessionStore is an in-memory SessionStore for tests and local runs.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.ConversationSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*models.ConversationSession),
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*models.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *MemorySessionStore) Save(ctx context.Context, session *models.ConversationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *session
	s.sessions[session.SessionID] = &cp
	return nil
}

func (s *MemorySessionStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}
