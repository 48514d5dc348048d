package protocol

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionManager backs the session table with Redis, giving operators
// revocation and multi-instance sharing that JWTSessionManager cannot offer.
type RedisSessionManager struct {
	client     *redis.Client
	sessionTTL time.Duration
}

func NewRedisSessionManager(client *redis.Client, sessionTTL time.Duration) *RedisSessionManager {
	return &RedisSessionManager{client: client, sessionTTL: sessionTTL}
}

func (m *RedisSessionManager) generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func sessionKey(id string) string  { return fmt.Sprintf("spike:session:%s", id) }
func protocolKey(id string) string { return fmt.Sprintf("spike:session:%s:protocol", id) }

func (m *RedisSessionManager) CreateSession(ctx context.Context, protocolVersion string) (string, error) {
	sessionID, err := m.generateSessionID()
	if err != nil {
		return "", err
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, sessionKey(sessionID), time.Now().Unix(), m.sessionTTL)
	pipe.Set(ctx, protocolKey(sessionID), protocolVersion, m.sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create session in redis: %w", err)
	}
	return sessionID, nil
}

func (m *RedisSessionManager) ValidateSession(ctx context.Context, sessionID string) (bool, error) {
	exists, err := m.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return false, nil
	}
	if err := m.client.Set(ctx, sessionKey(sessionID), time.Now().Unix(), m.sessionTTL).Err(); err != nil {
		return false, fmt.Errorf("refresh session ttl: %w", err)
	}
	return true, nil
}

func (m *RedisSessionManager) GetProtocolVersion(ctx context.Context, sessionID string) (string, error) {
	version, err := m.client.Get(ctx, protocolKey(sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get protocol version: %w", err)
	}
	return version, nil
}

func (m *RedisSessionManager) DeleteSession(ctx context.Context, sessionID string) error {
	pipe := m.client.Pipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.Del(ctx, protocolKey(sessionID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanupExpiredSessions is a no-op: Redis expires keys by TTL on its own.
func (m *RedisSessionManager) CleanupExpiredSessions(ctx context.Context, maxIdleTime time.Duration) error {
	return nil
}

var _ SessionManager = (*RedisSessionManager)(nil)
