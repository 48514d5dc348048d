package protocol

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SessionManager is the pluggable store backing the downstream multiplexer
// server's HTTP-streaming/SSE session table. Implement this interface to
// swap JWTSessionManager's stateless tokens for a store with revocation.
type SessionManager interface {
	CreateSession(ctx context.Context, protocolVersion string) (sessionID string, err error)
	ValidateSession(ctx context.Context, sessionID string) (valid bool, err error)
	GetProtocolVersion(ctx context.Context, sessionID string) (version string, err error)
	DeleteSession(ctx context.Context, sessionID string) error
	CleanupExpiredSessions(ctx context.Context, maxIdleTime time.Duration) error
}

// JWTSessionManager is a stateless SessionManager: no external storage, no
// cross-instance coordination, horizontally scalable. Sessions cannot be
// revoked before expiry — acceptable for spike's single-operator deployment
// model.
type JWTSessionManager struct {
	signingKey []byte
	ttl        time.Duration
}

type jwtClaims struct {
	Protocol  string `json:"protocol"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func NewJWTSessionManager(signingKey []byte, ttl time.Duration) *JWTSessionManager {
	return &JWTSessionManager{signingKey: signingKey, ttl: ttl}
}

// GenerateSigningKey returns a cryptographically secure random 32-byte key.
func GenerateSigningKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}

func NewJWTSessionManagerWithAutoKey(ttl time.Duration) (*JWTSessionManager, error) {
	key, err := GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	return NewJWTSessionManager(key, ttl), nil
}

func (m *JWTSessionManager) CreateSession(ctx context.Context, protocolVersion string) (string, error) {
	now := time.Now()
	claims := jwtClaims{Protocol: protocolVersion, IssuedAt: now.Unix(), ExpiresAt: now.Add(m.ttl).Unix()}

	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	headerEncoded := base64.RawURLEncoding.EncodeToString(headerJSON)
	claimsEncoded := base64.RawURLEncoding.EncodeToString(claimsJSON)
	message := headerEncoded + "." + claimsEncoded
	return message + "." + m.sign(message), nil
}

func (m *JWTSessionManager) ValidateSession(ctx context.Context, sessionID string) (bool, error) {
	parts := strings.Split(sessionID, ".")
	if len(parts) != 3 {
		return false, nil
	}
	message := parts[0] + "." + parts[1]
	if parts[2] != m.sign(message) {
		return false, nil
	}
	claims, err := m.decodeClaims(sessionID)
	if err != nil {
		return false, nil
	}
	return time.Now().Unix() <= claims.ExpiresAt, nil
}

func (m *JWTSessionManager) GetProtocolVersion(ctx context.Context, sessionID string) (string, error) {
	claims, err := m.decodeClaims(sessionID)
	if err != nil {
		return "", err
	}
	return claims.Protocol, nil
}

func (m *JWTSessionManager) decodeClaims(sessionID string) (jwtClaims, error) {
	parts := strings.Split(sessionID, ".")
	if len(parts) != 3 {
		return jwtClaims{}, fmt.Errorf("invalid token format")
	}
	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return jwtClaims{}, fmt.Errorf("decode claims: %w", err)
	}
	var claims jwtClaims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return jwtClaims{}, fmt.Errorf("unmarshal claims: %w", err)
	}
	return claims, nil
}

// DeleteSession is a no-op: JWT sessions expire naturally and cannot be revoked.
func (m *JWTSessionManager) DeleteSession(ctx context.Context, sessionID string) error { return nil }

// CleanupExpiredSessions is a no-op: JWT sessions self-expire via their exp claim.
func (m *JWTSessionManager) CleanupExpiredSessions(ctx context.Context, maxIdleTime time.Duration) error {
	return nil
}

func (m *JWTSessionManager) sign(message string) string {
	h := hmac.New(sha256.New, m.signingKey)
	h.Write([]byte(message))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

var _ SessionManager = (*JWTSessionManager)(nil)
