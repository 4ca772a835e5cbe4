// Package session owns the session-record lifecycle: creation, rotation,
// revocation, enumeration and the expiry sweep.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vpnpanel/auth-service/internal/password"
	"github.com/vpnpanel/auth-service/internal/store"
)

// ErrNoMatch is returned when no active session matches a refresh token.
var ErrNoMatch = errors.New("no active session matches refresh token")

// Manager persists sessions and verifies refresh secrets against their
// stored hashes.
type Manager struct {
	sessions store.SessionStore
	hasher   *password.Hasher
	ttl      time.Duration
	logger   *zap.Logger
}

// NewManager constructs a Manager. ttl is the fixed session validity
// window applied at creation.
func NewManager(sessions store.SessionStore, hasher *password.Hasher, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: sessions,
		hasher:   hasher,
		ttl:      ttl,
		logger:   logger,
	}
}

// tokenDigest pre-hashes the raw token before bcrypt. bcrypt caps input
// at 72 bytes and signed tokens are longer, so the bcrypt input is the
// base64 SHA-256 digest of the token.
func tokenDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Create hashes the refresh token and persists a new session record with
// expiry now+ttl. The session id is supplied by the caller so it can be
// embedded in the issued tokens as a correlation key.
func (m *Manager) Create(ctx context.Context, id, operatorID uuid.UUID, refreshToken, ip, userAgent, fingerprint string) (*store.Session, error) {
	hash, err := m.hasher.Hash(tokenDigest(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}

	now := time.Now().UTC()
	sess := &store.Session{
		ID:                id,
		OperatorID:        operatorID,
		RefreshTokenHash:  hash,
		IPAddress:         ip,
		UserAgent:         userAgent,
		DeviceFingerprint: fingerprint,
		CreatedAt:         now,
		LastActivityAt:    now,
		ExpiresAt:         now.Add(m.ttl),
	}
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Rotate replaces the stored refresh secret and bumps activity metadata.
// The previous refresh token is unusable the moment this returns.
func (m *Manager) Rotate(ctx context.Context, id uuid.UUID, newRefreshToken, ip, userAgent string) error {
	hash, err := m.hasher.Hash(tokenDigest(newRefreshToken))
	if err != nil {
		return fmt.Errorf("hash refresh token: %w", err)
	}
	return m.sessions.Rotate(ctx, id, hash, ip, userAgent, time.Now().UTC())
}

// ActiveByOperator lists non-revoked, unexpired sessions, most recently
// active first.
func (m *Manager) ActiveByOperator(ctx context.Context, operatorID uuid.UUID) ([]*store.Session, error) {
	return m.sessions.ListActiveByOperator(ctx, operatorID, time.Now().UTC())
}

// MatchRefreshToken finds the active session whose stored hash matches
// the raw token. The secret is hashed so there is no equality index; the
// linear scan over the operator's active sessions is intentional and
// kept cheap by the expiry and revocation policy.
func (m *Manager) MatchRefreshToken(ctx context.Context, operatorID uuid.UUID, rawToken string) (*store.Session, error) {
	sessions, err := m.ActiveByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	digest := tokenDigest(rawToken)
	for _, sess := range sessions {
		if m.hasher.Verify(digest, sess.RefreshTokenHash) {
			return sess, nil
		}
	}
	return nil, ErrNoMatch
}

// Revoke marks a session revoked. Idempotent.
func (m *Manager) Revoke(ctx context.Context, id uuid.UUID) error {
	return m.sessions.Revoke(ctx, id)
}

// RevokeAll revokes every live session of the operator.
func (m *Manager) RevokeAll(ctx context.Context, operatorID uuid.UUID) error {
	return m.sessions.RevokeAllForOperator(ctx, operatorID)
}

// GetOwned loads a session and verifies it belongs to the operator.
func (m *Manager) GetOwned(ctx context.Context, operatorID, id uuid.UUID) (*store.Session, error) {
	sess, err := m.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.OperatorID != operatorID {
		return nil, store.ErrNotFound
	}
	return sess, nil
}

// SweepExpired deletes sessions past their expiry. The rows are already
// logically invalid, so the sweep interleaves safely with every other
// operation.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	count, err := m.sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		m.logger.Info("swept expired sessions", zap.Int64("deleted", count))
	}
	return count, nil
}
