package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vpnpanel/auth-service/internal/store"
)

// Sessions implements store.SessionStore.
type Sessions struct {
	db DB
}

// NewSessions constructs the session adapter.
func NewSessions(db DB) *Sessions {
	return &Sessions{db: db}
}

const sessionColumns = `id, operator_id, refresh_token_hash, ip_address, user_agent,
		device_fingerprint, created_at, last_activity_at, expires_at, revoked`

func scanSession(row pgx.Row) (*store.Session, error) {
	var sess store.Session
	err := row.Scan(
		&sess.ID, &sess.OperatorID, &sess.RefreshTokenHash, &sess.IPAddress,
		&sess.UserAgent, &sess.DeviceFingerprint, &sess.CreatedAt,
		&sess.LastActivityAt, &sess.ExpiresAt, &sess.Revoked,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &sess, nil
}

// Create inserts a session row.
func (r *Sessions) Create(ctx context.Context, sess *store.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, operator_id, refresh_token_hash, ip_address, user_agent,
			device_fingerprint, created_at, last_activity_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, sess.ID, sess.OperatorID, sess.RefreshTokenHash, sess.IPAddress, sess.UserAgent,
		sess.DeviceFingerprint, sess.CreatedAt, sess.LastActivityAt, sess.ExpiresAt, sess.Revoked)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetByID loads one session.
func (r *Sessions) GetByID(ctx context.Context, id uuid.UUID) (*store.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1
	`, id)
	return scanSession(row)
}

// ListActiveByOperator returns live sessions ordered by recent activity.
func (r *Sessions) ListActiveByOperator(ctx context.Context, operatorID uuid.UUID, now time.Time) ([]*store.Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE operator_id = $1 AND revoked = false AND expires_at > $2
		ORDER BY last_activity_at DESC
	`, operatorID, now)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*store.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Rotate swaps the hashed refresh secret and refreshes activity metadata.
// The session id and creation time are untouched.
func (r *Sessions) Rotate(ctx context.Context, id uuid.UUID, refreshTokenHash, ip, userAgent string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET refresh_token_hash = $2, last_activity_at = $3, ip_address = $4, user_agent = $5
		WHERE id = $1
	`, id, refreshTokenHash, at, ip, userAgent)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Revoke flags a session revoked. Missing or already-revoked rows are a no-op.
func (r *Sessions) Revoke(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE sessions SET revoked = true WHERE id = $1 AND revoked = false
	`, id)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAllForOperator revokes every live session of an operator in one batch.
func (r *Sessions) RevokeAllForOperator(ctx context.Context, operatorID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE sessions SET revoked = true WHERE operator_id = $1 AND revoked = false
	`, operatorID)
	if err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes rows whose expiry has elapsed.
func (r *Sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
