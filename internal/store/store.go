// Package store defines the persistence contract of the auth core.
//
// The service layer depends only on the narrow interfaces declared here;
// the Postgres adapter lives in the postgres subpackage. The database is
// the single source of truth: nothing is cached across requests, and the
// per-row mutations (failed-login counter, session rotation) rely on the
// store's own atomicity rather than application-level locking.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// Operator is an administrative account capable of authenticating.
type Operator struct {
	ID                  uuid.UUID
	Email               string
	PasswordHash        string
	FirstName           string
	LastName            string
	Role                string
	Active              bool
	FailedLoginAttempts int
	Locked              bool
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	LastFailedAt        *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Session binds one authenticated client to a rotating refresh secret.
// RefreshTokenHash holds a bcrypt digest; the raw token is never stored.
type Session struct {
	ID                uuid.UUID
	OperatorID        uuid.UUID
	RefreshTokenHash  string
	IPAddress         string
	UserAgent         string
	DeviceFingerprint string
	CreatedAt         time.Time
	LastActivityAt    time.Time
	ExpiresAt         time.Time
	Revoked           bool
}

// LoginAttempt is an immutable audit record of one login attempt.
// OperatorID is nil when the attempted email did not resolve.
type LoginAttempt struct {
	ID            uuid.UUID
	Email         string
	OperatorID    *uuid.UUID
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	OccurredAt    time.Time
}

// OperatorStore persists operator accounts and their lockout state.
type OperatorStore interface {
	GetByEmail(ctx context.Context, email string) (*Operator, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Operator, error)
	List(ctx context.Context) ([]*Operator, error)
	Create(ctx context.Context, op *Operator) error
	Update(ctx context.Context, op *Operator) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// IncrementFailedLogins atomically bumps the failed-login counter and
	// stamps the failure time, returning the new counter value. Two racing
	// failures may both observe stale reads elsewhere, but the increment
	// itself must be a single row-level update so a lockout is never lost.
	IncrementFailedLogins(ctx context.Context, id uuid.UUID, at time.Time) (int, error)

	// Lock marks the operator locked until the given time.
	Lock(ctx context.Context, id uuid.UUID, until time.Time) error

	// ResetLockState clears the failed-login counter and lock fields.
	// When lastLogin is non-nil the successful-login timestamp is stamped
	// in the same update.
	ResetLockState(ctx context.Context, id uuid.UUID, lastLogin *time.Time) error
}

// SessionStore persists session records.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// ListActiveByOperator returns non-revoked, unexpired sessions ordered
	// by most recent activity first.
	ListActiveByOperator(ctx context.Context, operatorID uuid.UUID, now time.Time) ([]*Session, error)

	// Rotate overwrites the hashed refresh secret and activity metadata.
	// The session id and creation time are untouched.
	Rotate(ctx context.Context, id uuid.UUID, refreshTokenHash, ip, userAgent string, at time.Time) error

	// Revoke is idempotent: revoking a missing or already-revoked session
	// is a no-op.
	Revoke(ctx context.Context, id uuid.UUID) error

	RevokeAllForOperator(ctx context.Context, operatorID uuid.UUID) error

	// DeleteExpired removes sessions whose expiry has elapsed and reports
	// how many rows were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoginAttemptStore appends audit records. Write-only.
type LoginAttemptStore interface {
	Insert(ctx context.Context, attempt *LoginAttempt) error
}
