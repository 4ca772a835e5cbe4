package postgres

import (
	"context"
	"fmt"

	"github.com/vpnpanel/auth-service/internal/store"
)

// LoginAttempts implements store.LoginAttemptStore.
type LoginAttempts struct {
	db DB
}

// NewLoginAttempts constructs the audit-trail adapter.
func NewLoginAttempts(db DB) *LoginAttempts {
	return &LoginAttempts{db: db}
}

// Insert appends a login-attempt audit row.
func (r *LoginAttempts) Insert(ctx context.Context, attempt *store.LoginAttempt) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, email, operator_id, ip_address, user_agent, success, failure_reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, attempt.ID, attempt.Email, attempt.OperatorID, attempt.IPAddress, attempt.UserAgent,
		attempt.Success, attempt.FailureReason, attempt.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	return nil
}
