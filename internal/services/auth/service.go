// Package auth composes the credential store, lockout policy, hasher,
// token issuer, session manager and audit trail into the login, refresh
// and logout flows. It is the only package exposed to transport handlers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vpnpanel/auth-service/internal/audit"
	"github.com/vpnpanel/auth-service/internal/lockout"
	"github.com/vpnpanel/auth-service/internal/password"
	"github.com/vpnpanel/auth-service/internal/session"
	"github.com/vpnpanel/auth-service/internal/store"
	"github.com/vpnpanel/auth-service/internal/token"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// inactive account alike, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout window is in force.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrInvalidToken is returned when a refresh token fails verification
	// or its subject no longer resolves to an active operator.
	ErrInvalidToken = errors.New("refresh token invalid or expired")
	// ErrInvalidSession is returned when a verified token matches no
	// active session (revoked, expired, or rotated away).
	ErrInvalidSession = errors.New("session invalid or expired")
	// ErrMissingRefreshToken is returned on structurally empty input.
	ErrMissingRefreshToken = errors.New("refresh token required")
	// ErrSessionNotOwned is returned when an operator tries to revoke a
	// session belonging to someone else.
	ErrSessionNotOwned = errors.New("session not found or not owned by operator")
)

// LockedError carries the remaining lockout minutes alongside
// ErrAccountLocked so handlers can report the wait time.
type LockedError struct {
	RemainingMinutes int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry in %d minutes", e.RemainingMinutes)
}

// Is makes errors.Is(err, ErrAccountLocked) hold for LockedError values.
func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// Service orchestrates the authentication flows.
type Service struct {
	operators store.OperatorStore
	sessions  *session.Manager
	tokens    *token.Service
	hasher    *password.Hasher
	policy    lockout.Policy
	auditor   *audit.Recorder
	logger    *zap.Logger
}

// Dependencies aggregates constructor inputs.
type Dependencies struct {
	Operators store.OperatorStore
	Sessions  *session.Manager
	Tokens    *token.Service
	Hasher    *password.Hasher
	Policy    lockout.Policy
	Auditor   *audit.Recorder
	Logger    *zap.Logger
}

// New initialises the auth service.
func New(deps Dependencies) *Service {
	return &Service{
		operators: deps.Operators,
		sessions:  deps.Sessions,
		tokens:    deps.Tokens,
		hasher:    deps.Hasher,
		policy:    deps.Policy,
		auditor:   deps.Auditor,
		logger:    deps.Logger,
	}
}

// LoginInput captures login payload and client metadata.
type LoginInput struct {
	Email       string
	Password    string
	IPAddress   string
	UserAgent   string
	Fingerprint string
}

// RefreshInput captures refresh payload and client metadata.
type RefreshInput struct {
	RefreshToken string
	IPAddress    string
	UserAgent    string
}

// AuthResult is returned on successful login or refresh.
type AuthResult struct {
	Operator             *store.Operator
	AccessToken          string
	AccessTokenExpiresAt time.Time
	RefreshToken         string
	SessionID            uuid.UUID
	SessionExpiresAt     time.Time
}

// Login authenticates an operator with email/password.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	now := time.Now().UTC()

	op, err := s.operators.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recordAttempt(in, nil, false, "User not found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup operator: %w", err)
	}

	if s.policy.IsLocked(op.Locked, op.LockedUntil, now) {
		s.recordAttempt(in, &op.ID, false, "Account locked")
		return nil, &LockedError{RemainingMinutes: lockout.RemainingMinutes(*op.LockedUntil, now)}
	}

	// The lock window elapsed: clear the stale flag before continuing.
	if op.Locked {
		if err := s.operators.ResetLockState(ctx, op.ID, nil); err != nil {
			return nil, fmt.Errorf("clear elapsed lock: %w", err)
		}
		op.Locked = false
		op.LockedUntil = nil
		op.FailedLoginAttempts = 0
	}

	if !op.Active {
		s.recordAttempt(in, &op.ID, false, "User inactive")
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(in.Password, op.PasswordHash) {
		return nil, s.handleFailedLogin(ctx, op, in, now)
	}

	if err := s.operators.ResetLockState(ctx, op.ID, &now); err != nil {
		return nil, fmt.Errorf("reset lock state: %w", err)
	}
	op.FailedLoginAttempts = 0
	op.Locked = false
	op.LockedUntil = nil
	op.LastLoginAt = &now

	sessionID := uuid.New()
	pair, err := s.tokens.Issue(op.ID, op.Email, op.Role, sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	sess, err := s.sessions.Create(ctx, sessionID, op.ID, pair.RefreshToken, in.IPAddress, in.UserAgent, in.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.recordAttempt(in, &op.ID, true, "")

	return &AuthResult{
		Operator:             op,
		AccessToken:          pair.AccessToken,
		AccessTokenExpiresAt: pair.AccessTokenExpiresAt,
		RefreshToken:         pair.RefreshToken,
		SessionID:            sess.ID,
		SessionExpiresAt:     sess.ExpiresAt,
	}, nil
}

func (s *Service) handleFailedLogin(ctx context.Context, op *store.Operator, in LoginInput, now time.Time) error {
	attempts, err := s.operators.IncrementFailedLogins(ctx, op.ID, now)
	if err != nil {
		return fmt.Errorf("increment failed logins: %w", err)
	}

	if s.policy.ShouldLock(attempts) {
		until := s.policy.LockExpiry(now)
		if err := s.operators.Lock(ctx, op.ID, until); err != nil {
			return fmt.Errorf("lock operator: %w", err)
		}
		s.recordAttempt(in, &op.ID, false, fmt.Sprintf("Invalid password (Attempt %d)", attempts))
		return &LockedError{RemainingMinutes: lockout.RemainingMinutes(until, now)}
	}

	s.recordAttempt(in, &op.ID, false, fmt.Sprintf("Invalid password (Attempt %d)", attempts))
	return ErrInvalidCredentials
}

// Refresh rotates a session's refresh secret and returns a new token
// pair bound to the same session id. Each refresh token is single-use:
// the previous one stops matching the instant rotation completes.
func (s *Service) Refresh(ctx context.Context, in RefreshInput) (*AuthResult, error) {
	if in.RefreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	claims, err := s.tokens.VerifyRefresh(in.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	operatorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	op, err := s.operators.GetByID(ctx, operatorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup operator: %w", err)
	}
	if !op.Active {
		return nil, ErrInvalidToken
	}

	sess, err := s.sessions.MatchRefreshToken(ctx, op.ID, in.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNoMatch) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("match refresh token: %w", err)
	}

	pair, err := s.tokens.Issue(op.ID, op.Email, op.Role, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.sessions.Rotate(ctx, sess.ID, pair.RefreshToken, in.IPAddress, in.UserAgent); err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	return &AuthResult{
		Operator:             op,
		AccessToken:          pair.AccessToken,
		AccessTokenExpiresAt: pair.AccessTokenExpiresAt,
		RefreshToken:         pair.RefreshToken,
		SessionID:            sess.ID,
		SessionExpiresAt:     sess.ExpiresAt,
	}, nil
}

// Logout revokes the named session. A missing or already-revoked session
// is silently accepted.
func (s *Service) Logout(ctx context.Context, operatorID, sessionID uuid.UUID) error {
	return s.sessions.Revoke(ctx, sessionID)
}

// LogoutAll revokes every active session of the operator.
func (s *Service) LogoutAll(ctx context.Context, operatorID uuid.UUID) error {
	return s.sessions.RevokeAll(ctx, operatorID)
}

// GetSessions lists the operator's active sessions, most recently active
// first. Secrets are never part of the result's projection downstream.
func (s *Service) GetSessions(ctx context.Context, operatorID uuid.UUID) ([]*store.Session, error) {
	return s.sessions.ActiveByOperator(ctx, operatorID)
}

// RevokeSession revokes one of the operator's own sessions. Unlike
// Logout, a session that is missing or owned by someone else is an
// explicit error: cross-identity revocation must not fail silently.
func (s *Service) RevokeSession(ctx context.Context, operatorID, sessionID uuid.UUID) error {
	sess, err := s.sessions.GetOwned(ctx, operatorID, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotOwned
		}
		return fmt.Errorf("load session: %w", err)
	}
	return s.sessions.Revoke(ctx, sess.ID)
}

// GetOperator resolves an operator by id, requiring it to be active.
// Used by the bearer-token middleware to re-check the subject on every
// authenticated request.
func (s *Service) GetOperator(ctx context.Context, id uuid.UUID) (*store.Operator, error) {
	op, err := s.operators.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !op.Active {
		return nil, store.ErrNotFound
	}
	return op, nil
}

// VerifyAccessToken validates a bearer access token.
func (s *Service) VerifyAccessToken(tokenString string) (*token.Claims, error) {
	return s.tokens.VerifyAccess(tokenString)
}

func (s *Service) recordAttempt(in LoginInput, operatorID *uuid.UUID, success bool, reason string) {
	s.auditor.Record(audit.Entry{
		Email:         in.Email,
		OperatorID:    operatorID,
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
		Success:       success,
		FailureReason: reason,
	})
}
