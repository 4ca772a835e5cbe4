// Package operator implements back-office management of administrative
// accounts: creation, profile updates, password changes, deactivation
// and lockout reset.
package operator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vpnpanel/auth-service/internal/password"
	"github.com/vpnpanel/auth-service/internal/store"
)

var (
	// ErrNotFound is returned when the operator id does not resolve.
	ErrNotFound = errors.New("operator not found")
	// ErrEmailTaken is returned on duplicate email registration.
	ErrEmailTaken = errors.New("email already registered")
	// ErrWeakPassword is returned when a password fails policy validation.
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// Service manages operator accounts.
type Service struct {
	operators store.OperatorStore
	sessions  store.SessionStore
	hasher    *password.Hasher
	logger    *zap.Logger
}

// New constructs the operator service.
func New(operators store.OperatorStore, sessions store.SessionStore, hasher *password.Hasher, logger *zap.Logger) *Service {
	return &Service{
		operators: operators,
		sessions:  sessions,
		hasher:    hasher,
		logger:    logger,
	}
}

// CreateInput captures the operator creation payload.
type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// UpdateInput captures a partial profile update. Nil fields are left
// unchanged.
type UpdateInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *string
}

// Create registers a new operator account, active by default.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.Operator, error) {
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.operators.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email uniqueness: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	role := in.Role
	if role == "" {
		role = "admin"
	}
	op := &store.Operator{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.operators.Create(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// List returns all operators, newest first.
func (s *Service) List(ctx context.Context) ([]*store.Operator, error) {
	return s.operators.List(ctx)
}

// Get returns one operator by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*store.Operator, error) {
	op, err := s.operators.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return op, nil
}

// Update applies a partial profile update, re-checking email uniqueness
// when the email changes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*store.Operator, error) {
	op, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil && *in.Email != op.Email {
		if _, err := s.operators.GetByEmail(ctx, *in.Email); err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("check email uniqueness: %w", err)
		}
		op.Email = *in.Email
	}
	if in.FirstName != nil {
		op.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		op.LastName = *in.LastName
	}
	if in.Role != nil {
		op.Role = *in.Role
	}

	if err := s.operators.Update(ctx, op); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return op, nil
}

// ChangePassword replaces the operator's password.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.operators.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Deactivate soft-disables the account and revokes its live sessions so
// an admin lockout takes effect immediately.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*store.Operator, error) {
	op, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.operators.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.sessions.RevokeAllForOperator(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions of deactivated operator",
			zap.String("operator_id", id.String()), zap.Error(err))
	}

	op.Active = false
	return op, nil
}

// Unlock is the administrator-initiated reset of the failed-login
// counter and lock fields.
func (s *Service) Unlock(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.operators.ResetLockState(ctx, id, nil)
}

// ValidatePassword enforces the password policy: at least 8 characters
// with upper case, lower case, a digit and a special character.
func ValidatePassword(pw string) error {
	if len(pw) < 8 {
		return ErrWeakPassword
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(`!@#$%^&*(),.?":{}|<>`, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}
