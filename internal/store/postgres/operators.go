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

// Operators implements store.OperatorStore.
type Operators struct {
	db DB
}

// NewOperators constructs the operator adapter.
func NewOperators(db DB) *Operators {
	return &Operators{db: db}
}

const operatorColumns = `id, email, password_hash, first_name, last_name, role, active,
		failed_login_attempts, locked, locked_until, last_login_at, last_failed_at,
		created_at, updated_at`

func scanOperator(row pgx.Row) (*store.Operator, error) {
	var op store.Operator
	err := row.Scan(
		&op.ID, &op.Email, &op.PasswordHash, &op.FirstName, &op.LastName, &op.Role,
		&op.Active, &op.FailedLoginAttempts, &op.Locked, &op.LockedUntil,
		&op.LastLoginAt, &op.LastFailedAt, &op.CreatedAt, &op.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan operator: %w", err)
	}
	return &op, nil
}

// GetByEmail loads an operator by exact email match.
func (r *Operators) GetByEmail(ctx context.Context, email string) (*store.Operator, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+operatorColumns+`
		FROM operators
		WHERE email = $1
	`, email)
	return scanOperator(row)
}

// GetByID loads an operator by id.
func (r *Operators) GetByID(ctx context.Context, id uuid.UUID) (*store.Operator, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+operatorColumns+`
		FROM operators
		WHERE id = $1
	`, id)
	return scanOperator(row)
}

// List returns all operators, newest first.
func (r *Operators) List(ctx context.Context) ([]*store.Operator, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+operatorColumns+`
		FROM operators
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()

	var ops []*store.Operator
	for rows.Next() {
		op, err := scanOperator(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Create inserts a new operator row.
func (r *Operators) Create(ctx context.Context, op *store.Operator) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO operators (id, email, password_hash, first_name, last_name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, op.ID, op.Email, op.PasswordHash, op.FirstName, op.LastName, op.Role, op.Active, op.CreatedAt, op.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create operator: %w", err)
	}
	return nil
}

// Update persists profile fields (email, names, role).
func (r *Operators) Update(ctx context.Context, op *store.Operator) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE operators
		SET email = $2, first_name = $3, last_name = $4, role = $5, updated_at = now()
		WHERE id = $1
	`, op.ID, op.Email, op.FirstName, op.LastName, op.Role)
	if err != nil {
		return fmt.Errorf("update operator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *Operators) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE operators SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update operator password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetActive toggles the soft-deactivation flag.
func (r *Operators) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE operators SET active = $2, updated_at = now() WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("set operator active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// IncrementFailedLogins bumps the failure counter in a single row-level
// update and returns the new value.
func (r *Operators) IncrementFailedLogins(ctx context.Context, id uuid.UUID, at time.Time) (int, error) {
	var attempts int
	err := r.db.QueryRow(ctx, `
		UPDATE operators
		SET failed_login_attempts = failed_login_attempts + 1, last_failed_at = $2, updated_at = now()
		WHERE id = $1
		RETURNING failed_login_attempts
	`, id, at).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("increment failed logins: %w", err)
	}
	return attempts, nil
}

// Lock marks the operator locked until the given time.
func (r *Operators) Lock(ctx context.Context, id uuid.UUID, until time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE operators SET locked = true, locked_until = $2, updated_at = now() WHERE id = $1
	`, id, until)
	if err != nil {
		return fmt.Errorf("lock operator: %w", err)
	}
	return nil
}

// ResetLockState clears the failure counter and lock fields, optionally
// stamping a successful login in the same update.
func (r *Operators) ResetLockState(ctx context.Context, id uuid.UUID, lastLogin *time.Time) error {
	var err error
	if lastLogin != nil {
		_, err = r.db.Exec(ctx, `
			UPDATE operators
			SET failed_login_attempts = 0, locked = false, locked_until = NULL,
				last_login_at = $2, updated_at = now()
			WHERE id = $1
		`, id, *lastLogin)
	} else {
		_, err = r.db.Exec(ctx, `
			UPDATE operators
			SET failed_login_attempts = 0, locked = false, locked_until = NULL, updated_at = now()
			WHERE id = $1
		`, id)
	}
	if err != nil {
		return fmt.Errorf("reset lock state: %w", err)
	}
	return nil
}
