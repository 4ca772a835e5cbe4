package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpnpanel/auth-service/internal/store"
	"github.com/vpnpanel/auth-service/internal/store/postgres"
)

var sessionColumns = []string{
	"id", "operator_id", "refresh_token_hash", "ip_address", "user_agent",
	"device_fingerprint", "created_at", "last_activity_at", "expires_at", "revoked",
}

func sampleSession() *store.Session {
	now := time.Now().UTC()
	return &store.Session{
		ID:               uuid.New(),
		OperatorID:       uuid.New(),
		RefreshTokenHash: "$2a$04$hash",
		IPAddress:        "203.0.113.7",
		UserAgent:        "cli/1.0",
		CreatedAt:        now,
		LastActivityAt:   now,
		ExpiresAt:        now.Add(7 * 24 * time.Hour),
	}
}

func sessionRows(sess *store.Session) *pgxmock.Rows {
	return pgxmock.NewRows(sessionColumns).AddRow(
		sess.ID, sess.OperatorID, sess.RefreshTokenHash, sess.IPAddress, sess.UserAgent,
		sess.DeviceFingerprint, sess.CreatedAt, sess.LastActivityAt, sess.ExpiresAt, sess.Revoked,
	)
}

func TestSessionsCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := postgres.NewSessions(mock)
	sess := sampleSession()

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sess.ID, sess.OperatorID, sess.RefreshTokenHash, sess.IPAddress, sess.UserAgent,
			sess.DeviceFingerprint, sess.CreatedAt, sess.LastActivityAt, sess.ExpiresAt, sess.Revoked).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.Create(context.Background(), sess))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionsGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := postgres.NewSessions(mock)
	sess := sampleSession()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id").
			WithArgs(sess.ID).
			WillReturnRows(sessionRows(sess))

		got, err := r.GetByID(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.OperatorID, got.OperatorID)
	})

	t.Run("not found", func(t *testing.T) {
		missing := uuid.New()
		mock.ExpectQuery("SELECT (.+) FROM sessions WHERE id").
			WithArgs(missing).
			WillReturnError(pgx.ErrNoRows)

		_, err := r.GetByID(ctx, missing)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionsListActiveByOperator(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := postgres.NewSessions(mock)
	sess := sampleSession()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE operator_id = \\$1 AND revoked = false AND expires_at > \\$2").
		WithArgs(sess.OperatorID, now).
		WillReturnRows(sessionRows(sess))

	sessions, err := r.ListActiveByOperator(context.Background(), sess.OperatorID, now)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sess.ID, sessions[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionsRotate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := postgres.NewSessions(mock)
	id := uuid.New()
	at := time.Now().UTC()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("UPDATE sessions SET refresh_token_hash").
			WithArgs(id, "new-hash", at, "ip", "ua").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, r.Rotate(ctx, id, "new-hash", "ip", "ua", at))
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		mock.ExpectExec("UPDATE sessions SET refresh_token_hash").
			WithArgs(id, "new-hash", at, "ip", "ua").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, r.Rotate(ctx, id, "new-hash", "ip", "ua", at), store.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionsRevoke(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := postgres.NewSessions(mock)
	id := uuid.New()

	// Already-revoked rows affect zero rows and still succeed.
	mock.ExpectExec("UPDATE sessions SET revoked = true WHERE id").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, r.Revoke(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionsRevokeAllForOperator(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := postgres.NewSessions(mock)
	operatorID := uuid.New()

	mock.ExpectExec("UPDATE sessions SET revoked = true WHERE operator_id").
		WithArgs(operatorID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	assert.NoError(t, r.RevokeAllForOperator(context.Background(), operatorID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionsDeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := postgres.NewSessions(mock)
	now := time.Now().UTC()

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	deleted, err := r.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginAttemptsInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := postgres.NewLoginAttempts(mock)
	operatorID := uuid.New()
	attempt := &store.LoginAttempt{
		ID:            uuid.New(),
		Email:         "ops@example.com",
		OperatorID:    &operatorID,
		IPAddress:     "203.0.113.7",
		UserAgent:     "cli/1.0",
		Success:       false,
		FailureReason: "Invalid password (Attempt 2)",
		OccurredAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO login_attempts").
		WithArgs(attempt.ID, attempt.Email, attempt.OperatorID, attempt.IPAddress,
			attempt.UserAgent, attempt.Success, attempt.FailureReason, attempt.OccurredAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.Insert(context.Background(), attempt))
	require.NoError(t, mock.ExpectationsWereMet())
}
