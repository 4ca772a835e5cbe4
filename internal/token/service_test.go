package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpnpanel/auth-service/internal/config"
)

func testConfig() config.TokenConfig {
	return config.TokenConfig{
		Issuer:            "https://auth.test",
		AccessSigningKey:  "access-key-for-tests",
		RefreshSigningKey: "refresh-key-for-tests",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   7 * 24 * time.Hour,
	}
}

func TestIssueAndVerify(t *testing.T) {
	svc := NewService(testConfig())
	operatorID := uuid.New()
	sessionID := uuid.New()

	pair, err := svc.Issue(operatorID, "ops@example.com", "admin", sessionID)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessTokenExpiresAt, 5*time.Second)

	access, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, operatorID.String(), access.Subject)
	assert.Equal(t, "ops@example.com", access.Email)
	assert.Equal(t, "admin", access.Role)
	assert.Equal(t, sessionID.String(), access.SessionID)
	assert.Equal(t, "https://auth.test", access.Issuer)

	refresh, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, operatorID.String(), refresh.Subject)
	assert.Equal(t, sessionID.String(), refresh.SessionID)
}

func TestIssueMintsUniqueTokens(t *testing.T) {
	svc := NewService(testConfig())
	operatorID := uuid.New()
	sessionID := uuid.New()

	// Identical claims minted back to back within the same second must
	// still produce distinct token strings.
	first, err := svc.Issue(operatorID, "ops@example.com", "admin", sessionID)
	require.NoError(t, err)
	second, err := svc.Issue(operatorID, "ops@example.com", "admin", sessionID)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	one, err := svc.VerifyRefresh(first.RefreshToken)
	require.NoError(t, err)
	two, err := svc.VerifyRefresh(second.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, one.ID)
	assert.NotEqual(t, one.ID, two.ID)
}

func TestVerifyRejectsCrossKeyUse(t *testing.T) {
	svc := NewService(testConfig())
	pair, err := svc.Issue(uuid.New(), "ops@example.com", "admin", uuid.New())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTL = -time.Minute
	svc := NewService(cfg)

	pair, err := svc.Issue(uuid.New(), "ops@example.com", "admin", uuid.New())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbageAndTampering(t *testing.T) {
	svc := NewService(testConfig())

	_, err := svc.VerifyAccess("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	pair, err := svc.Issue(uuid.New(), "ops@example.com", "admin", uuid.New())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	svc := NewService(testConfig())

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.VerifyAccess(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
