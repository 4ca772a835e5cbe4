package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpnpanel/auth-service/internal/store"
	"github.com/vpnpanel/auth-service/internal/token"
)

type stubValidator struct {
	claims   *token.Claims
	verify   error
	operator *store.Operator
	lookup   error
}

func (s *stubValidator) VerifyAccessToken(string) (*token.Claims, error) {
	if s.verify != nil {
		return nil, s.verify
	}
	return s.claims, nil
}

func (s *stubValidator) GetOperator(context.Context, uuid.UUID) (*store.Operator, error) {
	if s.lookup != nil {
		return nil, s.lookup
	}
	return s.operator, nil
}

func validStub() (*stubValidator, uuid.UUID, uuid.UUID) {
	operatorID := uuid.New()
	sessionID := uuid.New()
	return &stubValidator{
		claims: &token.Claims{
			Email:     "ops@example.com",
			Role:      "admin",
			SessionID: sessionID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: operatorID.String(),
			},
		},
		operator: &store.Operator{
			ID:     operatorID,
			Email:  "ops@example.com",
			Role:   "admin",
			Active: true,
		},
	}, operatorID, sessionID
}

func runRequireAuth(t *testing.T, validator TokenValidator, header string) (*httptest.ResponseRecorder, *Principal) {
	t.Helper()

	var captured *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()

	NewAuth(validator).RequireAuth(next).ServeHTTP(rec, req)
	return rec, captured
}

func TestRequireAuthInjectsPrincipal(t *testing.T) {
	validator, operatorID, sessionID := validStub()

	rec, principal := runRequireAuth(t, validator, "Bearer some-token")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, operatorID, principal.OperatorID)
	assert.Equal(t, sessionID, principal.SessionID)
	assert.Equal(t, "ops@example.com", principal.Email)
	assert.Equal(t, "admin", principal.Role)
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	validator, _, _ := validStub()

	rec, principal := runRequireAuth(t, validator, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, principal)

	rec, _ = runRequireAuth(t, validator, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	validator, _, _ := validStub()
	validator.verify = token.ErrInvalidToken

	rec, principal := runRequireAuth(t, validator, "Bearer bad-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, principal)
}

func TestRequireAuthRejectsUnresolvableOperator(t *testing.T) {
	validator, _, _ := validStub()
	validator.lookup = store.ErrNotFound

	rec, principal := runRequireAuth(t, validator, "Bearer some-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "deactivated or deleted subjects fail closed")
	assert.Nil(t, principal)
}

func TestRequireAuthRejectsMalformedClaims(t *testing.T) {
	validator, _, _ := validStub()
	validator.claims.Subject = "not-a-uuid"

	rec, _ := runRequireAuth(t, validator, "Bearer some-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	validator, _, _ = validStub()
	validator.claims.SessionID = "not-a-uuid"

	rec, _ = runRequireAuth(t, validator, "Bearer some-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthErrorsAreOpaque(t *testing.T) {
	validator, _, _ := validStub()
	validator.lookup = errors.New("db down")

	rec, _ := runRequireAuth(t, validator, "Bearer some-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestPrincipalFromContextMissing(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)
}
