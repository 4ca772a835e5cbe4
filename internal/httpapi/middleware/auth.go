package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vpnpanel/auth-service/internal/httpapi"
	"github.com/vpnpanel/auth-service/internal/store"
	"github.com/vpnpanel/auth-service/internal/token"
)

// TokenValidator defines the capabilities required to validate bearer tokens.
type TokenValidator interface {
	VerifyAccessToken(tokenStr string) (*token.Claims, error)
	GetOperator(ctx context.Context, id uuid.UUID) (*store.Operator, error)
}

// Principal is the authenticated identity attached to the request context.
type Principal struct {
	OperatorID uuid.UUID
	Email      string
	Role       string
	SessionID  uuid.UUID
}

// Auth provides JWT-backed authentication middleware.
type Auth struct {
	validator TokenValidator
}

// NewAuth creates a new instance.
func NewAuth(validator TokenValidator) *Auth {
	return &Auth{validator: validator}
}

// RequireAuth ensures incoming requests possess a valid bearer access
// token whose subject still resolves to an active operator.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeAuthError(w, "missing bearer token")
			return
		}

		tokenStr := strings.TrimSpace(authHeader[7:])
		claims, err := a.validator.VerifyAccessToken(tokenStr)
		if err != nil {
			writeAuthError(w, "invalid token")
			return
		}

		operatorID, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeAuthError(w, "invalid token")
			return
		}
		sessionID, err := uuid.Parse(claims.SessionID)
		if err != nil {
			writeAuthError(w, "invalid token")
			return
		}

		op, err := a.validator.GetOperator(r.Context(), operatorID)
		if err != nil {
			writeAuthError(w, "invalid token")
			return
		}

		principal := &Principal{
			OperatorID: op.ID,
			Email:      op.Email,
			Role:       op.Role,
			SessionID:  sessionID,
		}
		ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeAuthError(w http.ResponseWriter, message string) {
	httpapi.Error(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

type principalContextKey struct{}

// PrincipalFromContext extracts the identity stored by RequireAuth.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(*Principal)
	return principal, ok && principal != nil
}
