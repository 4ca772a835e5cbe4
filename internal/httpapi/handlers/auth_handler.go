package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vpnpanel/auth-service/internal/httpapi"
	authmiddleware "github.com/vpnpanel/auth-service/internal/httpapi/middleware"
	"github.com/vpnpanel/auth-service/internal/services/auth"
	"github.com/vpnpanel/auth-service/internal/store"
)

// AuthService describes the auth layer capabilities used by HTTP handlers.
type AuthService interface {
	Login(ctx context.Context, in auth.LoginInput) (*auth.AuthResult, error)
	Refresh(ctx context.Context, in auth.RefreshInput) (*auth.AuthResult, error)
	Logout(ctx context.Context, operatorID, sessionID uuid.UUID) error
	LogoutAll(ctx context.Context, operatorID uuid.UUID) error
	GetSessions(ctx context.Context, operatorID uuid.UUID) ([]*store.Session, error)
	RevokeSession(ctx context.Context, operatorID, sessionID uuid.UUID) error
	GetOperator(ctx context.Context, id uuid.UUID) (*store.Operator, error)
}

// AuthHandler exposes HTTP endpoints for authentication flows.
type AuthHandler struct {
	service AuthService
	logger  *zap.Logger
}

// NewAuthHandler constructs a handler.
func NewAuthHandler(service AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// Login authenticates an operator and issues tokens.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.Error(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload", nil)
		return
	}

	result, err := h.service.Login(r.Context(), auth.LoginInput{
		Email:       req.Email,
		Password:    req.Password,
		IPAddress:   httpapi.ClientIP(r),
		UserAgent:   httpapi.UserAgent(r),
		Fingerprint: req.Fingerprint,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, h.toAuthResponse(result))
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.Error(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload", nil)
		return
	}

	result, err := h.service.Refresh(r.Context(), auth.RefreshInput{
		RefreshToken: req.RefreshToken,
		IPAddress:    httpapi.ClientIP(r),
		UserAgent:    httpapi.UserAgent(r),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, map[string]any{
		"access_token":  result.AccessToken,
		"token_type":    "Bearer",
		"expires_in":    int(time.Until(result.AccessTokenExpiresAt).Seconds()),
		"refresh_token": result.RefreshToken,
	})
}

// Logout revokes the caller's current session. Always 204 for a valid
// bearer token: logging out of an already-gone session is not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := authmiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.Error(w, http.StatusUnauthorized, "unauthorized", "missing auth context", nil)
		return
	}

	if err := h.service.Logout(r.Context(), principal.OperatorID, principal.SessionID); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every active session of the caller.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := authmiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.Error(w, http.StatusUnauthorized, "unauthorized", "missing auth context", nil)
		return
	}

	if err := h.service.LogoutAll(r.Context(), principal.OperatorID); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions returns the caller's active sessions, most recent first.
func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := authmiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.Error(w, http.StatusUnauthorized, "unauthorized", "missing auth context", nil)
		return
	}

	sessions, err := h.service.GetSessions(r.Context(), principal.OperatorID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView(sess, principal.SessionID))
	}
	httpapi.JSON(w, http.StatusOK, map[string]any{"sessions": views})
}

// RevokeSession revokes one of the caller's sessions by id.
func (h *AuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := authmiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.Error(w, http.StatusUnauthorized, "unauthorized", "missing auth context", nil)
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpapi.Error(w, http.StatusBadRequest, "invalid_request", "invalid session id", nil)
		return
	}

	if err := h.service.RevokeSession(r.Context(), principal.OperatorID, sessionID); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated operator profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := authmiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpapi.Error(w, http.StatusUnauthorized, "unauthorized", "missing auth context", nil)
		return
	}

	op, err := h.service.GetOperator(r.Context(), principal.OperatorID)
	if err != nil {
		h.logger.Error("failed to load operator in /me", zap.Error(err))
		httpapi.Error(w, http.StatusInternalServerError, "server_error", "failed to load operator", nil)
		return
	}
	httpapi.JSON(w, http.StatusOK, operatorView(op))
}

func (h *AuthHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *auth.LockedError
	switch {
	case errors.As(err, &locked):
		httpapi.Error(w, http.StatusUnauthorized, "account_locked",
			"account temporarily locked", map[string]any{"retry_after_minutes": locked.RemainingMinutes})
	case errors.Is(err, auth.ErrInvalidCredentials):
		httpapi.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", nil)
	case errors.Is(err, auth.ErrMissingRefreshToken):
		httpapi.Error(w, http.StatusBadRequest, "invalid_request", "refresh token required", nil)
	case errors.Is(err, auth.ErrInvalidToken):
		httpapi.Error(w, http.StatusUnauthorized, "invalid_token", "refresh token invalid or expired", nil)
	case errors.Is(err, auth.ErrInvalidSession):
		httpapi.Error(w, http.StatusUnauthorized, "invalid_session", "session invalid or expired", nil)
	case errors.Is(err, auth.ErrSessionNotOwned):
		httpapi.Error(w, http.StatusUnauthorized, "unauthorized", "session not found or not owned", nil)
	default:
		reqID := chimiddleware.GetReqID(r.Context())
		h.logger.Error("auth handler error", zap.String("request_id", reqID), zap.Error(err))
		httpapi.Error(w, http.StatusInternalServerError, "server_error", "internal server error", map[string]any{"request_id": reqID})
	}
}

func (h *AuthHandler) toAuthResponse(result *auth.AuthResult) map[string]any {
	return map[string]any{
		"access_token":  result.AccessToken,
		"token_type":    "Bearer",
		"expires_in":    int(time.Until(result.AccessTokenExpiresAt).Seconds()),
		"refresh_token": result.RefreshToken,
		"user":          operatorView(result.Operator),
		"session": map[string]any{
			"id":         result.SessionID,
			"expires_at": result.SessionExpiresAt,
		},
	}
}

func operatorView(op *store.Operator) map[string]any {
	if op == nil {
		return nil
	}
	return map[string]any{
		"id":            op.ID,
		"email":         op.Email,
		"first_name":    op.FirstName,
		"last_name":     op.LastName,
		"role":          op.Role,
		"active":        op.Active,
		"last_login_at": op.LastLoginAt,
		"created_at":    op.CreatedAt,
		"updated_at":    op.UpdatedAt,
	}
}

// sessionView projects a session to its non-secret fields.
func sessionView(sess *store.Session, current uuid.UUID) map[string]any {
	return map[string]any{
		"id":                 sess.ID,
		"ip_address":         sess.IPAddress,
		"user_agent":         sess.UserAgent,
		"device_fingerprint": sess.DeviceFingerprint,
		"created_at":         sess.CreatedAt,
		"last_activity_at":   sess.LastActivityAt,
		"expires_at":         sess.ExpiresAt,
		"current":            sess.ID == current,
	}
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Fingerprint string `json:"fingerprint"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
