package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vpnpanel/auth-service/internal/httpapi"
	"github.com/vpnpanel/auth-service/internal/services/operator"
	"github.com/vpnpanel/auth-service/internal/store"
)

// OperatorService describes the operator management capabilities used by
// HTTP handlers.
type OperatorService interface {
	Create(ctx context.Context, in operator.CreateInput) (*store.Operator, error)
	List(ctx context.Context) ([]*store.Operator, error)
	Get(ctx context.Context, id uuid.UUID) (*store.Operator, error)
	Update(ctx context.Context, id uuid.UUID, in operator.UpdateInput) (*store.Operator, error)
	ChangePassword(ctx context.Context, id uuid.UUID, newPassword string) error
	Unlock(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) (*store.Operator, error)
}

// OperatorHandler exposes operator management endpoints.
type OperatorHandler struct {
	service OperatorService
	logger  *zap.Logger
}

// NewOperatorHandler constructs a handler.
func NewOperatorHandler(service OperatorService, logger *zap.Logger) *OperatorHandler {
	return &OperatorHandler{
		service: service,
		logger:  logger,
	}
}

// Create registers a new operator account.
func (h *OperatorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOperatorRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.Error(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload", nil)
		return
	}

	op, err := h.service.Create(r.Context(), operator.CreateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, operatorView(op))
}

// List returns every operator account.
func (h *OperatorHandler) List(w http.ResponseWriter, r *http.Request) {
	ops, err := h.service.List(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	views := make([]map[string]any, 0, len(ops))
	for _, op := range ops {
		views = append(views, operatorView(op))
	}
	httpapi.JSON(w, http.StatusOK, map[string]any{"operators": views})
}

// Get returns a single operator by id.
func (h *OperatorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	op, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, operatorView(op))
}

// Update applies a partial update to an operator profile.
func (h *OperatorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req updateOperatorRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.Error(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload", nil)
		return
	}

	op, err := h.service.Update(r.Context(), id, operator.UpdateInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, operatorView(op))
}

// ChangePassword sets a new password for an operator.
func (h *OperatorHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.Error(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload", nil)
		return
	}

	if err := h.service.ChangePassword(r.Context(), id, req.NewPassword); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unlock clears an operator's lockout state.
func (h *OperatorHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unlock(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deactivate disables an operator account and revokes its sessions.
func (h *OperatorHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	op, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, operatorView(op))
}

func (h *OperatorHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpapi.Error(w, http.StatusBadRequest, "invalid_request", "invalid operator id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *OperatorHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, operator.ErrNotFound):
		httpapi.Error(w, http.StatusNotFound, "not_found", "operator not found", nil)
	case errors.Is(err, operator.ErrEmailTaken):
		httpapi.Error(w, http.StatusConflict, "email_taken", "email already registered", nil)
	case errors.Is(err, operator.ErrWeakPassword):
		httpapi.Error(w, http.StatusUnprocessableEntity, "weak_password",
			"password must be at least 8 characters with upper, lower, digit and special characters", nil)
	default:
		reqID := chimiddleware.GetReqID(r.Context())
		h.logger.Error("operator handler error", zap.String("request_id", reqID), zap.Error(err))
		httpapi.Error(w, http.StatusInternalServerError, "server_error", "internal server error", map[string]any{"request_id": reqID})
	}
}

type createOperatorRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type updateOperatorRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}
