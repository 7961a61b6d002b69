package api

import (
	"context"
	"fmt"
	"net/http"

	"castwave/internal/models"
)

type contextKey string

const adminContextKey contextKey = "authenticatedAdmin"

// ContextWithAdmin stores the authenticated admin in the provided context.
func ContextWithAdmin(ctx context.Context, admin models.Admin) context.Context {
	return context.WithValue(ctx, adminContextKey, admin)
}

// AdminFromContext retrieves the authenticated admin from context if present.
func AdminFromContext(ctx context.Context) (models.Admin, bool) {
	admin, ok := ctx.Value(adminContextKey).(models.Admin)
	return admin, ok
}

// AuthenticateRequest validates the bearer token on the request and returns
// the admin it belongs to.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.Admin, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.Admin{}, fmt.Errorf("missing bearer token")
	}
	adminID, err := h.Tokens.Verify(token)
	if err != nil {
		return models.Admin{}, fmt.Errorf("invalid or expired token")
	}
	admin, err := h.Store.GetAdmin(r.Context(), adminID)
	if err != nil {
		return models.Admin{}, fmt.Errorf("account not found")
	}
	return admin, nil
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (models.Admin, bool) {
	admin, ok := AdminFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return models.Admin{}, false
	}
	return admin, true
}
