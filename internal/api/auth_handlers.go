package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"castwave/internal/storage"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

// Login exchanges admin credentials for a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid login payload"))
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("email and password are required"))
		return
	}

	admin, err := h.Store.AuthenticateAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid email or password"))
			return
		}
		h.Logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("login failed"))
		return
	}

	token, expiresAt, err := h.Tokens.Issue(admin.ID)
	if err != nil {
		h.Logger.Error("token issue failed", "admin_id", admin.ID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("login failed"))
		return
	}
	h.Logger.Info("admin logged in", "admin_id", admin.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	})
}
