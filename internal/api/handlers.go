// Package api implements the HTTP handlers for the catalog: the public
// episode listing, the authenticated admin surface, login, and health.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"castwave/internal/auth"
	"castwave/internal/ingest"
	"castwave/internal/storage"
)

// Handler bundles the dependencies the HTTP handlers need.
type Handler struct {
	Store  storage.Repository
	Tokens *auth.TokenManager
	Ingest *ingest.Orchestrator
	Logger *slog.Logger
}

// NewHandler builds a Handler around the repository, token manager, and
// ingest orchestrator.
func NewHandler(store storage.Repository, tokens *auth.TokenManager, orchestrator *ingest.Orchestrator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Store: store, Tokens: tokens, Ingest: orchestrator, Logger: logger}
}

// ExtractToken pulls the bearer token from the Authorization header.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Health reports whether the process and its repository are reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		h.Logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
