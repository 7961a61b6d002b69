package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"castwave/internal/api"
	"castwave/internal/auth"
	"castwave/internal/ingest"
	"castwave/internal/media"
	"castwave/internal/storage"
)

type noopUploader struct{}

func (noopUploader) Upload(_ context.Context, _ []byte, filename, _ string, class media.AssetClass) (string, error) {
	return fmt.Sprintf("https://cdn.example.com/%s/%s", class, filename), nil
}

func newTestServer(t *testing.T, cfg Config) (*Server, *storage.MemoryRepository, *auth.TokenManager) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	if _, err := repo.CreateAdmin(context.Background(), "ops@example.com", "Ops", "a strong passphrase"); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	handler := api.NewHandler(repo, tokens, ingest.New(repo, noopUploader{}, nil), nil)
	srv, err := New(handler, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, repo, tokens
}

func adminToken(t *testing.T, repo *storage.MemoryRepository, tokens *auth.TokenManager) string {
	t.Helper()
	admin, err := repo.AuthenticateAdmin(context.Background(), "ops@example.com", "a strong passphrase")
	if err != nil {
		t.Fatalf("AuthenticateAdmin: %v", err)
	}
	token, _, err := tokens.Issue(admin.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func TestPublicRoutesNeedNoToken(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{})
	for _, path := range []string{"/health", "/metrics", "/api/episodes"} {
		resp := httptest.NewRecorder()
		srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.Code)
		}
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	srv, repo, tokens := newTestServer(t, Config{})

	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/episodes", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("no-token status = %d, want 401", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/episodes", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp = httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad-token status = %d, want 401", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/episodes", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, repo, tokens))
	resp = httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("valid-token status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
}

func TestEndToEndCreateAndPublicRead(t *testing.T) {
	srv, repo, tokens := newTestServer(t, Config{})
	token := adminToken(t, repo, tokens)

	body := `{"title":"Wired","audio_url":"https://e/a.mp3","thumbnail_url":"https://e/t.png"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/episodes", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	resp = httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/episodes/"+created.ID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("public get status = %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{})
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id header")
	}
	if got := resp.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "caller-supplied")
	resp = httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)
	if got := resp.Header().Get("X-Request-Id"); got != "caller-supplied" {
		t.Fatalf("X-Request-Id = %q, want caller-supplied", got)
	}
}

func TestLoginRateLimit(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{
		RateLimit: RateLimitConfig{LoginLimit: 2, LoginWindow: time.Minute},
	})
	payload := `{"email":"ops@example.com","password":"wrong password!"}`
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.9:1234"
		last = httptest.NewRecorder()
		srv.Handler().ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d, want 429", last.Code)
	}
}

func TestCORSPolicy(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{
		CORS: CORSConfig{AllowedOrigins: []string{"https://admin.example.com"}},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/episodes", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Fatalf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/episodes", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp = httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("blocked origin status = %d, want 403", resp.Code)
	}
}

func TestGlobalRateLimit(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{
		RateLimit: RateLimitConfig{GlobalRPS: 0.001, GlobalBurst: 1},
	})
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("first request status = %d", resp.Code)
	}
	resp = httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", resp.Code)
	}
}
