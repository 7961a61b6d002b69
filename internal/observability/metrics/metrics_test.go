package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRecorderRendersCounters(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/api/episodes", 200, 25*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/episodes", 200, 5*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/episodes/abc123", 404, time.Millisecond)
	recorder.ObserveUpload("audio", "success")
	recorder.ObserveUpload("cover", "rejected")

	resp := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(resp, httptest.NewRequest("GET", "/metrics", nil))

	body := resp.Body.String()
	for _, want := range []string{
		`castwave_http_requests_total{method="GET",path="/api/episodes",status="200"} 2`,
		`castwave_http_requests_total{method="GET",path="/api/episodes/:id",status="404"} 1`,
		`castwave_media_uploads_total{class="audio",outcome="success"} 1`,
		`castwave_media_uploads_total{class="cover",outcome="rejected"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/api/episodes":              "/api/episodes",
		"/api/episodes/1234":         "/api/episodes/:id",
		"/api/admin/episodes":        "/api/admin/episodes",
		"/api/admin/episodes/1234":   "/api/admin/episodes/:id",
		"/health":                    "/health",
		"/api/admin/episodes/a/b/cd": "/api/admin/episodes/:id",
	}
	for input, want := range cases {
		if got := normalizePath(input); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", input, got, want)
		}
	}
}
