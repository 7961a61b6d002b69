// Package metrics aggregates in-memory counters for HTTP traffic and media
// upload outcomes and renders them in Prometheus text format on /metrics.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

type uploadLabel struct {
	class   string
	outcome string
}

// Recorder accumulates request and upload counters behind a mutex. The zero
// value is not usable; construct instances with New.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	uploadCount     map[uploadLabel]uint64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		uploadCount:     make(map[uploadLabel]uint64),
	}
}

// Default returns the singleton Recorder shared by packages that do not carry
// their own instrumentation handle.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration by method,
// normalized path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
}

// ObserveUpload counts one storage upload attempt for the asset class with
// the given outcome (success, timeout, transport, rejected).
func (r *Recorder) ObserveUpload(class, outcome string) {
	label := uploadLabel{class: class, outcome: outcome}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploadCount[label]++
}

// Handler exposes the accumulated counters in Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.write(w)
	})
}

func (r *Recorder) write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fmt.Fprintln(w, "# HELP castwave_http_requests_total Total HTTP requests by method, path, and status.")
	fmt.Fprintln(w, "# TYPE castwave_http_requests_total counter")
	for _, label := range sortedRequestLabels(r.requestCount) {
		fmt.Fprintf(w, "castwave_http_requests_total{method=%q,path=%q,status=%q} %d\n",
			label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP castwave_http_request_duration_seconds_sum Cumulative request duration by method, path, and status.")
	fmt.Fprintln(w, "# TYPE castwave_http_request_duration_seconds_sum counter")
	for _, label := range sortedRequestLabels(r.requestDuration) {
		fmt.Fprintf(w, "castwave_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %f\n",
			label.method, label.path, label.status, r.requestDuration[label].Seconds())
	}

	fmt.Fprintln(w, "# HELP castwave_media_uploads_total Storage upload attempts by asset class and outcome.")
	fmt.Fprintln(w, "# TYPE castwave_media_uploads_total counter")
	uploads := make([]uploadLabel, 0, len(r.uploadCount))
	for label := range r.uploadCount {
		uploads = append(uploads, label)
	}
	sort.Slice(uploads, func(i, j int) bool {
		if uploads[i].class != uploads[j].class {
			return uploads[i].class < uploads[j].class
		}
		return uploads[i].outcome < uploads[j].outcome
	})
	for _, label := range uploads {
		fmt.Fprintf(w, "castwave_media_uploads_total{class=%q,outcome=%q} %d\n",
			label.class, label.outcome, r.uploadCount[label])
	}
}

func sortedRequestLabels[V any](m map[requestLabel]V) []requestLabel {
	labels := make([]requestLabel, 0, len(m))
	for label := range m {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := labels[i], labels[j]
		if a.path != b.path {
			return a.path < b.path
		}
		if a.method != b.method {
			return a.method < b.method
		}
		return a.status < b.status
	})
	return labels
}

// normalizePath collapses id-bearing segments so metric cardinality stays
// bounded.
func normalizePath(path string) string {
	for _, prefix := range []string{"/api/admin/episodes/", "/api/episodes/"} {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return prefix + ":id"
		}
	}
	return path
}
