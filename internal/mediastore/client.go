// Package mediastore uploads media payloads to the remote blob-storage zone
// and maps them to public CDN URLs. Every upload is a single authenticated
// PUT; there are no retries, and failures are classified so callers can
// distinguish timeouts from transport errors and upstream rejections.
package mediastore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"castwave/internal/media"
	"castwave/internal/observability/metrics"
)

const (
	// DefaultHost is the storage endpoint used when none is configured.
	DefaultHost = "storage.bunnycdn.com"

	defaultConnectTimeout  = 30 * time.Second
	defaultTransferTimeout = 300 * time.Second

	// rejectionBodyLimit bounds how much of an upstream error body is kept
	// for diagnostics.
	rejectionBodyLimit = 200
)

// ErrorKind categorises an upload failure.
type ErrorKind string

const (
	// ErrorTimeout marks an upload abandoned because the configured deadline
	// elapsed. Timeouts are surfaced, never retried.
	ErrorTimeout ErrorKind = "timeout"
	// ErrorTransport marks a connection-level failure before a response was
	// received.
	ErrorTransport ErrorKind = "transport"
	// ErrorRejected marks a non-2xx response from the storage backend.
	ErrorRejected ErrorKind = "rejected"
)

// UploadError describes a failed storage upload. Status and Body are only set
// for rejections; the access credential never appears in the message.
type UploadError struct {
	Kind   ErrorKind
	Key    string
	Status int
	Body   string
	Err    error
}

func (e *UploadError) Error() string {
	switch e.Kind {
	case ErrorRejected:
		return fmt.Sprintf("storage rejected %s: status %d: %s", e.Key, e.Status, e.Body)
	case ErrorTimeout:
		return fmt.Sprintf("storage upload %s timed out: %v", e.Key, e.Err)
	default:
		return fmt.Sprintf("storage upload %s failed: %v", e.Key, e.Err)
	}
}

func (e *UploadError) Unwrap() error { return e.Err }

// Config holds the storage zone coordinates and credentials.
type Config struct {
	Host            string
	Zone            string
	AccessKey       string
	CDNBase         string
	ConnectTimeout  time.Duration
	TransferTimeout time.Duration
}

// Client performs authenticated uploads against a single storage zone. It is
// safe for concurrent use.
type Client struct {
	cfg        Config
	scheme     string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Recorder
}

// New builds a Client from the provided configuration, applying the default
// host and the generous-but-finite connect and transfer timeouts. A nil
// recorder falls back to the shared default.
func New(cfg Config, logger *slog.Logger, recorder *metrics.Recorder) *Client {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = DefaultHost
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = defaultTransferTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.Default()
	}
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	return &Client{
		cfg:     cfg,
		scheme:  "https",
		metrics: recorder,
		httpClient: &http.Client{
			Timeout: cfg.TransferTimeout,
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   cfg.ConnectTimeout,
				ResponseHeaderTimeout: cfg.TransferTimeout,
			},
		},
		logger: logger,
	}
}

func (c *Client) configured() bool {
	return strings.TrimSpace(c.cfg.Zone) != "" &&
		strings.TrimSpace(c.cfg.AccessKey) != "" &&
		strings.TrimSpace(c.cfg.CDNBase) != ""
}

// Upload performs one authenticated PUT of the full payload and returns the
// public CDN URL for the stored object. Audio payloads are always tagged
// audio/mpeg regardless of the declared subtype; cover payloads carry the
// caller's content type. Either the object is fully stored and a URL is
// returned, or an error is returned and nothing about the attempt persists.
func (c *Client) Upload(ctx context.Context, data []byte, filename, contentType string, class media.AssetClass) (string, error) {
	if !c.configured() {
		return "", &UploadError{Kind: ErrorTransport, Err: errors.New("media storage is not configured")}
	}
	key := buildKey(class, filename)
	if class == media.AssetAudio {
		contentType = "audio/mpeg"
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	target := fmt.Sprintf("%s://%s/%s/%s", c.scheme, strings.TrimSpace(c.cfg.Host), strings.Trim(c.cfg.Zone, "/"), key)
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", &UploadError{Kind: ErrorTransport, Key: key, Err: fmt.Errorf("create upload request: %w", err)}
	}
	request.Header.Set("AccessKey", c.cfg.AccessKey)
	request.Header.Set("Content-Type", contentType)

	response, err := c.httpClient.Do(request)
	if err != nil {
		uploadErr := classifyTransportError(key, err)
		c.metrics.ObserveUpload(string(class), string(uploadErr.Kind))
		c.logger.Error("storage upload failed", "key", key, "kind", uploadErr.Kind, "error", err)
		return "", uploadErr
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(response.Body, rejectionBodyLimit))
		uploadErr := &UploadError{
			Kind:   ErrorRejected,
			Key:    key,
			Status: response.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
		c.metrics.ObserveUpload(string(class), string(ErrorRejected))
		c.logger.Error("storage rejected upload", "key", key, "status", response.StatusCode)
		return "", uploadErr
	}

	c.metrics.ObserveUpload(string(class), "success")
	publicURL := strings.TrimRight(c.cfg.CDNBase, "/") + "/" + key
	c.logger.Info("stored media object", "key", key, "size_bytes", len(data), "url", publicURL)
	return publicURL, nil
}

func classifyTransportError(key string, err error) *UploadError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &UploadError{Kind: ErrorTimeout, Key: key, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &UploadError{Kind: ErrorTimeout, Key: key, Err: err}
	}
	return &UploadError{Kind: ErrorTransport, Key: key, Err: err}
}
