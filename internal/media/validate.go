// Package media enforces the per-asset-class content-type allow-lists and
// byte-size ceilings that gate every upload before any network call is made.
package media

import (
	"fmt"
	"strings"
)

// AssetClass identifies one of the two media kinds attached to an episode.
type AssetClass string

const (
	AssetAudio AssetClass = "audio"
	AssetCover AssetClass = "cover"
)

const (
	// MaxAudioBytes caps audio uploads at 4 MiB.
	MaxAudioBytes int64 = 4 << 20
	// MaxCoverBytes caps cover image uploads at 1 MiB.
	MaxCoverBytes int64 = 1 << 20
)

var allowedContentTypes = map[AssetClass]map[string]struct{}{
	AssetAudio: {
		"audio/mpeg":     {},
		"audio/mp3":      {},
		"audio/mpeg3":    {},
		"audio/x-mpeg-3": {},
	},
	AssetCover: {
		"image/jpeg": {},
		"image/png":  {},
		"image/webp": {},
	},
}

// TypeError reports a declared content type outside the allow-list for the
// asset class.
type TypeError struct {
	Class       AssetClass
	ContentType string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s content type %q is not allowed", e.Class, e.ContentType)
}

// SizeError reports a payload exceeding the ceiling for the asset class. Both
// sizes are rendered in MiB with one decimal place.
type SizeError struct {
	Class AssetClass
	Size  int64
	Max   int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s payload is %.1f MiB, limit is %.1f MiB", e.Class, mib(e.Size), mib(e.Max))
}

func mib(bytes int64) float64 {
	return float64(bytes) / (1 << 20)
}

// MaxBytes returns the byte ceiling for the asset class.
func MaxBytes(class AssetClass) int64 {
	if class == AssetCover {
		return MaxCoverBytes
	}
	return MaxAudioBytes
}

// ValidateType checks the declared content type against the allow-list for
// the asset class. Media-type parameters (e.g. "; charset=...") are ignored.
func ValidateType(class AssetClass, contentType string) error {
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(normalized, ";"); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	allowed, ok := allowedContentTypes[class]
	if !ok {
		return fmt.Errorf("unknown asset class %q", class)
	}
	if _, ok := allowed[normalized]; !ok {
		return &TypeError{Class: class, ContentType: contentType}
	}
	return nil
}

// ValidateSize checks a byte count against the ceiling for the asset class.
// Callers apply it twice where possible: once to the transport size hint
// before reading the body, and once to the bytes actually read, so a
// misreported hint cannot bypass the limit.
func ValidateSize(class AssetClass, size int64) error {
	max := MaxBytes(class)
	if size > max {
		return &SizeError{Class: class, Size: size, Max: max}
	}
	return nil
}
