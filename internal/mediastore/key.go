package mediastore

import (
	"strings"

	"github.com/google/uuid"

	"castwave/internal/media"
)

func prefixForClass(class media.AssetClass) string {
	if class == media.AssetCover {
		return "covers"
	}
	return "episodes"
}

// buildKey derives a collision-free storage key for an upload: an asset-class
// prefix, a fresh random token, and a sanitized version of the original
// filename.
func buildKey(class media.AssetClass, filename string) string {
	return prefixForClass(class) + "/" + uuid.NewString() + "-" + sanitizeFilename(filename)
}

// sanitizeFilename keeps letters, digits, '.', '-' and '_' only. Spaces become
// dashes; names that sanitize to nothing are replaced with a random token.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
	var builder strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '.', r == '-', r == '_':
			builder.WriteRune(r)
		}
	}
	if builder.Len() == 0 {
		return uuid.NewString()
	}
	return builder.String()
}
