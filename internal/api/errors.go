package api

import (
	"errors"
	"fmt"
	"net/http"

	"castwave/internal/ingest"
	"castwave/internal/media"
	"castwave/internal/mediastore"
	"castwave/internal/storage"
)

// requestError marks a payload the client sent malformed, so the status
// mapping treats it like every other validation failure.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// writeDomainError maps domain errors onto HTTP statuses: validation problems
// are the caller's fault (400/413), storage-backend failures are gateway
// errors (502/504), and everything unrecognised is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var typeErr *media.TypeError
	var sizeErr *media.SizeError
	var missingErr *ingest.MissingAssetError
	var uploadErr *mediastore.UploadError
	var reqErr *requestError

	switch {
	case errors.As(err, &sizeErr):
		writeError(w, http.StatusRequestEntityTooLarge, err)
	case errors.As(err, &typeErr),
		errors.As(err, &missingErr),
		errors.As(err, &reqErr),
		errors.Is(err, ingest.ErrTitleRequired),
		errors.Is(err, storage.ErrEmptyUpdate),
		errors.Is(err, storage.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &uploadErr):
		if uploadErr.Kind == mediastore.ErrorTimeout {
			writeError(w, http.StatusGatewayTimeout, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, storage.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
