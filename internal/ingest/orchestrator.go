// Package ingest coordinates episode creation: it validates and stores media
// assets, then persists the catalog record. Validation happens before any
// byte leaves the process, so an invalid asset never reaches storage.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"castwave/internal/media"
	"castwave/internal/models"
	"castwave/internal/storage"
)

// ErrTitleRequired reports an episode submitted without a title.
var ErrTitleRequired = errors.New("title is required")

// MissingAssetError reports an episode submitted with neither a file nor a
// fallback URL for one of its assets.
type MissingAssetError struct {
	Class media.AssetClass
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("no %s provided: upload a file up to %.1f MiB or supply a %s URL",
		e.Class, float64(media.MaxBytes(e.Class))/(1<<20), e.Class)
}

// Uploader stores a media payload and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, contentType string, class media.AssetClass) (string, error)
}

// FileInput is an uploaded file part: its declared metadata plus the bytes
// already read from the request.
type FileInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AssetInput resolves to a public URL one of two ways: an uploaded file, or a
// caller-supplied URL. A present file always wins over the URL.
type AssetInput struct {
	File        *FileInput
	FallbackURL string
}

// CreateEpisodeInput carries an episode submission before normalization.
// Published defaults to true when left nil.
type CreateEpisodeInput struct {
	Title       string
	Description string
	Category    string
	Published   *bool
	Audio       AssetInput
	Cover       AssetInput
	CreatedBy   string
}

// Orchestrator runs the create-episode pipeline against a repository and an
// uploader.
type Orchestrator struct {
	store    storage.Repository
	uploader Uploader
	logger   *slog.Logger
}

// New builds an Orchestrator.
func New(store storage.Repository, uploader Uploader, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: store, uploader: uploader, logger: logger}
}

// CreateEpisode validates the submission, resolves both assets (audio first,
// then cover), and persists the episode. If the cover fails after the audio
// was stored, the audio object is left behind; the catalog record is only
// written once both assets resolved.
func (o *Orchestrator) CreateEpisode(ctx context.Context, input CreateEpisodeInput) (models.Episode, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Episode{}, ErrTitleRequired
	}

	audioURL, err := o.resolveAsset(ctx, media.AssetAudio, input.Audio)
	if err != nil {
		return models.Episode{}, err
	}
	coverURL, err := o.resolveAsset(ctx, media.AssetCover, input.Cover)
	if err != nil {
		return models.Episode{}, err
	}

	published := true
	if input.Published != nil {
		published = *input.Published
	}
	params := storage.CreateEpisodeParams{
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Category:     strings.TrimSpace(input.Category),
		AudioURL:     audioURL,
		ThumbnailURL: coverURL,
		Published:    published,
		CreatedBy:    input.CreatedBy,
	}
	episode, err := o.store.CreateEpisode(ctx, params)
	if err != nil {
		return models.Episode{}, fmt.Errorf("persist episode: %w", err)
	}
	o.logger.Info("created episode", "episode_id", episode.ID, "title", episode.Title, "published", episode.Published)
	return episode, nil
}

// resolveAsset turns one asset input into a public URL. An uploaded file is
// validated (type, then size) and stored; without a file the trimmed fallback
// URL is used as-is; with neither the submission is rejected.
func (o *Orchestrator) resolveAsset(ctx context.Context, class media.AssetClass, input AssetInput) (string, error) {
	if input.File != nil {
		if err := media.ValidateType(class, input.File.ContentType); err != nil {
			return "", err
		}
		if err := media.ValidateSize(class, int64(len(input.File.Data))); err != nil {
			return "", err
		}
		url, err := o.uploader.Upload(ctx, input.File.Data, input.File.Filename, input.File.ContentType, class)
		if err != nil {
			return "", err
		}
		return url, nil
	}
	if fallback := strings.TrimSpace(input.FallbackURL); fallback != "" {
		return fallback, nil
	}
	return "", &MissingAssetError{Class: class}
}
