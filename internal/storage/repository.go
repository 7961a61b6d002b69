// Package storage persists the episode catalog and admin accounts. Two
// implementations are provided: an in-memory repository for tests and
// single-node development, and a Postgres repository for production.
package storage

import (
	"context"
	"errors"

	"castwave/internal/models"
)

// List ceilings keep unbounded catalogs from flooding a single response.
const (
	PublishedListLimit = 200
	AdminListLimit     = 500
)

// DefaultCategory is assigned when an episode is created without one.
const DefaultCategory = "General"

var (
	// ErrNotFound reports that no record matches the requested identifier.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidID reports a malformed identifier.
	ErrInvalidID = errors.New("invalid identifier")
	// ErrEmptyUpdate reports an update request that names no fields.
	ErrEmptyUpdate = errors.New("no fields to update")
	// ErrInvalidCredentials reports a failed email/password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken reports an admin-create collision on email.
	ErrEmailTaken = errors.New("email already registered")
)

// CreateEpisodeParams carries the normalized fields for a new episode.
type CreateEpisodeParams struct {
	Title        string
	Description  string
	Category     string
	AudioURL     string
	ThumbnailURL string
	Published    bool
	CreatedBy    string
}

// EpisodeUpdate names the fields a partial update wants to change. Nil
// pointers leave the stored value untouched.
type EpisodeUpdate struct {
	Title        *string
	Description  *string
	Category     *string
	AudioURL     *string
	ThumbnailURL *string
	Published    *bool
}

// Empty reports whether the update names no fields at all.
func (u EpisodeUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil &&
		u.AudioURL == nil && u.ThumbnailURL == nil && u.Published == nil
}

// Repository is the persistence surface the API and ingest layers depend on.
type Repository interface {
	CreateEpisode(ctx context.Context, params CreateEpisodeParams) (models.Episode, error)
	GetEpisode(ctx context.Context, id string) (models.Episode, error)
	ListEpisodes(ctx context.Context, publishedOnly bool) ([]models.Episode, error)
	UpdateEpisode(ctx context.Context, id string, update EpisodeUpdate) (models.Episode, error)
	DeleteEpisode(ctx context.Context, id string) error

	CreateAdmin(ctx context.Context, email, displayName, password string) (models.Admin, error)
	GetAdmin(ctx context.Context, id string) (models.Admin, error)
	AuthenticateAdmin(ctx context.Context, email, password string) (models.Admin, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
