// Package models defines the entities persisted by the castwave catalog.
package models

import "time"

// Episode is the central catalog entity. AudioURL and ThumbnailURL are always
// non-empty once an episode has been persisted; unpublished episodes are
// visible to administrators only.
type Episode struct {
	ID           string
	Title        string
	Description  string
	Category     string
	AudioURL     string
	ThumbnailURL string
	Published    bool
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Admin is an operator account allowed to manage the catalog. Only its opaque
// ID leaves the auth boundary; it is stamped onto episodes as CreatedBy.
type Admin struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}
