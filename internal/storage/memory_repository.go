package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"castwave/internal/models"
)

// MemoryRepository keeps the catalog in process memory. It backs tests and
// zero-dependency development runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	episodes map[string]models.Episode
	admins   map[string]models.Admin
	emails   map[string]string
	seq      map[string]uint64
	nextSeq  uint64
	closed   bool
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		episodes: make(map[string]models.Episode),
		admins:   make(map[string]models.Admin),
		emails:   make(map[string]string),
		seq:      make(map[string]uint64),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) CreateEpisode(ctx context.Context, params CreateEpisodeParams) (models.Episode, error) {
	if err := ctx.Err(); err != nil {
		return models.Episode{}, err
	}
	id, err := generateID()
	if err != nil {
		return models.Episode{}, err
	}
	now := time.Now().UTC()
	episode := models.Episode{
		ID:           id,
		Title:        params.Title,
		Description:  params.Description,
		Category:     params.Category,
		AudioURL:     params.AudioURL,
		ThumbnailURL: params.ThumbnailURL,
		Published:    params.Published,
		CreatedBy:    params.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if episode.Category == "" {
		episode.Category = DefaultCategory
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.seq[id] = r.nextSeq
	r.episodes[id] = episode
	return episode, nil
}

func (r *MemoryRepository) GetEpisode(ctx context.Context, id string) (models.Episode, error) {
	if err := ctx.Err(); err != nil {
		return models.Episode{}, err
	}
	if err := ValidateID(id); err != nil {
		return models.Episode{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	episode, ok := r.episodes[id]
	if !ok {
		return models.Episode{}, ErrNotFound
	}
	return episode, nil
}

func (r *MemoryRepository) ListEpisodes(ctx context.Context, publishedOnly bool) ([]models.Episode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	episodes := make([]models.Episode, 0, len(r.episodes))
	order := make(map[string]uint64, len(r.episodes))
	for id, episode := range r.episodes {
		if publishedOnly && !episode.Published {
			continue
		}
		episodes = append(episodes, episode)
		order[id] = r.seq[id]
	}
	r.mu.RUnlock()

	// Newest first; the insertion sequence breaks created_at ties.
	sort.Slice(episodes, func(i, j int) bool {
		if episodes[i].CreatedAt.Equal(episodes[j].CreatedAt) {
			return order[episodes[i].ID] > order[episodes[j].ID]
		}
		return episodes[i].CreatedAt.After(episodes[j].CreatedAt)
	})

	limit := AdminListLimit
	if publishedOnly {
		limit = PublishedListLimit
	}
	if len(episodes) > limit {
		episodes = episodes[:limit]
	}
	return episodes, nil
}

func (r *MemoryRepository) UpdateEpisode(ctx context.Context, id string, update EpisodeUpdate) (models.Episode, error) {
	if err := ctx.Err(); err != nil {
		return models.Episode{}, err
	}
	if err := ValidateID(id); err != nil {
		return models.Episode{}, err
	}
	if update.Empty() {
		return models.Episode{}, ErrEmptyUpdate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	episode, ok := r.episodes[id]
	if !ok {
		return models.Episode{}, ErrNotFound
	}
	if update.Title != nil {
		episode.Title = *update.Title
	}
	if update.Description != nil {
		episode.Description = *update.Description
	}
	if update.Category != nil {
		episode.Category = *update.Category
	}
	if update.AudioURL != nil {
		episode.AudioURL = *update.AudioURL
	}
	if update.ThumbnailURL != nil {
		episode.ThumbnailURL = *update.ThumbnailURL
	}
	if update.Published != nil {
		episode.Published = *update.Published
	}
	now := time.Now().UTC()
	if !now.After(episode.UpdatedAt) {
		now = episode.UpdatedAt.Add(time.Nanosecond)
	}
	episode.UpdatedAt = now
	r.episodes[id] = episode
	return episode, nil
}

func (r *MemoryRepository) DeleteEpisode(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateID(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.episodes[id]; !ok {
		return ErrNotFound
	}
	delete(r.episodes, id)
	delete(r.seq, id)
	return nil
}

func (r *MemoryRepository) CreateAdmin(ctx context.Context, email, displayName, password string) (models.Admin, error) {
	if err := ctx.Err(); err != nil {
		return models.Admin{}, err
	}
	normalized := normalizeEmail(email)
	if normalized == "" || !strings.Contains(normalized, "@") {
		return models.Admin{}, ErrInvalidCredentials
	}
	hash, err := hashPassword(password)
	if err != nil {
		return models.Admin{}, err
	}
	id, err := generateID()
	if err != nil {
		return models.Admin{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.emails[normalized]; taken {
		return models.Admin{}, ErrEmailTaken
	}
	admin := models.Admin{
		ID:           id,
		Email:        normalized,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	r.admins[id] = admin
	r.emails[normalized] = id
	return admin, nil
}

func (r *MemoryRepository) GetAdmin(ctx context.Context, id string) (models.Admin, error) {
	if err := ctx.Err(); err != nil {
		return models.Admin{}, err
	}
	if err := ValidateID(id); err != nil {
		return models.Admin{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	admin, ok := r.admins[id]
	if !ok {
		return models.Admin{}, ErrNotFound
	}
	return admin, nil
}

func (r *MemoryRepository) AuthenticateAdmin(ctx context.Context, email, password string) (models.Admin, error) {
	if err := ctx.Err(); err != nil {
		return models.Admin{}, err
	}
	if password == "" {
		return models.Admin{}, ErrInvalidCredentials
	}
	normalized := normalizeEmail(email)
	r.mu.RLock()
	id, ok := r.emails[normalized]
	var admin models.Admin
	if ok {
		admin = r.admins[id]
	}
	r.mu.RUnlock()
	if !ok {
		return models.Admin{}, ErrInvalidCredentials
	}
	if err := verifyPassword(admin.PasswordHash, password); err != nil {
		return models.Admin{}, err
	}
	return admin, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *MemoryRepository) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
