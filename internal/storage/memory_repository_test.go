package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"castwave/internal/models"
)

func newTestRepo(t *testing.T) *MemoryRepository {
	t.Helper()
	return NewMemoryRepository()
}

func createEpisode(t *testing.T, repo *MemoryRepository, params CreateEpisodeParams) string {
	t.Helper()
	episode, err := repo.CreateEpisode(context.Background(), params)
	if err != nil {
		t.Fatalf("CreateEpisode: %v", err)
	}
	return episode.ID
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreateEpisodeDefaultsCategory(t *testing.T) {
	repo := newTestRepo(t)
	episode, err := repo.CreateEpisode(context.Background(), CreateEpisodeParams{Title: "Pilot", Published: true})
	if err != nil {
		t.Fatalf("CreateEpisode: %v", err)
	}
	if episode.Category != DefaultCategory {
		t.Fatalf("category = %q, want %q", episode.Category, DefaultCategory)
	}
	if episode.CreatedAt.IsZero() || !episode.CreatedAt.Equal(episode.UpdatedAt) {
		t.Fatalf("timestamps not initialised together: %v / %v", episode.CreatedAt, episode.UpdatedAt)
	}
	if err := ValidateID(episode.ID); err != nil {
		t.Fatalf("generated id %q invalid: %v", episode.ID, err)
	}
}

func TestListEpisodesOrderingAndPublishFilter(t *testing.T) {
	repo := newTestRepo(t)
	first := createEpisode(t, repo, CreateEpisodeParams{Title: "one", Published: true})
	hidden := createEpisode(t, repo, CreateEpisodeParams{Title: "two", Published: false})
	last := createEpisode(t, repo, CreateEpisodeParams{Title: "three", Published: true})

	all, err := repo.ListEpisodes(context.Background(), false)
	if err != nil {
		t.Fatalf("ListEpisodes(all): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("admin list length = %d, want 3", len(all))
	}
	if all[0].ID != last || all[2].ID != first {
		t.Fatalf("admin list not newest-first: %v", idsOf(all))
	}

	published, err := repo.ListEpisodes(context.Background(), true)
	if err != nil {
		t.Fatalf("ListEpisodes(published): %v", err)
	}
	if len(published) != 2 {
		t.Fatalf("published list length = %d, want 2", len(published))
	}
	for _, episode := range published {
		if episode.ID == hidden {
			t.Fatal("published list contains an unpublished episode")
		}
	}
}

func idsOf(episodes []models.Episode) []string {
	ids := make([]string, len(episodes))
	for i, episode := range episodes {
		ids[i] = episode.ID
	}
	return ids
}

func TestListEpisodesCapsResults(t *testing.T) {
	repo := newTestRepo(t)
	for i := 0; i < PublishedListLimit+20; i++ {
		createEpisode(t, repo, CreateEpisodeParams{Title: "ep", Published: true})
	}
	published, err := repo.ListEpisodes(context.Background(), true)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(published) != PublishedListLimit {
		t.Fatalf("published list length = %d, want %d", len(published), PublishedListLimit)
	}
	all, err := repo.ListEpisodes(context.Background(), false)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(all) != PublishedListLimit+20 {
		t.Fatalf("admin list length = %d, want %d", len(all), PublishedListLimit+20)
	}
}

func TestUpdateEpisodeMergesAndBumpsUpdatedAt(t *testing.T) {
	repo := newTestRepo(t)
	id := createEpisode(t, repo, CreateEpisodeParams{
		Title:       "Original",
		Description: "desc",
		Category:    "Tech",
		Published:   true,
	})
	before, err := repo.GetEpisode(context.Background(), id)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}

	updated, err := repo.UpdateEpisode(context.Background(), id, EpisodeUpdate{
		Title:     strPtr("Renamed"),
		Published: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("UpdateEpisode: %v", err)
	}
	if updated.Title != "Renamed" || updated.Published {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.Description != "desc" || updated.Category != "Tech" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if !updated.UpdatedAt.After(before.UpdatedAt) {
		t.Fatalf("updated_at did not advance: %v -> %v", before.UpdatedAt, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(before.CreatedAt) {
		t.Fatal("created_at changed on update")
	}
}

func TestUpdateEpisodeEmptyAndMissing(t *testing.T) {
	repo := newTestRepo(t)
	id := createEpisode(t, repo, CreateEpisodeParams{Title: "ep", Published: true})

	if _, err := repo.UpdateEpisode(context.Background(), id, EpisodeUpdate{}); !errors.Is(err, ErrEmptyUpdate) {
		t.Fatalf("empty update error = %v, want ErrEmptyUpdate", err)
	}
	missing := strings.Repeat("0", 32)
	if _, err := repo.UpdateEpisode(context.Background(), missing, EpisodeUpdate{Title: strPtr("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing update error = %v, want ErrNotFound", err)
	}
	if _, err := repo.UpdateEpisode(context.Background(), "short", EpisodeUpdate{Title: strPtr("x")}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("malformed id error = %v, want ErrInvalidID", err)
	}
}

func TestDeleteEpisodeIsNotIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	id := createEpisode(t, repo, CreateEpisodeParams{Title: "ep", Published: true})

	if err := repo.DeleteEpisode(context.Background(), id); err != nil {
		t.Fatalf("DeleteEpisode: %v", err)
	}
	if err := repo.DeleteEpisode(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetEpisode(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete error = %v, want ErrNotFound", err)
	}
}

func TestValidateID(t *testing.T) {
	valid := strings.Repeat("a1", 16)
	if err := ValidateID(valid); err != nil {
		t.Fatalf("ValidateID(%q) = %v", valid, err)
	}
	for _, bad := range []string{"", "abc", strings.Repeat("g", 32), strings.Repeat("A", 32), strings.Repeat("a", 33)} {
		if err := ValidateID(bad); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("ValidateID(%q) = %v, want ErrInvalidID", bad, err)
		}
	}
}

func TestAdminLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	admin, err := repo.CreateAdmin(context.Background(), " Ops@Example.COM ", "Ops", "correct horse battery")
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if admin.Email != "ops@example.com" {
		t.Fatalf("email not normalized: %q", admin.Email)
	}
	if admin.PasswordHash == "" || strings.Contains(admin.PasswordHash, "correct horse") {
		t.Fatalf("password stored improperly: %q", admin.PasswordHash)
	}

	if _, err := repo.CreateAdmin(context.Background(), "ops@example.com", "Dup", "another password"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email error = %v, want ErrEmailTaken", err)
	}

	got, err := repo.AuthenticateAdmin(context.Background(), "OPS@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("AuthenticateAdmin: %v", err)
	}
	if got.ID != admin.ID {
		t.Fatalf("authenticated id = %q, want %q", got.ID, admin.ID)
	}

	if _, err := repo.AuthenticateAdmin(context.Background(), "ops@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := repo.AuthenticateAdmin(context.Background(), "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := repo.AuthenticateAdmin(context.Background(), "ops@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("empty password error = %v, want ErrInvalidCredentials", err)
	}
}

func TestCreateAdminRejectsShortPassword(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.CreateAdmin(context.Background(), "ops@example.com", "Ops", "short"); err == nil {
		t.Fatal("expected error for short password")
	}
}
