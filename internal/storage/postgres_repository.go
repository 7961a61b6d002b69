package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"castwave/internal/models"
)

// PostgresRepository persists the catalog to Postgres via a pgx connection
// pool. Multiple API replicas can share one database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository opens a connection pool and ensures the schema exists.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if name := strings.TrimSpace(cfg.ApplicationName); name != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = name
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	repo := &PostgresRepository{pool: pool}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *PostgresRepository) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'General',
			audio_url TEXT NOT NULL DEFAULT '',
			thumbnail_url TEXT NOT NULL DEFAULT '',
			published BOOLEAN NOT NULL DEFAULT TRUE,
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS episodes_created_at_idx ON episodes (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS admins (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const episodeColumns = `id, title, description, category, audio_url, thumbnail_url, published, created_by, created_at, updated_at`

func scanEpisode(row pgx.Row) (models.Episode, error) {
	var episode models.Episode
	err := row.Scan(
		&episode.ID,
		&episode.Title,
		&episode.Description,
		&episode.Category,
		&episode.AudioURL,
		&episode.ThumbnailURL,
		&episode.Published,
		&episode.CreatedBy,
		&episode.CreatedAt,
		&episode.UpdatedAt,
	)
	return episode, err
}

func (r *PostgresRepository) CreateEpisode(ctx context.Context, params CreateEpisodeParams) (models.Episode, error) {
	id, err := generateID()
	if err != nil {
		return models.Episode{}, err
	}
	category := params.Category
	if category == "" {
		category = DefaultCategory
	}
	now := time.Now().UTC()
	if _, err := r.pool.Exec(ctx, `
INSERT INTO episodes (id, title, description, category, audio_url, thumbnail_url, published, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
`, id, params.Title, params.Description, category, params.AudioURL, params.ThumbnailURL, params.Published, params.CreatedBy, now); err != nil {
		return models.Episode{}, fmt.Errorf("insert episode: %w", err)
	}
	// Read the row back so the caller sees exactly what was stored.
	return r.GetEpisode(ctx, id)
}

func (r *PostgresRepository) GetEpisode(ctx context.Context, id string) (models.Episode, error) {
	if err := ValidateID(id); err != nil {
		return models.Episode{}, err
	}
	row := r.pool.QueryRow(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = $1`, id)
	episode, err := scanEpisode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Episode{}, ErrNotFound
		}
		return models.Episode{}, fmt.Errorf("get episode: %w", err)
	}
	return episode, nil
}

func (r *PostgresRepository) ListEpisodes(ctx context.Context, publishedOnly bool) ([]models.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes`
	limit := AdminListLimit
	if publishedOnly {
		query += ` WHERE published`
		limit = PublishedListLimit
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	episodes := make([]models.Episode, 0)
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		episodes = append(episodes, episode)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	return episodes, nil
}

func (r *PostgresRepository) UpdateEpisode(ctx context.Context, id string, update EpisodeUpdate) (models.Episode, error) {
	if err := ValidateID(id); err != nil {
		return models.Episode{}, err
	}
	if update.Empty() {
		return models.Episode{}, ErrEmptyUpdate
	}

	assignments := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Category != nil {
		add("category", *update.Category)
	}
	if update.AudioURL != nil {
		add("audio_url", *update.AudioURL)
	}
	if update.ThumbnailURL != nil {
		add("thumbnail_url", *update.ThumbnailURL)
	}
	if update.Published != nil {
		add("published", *update.Published)
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE episodes SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(assignments, ", "), len(args), episodeColumns,
	)
	episode, err := scanEpisode(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Episode{}, ErrNotFound
		}
		return models.Episode{}, fmt.Errorf("update episode: %w", err)
	}
	return episode, nil
}

func (r *PostgresRepository) DeleteEpisode(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM episodes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete episode: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateAdmin(ctx context.Context, email, displayName, password string) (models.Admin, error) {
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
	now := time.Now().UTC()
	if _, err := r.pool.Exec(ctx, `
INSERT INTO admins (id, email, display_name, password_hash, created_at)
VALUES ($1, $2, $3, $4, $5)
`, id, normalized, strings.TrimSpace(displayName), hash, now); err != nil {
		if isUniqueViolation(err) {
			return models.Admin{}, ErrEmailTaken
		}
		return models.Admin{}, fmt.Errorf("insert admin: %w", err)
	}
	return models.Admin{
		ID:           id,
		Email:        normalized,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		CreatedAt:    now,
	}, nil
}

func (r *PostgresRepository) GetAdmin(ctx context.Context, id string) (models.Admin, error) {
	if err := ValidateID(id); err != nil {
		return models.Admin{}, err
	}
	row := r.pool.QueryRow(ctx, `
SELECT id, email, display_name, password_hash, created_at
FROM admins WHERE id = $1
`, id)
	var admin models.Admin
	if err := row.Scan(&admin.ID, &admin.Email, &admin.DisplayName, &admin.PasswordHash, &admin.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Admin{}, ErrNotFound
		}
		return models.Admin{}, fmt.Errorf("get admin: %w", err)
	}
	return admin, nil
}

func (r *PostgresRepository) AuthenticateAdmin(ctx context.Context, email, password string) (models.Admin, error) {
	if password == "" {
		return models.Admin{}, ErrInvalidCredentials
	}
	row := r.pool.QueryRow(ctx, `
SELECT id, email, display_name, password_hash, created_at
FROM admins WHERE email = $1
`, normalizeEmail(email))
	var admin models.Admin
	if err := row.Scan(&admin.ID, &admin.Email, &admin.DisplayName, &admin.PasswordHash, &admin.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Admin{}, ErrInvalidCredentials
		}
		return models.Admin{}, fmt.Errorf("authenticate admin: %w", err)
	}
	if err := verifyPassword(admin.PasswordHash, password); err != nil {
		return models.Admin{}, err
	}
	return admin, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
