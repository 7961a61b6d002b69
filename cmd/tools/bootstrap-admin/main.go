// Command bootstrap-admin seeds an administrator account in the datastore.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"castwave/internal/storage"
)

func main() {
	var (
		postgresDSN string
		email       string
		displayName string
		password    string
	)

	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&email, "email", "", "Email address for the admin account")
	flag.StringVar(&displayName, "name", "Administrator", "Display name for the admin account")
	flag.StringVar(&password, "password", "", "Password for the admin account")
	flag.Parse()

	if postgresDSN == "" {
		postgresDSN = strings.TrimSpace(firstNonEmpty(os.Getenv("CASTWAVE_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
	}
	if postgresDSN == "" {
		fatalf("--postgres-dsn or CASTWAVE_POSTGRES_DSN must be provided")
	}
	if strings.TrimSpace(email) == "" {
		fatalf("--email is required")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}
	if strings.TrimSpace(displayName) == "" {
		fatalf("--name cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: postgresDSN})
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = repo.Close(closeCtx)
	}()

	admin, err := repo.CreateAdmin(ctx, email, displayName, password)
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			fatalf("admin %s already exists", strings.ToLower(strings.TrimSpace(email)))
		}
		fatalf("create admin: %v", err)
	}

	fmt.Printf("Admin %s (%s) created successfully.\n", admin.Email, admin.DisplayName)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
