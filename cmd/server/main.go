// Command server starts the Castwave catalog API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"castwave/internal/api"
	"castwave/internal/auth"
	"castwave/internal/ingest"
	"castwave/internal/mediastore"
	"castwave/internal/observability/logging"
	"castwave/internal/observability/metrics"
	"castwave/internal/server"
	"castwave/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	storageDriver := flag.String("storage-driver", "", "datastore driver (memory or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	tokenSecret := flag.String("token-secret", "", "shared secret for admin bearer tokens")
	tokenAlgorithm := flag.String("token-algorithm", "", "token signing algorithm (HS256, HS384, HS512)")
	tokenTTL := flag.Duration("token-ttl", 0, "lifetime of issued admin tokens")
	storageZone := flag.String("media-zone", "", "media storage zone name")
	storageAccessKey := flag.String("media-access-key", "", "media storage access key")
	storageHost := flag.String("media-host", "", "media storage endpoint host")
	cdnBase := flag.String("media-cdn-base", "", "public CDN base URL for stored media")
	connectTimeout := flag.Duration("media-connect-timeout", 0, "media storage connect timeout")
	transferTimeout := flag.Duration("media-transfer-timeout", 0, "media storage transfer timeout")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	corsOrigins := flag.String("cors-origins", "", "comma separated origins allowed to call the API")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("CASTWAVE_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("CASTWAVE_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("CASTWAVE_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("CASTWAVE_ADDR"))

	dsn := strings.TrimSpace(firstNonEmpty(*postgresDSN, os.Getenv("CASTWAVE_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("CASTWAVE_STORAGE_DRIVER"), dsn, serverMode)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}

	var store storage.Repository
	switch driver {
	case "memory":
		store = storage.NewMemoryRepository()
	case "postgres":
		if dsn == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		pgCfg := storage.PostgresConfig{
			DSN:                 dsn,
			MaxConnections:      int32(resolveInt(*postgresMaxConns, "CASTWAVE_POSTGRES_MAX_CONNS")),
			MinConnections:      int32(resolveInt(*postgresMinConns, "CASTWAVE_POSTGRES_MIN_CONNS")),
			MaxConnLifetime:     resolveDuration(*postgresMaxConnLifetime, "CASTWAVE_POSTGRES_MAX_CONN_LIFETIME", 0),
			MaxConnIdleTime:     resolveDuration(*postgresMaxConnIdle, "CASTWAVE_POSTGRES_MAX_CONN_IDLE", 0),
			HealthCheckInterval: resolveDuration(*postgresHealthInterval, "CASTWAVE_POSTGRES_HEALTH_INTERVAL", 0),
			ApplicationName:     firstNonEmpty(*postgresAppName, os.Getenv("CASTWAVE_POSTGRES_APP_NAME")),
		}
		openCtx, openCancel := context.WithTimeout(context.Background(), 30*time.Second)
		store, err = storage.NewPostgresRepository(openCtx, pgCfg)
		openCancel()
		if err != nil {
			logger.Error("failed to open datastore", "error", err)
			os.Exit(1)
		}
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:    firstNonEmpty(*tokenSecret, os.Getenv("CASTWAVE_TOKEN_SECRET")),
		Algorithm: firstNonEmpty(*tokenAlgorithm, os.Getenv("CASTWAVE_TOKEN_ALGORITHM")),
		TTL:       resolveDuration(*tokenTTL, "CASTWAVE_TOKEN_TTL", 0),
	})
	if err != nil {
		logger.Error("failed to configure token manager", "error", err)
		os.Exit(1)
	}

	uploader := mediastore.New(mediastore.Config{
		Host:            firstNonEmpty(*storageHost, os.Getenv("CASTWAVE_MEDIA_HOST")),
		Zone:            firstNonEmpty(*storageZone, os.Getenv("CASTWAVE_MEDIA_ZONE")),
		AccessKey:       firstNonEmpty(*storageAccessKey, os.Getenv("CASTWAVE_MEDIA_ACCESS_KEY")),
		CDNBase:         firstNonEmpty(*cdnBase, os.Getenv("CASTWAVE_MEDIA_CDN_BASE")),
		ConnectTimeout:  resolveDuration(*connectTimeout, "CASTWAVE_MEDIA_CONNECT_TIMEOUT", 0),
		TransferTimeout: resolveDuration(*transferTimeout, "CASTWAVE_MEDIA_TRANSFER_TIMEOUT", 0),
	}, logging.WithComponent(logger, "mediastore"), recorder)

	orchestrator := ingest.New(store, uploader, logging.WithComponent(logger, "ingest"))
	handler := api.NewHandler(store, tokens, orchestrator, logging.WithComponent(logger, "api"))

	rateCfg := server.RateLimitConfig{
		GlobalRPS:     resolveFloat(*globalRPS, "CASTWAVE_RATE_GLOBAL_RPS"),
		GlobalBurst:   resolveInt(*globalBurst, "CASTWAVE_RATE_GLOBAL_BURST"),
		LoginLimit:    resolveInt(*loginLimit, "CASTWAVE_RATE_LOGIN_LIMIT"),
		LoginWindow:   resolveDuration(*loginWindow, "CASTWAVE_RATE_LOGIN_WINDOW", time.Minute),
		RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("CASTWAVE_RATE_REDIS_ADDR")),
		RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("CASTWAVE_RATE_REDIS_PASSWORD")),
		RedisTimeout:  resolveDuration(*redisTimeout, "CASTWAVE_RATE_REDIS_TIMEOUT", 2*time.Second),
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("CASTWAVE_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("CASTWAVE_TLS_KEY")),
		},
		RateLimit: rateCfg,
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("CASTWAVE_CORS_ORIGINS"))),
		},
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("Castwave API listening", "addr", listenAddr, "mode", serverMode, "storage", driver)
		logger.Info("metrics endpoint available", "path", "/metrics")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	if err := store.Close(ctx); err != nil {
		logger.Warn("failed to close datastore", "error", err)
	}

	logger.Info("server stopped")
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func resolveStorageDriver(flagValue, envValue, dsn, mode string) (string, error) {
	driver := strings.ToLower(strings.TrimSpace(flagValue))
	if driver == "" {
		driver = strings.ToLower(strings.TrimSpace(envValue))
	}
	if driver == "" {
		if strings.TrimSpace(dsn) != "" {
			driver = "postgres"
		} else {
			driver = "memory"
		}
	}
	if mode == "production" && driver != "postgres" {
		return "", fmt.Errorf("production mode requires the postgres datastore driver, got %q", driver)
	}
	return driver, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}
