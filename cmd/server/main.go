// Command server starts the ClipStream API HTTP service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"clipstream/internal/api"
	"clipstream/internal/auth"
	"clipstream/internal/observability/logging"
	"clipstream/internal/observability/metrics"
	"clipstream/internal/server"
	"clipstream/internal/serverutil"
	"clipstream/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	sessionStoreDriver := flag.String("session-store", "", "session store driver (memory or redis)")
	sessionTTL := flag.Duration("session-ttl", 0, "absolute session lifetime")
	sessionIdleTimeout := flag.Duration("session-idle-timeout", 0, "idle timeout before a session expires early")
	sessionRedisAddr := flag.String("session-redis-addr", "", "Redis address for the session store")
	sessionRedisAddrs := flag.String("session-redis-addrs", "", "comma separated Redis addresses for the session store")
	sessionRedisUsername := flag.String("session-redis-username", "", "Redis username for the session store")
	sessionRedisPassword := flag.String("session-redis-password", "", "Redis password for the session store")
	sessionRedisMaster := flag.String("session-redis-master-name", "", "Redis sentinel master name for the session store")
	sessionRedisPoolSize := flag.Int("session-redis-pool-size", 0, "maximum Redis connections for the session store")
	sessionRedisTLSCA := flag.String("session-redis-tls-ca", "", "path to Redis TLS CA certificate for the session store")
	sessionRedisTLSCert := flag.String("session-redis-tls-cert", "", "path to Redis TLS client certificate for the session store")
	sessionRedisTLSKey := flag.String("session-redis-tls-key", "", "path to Redis TLS client key for the session store")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	rateRedisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	rateRedisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	rateRedisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis rate limiter operations")
	corsOrigins := flag.String("cors-origins", "", "comma separated origins allowed for cross-origin API access")
	reconcileInterval := flag.Duration("reconcile-interval", 0, "interval between background consistency sweeps (0 disables)")
	sessionPurgeInterval := flag.Duration("session-purge-interval", 15*time.Minute, "interval between expired session purges")
	flag.Parse()

	logger := logging.New(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("CLIPSTREAM_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("CLIPSTREAM_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("CLIPSTREAM_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("CLIPSTREAM_ADDR"))

	options := []storage.Option{
		storage.WithLogger(logging.WithComponent(logger, "storage")),
		storage.WithMetrics(recorder),
	}

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("CLIPSTREAM_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}
	if serverMode == "production" && driver != "postgres" {
		logger.Error("production mode requires the postgres datastore driver", "driver", driver)
		os.Exit(1)
	}

	var store storage.Repository
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("CLIPSTREAM_DATA"))
		store, err = storage.NewStorage(dataFile, options...)
	case "postgres":
		if postgresDefaultDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		pgOptions := append([]storage.Option(nil), options...)
		maxConns := resolveInt(*postgresMaxConns, "CLIPSTREAM_POSTGRES_MAX_CONNS")
		if maxConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresMaxConnections(int32(maxConns)))
		}
		minConns := resolveInt(*postgresMinConns, "CLIPSTREAM_POSTGRES_MIN_CONNS")
		if minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresMinConnections(int32(minConns)))
		}
		acquireTimeout := resolveDuration(*postgresAcquireTimeout, "CLIPSTREAM_POSTGRES_ACQUIRE_TIMEOUT", 0)
		if acquireTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresAcquireTimeout(acquireTimeout))
		}
		if appName := firstNonEmpty(*postgresAppName, os.Getenv("CLIPSTREAM_POSTGRES_APP_NAME")); appName != "" {
			pgOptions = append(pgOptions, storage.WithPostgresApplicationName(appName))
		}
		store, err = storage.NewPostgresRepository(postgresDefaultDSN, pgOptions...)
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	sessionDriver := resolveSessionStoreDriver(*sessionStoreDriver, os.Getenv("CLIPSTREAM_SESSION_STORE"), firstNonEmpty(*sessionRedisAddr, os.Getenv("CLIPSTREAM_SESSION_REDIS_ADDR")))
	var sessionStore auth.SessionStore
	switch sessionDriver {
	case "memory":
		sessionStore = auth.NewMemorySessionStore()
	case "redis":
		redisStore, err := auth.NewRedisSessionStore(auth.RedisSessionConfig{
			Addr:       firstNonEmpty(*sessionRedisAddr, os.Getenv("CLIPSTREAM_SESSION_REDIS_ADDR")),
			Addrs:      splitAndTrim(firstNonEmpty(*sessionRedisAddrs, os.Getenv("CLIPSTREAM_SESSION_REDIS_ADDRS"))),
			Username:   firstNonEmpty(*sessionRedisUsername, os.Getenv("CLIPSTREAM_SESSION_REDIS_USERNAME")),
			Password:   firstNonEmpty(*sessionRedisPassword, os.Getenv("CLIPSTREAM_SESSION_REDIS_PASSWORD")),
			MasterName: firstNonEmpty(*sessionRedisMaster, os.Getenv("CLIPSTREAM_SESSION_REDIS_MASTER_NAME")),
			PoolSize:   resolveInt(*sessionRedisPoolSize, "CLIPSTREAM_SESSION_REDIS_POOL_SIZE"),
			TLS: auth.RedisTLSConfig{
				CAFile:   firstNonEmpty(*sessionRedisTLSCA, os.Getenv("CLIPSTREAM_SESSION_REDIS_TLS_CA")),
				CertFile: firstNonEmpty(*sessionRedisTLSCert, os.Getenv("CLIPSTREAM_SESSION_REDIS_TLS_CERT")),
				KeyFile:  firstNonEmpty(*sessionRedisTLSKey, os.Getenv("CLIPSTREAM_SESSION_REDIS_TLS_KEY")),
			},
		})
		if err != nil {
			logger.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		sessionStore = redisStore
	default:
		logger.Error("unsupported session store driver", "driver", sessionDriver)
		os.Exit(1)
	}

	sessionOptions := []auth.SessionOption{auth.WithStore(sessionStore)}
	if idle := resolveDuration(*sessionIdleTimeout, "CLIPSTREAM_SESSION_IDLE_TIMEOUT", 0); idle > 0 {
		sessionOptions = append(sessionOptions, auth.WithIdleTimeout(idle))
	}
	ttl := resolveDuration(*sessionTTL, "CLIPSTREAM_SESSION_TTL", 24*time.Hour)
	sessions := auth.NewSessionManager(ttl, sessionOptions...)

	handler := api.NewHandler(store, sessions)
	if serverMode == "production" {
		handler.SessionCookiePolicy = api.SessionCookiePolicy{SecureMode: api.SessionCookieSecureAlways}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	purgeStop := startSessionPurgeWorker(ctx, logging.WithComponent(logger, "session-purger"), sessions, resolveDuration(*sessionPurgeInterval, "CLIPSTREAM_SESSION_PURGE_INTERVAL", 15*time.Minute))
	defer purgeStop()

	reconcileEvery := resolveDuration(*reconcileInterval, "CLIPSTREAM_RECONCILE_INTERVAL", 0)
	reconcileStop := startReconcileWorker(ctx, logging.WithComponent(logger, "reconciler"), store, reconcileEvery)
	defer reconcileStop()

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("CLIPSTREAM_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("CLIPSTREAM_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "CLIPSTREAM_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "CLIPSTREAM_RATE_GLOBAL_BURST"),
			LoginLimit:    resolveInt(*loginLimit, "CLIPSTREAM_RATE_LOGIN_LIMIT"),
			LoginWindow:   resolveDuration(*loginWindow, "CLIPSTREAM_RATE_LOGIN_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*rateRedisAddr, os.Getenv("CLIPSTREAM_RATE_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*rateRedisPassword, os.Getenv("CLIPSTREAM_RATE_REDIS_PASSWORD")),
			RedisTimeout:  resolveDuration(*rateRedisTimeout, "CLIPSTREAM_RATE_REDIS_TIMEOUT", 2*time.Second),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("CLIPSTREAM_CORS_ORIGINS"))),
		},
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	logger.Info("ClipStream API listening", "addr", listenAddr, "mode", serverMode, "storage", driver, "sessions", sessionDriver)
	logger.Info("metrics endpoint available", "path", "/metrics")

	if err := serverutil.Run(ctx, serverutil.Config{Server: srv}); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(shutdownCtx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	} else if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}
	if closer, ok := sessionStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}

	logger.Info("server stopped")
}

func resolveSessionStoreDriver(flagValue, envValue, redisAddr string) string {
	driver := strings.ToLower(strings.TrimSpace(flagValue))
	if driver == "" {
		driver = strings.ToLower(strings.TrimSpace(envValue))
	}
	if driver == "" {
		if strings.TrimSpace(redisAddr) != "" {
			return "redis"
		}
		return "memory"
	}
	return driver
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

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "json", nil
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/clipstream.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("CLIPSTREAM_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
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
