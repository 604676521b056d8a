package auth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisTLSConfig controls TLS behaviour for Redis connections.
type RedisTLSConfig struct {
	CAFile             string
	CertFile           string
	KeyFile            string
	ServerName         string
	InsecureSkipVerify bool
}

// RedisSessionConfig configures the Redis-backed session store.
type RedisSessionConfig struct {
	Addr         string
	Addrs        []string
	Username     string
	Password     string
	MasterName   string
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	OpTimeout    time.Duration
	PoolSize     int
	TLS          RedisTLSConfig
}

// RedisSessionStore persists sessions in Redis, keyed by hashed token. Redis
// key expiry tracks the absolute TTL, so expired sessions disappear without a
// purge pass; idle expiry is still enforced by the SessionManager.
type RedisSessionStore struct {
	client    redis.UniversalClient
	keyPrefix string
	opTimeout time.Duration
}

type redisSessionRecord struct {
	UserID            string    `json:"userId"`
	ExpiresAt         time.Time `json:"expiresAt"`
	AbsoluteExpiresAt time.Time `json:"absoluteExpiresAt"`
}

// NewRedisSessionStore connects to Redis and verifies reachability before
// returning the store. The caller owns Close.
func NewRedisSessionStore(cfg RedisSessionConfig) (*RedisSessionStore, error) {
	addrs := make([]string, 0, len(cfg.Addrs)+1)
	for _, addr := range cfg.Addrs {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	if addr := strings.TrimSpace(cfg.Addr); addr != "" {
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, errors.New("redis addr is required")
	}
	tlsConfig, err := buildRedisTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		MasterName:   strings.TrimSpace(cfg.MasterName),
		Username:     strings.TrimSpace(cfg.Username),
		Password:     cfg.Password,
		TLSConfig:    tlsConfig,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   2,
	})
	store := &RedisSessionStore{
		client:    client,
		keyPrefix: strings.TrimSpace(cfg.KeyPrefix),
		opTimeout: cfg.OpTimeout,
	}
	if store.keyPrefix == "" {
		store.keyPrefix = "clipstream:session:"
	}
	if store.opTimeout <= 0 {
		store.opTimeout = 3 * time.Second
	}
	ctx, cancel := store.opContext()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return store, nil
}

// Close releases the underlying Redis client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// Save writes the session record and lets Redis expire it at the absolute deadline.
func (s *RedisSessionStore) Save(hashedToken, userID string, expiresAt, absoluteExpiresAt time.Time) error {
	if absoluteExpiresAt.IsZero() {
		absoluteExpiresAt = expiresAt
	}
	payload, err := json.Marshal(redisSessionRecord{
		UserID:            userID,
		ExpiresAt:         expiresAt,
		AbsoluteExpiresAt: absoluteExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(absoluteExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.client.Set(ctx, s.key(hashedToken), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get retrieves the session record for the provided hashed token.
func (s *RedisSessionStore) Get(hashedToken string) (SessionRecord, bool, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	payload, err := s.client.Get(ctx, s.key(hashedToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return SessionRecord{}, false, nil
	}
	if err != nil {
		return SessionRecord{}, false, fmt.Errorf("load session: %w", err)
	}
	var record redisSessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return SessionRecord{}, false, fmt.Errorf("decode session: %w", err)
	}
	return SessionRecord{
		Token:             hashedToken,
		UserID:            record.UserID,
		ExpiresAt:         record.ExpiresAt,
		AbsoluteExpiresAt: record.AbsoluteExpiresAt,
	}, true, nil
}

// Delete removes the session token from Redis.
func (s *RedisSessionStore) Delete(hashedToken string) error {
	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.client.Del(ctx, s.key(hashedToken)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: Redis key expiry reclaims stale sessions.
func (s *RedisSessionStore) PurgeExpired(time.Time) error {
	return nil
}

// Ping verifies the Redis connection is alive.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSessionStore) key(hashedToken string) string {
	return s.keyPrefix + hashedToken
}

func (s *RedisSessionStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

func buildRedisTLSConfig(cfg RedisTLSConfig) (*tls.Config, error) {
	if cfg.CAFile == "" && cfg.CertFile == "" && cfg.KeyFile == "" && cfg.ServerName == "" && !cfg.InsecureSkipVerify {
		return nil, nil
	}
	tlsConfig := &tls.Config{
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read redis ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("parse redis ca file %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}
	if cfg.CertFile != "" {
		if cfg.KeyFile == "" {
			return nil, errors.New("redis tls key file is required with a cert file")
		}
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load redis client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
