package risk

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty" toml:"password"`
	DB         int    `json:"db" yaml:"db" toml:"db"`
	KeyPrefix  string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty" toml:"key_prefix"`
	TLSEnabled bool   `json:"tls_enabled,omitempty" yaml:"tls_enabled,omitempty" toml:"tls_enabled"`
}

// RedisSource reads risk inputs from hashes at "{prefix}{instrument}" with
// fields "volatility" and "correlation".
type RedisSource struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisSource connects and pings Redis.
func NewRedisSource(ctx context.Context, cfg RedisConfig) (*RedisSource, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return newRedisSource(rdb, cfg.KeyPrefix), nil
}

func newRedisSource(rdb *redis.Client, prefix string) *RedisSource {
	if prefix == "" {
		prefix = "risk:"
	}
	return &RedisSource{rdb: rdb, prefix: prefix}
}

func (s *RedisSource) key(instrument string) string {
	return s.prefix + instrument
}

func (s *RedisSource) GetVolatility(ctx context.Context, instrument string) (float64, error) {
	return s.field(ctx, instrument, "volatility")
}

func (s *RedisSource) GetCorrelation(ctx context.Context, instrument string) (float64, error) {
	return s.field(ctx, instrument, "correlation")
}

// Set stores both inputs for an instrument.
func (s *RedisSource) Set(ctx context.Context, instrument string, vol, corr float64) error {
	fields := map[string]interface{}{
		"volatility":  strconv.FormatFloat(vol, 'f', -1, 64),
		"correlation": strconv.FormatFloat(corr, 'f', -1, 64),
	}
	if err := s.rdb.HSet(ctx, s.key(instrument), fields).Err(); err != nil {
		return fmt.Errorf("redis: set risk inputs %s: %w", instrument, err)
	}
	return nil
}

func (s *RedisSource) field(ctx context.Context, instrument, field string) (float64, error) {
	raw, err := s.rdb.HGet(ctx, s.key(instrument), field).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrDataUnavailable
	}
	if err != nil {
		return 0, fmt.Errorf("redis: get %s %s: %w", field, instrument, err)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse %s %s: %w", field, instrument, err)
	}
	return v, nil
}

func (s *RedisSource) Close() error {
	return s.rdb.Close()
}
