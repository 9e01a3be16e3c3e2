package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides overwrites config fields for every PAPERTRADE_* variable
// that is set and parses. Secrets like the redis password usually arrive
// this way.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Account.ID, "PAPERTRADE_ACCOUNT_ID")
	setStr(&cfg.Account.Currency, "PAPERTRADE_ACCOUNT_CURRENCY")
	setFloat64(&cfg.Account.Balance, "PAPERTRADE_ACCOUNT_BALANCE")

	setDuration(&cfg.Feed.Interval, "PAPERTRADE_FEED_INTERVAL")
	setFloat64(&cfg.Feed.MaxStep, "PAPERTRADE_FEED_MAX_STEP")
	setInt64(&cfg.Feed.Seed, "PAPERTRADE_FEED_SEED")

	setStr(&cfg.Risk.Source, "PAPERTRADE_RISK_SOURCE")
	setDuration(&cfg.Risk.Timeout, "PAPERTRADE_RISK_TIMEOUT")
	setDuration(&cfg.Risk.RefreshInterval, "PAPERTRADE_RISK_REFRESH_INTERVAL")
	setStr(&cfg.Risk.Redis.Addr, "PAPERTRADE_REDIS_ADDR")
	setStr(&cfg.Risk.Redis.Password, "PAPERTRADE_REDIS_PASSWORD")
	setInt(&cfg.Risk.Redis.DB, "PAPERTRADE_REDIS_DB")
	setStr(&cfg.Risk.Redis.KeyPrefix, "PAPERTRADE_REDIS_KEY_PREFIX")
	setBool(&cfg.Risk.Redis.TLSEnabled, "PAPERTRADE_REDIS_TLS")

	setStr(&cfg.Journal.Type, "PAPERTRADE_JOURNAL_TYPE")
	setStr(&cfg.Journal.PositionsFile, "PAPERTRADE_JOURNAL_POSITIONS_FILE")
	setStr(&cfg.Journal.EquityFile, "PAPERTRADE_JOURNAL_EQUITY_FILE")
	setStr(&cfg.Journal.DBPath, "PAPERTRADE_JOURNAL_DB")
	setStringSlice(&cfg.Journal.Brokers, "PAPERTRADE_KAFKA_BROKERS")
	setStr(&cfg.Journal.Topic, "PAPERTRADE_KAFKA_TOPIC")

	setStr(&cfg.Server.Addr, "PAPERTRADE_SERVER_ADDR")
	setStr(&cfg.Log.Level, "PAPERTRADE_LOG_LEVEL")
	setStr(&cfg.Log.Format, "PAPERTRADE_LOG_FORMAT")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
