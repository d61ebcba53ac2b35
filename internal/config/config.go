package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogLevel string

	DBDriver string
	DBDSN    string

	RedisURL        string // empty disables the ranking cache
	RankingCacheTTL time.Duration

	NATSURL     string // empty disables event fan-out
	NATSSubject string

	SiteID           string
	RatingMaxRetries int

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// FromEnv reads AUTOGRADE_* variables, after loading an optional .env file.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AUTOGRADE")
	v.AutomaticEnv()

	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("ranking_cache_ttl", "2m")
	v.SetDefault("nats_url", "")
	v.SetDefault("nats_subject", "autograde.events")
	v.SetDefault("site_id", "local")
	v.SetDefault("rating_max_retries", 3)
	v.SetDefault("cors_origins_online", "https://lms.mindengage.ai")
	v.SetDefault("cors_origins_offline", "http://localhost:3000,http://localhost:3010,http://localhost:3020")

	mode := Mode(strings.ToLower(v.GetString("mode")))
	if mode != ModeOffline && mode != ModeOnline {
		return Config{}, fmt.Errorf("invalid mode %q", mode)
	}

	ttl, err := time.ParseDuration(v.GetString("ranking_cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ranking cache ttl: %w", err)
	}

	driver := strings.ToLower(v.GetString("db_driver"))
	if driver != "sqlite" && driver != "postgres" {
		return Config{}, fmt.Errorf("invalid db driver %q", driver)
	}

	retries := v.GetInt("rating_max_retries")
	if retries <= 0 {
		retries = 3
	}

	return Config{
		Mode:               mode,
		HTTPAddr:           v.GetString("http_addr"),
		LogLevel:           v.GetString("log_level"),
		DBDriver:           driver,
		DBDSN:              v.GetString("db_dsn"),
		RedisURL:           v.GetString("redis_url"),
		RankingCacheTTL:    ttl,
		NATSURL:            v.GetString("nats_url"),
		NATSSubject:        v.GetString("nats_subject"),
		SiteID:             v.GetString("site_id"),
		RatingMaxRetries:   retries,
		CORSOriginsOnline:  csv(v.GetString("cors_origins_online")),
		CORSOriginsOffline: csv(v.GetString("cors_origins_offline")),
	}, nil
}

// CORSOrigins returns the allow-list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
