package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port    int    `env:"PORT" envDefault:"8080"`
		Origin  string `env:"ORIGIN" envDefault:"http://localhost:3000"`
		BaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

		// имя consumer group для потока событий; по умолчанию hostname
		InstanceID string `env:"INSTANCE_ID"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Auth struct {
		JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`
		AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
		RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
		// Telegram init-data
		BotToken    string        `env:"BOT_TOKEN"`
		InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
		AdminIDs    []string      `env:"ADMIN_IDS" envSeparator:","`
	}

	// Уведомления о решениях в чат с ботом (нужен BOT_TOKEN)
	Telegram struct {
		Notify bool   `env:"TELEGRAM_NOTIFY" envDefault:"false"`
		APIURL string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	}

	Verification struct {
		CodeTTL time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"30m"`
	}

	Cache struct {
		UserTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	}
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	// В production переменные задаются напрямую, .env может отсутствовать
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.AdminIDList(); err != nil {
		return nil, err
	}
	if cfg.Telegram.Notify && cfg.Auth.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_NOTIFY requires BOT_TOKEN")
	}
	return cfg, nil
}

// MustLoad is Load for main packages.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// AdminIDList parses ADMIN_IDS into user ids.
func (c *Config) AdminIDList() ([]int64, error) {
	ids := make([]int64, 0, len(c.Auth.AdminIDs))
	for _, raw := range c.Auth.AdminIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_IDS entry %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Instance returns INSTANCE_ID or the hostname.
func (c *Config) Instance() string {
	if c.Server.InstanceID != "" {
		return c.Server.InstanceID
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}

// RedisAddr returns host:port.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ClientConfig configures reviewctl and other API consumers.
type ClientConfig struct {
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"http://localhost:8080/api/v1"`
	RequestTimeout time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
	StatePath      string        `env:"REVIEWCTL_DB" envDefault:"reviewctl.db"`
	// ProfileTTL bounds how stale the mirrored verification overview may get.
	ProfileTTL time.Duration `env:"PROFILE_TTL" envDefault:"1m"`
}

func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("API_TIMEOUT must be positive")
	}
	if cfg.ProfileTTL <= 0 {
		return nil, fmt.Errorf("PROFILE_TTL must be positive")
	}
	return cfg, nil
}
