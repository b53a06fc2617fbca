package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	AlphaVantage AlphaVantageConfig `yaml:"alpha_vantage"`
	Cache        CacheConfig        `yaml:"cache"`
	CORS         CORSConfig         `yaml:"cors"`
	Log          LogConfig          `yaml:"log"`
	Viewer       ViewerConfig       `yaml:"viewer"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"120s"`
}

// AlphaVantageConfig is the upstream provider. APIKey is not validated; without
// it every upstream call fails and the provider's message is passed through.
type AlphaVantageConfig struct {
	BaseURL string        `yaml:"base_url" env:"ALPHA_VANTAGE_BASE_URL" env-default:"https://www.alphavantage.co"`
	APIKey  string        `yaml:"api_key" env:"ALPHA_VANTAGE_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"ALPHA_VANTAGE_TIMEOUT" env-default:"10s"`
}

type CacheConfig struct {
	LatestTTL     time.Duration `yaml:"latest_ttl" env:"CACHE_LATEST_TTL" env-default:"1h"`
	HistoricalTTL time.Duration `yaml:"historical_ttl" env:"CACHE_HISTORICAL_TTL" env-default:"168h"`
	SweepSchedule string        `yaml:"sweep_schedule" env:"CACHE_SWEEP_SCHEDULE" env-default:"@every 30m"`
	// RedisURL switches the proxy cache to redis when set, e.g. redis://localhost:6379/0.
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://localhost"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type ViewerConfig struct {
	ServerURL string        `yaml:"server_url" env:"VIEWER_SERVER_URL" env-default:"http://localhost:8080"`
	Timeout   time.Duration `yaml:"timeout" env:"VIEWER_TIMEOUT" env-default:"15s"`
}

// LoadConfig reads .env if present, then either the YAML file named by
// CONFIG_PATH or the process environment. Environment variables override
// file values.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return &cfg, nil
}
