package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`

	RateLimitPerMinute int `yaml:"rate_limit_per_min"`
	RateLimitBurst     int `yaml:"rate_limit_burst"`

	RealtimePollInterval time.Duration `yaml:"-"`
	RealtimeBatchSize    int           `yaml:"realtime_batch_size"`

	NotifyPollInterval time.Duration `yaml:"-"`
	NotifyBatchSize    int           `yaml:"notify_batch_size"`
	NotifyWebhookURL   string        `yaml:"notify_webhook_url"`
}

// Load reads the optional YAML file named by MARKETPLACE_CONFIG, then
// lets environment variables override it.
func Load() Config {
	cfg := Config{
		Port:                 "8080",
		RateLimitPerMinute:   240,
		RateLimitBurst:       60,
		RealtimePollInterval: time.Second,
		RealtimeBatchSize:    100,
		NotifyPollInterval:   5 * time.Second,
		NotifyBatchSize:      50,
	}

	if path := os.Getenv("MARKETPLACE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("config file read error: %v", err)
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Printf("config file parse error: %v", err)
		}
	}

	if port := os.Getenv("MARKETPLACE_PORT"); port != "" {
		cfg.Port = port
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		cfg.DatabaseURL = dsn
	}
	cfg.RateLimitPerMinute = readInt("MARKETPLACE_RATE_LIMIT_PER_MIN", cfg.RateLimitPerMinute)
	cfg.RateLimitBurst = readInt("MARKETPLACE_RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.RealtimeBatchSize = readInt("REALTIME_BATCH_SIZE", cfg.RealtimeBatchSize)
	cfg.NotifyBatchSize = readInt("NOTIFY_BATCH_SIZE", cfg.NotifyBatchSize)
	if url := os.Getenv("NOTIFY_WEBHOOK_URL"); url != "" {
		cfg.NotifyWebhookURL = url
	}
	if seconds := readInt("REALTIME_POLL_SECONDS", 0); seconds > 0 {
		cfg.RealtimePollInterval = time.Duration(seconds) * time.Second
	}
	if seconds := readInt("NOTIFY_POLL_SECONDS", 0); seconds > 0 {
		cfg.NotifyPollInterval = time.Duration(seconds) * time.Second
	}

	return cfg
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
