package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Env                  string
	ServerAddr           string
	DatabasePath         string
	MapAccessToken       string
	MapStyleURL          string
	GeocodeRatePerSec    float64
	GeocodeRateBurst     int
	TrustedProxies       []string
	RedisURL             string
	CacheTTLMinutes      int
	NATSURL              string
	NATSSubject          string
	KafkaBrokers         []string
	KafkaTopic           string
	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOUseSSL          bool
	WorkerPollIntervalMS int
}

func Load(path string) (Config, error) {
	cfg := Config{
		Env:                  "production",
		ServerAddr:           ":5000",
		DatabasePath:         "postcodes.db",
		MapStyleURL:          "mapbox://styles/mapbox/streets-v12",
		GeocodeRatePerSec:    10,
		GeocodeRateBurst:     20,
		CacheTTLMinutes:      60,
		NATSSubject:          "postcode.lookups",
		KafkaTopic:           "postcode-lookups",
		WorkerPollIntervalMS: 2000,
	}

	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg.Env = getenv("APP_ENV", cfg.Env)
	cfg.ServerAddr = getenv("SERVER_ADDR", cfg.ServerAddr)
	cfg.DatabasePath = getenv("DATABASE_PATH", cfg.DatabasePath)
	cfg.MapAccessToken = os.Getenv("MAP_ACCESS_TOKEN")
	cfg.MapStyleURL = getenv("MAP_STYLE_URL", cfg.MapStyleURL)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubject = getenv("NATS_SUBJECT", cfg.NATSSubject)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitAndTrim(v)
	}
	cfg.KafkaTopic = getenv("KAFKA_TOPIC", cfg.KafkaTopic)
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitAndTrim(v)
	}
	cfg.MinIOEndpoint = os.Getenv("MINIO_ENDPOINT")
	cfg.MinIOAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.MinIOSecretKey = os.Getenv("MINIO_SECRET_KEY")

	if v := os.Getenv("GEOCODE_RATE_PER_SEC"); v != "" {
		if err := parseFloat(&cfg.GeocodeRatePerSec, v); err != nil {
			return Config{}, fmt.Errorf("GEOCODE_RATE_PER_SEC: %w", err)
		}
	}
	if v := os.Getenv("GEOCODE_RATE_BURST"); v != "" {
		if err := parseInt(&cfg.GeocodeRateBurst, v); err != nil {
			return Config{}, fmt.Errorf("GEOCODE_RATE_BURST: %w", err)
		}
	}
	if v := os.Getenv("CACHE_TTL_MINUTES"); v != "" {
		if err := parseInt(&cfg.CacheTTLMinutes, v); err != nil {
			return Config{}, fmt.Errorf("CACHE_TTL_MINUTES: %w", err)
		}
	}
	if v := os.Getenv("WORKER_POLL_INTERVAL_MS"); v != "" {
		if err := parseInt(&cfg.WorkerPollIntervalMS, v); err != nil {
			return Config{}, fmt.Errorf("WORKER_POLL_INTERVAL_MS: %w", err)
		}
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if err := parseBool(&cfg.MinIOUseSSL, v); err != nil {
			return Config{}, fmt.Errorf("MINIO_USE_SSL: %w", err)
		}
	}

	return cfg, nil
}

func (c Config) MinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseInt(target *int, value string) error {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}

func parseFloat(target *float64, value string) error {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}

func parseBool(target *bool, value string) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
