package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/certscan-go/internal/frame"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	MaxFramePixels     int

	// Scanner defaults applied to every new session
	ScanProfile        string
	ScanInterval       time.Duration
	AcquisitionTimeout time.Duration
	MetadataTimeout    time.Duration
	RetryDelay         time.Duration
	SnapshotInterval   time.Duration

	// Verification forwarding, disabled when VerifyAPIURL is empty
	VerifyAPIURL   string
	VerifyAPIToken string
	VerifyTimeout  time.Duration
	VerifyWorkers  int

	AzureStorageAccount string
	AzureStorageKey     string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// VerificationEnabled reports whether decoded payloads are forwarded
func (c *Config) VerificationEnabled() bool {
	return c.VerifyAPIURL != ""
}

// BlobEnabled reports whether blob snapshot sessions can be created
func (c *Config) BlobEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MaxFramePixels:     int(parseIntOrDefault("MAX_FRAME_PIXELS", frame.DefaultMaxPixels)),

		ScanProfile:        strings.ToLower(strings.TrimSpace(getEnvOrDefault("SCAN_PROFILE", "default"))),
		ScanInterval:       parseDurationOrDefault("SCAN_INTERVAL", 0),
		AcquisitionTimeout: parseDurationOrDefault("ACQUISITION_TIMEOUT", 10*time.Second),
		MetadataTimeout:    parseDurationOrDefault("METADATA_TIMEOUT", 5*time.Second),
		RetryDelay:         parseDurationOrDefault("RETRY_DELAY", time.Second),
		SnapshotInterval:   parseDurationOrDefault("SNAPSHOT_INTERVAL", 500*time.Millisecond),

		VerifyAPIURL:   strings.TrimRight(strings.TrimSpace(os.Getenv("VERIFY_API_URL")), "/"),
		VerifyAPIToken: strings.TrimSpace(os.Getenv("VERIFY_API_TOKEN")),
		VerifyTimeout:  parseDurationOrDefault("VERIFY_TIMEOUT", 10*time.Second),
		VerifyWorkers:  int(parseIntOrDefault("VERIFY_WORKERS", 4)),

		AzureStorageAccount: strings.TrimSpace(os.Getenv("AZURE_STORAGE_ACCOUNT")),
		AzureStorageKey:     strings.TrimSpace(os.Getenv("AZURE_STORAGE_KEY")),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.MaxFramePixels <= 0 {
		return nil, fmt.Errorf("MAX_FRAME_PIXELS must be > 0 (got %d)", cfg.MaxFramePixels)
	}
	switch cfg.ScanProfile {
	case "default", "mobile", "enhanced":
	default:
		return nil, fmt.Errorf("invalid SCAN_PROFILE: %q", cfg.ScanProfile)
	}
	if cfg.VerifyWorkers <= 0 {
		return nil, fmt.Errorf("VERIFY_WORKERS must be > 0 (got %d)", cfg.VerifyWorkers)
	}
	if cfg.VerifyAPIURL != "" {
		u, err := url.Parse(cfg.VerifyAPIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid VERIFY_API_URL: %q", cfg.VerifyAPIURL)
		}
	}
	if (cfg.AzureStorageAccount == "") != (cfg.AzureStorageKey == "") {
		return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set together")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
