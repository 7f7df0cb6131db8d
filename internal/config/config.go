package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServiceName     string
	LogLevel        string
	HTTPListenAddr  string
	MetricsAddr     string
	CoreDatabaseURL string

	// TokenSealKey is the hex-encoded 32-byte key used to seal OAuth
	// tokens at rest. Rotating it invalidates all stored connections.
	TokenSealKey string

	SweepInterval    time.Duration
	SweepConcurrency int

	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURL     string
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftRedirectURL  string

	// Attribution block appended to outgoing mail per branding policy.
	FooterHTML string
	FooterText string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:     getEnv("SERVICE_NAME", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		CoreDatabaseURL: getEnv("CORE_DATABASE_URL", ""),
		TokenSealKey:    getEnv("TOKEN_SEAL_KEY", ""),

		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:     getEnv("GOOGLE_REDIRECT_URL", ""),
		MicrosoftClientID:     getEnv("MICROSOFT_CLIENT_ID", ""),
		MicrosoftClientSecret: getEnv("MICROSOFT_CLIENT_SECRET", ""),
		MicrosoftRedirectURL:  getEnv("MICROSOFT_REDIRECT_URL", ""),

		FooterHTML: getEnv("FOOTER_HTML", `<p style="color:#9ca3af;font-size:12px">Sent with Nudge &mdash; effortless invoice collection</p>`),
		FooterText: getEnv("FOOTER_TEXT", "--\nSent with Nudge - effortless invoice collection"),
	}

	interval, err := getDuration("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval = interval

	concurrency, err := getInt("SWEEP_CONCURRENCY", 6)
	if err != nil {
		return nil, err
	}
	cfg.SweepConcurrency = concurrency

	return cfg, nil
}

// Validate checks that the config carries everything the named binary
// needs to start.
func (c *Config) Validate(binary string) error {
	if c.CoreDatabaseURL == "" {
		return fmt.Errorf("%s: CORE_DATABASE_URL is required", binary)
	}
	if c.TokenSealKey == "" {
		return fmt.Errorf("%s: TOKEN_SEAL_KEY is required", binary)
	}
	if binary == "sweeper" {
		if c.SweepInterval <= 0 {
			return fmt.Errorf("sweeper: SWEEP_INTERVAL must be positive")
		}
		if c.SweepConcurrency <= 0 {
			return fmt.Errorf("sweeper: SWEEP_CONCURRENCY must be positive")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
