package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DataDir               string
	ProxyFile             string
	UseProxies            bool
	ProxyRotationInterval time.Duration
	RefreshInterval       time.Duration
	RequestTimeout        time.Duration
	MaxConcurrentRequests int
	UserAgent             string
	BaseURL               string
	Port                  string
	// Webhooks maps a channel ID to the Discord webhook URL deals for that
	// channel are delivered to.
	Webhooks map[string]string
}

func Load() (*Config, error) {
	cfg := &Config{
		DataDir:               envOr("DATA_DIR", "data"),
		ProxyFile:             envOr("PROXY_FILE", "proxies.txt"),
		UserAgent:             envOr("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		BaseURL:               envOr("BASE_URL", "https://www.pepper.pl"),
		Port:                  envOr("PORT", "8080"),
		MaxConcurrentRequests: 5,
		Webhooks:              map[string]string{},
	}

	if v := os.Getenv("USE_PROXIES"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid USE_PROXIES %q: %w", v, err)
		}
		cfg.UseProxies = parsed
	}

	var err error
	cfg.ProxyRotationInterval, err = durationOr("PROXY_ROTATION_INTERVAL", 90*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.RefreshInterval, err = durationOr("REFRESH_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout, err = durationOr("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MAX_CONCURRENT_REQUESTS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid MAX_CONCURRENT_REQUESTS %q", v)
		}
		cfg.MaxConcurrentRequests = parsed
	}

	// DISCORD_WEBHOOKS is a comma-separated list of channel=webhookURL pairs.
	if v := os.Getenv("DISCORD_WEBHOOKS"); v != "" {
		webhooks, err := ParseWebhooks(v)
		if err != nil {
			return nil, err
		}
		cfg.Webhooks = webhooks
	} else {
		slog.Warn("DISCORD_WEBHOOKS not set, deliveries will be skipped")
	}

	return cfg, nil
}

func ParseWebhooks(raw string) (map[string]string, error) {
	webhooks := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		channel, url, ok := strings.Cut(pair, "=")
		if !ok || channel == "" || url == "" {
			return nil, fmt.Errorf("invalid DISCORD_WEBHOOKS entry %q, want channel=url", pair)
		}
		webhooks[channel] = url
	}
	return webhooks, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
