package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process level configuration. Values come from the
// environment so main stays lean; every field has a development default.
type Server struct {
	Addr string

	// Platform the app shell reports at startup. Platforms listed in
	// MandatoryGatePlatforms get the OS authorization prompt variant of the
	// tracking gate; everything else gets the open variant.
	Platform               string
	MandatoryGatePlatforms []string

	// RedisURL selects the durable consent-flag store. Empty means the
	// in-memory store (tests, local development).
	RedisURL string

	// CollectorURL is the analytics transport endpoint.
	CollectorURL string

	// BridgeURL is the native agent endpoint for privacy-mode toggles.
	BridgeURL string

	// Admin surface for the consent reset endpoint.
	JWTSigningKey   string
	AdminSecretHash string
	TokenTTL        time.Duration

	// ExtraPIIKeys extends the built-in scrub deny-list.
	ExtraPIIKeys []string
}

const defaultTokenTTL = 15 * time.Minute

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:                   getEnv("CONSENT_GATEWAY_ADDR", ":8080"),
		Platform:               getEnv("CONSENT_GATEWAY_PLATFORM", "android"),
		MandatoryGatePlatforms: splitList(getEnv("CONSENT_GATEWAY_GATE_PLATFORMS", "ios")),
		RedisURL:               os.Getenv("CONSENT_GATEWAY_REDIS_URL"),
		CollectorURL:           getEnv("CONSENT_GATEWAY_COLLECTOR_URL", "http://localhost:9090/collect"),
		BridgeURL:              getEnv("CONSENT_GATEWAY_BRIDGE_URL", "http://localhost:9091/bridge"),
		JWTSigningKey:          getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminSecretHash:        os.Getenv("ADMIN_SECRET_HASH"),
		TokenTTL:               defaultTokenTTL,
		ExtraPIIKeys:           splitList(os.Getenv("CONSENT_GATEWAY_EXTRA_PII_KEYS")),
	}

	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		if duration, err := time.ParseDuration(ttl); err == nil {
			cfg.TokenTTL = duration
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
