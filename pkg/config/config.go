package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// AuthMode selects the identity verifier wired at startup.
const (
	AuthModeGoogle = "google"
	AuthModeJWT    = "jwt"
)

type Config struct {
	ServerAddr         string        // listen address, defaults to localhost:8002
	BaseURL            string        // externally reachable base URL
	DisableAuth        bool          // local development only
	AuthMode           string        // "google" (default) or "jwt"
	GoogleClientID     string        // OAuth client id for token audience checks
	GoogleClientSecret string        // OAuth client secret (provider flows, not used by the verifier)
	JWTSecret          string        // shared secret for AuthModeJWT
	RedisAddr          string        // optional verified-token cache
	MongoURI           string        // optional food log store
	SessionIdleTimeout time.Duration // defaults to 30m
	TLSCertFile        string
	TLSKeyFile         string
}

// LoadConfig loads the gateway configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		ServerAddr:         os.Getenv("ATLAS_SERVER_ADDR"),
		BaseURL:            os.Getenv("ATLAS_BASE_URL"),
		DisableAuth:        boolEnv("ATLAS_DISABLE_AUTH"),
		AuthMode:           os.Getenv("ATLAS_AUTH_MODE"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		JWTSecret:          os.Getenv("ATLAS_JWT_SECRET"),
		RedisAddr:          os.Getenv("ATLAS_REDIS_ADDR"),
		MongoURI:           os.Getenv("ATLAS_MONGO_URI"),
		TLSCertFile:        os.Getenv("ATLAS_TLS_CERT_FILE"),
		TLSKeyFile:         os.Getenv("ATLAS_TLS_KEY_FILE"),
	}

	if cfg.ServerAddr == "" {
		log.Print("WARNING ATLAS_SERVER_ADDR env var not set. Using default localhost:8002")
		cfg.ServerAddr = "localhost:8002"
	}
	if cfg.AuthMode == "" {
		cfg.AuthMode = AuthModeGoogle
	}

	cfg.SessionIdleTimeout = durationEnv("ATLAS_SESSION_IDLE_TIMEOUT", 30*time.Minute)

	return cfg
}

func boolEnv(key string) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return false
	}
	return val
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("WARNING %s=%q is not a valid duration. Using default %s", key, raw, fallback)
		return fallback
	}
	return d
}
