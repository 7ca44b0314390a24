package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config carries everything smsd needs to run. Values come from the
// environment (a .env file is honoured, matching the original deployment).
type Config struct {
	Bind      string
	Port      int
	LogLevel  zerolog.Level
	DataDir   string
	DBPath    string
	UsersPath string
	RatePath  string

	// SecretPath points at a 32-byte key file used for JWT signing, CSRF
	// token generation and IC-number encryption at rest. When the file is
	// missing SecretKey is used as a fallback (tests).
	SecretPath string
	SecretKey  []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	TOTPIssuer string

	CORSOrigins []string
	TrustProxy  bool

	// Fixed-window rate limits for the credential and OTP endpoints.
	RateLoginPer15m int
	RateOTPPerMin   int
}

func FromEnv() Config {
	_ = godotenv.Load()

	dataDir := envStr("SMS_DATA_DIR", defaultDataDir())
	cfg := Config{
		Bind:            envStr("SMS_BIND", "127.0.0.1"),
		Port:            envInt("SMS_PORT", 5001),
		LogLevel:        envLevel("SMS_LOG", zerolog.InfoLevel),
		DataDir:         dataDir,
		DBPath:          envStr("SMS_DB_PATH", filepath.Join(dataDir, "sms.db")),
		UsersPath:       envStr("SMS_USERS_PATH", filepath.Join(dataDir, "users.json")),
		RatePath:        envStr("SMS_RATE_PATH", filepath.Join(dataDir, "ratelimit.json")),
		SecretPath:      envStr("SMS_SECRET_PATH", filepath.Join(dataDir, "secret.key")),
		AccessTTL:       envDur("SMS_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:      envDur("SMS_REFRESH_TTL", 7*24*time.Hour),
		TOTPIssuer:      envStr("SMS_TOTP_ISSUER", "SoC-SMS"),
		TrustProxy:      envBool("SMS_TRUST_PROXY", false),
		RateLoginPer15m: envInt("SMS_RATE_LOGIN_PER_15M", 30),
		RateOTPPerMin:   envInt("SMS_RATE_OTP_PER_MIN", 10),
	}
	if origin := envStr("SMS_CORS_ORIGIN", ""); origin != "" {
		cfg.CORSOrigins = []string{origin}
	} else {
		// Vite dev server defaults, as in the original front-end.
		cfg.CORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}
	return cfg
}

// Defaults returns a config suitable for tests: everything under a throwaway
// data dir and a fixed in-memory secret.
func Defaults() Config {
	cfg := FromEnv()
	if len(cfg.SecretKey) == 0 {
		key := make([]byte, 32)
		for i := range key {
			key[i] = byte(i + 1)
		}
		cfg.SecretKey = key
	}
	return cfg
}

// Secret returns the signing/encryption key: the key file when present,
// otherwise the in-config fallback.
func (c Config) Secret() []byte {
	if b, err := os.ReadFile(c.SecretPath); err == nil && len(b) >= 32 {
		return b[:32]
	}
	return c.SecretKey
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".sms")
	}
	return "./data"
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envLevel(key string, def zerolog.Level) zerolog.Level {
	if v := os.Getenv(key); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			return l
		}
	}
	return def
}
