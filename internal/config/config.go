package config

import (
	"os"
	"strings"
	"time"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string
	DBSeed   bool

	AuthSecret string

	CORSOriginsProd []string
	CORSOriginsDev  []string

	// Background sweep of attempts that were never submitted. Off by
	// default: without it an abandoned attempt blocks its (user, exam) slot.
	ExpireSweep         bool
	ExpireSweepInterval time.Duration
	ExpireSweepGrace    time.Duration
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeDev
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Mode:     mode,
		HTTPAddr: addr,
		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),
		DBSeed:   envBool("DB_SEED", mode == ModeDev),

		AuthSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),

		CORSOriginsProd: csvOr("CORS_ORIGINS", "https://mockverse.example.com"),
		CORSOriginsDev:  csvOr("CORS_ORIGINS_DEV", "http://localhost:3000"),

		ExpireSweep:         envBool("EXPIRE_SWEEP", false),
		ExpireSweepInterval: envDuration("EXPIRE_SWEEP_INTERVAL", time.Minute),
		ExpireSweepGrace:    envDuration("EXPIRE_SWEEP_GRACE", 2*time.Minute),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
