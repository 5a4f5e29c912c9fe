package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	BackendPostgres = "postgres"
	BackendSQL      = "sql"
	BackendRedis    = "redis"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

type Config struct {
	HTTPAddr    string
	MetricsAddr string
	CORSOrigins []string

	StoreBackend   string
	DatabaseURL    string
	SQLDriver      string
	SQLDSN         string
	RedisURL       string
	SnapshotDir    string
	StateKeyPrefix string
	StateTTL       time.Duration

	JWTSecret string
	APIRate   float64 // запросов в секунду на клиента
	APIBurst  int

	RandomSeed  int64
	BalanceFile string
	Autosave    bool
	SessionTTL  time.Duration
}

// DevMode - без JWT_SECRET игрок передается заголовком X-Player-ID
func (c Config) DevMode() bool {
	return c.JWTSecret == ""
}

func mustEnv(key string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		log.Printf("missing env: %s, using default", key)
		return ""
	}
	return val
}

func normalizeDatabaseURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	// Neon sometimes shows `psql 'postgresql://...'` examples. Accept them too.
	if i := strings.Index(s, "postgresql://"); i >= 0 {
		s = s[i:]
	} else if i := strings.Index(s, "postgres://"); i >= 0 {
		s = s[i:]
	}

	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		s = strings.Trim(s[:i], `"'`)
	}

	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	q := u.Query()
	// pgx does not need channel_binding and may treat it as a runtime param.
	q.Del("channel_binding")
	u.RawQuery = q.Encode()
	return u.String()
}

func normalizeRedisURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	// Some consoles show `redis-cli -u redis://...` examples. Accept them too.
	if i := strings.Index(s, "rediss://"); i >= 0 {
		s = s[i:]
	} else if i := strings.Index(s, "redis://"); i >= 0 {
		s = s[i:]
	}

	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		s = strings.Trim(s[:i], `"'`)
	}
	return s
}

func envString(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func envInt64(key string, def int64) int64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envFloat64(key string, def float64) float64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if val == "" {
		return def
	}
	switch val {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// Load читает конфигурацию из окружения. Некорректные значения - panic.
func Load() Config {
	addr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if addr == "" {
		port := envString("PORT", "8080")
		addr = ":" + port
	}

	cfg := Config{
		HTTPAddr:    addr,
		MetricsAddr: envString("METRICS_ADDR", ""),
		CORSOrigins: parseCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),

		StoreBackend:   strings.ToLower(envString("STORE_BACKEND", BackendMemory)),
		DatabaseURL:    normalizeDatabaseURL(os.Getenv("DATABASE_URL")),
		SQLDriver:      strings.ToLower(envString("SQL_DRIVER", "sqlite")),
		SQLDSN:         strings.TrimSpace(os.Getenv("SQL_DSN")),
		RedisURL:       normalizeRedisURL(os.Getenv("REDIS_URL")),
		SnapshotDir:    envString("SNAPSHOT_DIR", "./snapshots"),
		StateKeyPrefix: envString("STATE_KEY_PREFIX", "billionaire_empire:state:"),
		StateTTL:       time.Duration(envInt64("STATE_TTL_HOURS", 0)) * time.Hour,

		JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")),
		APIRate:   envFloat64("API_RATE", 10),
		APIBurst:  int(envInt64("API_BURST", 20)),

		RandomSeed:  envInt64("RANDOM_SEED", 0),
		BalanceFile: strings.TrimSpace(os.Getenv("BALANCE_FILE")),
		Autosave:    envBool("AUTOSAVE", true),
		SessionTTL:  time.Duration(envInt64("SESSION_TTL_MIN", 30)) * time.Minute,
	}

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = normalizeDatabaseURL(mustEnv("DATABASE_URL"))
		}
		if cfg.DatabaseURL == "" {
			panic("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendSQL:
		switch cfg.SQLDriver {
		case "postgres", "libsql", "sqlite":
		default:
			panic("SQL_DRIVER must be postgres, libsql or sqlite")
		}
		if cfg.SQLDSN == "" {
			if cfg.SQLDriver != "sqlite" {
				panic("STORE_BACKEND=sql requires SQL_DSN")
			}
			cfg.SQLDSN = "file:billionaire_empire.db"
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			panic("STORE_BACKEND=redis requires REDIS_URL")
		}
	case BackendFile, BackendMemory:
	default:
		panic("STORE_BACKEND must be postgres, sql, redis, file or memory")
	}

	if cfg.APIRate <= 0 {
		panic("API_RATE must be > 0")
	}
	if cfg.APIBurst <= 0 {
		panic("API_BURST must be > 0")
	}
	if cfg.SessionTTL <= 0 {
		panic("SESSION_TTL_MIN must be > 0")
	}
	if cfg.StateTTL < 0 {
		panic("STATE_TTL_HOURS must be >= 0")
	}

	return cfg
}

func parseCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
