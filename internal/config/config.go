package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string
	PublicBaseURL string
	LogLevel      string

	MemoryStore    bool
	DatabaseURL    string
	DBDriver       string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxLife  time.Duration
	MigrateOnStart bool

	JWTSecret string
	TokenTTL  time.Duration

	UploadsDir     string
	MaxUploadBytes int64

	RedisURL         string
	SubmitRatePerMin int

	// TrustedProxies are the peers whose X-Forwarded-For is believed.
	TrustedProxies []netip.Prefix

	EmailHost     string
	EmailPort     int
	EmailUser     string
	EmailPass     string
	EmailFrom     string
	AdminEmail    string
	MailWorkers   int
	MailQueueSize int
}

// Load reads .env (current or ../../), then an optional YAML file named by
// CONFIG_FILE. Environment variables win over the file. Every missing
// required key is reported in one error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			slog.Debug("no .env file found, using environment variables")
		}
	}

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	cfg := &Config{
		Port:          src.str("PORT", "8080"),
		PublicBaseURL: src.str("PUBLIC_BASE_URL", "http://localhost:8080"),
		LogLevel:      src.str("LOG_LEVEL", "info"),

		MemoryStore:    src.boolean("MEMORY_STORE", false),
		DatabaseURL:    src.str("DATABASE_URL", ""),
		DBDriver:       src.str("DB_DRIVER", "postgres"),
		DBMaxOpenConns: src.integer("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: src.integer("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLife:  src.duration("DB_CONN_MAX_LIFE", 30*time.Minute),
		MigrateOnStart: src.boolean("MIGRATE_ON_START", true),

		JWTSecret: src.str("JWT_SECRET", ""),
		TokenTTL:  src.duration("TOKEN_TTL", 30*24*time.Hour),

		UploadsDir:     src.str("UPLOADS_DIR", "./uploads"),
		MaxUploadBytes: int64(src.integer("MAX_UPLOAD_BYTES", 10<<20)),

		RedisURL:         src.str("REDIS_URL", ""),
		SubmitRatePerMin: src.integer("SUBMIT_RATE_PER_MIN", 10),

		EmailHost:     src.str("EMAIL_HOST", ""),
		EmailPort:     src.integer("EMAIL_PORT", 587),
		EmailUser:     src.str("EMAIL_USER", ""),
		EmailPass:     src.str("EMAIL_PASS", ""),
		EmailFrom:     src.str("EMAIL_FROM", ""),
		AdminEmail:    src.str("ADMIN_EMAIL", ""),
		MailWorkers:   src.integer("MAIL_WORKERS", 2),
		MailQueueSize: src.integer("MAIL_QUEUE_SIZE", 100),
	}
	if cfg.EmailFrom == "" {
		cfg.EmailFrom = cfg.EmailUser
	}
	proxies, proxyErr := parsePrefixes(src.str("TRUSTED_PROXIES", ""))
	cfg.TrustedProxies = proxies

	if err := errors.Join(proxyErr, cfg.validate()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if !c.MemoryStore && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.EmailHost != "" && c.EmailFrom == "" {
		missing = append(missing, "EMAIL_FROM")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", ")))
	}
	if c.DBDriver != "postgres" && c.DBDriver != "pgx" {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or pgx, got %q", c.DBDriver))
	}
	return errors.Join(errs...)
}

// parsePrefixes reads a comma separated list of CIDRs or bare addresses.
func parsePrefixes(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			p, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// source looks a key up in the environment first, then the config file.
type source struct {
	file map[string]string
}

func readFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}

func (s source) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	v, ok := s.file[key]
	return v, ok
}

func (s source) str(key, fallback string) string {
	if v, ok := s.lookup(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (s source) integer(key string, fallback int) int {
	if v, ok := s.lookup(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func (s source) duration(key string, fallback time.Duration) time.Duration {
	if v, ok := s.lookup(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func (s source) boolean(key string, fallback bool) bool {
	if v, ok := s.lookup(key); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}
