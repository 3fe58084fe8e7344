package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when ARTDISCOVER_CONFIG is unset and the file exists.
const DefaultConfigFile = "artdiscover.yaml"

var ErrMissingAPIKey = errors.New("config: api_key is required (set ARTDISCOVER_API_KEY)")

type Config struct {
	APIKey   string         `yaml:"api_key"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	HTTP     HTTPConfig     `yaml:"http"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Bans     BansConfig     `yaml:"bans"`
}

type CatalogConfig struct {
	BaseURL        string `yaml:"base_url"`
	PageMax        int    `yaml:"page_max"`
	MaxAttempts    int    `yaml:"max_attempts"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
	RetryMaxDelay  string `yaml:"retry_max_delay"`
	HTTPTimeout    string `yaml:"http_timeout"`
	FetchTimeout   string `yaml:"fetch_timeout"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type SessionConfig struct {
	Secret        string `yaml:"secret"`
	TTL           string `yaml:"ttl"`
	SweepInterval string `yaml:"sweep_interval"`
	// MaxSessions caps live sessions; the least recently used is evicted.
	MaxSessions int `yaml:"max_sessions"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type BansConfig struct {
	// GuardAllSentinels, off by default, protects "Unknown artist" and
	// "Unknown period" as well as "Unknown culture".
	GuardAllSentinels bool `yaml:"guard_all_sentinels"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Catalog: CatalogConfig{
			BaseURL:        "https://api.harvardartmuseums.org/object",
			PageMax:        100,
			MaxAttempts:    6,
			RetryBaseDelay: "150ms",
			RetryMaxDelay:  "2s",
			HTTPTimeout:    "12s",
			FetchTimeout:   "20s",
		},
		HTTP: HTTPConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"http://localhost:5173"},
		},
		Session: SessionConfig{
			Secret:        "dev-secret-change-me",
			TTL:           "2h",
			SweepInterval: "1m",
			MaxSessions:   1000,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(home, ".artdiscover", "journal.db"),
		},
		Log: LogConfig{
			Level: "info",
		},
		Bans: BansConfig{
			GuardAllSentinels: false,
		},
	}
}

// LoadConfig layers .env, the YAML file at path and ARTDISCOVER_* variables
// over DefaultConfig. An empty path falls back to ARTDISCOVER_CONFIG and
// then to DefaultConfigFile if present.
func LoadConfig(path string) (Config, error) {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("ARTDISCOVER_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultConfigFile
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.APIKey, "ARTDISCOVER_API_KEY")
	setString(&cfg.Catalog.BaseURL, "ARTDISCOVER_CATALOG_URL")
	setString(&cfg.Catalog.RetryBaseDelay, "ARTDISCOVER_RETRY_BASE_DELAY")
	setString(&cfg.Catalog.RetryMaxDelay, "ARTDISCOVER_RETRY_MAX_DELAY")
	setString(&cfg.Catalog.HTTPTimeout, "ARTDISCOVER_HTTP_TIMEOUT")
	setString(&cfg.Catalog.FetchTimeout, "ARTDISCOVER_FETCH_TIMEOUT")
	setString(&cfg.HTTP.Addr, "ARTDISCOVER_HTTP_ADDR")
	setString(&cfg.Session.Secret, "ARTDISCOVER_SESSION_SECRET")
	setString(&cfg.Session.TTL, "ARTDISCOVER_SESSION_TTL")
	setString(&cfg.Database.Path, "ARTDISCOVER_DB_PATH")
	setString(&cfg.Log.Level, "ARTDISCOVER_LOG_LEVEL")

	if v, ok := os.LookupEnv("ARTDISCOVER_CORS_ORIGINS"); ok {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	if err := setInt(&cfg.Catalog.PageMax, "ARTDISCOVER_PAGE_MAX"); err != nil {
		return err
	}
	if err := setInt(&cfg.Catalog.MaxAttempts, "ARTDISCOVER_MAX_ATTEMPTS"); err != nil {
		return err
	}
	if err := setInt(&cfg.Session.MaxSessions, "ARTDISCOVER_MAX_SESSIONS"); err != nil {
		return err
	}
	if err := setBool(&cfg.Log.JSON, "ARTDISCOVER_LOG_JSON"); err != nil {
		return err
	}
	return setBool(&cfg.Bans.GuardAllSentinels, "ARTDISCOVER_GUARD_ALL_SENTINELS")
}

// Validate checks required keys and that every duration parses.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Catalog.PageMax < 1 {
		return fmt.Errorf("config: catalog.page_max must be >= 1, got %d", c.Catalog.PageMax)
	}
	if c.Catalog.MaxAttempts < 1 {
		return fmt.Errorf("config: catalog.max_attempts must be >= 1, got %d", c.Catalog.MaxAttempts)
	}
	if c.Session.MaxSessions < 1 {
		return fmt.Errorf("config: session.max_sessions must be >= 1, got %d", c.Session.MaxSessions)
	}
	for name, v := range map[string]string{
		"catalog.retry_base_delay": c.Catalog.RetryBaseDelay,
		"catalog.retry_max_delay":  c.Catalog.RetryMaxDelay,
		"catalog.http_timeout":     c.Catalog.HTTPTimeout,
		"catalog.fetch_timeout":    c.Catalog.FetchTimeout,
		"session.ttl":              c.Session.TTL,
		"session.sweep_interval":   c.Session.SweepInterval,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// Duration parses one of the duration fields, falling back to def when it
// is empty or invalid.
func Duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return d
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
