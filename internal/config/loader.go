package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime configuration for the family scheduler service.
//
// Values are resolved in two layers: an optional YAML file (FAMILY_CONFIG or
// -config) provides the base, then environment variables override individual
// fields.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	SessionTTL         time.Duration
	NotifyLeadTime     time.Duration
	NotifyEvalEvery    time.Duration
	NotifyCleanupEvery time.Duration
	// SessionPurgeCron is a cron expression driving the expired-session
	// purge job (robfig/cron syntax).
	SessionPurgeCron string
}

// fileConfig is the YAML shape of Config; durations are Go duration strings.
type fileConfig struct {
	HTTPPort           *int    `yaml:"http_port"`
	SQLiteDSN          *string `yaml:"sqlite_dsn"`
	SessionTTL         *string `yaml:"session_ttl"`
	NotifyLeadTime     *string `yaml:"notify_lead_time"`
	NotifyEvalEvery    *string `yaml:"notify_eval_every"`
	NotifyCleanupEvery *string `yaml:"notify_cleanup_every"`
	SessionPurgeCron   *string `yaml:"session_purge_cron"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPPort:           8080,
		SQLiteDSN:          "file:family.db?_pragma=foreign_keys(1)",
		SessionTTL:         24 * time.Hour,
		NotifyLeadTime:     10 * time.Minute,
		NotifyEvalEvery:    30 * time.Second,
		NotifyCleanupEvery: 5 * time.Minute,
		SessionPurgeCron:   "@hourly",
	}
}

// Load resolves configuration from the optional YAML file at path (empty
// means FAMILY_CONFIG, which may also be unset) and then the process
// environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("FAMILY_CONFIG"))
	}
	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		// A missing FAMILY_CONFIG default path is tolerated; an explicitly
		// unreadable file is not.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return file.apply(cfg, path)
}

func (f fileConfig) apply(cfg *Config, path string) error {
	if f.HTTPPort != nil {
		cfg.HTTPPort = *f.HTTPPort
	}
	if f.SQLiteDSN != nil {
		cfg.SQLiteDSN = *f.SQLiteDSN
	}
	if f.SessionPurgeCron != nil {
		cfg.SessionPurgeCron = *f.SessionPurgeCron
	}

	for _, entry := range []struct {
		name   string
		raw    *string
		target *time.Duration
	}{
		{"session_ttl", f.SessionTTL, &cfg.SessionTTL},
		{"notify_lead_time", f.NotifyLeadTime, &cfg.NotifyLeadTime},
		{"notify_eval_every", f.NotifyEvalEvery, &cfg.NotifyEvalEvery},
		{"notify_cleanup_every", f.NotifyCleanupEvery, &cfg.NotifyCleanupEvery},
	} {
		if entry.raw == nil {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(*entry.raw))
		if err != nil || d <= 0 {
			return fmt.Errorf("config: %s: invalid duration %q in %s", entry.name, *entry.raw, path)
		}
		*entry.target = d
	}
	return nil
}

func applyEnv(cfg *Config) error {
	invalid := make([]string, 0, 2)

	if value := strings.TrimSpace(os.Getenv("FAMILY_HTTP_PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 {
			invalid = append(invalid, "FAMILY_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("FAMILY_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	for _, entry := range []struct {
		name   string
		target *time.Duration
	}{
		{"FAMILY_SESSION_TTL", &cfg.SessionTTL},
		{"FAMILY_NOTIFY_LEAD_TIME", &cfg.NotifyLeadTime},
		{"FAMILY_NOTIFY_EVAL_EVERY", &cfg.NotifyEvalEvery},
		{"FAMILY_NOTIFY_CLEANUP_EVERY", &cfg.NotifyCleanupEvery},
	} {
		value := strings.TrimSpace(os.Getenv(entry.name))
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			invalid = append(invalid, entry.name)
			continue
		}
		*entry.target = d
	}

	if cron := strings.TrimSpace(os.Getenv("FAMILY_SESSION_PURGE_CRON")); cron != "" {
		cfg.SessionPurgeCron = cron
	}

	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func (c Config) validate() error {
	if c.HTTPPort <= 0 {
		return errors.New("config: http_port must be positive")
	}
	if c.SQLiteDSN == "" {
		return errors.New("config: sqlite_dsn is required")
	}
	if c.SessionTTL <= 0 || c.NotifyLeadTime <= 0 || c.NotifyEvalEvery <= 0 || c.NotifyCleanupEvery <= 0 {
		return errors.New("config: durations must be positive")
	}
	return nil
}
