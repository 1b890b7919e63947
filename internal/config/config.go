// Package config contains everything related to configuration
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	APIURL         string        `env:"EASYROUTER_API_URL" envDefault:"http://localhost:3000"`
	RequestTimeout time.Duration `env:"EASYROUTER_REQUEST_TIMEOUT" envDefault:"0s"`
	Email          string        `env:"EASYROUTER_EMAIL"`
	Password       string        `env:"EASYROUTER_PASSWORD"`
	DatabasePath   string        `env:"DATABASE_PATH"`
	LogPath        string        `env:"LOG_PATH"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	MetricsAddr    string        `env:"METRICS_ADDR"`
	Notifications  bool          `env:"NOTIFICATIONS_ENABLED" envDefault:"true"`

	// EnvFile is the .env file the values were read from, if any.
	EnvFile string `env:"-"`
}

// Load reads configuration from the first .env file found and the process environment.
func Load() (*Config, error) {
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return LoadFile("")
}

// LoadFile reads configuration from a specific .env file. Process environment
// variables take precedence over the file, matching godotenv.Load.
func LoadFile(path string) (*Config, error) {
	environ := make(map[string]string)

	if path != "" {
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for k, v := range values {
			environ[k] = v
		}
	}

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}

	cfg := &Config{EnvFile: path}
	opts := env.Options{
		Environment: environ,
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): parseDuration,
		},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	u, err := url.Parse(strings.TrimSpace(c.APIURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("EASYROUTER_API_URL must be an absolute http(s) URL, got %q", c.APIURL)
	}
	c.APIURL = strings.TrimRight(u.String(), "/")

	if c.RequestTimeout < 0 {
		return fmt.Errorf("EASYROUTER_REQUEST_TIMEOUT must not be negative")
	}

	if c.DatabasePath == "" {
		c.DatabasePath = defaultPath("erd.db")
	}
	if c.LogPath == "" {
		c.LogPath = defaultPath("erd.log")
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "easyrouter", ".env"),
			filepath.Join(home, ".easyrouter", ".env"),
		)
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
		grandparent := filepath.Dir(parent)
		paths = append(paths, filepath.Join(grandparent, ".env"))
	}

	return paths
}

// defaultPath returns name inside the per-user config directory.
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", "easyrouter", name)
}

// parseDuration accepts values like "30s", "1m", "500ms" or a bare number of seconds.
func parseDuration(value string) (interface{}, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q", value)
	}
	return time.Duration(secs) * time.Second, nil
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
