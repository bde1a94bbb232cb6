// Package config loads the til YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/til/internal/category"
)

// Backend drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverHTTP   = "http"
)

// Defaults applied to unset fields.
const (
	DefaultDatabase    = "til.db"
	DefaultListen      = ":8080"
	DefaultHTTPTimeout = 10 * time.Second
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full client and server configuration.
type Config struct {
	Driver          string        `yaml:"driver"`           // sqlite, mysql or http
	Database        string        `yaml:"database"`         // SQLite file path
	DSN             string        `yaml:"dsn"`              // MySQL DSN
	RemoteURL       string        `yaml:"remote_url"`       // REST facade base URL
	Listen          string        `yaml:"listen"`           // serve address
	DefaultCategory string        `yaml:"default_category"` // initial selection
	DiscardStale    bool          `yaml:"discard_stale"`    // drop superseded list results
	HTTPTimeout     time.Duration `yaml:"http_timeout"`     // per-request timeout of the HTTP driver
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Driver:          DriverSQLite,
		Database:        DefaultDatabase,
		Listen:          DefaultListen,
		DefaultCategory: category.All,
		HTTPTimeout:     DefaultHTTPTimeout,
	}
}

// Load reads path over the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a YAML document over the defaults and validates the result.
// An empty document yields Default().
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Driver == "" {
		c.Driver = d.Driver
	}
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.DefaultCategory == "" {
		c.DefaultCategory = d.DefaultCategory
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
}

// Validate checks driver requirements and the default category.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Database == "" {
			return fmt.Errorf("%w: sqlite driver needs database", ErrInvalid)
		}
	case DriverMySQL:
		if c.DSN == "" {
			return fmt.Errorf("%w: mysql driver needs dsn", ErrInvalid)
		}
	case DriverHTTP:
		if c.RemoteURL == "" {
			return fmt.Errorf("%w: http driver needs remote_url", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalid, c.Driver)
	}
	if !category.Default().IsSelectable(c.DefaultCategory) {
		return fmt.Errorf("%w: unknown default_category %q", ErrInvalid, c.DefaultCategory)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: negative http_timeout", ErrInvalid)
	}
	return nil
}
