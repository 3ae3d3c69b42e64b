// Package config loads recstore settings from an INI file.
//
//	[database]
//	path         = /var/lib/recstore/recstore.db
//	durability   = relaxed
//	open_timeout = 1s
//
//	[log]
//	level  = info
//	format = text
package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/inovacc/recstore/internal/application"
	"github.com/inovacc/recstore/internal/encoding"
	"github.com/inovacc/recstore/internal/engine"
	"gopkg.in/ini.v1"
)

type DatabaseSection struct {
	Path        string        `ini:"path" validate:"required"`
	Durability  string        `ini:"durability" validate:"oneof=relaxed strict"`
	OpenTimeout time.Duration `ini:"open_timeout" validate:"gte=0"`
}

type LogSection struct {
	Level  string `ini:"level" validate:"oneof=debug info warn error"`
	Format string `ini:"format" validate:"oneof=text json"`
}

type Config struct {
	Database DatabaseSection `ini:"database"`
	Log      LogSection      `ini:"log"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a Config pointing at the application directory.
func Default() Config {
	path, err := application.DefaultDatabasePath()
	if err != nil {
		path = application.DatabaseFileName
	}

	return Config{
		Database: DatabaseSection{
			Path:        path,
			Durability:  engine.DurabilityRelaxed.String(),
			OpenTimeout: time.Second,
		},
		Log: LogSection{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" || !encoding.FileExists(path) {
		return &cfg, cfg.Validate()
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := file.Section("database").MapTo(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to read [database] from %s: %w", path, err)
	}

	if err := file.Section("log").MapTo(&cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to read [log] from %s: %w", path, err)
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Normalize lowercases and trims the enumerated values so they validate
// regardless of case.
func (c *Config) Normalize() {
	c.Database.Durability = strings.ToLower(strings.TrimSpace(c.Database.Durability))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate checks every field.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// Durability returns the parsed default durability.
func (c *Config) Durability() engine.Durability {
	d, err := engine.ParseDurability(c.Database.Durability)
	if err != nil {
		return engine.DurabilityRelaxed
	}

	return d
}

// WriteTo writes the configuration in INI form.
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	file := ini.Empty()
	if err := file.ReflectFrom(c); err != nil {
		return 0, fmt.Errorf("failed to encode config: %w", err)
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return 0, err
	}

	return buf.WriteTo(w)
}

// Save writes the configuration to path with 0600 permissions.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return err
	}

	return encoding.WriteFileSecure(path, buf.Bytes())
}

// NewLogger builds the slog logger described by the [log] section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Log.Level)}

	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
