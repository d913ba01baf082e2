// Package config loads wardrobe's YAML configuration.
//
// A file only needs to name the settings it changes; everything else keeps
// the value from Default. Load validates the merged result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration.
type Config struct {
	Database   string           `yaml:"database"`
	Appearance AppearanceConfig `yaml:"appearance"`
	Assets     AssetsConfig     `yaml:"assets"`
	Log        LogConfig        `yaml:"log"`
}

// AppearanceConfig tunes the appearance manager.
type AppearanceConfig struct {
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	MissingTimeout    time.Duration `yaml:"missing_timeout"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	MaxClothingLayers int           `yaml:"max_clothing_layers"`
	AttachmentLinks   bool          `yaml:"attachment_links"`
}

// AssetsConfig sizes the asset resolution service.
type AssetsConfig struct {
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: "wardrobe.db",
		Appearance: AppearanceConfig{
			FetchTimeout:      60 * time.Second,
			MissingTimeout:    60 * time.Second,
			PollInterval:      50 * time.Millisecond,
			MaxClothingLayers: 1,
			AttachmentLinks:   true,
		},
		Assets: AssetsConfig{
			Workers:   4,
			QueueSize: 256,
			CacheSize: 512,
			CacheTTL:  10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path and overlays it on Default. A missing file is not an
// error when optional is set.
func Load(path string, optional bool) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses YAML from r over Default and validates the result.
func Decode(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database: must not be empty"))
	}
	if c.Appearance.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("appearance.fetch_timeout: must be positive, got %s", c.Appearance.FetchTimeout))
	}
	if c.Appearance.MissingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("appearance.missing_timeout: must be positive, got %s", c.Appearance.MissingTimeout))
	}
	if c.Appearance.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("appearance.poll_interval: must be positive, got %s", c.Appearance.PollInterval))
	}
	if c.Appearance.MaxClothingLayers < 1 {
		errs = append(errs, fmt.Errorf("appearance.max_clothing_layers: must be at least 1, got %d", c.Appearance.MaxClothingLayers))
	}
	if c.Assets.Workers < 1 {
		errs = append(errs, fmt.Errorf("assets.workers: must be at least 1, got %d", c.Assets.Workers))
	}
	if c.Assets.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("assets.queue_size: must be at least 1, got %d", c.Assets.QueueSize))
	}
	if c.Assets.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("assets.cache_size: must be at least 1, got %d", c.Assets.CacheSize))
	}
	if c.Assets.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("assets.cache_ttl: must be positive, got %s", c.Assets.CacheTTL))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SlogLevel converts Level to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", l.Level)
}

// NewLogger builds the configured handler writing to w. verbose forces
// debug level.
func (l LogConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, _ := l.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
