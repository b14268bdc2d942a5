// Package config loads procscore settings from YAML or TOML files.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/srodi/procscore/pkg/facts"
	"github.com/srodi/procscore/pkg/score"
	"github.com/srodi/procscore/pkg/types"
)

// Config is the full set of procscore settings.
type Config struct {
	Server ServerConfig     `yaml:"server" toml:"server"`
	Scan   ScanConfig       `yaml:"scan" toml:"scan"`
	Score  score.Thresholds `yaml:"score" toml:"score"`
	Log    LogConfig        `yaml:"log" toml:"log"`
	Watch  WatchConfig      `yaml:"watch" toml:"watch"`
	Facts  FactsConfig      `yaml:"facts" toml:"facts"`
}

// ServerConfig controls the HTTP endpoint.
type ServerConfig struct {
	Listen       string        `yaml:"listen" toml:"listen" validate:"required,hostname_port"`
	SnapshotTTL  time.Duration `yaml:"snapshot_ttl" toml:"snapshot_ttl" validate:"gt=0"`
	MaxSnapshots uint64        `yaml:"max_snapshots" toml:"max_snapshots"`
}

// ScanConfig controls how the process table is read.
type ScanConfig struct {
	ProcMount     string        `yaml:"proc_mount" toml:"proc_mount"`
	Reap          bool          `yaml:"reap" toml:"reap"`
	MaxEntries    int           `yaml:"max_entries" toml:"max_entries" validate:"gte=0"`
	TraceSyscalls bool          `yaml:"trace_syscalls" toml:"trace_syscalls"`
	Warmup        time.Duration `yaml:"warmup" toml:"warmup" validate:"gte=0"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level      string `yaml:"level" toml:"level" validate:"oneof=trace debug info warn error"`
	Format     string `yaml:"format" toml:"format" validate:"oneof=console json"`
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups" validate:"gte=0"`
}

// WatchConfig controls the terminal poller.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval" toml:"interval" validate:"gt=0"`
	MinTier  string        `yaml:"min_tier" toml:"min_tier" validate:"tier"`
	RiskLog  string        `yaml:"risk_log" toml:"risk_log"`
}

// FactsConfig holds the initial facts field mask.
type FactsConfig struct {
	Mask int `yaml:"mask" toml:"mask" validate:"gte=0,lte=63"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       "127.0.0.1:9477",
			SnapshotTTL:  2 * time.Minute,
			MaxSnapshots: 64,
		},
		Scan: ScanConfig{
			Reap:   true,
			Warmup: time.Second,
		},
		Score: score.DefaultThresholds(),
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Watch: WatchConfig{
			Interval: 5 * time.Second,
			MinTier:  types.TierHigh.String(),
		},
		Facts: FactsConfig{Mask: facts.AllFields},
	}
}

// Load reads path over the defaults and validates the result. An empty path yields the
// defaults. Files ending in .toml are parsed as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "reading config", "path", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.WrapIfWithDetails(err, "parsing toml config", "path", path)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.WrapIfWithDetails(err, "parsing yaml config", "path", path)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.WithDetails(err, "path", path)
	}
	return cfg, nil
}

// MinTier returns the parsed watch threshold.
func (c *Config) MinTier() types.Tier {
	t, _ := types.ParseTier(c.Watch.MinTier)
	return t
}
