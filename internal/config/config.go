package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	DBPath       string `yaml:"db_path"`
	SnapshotPath string `yaml:"snapshot_path"`

	Uploads struct {
		Dir             string `yaml:"dir"`
		TransferTimeout string `yaml:"transfer_timeout"`
		MaxConcurrent   int    `yaml:"max_concurrent"`
	} `yaml:"uploads"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file and fills in defaults for absent fields.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = ".sitesafe/sitesafe.db"
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = ".sitesafe/snapshot.jsonl"
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.TransferTimeout == "" {
		c.Uploads.TransferTimeout = "3m"
	}
	if c.Uploads.MaxConcurrent <= 0 {
		c.Uploads.MaxConcurrent = 3
	}
}

// TransferTimeout parses the configured transfer bound.
func (c *Config) TransferTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Uploads.TransferTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid transfer_timeout %q: %w", c.Uploads.TransferTimeout, err)
	}
	return d, nil
}
