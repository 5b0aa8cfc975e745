// Package config loads the dumper's YAML settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ReadMethodProcMem = "procmem"
	ReadMethodVMReadv = "vm_readv"
)

// Config is the root of the YAML document.
type Config struct {
	Linux   LinuxConfig   `yaml:"linux"`
	Windows WindowsConfig `yaml:"windows"`
	Scan    ScanConfig    `yaml:"scan"`
}

// LinuxConfig selects how the Linux backend reads a remote process.
type LinuxConfig struct {
	ReadMethod string `yaml:"read_method"`
	Ptrace     bool   `yaml:"ptrace"`
	// CacheTTL of zero keeps the region snapshot until it is refreshed
	// explicitly.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type WindowsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type ScanConfig struct {
	// Parallelism above 1 scans that many regions at once.
	Parallelism uint `yaml:"parallelism"`
	// ContextBytes is how much memory around each match gets dumped.
	ContextBytes uint `yaml:"context_bytes"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Linux: LinuxConfig{
			ReadMethod: ReadMethodProcMem,
			Ptrace:     true,
		},
		Windows: WindowsConfig{
			CacheTTL: time.Second,
		},
		Scan: ScanConfig{
			Parallelism:  1,
			ContextBytes: 16,
		},
	}
}

// Load reads path over the defaults, so keys missing from the file keep
// their default values. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Save writes c to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Linux.ReadMethod {
	case ReadMethodProcMem, ReadMethodVMReadv:
	default:
		return fmt.Errorf("linux.read_method must be %q or %q, got %q", ReadMethodProcMem, ReadMethodVMReadv, c.Linux.ReadMethod)
	}
	if c.Linux.CacheTTL < 0 {
		return errors.New("linux.cache_ttl must not be negative")
	}
	if c.Windows.CacheTTL < 0 {
		return errors.New("windows.cache_ttl must not be negative")
	}
	if c.Scan.ContextBytes > 4096 {
		return fmt.Errorf("scan.context_bytes must be at most 4096, got %d", c.Scan.ContextBytes)
	}
	return nil
}
