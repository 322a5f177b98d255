// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// EnvVar names the environment variable Load reads the config path
// from.
const EnvVar = "VAC_CONFIG"

// Config is the configuration of one attestation log.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Root is the base directory for log data. Other paths may refer
	// to it as ${VAC_ROOT}.
	Root string `yaml:"root"`

	// Log configures the append log.
	Log LogConfig `yaml:"log"`

	// Storage configures the block store.
	Storage StorageConfig `yaml:"storage"`

	// Signing configures the block signing key.
	Signing SigningConfig `yaml:"signing"`

	// TrustedKeys maps submitter key IDs to public keys (hex or
	// did:key). Signed submissions by any other key are rejected.
	TrustedKeys map[string]string `yaml:"trusted_keys,omitempty"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per
// environment. Nil and empty values leave the base value alone.
type ConfigOverrides struct {
	Root    string            `yaml:"root,omitempty"`
	Log     *LogOverrides     `yaml:"log,omitempty"`
	Storage *StorageConfig    `yaml:"storage,omitempty"`
	Signing *SigningOverrides `yaml:"signing,omitempty"`
}

// LogConfig configures the append log.
type LogConfig struct {
	// ID names the log. It is also the tree ID answered by root and
	// proof queries.
	// Default: default
	ID string `yaml:"id"`

	// Mode selects the block integrity mode.
	// Values: "merkle" (blocks commit to the tree root), "list" (hash chain only)
	// Default: merkle
	Mode string `yaml:"mode"`

	// AllowEmptyBlocks lets a commit with nothing pending produce an
	// empty heartbeat block.
	// Default: false
	AllowEmptyBlocks bool `yaml:"allow_empty_blocks"`

	// HeartbeatInterval is the period of the background commit loop,
	// as a Go duration. Empty or "0" disables the loop.
	HeartbeatInterval string `yaml:"heartbeat_interval"`

	// AutoCommit commits each accepted submission immediately.
	// Default: false
	AutoCommit bool `yaml:"auto_commit"`

	// WatchdogFile records the head after every commit and is checked
	// against the store on open to detect truncation. Ignored by the
	// memory backend. Empty disables it.
	// Default: ${VAC_ROOT}/head.json
	WatchdogFile string `yaml:"watchdog_file"`
}

// LogOverrides is LogConfig with optional booleans.
type LogOverrides struct {
	ID                string `yaml:"id,omitempty"`
	Mode              string `yaml:"mode,omitempty"`
	AllowEmptyBlocks  *bool  `yaml:"allow_empty_blocks,omitempty"`
	HeartbeatInterval string `yaml:"heartbeat_interval,omitempty"`
	AutoCommit        *bool  `yaml:"auto_commit,omitempty"`
	WatchdogFile      string `yaml:"watchdog_file,omitempty"`
}

// StorageConfig configures the block store.
type StorageConfig struct {
	// Backend selects the store.
	// Values: "sqlite", "memory"
	// Default: sqlite
	Backend string `yaml:"backend"`

	// Path is the SQLite database file.
	// Default: ${VAC_ROOT}/vac.db
	Path string `yaml:"path"`

	// PoolSize is the number of SQLite connections. Zero uses the
	// pool default.
	PoolSize int `yaml:"pool_size"`

	// Compression is applied to stored record bodies.
	// Values: "none", "lz4", "zstd"
	// Default: zstd
	Compression string `yaml:"compression"`
}

// SigningConfig configures the block signing key.
type SigningConfig struct {
	// Enabled turns block and tree head signing on.
	// Default: false (development), true (production)
	Enabled bool `yaml:"enabled"`

	// KeyFile is the signing key: a hex seed, an OpenSSH ed25519 key,
	// or an age-sealed seed.
	// Default: ${VAC_ROOT}/signing.key
	KeyFile string `yaml:"key_file"`

	// PassphraseEnv names the environment variable holding the key
	// file passphrase. When it is unset the passphrase is prompted
	// for on a terminal.
	PassphraseEnv string `yaml:"passphrase_env"`
}

// SigningOverrides is SigningConfig with an optional Enabled.
type SigningOverrides struct {
	Enabled       *bool  `yaml:"enabled,omitempty"`
	KeyFile       string `yaml:"key_file,omitempty"`
	PassphraseEnv string `yaml:"passphrase_env,omitempty"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Environment: Development,
		Root:        filepath.Join(homeDir, ".cache", "vac"),
		Log: LogConfig{
			ID:           "default",
			Mode:         "merkle",
			WatchdogFile: "${VAC_ROOT}/head.json",
		},
		Storage: StorageConfig{
			Backend:     "sqlite",
			Path:        "${VAC_ROOT}/vac.db",
			Compression: "zstd",
		},
		Signing: SigningConfig{
			KeyFile: "${VAC_ROOT}/signing.key",
		},
	}
}

// Load loads configuration from the VAC_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if VAC_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your vac.yaml config file, or use --config flag", EnvVar)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values. The only expansion performed is ${HOME}, ${VAC_ROOT},
// and ${VAR:-default} in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: blocks are signed.
		if overrides == nil {
			enabled := true
			overrides = &ConfigOverrides{
				Signing: &SigningOverrides{Enabled: &enabled},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Root != "" {
		c.Root = overrides.Root
	}

	if overrides.Log != nil {
		if overrides.Log.ID != "" {
			c.Log.ID = overrides.Log.ID
		}
		if overrides.Log.Mode != "" {
			c.Log.Mode = overrides.Log.Mode
		}
		if overrides.Log.AllowEmptyBlocks != nil {
			c.Log.AllowEmptyBlocks = *overrides.Log.AllowEmptyBlocks
		}
		if overrides.Log.HeartbeatInterval != "" {
			c.Log.HeartbeatInterval = overrides.Log.HeartbeatInterval
		}
		if overrides.Log.AutoCommit != nil {
			c.Log.AutoCommit = *overrides.Log.AutoCommit
		}
		if overrides.Log.WatchdogFile != "" {
			c.Log.WatchdogFile = overrides.Log.WatchdogFile
		}
	}

	if overrides.Storage != nil {
		if overrides.Storage.Backend != "" {
			c.Storage.Backend = overrides.Storage.Backend
		}
		if overrides.Storage.Path != "" {
			c.Storage.Path = overrides.Storage.Path
		}
		if overrides.Storage.PoolSize != 0 {
			c.Storage.PoolSize = overrides.Storage.PoolSize
		}
		if overrides.Storage.Compression != "" {
			c.Storage.Compression = overrides.Storage.Compression
		}
	}

	if overrides.Signing != nil {
		if overrides.Signing.Enabled != nil {
			c.Signing.Enabled = *overrides.Signing.Enabled
		}
		if overrides.Signing.KeyFile != "" {
			c.Signing.KeyFile = overrides.Signing.KeyFile
		}
		if overrides.Signing.PassphraseEnv != "" {
			c.Signing.PassphraseEnv = overrides.Signing.PassphraseEnv
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"VAC_ROOT": c.Root,
		"HOME":     os.Getenv("HOME"),
	}

	c.Root = expandVars(c.Root, vars)
	vars["VAC_ROOT"] = c.Root // Update for dependent paths.

	c.Storage.Path = expandVars(c.Storage.Path, vars)
	c.Signing.KeyFile = expandVars(c.Signing.KeyFile, vars)
	c.Log.WatchdogFile = expandVars(c.Log.WatchdogFile, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// HeartbeatInterval returns the parsed commit loop period. Zero means
// the loop is disabled.
func (c *Config) HeartbeatInterval() (time.Duration, error) {
	if c.Log.HeartbeatInterval == "" {
		return 0, nil
	}
	interval, err := time.ParseDuration(c.Log.HeartbeatInterval)
	if err != nil {
		return 0, fmt.Errorf("log.heartbeat_interval: %w", err)
	}
	if interval < 0 {
		return 0, fmt.Errorf("log.heartbeat_interval must not be negative, got %s", interval)
	}
	return interval, nil
}

// Passphrase returns the key file passphrase from the environment
// variable named by signing.passphrase_env, and whether it was set.
func (c *Config) Passphrase() ([]byte, bool) {
	if c.Signing.PassphraseEnv == "" {
		return nil, false
	}
	value, ok := os.LookupEnv(c.Signing.PassphraseEnv)
	if !ok {
		return nil, false
	}
	return []byte(value), true
}

var (
	modeValues        = []string{"merkle", "list"}
	backendValues     = []string{"sqlite", "memory"}
	compressionValues = []string{"none", "lz4", "zstd"}
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Log.ID == "" {
		errs = append(errs, fmt.Errorf("log.id is required"))
	}
	if !slices.Contains(modeValues, c.Log.Mode) {
		errs = append(errs, fmt.Errorf("log.mode must be one of: %v", modeValues))
	}
	if _, err := c.HeartbeatInterval(); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains(backendValues, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend must be one of: %v", backendValues))
	}
	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		errs = append(errs, fmt.Errorf("storage.path is required for the sqlite backend"))
	}
	if c.Storage.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("storage.pool_size must not be negative"))
	}
	if !slices.Contains(compressionValues, c.Storage.Compression) {
		errs = append(errs, fmt.Errorf("storage.compression must be one of: %v", compressionValues))
	}

	if c.Signing.Enabled && c.Signing.KeyFile == "" {
		errs = append(errs, fmt.Errorf("signing.key_file is required when signing is enabled"))
	}

	for id, key := range c.TrustedKeys {
		if id == "" || key == "" {
			errs = append(errs, fmt.Errorf("trusted_keys entries need both a key ID and a public key"))
			break
		}
	}

	if c.Environment == Production {
		if c.Storage.Backend == "memory" {
			errs = append(errs, fmt.Errorf("storage.backend memory is not allowed in production"))
		}
		if !c.Signing.Enabled {
			errs = append(errs, fmt.Errorf("signing must be enabled in production"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the root directory and the directory holding
// the database if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Root}
	if c.Storage.Backend == "sqlite" && c.Storage.Path != "" {
		paths = append(paths, filepath.Dir(c.Storage.Path))
	}
	if c.Log.WatchdogFile != "" {
		paths = append(paths, filepath.Dir(c.Log.WatchdogFile))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
