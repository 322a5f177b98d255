// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "vac.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}

	if cfg.Log.ID != "default" || cfg.Log.Mode != "merkle" {
		t.Errorf("expected log default/merkle, got %s/%s", cfg.Log.ID, cfg.Log.Mode)
	}

	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Compression != "zstd" {
		t.Errorf("expected sqlite with zstd, got %s with %s", cfg.Storage.Backend, cfg.Storage.Compression)
	}

	if cfg.Signing.Enabled {
		t.Error("expected signing disabled for development")
	}
}

func TestLoad_RequiresVacConfig(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when VAC_CONFIG not set, got nil")
	}

	expectedMsg := "VAC_CONFIG environment variable not set"
	if !strings.HasPrefix(err.Error(), expectedMsg) {
		t.Errorf("expected error message to start with %q, got %q", expectedMsg, err.Error())
	}
}

func TestLoad_WithVacConfig(t *testing.T) {
	configPath := writeConfig(t, `
environment: staging
log:
  id: clinic
`)
	t.Setenv(EnvVar, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}

	if cfg.Log.ID != "clinic" {
		t.Errorf("expected log.id=clinic, got %s", cfg.Log.ID)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, `
environment: staging
root: /custom/root

log:
  id: ward-7
  mode: list
  allow_empty_blocks: true
  heartbeat_interval: 30s
  auto_commit: true

storage:
  pool_size: 2
  compression: lz4

signing:
  enabled: true
  passphrase_env: WARD_PASSPHRASE

trusted_keys:
  intake: 3b6a27bcceb6a42d62a3a8d02a6f0d73653215771de243a63ac048a18b59da29
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Log.ID != "ward-7" || cfg.Log.Mode != "list" {
		t.Errorf("expected log ward-7/list, got %s/%s", cfg.Log.ID, cfg.Log.Mode)
	}
	if !cfg.Log.AllowEmptyBlocks || !cfg.Log.AutoCommit {
		t.Errorf("expected allow_empty_blocks and auto_commit, got %+v", cfg.Log)
	}
	interval, err := cfg.HeartbeatInterval()
	if err != nil || interval != 30*time.Second {
		t.Errorf("HeartbeatInterval() = %s, %v; want 30s", interval, err)
	}

	// Paths default relative to the configured root.
	if cfg.Storage.Path != "/custom/root/vac.db" {
		t.Errorf("expected storage.path=/custom/root/vac.db, got %s", cfg.Storage.Path)
	}
	if cfg.Log.WatchdogFile != "/custom/root/head.json" {
		t.Errorf("expected log.watchdog_file=/custom/root/head.json, got %s", cfg.Log.WatchdogFile)
	}
	if cfg.Signing.KeyFile != "/custom/root/signing.key" {
		t.Errorf("expected signing.key_file=/custom/root/signing.key, got %s", cfg.Signing.KeyFile)
	}
	if cfg.Storage.PoolSize != 2 || cfg.Storage.Compression != "lz4" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
	if len(cfg.TrustedKeys) != 1 || cfg.TrustedKeys["intake"] == "" {
		t.Errorf("unexpected trusted_keys %v", cfg.TrustedKeys)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFileRejectsBadYAML(t *testing.T) {
	configPath := writeConfig(t, "log: [unterminated\n")
	if _, err := LoadFile(configPath); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, `
environment: production
root: /default/root

log:
  auto_commit: true
  heartbeat_interval: 1m

storage:
  compression: none

signing:
  enabled: false

production:
  root: /prod/root
  log:
    auto_commit: false
    heartbeat_interval: 5s
  storage:
    compression: zstd
  signing:
    enabled: true
    key_file: /secrets/vac.key
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Root != "/prod/root" {
		t.Errorf("expected root=/prod/root, got %s", cfg.Root)
	}
	if cfg.Storage.Path != "/prod/root/vac.db" {
		t.Errorf("expected storage.path under the production root, got %s", cfg.Storage.Path)
	}
	if cfg.Log.AutoCommit {
		t.Error("expected auto_commit=false from production override")
	}
	if cfg.Log.HeartbeatInterval != "5s" {
		t.Errorf("expected heartbeat_interval=5s, got %s", cfg.Log.HeartbeatInterval)
	}
	if cfg.Storage.Compression != "zstd" {
		t.Errorf("expected compression=zstd, got %s", cfg.Storage.Compression)
	}
	if !cfg.Signing.Enabled || cfg.Signing.KeyFile != "/secrets/vac.key" {
		t.Errorf("unexpected signing %+v", cfg.Signing)
	}
}

func TestProductionDefaultsEnableSigning(t *testing.T) {
	configPath := writeConfig(t, `
environment: production
root: /srv/vac
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !cfg.Signing.Enabled {
		t.Error("expected signing enabled by production defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestUnmatchedOverridesIgnored(t *testing.T) {
	configPath := writeConfig(t, `
environment: development
log:
  id: base
staging:
  log:
    id: staged
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Log.ID != "base" {
		t.Errorf("expected log.id=base, got %s", cfg.Log.ID)
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	// Set env vars that should be ignored.
	t.Setenv("VAC_ROOT", "/env/root")
	t.Setenv("VAC_LOG_ID", "from-env")

	configPath := writeConfig(t, `
environment: development
root: /file/root
log:
  id: from-file
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Root != "/file/root" {
		t.Errorf("expected root=/file/root from file, got %s (env vars should not override)", cfg.Root)
	}
	if cfg.Storage.Path != "/file/root/vac.db" {
		t.Errorf("expected storage.path=/file/root/vac.db, got %s", cfg.Storage.Path)
	}
	if cfg.Log.ID != "from-file" {
		t.Errorf("expected log.id=from-file, got %s", cfg.Log.ID)
	}
}

func TestPassphrase(t *testing.T) {
	cfg := Default()
	if _, ok := cfg.Passphrase(); ok {
		t.Error("passphrase reported without passphrase_env")
	}

	cfg.Signing.PassphraseEnv = "VAC_TEST_PASSPHRASE"
	os.Unsetenv("VAC_TEST_PASSPHRASE")
	if _, ok := cfg.Passphrase(); ok {
		t.Error("passphrase reported for an unset variable")
	}

	t.Setenv("VAC_TEST_PASSPHRASE", "correct horse")
	passphrase, ok := cfg.Passphrase()
	if !ok || string(passphrase) != "correct horse" {
		t.Errorf("Passphrase() = %q, %v", passphrase, ok)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/vac",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/vac",
		},
		{
			input:    "${MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid environment",
			modify: func(c *Config) {
				c.Environment = "invalid"
			},
			wantErr: true,
		},
		{
			name: "empty log id",
			modify: func(c *Config) {
				c.Log.ID = ""
			},
			wantErr: true,
		},
		{
			name: "unknown mode",
			modify: func(c *Config) {
				c.Log.Mode = "tree"
			},
			wantErr: true,
		},
		{
			name: "unparseable heartbeat",
			modify: func(c *Config) {
				c.Log.HeartbeatInterval = "often"
			},
			wantErr: true,
		},
		{
			name: "negative heartbeat",
			modify: func(c *Config) {
				c.Log.HeartbeatInterval = "-1s"
			},
			wantErr: true,
		},
		{
			name: "unknown backend",
			modify: func(c *Config) {
				c.Storage.Backend = "postgres"
			},
			wantErr: true,
		},
		{
			name: "sqlite without path",
			modify: func(c *Config) {
				c.Storage.Path = ""
			},
			wantErr: true,
		},
		{
			name: "memory without path",
			modify: func(c *Config) {
				c.Storage.Backend = "memory"
				c.Storage.Path = ""
			},
			wantErr: false,
		},
		{
			name: "unknown compression",
			modify: func(c *Config) {
				c.Storage.Compression = "gzip"
			},
			wantErr: true,
		},
		{
			name: "signing without key file",
			modify: func(c *Config) {
				c.Signing.Enabled = true
				c.Signing.KeyFile = ""
			},
			wantErr: true,
		},
		{
			name: "empty trusted key",
			modify: func(c *Config) {
				c.TrustedKeys = map[string]string{"intake": ""}
			},
			wantErr: true,
		},
		{
			name: "production requires signing",
			modify: func(c *Config) {
				c.Environment = Production
			},
			wantErr: true,
		},
		{
			name: "production refuses memory",
			modify: func(c *Config) {
				c.Environment = Production
				c.Signing.Enabled = true
				c.Storage.Backend = "memory"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsurePaths(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Root = filepath.Join(tmpDir, "vac")
	cfg.Storage.Path = filepath.Join(tmpDir, "data", "logs", "vac.db")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}

	for _, path := range []string{cfg.Root, filepath.Dir(cfg.Storage.Path)} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("path %s not created: %v", path, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("path %s is not a directory", path)
		}
	}
}
