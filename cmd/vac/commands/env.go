// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GlobalSushrut/connector-oss/cmd/vac/cli"
	"github.com/GlobalSushrut/connector-oss/lib/blockstore"
	"github.com/GlobalSushrut/connector-oss/lib/chain"
	"github.com/GlobalSushrut/connector-oss/lib/clock"
	"github.com/GlobalSushrut/connector-oss/lib/config"
	"github.com/GlobalSushrut/connector-oss/lib/ledger"
	"github.com/GlobalSushrut/connector-oss/lib/metrics"
	"github.com/GlobalSushrut/connector-oss/lib/secret"
	"github.com/GlobalSushrut/connector-oss/lib/signing"
	"github.com/GlobalSushrut/connector-oss/lib/watchdog"
)

// Env is the process environment commands run in.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Clock  clock.Clock

	// Registerer receives ledger metrics. Nil gives each opened
	// ledger a private registry.
	Registerer prometheus.Registerer
}

// DefaultEnv is the environment of the vac binary.
func DefaultEnv() *Env {
	return &Env{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
		Clock:  clock.Real(),
	}
}

func (e *Env) registerer() prometheus.Registerer {
	if e.Registerer != nil {
		return e.Registerer
	}
	return prometheus.NewRegistry()
}

// configParams is embedded by every command that opens a log.
type configParams struct {
	ConfigPath string `json:"-" flag:"config,c" desc:"config file (default: $VAC_CONFIG)"`
}

func (p *configParams) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if p.ConfigPath != "" {
		cfg, err = config.LoadFile(p.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openLedger opens the log described by the configuration. The caller
// closes the returned ledger.
func (e *Env) openLedger(ctx context.Context, params configParams, logger *slog.Logger) (*ledger.Ledger, *config.Config, error) {
	cfg, err := params.load()
	if err != nil {
		return nil, nil, err
	}
	mode, err := chain.ParseMode(cfg.Log.Mode)
	if err != nil {
		return nil, nil, err
	}
	trusted, err := signing.NewKeyring(cfg.TrustedKeys)
	if err != nil {
		return nil, nil, err
	}

	var signer *signing.KeyPair
	if cfg.Signing.Enabled {
		signer, err = e.loadSigningKey(cfg)
		if err != nil {
			return nil, nil, err
		}
	}

	watchdogPath := cfg.Log.WatchdogFile
	if cfg.Storage.Backend == "memory" {
		watchdogPath = ""
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		closeKey(signer)
		return nil, nil, err
	}

	l, err := ledger.Open(ctx, ledger.Config{
		ID:          cfg.Log.ID,
		Mode:        mode,
		AllowEmpty:  cfg.Log.AllowEmptyBlocks,
		Store:       store,
		Signer:      signer,
		AutoCommit:  cfg.Log.AutoCommit,
		TrustedKeys: trusted,
		Committed:   recordHead(watchdogPath, cfg.Log.ID, logger),
		Clock:       e.Clock,
		Logger:      logger,
		Metrics:     metrics.New(e.registerer()),
	})
	if err != nil {
		store.Close()
		closeKey(signer)
		return nil, nil, err
	}
	if err := checkHead(watchdogPath, l.Log()); err != nil {
		l.Close()
		closeKey(signer)
		return nil, nil, err
	}
	return l, cfg, nil
}

// recordHead returns the commit callback that keeps the watchdog file
// at path current. Nil when path is empty.
func recordHead(path, logID string, logger *slog.Logger) func(*chain.Block) {
	if path == "" {
		return nil
	}
	return func(block *chain.Block) {
		if err := watchdog.Write(path, watchdog.FromBlock(logID, block)); err != nil {
			logger.Error("recording log head", "path", path, "error", err)
		}
	}
}

// checkHead verifies that the opened log still holds the head recorded
// at path. A log with no recorded head gets its current one written.
func checkHead(path string, log *chain.Log) error {
	if path == "" {
		return nil
	}
	state, err := watchdog.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		head, ok := log.Head()
		if !ok {
			return nil
		}
		return watchdog.Write(path, watchdog.FromBlock(log.ID(), head))
	}
	if err != nil {
		return err
	}
	return state.CheckLog(log)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blockstore.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		logger.Warn("using the in-memory block store; nothing will persist")
		return blockstore.NewMemory(), nil
	case "sqlite":
		compression, err := blockstore.ParseCompression(cfg.Storage.Compression)
		if err != nil {
			return nil, err
		}
		if err := cfg.EnsurePaths(); err != nil {
			return nil, err
		}
		return blockstore.OpenSQLite(ctx, blockstore.SQLiteConfig{
			Path:        cfg.Storage.Path,
			PoolSize:    cfg.Storage.PoolSize,
			Compression: compression,
			Logger:      logger,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func (e *Env) loadSigningKey(cfg *config.Config) (*signing.KeyPair, error) {
	passphrase, _ := cfg.Passphrase()
	return e.loadKey(cfg.Signing.KeyFile, passphrase, signing.Detect(cfg.Signing.Enabled).LoadKeyFile)
}

func (e *Env) loadKeyFile(path string, passphrase []byte) (*signing.KeyPair, error) {
	return e.loadKey(path, passphrase, signing.LoadKeyFile)
}

// loadKey loads the key at path. A sealed or encrypted key given no
// passphrase is retried once with one read from the terminal.
func (e *Env) loadKey(path string, passphrase []byte, load func(string, []byte) (*signing.KeyPair, error)) (*signing.KeyPair, error) {
	key, err := load(path, passphrase)
	if err == nil || len(passphrase) != 0 || !errors.Is(err, signing.ErrInvalidKeyMaterial) || !needsPassphrase(path) {
		return key, err
	}
	prompted, promptErr := cli.ReadPassphrase(e.Stdin, e.Stderr, fmt.Sprintf("Passphrase for %s: ", path))
	if promptErr != nil {
		return nil, fmt.Errorf("%w (%v)", err, promptErr)
	}
	defer secret.Zero(prompted)
	return load(path, prompted)
}

func needsPassphrase(path string) bool {
	contents, err := secret.ReadFile(path)
	if err != nil {
		return false
	}
	defer contents.Close()
	return signing.NeedsPassphrase(contents.Bytes())
}

func closeKey(key *signing.KeyPair) {
	if key != nil {
		key.Close()
	}
}

// passphraseFrom returns the value of the named environment variable,
// or prompts for one on the terminal. confirm asks twice.
func (e *Env) passphraseFrom(variable, prompt string, confirm bool) ([]byte, error) {
	if variable != "" {
		if value, ok := os.LookupEnv(variable); ok && value != "" {
			return []byte(value), nil
		}
	}
	passphrase, err := cli.ReadPassphrase(e.Stdin, e.Stderr, prompt)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return passphrase, nil
	}
	again, err := cli.ReadPassphrase(e.Stdin, e.Stderr, "Repeat passphrase: ")
	if err != nil {
		secret.Zero(passphrase)
		return nil, err
	}
	defer secret.Zero(again)
	if !bytes.Equal(passphrase, again) {
		secret.Zero(passphrase)
		return nil, fmt.Errorf("passphrases do not match")
	}
	return passphrase, nil
}
