// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/GlobalSushrut/connector-oss/cmd/vac/cli"
	"github.com/GlobalSushrut/connector-oss/lib/secret"
	"github.com/GlobalSushrut/connector-oss/lib/signing"
)

// keyView is the public half of a key pair.
type keyView struct {
	KeyID     string `json:"key_id"`
	PublicKey string `json:"public_key"`
	Path      string `json:"path,omitempty"`
	Sealed    bool   `json:"sealed,omitempty"`
}

func newKeyView(key *signing.KeyPair, path string, sealed bool) keyView {
	return keyView{
		KeyID:     key.ID(),
		PublicKey: hex.EncodeToString(key.Public()),
		Path:      path,
		Sealed:    sealed,
	}
}

func printKey(env *Env, output *cli.JSONOutput, view keyView) error {
	if done, err := output.EmitJSON(env.Stdout, view); done {
		return err
	}
	fmt.Fprintf(env.Stdout, "key id      %s\n", view.KeyID)
	fmt.Fprintf(env.Stdout, "public key  %s\n", view.PublicKey)
	if view.Path != "" {
		state := "plain"
		if view.Sealed {
			state = "sealed"
		}
		fmt.Fprintf(env.Stdout, "file        %s (%s)\n", view.Path, state)
	}
	return nil
}

func keysCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:    "keys",
		Summary: "Generate and inspect signing keys",
		Description: `Manage the Ed25519 keys that sign blocks, tree heads, and submitted
records. A key file holds the 32-byte seed as hex, sealed with age
under a passphrase, or as an OpenSSH private key.

The public key printed here is what goes under trusted_keys in a
verifier's configuration.`,
		Subcommands: []*cli.Command{
			keysGenerateCommand(env),
			keysShowCommand(env),
			keysSealCommand(env),
		},
	}
}

type keysGenerateParams struct {
	cli.JSONOutput
	Out           string `json:"-" flag:"out,o" desc:"write the key to this file (must not exist)"`
	Seal          bool   `json:"-" flag:"seal" desc:"seal the key file with a passphrase"`
	PassphraseEnv string `json:"-" flag:"passphrase-env" desc:"environment variable holding the sealing passphrase"`
}

func keysGenerateCommand(env *Env) *cli.Command {
	var params keysGenerateParams
	return &cli.Command{
		Name:    "generate",
		Summary: "Generate a new signing key",
		Usage:   "vac keys generate [--out path] [--seal] [flags]",
		Examples: []cli.Example{
			{
				Description: "Generate the log's signing key, sealed",
				Command:     "vac keys generate --out ~/.cache/vac/signing.key --seal",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("generate", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if params.Seal && params.Out == "" {
				return fmt.Errorf("--seal requires --out")
			}
			key, err := signing.GenerateKeyPair()
			if err != nil {
				return err
			}
			defer key.Close()

			if params.Out != "" {
				if err := env.writeKey(params.Out, key, params.Seal, params.PassphraseEnv); err != nil {
					return err
				}
				logger.Info("wrote key file", "path", params.Out, "key_id", key.ID(), "sealed", params.Seal)
			}
			return printKey(env, &params.JSONOutput, newKeyView(key, params.Out, params.Seal))
		},
	}
}

func (e *Env) writeKey(path string, key *signing.KeyPair, seal bool, passphraseEnv string) error {
	if !seal {
		return signing.WriteKeyFile(path, key)
	}
	passphrase, err := e.passphraseFrom(passphraseEnv, "New passphrase: ", true)
	if err != nil {
		return err
	}
	defer secret.Zero(passphrase)
	return signing.SealKeyFile(path, key, passphrase, 0)
}

type keysShowParams struct {
	cli.JSONOutput
	PassphraseEnv string `json:"-" flag:"passphrase-env" desc:"environment variable holding the key passphrase"`
}

func keysShowCommand(env *Env) *cli.Command {
	var params keysShowParams
	return &cli.Command{
		Name:    "show",
		Summary: "Print the key ID and public key of a key file",
		Usage:   "vac keys show <key-file> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: vac keys show <key-file>")
			}
			key, sealed, err := env.openKeyFile(args[0], params.PassphraseEnv)
			if err != nil {
				return err
			}
			defer key.Close()
			return printKey(env, &params.JSONOutput, newKeyView(key, args[0], sealed))
		},
	}
}

// openKeyFile loads a key file, taking a passphrase from the named
// environment variable when set and from the terminal otherwise.
func (e *Env) openKeyFile(path, passphraseEnv string) (*signing.KeyPair, bool, error) {
	sealed := needsPassphrase(path)
	var passphrase []byte
	if passphraseEnv != "" && sealed {
		var err error
		passphrase, err = e.passphraseFrom(passphraseEnv, fmt.Sprintf("Passphrase for %s: ", path), false)
		if err != nil {
			return nil, false, err
		}
		defer secret.Zero(passphrase)
	}
	key, err := e.loadKeyFile(path, passphrase)
	if err != nil {
		return nil, false, err
	}
	return key, sealed, nil
}

type keysSealParams struct {
	cli.JSONOutput
	PassphraseEnv    string `json:"-" flag:"passphrase-env" desc:"environment variable holding the passphrase of the input key"`
	NewPassphraseEnv string `json:"-" flag:"new-passphrase-env" desc:"environment variable holding the sealing passphrase"`
}

func keysSealCommand(env *Env) *cli.Command {
	var params keysSealParams
	return &cli.Command{
		Name:    "seal",
		Summary: "Write a sealed copy of a key file",
		Description: `Read a key file in any supported format and write the same key,
sealed with age under a new passphrase, to a new file. The input
file is left in place.`,
		Usage: "vac keys seal <key-file> <sealed-file> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("seal", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: vac keys seal <key-file> <sealed-file>")
			}
			key, _, err := env.openKeyFile(args[0], params.PassphraseEnv)
			if err != nil {
				return err
			}
			defer key.Close()
			if err := env.writeKey(args[1], key, true, params.NewPassphraseEnv); err != nil {
				return err
			}
			logger.Info("sealed key file", "from", args[0], "to", args[1], "key_id", key.ID())
			return printKey(env, &params.JSONOutput, newKeyView(key, args[1], true))
		},
	}
}
