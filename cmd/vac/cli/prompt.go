// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNoTerminal means a passphrase was needed but stdin is not a
// terminal to prompt on.
var ErrNoTerminal = errors.New("passphrase required and stdin is not a terminal")

// ReadPassphrase prompts on prompter and reads a line from stdin with
// echo disabled. The caller owns the returned bytes and should zero
// them when done.
func ReadPassphrase(stdin io.Reader, prompter io.Writer, prompt string) ([]byte, error) {
	file, ok := stdin.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return nil, ErrNoTerminal
	}
	fmt.Fprint(prompter, prompt)
	passphrase, err := term.ReadPassword(int(file.Fd()))
	fmt.Fprintln(prompter)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return passphrase, nil
}
