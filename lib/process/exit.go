// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// ExitCoder is implemented by errors that carry their own exit code.
// Their command has already reported the outcome, so no message is
// printed for them.
type ExitCoder interface {
	ExitCode() int
}

// Exit terminates the process with the status for err: 0 for nil, the
// carried code for an [ExitCoder], and 1 after printing "error: err"
// to stderr otherwise.
func Exit(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes the message for err to w and returns the exit status
// Exit would use.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if coder, ok := err.(ExitCoder); ok {
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
