// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GlobalSushrut/connector-oss/lib/chain"
)

var (
	// ErrRollback means the log no longer holds the recorded head:
	// blocks were removed from the store.
	ErrRollback = errors.New("watchdog: log rolled back past recorded head")

	// ErrForked means the log holds a block at the recorded height
	// whose hash differs from the recorded one.
	ErrForked = errors.New("watchdog: log forked at recorded head")
)

// State is the head of a log as of its last commit.
type State struct {
	LogID     string    `json:"log_id"`
	BlockNo   uint64    `json:"block_no"`
	BlockHash string    `json:"block_hash"`
	TreeSize  uint64    `json:"tree_size,omitempty"`
	TreeRoot  string    `json:"tree_root,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FromBlock returns the state recording block as the head of logID.
func FromBlock(logID string, block *chain.Block) State {
	state := State{
		LogID:     logID,
		BlockNo:   block.Number,
		BlockHash: block.Hash.String(),
		Timestamp: block.Timestamp,
	}
	if block.Mode == chain.ModeMerkle {
		state.TreeSize = block.TreeSize
		state.TreeRoot = block.TreeRoot.String()
	}
	return state
}

// Blocks is the read side of a log that a state is checked against.
type Blocks interface {
	ID() string
	Block(number uint64) (*chain.Block, bool)
}

// CheckLog reports whether log still extends the recorded head. A
// state for a different log is an error.
func (s State) CheckLog(log Blocks) error {
	if s.LogID != log.ID() {
		return fmt.Errorf("watchdog: state is for log %q, not %q", s.LogID, log.ID())
	}
	block, ok := log.Block(s.BlockNo)
	if !ok {
		return fmt.Errorf("%w: block %d (%s) is missing", ErrRollback, s.BlockNo, s.BlockHash)
	}
	if got := block.Hash.String(); got != s.BlockHash {
		return fmt.Errorf("%w: block %d is %s, recorded %s", ErrForked, s.BlockNo, got, s.BlockHash)
	}
	return nil
}

// Write replaces the head file at path atomically. The file has mode
// 0600; its directory must exist.
func Write(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("watchdog: encoding head: %w", err)
	}
	if err := replaceFile(path, append(data, '\n')); err != nil {
		return fmt.Errorf("watchdog: %w", err)
	}
	return nil
}

// replaceFile swaps data in at path through a synced temporary file in
// the same directory, so a reader sees the old head or the new one.
func replaceFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			temp.Close()
			os.Remove(temp.Name())
		}
	}()
	if err = temp.Chmod(0o600); err != nil {
		return err
	}
	if _, err = temp.Write(data); err != nil {
		return err
	}
	if err = temp.Sync(); err != nil {
		return err
	}
	if err = temp.Close(); err != nil {
		return err
	}
	if err = os.Rename(temp.Name(), path); err != nil {
		return err
	}
	// The rename survives a crash only once the directory is synced.
	if d, openErr := os.Open(dir); openErr == nil {
		d.Sync()
		d.Close()
	}
	return nil
}

// Read decodes the head file at path. A missing file matches
// os.ErrNotExist.
func Read(path string) (State, error) {
	var state State
	data, err := os.ReadFile(path)
	if err == nil {
		err = json.Unmarshal(data, &state)
		if err != nil {
			err = fmt.Errorf("watchdog: decoding %s: %w", path, err)
		}
	}
	return state, err
}

// Check reads the state file at path and reports whether its head was
// committed within maxAge of now. A missing file is (zero, false, nil);
// an unreadable or corrupt one is an error.
func Check(path string, maxAge time.Duration, now time.Time) (State, bool, error) {
	state, err := Read(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return State{}, false, nil
	case err != nil:
		return State{}, false, err
	}
	return state, now.Sub(state.Timestamp) <= maxAge, nil
}
