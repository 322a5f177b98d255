// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GlobalSushrut/connector-oss/lib/chain"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
)

var committedAt = time.Date(2026, 2, 10, 15, 30, 0, 0, time.UTC)

type fakeLog struct {
	id     string
	blocks []*chain.Block
}

func (f *fakeLog) ID() string { return f.id }

func (f *fakeLog) Block(number uint64) (*chain.Block, bool) {
	if number >= uint64(len(f.blocks)) {
		return nil, false
	}
	return f.blocks[number], true
}

func testBlock(number uint64, content string) *chain.Block {
	return &chain.Block{
		Number:    number,
		Hash:      merkle.HashLeaf([]byte(content)),
		Timestamp: committedAt.Add(time.Duration(number) * time.Minute),
		Mode:      chain.ModeMerkle,
		TreeSize:  number + 1,
		TreeRoot:  merkle.HashLeaf([]byte("root " + content)),
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "head.json")
	state := FromBlock("clinic", testBlock(4, "four"))

	if err := Write(path, state); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.LogID != "clinic" || got.BlockNo != 4 || got.BlockHash != state.BlockHash {
		t.Errorf("Read = %+v, want %+v", got, state)
	}
	if got.TreeSize != 5 || got.TreeRoot != state.TreeRoot {
		t.Errorf("tree = %d %s, want 5 %s", got.TreeSize, got.TreeRoot, state.TreeRoot)
	}
	if !got.Timestamp.Equal(state.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, state.Timestamp)
	}
}

func TestFromBlockListMode(t *testing.T) {
	block := testBlock(0, "zero")
	block.Mode = chain.ModeList
	if state := FromBlock("clinic", block); state.TreeSize != 0 || state.TreeRoot != "" {
		t.Errorf("list-mode state carries a tree: %+v", state)
	}
}

func TestWriteOverwritesAndLeavesNoTemporary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "head.json")
	if err := Write(path, FromBlock("clinic", testBlock(0, "zero"))); err != nil {
		t.Fatal(err)
	}
	if err := Write(path, FromBlock("clinic", testBlock(1, "one"))); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.BlockNo != 1 {
		t.Errorf("BlockNo = %d, want 1 (second write should replace)", got.BlockNo)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only head.json", len(entries))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("permissions = %04o, want 0600", info.Mode().Perm())
	}
}

func TestReadErrors(t *testing.T) {
	directory := t.TempDir()
	if _, err := Read(filepath.Join(directory, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v, want os.ErrNotExist", err)
	}
	corrupt := filepath.Join(directory, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(corrupt); err == nil {
		t.Error("corrupt file parsed")
	}
}

func TestCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "head.json")

	if _, fresh, err := Check(path, time.Minute, committedAt); err != nil || fresh {
		t.Fatalf("missing file: fresh %t, err %v", fresh, err)
	}

	if err := Write(path, FromBlock("clinic", testBlock(0, "zero"))); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name  string
		now   time.Time
		fresh bool
	}{
		{"just committed", committedAt, true},
		{"within interval", committedAt.Add(30 * time.Second), true},
		{"at the limit", committedAt.Add(time.Minute), true},
		{"stale", committedAt.Add(time.Minute + time.Second), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			state, fresh, err := Check(path, time.Minute, test.now)
			if err != nil {
				t.Fatal(err)
			}
			if fresh != test.fresh {
				t.Errorf("fresh = %t, want %t", fresh, test.fresh)
			}
			if state.BlockNo != 0 {
				t.Errorf("BlockNo = %d, want 0", state.BlockNo)
			}
		})
	}
}

func TestCheckLog(t *testing.T) {
	log := &fakeLog{id: "clinic", blocks: []*chain.Block{testBlock(0, "zero"), testBlock(1, "one"), testBlock(2, "two")}}

	if err := FromBlock("clinic", log.blocks[1]).CheckLog(log); err != nil {
		t.Errorf("log extending the head: %v", err)
	}
	if err := FromBlock("clinic", log.blocks[2]).CheckLog(log); err != nil {
		t.Errorf("log at the head: %v", err)
	}

	ahead := FromBlock("clinic", testBlock(3, "three"))
	if err := ahead.CheckLog(log); !errors.Is(err, ErrRollback) {
		t.Errorf("truncated log: err = %v, want ErrRollback", err)
	}

	rewritten := FromBlock("clinic", testBlock(2, "other"))
	if err := rewritten.CheckLog(log); !errors.Is(err, ErrForked) {
		t.Errorf("rewritten log: err = %v, want ErrForked", err)
	}

	if err := FromBlock("billing", log.blocks[0]).CheckLog(log); err == nil {
		t.Error("state for another log accepted")
	}
}
