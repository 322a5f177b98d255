// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/GlobalSushrut/connector-oss/lib/canonical"
	"github.com/GlobalSushrut/connector-oss/lib/merkle"
	"github.com/GlobalSushrut/connector-oss/lib/record"
	"github.com/GlobalSushrut/connector-oss/lib/signing"
)

// Mode selects what a block hash commits to.
type Mode uint8

const (
	// ModeMerkle blocks commit to their CIDs and to the Merkle tree
	// size and root after their leaves were appended.
	ModeMerkle Mode = 1

	// ModeList blocks commit to their CID list only.
	ModeList Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeMerkle:
		return "merkle"
	case ModeList:
		return "list"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode parses "merkle" or "list". The empty string is ModeMerkle.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "merkle", "":
		return ModeMerkle, nil
	case "list":
		return ModeList, nil
	default:
		return 0, fmt.Errorf("unknown log mode %q", s)
	}
}

// GenesisHash is the prev_hash of block 0.
var GenesisHash merkle.Hash

const blockDomain = "vac.block.v1"

// Block is a committed block. Blocks returned by a Log are shared and
// must not be modified.
type Block struct {
	Number    uint64
	PrevHash  merkle.Hash
	Timestamp time.Time
	Records   []record.CID
	Hash      merkle.Hash

	// Signature is over Hash. Zero when the log is unsigned.
	Signature signing.Signature

	Mode Mode

	// TreeSize and TreeRoot describe the log's Merkle tree after this
	// block's leaves were appended. Set in ModeMerkle only.
	TreeSize uint64
	TreeRoot merkle.Hash
}

// ComputeHash returns the block hash of b's fields. It ignores b.Hash
// and b.Signature.
func (b *Block) ComputeHash() merkle.Hash {
	timestamp := canonical.Time(b.Timestamp)

	size := len(blockDomain) + 1 + 8 + 32 + 2 + len(timestamp) + 4
	for _, cid := range b.Records {
		size += 2 + len(cid)
	}
	if b.Mode == ModeMerkle {
		size += 8 + 32
	}

	buffer := make([]byte, 0, size)
	buffer = append(buffer, blockDomain...)
	buffer = append(buffer, byte(b.Mode))
	buffer = binary.BigEndian.AppendUint64(buffer, b.Number)
	buffer = append(buffer, b.PrevHash[:]...)
	buffer = binary.BigEndian.AppendUint16(buffer, uint16(len(timestamp)))
	buffer = append(buffer, timestamp...)
	buffer = binary.BigEndian.AppendUint32(buffer, uint32(len(b.Records)))
	for _, cid := range b.Records {
		buffer = binary.BigEndian.AppendUint16(buffer, uint16(len(cid)))
		buffer = append(buffer, cid...)
	}
	if b.Mode == ModeMerkle {
		buffer = binary.BigEndian.AppendUint64(buffer, b.TreeSize)
		buffer = append(buffer, b.TreeRoot[:]...)
	}
	return sha256.Sum256(buffer)
}

// Signed reports whether the block carries a signature.
func (b *Block) Signed() bool { return !b.Signature.IsZero() }

// Entry is a record in the log: its CID, canonical bytes, leaf hash,
// and position.
type Entry struct {
	CID       record.CID
	Record    record.Record
	Canonical []byte
	LeafHash  merkle.Hash
	LeafIndex uint64

	// BlockNo is the committing block. Meaningful only for entries
	// returned by Lookup.
	BlockNo uint64
}
