// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package blockstore

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

type domainKey [32]byte

// Row checksum keys: ASCII domain names, zero-padded. Changing them
// invalidates every stored checksum.
var (
	blockDomainKey = domainKey{
		'v', 'a', 'c', '.', 'b', 'l', 'o', 'c', 'k', 's', 't', 'o', 'r', 'e', '.', 'b',
		'l', 'o', 'c', 'k', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	recordDomainKey = domainKey{
		'v', 'a', 'c', '.', 'b', 'l', 'o', 'c', 'k', 's', 't', 'o', 'r', 'e', '.', 'r',
		'e', 'c', 'o', 'r', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// blockChecksum covers the block's CBOR body.
func blockChecksum(body []byte) []byte {
	return keyedHash(blockDomainKey, body)
}

// entryChecksum covers every field of an entry on its uncompressed
// bytes, so a damaged compressed blob, a moved row, or an edited kind
// all fail.
func entryChecksum(entry Entry) []byte {
	var buffer []byte
	buffer = appendString(buffer, entry.CID)
	buffer = appendString(buffer, entry.Kind)
	buffer = binary.BigEndian.AppendUint64(buffer, entry.BlockNo)
	buffer = binary.BigEndian.AppendUint64(buffer, entry.LeafIndex)
	buffer = append(buffer, entry.Canonical...)
	return keyedHash(recordDomainKey, buffer)
}

func appendString(buffer []byte, s string) []byte {
	buffer = binary.BigEndian.AppendUint32(buffer, uint32(len(s)))
	return append(buffer, s...)
}

func keyedHash(key domainKey, data []byte) []byte {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("blockstore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	return hasher.Sum(nil)
}
