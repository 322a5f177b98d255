// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package blockstore

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression tags a stored record body. The numeric values are written
// to the records table and must not change.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

var compressionNames = map[Compression]string{
	CompressionNone: "none",
	CompressionLZ4:  "lz4",
	CompressionZstd: "zstd",
}

func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression maps a config value to its tag. Empty means none.
func ParseCompression(name string) (Compression, error) {
	if name == "" {
		return CompressionNone, nil
	}
	for tag, known := range compressionNames {
		if known == name {
			return tag, nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q", name)
}

// bodyCodec packs and unpacks one compression format. pack returns nil
// when the output would not be smaller than the input.
type bodyCodec struct {
	pack   func(data []byte) ([]byte, error)
	unpack func(stored []byte, size int) ([]byte, error)
}

var codecs = map[Compression]bodyCodec{
	CompressionLZ4:  {pack: packLZ4, unpack: unpackLZ4},
	CompressionZstd: {pack: packZstd, unpack: unpackZstd},
}

// compress packs data with preferred. A body that does not shrink is
// stored as is and tagged CompressionNone.
func compress(data []byte, preferred Compression) ([]byte, Compression, error) {
	if preferred == CompressionNone {
		return data, CompressionNone, nil
	}
	codec, ok := codecs[preferred]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported compression %s", preferred)
	}
	packed, err := codec.pack(data)
	switch {
	case err != nil:
		return nil, 0, fmt.Errorf("%s compress: %w", preferred, err)
	case packed == nil:
		return data, CompressionNone, nil
	}
	return packed, preferred, nil
}

// decompress reverses compress. The result must be exactly size bytes.
func decompress(stored []byte, tag Compression, size int) ([]byte, error) {
	body := stored
	if tag != CompressionNone {
		codec, ok := codecs[tag]
		if !ok {
			return nil, fmt.Errorf("unsupported compression %s", tag)
		}
		var err error
		if body, err = codec.unpack(stored, size); err != nil {
			return nil, fmt.Errorf("%s decompress: %w", tag, err)
		}
	}
	if len(body) != size {
		return nil, fmt.Errorf("%s body is %d bytes, want %d", tag, len(body), size)
	}
	return body, nil
}

func packLZ4(data []byte) ([]byte, error) {
	out := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, out, nil)
	if err != nil || n == 0 || n >= len(data) {
		return nil, err
	}
	return out[:n], nil
}

func unpackLZ4(stored []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(stored, out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// The zstd coders are safe for concurrent EncodeAll/DecodeAll calls and
// are built on first use.
var zstdCoders = sync.OnceValues(func() (*zstd.Encoder, *zstd.Decoder) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("blockstore: zstd encoder: " + err.Error())
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		panic("blockstore: zstd decoder: " + err.Error())
	}
	return encoder, decoder
})

func packZstd(data []byte) ([]byte, error) {
	encoder, _ := zstdCoders()
	out := encoder.EncodeAll(data, nil)
	if len(out) >= len(data) {
		return nil, nil
	}
	return out, nil
}

func unpackZstd(stored []byte, size int) ([]byte, error) {
	_, decoder := zstdCoders()
	return decoder.DecodeAll(stored, make([]byte, 0, size))
}
