// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package blockstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/GlobalSushrut/connector-oss/lib/codec"
	"github.com/GlobalSushrut/connector-oss/lib/sqlitepool"
)

var migrations = []string{
	`
	CREATE TABLE blocks (
		block_no INTEGER PRIMARY KEY,
		body     BLOB NOT NULL,
		checksum BLOB NOT NULL
	);
	CREATE TABLE records (
		cid         TEXT PRIMARY KEY,
		block_no    INTEGER NOT NULL REFERENCES blocks(block_no),
		leaf_index  INTEGER NOT NULL UNIQUE,
		kind        TEXT NOT NULL,
		compression INTEGER NOT NULL,
		size        INTEGER NOT NULL,
		body        BLOB NOT NULL,
		checksum    BLOB NOT NULL
	);
	CREATE INDEX records_by_block ON records(block_no);
	`,
}

// SQLiteConfig holds the parameters for OpenSQLite.
type SQLiteConfig struct {
	Path        string
	PoolSize    int
	Compression Compression
	Logger      *slog.Logger
}

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	pool        *sqlitepool.Pool
	compression Compression
	logger      *slog.Logger
}

// OpenSQLite opens or creates the database at cfg.Path.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLite, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:       cfg.Path,
		PoolSize:   cfg.PoolSize,
		Migrations: migrations,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &SQLite{pool: pool, compression: cfg.Compression, logger: logger}, nil
}

func (s *SQLite) Append(ctx context.Context, block Block, entries []Entry) error {
	body, err := codec.Marshal(block)
	if err != nil {
		return fmt.Errorf("blockstore: encoding block %d: %w", block.Number, err)
	}

	type preparedEntry struct {
		entry       Entry
		stored      []byte
		compression Compression
	}
	prepared := make([]preparedEntry, len(entries))
	for i, entry := range entries {
		stored, tag, err := compress(entry.Canonical, s.compression)
		if err != nil {
			return fmt.Errorf("blockstore: compressing %s: %w", entry.CID, err)
		}
		prepared[i] = preparedEntry{entry: entry, stored: stored, compression: tag}
	}

	return s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		var next int64
		err := sqlitex.Execute(conn, "SELECT coalesce(max(block_no) + 1, 0) FROM blocks", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				next = stmt.ColumnInt64(0)
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("blockstore: reading head: %w", err)
		}
		if int64(block.Number) != next {
			return fmt.Errorf("%w: block %d, next is %d", ErrConflict, block.Number, next)
		}

		err = sqlitex.Execute(conn,
			"INSERT INTO blocks (block_no, body, checksum) VALUES (?, ?, ?)",
			&sqlitex.ExecOptions{Args: []any{int64(block.Number), body, blockChecksum(body)}})
		if err != nil {
			return fmt.Errorf("blockstore: inserting block %d: %w", block.Number, err)
		}

		for _, item := range prepared {
			err := sqlitex.Execute(conn,
				`INSERT INTO records (cid, block_no, leaf_index, kind, compression, size, body, checksum)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				&sqlitex.ExecOptions{Args: []any{
					item.entry.CID,
					int64(item.entry.BlockNo),
					int64(item.entry.LeafIndex),
					item.entry.Kind,
					int64(item.compression),
					int64(len(item.entry.Canonical)),
					item.stored,
					entryChecksum(item.entry),
				}})
			if sqlite.ErrCode(err) == sqlite.ResultConstraintPrimaryKey || sqlite.ErrCode(err) == sqlite.ResultConstraintUnique {
				return fmt.Errorf("%w: record %s: %v", ErrConflict, item.entry.CID, err)
			}
			if err != nil {
				return fmt.Errorf("blockstore: inserting record %s: %w", item.entry.CID, err)
			}
		}
		return nil
	})
}

func (s *SQLite) Load(ctx context.Context) ([]Block, []Entry, error) {
	var (
		blocks  []Block
		entries []Entry
	)
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "SELECT block_no, body, checksum FROM blocks ORDER BY block_no", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				number := stmt.ColumnInt64(0)
				key := strconv.FormatInt(number, 10)
				body := columnBytes(stmt, 1)
				if !bytes.Equal(columnBytes(stmt, 2), blockChecksum(body)) {
					return &CorruptionError{Table: "blocks", Key: key, BlockNo: uint64(number), Reason: "checksum mismatch"}
				}
				var block Block
				if err := codec.Unmarshal(body, &block); err != nil {
					return &CorruptionError{Table: "blocks", Key: key, BlockNo: uint64(number), Reason: err.Error()}
				}
				if int64(block.Number) != number {
					return &CorruptionError{Table: "blocks", Key: key, BlockNo: uint64(number), Reason: fmt.Sprintf("body claims block %d", block.Number)}
				}
				blocks = append(blocks, block)
				return nil
			},
		})
		if err != nil {
			return err
		}

		return sqlitex.Execute(conn,
			`SELECT cid, block_no, leaf_index, kind, compression, size, body, checksum
			 FROM records ORDER BY leaf_index`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					entry := Entry{
						CID:       stmt.ColumnText(0),
						BlockNo:   uint64(stmt.ColumnInt64(1)),
						LeafIndex: uint64(stmt.ColumnInt64(2)),
						Kind:      stmt.ColumnText(3),
					}
					tag := Compression(stmt.ColumnInt64(4))
					size := int(stmt.ColumnInt64(5))
					canonical, err := decompress(columnBytes(stmt, 6), tag, size)
					if err != nil {
						return &CorruptionError{Table: "records", Key: entry.CID, BlockNo: entry.BlockNo, Reason: err.Error()}
					}
					entry.Canonical = canonical
					if !bytes.Equal(columnBytes(stmt, 7), entryChecksum(entry)) {
						return &CorruptionError{Table: "records", Key: entry.CID, BlockNo: entry.BlockNo, Reason: "checksum mismatch"}
					}
					entries = append(entries, entry)
					return nil
				},
			})
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("block store loaded", "blocks", len(blocks), "records", len(entries))
	return blocks, entries, nil
}

func (s *SQLite) Close() error {
	return s.pool.Close()
}

func columnBytes(stmt *sqlite.Stmt, column int) []byte {
	data := make([]byte, stmt.ColumnLen(column))
	stmt.ColumnBytes(column, data)
	return data
}
