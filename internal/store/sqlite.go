package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"dewey/internal/catalog"
	"dewey/internal/errkind"
)

const rootKey = "catalog"

// sqliteDB is the file:// single-process storage backend. Presence of
// "<path>.lock" signals another process already has the database open;
// OpenSQLite claims that lock file for the lifetime of the Database and
// removes it on Close.
type sqliteDB struct {
	db       *sql.DB
	lockPath string
	lockFile *os.File
}

// OpenSQLite opens (creating if necessary) a SQLite-backed store at path.
func OpenSQLite(path string) (Database, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	lockPath := path + ".lock"
	var lockFile *os.File
	if path != ":memory:" {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", errkind.ErrLocked, lockPath)
		}
		if err != nil {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}
		fmt.Fprintf(f, "%d\n", os.Getpid())
		lockFile = f
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		if lockFile != nil {
			lockFile.Close()
			os.Remove(lockPath)
		}
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		if lockFile != nil {
			lockFile.Close()
			os.Remove(lockPath)
		}
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS root_mapping (key TEXT PRIMARY KEY, value BLOB NOT NULL)`); err != nil {
		db.Close()
		if lockFile != nil {
			lockFile.Close()
			os.Remove(lockPath)
		}
		return nil, fmt.Errorf("creating root_mapping table: %w", err)
	}

	return &sqliteDB{db: db, lockPath: lockPath, lockFile: lockFile}, nil
}

func (s *sqliteDB) Open(ctx context.Context) (Connection, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &sqliteConn{db: s.db, tx: tx}, nil
}

func (s *sqliteDB) Close() error {
	err := s.db.Close()
	if s.lockFile != nil {
		s.lockFile.Close()
		os.Remove(s.lockPath)
	}
	return err
}

// sqliteConn is a Connection onto a sqliteDB: one live *sql.Tx at a time,
// replaced on every Commit/Abort so the connection stays usable across a
// crawler's many per-checkpoint transactions.
type sqliteConn struct {
	db *sql.DB
	tx *sql.Tx
}

func (c *sqliteConn) Load(ctx context.Context) (catalog.Snapshot, bool, error) {
	var blob []byte
	err := c.tx.QueryRowContext(ctx, `SELECT value FROM root_mapping WHERE key = ?`, rootKey).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Snapshot{}, false, nil
	}
	if err != nil {
		return catalog.Snapshot{}, false, fmt.Errorf("loading catalog snapshot: %w", err)
	}
	snap, err := decodeSnapshot(blob)
	if err != nil {
		return catalog.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (c *sqliteConn) Store(ctx context.Context, snap catalog.Snapshot) error {
	blob, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = c.tx.ExecContext(ctx, `
		INSERT INTO root_mapping (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, rootKey, blob)
	if err != nil {
		return fmt.Errorf("storing catalog snapshot: %w", err)
	}
	return nil
}

func (c *sqliteConn) Commit() error {
	if err := c.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning next transaction: %w", err)
	}
	c.tx = tx
	return nil
}

func (c *sqliteConn) Abort() error {
	if err := c.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning next transaction: %w", err)
	}
	c.tx = tx
	return nil
}

func (c *sqliteConn) Close() error {
	return c.tx.Rollback()
}

func encodeSnapshot(snap catalog.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("encoding catalog snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(blob []byte) (catalog.Snapshot, error) {
	var snap catalog.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&snap); err != nil {
		return catalog.Snapshot{}, fmt.Errorf("decoding catalog snapshot: %w", err)
	}
	return snap, nil
}
