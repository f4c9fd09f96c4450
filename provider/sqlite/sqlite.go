// Package sqlite implements a coldcache Slot backed by a SQLite database.
// One row per namespace; the snapshot blob is replaced transactionally on
// every Save, so a crash mid-write leaves the previous snapshot intact.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	pr "github.com/unkn0wn-root/coldcache/provider"
)

type Slot struct {
	db      *sql.DB
	ns      string
	closeDB bool
}

var _ pr.Slot = (*Slot)(nil)

type Config struct {
	// Path to the database file. Empty or ":memory:" uses an in-memory DB,
	// which defeats the purpose outside of tests.
	Path string
	// Namespace isolates multiple slots sharing one database file.
	Namespace string
	// DB lets the application share an existing handle; when set, Path is
	// ignored and Close does not close the handle.
	DB *sql.DB
}

func New(cfg Config) (*Slot, error) {
	if cfg.Namespace == "" {
		return nil, errors.New("sqlite slot: namespace is required")
	}

	db := cfg.DB
	closeDB := false
	if db == nil {
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		var err error
		db, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, err
		}
		closeDB = true
		// WAL keeps the frequent snapshot rewrites cheap.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, err
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS coldcache_snapshots (
		ns TEXT PRIMARY KEY,
		snapshot BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		if closeDB {
			db.Close()
		}
		return nil, err
	}

	return &Slot{db: db, ns: cfg.Namespace, closeDB: closeDB}, nil
}

func (s *Slot) Load(ctx context.Context) ([]byte, bool, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM coldcache_snapshots WHERE ns = ?`, s.ns,
	).Scan(&b)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Slot) Save(ctx context.Context, snapshot []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO coldcache_snapshots (ns, snapshot, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(ns) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		s.ns, snapshot, time.Now().UnixNano())
	return err
}

func (s *Slot) Wipe(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM coldcache_snapshots WHERE ns = ?`, s.ns)
	return err
}

func (s *Slot) Close(_ context.Context) error {
	if s.closeDB {
		return s.db.Close()
	}
	return nil
}
