// Package storage persists games, moves, analyses, analytics, and practice
// state in an embedded BadgerDB, following the key/value + JSON-value
// pattern used for application storage elsewhere in this codebase's
// ancestry. Rows are modeled as prefixed keys so a whole game's moves, or
// a whole practice session's due items, can be recovered by prefix scan
// rather than a relational join.
package storage

import (
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

// Store wraps a BadgerDB handle with the repository methods the rest of
// this service uses. It deliberately exposes no raw transaction type to
// callers outside this package; multi-row writes that must be atomic are
// each their own exported method.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) the BadgerDB database rooted at dir.
// If legacyDir is non-empty, exists, and dir does not exist yet, the
// legacy directory is moved into place first so databases created before
// the data/db reorganisation keep working.
func Open(dir, legacyDir string) (*Store, error) {
	if err := migrateLegacyDir(dir, legacyDir); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateLegacyDir(dir, legacyDir string) error {
	if legacyDir == "" || legacyDir == dir {
		return nil
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		return nil
	}
	if _, err := os.Stat(legacyDir); err != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return err
	}
	return os.Rename(legacyDir, dir)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RunValueLogGC triggers Badger's value-log garbage collection. Intended to
// be called periodically from a background ticker, not from request paths.
func (s *Store) RunValueLogGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}
