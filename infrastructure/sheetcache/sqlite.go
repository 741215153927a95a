// Package sheetcache persists transcription results between runs in a local
// SQLite database, so re-running a batch does not re-pay the transcription
// service for sheets it has already read.
package sheetcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"peermark/internal/domain"
	"peermark/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcriptions (
    sheet_digest TEXT    NOT NULL,
    model        TEXT    NOT NULL,
    masked       INTEGER NOT NULL,
    payload      BLOB    NOT NULL,
    created_at   TEXT    NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (sheet_digest, model, masked)
);`

// Store implements ports.TranscriptionCache over a SQLite file. A file lock
// next to the database guards against two concurrent runs sharing one
// cache directory.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// Open creates or opens the cache database at path, taking an exclusive
// advisory lock. It fails immediately if another run holds the lock.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking cache: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("cache %s is locked by another run", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &Store{db: db, lock: lock}, nil
}

// Get returns the cached transcription for the key, if any.
func (s *Store) Get(ctx context.Context, key ports.CacheKey) (domain.Transcription, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM transcriptions WHERE sheet_digest = ? AND model = ? AND masked = ?`,
		key.SheetDigest, key.Model, boolToInt(key.Masked),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.Transcription{}, false, nil
	}
	if err != nil {
		return domain.Transcription{}, false, fmt.Errorf("reading cache: %w", err)
	}

	var tr domain.Transcription
	if err := json.Unmarshal(payload, &tr); err != nil {
		return domain.Transcription{}, false, fmt.Errorf("decoding cached transcription: %w", err)
	}
	return tr, true, nil
}

// Put stores a transcription, replacing any existing entry for the key.
func (s *Store) Put(ctx context.Context, key ports.CacheKey, tr domain.Transcription) error {
	payload, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("encoding transcription: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcriptions (sheet_digest, model, masked, payload) VALUES (?, ?, ?, ?)`,
		key.SheetDigest, key.Model, boolToInt(key.Masked), payload,
	)
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// Close closes the database and releases the lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

// Digest returns the cache digest for a rendered page: the hex SHA-256 of
// its PNG bytes. Keying on rendered pixels rather than the PDF file means
// DPI or layout changes invalidate entries too.
func Digest(imagePNG []byte) string {
	sum := sha256.Sum256(imagePNG)
	return hex.EncodeToString(sum[:])
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.TranscriptionCache = (*Store)(nil)
