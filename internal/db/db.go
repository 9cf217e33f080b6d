package db

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/hpungsan/brushport/internal/errors"
)

// Magic is the header string every SQLite 3 database file starts with.
var Magic = []byte("SQLite format 3")

// Locate returns the offset of the first embedded SQLite header in raw.
// The container is unusable if the header never occurs.
func Locate(raw []byte) (int, error) {
	off := bytes.Index(raw, Magic)
	if off < 0 {
		return 0, errors.NewSignatureNotFound(len(raw))
	}
	return off, nil
}

// Store is an embedded SQLite database carved out of a container file.
// It owns a temporary copy of the database on disk; Close releases both
// the connection and the file.
type Store struct {
	DB     *sql.DB
	Offset int
	Size   int

	path      string
	closeOnce sync.Once
	closeErr  error
}

// OpenEmbedded locates the embedded store in raw, writes raw[offset:] to a
// temporary file under tmpDir (os.TempDir() when empty) and opens it read-only.
// Only the header match is validated; malformed pages surface on first query.
func OpenEmbedded(ctx context.Context, raw []byte, tmpDir string) (*Store, error) {
	off, err := Locate(raw)
	if err != nil {
		return nil, err
	}

	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	path, err := writeTemp(tmpDir, raw[off:])
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to stage embedded store: %w", err))
	}

	s := &Store{Offset: off, Size: len(raw) - off, path: path}

	dsn := "file:" + path + "?mode=ro"
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		s.Close()
		return nil, errors.NewInternal(fmt.Errorf("failed to open embedded store: %w", err))
	}
	s.DB = database

	if err := database.PingContext(ctx); err != nil {
		s.Close()
		return nil, errors.NewInternal(fmt.Errorf("failed to open embedded store: %w", err))
	}

	return s, nil
}

// Path returns the location of the staged database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the connection and removes the staged file. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.DB != nil {
			s.closeErr = s.DB.Close()
		}
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// writeTemp writes data to a new, uniquely named file in dir.
func writeTemp(dir string, data []byte) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "brushport-"+id.String()+".sqlite")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
