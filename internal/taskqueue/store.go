package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout is returned when another invocation holds the queue lock for
// longer than the store's lock timeout.
var ErrLockTimeout = errors.New("timed out waiting for task queue lock")

const lockRetryDelay = 50 * time.Millisecond

// Store reads and rewrites the queue document on disk.
//
// Every invocation is a fresh process, so the file is the only source of
// truth: Load always reads it again, and Complete re-reads it under an
// exclusive file lock before mutating.
type Store struct {
	path        string
	lockPath    string
	lockTimeout time.Duration
}

// NewStore creates a store for the document at path guarded by lockPath.
func NewStore(path, lockPath string, lockTimeout time.Duration) *Store {
	return &Store{path: path, lockPath: lockPath, lockTimeout: lockTimeout}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the document is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and parses the document.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task queue: %w", err)
	}
	return Parse(data)
}

// Complete marks task id done as one unit: lock, reload, apply, atomically
// replace the file. The reload means a concurrent invocation that already
// completed the task makes this call fail with ErrTaskNotCurrent instead of
// double counting.
func (s *Store) Complete(ctx context.Context, id string, at time.Time) (*Document, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := doc.MarkDone(id, at); err != nil {
		return nil, err
	}
	data, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return nil, fmt.Errorf("failed to write task queue: %w", err)
	}
	return doc, nil
}

func (s *Store) lock(ctx context.Context) (func(), error) {
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	// The lock file is left in place after unlock. Removing it would let a
	// waiter that already opened the old inode lock alongside a newcomer.
	fl := flock.New(s.lockPath)
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("failed to lock task queue: %w", err)
	}
	if !ok {
		return nil, ErrLockTimeout
	}
	return func() { _ = fl.Unlock() }, nil
}

// writeFileAtomic replaces path via temp file, fsync and rename so readers
// never observe a half-written document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
