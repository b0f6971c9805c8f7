// Package store implements the per-tenant JSON state store.
//
// One document per tenant: events_<team_id>.json, or events_database.json
// when no tenant context is bound. A sibling lockfile scopes a full
// load → mutate → save cycle; saves are temp-file + fsync + rename so a
// partial write is never observable. The design is deliberately
// coarse-grained: same-tenant turns serialize on the lock, distinct
// tenants run in parallel.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"

	"venuehq.io/banquet/internal/domain"
	apperrors "venuehq.io/banquet/internal/pkg/errors"
	"venuehq.io/banquet/internal/pkg/logger"
)

// DefaultFile is the state file used when no tenant context is bound.
const DefaultFile = "events_database.json"

// teamIDPattern guards against path traversal through the tenant header.
var teamIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Options configure the store.
type Options struct {
	Dir               string
	LockTimeout       time.Duration
	LockRetryInterval time.Duration
	StaleLockAge      time.Duration
}

// Store routes tenants to state files and owns the locking protocol.
type Store struct {
	opts Options
}

// New creates a store rooted at opts.Dir. Zero durations get safe defaults.
func New(opts Options) *Store {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}
	if opts.LockRetryInterval <= 0 {
		opts.LockRetryInterval = 50 * time.Millisecond
	}
	if opts.StaleLockAge <= 0 {
		opts.StaleLockAge = 30 * time.Second
	}
	return &Store{opts: opts}
}

// FileFor returns the state file path for a tenant. An empty or invalid
// team ID falls back to the default file.
func (s *Store) FileFor(teamID string) string {
	name := DefaultFile
	if teamID != "" && teamIDPattern.MatchString(teamID) {
		name = fmt.Sprintf("events_%s.json", teamID)
	}
	return filepath.Join(s.opts.Dir, name)
}

// Load reads and backfills the tenant document without taking the lock.
// Use only for read-only peeks (pending task listings, event snapshots);
// every mutation goes through WithLock.
func (s *Store) Load(teamID string) (*domain.Database, error) {
	return s.loadFile(s.FileFor(teamID))
}

func (s *Store) loadFile(path string) (*domain.Database, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return domain.NewDatabase(), nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStateLoad, "read state file", 500)
	}
	db := domain.NewDatabase()
	if err := json.Unmarshal(raw, db); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStateLoad, "parse state file", 500)
	}
	domain.Backfill(db)
	return db, nil
}

// WithLock runs fn under the tenant lock. The document passed to fn is
// freshly loaded and backfilled; fn returns persist=true to save it
// atomically before the lock is released. This is the only mutation path.
func (s *Store) WithLock(ctx context.Context, teamID string, fn func(db *domain.Database) (persist bool, err error)) error {
	path := s.FileFor(teamID)

	release, err := s.acquireLock(ctx, path, teamID)
	if err != nil {
		return err
	}
	defer release()

	db, err := s.loadFile(path)
	if err != nil {
		return err
	}

	persist, fnErr := fn(db)
	if persist {
		if saveErr := s.save(path, db); saveErr != nil {
			if fnErr != nil {
				logger.Error("save after turn error", zap.Error(saveErr), zap.NamedError("turn_err", fnErr))
				return fnErr
			}
			return saveErr
		}
	}
	return fnErr
}

// save writes the document to a temp file in the same directory, fsyncs
// and renames over the target. POSIX rename makes the replace atomic.
func (s *Store) save(path string, db *domain.Database) error {
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStateSave, "marshal state", 500)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStateSave, "create state dir", 500)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStateSave, "create temp file", 500)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.Wrap(err, apperrors.CodeStateSave, "write temp file", 500)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.Wrap(err, apperrors.CodeStateSave, "fsync temp file", 500)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStateSave, "close temp file", 500)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStateSave, "rename temp file", 500)
	}
	return nil
}
