package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	apperrors "venuehq.io/banquet/internal/pkg/errors"
	"venuehq.io/banquet/internal/pkg/logger"
)

// lockPath returns the sibling lockfile: .<name>.lock next to the state file.
func lockPath(statePath string) string {
	return filepath.Join(filepath.Dir(statePath), "."+filepath.Base(statePath)+".lock")
}

// acquireLock takes the exclusive-create lockfile for a state file,
// retrying with a bounded backoff until the configured timeout. A lockfile
// older than StaleLockAge is assumed abandoned (crashed holder) and taken
// over.
func (s *Store) acquireLock(ctx context.Context, statePath, teamID string) (release func(), err error) {
	lp := lockPath(statePath)
	deadline := time.Now().Add(s.opts.LockTimeout)

	if err := os.MkdirAll(filepath.Dir(lp), 0o755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStateLoad, "create state dir", 500)
	}

	for {
		f, err := os.OpenFile(lp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "pid=%d ts=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			f.Close()
			return func() {
				if rmErr := os.Remove(lp); rmErr != nil && !os.IsNotExist(rmErr) {
					logger.Warn("failed to remove lockfile", zap.String("lock", lp), zap.Error(rmErr))
				}
			}, nil
		}
		if !os.IsExist(err) {
			return nil, apperrors.Wrap(err, apperrors.CodeStateLoad, "create lockfile", 500)
		}

		// Stale takeover: a holder that crashed leaves the lockfile behind.
		if info, statErr := os.Stat(lp); statErr == nil && time.Since(info.ModTime()) > s.opts.StaleLockAge {
			logger.Warn("taking over stale lockfile",
				zap.String("lock", lp),
				zap.Duration("age", time.Since(info.ModTime())),
			)
			_ = os.Remove(lp)
			continue
		}

		if time.Now().After(deadline) {
			return nil, apperrors.ErrLockTimeoutf(teamID)
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeLockTimeout, "context cancelled waiting for lock", 503)
		case <-time.After(s.opts.LockRetryInterval):
		}
	}
}
