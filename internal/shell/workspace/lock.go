package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryInterval is the interval between consecutive attempts to acquire
// the workspace lock. 50ms balances responsiveness (low wait after the
// holder releases) against CPU overhead from busy-polling.
const lockRetryInterval = 50 * time.Millisecond

// Lock acquires an exclusive advisory lock over the workspace. Two create
// workflows running concurrently would otherwise race between the sibling
// port scan and writing the new compose file, and walk away with the same
// port. The lock is held from the scan until the stack file is persisted.
//
// It respects context cancellation and retries at lockRetryInterval until
// acquired or the context is done.
func (w *Workspace) Lock(ctx context.Context) (*flock.Flock, error) {
	fl := flock.New(w.lockPath())

	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquiring workspace lock %s: %w", w.lockPath(), err)
	}

	if !locked {
		// TryLockContext should return an error when it fails, but handle
		// the case where it returns (false, nil) unexpectedly.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquiring workspace lock %s: %w", w.lockPath(), ctx.Err())
		}
		return nil, fmt.Errorf("acquiring workspace lock %s: lock not acquired", w.lockPath())
	}

	return fl, nil
}

// Unlock releases the workspace lock and closes its file descriptor. The
// lock file is intentionally left on disk to avoid a race where removing it
// could invalidate a lock concurrently acquired by another process. This is
// best-effort cleanup so errors are logged, not returned.
func (w *Workspace) Unlock(fl *flock.Flock) {
	if fl != nil {
		if err := fl.Close(); err != nil {
			w.logger.Debug("failed to release workspace lock", "path", fl.Path(), "err", err)
		}
	}
}
