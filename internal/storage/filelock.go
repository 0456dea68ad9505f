package storage

import (
	"context"
	"errors"
	"os"
	"time"
)

// ErrWouldBlock signals that a non-blocking lock attempt failed due to the
// resource being locked by another process.
var ErrWouldBlock = errors.New("file lock would block")

// lockRetryInterval is how long lockFile sleeps between attempts.
var lockRetryInterval = 10 * time.Millisecond

// lockFile acquires an exclusive lock on path, retrying while another
// process holds it, until ctx is done.
func lockFile(ctx context.Context, path string) (*os.File, error) {
	for {
		f, err := acquireFileLock(path)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, ErrWouldBlock) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}
