package state

import "errors"

// ErrLocked is returned by TryLock when another watcher holds the lock.
var ErrLocked = errors.New("another mrequires watcher is already running on this directory")
