//go:build windows

package state

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

const lockFileName = "watch.lock"

// TryLock attempts to acquire an exclusive lock on .mrequires/watch.lock
// Returns the lock file handle if successful, nil and error if already locked
func TryLock(stateDir string) (*os.File, error) {
	lockPath := filepath.Join(stateDir, lockFileName)

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	// LOCKFILE_FAIL_IMMEDIATELY is the LOCK_NB equivalent.
	handle := windows.Handle(f.Fd())
	overlapped := &windows.Overlapped{}
	err = windows.LockFileEx(
		handle,
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		1, // Lock 1 byte
		0,
		overlapped,
	)
	if err != nil {
		f.Close()
		return nil, ErrLocked
	}

	f.Truncate(0)
	f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Sync()

	return f, nil
}

// Unlock releases the lock and closes the file
func Unlock(f *os.File) {
	if f != nil {
		handle := windows.Handle(f.Fd())
		overlapped := &windows.Overlapped{}
		// Closing the file releases the lock as well.
		windows.UnlockFileEx(handle, 0, 1, 0, overlapped)
		f.Close()
	}
}
