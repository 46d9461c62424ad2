package server

import (
	"errors"
	"os"
	"syscall"
)

// ErrLocked means another node is using the data directory.
var ErrLocked = errors.New("another attest node is already running")

func lock(lockPath string) (*os.File, error) {
	lockFile, err := os.Create(lockPath)
	if err != nil {
		return nil, err
	}

	err = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = lockFile.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, ErrLocked
		}
		return nil, err
	}
	// closing lockFile will release the lock
	return lockFile, nil
}
