// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Lock is an exclusive advisory lock on the directory holding a file.
type Lock struct {
	directory *os.File
}

// Acquire blocks until it holds an exclusive flock on the directory
// containing path. Nothing is created on disk. The lock is advisory and
// per directory: it excludes every other Acquire for a path in the same
// directory, including from this process, so callers must not nest it.
func Acquire(path string) (*Lock, error) {
	directoryPath := filepath.Dir(path)
	directory, err := os.Open(directoryPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s for locking: %w", directoryPath, err)
	}
	for {
		err = unix.Flock(int(directory.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		directory.Close()
		return nil, fmt.Errorf("locking %s: %w", directoryPath, err)
	}
	return &Lock{directory: directory}, nil
}

// Release drops the lock. Idempotent.
func (l *Lock) Release() error {
	if l == nil || l.directory == nil {
		return nil
	}
	unix.Flock(int(l.directory.Fd()), unix.LOCK_UN)
	err := l.directory.Close()
	l.directory = nil
	return err
}
