// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package keyvault

import (
	"errors"
	"fmt"
	"path/filepath"
)

var (
	// ErrKeyCorrupt means the key file exists but does not hold a
	// usable RSA private key.
	ErrKeyCorrupt = errors.New("private key file is corrupt")

	// ErrKeyUnreadable means the key file exists but could not be read,
	// usually because of its ownership or permissions.
	ErrKeyUnreadable = errors.New("private key file is unreadable")

	// ErrKeyMemory means the key was read but could not be held in
	// locked memory, usually because RLIMIT_MEMLOCK is too low.
	ErrKeyMemory = errors.New("cannot lock private key in memory")

	// ErrKeyWriteError means a newly generated key could not be stored.
	ErrKeyWriteError = errors.New("cannot write private key file")
)

// KeyError reports a key file failure. It matches one of the package
// sentinels with errors.Is and carries the underlying cause.
type KeyError struct {
	Path  string
	Kind  error
	Cause error
}

func (e *KeyError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Cause)
}

func (e *KeyError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Remedy describes what an operator should do about the failure.
func (e *KeyError) Remedy() string {
	switch e.Kind {
	case ErrKeyCorrupt:
		return fmt.Sprintf("The key file %s is damaged. Restore it from a backup. "+
			"Deleting it makes the node generate a new key, and the master will "+
			"no longer recognise this node.", e.Path)
	case ErrKeyUnreadable:
		return fmt.Sprintf("Make %s readable by the user running the node "+
			"(owner-only, mode 0600) and check that its directory is accessible.", e.Path)
	case ErrKeyMemory:
		return "Raise the locked-memory limit for the node (ulimit -l, or " +
			"LimitMEMLOCK= in its systemd unit). The key file itself is fine."
	case ErrKeyWriteError:
		return fmt.Sprintf("Make sure %s exists and is writable by the user running the node.",
			filepath.Dir(e.Path))
	}
	return ""
}

func keyError(path string, kind, cause error) *KeyError {
	return &KeyError{Path: path, Kind: kind, Cause: cause}
}
