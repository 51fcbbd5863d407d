// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"os"
)

// ErrEmpty is returned by ReadFile when the file has no content.
var ErrEmpty = errors.New("secret: file is empty")

// ReadFile reads the file at path into a protected buffer and zeros the
// intermediate heap copy. Errors from the filesystem are returned
// unwrapped so callers can test them with errors.Is against
// fs.ErrNotExist and fs.ErrPermission.
func ReadFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return NewFromBytes(data)
}
