// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	// ErrConfigNotFound means the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrConfigRead means the file exists but could not be read, most
	// often because of permissions. The underlying OS error is wrapped
	// alongside it.
	ErrConfigRead = errors.New("configuration file unreadable")

	// ErrConfigParse means the file content is not a well-formed YAML
	// mapping, or a typed value in it is invalid.
	ErrConfigParse = errors.New("configuration file malformed")

	// ErrConfigWrite means the document could not be persisted.
	ErrConfigWrite = errors.New("configuration file not writable")
)
