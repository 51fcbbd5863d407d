// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvironmentVariable names an alternate configuration file when no
// --config flag is given.
const EnvironmentVariable = "WARBLE_NODE_CONFIG"

// DefaultPath returns conf/node.yaml in the directory holding the
// running executable (symlinks resolved).
func DefaultPath() (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}
	return filepath.Join(filepath.Dir(executable), "conf", "node.yaml"), nil
}

// ResolvePath picks the configuration file to load. An explicit
// override wins and must exist; otherwise WARBLE_NODE_CONFIG is used
// under the same rule; otherwise [DefaultPath]. The default path is not
// checked here: Load reports it missing.
func ResolvePath(override string) (string, error) {
	if override != "" {
		return requireExisting(override, "--config")
	}
	if fromEnvironment := os.Getenv(EnvironmentVariable); fromEnvironment != "" {
		return requireExisting(fromEnvironment, EnvironmentVariable)
	}
	return DefaultPath()
}

func requireExisting(path, source string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s names %s, which does not exist", ErrConfigNotFound, source, path)
		}
		return "", fmt.Errorf("%w: %w", ErrConfigRead, err)
	}
	return path, nil
}

// ResolveRelative resolves path against the directory containing
// configPath. Absolute paths are returned unchanged.
func ResolveRelative(configPath, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(configPath), path)
}
