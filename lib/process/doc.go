// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint error handling: the
// one place that writes to stderr after the structured logger is gone
// and chooses the process exit code.
package process
