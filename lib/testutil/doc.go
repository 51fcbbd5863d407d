// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] wraps the select-with-timeout pattern so tests that
// wait on a goroutine do not hang forever when it never answers. It is
// the only place in the test suite that waits on the real clock.
//
// [SkipIfRoot] skips tests that rely on file permission checks, which
// root bypasses.
//
// All helpers call t.Fatalf or t.Skip rather than returning errors,
// since test setup failures are not recoverable.
package testutil
