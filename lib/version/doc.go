// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the Warble
// node.
//
// Three package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//
// [Version] is the release version and is edited by hand.
//
// [Short] is printed by "warble-node --version" and stamped into the
// configuration document at startup. [Info] and [Full] add build
// metadata for logs and diagnostics.
package version
