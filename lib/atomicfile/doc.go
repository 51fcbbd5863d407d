// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile writes the node's persistent files (configuration
// document, private key) so that a crash mid-write never leaves a
// truncated or partially written file at the target path.
//
// [WriteFile] writes to a temporary file in the target's directory,
// fsyncs it, applies the requested permission bits, renames it into
// place and fsyncs the directory. The temporary file is created with
// mode 0600 and removed on any failure, so partially written key
// material is never readable by other users.
//
// [Acquire] takes an advisory flock(2) on the target's directory, so
// locking leaves no extra file behind. The node holds it around key generation and configuration saves so two
// processes racing through first boot cannot both generate a key.
package atomicfile
