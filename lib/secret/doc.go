// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds private key material outside the Go heap.
//
// [Buffer] is backed by mmap(MAP_ANONYMOUS), locked with mlock and
// marked MADV_DONTDUMP. Close zeros and releases it. The key vault
// reads the PEM key file through [ReadFile] so the encoded key never
// lingers in garbage-collected memory after parsing.
//
// Depends on golang.org/x/sys/unix.
package secret
