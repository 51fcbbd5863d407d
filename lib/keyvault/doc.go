// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyvault owns the node's long-term RSA private key.
//
// The key lives in a single PEM file readable only by its owner. A vault
// path is in one of two states: [Unkeyed] (no file) or [Keyed] (a file
// exists). [LoadOrCreate] moves an Unkeyed path to Keyed exactly once by
// generating a key under an exclusive lock, and loads a Keyed path
// without ever replacing it. A key file that exists but cannot be parsed
// is reported as [ErrKeyCorrupt] and left untouched: regenerating it
// would silently change the node's identity.
//
// Key material read from disk passes through a [secret.Buffer] so the
// PEM text does not linger on the Go heap.
package keyvault
