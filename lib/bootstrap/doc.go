// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap brings a monitoring node from "installed" to
// "ready to talk to a master".
//
// [Run] performs the start-up sequence in a fixed order:
//
//  1. resolve and load the configuration document
//  2. load the node's private key, generating it on first start
//  3. allocate the application ID if the document has none, and save
//     the document immediately when it changed
//  4. stamp the running software version (in memory only)
//  5. measure the local clock against the time authority
//  6. prepare a signed calling card for the master
//
// Steps 1 to 3 are fatal on failure. A failed time measurement is
// logged and the node continues with the last known offset.
//
// [Diagnose] runs the self-checks behind the --test flag without
// touching the node's key or configuration file. [Explain] turns a
// bootstrap error into operator guidance.
package bootstrap
