// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads, edits and saves the node's YAML configuration
// file without disturbing the parts of it the node does not touch.
//
// The file is held as a [Document]: a gopkg.in/yaml.v3 node tree rather
// than a decoded map, so key order and human-written comments survive a
// load, [Document.Set], [Save] cycle. Values are addressed by dotted key
// paths ("client.appid", "misc.ntpserver"). The typed getters return a
// caller-supplied default whenever any path segment is missing.
//
// [Save] writes through lib/atomicfile (temp file, fsync, rename) under
// an advisory lock, so a crash mid-save never leaves a truncated file.
//
// Path resolution ([ResolvePath]) prefers an explicit --config path,
// then the WARBLE_NODE_CONFIG environment variable, then conf/node.yaml
// next to the executable. An explicitly named file that does not exist
// is an error; there is no silent fallback from an explicit choice.
//
// Errors are classified with sentinels testable via errors.Is:
// [ErrConfigNotFound], [ErrConfigRead], [ErrConfigParse],
// [ErrConfigWrite].
//
// Depends on lib/atomicfile.
package config
