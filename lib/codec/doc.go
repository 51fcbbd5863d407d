// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the node's CBOR encoding configuration.
//
// Everything the node signs is encoded here first, so the encoder uses
// Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// smallest integer encoding, no indefinite-length items. The same
// logical value always produces the same bytes, and therefore the same
// signature input. Times are encoded as RFC 3339 text with nanoseconds.
//
// Two decoders are provided. [Unmarshal] is lenient and ignores unknown
// fields. [UnmarshalStrict] is for bytes that were signed: it rejects
// duplicate map keys, unknown fields and indefinite-length items, so a
// verified payload has exactly one reading.
//
// Types serialized here carry `cbor` struct tags.
package codec
