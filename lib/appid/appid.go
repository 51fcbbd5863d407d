// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package appid allocates the node's application identifier.
//
// The identifier is minted once, on the first start that finds the
// configuration's client.appid missing or set to [Sentinel], and is
// never regenerated afterwards. It is a 40-character lowercase hex
// string: the first 20 bytes of a BLAKE3 keyed hash over fresh random
// bytes and the host's identity material.
package appid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/warble-foundation/warble/lib/config"
)

// Sentinel marks an identifier that has not been allocated yet.
const Sentinel = "UNSET"

// Length is the length of a minted identifier in hex characters.
const Length = 40

// HostEnvironmentVariable overrides the host identity material.
const HostEnvironmentVariable = "WARBLE_HOST_ID"

const (
	randomBytes     = 32
	identifierBytes = Length / 2
)

// domainKey is the BLAKE3 key for app-id derivation: the ASCII domain
// name zero-padded to 32 bytes.
var domainKey = [32]byte{
	'w', 'a', 'r', 'b', 'l', 'e', '.', 'n', 'o', 'd', 'e', '.',
	'a', 'p', 'p', 'i', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// machineIDPath is a variable so tests can point it elsewhere.
var machineIDPath = "/etc/machine-id"

// EnsureAppID returns the identifier stored in document, minting and
// setting a new one when client.appid is absent, null, or exactly
// [Sentinel]. Any other value, including an empty string or one with
// surrounding spaces, is returned as stored. changed reports whether
// the document was modified; the caller persists it.
func EnsureAppID(document *config.Document) (value string, changed bool, err error) {
	if document.Has(config.KeyAppID) {
		stored, _ := document.Get(config.KeyAppID)
		switch stored := stored.(type) {
		case nil:
		case string:
			if stored != Sentinel {
				return stored, false, nil
			}
		case map[string]any, []any:
			return "", false, fmt.Errorf("%s must be a scalar", config.KeyAppID)
		default:
			return document.GetString(config.KeyAppID, ""), false, nil
		}
	}

	minted, err := Mint(HostMaterial())
	if err != nil {
		return "", false, err
	}
	if err := document.Set(config.KeyAppID, minted); err != nil {
		return "", false, fmt.Errorf("storing application id: %w", err)
	}
	return minted, true, nil
}

// Mint returns a new identifier derived from fresh randomness and host.
func Mint(host string) (string, error) {
	var random [randomBytes]byte
	if _, err := rand.Read(random[:]); err != nil {
		return "", fmt.Errorf("reading random bytes for application id: %w", err)
	}

	hasher, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		return "", fmt.Errorf("initialising application id hash: %w", err)
	}
	hasher.Write(random[:])
	hasher.Write([]byte(host))

	digest := hasher.Sum(nil)
	return hex.EncodeToString(digest[:identifierBytes]), nil
}

// Valid reports whether value has the shape of a minted identifier.
// Hand-assigned identifiers of other shapes are still honoured by
// EnsureAppID; Valid is used by diagnostics.
func Valid(value string) bool {
	if len(value) != Length {
		return false
	}
	for _, character := range value {
		if !strings.ContainsRune("0123456789abcdef", character) {
			return false
		}
	}
	return true
}

// HostMaterial returns a string identifying this host, taken from the
// WARBLE_HOST_ID environment variable, then /etc/machine-id, then the
// hostname, and finally "host-unknown".
func HostMaterial() string {
	if hostID := strings.TrimSpace(os.Getenv(HostEnvironmentVariable)); hostID != "" {
		return hostID
	}
	if machineID, err := os.ReadFile(machineIDPath); err == nil {
		if id := strings.TrimSpace(string(machineID)); id != "" {
			return id
		}
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return "host-unknown"
}
