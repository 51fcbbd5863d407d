// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"time"
)

// Key paths the node reads and writes.
const (
	KeyAppID      = "client.appid"
	KeyKeyFile    = "client.keyfile"
	KeyKeyBits    = "client.keybits"
	KeyNTPServer  = "misc.ntpserver"
	KeyNTPTimeout = "misc.ntptimeout"
	KeyOffset     = "misc.offset"
	KeyVersion    = "version"
)

// Defaults for optional keys.
const (
	// DefaultKeyFile is resolved against the configuration directory.
	DefaultKeyFile = "privkey.pem"

	DefaultKeyBits = 4096

	DefaultNTPTimeout = 5 * time.Second

	// MinimumKeyBits is the smallest RSA modulus the node accepts.
	MinimumKeyBits = 2048
)

// NodeConfig is a typed view of the configuration document, used for
// validation. Edits always go through [Document.Set] so the file's
// layout is kept.
type NodeConfig struct {
	// Version is stamped at startup and is not meant to be hand-edited.
	Version string `yaml:"version"`

	// Client holds the node's identity settings.
	Client ClientConfig `yaml:"client"`

	// Misc holds time calibration settings.
	Misc MiscConfig `yaml:"misc"`
}

// ClientConfig holds the node's identity settings.
type ClientConfig struct {
	// AppID is the node's application identifier. "UNSET" (or absent)
	// means it has not been allocated yet.
	AppID string `yaml:"appid"`

	// KeyFile is the path of the PEM private key. Relative paths are
	// resolved against the configuration file's directory.
	// Default: privkey.pem
	KeyFile string `yaml:"keyfile"`

	// KeyBits is the RSA modulus size used when generating a key.
	// Default: 4096
	KeyBits int `yaml:"keybits"`
}

// MiscConfig holds time calibration settings.
type MiscConfig struct {
	// NTPServer is the time authority, "host" or "host:port".
	NTPServer string `yaml:"ntpserver"`

	// NTPTimeout bounds the time authority query ("5s", or seconds).
	// Default: 5s
	NTPTimeout string `yaml:"ntptimeout"`

	// Offset is the last measured local clock error in seconds.
	Offset float64 `yaml:"offset"`
}

// Typed decodes the document into a NodeConfig.
func (d *Document) Typed() (*NodeConfig, error) {
	var typed NodeConfig
	if err := d.Decode(&typed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}
	return &typed, nil
}

// Validate checks the configuration for errors. Missing optional keys
// are not errors; present keys must hold usable values.
func (c *NodeConfig) Validate() error {
	var errs []error

	if c.Client.KeyBits != 0 && c.Client.KeyBits < MinimumKeyBits {
		errs = append(errs, fmt.Errorf("%s must be at least %d, got %d", KeyKeyBits, MinimumKeyBits, c.Client.KeyBits))
	}

	if c.Misc.NTPTimeout != "" {
		if timeout, ok := parseDuration(c.Misc.NTPTimeout); !ok || timeout <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration such as \"5s\", got %q", KeyNTPTimeout, c.Misc.NTPTimeout))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigParse, errors.Join(errs...))
	}
	return nil
}
