// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warble-foundation/warble/lib/appid"
	"github.com/warble-foundation/warble/lib/clock"
	"github.com/warble-foundation/warble/lib/config"
	"github.com/warble-foundation/warble/lib/identity"
	"github.com/warble-foundation/warble/lib/keyvault"
	"github.com/warble-foundation/warble/lib/timesync"
	"github.com/warble-foundation/warble/lib/version"
)

// Options configures a bootstrap run. The zero value resolves the
// configuration path from the environment, logs nowhere, and uses the
// real clock and network.
type Options struct {
	// ConfigPath overrides the configuration file location. When set,
	// the file must exist.
	ConfigPath string

	// Version is stamped into the document. Defaults to version.Short().
	Version string

	Logger *slog.Logger
	Clock  clock.Clock

	// Calibrator measures the clock offset. Nil uses a network
	// calibrator sharing Logger and Clock.
	Calibrator *timesync.Calibrator
}

func (o *Options) defaults() {
	if o.Version == "" {
		o.Version = version.Short()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Calibrator == nil {
		o.Calibrator = &timesync.Calibrator{Clock: o.Clock, Logger: o.Logger}
	}
}

// Node is the outcome of a successful bootstrap.
type Node struct {
	ConfigPath string
	Document   *config.Document
	Key        *keyvault.KeyPair
	AppID      string

	// Calibration is the measured offset, or the stored one when the
	// time authority could not be reached.
	Calibration timesync.Calibration

	// Card is the signed calling card for first contact with a master.
	Card *identity.SignedCard

	// FirstBoot is true when this run generated the node's key.
	FirstBoot bool

	// AppIDAllocated is true when this run minted the application ID.
	AppIDAllocated bool

	// TimeSynced is true when the time authority answered.
	TimeSynced bool
}

// Run performs the bootstrap sequence described in the package
// documentation.
func Run(ctx context.Context, options Options) (*Node, error) {
	options.defaults()
	logger := options.Logger

	configPath, document, err := loadDocument(options.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger.Info("configuration loaded", "path", configPath)

	keyPath := config.ResolveRelative(configPath, document.GetString(config.KeyKeyFile, config.DefaultKeyFile))
	keyBits := document.GetInt(config.KeyKeyBits, config.DefaultKeyBits)
	key, err := keyvault.LoadOrCreate(keyPath, keyBits)
	if err != nil {
		return nil, fmt.Errorf("node key: %w", err)
	}
	if key.Generated {
		logger.Info("node key generated",
			"path", key.Path,
			"bits", key.Bits(),
			"fingerprint", key.Fingerprint,
		)
	} else {
		logger.Info("node key loaded",
			"path", key.Path,
			"fingerprint", key.Fingerprint,
		)
	}

	id, changed, err := appid.EnsureAppID(document)
	if err != nil {
		return nil, fmt.Errorf("application id: %w", err)
	}
	if changed {
		if err := config.Save(document, configPath); err != nil {
			return nil, fmt.Errorf("saving allocated application id: %w", err)
		}
		logger.Info("application id allocated", "appid", id, "path", configPath)
	} else {
		logger.Info("application id", "appid", id)
	}

	// Set after the save above, so the stamp stays in memory.
	if err := document.Set(config.KeyVersion, options.Version); err != nil {
		return nil, fmt.Errorf("stamping version: %w", err)
	}

	node := &Node{
		ConfigPath:     configPath,
		Document:       document,
		Key:            key,
		AppID:          id,
		FirstBoot:      key.Generated,
		AppIDAllocated: changed,
	}

	node.Calibration, node.TimeSynced = calibrate(ctx, options, document)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("bootstrap interrupted: %w", err)
	}
	if err := document.Set(config.KeyOffset, node.Calibration.Seconds()); err != nil {
		return nil, fmt.Errorf("recording clock offset: %w", err)
	}

	card, err := identity.NewCard(id, key.Public(), options.Version, node.Calibration.Adjust(options.Clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("calling card: %w", err)
	}
	node.Card, err = identity.Sign(card, key.Private)
	if err != nil {
		return nil, fmt.Errorf("calling card: %w", err)
	}
	logger.Info("calling card prepared; no master handshake in this release",
		"appid", id,
		"issued_at", card.IssuedAt,
	)

	return node, nil
}

// loadDocument resolves the configuration path and loads and validates
// the document.
func loadDocument(override string) (string, *config.Document, error) {
	configPath, err := config.ResolvePath(override)
	if err != nil {
		return "", nil, fmt.Errorf("configuration: %w", err)
	}
	document, err := config.Load(configPath)
	if err != nil {
		return "", nil, fmt.Errorf("configuration: %w", err)
	}
	typed, err := document.Typed()
	if err != nil {
		return "", nil, fmt.Errorf("configuration %s: %w", configPath, err)
	}
	if err := typed.Validate(); err != nil {
		return "", nil, fmt.Errorf("configuration %s: %w", configPath, err)
	}
	return configPath, document, nil
}

// calibrate measures the clock offset, falling back to the stored
// misc.offset when the time authority cannot be used.
func calibrate(ctx context.Context, options Options, document *config.Document) (timesync.Calibration, bool) {
	authority := document.GetString(config.KeyNTPServer, "")
	timeout := document.GetDuration(config.KeyNTPTimeout, config.DefaultNTPTimeout)

	calibration, err := options.Calibrator.ComputeOffset(ctx, authority, timeout)
	if err == nil {
		options.Logger.Info("clock calibrated",
			"authority", authority,
			"offset_seconds", calibration.Seconds(),
			"rtt", calibration.RTT,
			"stratum", calibration.Stratum,
		)
		return calibration, true
	}

	fallback := timesync.FromSeconds(document.GetFloat(config.KeyOffset, 0))
	options.Logger.Warn("clock calibration unavailable, continuing with stored offset",
		"authority", authority,
		"error", err,
		"offset_seconds", fallback.Seconds(),
	)
	return fallback, false
}
