// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/warble-foundation/warble/lib/appid"
	"github.com/warble-foundation/warble/lib/codec"
	"github.com/warble-foundation/warble/lib/config"
	"github.com/warble-foundation/warble/lib/identity"
	"github.com/warble-foundation/warble/lib/keyvault"
)

// Status is the outcome of a single diagnostic check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusWarn Status = "warn"
)

// Result holds the outcome of one diagnostic check.
type Result struct {
	Name    string
	Status  Status
	Message string
	// Hint is operator guidance for a failure or warning.
	Hint     string
	Duration time.Duration
}

func pass(message string) Result {
	return Result{Status: StatusPass, Message: message}
}

func fail(err error) Result {
	return Result{Status: StatusFail, Message: err.Error(), Hint: Explain(err)}
}

// warn records a problem that does not stop the node from starting.
func warn(err error) Result {
	return Result{Status: StatusWarn, Message: err.Error(), Hint: Explain(err)}
}

// Report is the outcome of [Diagnose].
type Report struct {
	ConfigPath string
	Version    string
	Results    []Result
}

// OK reports whether no check failed. Warnings do not count.
func (r *Report) OK() bool {
	for _, result := range r.Results {
		if result.Status == StatusFail {
			return false
		}
	}
	return true
}

// cardSkew is the issue-time tolerance used when checking a freshly
// signed card against the local clock.
const cardSkew = time.Minute

// Diagnose loads the configuration, stamps the version in memory, and
// runs the node's self-checks. Nothing the node owns is written: the
// round-trip check works on a copy in a temporary directory and the
// crypto checks use throwaway keys. The error return is for failures
// that prevent the checks from running at all.
func Diagnose(ctx context.Context, options Options) (*Report, error) {
	options.defaults()
	logger := options.Logger

	configPath, document, err := loadDocument(options.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := document.Set(config.KeyVersion, options.Version); err != nil {
		return nil, fmt.Errorf("stamping version: %w", err)
	}
	logger.Info("running diagnostics", "config", configPath, "version", options.Version)

	keyBits := document.GetInt(config.KeyKeyBits, config.DefaultKeyBits)
	checks := []struct {
		name string
		run  func() Result
	}{
		{"crypto-backend", func() Result { return checkCrypto(keyBits) }},
		{"config-round-trip", func() Result { return checkRoundTrip(document) }},
		{"appid-format", checkAppID},
		{"calling-card", func() Result { return checkCard(options) }},
		{"time-authority", func() Result { return checkTime(ctx, options, document) }},
	}

	report := &Report{ConfigPath: configPath, Version: options.Version}
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("diagnostics interrupted: %w", err)
		}
		start := time.Now()
		result := check.run()
		result.Name = check.name
		result.Duration = time.Since(start)
		report.Results = append(report.Results, result)

		attributes := []any{"check", result.Name, "duration", result.Duration, "message", result.Message}
		switch result.Status {
		case StatusPass:
			logger.Info("check passed", attributes...)
		case StatusWarn:
			logger.Warn("check warning", append(attributes, "hint", result.Hint)...)
		default:
			logger.Error("check failed", append(attributes, "hint", result.Hint)...)
		}
	}
	return report, nil
}

func checkCrypto(bits int) Result {
	if err := keyvault.SelfTest(bits); err != nil {
		return fail(err)
	}
	return pass(fmt.Sprintf("RSA-%d sign, verify, encrypt, decrypt and PEM round trip", bits))
}

// checkRoundTrip saves a copy of document with one field changed,
// reverts the change, and requires the result to be byte-identical to
// the original rendering.
func checkRoundTrip(document *config.Document) Result {
	original, err := document.Bytes()
	if err != nil {
		return fail(err)
	}

	directory, err := os.MkdirTemp("", "warble-diagnostics-")
	if err != nil {
		return fail(fmt.Errorf("creating scratch directory: %w", err))
	}
	defer os.RemoveAll(directory)
	path := filepath.Join(directory, "node.yaml")
	if err := os.WriteFile(path, original, 0644); err != nil {
		return fail(fmt.Errorf("writing scratch copy: %w", err))
	}

	previous, hadPrevious := document.Get(config.KeyAppID)

	copied, err := config.Load(path)
	if err != nil {
		return fail(err)
	}
	if err := copied.Set(config.KeyAppID, "diagnostic-round-trip"); err != nil {
		return fail(err)
	}
	if err := config.Save(copied, path); err != nil {
		return fail(err)
	}

	reloaded, err := config.Load(path)
	if err != nil {
		return fail(err)
	}
	if got := reloaded.GetString(config.KeyAppID, ""); got != "diagnostic-round-trip" {
		return fail(fmt.Errorf("saved value read back as %q", got))
	}
	if hadPrevious {
		err = reloaded.Set(config.KeyAppID, previous)
	} else {
		reloaded.Delete(config.KeyAppID)
	}
	if err != nil {
		return fail(err)
	}

	restored, err := reloaded.Bytes()
	if err != nil {
		return fail(err)
	}
	if !bytes.Equal(original, restored) {
		return fail(errors.New("saving changed keys, comments or layout beyond the edited value"))
	}
	return pass("edit, save and reload keep every other key, comment and the key order")
}

func checkAppID() Result {
	minted, err := appid.Mint(appid.HostMaterial())
	if err != nil {
		return fail(err)
	}
	if !appid.Valid(minted) {
		return fail(fmt.Errorf("minted id %q is not %d lowercase hex characters", minted, appid.Length))
	}
	return pass(fmt.Sprintf("minted %d-character id", len(minted)))
}

func checkCard(options Options) Result {
	key, err := rsa.GenerateKey(rand.Reader, keyvault.MinimumBits)
	if err != nil {
		return fail(fmt.Errorf("generating throwaway key: %w", err))
	}
	minted, err := appid.Mint(appid.HostMaterial())
	if err != nil {
		return fail(err)
	}
	now := options.Clock.Now()
	card, err := identity.NewCard(minted, &key.PublicKey, options.Version, now)
	if err != nil {
		return fail(err)
	}
	signed, err := identity.Sign(card, key)
	if err != nil {
		return fail(err)
	}
	data, err := identity.Marshal(signed)
	if err != nil {
		return fail(err)
	}
	decoded, err := identity.Unmarshal(data)
	if err != nil {
		return fail(err)
	}
	if _, err := identity.Verify(decoded, now, cardSkew); err != nil {
		return fail(err)
	}

	decoded.Signature[0] ^= 0xff
	if _, err := identity.Verify(decoded, now, cardSkew); !errors.Is(err, identity.ErrBadSignature) {
		return fail(fmt.Errorf("tampered card was not rejected (got %v)", err))
	}

	if notation, err := codec.Diagnose(signed.Payload); err == nil {
		options.Logger.Debug("calling card payload", "cbor", notation)
	}
	return pass(fmt.Sprintf("%d-byte card signed, verified and tamper-checked", len(data)))
}

func checkTime(ctx context.Context, options Options, document *config.Document) Result {
	authority := document.GetString(config.KeyNTPServer, "")
	timeout := document.GetDuration(config.KeyNTPTimeout, config.DefaultNTPTimeout)
	calibration, err := options.Calibrator.ComputeOffset(ctx, authority, timeout)
	if err != nil {
		return warn(err)
	}
	return pass(fmt.Sprintf("%s answered, offset %+.3fs, rtt %s", authority, calibration.Seconds(), calibration.RTT))
}
