// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package timesync measures the local clock's error against a time
// authority over SNTP.
//
// A measurement is a [Calibration]: the signed offset to add to local
// time to obtain authority time, plus the round-trip delay and the
// authority's stratum. Failure to reach the authority is reported as
// [ErrTimeSyncUnavailable]; callers treat it as a degraded condition,
// not a fatal one.
package timesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/beevik/ntp"

	"github.com/warble-foundation/warble/lib/clock"
)

// ErrTimeSyncUnavailable means no usable answer was obtained from the
// time authority.
var ErrTimeSyncUnavailable = errors.New("time authority unavailable")

// DefaultTimeout bounds a query when the caller passes no timeout.
const DefaultTimeout = 5 * time.Second

// QueryFunc performs one SNTP exchange. [ntp.QueryWithOptions] is the
// production implementation.
type QueryFunc func(address string, options ntp.QueryOptions) (*ntp.Response, error)

// Calibration is one measurement of the local clock against a time
// authority.
type Calibration struct {
	// Authority is the address that was queried.
	Authority string

	// Offset is added to local time to obtain authority time. Positive
	// means the local clock is behind.
	Offset time.Duration

	// RTT is the round-trip delay of the exchange.
	RTT time.Duration

	// Stratum is the authority's distance from a reference clock.
	Stratum uint8

	// At is the local time the measurement completed. Zero for a
	// calibration that was not measured in this process.
	At time.Time
}

// FromSeconds builds an unmeasured calibration from a stored offset in
// seconds.
func FromSeconds(seconds float64) Calibration {
	return Calibration{Offset: time.Duration(seconds * float64(time.Second))}
}

// Seconds returns the offset as signed float seconds.
func (c Calibration) Seconds() float64 {
	return c.Offset.Seconds()
}

// Measured reports whether the calibration came from a query.
func (c Calibration) Measured() bool {
	return !c.At.IsZero()
}

// Adjust converts a local time to authority time.
func (c Calibration) Adjust(local time.Time) time.Time {
	return local.Add(c.Offset)
}

// Calibrator queries time authorities. The zero value queries over the
// network with the real clock and discards logs.
type Calibrator struct {
	Query  QueryFunc
	Clock  clock.Clock
	Logger *slog.Logger
}

// ComputeOffset asks authority ("host" or "host:port") for the time and
// returns the resulting calibration. The query is abandoned when
// timeout elapses or ctx is done, whichever comes first; both are
// reported as ErrTimeSyncUnavailable, as are network failures and
// responses that fail validation.
func (c *Calibrator) ComputeOffset(ctx context.Context, authority string, timeout time.Duration) (Calibration, error) {
	if authority == "" {
		return Calibration{}, fmt.Errorf("%w: no time authority configured", ErrTimeSyncUnavailable)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	query := c.Query
	if query == nil {
		query = ntp.QueryWithOptions
	}
	clk := c.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	type answer struct {
		response *ntp.Response
		err      error
	}
	answers := make(chan answer, 1)
	go func() {
		response, err := query(authority, ntp.QueryOptions{Timeout: timeout})
		answers <- answer{response, err}
	}()

	var result answer
	select {
	case result = <-answers:
	case <-clk.After(timeout):
		return Calibration{}, fmt.Errorf("%w: %s did not answer within %s", ErrTimeSyncUnavailable, authority, timeout)
	case <-ctx.Done():
		return Calibration{}, fmt.Errorf("%w: %s: %w", ErrTimeSyncUnavailable, authority, ctx.Err())
	}

	if result.err != nil {
		return Calibration{}, fmt.Errorf("%w: querying %s: %w", ErrTimeSyncUnavailable, authority, result.err)
	}
	if err := result.response.Validate(); err != nil {
		return Calibration{}, fmt.Errorf("%w: %s sent an unusable response: %w", ErrTimeSyncUnavailable, authority, err)
	}

	calibration := Calibration{
		Authority: authority,
		Offset:    result.response.ClockOffset,
		RTT:       result.response.RTT,
		Stratum:   result.response.Stratum,
		At:        clk.Now(),
	}
	logger.Debug("time authority answered",
		"authority", authority,
		"offset", calibration.Offset,
		"rtt", calibration.RTT,
		"stratum", calibration.Stratum,
	)
	return calibration, nil
}
