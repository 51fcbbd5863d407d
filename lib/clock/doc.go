// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// Production code accepts a [Clock] instead of calling time.Now or
// time.After directly. [Real] wraps the time package; [Fake] returns a
// [FakeClock] that stands still until [FakeClock.Advance] is called.
//
// The node uses it in two places: the time calibrator stamps each
// measurement with the local time it was taken at, and the calling card
// is issued at the authority-corrected current time.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	calibrator := &timesync.Calibrator{Clock: c}
package clock
