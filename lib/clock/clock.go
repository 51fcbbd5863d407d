// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the wall clock for testability. Production code
// injects Real(); tests inject Fake() and move time explicitly.
//
// Anything in the bootstrap path that stamps a time (calibration
// measurements, calling card issue times) or waits on a deadline takes
// a Clock instead of calling the time package directly.
type Clock interface {
	// Now returns the current local time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. If d <= 0, the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}
