// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package timesync

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/beevik/ntp"

	"github.com/warble-foundation/warble/lib/clock"
	"github.com/warble-foundation/warble/lib/testutil"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// goodResponse returns a response that passes ntp.Response.Validate.
func goodResponse(offset time.Duration) *ntp.Response {
	return &ntp.Response{
		Time:          epoch,
		ClockOffset:   offset,
		RTT:           20 * time.Millisecond,
		Stratum:       2,
		ReferenceTime: epoch.Add(-time.Minute),
		Leap:          ntp.LeapNoWarning,
	}
}

func TestComputeOffset(t *testing.T) {
	fake := clock.Fake(epoch)
	var gotAddress string
	var gotTimeout time.Duration
	calibrator := &Calibrator{
		Clock: fake,
		Query: func(address string, options ntp.QueryOptions) (*ntp.Response, error) {
			gotAddress = address
			gotTimeout = options.Timeout
			return goodResponse(-1500 * time.Millisecond), nil
		},
	}

	calibration, err := calibrator.ComputeOffset(context.Background(), "time.example:123", 3*time.Second)
	if err != nil {
		t.Fatalf("ComputeOffset: %v", err)
	}
	if gotAddress != "time.example:123" {
		t.Errorf("queried %q, want time.example:123", gotAddress)
	}
	if gotTimeout != 3*time.Second {
		t.Errorf("query timeout = %v, want 3s", gotTimeout)
	}
	if calibration.Offset != -1500*time.Millisecond {
		t.Errorf("Offset = %v, want -1.5s", calibration.Offset)
	}
	if calibration.Seconds() != -1.5 {
		t.Errorf("Seconds() = %v, want -1.5", calibration.Seconds())
	}
	if calibration.Stratum != 2 || calibration.RTT != 20*time.Millisecond {
		t.Errorf("Stratum/RTT = %d/%v", calibration.Stratum, calibration.RTT)
	}
	if !calibration.At.Equal(epoch) || !calibration.Measured() {
		t.Errorf("At = %v, want %v", calibration.At, epoch)
	}
	if got := calibration.Adjust(epoch); !got.Equal(epoch.Add(-1500 * time.Millisecond)) {
		t.Errorf("Adjust = %v", got)
	}
}

func TestComputeOffsetDefaultTimeout(t *testing.T) {
	var gotTimeout time.Duration
	calibrator := &Calibrator{
		Clock: clock.Fake(epoch),
		Query: func(address string, options ntp.QueryOptions) (*ntp.Response, error) {
			gotTimeout = options.Timeout
			return goodResponse(0), nil
		},
	}
	if _, err := calibrator.ComputeOffset(context.Background(), "time.example", 0); err != nil {
		t.Fatalf("ComputeOffset: %v", err)
	}
	if gotTimeout != DefaultTimeout {
		t.Errorf("query timeout = %v, want %v", gotTimeout, DefaultTimeout)
	}
}

func TestComputeOffsetFailures(t *testing.T) {
	kissOfDeath := goodResponse(0)
	kissOfDeath.Stratum = 0

	unsynchronised := goodResponse(0)
	unsynchronised.Leap = ntp.LeapNotInSync

	tests := []struct {
		name      string
		authority string
		response  *ntp.Response
		err       error
	}{
		{name: "no authority", authority: ""},
		{name: "network error", authority: "time.example", err: errors.New("connection refused")},
		{name: "kiss of death", authority: "time.example", response: kissOfDeath},
		{name: "not in sync", authority: "time.example", response: unsynchronised},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			calibrator := &Calibrator{
				Clock: clock.Fake(epoch),
				Query: func(string, ntp.QueryOptions) (*ntp.Response, error) {
					return test.response, test.err
				},
			}
			calibration, err := calibrator.ComputeOffset(context.Background(), test.authority, time.Second)
			if !errors.Is(err, ErrTimeSyncUnavailable) {
				t.Fatalf("ComputeOffset error = %v, want ErrTimeSyncUnavailable", err)
			}
			if calibration.Measured() || calibration.Offset != 0 {
				t.Errorf("failed query returned a calibration: %+v", calibration)
			}
		})
	}
}

func TestComputeOffsetTimesOut(t *testing.T) {
	fake := clock.Fake(epoch)
	release := make(chan struct{})
	defer close(release)
	calibrator := &Calibrator{
		Clock: fake,
		Query: func(string, ntp.QueryOptions) (*ntp.Response, error) {
			<-release
			return goodResponse(0), nil
		},
	}

	done := make(chan error, 1)
	go func() {
		_, err := calibrator.ComputeOffset(context.Background(), "time.example", 2*time.Second)
		done <- err
	}()

	for fake.PendingCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	fake.Advance(2 * time.Second)

	err := testutil.RequireReceive(t, done, 5*time.Second, "ComputeOffset after the timeout elapsed")
	if !errors.Is(err, ErrTimeSyncUnavailable) {
		t.Fatalf("ComputeOffset error = %v, want ErrTimeSyncUnavailable", err)
	}
}

func TestComputeOffsetHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	calibrator := &Calibrator{
		Clock: clock.Fake(epoch),
		Query: func(string, ntp.QueryOptions) (*ntp.Response, error) {
			<-release
			return goodResponse(0), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := calibrator.ComputeOffset(ctx, "time.example", time.Hour)
	if !errors.Is(err, ErrTimeSyncUnavailable) || !errors.Is(err, context.Canceled) {
		t.Fatalf("ComputeOffset error = %v, want ErrTimeSyncUnavailable wrapping context.Canceled", err)
	}
}

// A local UDP socket that never answers stands in for an unreachable
// authority, exercising the real SNTP client end to end.
func TestComputeOffsetSilentAuthority(t *testing.T) {
	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer listener.Close()

	calibrator := &Calibrator{}
	start := time.Now()
	_, err = calibrator.ComputeOffset(context.Background(), listener.LocalAddr().String(), 200*time.Millisecond)
	if !errors.Is(err, ErrTimeSyncUnavailable) {
		t.Fatalf("ComputeOffset error = %v, want ErrTimeSyncUnavailable", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("ComputeOffset took %v against a silent authority", elapsed)
	}
}

func TestFromSeconds(t *testing.T) {
	calibration := FromSeconds(0.25)
	if calibration.Offset != 250*time.Millisecond {
		t.Errorf("Offset = %v, want 250ms", calibration.Offset)
	}
	if calibration.Measured() {
		t.Error("stored calibration reported as measured")
	}
}
