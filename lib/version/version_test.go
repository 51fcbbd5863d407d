// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	savedCommit, savedDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = savedCommit, savedDirty })

	GitCommit = "abc1234"
	GitDirty = "false"
	if got := Info(); !strings.HasPrefix(got, Version+" (abc1234,") {
		t.Errorf("Info() = %q, want prefix %q", got, Version+" (abc1234,")
	}

	GitDirty = "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want dirty marker", got)
	}
}

func TestFull(t *testing.T) {
	got := Full()
	if !strings.Contains(got, "Go: ") || !strings.Contains(got, "Platform: ") {
		t.Errorf("Full() = %q, missing Go or Platform line", got)
	}
}

func TestShort(t *testing.T) {
	if Short() != Version {
		t.Errorf("Short() = %q, want %q", Short(), Version)
	}
}
