// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/warble-foundation/warble/lib/bootstrap"
)

// printChecklist writes a diagnostics report as a human-readable
// checklist.
func printChecklist(w io.Writer, report *bootstrap.Report) {
	fmt.Fprintf(w, "warble-node %s, configuration %s\n\n", report.Version, report.ConfigPath)
	for _, result := range report.Results {
		prefix := strings.ToUpper(string(result.Status))
		fmt.Fprintf(w, "[%-4s]  %-20s  %s\n", prefix, result.Name, result.Message)
		if result.Status != bootstrap.StatusPass && result.Hint != "" {
			fmt.Fprintf(w, "        %-20s  %s\n", "", result.Hint)
		}
	}
	fmt.Fprintln(w)
	if report.OK() {
		fmt.Fprintln(w, "All checks passed.")
	} else {
		fmt.Fprintln(w, "Some checks failed.")
	}
}
