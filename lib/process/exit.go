// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is implemented by errors that carry their own exit code.
// Such errors have already been reported; Report prints nothing for
// them.
type ExitCoder interface {
	ExitCode() int
}

// ExitError ends the process with Code without further output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Report writes "error: err" to w, followed by the remedy from explain
// when it has one, and returns the exit code for err: the code of an
// [ExitCoder] in its chain, otherwise 1. explain may be nil.
func Report(w io.Writer, err error, explain func(error) string) int {
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	if explain != nil {
		if remedy := explain(err); remedy != "" {
			fmt.Fprintf(w, "  %s\n", remedy)
		}
	}
	return 1
}

// Exit reports err to stderr and exits with its code.
func Exit(err error, explain func(error) string) {
	os.Exit(Report(os.Stderr, err, explain))
}
