// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"errors"
	"io/fs"

	"github.com/warble-foundation/warble/lib/config"
	"github.com/warble-foundation/warble/lib/keyvault"
	"github.com/warble-foundation/warble/lib/timesync"
)

// Explain returns guidance for an operator facing err, or "" when err
// is not one the node knows how to advise on. Permission problems and
// damaged data get different advice.
func Explain(err error) string {
	if err == nil {
		return ""
	}

	var keyErr *keyvault.KeyError
	if errors.As(err, &keyErr) {
		return keyErr.Remedy()
	}

	permission := errors.Is(err, fs.ErrPermission)
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return "Create the configuration file from the shipped conf/node.yaml template, " +
			"or point --config or " + config.EnvironmentVariable + " at an existing file."
	case errors.Is(err, config.ErrConfigRead):
		if permission {
			return "Make the configuration file readable by the user running the node."
		}
		return "Check that the configuration path names a regular, readable file."
	case errors.Is(err, config.ErrConfigParse):
		return "Fix the configuration file at the location reported above. " +
			"It has not been modified."
	case errors.Is(err, config.ErrConfigWrite):
		if permission {
			return "Make the configuration file and its directory writable by the user running the node. " +
				"The original file is unchanged."
		}
		return "Check free space on the configuration file's filesystem. The original file is unchanged."
	case errors.Is(err, timesync.ErrTimeSyncUnavailable):
		return "Check " + config.KeyNTPServer + " and that UDP port 123 to it is not blocked."
	}
	return ""
}
