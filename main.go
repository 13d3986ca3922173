// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// Groundwork prepares a machine for a deployed backend service: OS packages,
// an isolated runtime environment, the environment file, working directories
// and helper scripts, driven by a declarative profile. This package is only
// the entrypoint; the command tree lives in ui/cli.
package main

import (
	"os"

	"github.com/groundwork-sh/groundwork/ui/cli"
)

func main() {
	// Cobra prints the failing command's error itself; the exit code is
	// all that is left to do here.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
