// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package engine

import "errors"

// Sentinel errors for the failure classes a run can hit. Step implementations
// wrap these with detail; UIs and exit-code handling match on them with
// errors.Is.
var (
	// ErrNotPrivileged means the run is not acting as root on the target.
	// Nothing has been modified when this is returned.
	ErrNotPrivileged = errors.New("provisioning requires root privileges")

	// ErrProjectDirMissing means the project checkout or its runtime
	// subfolder does not exist on the target.
	ErrProjectDirMissing = errors.New("project directory not found")

	// ErrRuntimeCreate means the Python virtual environment could not be
	// created.
	ErrRuntimeCreate = errors.New("virtual environment creation failed")

	// ErrDependencyInstall means installing the dependency manifest failed.
	ErrDependencyInstall = errors.New("dependency installation failed")

	// ErrInterrupted means the run was canceled before completing. Runs
	// that end this way never report success.
	ErrInterrupted = errors.New("run interrupted")
)
