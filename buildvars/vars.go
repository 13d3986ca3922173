// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars receives values stamped in at link time.
package buildvars

// Version is stamped by the release build via
// `-ldflags "-X github.com/groundwork-sh/groundwork/buildvars.Version=..."`.
// Local builds leave it empty.
var Version string

// VersionOrDefault returns the stamped Version, or def for unstamped builds.
func VersionOrDefault(def string) string {
	if Version == "" {
		return def
	}
	return Version
}
