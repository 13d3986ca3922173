// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core contains deterministic, UI-agnostic business logic and small
// interface definitions shared by the CLI and the TUI. Facades compose the
// profile, runner, engine and journal layers and return typed results; the
// UIs do the printing. Side-effecting collaborators are injected via the
// interfaces in interfaces.go and the Default* helpers in cli_wrappers.go so
// tests can substitute fakes.
package core
