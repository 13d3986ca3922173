// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Groundwork using
// Cobra. It wires configuration, i18n and the journal, and provides commands
// that delegate to deterministic `core` facades. CLI code should remain thin;
// business logic lives in `core`, the engine and the adapter types.
package cli
