// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

// AuditWriter is a minimal interface for appending audit trail entries.
// The Store implementations satisfy it; tests may inject a fake.
type AuditWriter interface {
	LogAction(action string, details string) error
}

var defaultAuditWriter AuditWriter

// SetDefaultAuditWriter installs a package-level AuditWriter override.
// Intended for tests.
func SetDefaultAuditWriter(w AuditWriter) { defaultAuditWriter = w }

// ClearDefaultAuditWriter removes a previously installed override.
func ClearDefaultAuditWriter() { defaultAuditWriter = nil }

// DefaultAuditWriter returns the injected writer when one is set, otherwise
// the initialized store. Returns nil when neither is available.
func DefaultAuditWriter() AuditWriter {
	if defaultAuditWriter != nil {
		return defaultAuditWriter
	}
	if store == nil {
		return nil
	}
	return store
}
