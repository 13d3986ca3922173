// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/uptrace/bun"
)

// RunSearcher defines a minimal interface for searching run history.
// Consumers can depend on this instead of concrete Store implementations.
type RunSearcher interface {
	SearchRuns(query string) ([]model.Run, error)
}

// BunRunSearcher is a Bun-based implementation of RunSearcher.
type BunRunSearcher struct {
	bdb *bun.DB
}

// NewBunRunSearcher creates a new BunRunSearcher.
func NewBunRunSearcher(bdb *bun.DB) RunSearcher {
	return &BunRunSearcher{bdb: bdb}
}

// NewRunSearcherFromStore creates a RunSearcher from any Store by using the
// underlying Bun DB.
func NewRunSearcherFromStore(s Store) RunSearcher {
	return NewBunRunSearcher(s.BunDB())
}

// SearchRuns delegates to the centralized Bun search helper.
func (s *BunRunSearcher) SearchRuns(q string) ([]model.Run, error) {
	return SearchRunsBun(s.bdb, q)
}

var defaultRunSearcher RunSearcher

// SetDefaultRunSearcher installs a package-level RunSearcher override.
// Intended for tests.
func SetDefaultRunSearcher(s RunSearcher) { defaultRunSearcher = s }

// ClearDefaultRunSearcher removes a previously installed override.
func ClearDefaultRunSearcher() { defaultRunSearcher = nil }

// DefaultRunSearcher returns a RunSearcher backed by the package-level
// `store` if available. It returns nil when the package store is not
// initialized; callers should handle nil by falling back to local filtering.
func DefaultRunSearcher() RunSearcher {
	if defaultRunSearcher != nil {
		return defaultRunSearcher
	}
	if store == nil {
		return nil
	}
	return NewRunSearcherFromStore(store)
}
