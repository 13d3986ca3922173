// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// rawQuerier is satisfied by both *bun.DB and bun.Tx, so the raw helpers
// work inside and outside transactions.
type rawQuerier interface {
	NewRaw(query string, args ...interface{}) *bun.RawQuery
}

// ExecRaw executes a single raw SQL statement.
func ExecRaw(ctx context.Context, q rawQuerier, query string, args ...interface{}) (sql.Result, error) {
	return q.NewRaw(query, args...).Exec(ctx)
}

// WithTx runs fn inside a transaction, committing on nil and rolling back
// on error or panic.
func WithTx(ctx context.Context, bdb *bun.DB, fn func(ctx context.Context, tx bun.Tx) error) error {
	return bdb.RunInTx(ctx, nil, fn)
}
