// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/uptrace/bun"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

// PostgresStore backs the journal with PostgreSQL for teams that want the
// run history on shared infrastructure. The key column is quoted because
// the migrations create it quoted.
type PostgresStore struct {
	bunStore
}

var _ Store = (*PostgresStore)(nil)

func newPostgresStore(bdb *bun.DB) *PostgresStore {
	return &PostgresStore{bunStore{bun: bdb, sql: storeSQL{
		upsertHost: `INSERT INTO known_hosts (hostname, "key") VALUES (?, ?) ON CONFLICT (hostname) DO UPDATE SET "key" = EXCLUDED.key`,
		importHost: `INSERT INTO known_hosts (hostname, "key") VALUES (?, ?)`,
		integrate: integrateSQL{
			run:  "INSERT INTO runs (id, profile, target, status, failed_step, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING",
			step: "INSERT INTO step_results (run_id, position, name, title, status, message, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING",
			host: `INSERT INTO known_hosts (hostname, "key") VALUES (?, ?) ON CONFLICT DO NOTHING`,
		},
	}}}
}
