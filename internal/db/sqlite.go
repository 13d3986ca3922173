// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/uptrace/bun"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SqliteStore is the default journal backend. The whole journal lives in a
// single file (or in memory for tests) and needs no server.
type SqliteStore struct {
	bunStore
}

var _ Store = (*SqliteStore)(nil)

func newSqliteStore(bdb *bun.DB) *SqliteStore {
	return &SqliteStore{bunStore{bun: bdb, sql: storeSQL{
		upsertHost: "INSERT OR REPLACE INTO known_hosts (hostname, key) VALUES (?, ?)",
		importHost: "INSERT INTO known_hosts (hostname, key) VALUES (?, ?)",
		integrate: integrateSQL{
			run:  "INSERT OR IGNORE INTO runs (id, profile, target, status, failed_step, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			step: "INSERT OR IGNORE INTO step_results (run_id, position, name, title, status, message, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)",
			host: "INSERT OR IGNORE INTO known_hosts (hostname, key) VALUES (?, ?)",
		},
	}}}
}
