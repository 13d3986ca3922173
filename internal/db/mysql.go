// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/uptrace/bun"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLStore backs the journal with MySQL or MariaDB. The DSN format is
// "user:password@tcp(host:port)/dbname"; add `?parseTime=true` so DATETIME
// columns scan into time.Time. `key` is a reserved word in MySQL, hence the
// backticks here and in the migrations.
type MySQLStore struct {
	bunStore
}

var _ Store = (*MySQLStore)(nil)

func newMySQLStore(bdb *bun.DB) *MySQLStore {
	return &MySQLStore{bunStore{bun: bdb, sql: storeSQL{
		upsertHost: "INSERT INTO known_hosts (hostname, `key`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `key` = VALUES(`key`)",
		importHost: "INSERT INTO known_hosts (hostname, `key`) VALUES (?, ?)",
		integrate: integrateSQL{
			run:  "INSERT IGNORE INTO runs (id, profile, target, status, failed_step, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			step: "INSERT IGNORE INTO step_results (run_id, position, name, title, status, message, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)",
			host: "INSERT IGNORE INTO known_hosts (hostname, `key`) VALUES (?, ?)",
		},
	}}}
}
