// Package db contains the journal data-access layer and small DI helpers
// used by Groundwork.
//
// The journal records provisioning runs, their per-step results, trusted
// host keys for remote targets, and an audit trail of notable actions. It
// is backed by Bun with SQLite, PostgreSQL and MySQL dialects; SQLite is
// the default and needs no server.
//
// DI helpers
//   - `Default*` functions return a sensible default implementation when the
//     package-level `store` has been initialized (via `InitDB`) or when a
//     package-level override has been set by tests.
//   - `SetDefault*` and `ClearDefault*` functions allow tests to inject simple
//     fakes that implement the same small interface (`RunSearcher`,
//     `AuditWriter`).
//
// Layering
//   - Low-level Bun helpers (queries shared across engines) live in
//     `bun_adapter.go`. They are not public API; `bunStore` in
//     `bunstore.go` calls them and layers audit logging on top.
//   - Statements whose syntax differs per engine (upserts,
//     integrate-on-conflict) are plain SQL strings in the statement
//     tables that `sqlite.go`, `postgres.go` and `mysql.go` pass to
//     `bunStore`. The dialect types carry no logic of their own.
//
// Testing notes
//   - Prefer `db.InitDB("sqlite", ":memory:")` in tests that need real DB
//     semantics and migrations.
//   - For fast unit tests that don't need a DB, inject fakes via
//     `SetDefaultAuditWriter` / `SetDefaultRunSearcher`.
package db
