// Package database provides SQLite-based run history for wordcrawl.
//
// This package implements the RunDB, which stores:
//   - One row per finished crawl run with its timing and fingerprint
//   - The ranked popular words of every run
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
