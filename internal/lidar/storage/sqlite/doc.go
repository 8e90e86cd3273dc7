// Package sqlite persists ground-detection runs and their per-footprint
// results in SQLite.
//
// All database read/write operations for runs belong here rather than in
// the layer packages (L1-L6). This keeps domain logic free of SQL noise and
// makes it easier to swap storage backends for testing. The schema is
// managed by golang-migrate from migrations embedded in the binary.
package sqlite
