// Package sqlite implements the store interfaces on an embedded SQLite
// database (modernc.org/sqlite, no cgo). It backs single-node deployments
// and the test suites of the packages above it.
//
// Timestamps are stored as INTEGER Unix nanoseconds in UTC so that ordering
// and keyset comparisons are plain integer comparisons. The pool is pinned
// to one connection, which serializes writers.
package sqlite
