// Package postgres provides PostgreSQL implementations of the store
// interfaces, using pgx through database/sql. It also owns the goose
// migrations for the PostgreSQL schema.
//
// Every method maps driver errors with MapError, so callers only ever see
// the sentinel errors of package store.
package postgres
