// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying database from the application's
// core logic. Implementations live under internal/platform (postgres and
// sqlite); the shared behavioural contract they must satisfy is exercised by
// the storetest package.
package store
