// Package postgres provides the PostgreSQL-backed study store.
//
// It shares the migration file layout of the sqlite backend and records
// applied files in its own schema_migrations table.
package postgres
