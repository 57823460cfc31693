// Package sqlite provides the SQLite-backed study store.
package sqlite
