// Package storage defines persistence contracts for study decks, cards and
// reward events.
//
// Backends live in subpackages: sqlite for the embedded single-file store and
// postgres for a shared database. Both enforce that a deck cannot be deleted
// while cards still reference it.
package storage
