// Package domain models today's study session.
//
// A session mirrors the caller's deck list, tracks which decks are selected
// for today and mediates every change to that selection through a
// confirmation gate. Deck deletion runs as an ordered cascade against the
// backing repository (cards first, then the deck) and is reconciled into the
// local view only after both steps succeed. Deck completion records a reward
// and raises a one-shot celebration.
//
// The package holds:
//   - the pure gate decider and the stateful Gate that executes its effects,
//   - the deletion cascade and its repository boundary,
//   - the celebration trigger and its reward ledger boundary,
//   - and Session, which owns the local deck cache and selection and keeps
//     them consistent.
package domain
