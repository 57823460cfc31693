package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrDeckHasCards indicates a deck delete was refused because cards still
	// reference it.
	ErrDeckHasCards = errors.New("deck still has cards")
)

// DeckRecord stores one deck row.
type DeckRecord struct {
	ID          string
	Title       string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CardRecord stores one card row. Position orders cards inside a deck; the
// lowest position is the deck's top card.
type CardRecord struct {
	ID           string
	DeckID       string
	FrontContent string
	BackContent  string
	Position     int
	CreatedAt    time.Time
}

// DeckSummary is a deck with its derived card count and top card front.
type DeckSummary struct {
	ID           string
	Title        string
	Description  *string
	CardCount    int
	TopCardFront *string
	CreatedAt    time.Time
}

// RewardEvent stores one sparks grant.
type RewardEvent struct {
	ID        string
	DeckID    string
	Sparks    int
	CreatedAt time.Time
}

// DeckStore persists decks and their cards.
type DeckStore interface {
	PutDeck(ctx context.Context, deck DeckRecord) error
	PutCard(ctx context.Context, card CardRecord) error
	// ListDecks returns decks ordered by creation time, oldest first.
	ListDecks(ctx context.Context) ([]DeckSummary, error)
	// DeleteCardsOfDeck removes every card of deckID. Zero matching rows is success.
	DeleteCardsOfDeck(ctx context.Context, deckID string) error
	// DeleteDeck removes the deck row. A missing deck is success; a deck that
	// still has cards returns ErrDeckHasCards.
	DeleteDeck(ctx context.Context, deckID string) error
}

// RewardStore persists reward events.
type RewardStore interface {
	PutRewardEvent(ctx context.Context, event RewardEvent) error
	// ListRewardEvents returns the newest events matching query first.
	ListRewardEvents(ctx context.Context, query RewardQuery) ([]RewardEvent, error)
	SparksBalance(ctx context.Context) (int, error)
}

// RewardQuery narrows a reward event listing.
type RewardQuery struct {
	// Condition is a SQL WHERE fragment using ? placeholders over the
	// deck_id, sparks and created_at columns. Empty matches every event.
	Condition string
	Params    []any
	Limit     int
}

// SelectionStore persists the decks selected for today's session.
type SelectionStore interface {
	ListSelectedDecks(ctx context.Context) ([]string, error)
	// ReplaceSelectedDecks stores deckIDs as the complete selection.
	ReplaceSelectedDecks(ctx context.Context, deckIDs []string) error
}

// Store is the full persistence surface of the study service.
type Store interface {
	DeckStore
	RewardStore
	SelectionStore
	Close() error
}
