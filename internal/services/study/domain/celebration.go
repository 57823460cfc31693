package domain

import (
	"context"
	"strings"
	"sync"
)

// DefaultSparksPerDeck is the reward granted for completing a deck.
const DefaultSparksPerDeck = 50

// RewardLedger records deck-completion rewards. CompleteDeck is
// fire-and-forget: implementations handle their own persistence failures.
type RewardLedger interface {
	CompleteDeck(ctx context.Context, deckID string)
}

// Celebration is the active reward notification.
type Celebration struct {
	DeckID string
	Sparks int
}

// CelebrationTrigger raises a one-shot celebration per deck completion.
//
// A completion while a celebration is active replaces it; celebrations never
// queue. Acknowledge re-arms the trigger.
type CelebrationTrigger struct {
	ledger RewardLedger
	sparks int

	mu     sync.Mutex
	active *Celebration
}

// NewCelebrationTrigger builds a trigger granting sparks per completion.
// Non-positive sparks fall back to DefaultSparksPerDeck.
func NewCelebrationTrigger(ledger RewardLedger, sparks int) *CelebrationTrigger {
	if sparks <= 0 {
		sparks = DefaultSparksPerDeck
	}
	return &CelebrationTrigger{ledger: ledger, sparks: sparks}
}

// OnDeckCompleted records the completion and activates the celebration.
func (t *CelebrationTrigger) OnDeckCompleted(ctx context.Context, deckID string) (Celebration, error) {
	deckID = strings.TrimSpace(deckID)
	if deckID == "" {
		return Celebration{}, ErrDeckIDRequired
	}
	if t.ledger != nil {
		t.ledger.CompleteDeck(ctx, deckID)
	}

	celebration := Celebration{DeckID: deckID, Sparks: t.sparks}
	t.mu.Lock()
	t.active = &celebration
	t.mu.Unlock()
	return celebration, nil
}

// Acknowledge clears the active celebration and reports whether one was shown.
func (t *CelebrationTrigger) Acknowledge() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := t.active != nil
	t.active = nil
	return wasActive
}

// Active returns the celebration currently shown, if any.
func (t *CelebrationTrigger) Active() (Celebration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return Celebration{}, false
	}
	return *t.active, true
}
