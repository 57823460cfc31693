// Package studyfakes provides in-memory study stores for tests.
package studyfakes

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sparkcards/sparkcards/internal/services/study/storage"
)

// Store is an in-memory storage.Store with per-call failure injection.
//
// It applies the same rules as the SQL stores: deleting a deck that still
// has cards fails with storage.ErrDeckHasCards, and deleting missing rows
// succeeds. RewardQuery conditions are ignored.
type Store struct {
	mu       sync.Mutex
	decks    map[string]storage.DeckRecord
	cards    map[string]storage.CardRecord
	rewards  []storage.RewardEvent
	selected []string

	// DeleteCardsErr and DeleteDeckErr fail the matching call when set.
	DeleteCardsErr error
	DeleteDeckErr  error
	ListDecksErr   error
	PutRewardErr   error
	SelectionErr   error
	// BeforeDeleteDeck runs before DeleteDeck inspects state.
	BeforeDeleteDeck func(deckID string)

	Calls []string
}

var _ storage.Store = (*Store)(nil)

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		decks: make(map[string]storage.DeckRecord),
		cards: make(map[string]storage.CardRecord),
	}
}

// SeedDeck stores a deck with cardCount generated cards.
func (s *Store) SeedDeck(deckID, title string, cardCount int, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decks[deckID] = storage.DeckRecord{ID: deckID, Title: title, CreatedAt: createdAt, UpdatedAt: createdAt}
	for i := 0; i < cardCount; i++ {
		cardID := deckID + "-card-" + string(rune('a'+i))
		s.cards[cardID] = storage.CardRecord{
			ID:           cardID,
			DeckID:       deckID,
			FrontContent: title + " front " + string(rune('a'+i)),
			Position:     i,
			CreatedAt:    createdAt,
		}
	}
}

func (s *Store) PutDeck(_ context.Context, deck storage.DeckRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decks[deck.ID] = deck
	return nil
}

func (s *Store) PutCard(_ context.Context, card storage.CardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.decks[card.DeckID]; !ok {
		return storage.ErrNotFound
	}
	s.cards[card.ID] = card
	return nil
}

func (s *Store) ListDecks(context.Context) ([]storage.DeckSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, "list_decks")
	if s.ListDecksErr != nil {
		return nil, s.ListDecksErr
	}
	out := make([]storage.DeckSummary, 0, len(s.decks))
	for _, deck := range s.decks {
		summary := storage.DeckSummary{
			ID:          deck.ID,
			Title:       deck.Title,
			Description: deck.Description,
			CreatedAt:   deck.CreatedAt,
		}
		var top *storage.CardRecord
		for _, card := range s.cards {
			if card.DeckID != deck.ID {
				continue
			}
			summary.CardCount++
			if top == nil || card.Position < top.Position {
				c := card
				top = &c
			}
		}
		if top != nil {
			front := top.FrontContent
			summary.TopCardFront = &front
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteCardsOfDeck(_ context.Context, deckID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, "delete_cards:"+deckID)
	if s.DeleteCardsErr != nil {
		return s.DeleteCardsErr
	}
	for id, card := range s.cards {
		if card.DeckID == deckID {
			delete(s.cards, id)
		}
	}
	return nil
}

func (s *Store) DeleteDeck(_ context.Context, deckID string) error {
	if s.BeforeDeleteDeck != nil {
		s.BeforeDeleteDeck(deckID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, "delete_deck:"+deckID)
	if s.DeleteDeckErr != nil {
		return s.DeleteDeckErr
	}
	for _, card := range s.cards {
		if card.DeckID == deckID {
			return storage.ErrDeckHasCards
		}
	}
	delete(s.decks, deckID)
	return nil
}

// CardCount returns the stored card count of deckID.
func (s *Store) CardCount(deckID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, card := range s.cards {
		if card.DeckID == deckID {
			count++
		}
	}
	return count
}

// HasDeck reports whether deckID is stored.
func (s *Store) HasDeck(deckID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.decks[deckID]
	return ok
}

func (s *Store) PutRewardEvent(_ context.Context, event storage.RewardEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutRewardErr != nil {
		return s.PutRewardErr
	}
	s.rewards = append(s.rewards, event)
	return nil
}

func (s *Store) ListRewardEvents(_ context.Context, query storage.RewardQuery) ([]storage.RewardEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.RewardEvent, 0, len(s.rewards))
	for i := len(s.rewards) - 1; i >= 0 && len(out) < query.Limit; i-- {
		out = append(out, s.rewards[i])
	}
	return out, nil
}

func (s *Store) SparksBalance(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, event := range s.rewards {
		total += event.Sparks
	}
	return total, nil
}

func (s *Store) ListSelectedDecks(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SelectionErr != nil {
		return nil, s.SelectionErr
	}
	return append([]string(nil), s.selected...), nil
}

func (s *Store) ReplaceSelectedDecks(_ context.Context, deckIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SelectionErr != nil {
		return s.SelectionErr
	}
	s.selected = s.selected[:0]
	for _, deckID := range deckIDs {
		if deckID = strings.TrimSpace(deckID); deckID != "" {
			s.selected = append(s.selected, deckID)
		}
	}
	sort.Strings(s.selected)
	return nil
}

// Selected returns the persisted selection.
func (s *Store) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selected...)
}

func (s *Store) Close() error { return nil }
