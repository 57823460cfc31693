package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sparkcards/sparkcards/internal/services/study/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestListDecksDerivesCountAndTopCard(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	description := "Irregular verbs"

	putDeck(t, store, storage.DeckRecord{ID: "deck-verbs", Title: "Verbs", Description: &description, CreatedAt: base})
	putDeck(t, store, storage.DeckRecord{ID: "deck-empty", Title: "Empty", CreatedAt: base.Add(time.Minute)})
	for i, front := range []string{"to go", "to be", "to have"} {
		card := storage.CardRecord{
			ID:           "card-" + front,
			DeckID:       "deck-verbs",
			FrontContent: front,
			Position:     2 - i,
			CreatedAt:    base,
		}
		if err := store.PutCard(ctx, card); err != nil {
			t.Fatalf("put card %s: %v", front, err)
		}
	}

	decks, err := store.ListDecks(ctx)
	if err != nil {
		t.Fatalf("list decks: %v", err)
	}
	if len(decks) != 2 {
		t.Fatalf("decks = %d, want 2", len(decks))
	}
	verbs := decks[0]
	if verbs.ID != "deck-verbs" || verbs.CardCount != 3 {
		t.Fatalf("first deck = %+v, want deck-verbs with 3 cards", verbs)
	}
	if verbs.TopCardFront == nil || *verbs.TopCardFront != "to have" {
		t.Fatalf("top card = %v, want to have", verbs.TopCardFront)
	}
	if verbs.Description == nil || *verbs.Description != description {
		t.Fatalf("description = %v, want %q", verbs.Description, description)
	}
	empty := decks[1]
	if empty.CardCount != 0 || empty.TopCardFront != nil || empty.Description != nil {
		t.Fatalf("empty deck = %+v, want no cards, no top card, no description", empty)
	}
}

func TestDeleteDeckRefusedWhileCardsRemain(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	putDeck(t, store, storage.DeckRecord{ID: "deck-1", Title: "Nouns"})
	if err := store.PutCard(ctx, storage.CardRecord{ID: "card-1", DeckID: "deck-1", FrontContent: "house"}); err != nil {
		t.Fatalf("put card: %v", err)
	}

	err := store.DeleteDeck(ctx, "deck-1")
	if !errors.Is(err, storage.ErrDeckHasCards) {
		t.Fatalf("delete deck err = %v, want %v", err, storage.ErrDeckHasCards)
	}

	if err := store.DeleteCardsOfDeck(ctx, "deck-1"); err != nil {
		t.Fatalf("delete cards: %v", err)
	}
	if err := store.DeleteDeck(ctx, "deck-1"); err != nil {
		t.Fatalf("delete deck after cards: %v", err)
	}
	decks, err := store.ListDecks(ctx)
	if err != nil {
		t.Fatalf("list decks: %v", err)
	}
	if len(decks) != 0 {
		t.Fatalf("decks = %+v, want none", decks)
	}
}

func TestDeleteMissingRowsSucceeds(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.DeleteCardsOfDeck(ctx, "ghost"); err != nil {
		t.Fatalf("delete cards of missing deck: %v", err)
	}
	if err := store.DeleteDeck(ctx, "ghost"); err != nil {
		t.Fatalf("delete missing deck: %v", err)
	}
}

func TestPutCardRequiresExistingDeck(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	err := store.PutCard(context.Background(), storage.CardRecord{ID: "card-1", DeckID: "ghost", FrontContent: "hola"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("put card err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestPutDeckUpdatesExisting(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	putDeck(t, store, storage.DeckRecord{ID: "deck-1", Title: "Old"})
	putDeck(t, store, storage.DeckRecord{ID: "deck-1", Title: "New"})

	decks, err := store.ListDecks(context.Background())
	if err != nil {
		t.Fatalf("list decks: %v", err)
	}
	if len(decks) != 1 || decks[0].Title != "New" {
		t.Fatalf("decks = %+v, want one deck titled New", decks)
	}
}

func TestRewardEventsAndBalance(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

	balance, err := store.SparksBalance(ctx)
	if err != nil {
		t.Fatalf("empty balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("empty balance = %d, want 0", balance)
	}

	for i, deckID := range []string{"deck-1", "deck-2", "deck-1"} {
		event := storage.RewardEvent{
			ID:        "reward-" + string(rune('a'+i)),
			DeckID:    deckID,
			Sparks:    50,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.PutRewardEvent(ctx, event); err != nil {
			t.Fatalf("put reward event %d: %v", i, err)
		}
	}

	balance, err = store.SparksBalance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 150 {
		t.Fatalf("balance = %d, want 150", balance)
	}
	events, err := store.ListRewardEvents(ctx, storage.RewardQuery{Limit: 2})
	if err != nil {
		t.Fatalf("list reward events: %v", err)
	}
	if len(events) != 2 || events[0].ID != "reward-c" || events[1].ID != "reward-b" {
		t.Fatalf("events = %+v, want reward-c then reward-b", events)
	}
	if !events[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("created_at = %v, want %v", events[0].CreatedAt, base.Add(2*time.Minute))
	}

	filtered, err := store.ListRewardEvents(ctx, storage.RewardQuery{
		Condition: "(deck_id = ? AND created_at < ?)",
		Params:    []any{"deck-1", base.Add(2 * time.Minute).UnixMilli()},
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("list filtered reward events: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "reward-a" {
		t.Fatalf("filtered = %+v, want only reward-a", filtered)
	}
}

func TestPutRewardEventValidates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	tests := []storage.RewardEvent{
		{DeckID: "deck-1", Sparks: 50},
		{ID: "reward-1", Sparks: 50},
		{ID: "reward-1", DeckID: "deck-1"},
	}
	for _, event := range tests {
		if err := store.PutRewardEvent(context.Background(), event); err == nil {
			t.Fatalf("expected validation error for %+v", event)
		}
	}
}

func TestCancelledContextRejected(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.DeleteCardsOfDeck(ctx, "deck-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNilStoreNotConfigured(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.DeleteDeck(context.Background(), "deck-1"); err == nil {
		t.Fatal("expected not configured error")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}

func putDeck(t *testing.T, store *Store, deck storage.DeckRecord) {
	t.Helper()
	if err := store.PutDeck(context.Background(), deck); err != nil {
		t.Fatalf("put deck %s: %v", deck.ID, err)
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "study.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestSelectedDecksRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	ids, err := store.ListSelectedDecks(ctx)
	if err != nil {
		t.Fatalf("list empty selection: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("empty selection = %v", ids)
	}

	if err := store.ReplaceSelectedDecks(ctx, []string{"deck-2", " ", "deck-1", "deck-2"}); err != nil {
		t.Fatalf("replace selection: %v", err)
	}
	ids, err = store.ListSelectedDecks(ctx)
	if err != nil {
		t.Fatalf("list selection: %v", err)
	}
	if strings.Join(ids, ",") != "deck-1,deck-2" {
		t.Fatalf("selection = %v, want deck-1,deck-2", ids)
	}

	if err := store.ReplaceSelectedDecks(ctx, nil); err != nil {
		t.Fatalf("clear selection: %v", err)
	}
	ids, err = store.ListSelectedDecks(ctx)
	if err != nil {
		t.Fatalf("list cleared selection: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("cleared selection = %v", ids)
	}
}
