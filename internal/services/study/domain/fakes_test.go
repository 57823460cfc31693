package domain

import (
	"context"
	"sync"
)

type fakeRepository struct {
	mu           sync.Mutex
	calls        []string
	cardsErr     error
	deckErr      error
	panicOn      string
	cardsGate    chan struct{}
	cardsEntered chan struct{}
}

func (r *fakeRepository) DeleteCardsOfDeck(ctx context.Context, deckID string) error {
	r.record("cards:" + deckID)
	if r.cardsEntered != nil {
		r.cardsEntered <- struct{}{}
	}
	if r.cardsGate != nil {
		<-r.cardsGate
	}
	if r.panicOn == "cards" {
		panic("connection reset")
	}
	return r.cardsErr
}

func (r *fakeRepository) DeleteDeck(ctx context.Context, deckID string) error {
	r.record("deck:" + deckID)
	if r.panicOn == "deck" {
		panic("connection reset")
	}
	return r.deckErr
}

func (r *fakeRepository) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *fakeRepository) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Notify(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) Notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.notices...)
}

type recordingLedger struct {
	mu        sync.Mutex
	completed []string
}

func (l *recordingLedger) CompleteDeck(_ context.Context, deckID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed = append(l.completed, deckID)
}

func (l *recordingLedger) Completed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.completed...)
}

type changeRecorder struct {
	mu      sync.Mutex
	changes []SelectedSet
}

func (c *changeRecorder) record(set SelectedSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, set)
}

func (c *changeRecorder) Changes() []SelectedSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SelectedSet(nil), c.changes...)
}

func testDecks(ids ...string) []Deck {
	decks := make([]Deck, 0, len(ids))
	for i, id := range ids {
		decks = append(decks, Deck{ID: id, Title: "Deck " + id, CardCount: i + 1})
	}
	return decks
}
