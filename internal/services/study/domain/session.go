package domain

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

// SessionConfig wires a Session to its collaborators.
type SessionConfig struct {
	// Decks is the caller's ordered deck list at mount.
	Decks []Deck
	// Selected is the caller's selection at mount. Ids missing from Decks are dropped.
	Selected SelectedSet

	Repository DeckRepository
	Ledger     RewardLedger
	Notifier   Notifier
	Tracer     trace.Tracer

	// OnSelectedDecksChange receives the full selection after each change.
	OnSelectedDecksChange func(SelectedSet)
	// SparksPerDeck overrides DefaultSparksPerDeck when positive.
	SparksPerDeck int
}

// Session is today's study session: the local deck cache, the selection, the
// confirmation gate, deck deletion and deck completion.
//
// Every id in the selection is present in the deck cache. Callbacks and
// notices run on the calling goroutine after the session lock is released,
// one goroutine at a time and in emission order. Callbacks may read the
// session but must not mutate it.
type Session struct {
	mu sync.Mutex
	// deliverMu orders outbox delivery across goroutines.
	deliverMu sync.Mutex
	cache     *DeckCache
	selection *SelectionStore
	gate      *Gate
	outbox    outbox

	cascade     *DeletionCascade
	celebration *CelebrationTrigger
	notifier    Notifier
	onChange    func(SelectedSet)
}

// NewSession builds a session from the caller's decks and selection.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		cache:       NewDeckCache(cfg.Decks),
		cascade:     NewDeletionCascade(cfg.Repository, cfg.Tracer),
		celebration: NewCelebrationTrigger(cfg.Ledger, cfg.SparksPerDeck),
		notifier:    cfg.Notifier,
		onChange:    cfg.OnSelectedDecksChange,
	}
	if s.notifier == nil {
		s.notifier = discardNotifier{}
	}

	initial := SelectedSet{}
	for id := range cfg.Selected {
		if s.cache.Has(id) {
			initial[id] = struct{}{}
		}
	}
	s.selection = NewSelectionStore(initial, s.outbox.selectionChanged)
	s.gate = NewGate(s.selection, NotifierFunc(s.outbox.notice))
	return s
}

// Decks returns the cached decks in upstream order.
func (s *Session) Decks() []Deck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.List()
}

// Deck returns one cached deck.
func (s *Session) Deck(deckID string) (Deck, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Get(strings.TrimSpace(deckID))
}

// Selected returns a copy of today's selection.
func (s *Session) Selected() SelectedSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Snapshot()
}

// IsSelected reports whether deckID is in today's selection.
func (s *Session) IsSelected(deckID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Has(strings.TrimSpace(deckID))
}

// SelectedCount returns the number of decks selected for today.
func (s *Session) SelectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Len()
}

// Pending returns the staged selection change, if any.
func (s *Session) Pending() (PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.gate.State()
	return state.Pending, state.Phase == GatePhasePending
}

// RequestToggle stages adding or removing a cached deck.
func (s *Session) RequestToggle(deckID string) (PendingAction, error) {
	deckID = strings.TrimSpace(deckID)
	if deckID == "" {
		return PendingAction{}, ErrDeckIDRequired
	}
	s.mu.Lock()
	if !s.cache.Has(deckID) {
		s.mu.Unlock()
		return PendingAction{}, deckNotFound(deckID)
	}
	action, err := s.gate.RequestToggle(deckID)
	s.mu.Unlock()
	return action, err
}

// Confirm applies the staged selection change.
func (s *Session) Confirm() (PendingAction, error) {
	s.mu.Lock()
	action, err := s.gate.Confirm()
	s.mu.Unlock()
	s.flush()
	return action, err
}

// Cancel drops the staged selection change.
func (s *Session) Cancel() (PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Cancel()
}

// DeletionInFlight reports whether deckID is being deleted.
func (s *Session) DeletionInFlight(deckID string) bool {
	return s.cascade.InFlight(strings.TrimSpace(deckID))
}

// DeleteDeck runs the deletion cascade for a cached deck.
//
// On success the deck leaves the cache and the selection together. On any
// failure the local view is unchanged and an error notice is emitted.
func (s *Session) DeleteDeck(ctx context.Context, deckID string) error {
	deckID = strings.TrimSpace(deckID)
	err := s.deleteDeck(ctx, deckID)

	s.mu.Lock()
	s.outbox.notice(noticeForDeletion(deckID, err))
	s.mu.Unlock()
	s.flush()
	return err
}

func (s *Session) deleteDeck(ctx context.Context, deckID string) error {
	if deckID == "" {
		return ErrDeckIDRequired
	}
	s.mu.Lock()
	known := s.cache.Has(deckID)
	s.mu.Unlock()
	if !known {
		return deckNotFound(deckID)
	}
	return s.cascade.Run(ctx, deckID, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cache.Remove(deckID)
		s.selection.Remove(deckID)
		s.gate.Discard(deckID)
	})
}

// SyncDecks refreshes the cache from a new upstream deck list.
//
// Selected decks that vanished upstream leave the selection, and a staged
// change targeting one of them is dropped.
func (s *Session) SyncDecks(decks []Deck) {
	s.mu.Lock()
	s.cache.Replace(decks)
	for _, id := range s.selection.Snapshot().IDs() {
		if !s.cache.Has(id) {
			s.selection.Remove(id)
		}
	}
	if state := s.gate.State(); state.Phase == GatePhasePending && !s.cache.Has(state.Pending.DeckID) {
		s.gate.Discard(state.Pending.DeckID)
	}
	s.mu.Unlock()
	s.flush()
}

// CompleteDeck records a deck completion and raises the celebration. Decks
// missing from the cache are rejected before the ledger is touched.
func (s *Session) CompleteDeck(ctx context.Context, deckID string) (Celebration, error) {
	deckID = strings.TrimSpace(deckID)
	if deckID == "" {
		return Celebration{}, ErrDeckIDRequired
	}
	s.mu.Lock()
	known := s.cache.Has(deckID)
	s.mu.Unlock()
	if !known {
		return Celebration{}, deckNotFound(deckID)
	}

	celebration, err := s.celebration.OnDeckCompleted(ctx, deckID)
	if err != nil {
		return Celebration{}, err
	}
	s.mu.Lock()
	s.outbox.notice(Notice{Level: NoticeSuccess, Topic: TopicDeckCompleted, DeckID: celebration.DeckID, Sparks: celebration.Sparks})
	s.mu.Unlock()
	s.flush()
	return celebration, nil
}

// Celebration returns the active celebration, if any.
func (s *Session) Celebration() (Celebration, bool) {
	return s.celebration.Active()
}

// AcknowledgeCelebration clears the active celebration.
func (s *Session) AcknowledgeCelebration() bool {
	return s.celebration.Acknowledge()
}

// flush delivers buffered selection changes and notices in emission order.
// Draining and dispatch share deliverMu so a later snapshot never reaches
// onChange before an earlier one.
func (s *Session) flush() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	entries := s.outbox.drain()
	s.mu.Unlock()

	for _, entry := range entries {
		if entry.change != nil {
			if s.onChange != nil {
				s.onChange(entry.change)
			}
			continue
		}
		s.notifier.Notify(entry.notice)
	}
}

type outboxEntry struct {
	change SelectedSet
	notice Notice
}

// outbox buffers emissions made under the session lock.
type outbox struct {
	entries []outboxEntry
}

func (o *outbox) selectionChanged(set SelectedSet) {
	o.entries = append(o.entries, outboxEntry{change: set})
}

func (o *outbox) notice(n Notice) {
	o.entries = append(o.entries, outboxEntry{notice: n})
}

func (o *outbox) drain() []outboxEntry {
	entries := o.entries
	o.entries = nil
	return entries
}
