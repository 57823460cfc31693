// Package rewards records sparks granted for deck completions.
package rewards

import (
	"context"
	"log"
	"strings"
	"time"

	apperrors "github.com/sparkcards/sparkcards/internal/platform/errors"
	"github.com/sparkcards/sparkcards/internal/platform/id"
	"github.com/sparkcards/sparkcards/internal/services/study/domain"
	"github.com/sparkcards/sparkcards/internal/services/study/storage"
)

// ErrStoreNotConfigured indicates the ledger has no reward store.
var ErrStoreNotConfigured = apperrors.New(apperrors.CodeStoreNotConfigured, "reward store is not configured")

const (
	// DefaultRecentLimit is the page size used when none is requested.
	DefaultRecentLimit = 20
	// MaxRecentLimit caps a single reward listing.
	MaxRecentLimit = 200
)

// Ledger appends reward events for completed decks.
type Ledger struct {
	store  storage.RewardStore
	sparks int
	clock  func() time.Time
	newID  func() (string, error)
	logf   func(string, ...any)
}

var _ domain.RewardLedger = (*Ledger)(nil)

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides the event timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithIDGenerator overrides reward event id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(l *Ledger) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// WithLogf overrides where persistence failures are reported.
func WithLogf(logf func(string, ...any)) Option {
	return func(l *Ledger) {
		if logf != nil {
			l.logf = logf
		}
	}
}

// NewLedger builds a ledger granting sparks per completion.
func NewLedger(store storage.RewardStore, sparks int, opts ...Option) *Ledger {
	if sparks <= 0 {
		sparks = domain.DefaultSparksPerDeck
	}
	l := &Ledger{
		store:  store,
		sparks: sparks,
		clock:  time.Now,
		newID:  id.NewID,
		logf:   log.Printf,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CompleteDeck records one completion. Failures are logged, never returned.
func (l *Ledger) CompleteDeck(ctx context.Context, deckID string) {
	if err := l.Record(ctx, deckID); err != nil {
		l.logf("record reward for deck %s: %v", strings.TrimSpace(deckID), err)
	}
}

// Record appends one reward event and returns the persistence error, if any.
func (l *Ledger) Record(ctx context.Context, deckID string) error {
	if l == nil || l.store == nil {
		return ErrStoreNotConfigured
	}
	deckID = strings.TrimSpace(deckID)
	if deckID == "" {
		return domain.ErrDeckIDRequired
	}
	eventID, err := l.newID()
	if err != nil {
		return err
	}
	return l.store.PutRewardEvent(ctx, storage.RewardEvent{
		ID:        eventID,
		DeckID:    deckID,
		Sparks:    l.sparks,
		CreatedAt: l.clock().UTC(),
	})
}

// Balance returns the total sparks earned.
func (l *Ledger) Balance(ctx context.Context) (int, error) {
	if l == nil || l.store == nil {
		return 0, ErrStoreNotConfigured
	}
	return l.store.SparksBalance(ctx)
}

// Recent returns the newest reward events matching filter, at most limit.
// The filter uses AIP-160 syntax over deck_id, sparks and created_at.
func (l *Ledger) Recent(ctx context.Context, filter string, limit int) ([]storage.RewardEvent, error) {
	if l == nil || l.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	query, err := Query(filter, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidFilter, "invalid reward filter", err)
	}
	return l.store.ListRewardEvents(ctx, query)
}
