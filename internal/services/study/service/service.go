// Package service composes the study session with its stores, the reward
// ledger and the toast feed.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	apperrors "github.com/sparkcards/sparkcards/internal/platform/errors"
	"github.com/sparkcards/sparkcards/internal/services/study/domain"
	"github.com/sparkcards/sparkcards/internal/services/study/rewards"
	"github.com/sparkcards/sparkcards/internal/services/study/storage"
	"go.opentelemetry.io/otel/trace"
)

// Config wires a Study to its collaborators.
type Config struct {
	Decks storage.DeckStore
	// Selections persists today's selection. Nil keeps it in memory only.
	Selections storage.SelectionStore
	Ledger     *rewards.Ledger
	Feed       *Feed
	Tracer     trace.Tracer

	SparksPerDeck int
	Logf          func(string, ...any)
}

// Study is the process-wide study session.
type Study struct {
	session    *domain.Session
	decks      storage.DeckStore
	selections storage.SelectionStore
	ledger     *rewards.Ledger
	feed       *Feed
	logf       func(string, ...any)
}

// RewardSummary is the sparks balance with the matching recent events.
type RewardSummary struct {
	Balance int
	Events  []storage.RewardEvent
}

// New loads decks and the stored selection and builds the session.
func New(ctx context.Context, cfg Config) (*Study, error) {
	if cfg.Decks == nil {
		return nil, errors.New("deck store is required")
	}
	s := &Study{
		decks:      cfg.Decks,
		selections: cfg.Selections,
		ledger:     cfg.Ledger,
		feed:       cfg.Feed,
		logf:       cfg.Logf,
	}
	if s.feed == nil {
		s.feed = NewFeed(DefaultFeedCapacity)
	}
	if s.logf == nil {
		s.logf = log.Printf
	}

	decks, err := s.loadDecks(ctx)
	if err != nil {
		return nil, err
	}
	stored := domain.SelectedSet{}
	if s.selections != nil {
		ids, err := s.selections.ListSelectedDecks(ctx)
		if err != nil {
			return nil, fmt.Errorf("load selection: %w", err)
		}
		stored = domain.NewSelectedSet(ids...)
	}

	var ledger domain.RewardLedger
	if s.ledger != nil {
		ledger = s.ledger
	}
	s.session = domain.NewSession(domain.SessionConfig{
		Decks:                 decks,
		Selected:              stored,
		Repository:            cfg.Decks,
		Ledger:                ledger,
		Notifier:              domain.NotifierFunc(s.notify),
		Tracer:                cfg.Tracer,
		OnSelectedDecksChange: s.persistSelection,
		SparksPerDeck:         cfg.SparksPerDeck,
	})
	if s.session.SelectedCount() != len(stored) {
		s.persistSelection(s.session.Selected())
	}
	return s, nil
}

// Session returns the underlying session.
func (s *Study) Session() *domain.Session {
	return s.session
}

// Feed returns the toast feed.
func (s *Study) Feed() *Feed {
	return s.feed
}

// Refresh re-reads the deck list and syncs the session cache.
func (s *Study) Refresh(ctx context.Context) error {
	decks, err := s.loadDecks(ctx)
	if err != nil {
		return err
	}
	s.session.SyncDecks(decks)
	return nil
}

// DeleteDeck runs the deletion cascade. After a partial failure the deck
// list is re-read so the stale card count is corrected.
func (s *Study) DeleteDeck(ctx context.Context, deckID string) error {
	err := s.session.DeleteDeck(ctx, deckID)
	if err != nil && apperrors.CodeOf(err).Partial() {
		if refreshErr := s.Refresh(ctx); refreshErr != nil {
			s.logf("refresh decks after partial deletion of %s: %v", strings.TrimSpace(deckID), refreshErr)
		}
	}
	return err
}

// CompleteDeck records a completion and raises the celebration.
func (s *Study) CompleteDeck(ctx context.Context, deckID string) (domain.Celebration, error) {
	return s.session.CompleteDeck(ctx, deckID)
}

// Rewards returns the sparks balance and recent events matching filter.
func (s *Study) Rewards(ctx context.Context, filter string, limit int) (RewardSummary, error) {
	if s.ledger == nil {
		return RewardSummary{}, rewards.ErrStoreNotConfigured
	}
	balance, err := s.ledger.Balance(ctx)
	if err != nil {
		return RewardSummary{}, fmt.Errorf("sparks balance: %w", err)
	}
	events, err := s.ledger.Recent(ctx, filter, limit)
	if err != nil {
		return RewardSummary{}, err
	}
	return RewardSummary{Balance: balance, Events: events}, nil
}

func (s *Study) loadDecks(ctx context.Context) ([]domain.Deck, error) {
	summaries, err := s.decks.ListDecks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	return toDomainDecks(summaries), nil
}

func (s *Study) notify(n domain.Notice) {
	if n.Level == domain.NoticeError {
		s.logf("study notice %s deck=%s code=%s", n.Topic, n.DeckID, n.Code)
	}
	s.feed.Notify(n)
}

// persistSelection runs on the goroutine that changed the selection. The
// session delivers changes one at a time in order, so the last write wins.
func (s *Study) persistSelection(set domain.SelectedSet) {
	if s.selections == nil {
		return
	}
	if err := s.selections.ReplaceSelectedDecks(context.Background(), set.IDs()); err != nil {
		s.logf("persist selection: %v", err)
	}
}

func toDomainDecks(summaries []storage.DeckSummary) []domain.Deck {
	decks := make([]domain.Deck, 0, len(summaries))
	for _, summary := range summaries {
		deck := domain.Deck{
			ID:          summary.ID,
			Title:       summary.Title,
			Description: summary.Description,
			CardCount:   summary.CardCount,
		}
		if summary.TopCardFront != nil {
			deck.TopCard = &domain.TopCard{FrontContent: *summary.TopCardFront}
		}
		decks = append(decks, deck)
	}
	return decks
}
