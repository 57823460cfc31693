package domain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	apperrors "github.com/sparkcards/sparkcards/internal/platform/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sparkcards/sparkcards/internal/services/study/domain"

// DeckRepository is the backing-store boundary consumed by deck deletion.
//
// Both calls succeed or fail independently. Deleting a deck that still owns
// cards is expected to fail upstream, which is why cards go first.
type DeckRepository interface {
	DeleteCardsOfDeck(ctx context.Context, deckID string) error
	DeleteDeck(ctx context.Context, deckID string) error
}

// DeletionCascade deletes a deck's cards and then the deck itself.
//
// Steps never overlap: the deck delete starts only after the card delete has
// returned successfully. A second cascade for a deck already in flight is
// rejected; cascades for different decks run independently.
type DeletionCascade struct {
	repo   DeckRepository
	tracer trace.Tracer

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewDeletionCascade builds a cascade over repo. A nil tracer uses the global
// OpenTelemetry provider.
func NewDeletionCascade(repo DeckRepository, tracer trace.Tracer) *DeletionCascade {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &DeletionCascade{
		repo:     repo,
		tracer:   tracer,
		inFlight: make(map[string]struct{}),
	}
}

// InFlight reports whether a cascade for deckID is running.
func (c *DeletionCascade) InFlight(deckID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[deckID]
	return ok
}

// Run deletes deckID upstream and calls reconcile once both steps succeed.
//
// Failures carry CodeCardDeletionFailed (nothing changed upstream),
// CodeDeckDeletionFailed (cards are gone upstream, the deck record is not) or
// CodeDeckDeletionUnexpected. reconcile is never called on failure.
func (c *DeletionCascade) Run(ctx context.Context, deckID string, reconcile func()) (err error) {
	deckID = strings.TrimSpace(deckID)
	if deckID == "" {
		return ErrDeckIDRequired
	}
	if c == nil || c.repo == nil {
		return ErrRepositoryNotConfigured
	}
	if !c.acquire(deckID) {
		return apperrors.WithMetadata(apperrors.CodeDeletionInProgress, "deck deletion already in progress", map[string]string{"DeckID": deckID})
	}
	defer c.release(deckID)

	ctx, span := c.tracer.Start(ctx, "study.deck.delete", trace.WithAttributes(attribute.String("deck.id", deckID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
		}
		span.End()
	}()
	defer func() {
		if recovered := recover(); recovered != nil {
			err = apperrors.WrapWithMetadata(
				apperrors.CodeDeckDeletionUnexpected,
				"unexpected failure deleting deck",
				map[string]string{"DeckID": deckID},
				fmt.Errorf("panic: %v", recovered),
			)
		}
	}()

	if stepErr := c.step(ctx, "study.deck.delete_cards", deckID, c.repo.DeleteCardsOfDeck); stepErr != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeCardDeletionFailed, "delete cards of deck", map[string]string{"DeckID": deckID}, stepErr)
	}
	if stepErr := c.step(ctx, "study.deck.delete_record", deckID, c.repo.DeleteDeck); stepErr != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeDeckDeletionFailed, "delete deck after its cards were deleted", map[string]string{"DeckID": deckID}, stepErr)
	}
	if reconcile != nil {
		reconcile()
	}
	return nil
}

func (c *DeletionCascade) step(ctx context.Context, name, deckID string, call func(context.Context, string) error) error {
	ctx, span := c.tracer.Start(ctx, name)
	defer span.End()
	if err := call(ctx, deckID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *DeletionCascade) acquire(deckID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inFlight[deckID]; ok {
		return false
	}
	c.inFlight[deckID] = struct{}{}
	return true
}

func (c *DeletionCascade) release(deckID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, deckID)
}
