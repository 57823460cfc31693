package domain

import (
	apperrors "github.com/sparkcards/sparkcards/internal/platform/errors"
)

var (
	// ErrDeckIDRequired indicates a blank deck id was supplied.
	ErrDeckIDRequired = apperrors.New(apperrors.CodeDeckIDRequired, "deck id is required")
	// ErrDeckNotFound indicates the deck is not in the local deck cache.
	ErrDeckNotFound = apperrors.New(apperrors.CodeDeckNotFound, "deck not found")
	// ErrNoPendingAction indicates confirm or cancel was called with nothing staged.
	ErrNoPendingAction = apperrors.New(apperrors.CodeNoPendingAction, "no pending selection change")
	// ErrRepositoryNotConfigured indicates the cascade has no deck repository.
	ErrRepositoryNotConfigured = apperrors.New(apperrors.CodeStoreNotConfigured, "deck repository is not configured")
)

func deckNotFound(deckID string) error {
	return apperrors.WithMetadata(apperrors.CodeDeckNotFound, "deck not found", map[string]string{"DeckID": deckID})
}
