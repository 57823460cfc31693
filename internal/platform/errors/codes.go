// Package errors provides structured, code-bearing errors for sparkcards domains.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Deck lifecycle errors
	CodeDeckIDRequired         Code = "DECK_ID_REQUIRED"
	CodeDeckNotFound           Code = "DECK_NOT_FOUND"
	CodeCardDeletionFailed     Code = "CARD_DELETION_FAILED"
	CodeDeckDeletionFailed     Code = "DECK_DELETION_FAILED"
	CodeDeckDeletionUnexpected Code = "DECK_DELETION_UNEXPECTED"
	CodeDeletionInProgress     Code = "DECK_DELETION_IN_PROGRESS"

	// Session selection errors
	CodeNoPendingAction Code = "SESSION_NO_PENDING_ACTION"

	// Query errors
	CodeInvalidFilter Code = "INVALID_FILTER"

	// Storage errors
	CodeStoreNotConfigured Code = "STORE_NOT_CONFIGURED"
)

// Partial reports whether the failure left upstream state changed while the
// local view was not reconciled.
func (c Code) Partial() bool {
	return c == CodeDeckDeletionFailed
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeDeckIDRequired, CodeInvalidFilter:
		return http.StatusBadRequest
	case CodeDeckNotFound:
		return http.StatusNotFound
	case CodeDeletionInProgress, CodeNoPendingAction:
		return http.StatusConflict
	case CodeCardDeletionFailed, CodeDeckDeletionFailed:
		return http.StatusBadGateway
	case CodeStoreNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
