package view

import "net/url"

// Form targets used by the grid page.
const (
	ConfirmPath        = "/session/confirm"
	CancelPath         = "/session/cancel"
	CelebrationAckPath = "/celebration/ack"
)

// TogglePath returns the toggle request target for deckID.
func TogglePath(deckID string) string {
	return "/session/toggle/" + url.PathEscape(deckID)
}

// DeletePath returns the form delete target for deckID.
func DeletePath(deckID string) string {
	return "/decks/" + url.PathEscape(deckID) + "/delete"
}
