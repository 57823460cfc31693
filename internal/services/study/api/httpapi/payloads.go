package httpapi

import (
	"time"

	"github.com/sparkcards/sparkcards/internal/services/study/render"
)

type deckPayload struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	CardCount     int     `json:"card_count"`
	CardCountText string  `json:"card_count_text"`
	TopCardFront  *string `json:"top_card_front"`
	Selected      bool    `json:"selected"`
	Deleting      bool    `json:"deleting"`
}

type pendingPayload struct {
	DeckID string        `json:"deck_id"`
	Kind   string        `json:"kind"`
	Dialog render.Dialog `json:"dialog"`
}

type celebrationPayload struct {
	DeckID string `json:"deck_id"`
	Sparks int    `json:"sparks"`
	Text   string `json:"text"`
}

type sessionPayload struct {
	Selected    []string            `json:"selected"`
	Summary     string              `json:"summary"`
	Pending     *pendingPayload     `json:"pending"`
	Celebration *celebrationPayload `json:"celebration"`
}

type decksPayload struct {
	Decks []deckPayload `json:"decks"`
}

type actionPayload struct {
	DeckID  string         `json:"deck_id,omitempty"`
	Kind    string         `json:"kind,omitempty"`
	Session sessionPayload `json:"session"`
}

type notificationPayload struct {
	Seq uint64    `json:"seq"`
	At  time.Time `json:"at"`
	render.Toast
}

type notificationsPayload struct {
	LastSeq       uint64                `json:"last_seq"`
	Notifications []notificationPayload `json:"notifications"`
}

type rewardEventPayload struct {
	ID        string    `json:"id"`
	DeckID    string    `json:"deck_id"`
	Sparks    int       `json:"sparks"`
	CreatedAt time.Time `json:"created_at"`
}

type rewardsPayload struct {
	Balance     int                  `json:"balance"`
	BalanceText string               `json:"balance_text"`
	Events      []rewardEventPayload `json:"events"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
