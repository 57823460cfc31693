package httpapi

import (
	"net/http"
)

// Route patterns served by the study HTTP API.
const (
	PathIndex          = "/{$}"
	PathUp             = "/up"
	PathDecks          = "/decks"
	PathDeck           = "/decks/{deckID}"
	PathDeckDelete     = "/decks/{deckID}/delete"
	PathDeckComplete   = "/decks/{deckID}/complete"
	PathSession        = "/session"
	PathSessionToggle  = "/session/toggle/{deckID}"
	PathSessionConfirm = "/session/confirm"
	PathSessionCancel  = "/session/cancel"
	PathCelebrationAck = "/celebration/ack"
	PathNotifications  = "/notifications"
	PathNotifyStream   = "/notifications/stream"
	PathRewards        = "/rewards"
)

func registerRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc(http.MethodGet+" "+PathUp, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc(http.MethodGet+" "+PathIndex, h.handleIndex)
	mux.HandleFunc(http.MethodGet+" "+PathDecks, h.handleListDecks)
	mux.HandleFunc(http.MethodDelete+" "+PathDeck, h.handleDeleteDeck)
	mux.HandleFunc(http.MethodPost+" "+PathDeckDelete, h.handleDeleteDeck)
	mux.HandleFunc(http.MethodPost+" "+PathDeckComplete, h.handleCompleteDeck)
	mux.HandleFunc(http.MethodGet+" "+PathSession, h.handleSession)
	mux.HandleFunc(http.MethodPost+" "+PathSessionToggle, h.handleToggle)
	mux.HandleFunc(http.MethodPost+" "+PathSessionConfirm, h.handleConfirm)
	mux.HandleFunc(http.MethodPost+" "+PathSessionCancel, h.handleCancel)
	mux.HandleFunc(http.MethodPost+" "+PathCelebrationAck, h.handleCelebrationAck)
	mux.HandleFunc(http.MethodGet+" "+PathNotifications, h.handleNotifications)
	mux.HandleFunc(http.MethodGet+" "+PathNotifyStream, h.handleNotificationStream)
	mux.HandleFunc(http.MethodGet+" "+PathRewards, h.handleRewards)
}
