// Package httpapi serves the study session over HTTP: a JSON API, the deck
// grid page and a websocket toast stream.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/sparkcards/sparkcards/internal/platform/errors"
	"github.com/sparkcards/sparkcards/internal/platform/timeouts"
	"github.com/sparkcards/sparkcards/internal/services/study/domain"
	"github.com/sparkcards/sparkcards/internal/services/study/render"
	"github.com/sparkcards/sparkcards/internal/services/study/service"
	"github.com/sparkcards/sparkcards/internal/services/study/view"
	"golang.org/x/text/message"
)

const (
	langCookieName = "sparkcards_lang"
	seenCookieName = "sparkcards_seen"
)

// Handler serves the study routes.
type Handler struct {
	study        *service.Study
	logf         func(string, ...any)
	streamBuffer int
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLogf overrides the handler logger.
func WithLogf(logf func(string, ...any)) Option {
	return func(h *Handler) {
		if logf != nil {
			h.logf = logf
		}
	}
}

// WithStreamBuffer sets the per-connection toast buffer.
func WithStreamBuffer(size int) Option {
	return func(h *Handler) {
		if size > 0 {
			h.streamBuffer = size
		}
	}
}

// NewHandler builds the study mux.
func NewHandler(study *service.Study, opts ...Option) http.Handler {
	h := &Handler{study: study, logf: log.Printf, streamBuffer: 16}
	for _, opt := range opts {
		opt(h)
	}
	mux := http.NewServeMux()
	registerRoutes(mux, h)
	return mux
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	lang, loc := localizerFor(r)
	feed := h.study.Feed()
	seen := parseSeq(cookieValue(r, seenCookieName))
	toasts := make([]render.Toast, 0)
	for _, entry := range feed.Since(seen) {
		toasts = append(toasts, render.NoticeToast(loc, entry.Notice))
	}
	http.SetCookie(w, &http.Cookie{
		Name:     seenCookieName,
		Value:    strconv.FormatUint(feed.LastSeq(), 10),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := view.FromSession(loc, lang, h.study.Session(), toasts)
	if err := view.Grid(page).Render(r.Context(), w); err != nil {
		h.logf("render deck grid: %v", err)
	}
}

func (h *Handler) handleListDecks(w http.ResponseWriter, r *http.Request) {
	_, loc := localizerFor(r)
	session := h.study.Session()
	selected := session.Selected()
	decks := session.Decks()
	payload := decksPayload{Decks: make([]deckPayload, 0, len(decks))}
	for _, deck := range decks {
		item := deckPayload{
			ID:            deck.ID,
			Title:         deck.Title,
			Description:   deck.Description,
			CardCount:     deck.CardCount,
			CardCountText: render.CardCount(loc, deck.CardCount),
			Selected:      selected.Has(deck.ID),
			Deleting:      session.DeletionInFlight(deck.ID),
		}
		if deck.TopCard != nil {
			front := deck.TopCard.FrontContent
			item.TopCardFront = &front
		}
		payload.Decks = append(payload.Decks, item)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	_, loc := localizerFor(r)
	writeJSON(w, http.StatusOK, h.sessionState(loc))
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	_, loc := localizerFor(r)
	action, err := h.study.Session().RequestToggle(r.PathValue("deckID"))
	h.respondAction(w, r, loc, action, err)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	_, loc := localizerFor(r)
	action, err := h.study.Session().Confirm()
	h.respondAction(w, r, loc, action, err)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	_, loc := localizerFor(r)
	action, err := h.study.Session().Cancel()
	h.respondAction(w, r, loc, action, err)
}

func (h *Handler) handleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	_, loc := localizerFor(r)
	deckID := strings.TrimSpace(r.PathValue("deckID"))
	// The cascade runs to completion even if the client goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.DeleteCascade)
	defer cancel()
	err := h.study.DeleteDeck(ctx, deckID)
	if isFormPost(r) {
		redirectHome(w, r)
		return
	}
	if err != nil {
		h.writeError(w, loc, err)
		return
	}
	writeJSON(w, http.StatusOK, actionPayload{DeckID: deckID, Session: h.sessionState(loc)})
}

func (h *Handler) handleCompleteDeck(w http.ResponseWriter, r *http.Request) {
	_, loc := localizerFor(r)
	celebration, err := h.study.CompleteDeck(r.Context(), r.PathValue("deckID"))
	if err != nil {
		h.writeError(w, loc, err)
		return
	}
	writeJSON(w, http.StatusOK, celebrationView(loc, celebration))
}

func (h *Handler) handleCelebrationAck(w http.ResponseWriter, r *http.Request) {
	acknowledged := h.study.Session().AcknowledgeCelebration()
	if isFormPost(r) {
		redirectHome(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": acknowledged})
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	_, loc := localizerFor(r)
	feed := h.study.Feed()
	entries := feed.Since(parseSeq(r.URL.Query().Get("after")))
	payload := notificationsPayload{
		LastSeq:       feed.LastSeq(),
		Notifications: make([]notificationPayload, 0, len(entries)),
	}
	for _, entry := range entries {
		payload.Notifications = append(payload.Notifications, notificationView(loc, entry))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleRewards(w http.ResponseWriter, r *http.Request) {
	_, loc := localizerFor(r)
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	summary, err := h.study.Rewards(r.Context(), query.Get("filter"), limit)
	if err != nil {
		h.writeError(w, loc, err)
		return
	}
	payload := rewardsPayload{
		Balance:     summary.Balance,
		BalanceText: render.Balance(loc, summary.Balance),
		Events:      make([]rewardEventPayload, 0, len(summary.Events)),
	}
	for _, event := range summary.Events {
		payload.Events = append(payload.Events, rewardEventPayload{
			ID:        event.ID,
			DeckID:    event.DeckID,
			Sparks:    event.Sparks,
			CreatedAt: event.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) respondAction(w http.ResponseWriter, r *http.Request, loc *message.Printer, action domain.PendingAction, err error) {
	if isFormPost(r) {
		redirectHome(w, r)
		return
	}
	if err != nil {
		h.writeError(w, loc, err)
		return
	}
	writeJSON(w, http.StatusOK, actionPayload{
		DeckID:  action.DeckID,
		Kind:    string(action.Kind),
		Session: h.sessionState(loc),
	})
}

func (h *Handler) sessionState(loc *message.Printer) sessionPayload {
	session := h.study.Session()
	selected := session.Selected()
	state := sessionPayload{
		Selected: selected.IDs(),
		Summary:  render.SelectedSummary(loc, selected.Len()),
	}
	if pending, ok := session.Pending(); ok {
		state.Pending = &pendingPayload{
			DeckID: pending.DeckID,
			Kind:   string(pending.Kind),
			Dialog: render.ConfirmDialog(loc, pending.Kind),
		}
	}
	if celebration, ok := session.Celebration(); ok {
		banner := celebrationView(loc, celebration)
		state.Celebration = &banner
	}
	return state
}

func (h *Handler) writeError(w http.ResponseWriter, loc *message.Printer, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logf("study request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{Code: string(code), Message: render.ErrorText(loc, err)})
}

func celebrationView(loc *message.Printer, celebration domain.Celebration) celebrationPayload {
	return celebrationPayload{
		DeckID: celebration.DeckID,
		Sparks: celebration.Sparks,
		Text:   render.Sparks(loc, celebration.Sparks),
	}
}

func notificationView(loc *message.Printer, entry service.FeedEntry) notificationPayload {
	return notificationPayload{
		Seq:   entry.Seq,
		At:    entry.At,
		Toast: render.NoticeToast(loc, entry.Notice),
	}
}

// localizerFor resolves the request language from ?lang, the language
// cookie and Accept-Language, in that order.
func localizerFor(r *http.Request) (string, *message.Printer) {
	tag := render.MatchTag(
		r.URL.Query().Get("lang"),
		cookieValue(r, langCookieName),
		r.Header.Get("Accept-Language"),
	)
	return tag.String(), message.NewPrinter(tag)
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func parseSeq(raw string) uint64 {
	seq, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return seq
}

func isFormPost(r *http.Request) bool {
	return r.Method == http.MethodPost &&
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
