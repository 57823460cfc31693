package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sparkcards/sparkcards/internal/services/study/rewards"
	"github.com/sparkcards/sparkcards/internal/services/study/service"
	"github.com/sparkcards/sparkcards/internal/testkit/studyfakes"
)

var base = time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *studyfakes.Store, *service.Study) {
	t.Helper()
	store := studyfakes.NewStore()
	store.SeedDeck("d1", "Spanish", 2, base)
	store.SeedDeck("d2", "Kanji", 0, base.Add(time.Minute))

	discard := func(string, ...any) {}
	study, err := service.New(context.Background(), service.Config{
		Decks:      store,
		Selections: store,
		Ledger:     rewards.NewLedger(store, 0, rewards.WithLogf(discard)),
		Logf:       discard,
	})
	if err != nil {
		t.Fatalf("new study: %v", err)
	}
	srv := httptest.NewServer(NewHandler(study, WithLogf(discard)))
	t.Cleanup(srv.Close)
	return srv, store, study
}

func doJSON(t *testing.T, method, target string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, target, err)
		}
	}
	return resp.StatusCode
}

func TestUp(t *testing.T) {
	srv, _, _ := newTestServer(t)
	if status := doJSON(t, http.MethodGet, srv.URL+PathUp, nil); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
}

func TestListDecks(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var payload decksPayload
	if status := doJSON(t, http.MethodGet, srv.URL+"/decks?lang=pt-BR", &payload); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(payload.Decks) != 2 || payload.Decks[0].ID != "d1" || payload.Decks[1].ID != "d2" {
		t.Fatalf("decks = %+v", payload.Decks)
	}
	if payload.Decks[0].CardCountText != "2 cartas" {
		t.Fatalf("card count text = %q, want 2 cartas", payload.Decks[0].CardCountText)
	}
	if payload.Decks[0].TopCardFront == nil || payload.Decks[1].TopCardFront != nil {
		t.Fatalf("top cards = %+v", payload.Decks)
	}
}

func TestToggleConfirmFlow(t *testing.T) {
	srv, store, _ := newTestServer(t)

	var staged actionPayload
	if status := doJSON(t, http.MethodPost, srv.URL+"/session/toggle/d1", &staged); status != http.StatusOK {
		t.Fatalf("toggle status = %d", status)
	}
	if staged.Kind != "add" || staged.Session.Pending == nil || staged.Session.Pending.Dialog.Action != "Add to Session" {
		t.Fatalf("staged = %+v", staged)
	}
	if len(staged.Session.Selected) != 0 {
		t.Fatalf("selected before confirm = %v", staged.Session.Selected)
	}

	var confirmed actionPayload
	if status := doJSON(t, http.MethodPost, srv.URL+PathSessionConfirm, &confirmed); status != http.StatusOK {
		t.Fatalf("confirm status = %d", status)
	}
	if confirmed.DeckID != "d1" || confirmed.Session.Pending != nil {
		t.Fatalf("confirmed = %+v", confirmed)
	}
	if confirmed.Session.Summary != "1 deck selected for today" {
		t.Fatalf("summary = %q", confirmed.Session.Summary)
	}
	if got := store.Selected(); len(got) != 1 || got[0] != "d1" {
		t.Fatalf("persisted = %v", got)
	}

	var failure errorPayload
	if status := doJSON(t, http.MethodPost, srv.URL+PathSessionConfirm, &failure); status != http.StatusConflict {
		t.Fatalf("second confirm status = %d, want 409", status)
	}
	if failure.Code != "SESSION_NO_PENDING_ACTION" {
		t.Fatalf("failure = %+v", failure)
	}
}

func TestToggleCancel(t *testing.T) {
	srv, _, study := newTestServer(t)

	doJSON(t, http.MethodPost, srv.URL+"/session/toggle/d2", nil)
	var cancelled actionPayload
	if status := doJSON(t, http.MethodPost, srv.URL+PathSessionCancel, &cancelled); status != http.StatusOK {
		t.Fatalf("cancel status = %d", status)
	}
	if cancelled.DeckID != "d2" || study.Session().SelectedCount() != 0 {
		t.Fatalf("cancelled = %+v selected = %d", cancelled, study.Session().SelectedCount())
	}
}

func TestCompleteUnknownDeckGrantsNoSparks(t *testing.T) {
	srv, store, _ := newTestServer(t)
	var failure errorPayload
	if status := doJSON(t, http.MethodPost, srv.URL+"/decks/missing/complete", &failure); status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if failure.Code != "DECK_NOT_FOUND" {
		t.Fatalf("failure = %+v", failure)
	}
	balance, err := store.SparksBalance(context.Background())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestToggleUnknownDeck(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var failure errorPayload
	if status := doJSON(t, http.MethodPost, srv.URL+"/session/toggle/missing", &failure); status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if failure.Code != "DECK_NOT_FOUND" || failure.Message != "That deck no longer exists" {
		t.Fatalf("failure = %+v", failure)
	}
}

func TestDeleteDeck(t *testing.T) {
	srv, store, _ := newTestServer(t)

	var deleted actionPayload
	if status := doJSON(t, http.MethodDelete, srv.URL+"/decks/d1", &deleted); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	if store.HasDeck("d1") {
		t.Fatal("expected d1 deleted upstream")
	}
	var decks decksPayload
	doJSON(t, http.MethodGet, srv.URL+PathDecks, &decks)
	if len(decks.Decks) != 1 || decks.Decks[0].ID != "d2" {
		t.Fatalf("decks = %+v", decks.Decks)
	}
}

func TestDeleteDeckFailures(t *testing.T) {
	srv, store, _ := newTestServer(t)

	store.DeleteCardsErr = errors.New("network down")
	var failure errorPayload
	if status := doJSON(t, http.MethodDelete, srv.URL+"/decks/d1", &failure); status != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", status)
	}
	if failure.Code != "CARD_DELETION_FAILED" || failure.Message != "Failed to delete deck's cards" {
		t.Fatalf("failure = %+v", failure)
	}

	store.DeleteCardsErr = nil
	store.DeleteDeckErr = errors.New("locked")
	if status := doJSON(t, http.MethodDelete, srv.URL+"/decks/d1", &failure); status != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", status)
	}
	if failure.Code != "DECK_DELETION_FAILED" {
		t.Fatalf("failure = %+v", failure)
	}
	var decks decksPayload
	doJSON(t, http.MethodGet, srv.URL+PathDecks, &decks)
	if len(decks.Decks) != 2 || decks.Decks[0].CardCount != 0 {
		t.Fatalf("decks after partial failure = %+v", decks.Decks)
	}
}

func TestFormPostRedirectsHome(t *testing.T) {
	srv, _, study := newTestServer(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.PostForm(srv.URL+"/session/toggle/d2", url.Values{})
	if err != nil {
		t.Fatalf("post form: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("status = %d location = %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if _, ok := study.Session().Pending(); !ok {
		t.Fatal("expected staged toggle after form post")
	}

	resp, err = client.PostForm(srv.URL+"/decks/d2/delete", url.Values{})
	if err != nil {
		t.Fatalf("post delete form: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("delete form status = %d", resp.StatusCode)
	}
	if _, ok := study.Session().Deck("d2"); ok {
		t.Fatal("expected d2 deleted")
	}
	if _, ok := study.Session().Pending(); ok {
		t.Fatal("expected staged toggle for deleted deck to be dropped")
	}
}

func TestCompleteDeckCelebrationAndRewards(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var celebration celebrationPayload
	if status := doJSON(t, http.MethodPost, srv.URL+"/decks/d1/complete", &celebration); status != http.StatusOK {
		t.Fatalf("complete status = %d", status)
	}
	if celebration.Sparks != 50 || celebration.Text != "+50 sparks" {
		t.Fatalf("celebration = %+v", celebration)
	}

	var state sessionPayload
	doJSON(t, http.MethodGet, srv.URL+PathSession, &state)
	if state.Celebration == nil || state.Celebration.DeckID != "d1" {
		t.Fatalf("session celebration = %+v", state.Celebration)
	}

	var ack map[string]bool
	doJSON(t, http.MethodPost, srv.URL+PathCelebrationAck, &ack)
	if !ack["acknowledged"] {
		t.Fatalf("ack = %v", ack)
	}
	doJSON(t, http.MethodPost, srv.URL+PathCelebrationAck, &ack)
	if ack["acknowledged"] {
		t.Fatal("expected second ack to report nothing shown")
	}

	var summary rewardsPayload
	if status := doJSON(t, http.MethodGet, srv.URL+"/rewards?filter="+url.QueryEscape(`deck_id = "d1"`), &summary); status != http.StatusOK {
		t.Fatalf("rewards status = %d", status)
	}
	if summary.Balance != 50 || summary.BalanceText != "50 sparks" || len(summary.Events) != 1 {
		t.Fatalf("rewards = %+v", summary)
	}

	var failure errorPayload
	if status := doJSON(t, http.MethodGet, srv.URL+"/rewards?filter="+url.QueryEscape(`title = "x"`), &failure); status != http.StatusBadRequest {
		t.Fatalf("bad filter status = %d, want 400", status)
	}
	if failure.Code != "INVALID_FILTER" {
		t.Fatalf("failure = %+v", failure)
	}
}

func TestNotificationsSince(t *testing.T) {
	srv, _, _ := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/session/toggle/d1", nil)
	doJSON(t, http.MethodPost, srv.URL+PathSessionConfirm, nil)
	doJSON(t, http.MethodDelete, srv.URL+"/decks/d2", nil)

	var all notificationsPayload
	doJSON(t, http.MethodGet, srv.URL+PathNotifications, &all)
	if all.LastSeq != 2 || len(all.Notifications) != 2 {
		t.Fatalf("notifications = %+v", all)
	}
	if all.Notifications[0].Text != "Deck added to today's session" || all.Notifications[1].Text != "Deck deleted successfully" {
		t.Fatalf("texts = %+v", all.Notifications)
	}

	var tail notificationsPayload
	doJSON(t, http.MethodGet, srv.URL+PathNotifications+"?after=1", &tail)
	if len(tail.Notifications) != 1 || tail.Notifications[0].Seq != 2 {
		t.Fatalf("tail = %+v", tail)
	}
}

func TestIndexRendersGridAndConsumesToasts(t *testing.T) {
	srv, _, _ := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/session/toggle/d1", nil)
	doJSON(t, http.MethodPost, srv.URL+PathSessionConfirm, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	html := string(body)
	if !strings.Contains(html, "Todos os baralhos") || !strings.Contains(html, "Baralho adicionado à sessão de hoje") {
		t.Fatalf("index = %s", html)
	}

	var seen *http.Cookie
	for _, cookie := range resp.Cookies() {
		if cookie.Name == seenCookieName {
			seen = cookie
		}
	}
	if seen == nil || seen.Value != "1" {
		t.Fatalf("seen cookie = %+v, want 1", seen)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	req.AddCookie(seen)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get index again: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if strings.Contains(string(body), `class="toast`) {
		t.Fatal("expected seen toasts to be skipped")
	}
}
