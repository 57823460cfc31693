package domain

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	apperrors "github.com/sparkcards/sparkcards/internal/platform/errors"
)

type sessionHarness struct {
	session  *Session
	repo     *fakeRepository
	notifier *recordingNotifier
	ledger   *recordingLedger
	changes  *changeRecorder
}

func newSessionHarness(decks []Deck, selected SelectedSet) *sessionHarness {
	h := &sessionHarness{
		repo:     &fakeRepository{},
		notifier: &recordingNotifier{},
		ledger:   &recordingLedger{},
		changes:  &changeRecorder{},
	}
	h.session = NewSession(SessionConfig{
		Decks:                 decks,
		Selected:              selected,
		Repository:            h.repo,
		Ledger:                h.ledger,
		Notifier:              h.notifier,
		OnSelectedDecksChange: h.changes.record,
	})
	return h
}

func TestSession_ToggleConfirmAddsAndEmitsOnce(t *testing.T) {
	h := newSessionHarness(testDecks("d1", "d2"), nil)

	action, err := h.session.RequestToggle("d1")
	if err != nil {
		t.Fatalf("request toggle: %v", err)
	}
	if action != (PendingAction{DeckID: "d1", Kind: ActionAdd}) {
		t.Fatalf("action = %+v, want add d1", action)
	}
	if got := len(h.changes.Changes()); got != 0 {
		t.Fatalf("changes before confirm = %d, want 0", got)
	}
	if _, err := h.session.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if !h.session.IsSelected("d1") {
		t.Fatal("expected d1 selected")
	}
	changes := h.changes.Changes()
	if len(changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(changes))
	}
	if ids := changes[0].IDs(); !reflect.DeepEqual(ids, []string{"d1"}) {
		t.Fatalf("change = %v, want [d1]", ids)
	}
	notices := h.notifier.Notices()
	if len(notices) != 1 || notices[0].Topic != TopicDeckAdded {
		t.Fatalf("notices = %+v, want one %s", notices, TopicDeckAdded)
	}
}

func TestSession_ToggleCancelNeverChangesSelection(t *testing.T) {
	h := newSessionHarness(testDecks("d1", "d2"), NewSelectedSet("d2"))

	for _, deckID := range []string{"d1", "d2"} {
		if _, err := h.session.RequestToggle(deckID); err != nil {
			t.Fatalf("request toggle %s: %v", deckID, err)
		}
		if _, err := h.session.Cancel(); err != nil {
			t.Fatalf("cancel %s: %v", deckID, err)
		}
	}

	if ids := h.session.Selected().IDs(); !reflect.DeepEqual(ids, []string{"d2"}) {
		t.Fatalf("selected = %v, want [d2]", ids)
	}
	if got := len(h.changes.Changes()); got != 0 {
		t.Fatalf("changes = %d, want 0", got)
	}
	if _, pending := h.session.Pending(); pending {
		t.Fatal("expected no pending action")
	}
}

func TestSession_DoubleRequestBeforeConfirmRestagesAdd(t *testing.T) {
	h := newSessionHarness(testDecks("d3"), nil)

	first, err := h.session.RequestToggle("d3")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := h.session.RequestToggle("d3")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if first.Kind != ActionAdd || second.Kind != ActionAdd {
		t.Fatalf("kinds = %s, %s, want add, add", first.Kind, second.Kind)
	}
	if _, err := h.session.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := len(h.changes.Changes()); got != 1 {
		t.Fatalf("changes = %d, want 1", got)
	}
	if _, err := h.session.Confirm(); !errors.Is(err, ErrNoPendingAction) {
		t.Fatalf("second confirm err = %v, want %v", err, ErrNoPendingAction)
	}
}

func TestSession_RequestToggleUnknownDeckRejected(t *testing.T) {
	h := newSessionHarness(testDecks("d1"), nil)

	_, err := h.session.RequestToggle("ghost")
	if !apperrors.IsCode(err, apperrors.CodeDeckNotFound) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeDeckNotFound)
	}
	if _, pending := h.session.Pending(); pending {
		t.Fatal("expected nothing staged")
	}
}

func TestSession_CardDeletionFailureLeavesStateUntouched(t *testing.T) {
	decks := []Deck{{ID: "d1", Title: "Verbs", CardCount: 3}}
	h := newSessionHarness(decks, nil)
	h.repo.cardsErr = errors.New("row level security")

	err := h.session.DeleteDeck(context.Background(), "d1")
	if !apperrors.IsCode(err, apperrors.CodeCardDeletionFailed) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeCardDeletionFailed)
	}
	deck, ok := h.session.Deck("d1")
	if !ok || deck.CardCount != 3 {
		t.Fatalf("deck = %+v (%v), want d1 with 3 cards", deck, ok)
	}
	if h.session.SelectedCount() != 0 {
		t.Fatalf("selected = %v, want empty", h.session.Selected().IDs())
	}
	if got := len(h.changes.Changes()); got != 0 {
		t.Fatalf("changes = %d, want 0", got)
	}
	notices := h.notifier.Notices()
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
	if notices[0].Topic != TopicDeleteCardsFailed || notices[0].Level != NoticeError || notices[0].Code != apperrors.CodeCardDeletionFailed {
		t.Fatalf("notice = %+v, want card deletion failure", notices[0])
	}
}

func TestSession_SuccessfulDeletionRemovesFromCacheAndSelection(t *testing.T) {
	h := newSessionHarness(testDecks("d1", "d2"), NewSelectedSet("d1", "d2"))

	if err := h.session.DeleteDeck(context.Background(), "d2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, ok := h.session.Deck("d2"); ok {
		t.Fatal("expected d2 removed from cache")
	}
	if h.session.IsSelected("d2") {
		t.Fatal("expected d2 removed from selection")
	}
	changes := h.changes.Changes()
	if len(changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(changes))
	}
	if ids := changes[0].IDs(); !reflect.DeepEqual(ids, []string{"d1"}) {
		t.Fatalf("change = %v, want [d1]", ids)
	}
	notices := h.notifier.Notices()
	if len(notices) != 1 || notices[0].Topic != TopicDeckDeleted || notices[0].Level != NoticeSuccess {
		t.Fatalf("notices = %+v, want one %s", notices, TopicDeckDeleted)
	}
}

func TestSession_DeletionOfUnselectedDeckEmitsNoChange(t *testing.T) {
	h := newSessionHarness(testDecks("d1", "d2"), NewSelectedSet("d1"))

	if err := h.session.DeleteDeck(context.Background(), "d2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := len(h.changes.Changes()); got != 0 {
		t.Fatalf("changes = %d, want 0", got)
	}
	if len(h.session.Decks()) != 1 {
		t.Fatalf("decks = %d, want 1", len(h.session.Decks()))
	}
}

func TestSession_DeckDeletionFailureKeepsDeckAndReportsDistinctly(t *testing.T) {
	h := newSessionHarness(testDecks("d1"), NewSelectedSet("d1"))
	h.repo.deckErr = errors.New("timeout")

	err := h.session.DeleteDeck(context.Background(), "d1")
	if !apperrors.IsCode(err, apperrors.CodeDeckDeletionFailed) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeDeckDeletionFailed)
	}
	if _, ok := h.session.Deck("d1"); !ok {
		t.Fatal("expected d1 to remain cached")
	}
	if !h.session.IsSelected("d1") {
		t.Fatal("expected d1 to remain selected")
	}
	notices := h.notifier.Notices()
	if len(notices) != 1 || notices[0].Topic != TopicDeleteDeckFailed {
		t.Fatalf("notices = %+v, want one %s", notices, TopicDeleteDeckFailed)
	}
}

func TestSession_DeleteUnknownDeckSkipsRepository(t *testing.T) {
	h := newSessionHarness(testDecks("d1"), nil)

	err := h.session.DeleteDeck(context.Background(), "ghost")
	if !apperrors.IsCode(err, apperrors.CodeDeckNotFound) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeDeckNotFound)
	}
	if calls := h.repo.Calls(); len(calls) != 0 {
		t.Fatalf("calls = %v, want none", calls)
	}
	notices := h.notifier.Notices()
	if len(notices) != 1 || notices[0].Topic != TopicDeckNotFound {
		t.Fatalf("notices = %+v, want one %s", notices, TopicDeckNotFound)
	}
}

func TestSession_DeletionDropsStagedActionForDeletedDeck(t *testing.T) {
	h := newSessionHarness(testDecks("d1", "d2"), nil)

	if _, err := h.session.RequestToggle("d1"); err != nil {
		t.Fatalf("request toggle: %v", err)
	}
	if err := h.session.DeleteDeck(context.Background(), "d1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.session.Confirm(); !errors.Is(err, ErrNoPendingAction) {
		t.Fatalf("confirm err = %v, want %v", err, ErrNoPendingAction)
	}
	if h.session.IsSelected("d1") {
		t.Fatal("expected deleted deck never to be selected")
	}
}

func TestSession_InitialSelectionDropsUnknownIDs(t *testing.T) {
	h := newSessionHarness(testDecks("d1"), NewSelectedSet("d1", "ghost"))

	if ids := h.session.Selected().IDs(); !reflect.DeepEqual(ids, []string{"d1"}) {
		t.Fatalf("selected = %v, want [d1]", ids)
	}
	if got := len(h.changes.Changes()); got != 0 {
		t.Fatalf("changes = %d, want 0 at mount", got)
	}
}

func TestSession_SyncDecksPrunesVanishedSelection(t *testing.T) {
	h := newSessionHarness(testDecks("d1", "d2"), NewSelectedSet("d1", "d2"))
	if _, err := h.session.RequestToggle("d2"); err != nil {
		t.Fatalf("request toggle: %v", err)
	}

	h.session.SyncDecks([]Deck{{ID: "d1", Title: "Deck d1", CardCount: 0}, {ID: "d3", Title: "New"}})

	if ids := h.session.Selected().IDs(); !reflect.DeepEqual(ids, []string{"d1"}) {
		t.Fatalf("selected = %v, want [d1]", ids)
	}
	changes := h.changes.Changes()
	if len(changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(changes))
	}
	if _, pending := h.session.Pending(); pending {
		t.Fatal("expected staged action on vanished deck to be dropped")
	}
	deck, _ := h.session.Deck("d1")
	if deck.CardCount != 0 {
		t.Fatalf("card count = %d, want refreshed 0", deck.CardCount)
	}
}

func TestSession_CompleteDeckCelebrates(t *testing.T) {
	h := newSessionHarness(testDecks("d4", "d5"), nil)

	if _, err := h.session.CompleteDeck(context.Background(), "d4"); err != nil {
		t.Fatalf("complete d4: %v", err)
	}
	if _, err := h.session.CompleteDeck(context.Background(), "d5"); err != nil {
		t.Fatalf("complete d5: %v", err)
	}
	celebration, ok := h.session.Celebration()
	if !ok || celebration.DeckID != "d5" {
		t.Fatalf("celebration = %+v (%v), want d5", celebration, ok)
	}
	if !h.session.AcknowledgeCelebration() {
		t.Fatal("expected acknowledge to clear celebration")
	}
	if _, ok := h.session.Celebration(); ok {
		t.Fatal("expected no queued celebration")
	}
	if got := h.ledger.Completed(); !reflect.DeepEqual(got, []string{"d4", "d5"}) {
		t.Fatalf("ledger = %v, want [d4 d5]", got)
	}
	notices := h.notifier.Notices()
	if len(notices) != 2 || notices[1].Topic != TopicDeckCompleted || notices[1].Sparks != DefaultSparksPerDeck {
		t.Fatalf("notices = %+v, want two completion notices", notices)
	}
}

func TestSession_CallbackMayReadSession(t *testing.T) {
	var seen []int
	var session *Session
	session = NewSession(SessionConfig{
		Decks: testDecks("d1"),
		OnSelectedDecksChange: func(SelectedSet) {
			seen = append(seen, session.SelectedCount())
		},
	})

	if _, err := session.RequestToggle("d1"); err != nil {
		t.Fatalf("request toggle: %v", err)
	}
	if _, err := session.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !reflect.DeepEqual(seen, []int{1}) {
		t.Fatalf("seen = %v, want [1]", seen)
	}
}

func TestSession_CompleteUnknownDeckSkipsLedger(t *testing.T) {
	h := newSessionHarness(testDecks("d1"), nil)

	_, err := h.session.CompleteDeck(context.Background(), "missing")
	if apperrors.CodeOf(err) != apperrors.CodeDeckNotFound {
		t.Fatalf("err = %v, want deck not found", err)
	}
	if got := h.ledger.Completed(); len(got) != 0 {
		t.Fatalf("ledger = %v, want empty", got)
	}
	if _, ok := h.session.Celebration(); ok {
		t.Fatal("expected no celebration")
	}
	if got := h.notifier.Notices(); len(got) != 0 {
		t.Fatalf("notices = %+v, want none", got)
	}
}

func TestSession_OverlappingChangesReachCallbackInOrder(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var changes [][]string
	first := true

	session := NewSession(SessionConfig{
		Decks:      testDecks("d1", "d2"),
		Selected:   NewSelectedSet("d2"),
		Repository: &fakeRepository{},
		OnSelectedDecksChange: func(set SelectedSet) {
			mu.Lock()
			changes = append(changes, set.IDs())
			block := first
			first = false
			mu.Unlock()
			if block {
				close(entered)
				<-release
			}
		},
	})
	if _, err := session.RequestToggle("d1"); err != nil {
		t.Fatalf("request toggle: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := session.Confirm(); err != nil {
			t.Errorf("confirm: %v", err)
		}
	}()
	<-entered

	go func() {
		defer wg.Done()
		if err := session.DeleteDeck(context.Background(), "d2"); err != nil {
			t.Errorf("delete d2: %v", err)
		}
	}()
	deadline := time.Now().Add(2 * time.Second)
	for session.IsSelected("d2") {
		if time.Now().After(deadline) {
			t.Fatal("deletion never reconciled the selection")
		}
		time.Sleep(time.Millisecond)
	}
	// Let the deleting goroutine reach delivery before the first callback returns.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := session.Selected().IDs(); !reflect.DeepEqual(got, []string{"d1"}) {
		t.Fatalf("selected = %v, want [d1]", got)
	}
	mu.Lock()
	defer mu.Unlock()
	want := [][]string{{"d1", "d2"}, {"d1"}}
	if !reflect.DeepEqual(changes, want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
}
