// Package render produces localized study copy from session state.
package render

import (
	"strings"

	apperrors "github.com/sparkcards/sparkcards/internal/platform/errors"
	"github.com/sparkcards/sparkcards/internal/platform/i18n/catalog"
	"github.com/sparkcards/sparkcards/internal/services/study/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Toast is one rendered notice.
type Toast struct {
	Level  domain.NoticeLevel `json:"level"`
	Topic  string             `json:"topic"`
	DeckID string             `json:"deck_id,omitempty"`
	Code   string             `json:"code,omitempty"`
	Text   string             `json:"text"`
}

// Dialog is the copy of the confirmation dialog for one staged action.
type Dialog struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Action string `json:"action"`
	Cancel string `json:"cancel"`
}

var noticeKeys = map[string]string{
	domain.TopicDeckAdded:         "study.toast.deck_added",
	domain.TopicDeckRemoved:       "study.toast.deck_removed",
	domain.TopicDeckDeleted:       "study.toast.deck_deleted",
	domain.TopicDeckNotFound:      "study.toast.deck_not_found",
	domain.TopicDeleteCardsFailed: "study.toast.delete_cards_failed",
	domain.TopicDeleteDeckFailed:  "study.toast.delete_failed",
	domain.TopicDeleteUnexpected:  "study.toast.delete_unexpected",
	domain.TopicDeleteInProgress:  "study.toast.delete_in_progress",
	domain.TopicDeckCompleted:     "study.toast.deck_completed",
}

// Printer returns a printer for the best supported match of langs, which
// are tried in order. Unknown or empty values fall back to the base locale.
func Printer(langs ...string) *message.Printer {
	return message.NewPrinter(MatchTag(langs...))
}

// MatchTag resolves the first parseable value among langs against the
// supported catalog locales. Each value may be a tag or an Accept-Language list.
func MatchTag(langs ...string) language.Tag {
	bundle := catalog.Default()
	supported := bundle.Tags()
	matcher := language.NewMatcher(supported)
	for _, raw := range langs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(raw)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, index, confidence := matcher.Match(tags...)
		if confidence == language.No {
			continue
		}
		return supported[index]
	}
	return supported[0]
}

// NoticeText returns the toast copy for n.
func NoticeText(loc Localizer, n domain.Notice) string {
	key, ok := noticeKeys[n.Topic]
	if !ok {
		if n.Level == domain.NoticeError {
			return localizeWithFallback(loc, "core.error.generic", "Something went wrong")
		}
		return n.Topic
	}
	if n.Topic == domain.TopicDeckCompleted {
		return localize(loc, key, n.Sparks)
	}
	return localize(loc, key)
}

// NoticeToast renders n as a Toast.
func NoticeToast(loc Localizer, n domain.Notice) Toast {
	return Toast{
		Level:  n.Level,
		Topic:  n.Topic,
		DeckID: n.DeckID,
		Code:   string(n.Code),
		Text:   NoticeText(loc, n),
	}
}

// ConfirmDialog returns the dialog copy for a staged action.
func ConfirmDialog(loc Localizer, kind domain.ActionKind) Dialog {
	prefix := "study.dialog.add."
	if kind == domain.ActionRemove {
		prefix = "study.dialog.remove."
	}
	return Dialog{
		Title:  localize(loc, prefix+"title"),
		Body:   localize(loc, prefix+"body"),
		Action: localize(loc, prefix+"action"),
		Cancel: localize(loc, "study.dialog.cancel"),
	}
}

// SelectedSummary returns the "N decks selected for today" line.
func SelectedSummary(loc Localizer, count int) string {
	return localize(loc, "study.session.selected_count", count)
}

// CardCount returns the pluralized card count of a deck.
func CardCount(loc Localizer, count int) string {
	return localize(loc, "study.grid.card_count", count)
}

// Sparks returns the pluralized sparks earned by a celebration.
func Sparks(loc Localizer, sparks int) string {
	return localize(loc, "study.celebration.sparks", sparks)
}

// Balance returns the pluralized sparks balance.
func Balance(loc Localizer, sparks int) string {
	return localize(loc, "study.rewards.balance", sparks)
}

var errorKeys = map[apperrors.Code]string{
	apperrors.CodeDeckIDRequired:         "study.error.deck_id_required",
	apperrors.CodeDeckNotFound:           "study.toast.deck_not_found",
	apperrors.CodeCardDeletionFailed:     "study.toast.delete_cards_failed",
	apperrors.CodeDeckDeletionFailed:     "study.toast.delete_failed",
	apperrors.CodeDeckDeletionUnexpected: "study.toast.delete_unexpected",
	apperrors.CodeDeletionInProgress:     "study.toast.delete_in_progress",
	apperrors.CodeNoPendingAction:        "study.error.no_pending",
	apperrors.CodeInvalidFilter:          "study.error.invalid_filter",
	apperrors.CodeStoreNotConfigured:     "study.error.unavailable",
}

// ErrorText returns user-facing copy for err based on its code.
func ErrorText(loc Localizer, err error) string {
	if key, ok := errorKeys[apperrors.CodeOf(err)]; ok {
		return localize(loc, key)
	}
	return localizeWithFallback(loc, "core.error.generic", "Something went wrong")
}

// Text returns one plain catalog message.
func Text(loc Localizer, key string) string {
	return localize(loc, key)
}

func localize(loc Localizer, key string, args ...any) string {
	if loc == nil {
		return key
	}
	return loc.Sprintf(key, args...)
}

func localizeWithFallback(loc Localizer, key string, fallback string) string {
	value := strings.TrimSpace(localize(loc, key))
	if value == "" || value == key {
		return fallback
	}
	return value
}
