package domain

import apperrors "github.com/sparkcards/sparkcards/internal/platform/errors"

// NoticeLevel classifies a user-visible notice.
type NoticeLevel string

const (
	// NoticeSuccess reports a completed user action.
	NoticeSuccess NoticeLevel = "success"
	// NoticeError reports a failed user action.
	NoticeError NoticeLevel = "error"
)

// Notice topics emitted by the session.
const (
	TopicDeckAdded         = "session.deck_added"
	TopicDeckRemoved       = "session.deck_removed"
	TopicDeckDeleted       = "deck.deleted"
	TopicDeckNotFound      = "deck.not_found"
	TopicDeleteCardsFailed = "deck.delete_cards_failed"
	TopicDeleteDeckFailed  = "deck.delete_failed"
	TopicDeleteUnexpected  = "deck.delete_unexpected"
	TopicDeleteInProgress  = "deck.delete_in_progress"
	TopicDeckCompleted     = "deck.completed"
)

// Notice is one user-visible notification. Copy is rendered by the caller
// from Topic.
type Notice struct {
	Level  NoticeLevel
	Topic  string
	DeckID string
	Code   apperrors.Code
	// Sparks is set on completion notices.
	Sparks int
}

// Notifier receives user-visible notices.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify implements Notifier.
func (fn NotifierFunc) Notify(n Notice) {
	fn(n)
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}

// noticeForDeletion maps a cascade result to the notice shown to the user.
func noticeForDeletion(deckID string, err error) Notice {
	if err == nil {
		return Notice{Level: NoticeSuccess, Topic: TopicDeckDeleted, DeckID: deckID}
	}
	code := apperrors.CodeOf(err)
	topic := TopicDeleteUnexpected
	switch code {
	case apperrors.CodeCardDeletionFailed:
		topic = TopicDeleteCardsFailed
	case apperrors.CodeDeckDeletionFailed:
		topic = TopicDeleteDeckFailed
	case apperrors.CodeDeletionInProgress:
		topic = TopicDeleteInProgress
	case apperrors.CodeDeckNotFound, apperrors.CodeDeckIDRequired:
		topic = TopicDeckNotFound
	}
	return Notice{Level: NoticeError, Topic: topic, DeckID: deckID, Code: code}
}
