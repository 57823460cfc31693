package service

import (
	"sync"
	"time"

	"github.com/sparkcards/sparkcards/internal/services/study/domain"
)

// DefaultFeedCapacity bounds the notices kept for polling clients.
const DefaultFeedCapacity = 50

// FeedEntry is one notice in the toast feed.
type FeedEntry struct {
	Seq    uint64
	Notice domain.Notice
	At     time.Time
}

// Feed is a bounded, sequenced record of session notices.
//
// Pollers read with Since; streaming clients Subscribe. A subscriber whose
// buffer is full misses entries and is expected to catch up with Since.
type Feed struct {
	mu          sync.Mutex
	capacity    int
	entries     []FeedEntry
	seq         uint64
	subscribers map[uint64]chan FeedEntry
	nextSub     uint64
	clock       func() time.Time
}

var _ domain.Notifier = (*Feed)(nil)

// NewFeed builds a feed retaining at most capacity entries.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed{
		capacity:    capacity,
		subscribers: make(map[uint64]chan FeedEntry),
		clock:       time.Now,
	}
}

// Notify appends n and fans it out to subscribers.
func (f *Feed) Notify(n domain.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	entry := FeedEntry{Seq: f.seq, Notice: n, At: f.clock().UTC()}
	f.entries = append(f.entries, entry)
	if overflow := len(f.entries) - f.capacity; overflow > 0 {
		f.entries = append(f.entries[:0:0], f.entries[overflow:]...)
	}
	for _, ch := range f.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
}

// Since returns retained entries with a sequence greater than after.
func (f *Feed) Since(after uint64) []FeedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]FeedEntry, 0, len(f.entries))
	for _, entry := range f.entries {
		if entry.Seq > after {
			out = append(out, entry)
		}
	}
	return out
}

// LastSeq returns the sequence of the newest notice.
func (f *Feed) LastSeq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// Subscribe registers a listener for new entries. The returned cancel
// function unregisters it and closes the channel; it is safe to call twice.
func (f *Feed) Subscribe(buffer int) (<-chan FeedEntry, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan FeedEntry, buffer)

	f.mu.Lock()
	f.nextSub++
	id := f.nextSub
	f.subscribers[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}
