package domain

import "strings"

// TopCard is the preview card shown on a deck tile.
type TopCard struct {
	FrontContent string
}

// Deck is the locally mirrored view of one upstream deck.
type Deck struct {
	ID          string
	Title       string
	Description *string
	CardCount   int
	TopCard     *TopCard
}

// DeckCache is an ordered read-through mirror of the upstream deck list.
//
// It is not safe for concurrent use; Session guards it.
type DeckCache struct {
	order []string
	byID  map[string]Deck
}

// NewDeckCache builds a cache from an ordered deck list.
func NewDeckCache(decks []Deck) *DeckCache {
	cache := &DeckCache{}
	cache.Replace(decks)
	return cache
}

// Replace swaps the cache contents for a refreshed upstream list.
//
// Blank ids are skipped and the first occurrence of a duplicated id wins.
func (c *DeckCache) Replace(decks []Deck) {
	c.order = make([]string, 0, len(decks))
	c.byID = make(map[string]Deck, len(decks))
	for _, deck := range decks {
		deckID := strings.TrimSpace(deck.ID)
		if deckID == "" {
			continue
		}
		if _, ok := c.byID[deckID]; ok {
			continue
		}
		deck.ID = deckID
		if deck.CardCount < 0 {
			deck.CardCount = 0
		}
		c.order = append(c.order, deckID)
		c.byID[deckID] = cloneDeck(deck)
	}
}

// Has reports whether the deck is present.
func (c *DeckCache) Has(deckID string) bool {
	_, ok := c.byID[deckID]
	return ok
}

// Get returns a copy of one cached deck.
func (c *DeckCache) Get(deckID string) (Deck, bool) {
	deck, ok := c.byID[deckID]
	if !ok {
		return Deck{}, false
	}
	return cloneDeck(deck), true
}

// Remove drops one deck and reports whether it was present.
func (c *DeckCache) Remove(deckID string) bool {
	if _, ok := c.byID[deckID]; !ok {
		return false
	}
	delete(c.byID, deckID)
	for i, id := range c.order {
		if id == deckID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns copies of the cached decks in upstream order.
func (c *DeckCache) List() []Deck {
	decks := make([]Deck, 0, len(c.order))
	for _, id := range c.order {
		decks = append(decks, cloneDeck(c.byID[id]))
	}
	return decks
}

// Len returns the number of cached decks.
func (c *DeckCache) Len() int {
	return len(c.order)
}

func cloneDeck(deck Deck) Deck {
	if deck.Description != nil {
		description := *deck.Description
		deck.Description = &description
	}
	if deck.TopCard != nil {
		top := *deck.TopCard
		deck.TopCard = &top
	}
	return deck
}
