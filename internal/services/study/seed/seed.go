// Package seed loads deck fixtures from YAML into a study store.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sparkcards/sparkcards/internal/platform/id"
	"github.com/sparkcards/sparkcards/internal/services/study/storage"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var fixtures embed.FS

// File is one fixture document.
type File struct {
	Decks []Deck `yaml:"decks"`
	// Selected lists deck ids to place in today's session.
	Selected []string `yaml:"selected"`
}

// Deck is one fixture deck. Cards keep their listed order.
type Deck struct {
	ID          string  `yaml:"id"`
	Title       string  `yaml:"title"`
	Description *string `yaml:"description"`
	Cards       []Card  `yaml:"cards"`
}

// Card is one fixture card.
type Card struct {
	ID    string `yaml:"id"`
	Front string `yaml:"front"`
	Back  string `yaml:"back"`
}

// Target is the store a fixture is written to.
type Target interface {
	storage.DeckStore
	storage.SelectionStore
}

// Result counts what a load wrote.
type Result struct {
	Decks    int
	Cards    int
	Selected int
}

// Parse decodes a fixture and rejects unknown fields.
func Parse(r io.Reader) (File, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var file File
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("decode fixture: %w", err)
	}
	return file, file.validate()
}

// Demo returns the built-in demo fixture.
func Demo() (File, error) {
	f, err := fixtures.Open("fixtures/demo.yaml")
	if err != nil {
		return File{}, fmt.Errorf("open demo fixture: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func (f File) validate() error {
	seen := make(map[string]struct{}, len(f.Decks))
	for i, deck := range f.Decks {
		if strings.TrimSpace(deck.Title) == "" {
			return fmt.Errorf("deck %d: title is required", i)
		}
		if deckID := strings.TrimSpace(deck.ID); deckID != "" {
			if _, ok := seen[deckID]; ok {
				return fmt.Errorf("deck %d: duplicate id %q", i, deckID)
			}
			seen[deckID] = struct{}{}
		}
		for j, card := range deck.Cards {
			if strings.TrimSpace(card.Front) == "" {
				return fmt.Errorf("deck %d card %d: front is required", i, j)
			}
		}
	}
	for _, deckID := range f.Selected {
		if _, ok := seen[strings.TrimSpace(deckID)]; !ok {
			return fmt.Errorf("selected deck %q is not defined in the fixture", deckID)
		}
	}
	return nil
}

// Loader writes fixtures to a Target.
type Loader struct {
	Clock func() time.Time
	NewID func() (string, error)
}

// Load writes every deck and card of file, then replaces the selection when
// the fixture lists one. Decks are timestamped in fixture order so listings
// keep that order.
func (l Loader) Load(ctx context.Context, target Target, file File) (Result, error) {
	if target == nil {
		return Result{}, errors.New("seed target is required")
	}
	if err := file.validate(); err != nil {
		return Result{}, err
	}
	clock := l.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := l.NewID
	if newID == nil {
		newID = id.NewID
	}

	var result Result
	base := clock().UTC()
	for i, deck := range file.Decks {
		deckID := strings.TrimSpace(deck.ID)
		if deckID == "" {
			generated, err := newID()
			if err != nil {
				return result, fmt.Errorf("generate deck id: %w", err)
			}
			deckID = generated
		}
		createdAt := base.Add(time.Duration(i) * time.Millisecond)
		if err := target.PutDeck(ctx, storage.DeckRecord{
			ID:          deckID,
			Title:       strings.TrimSpace(deck.Title),
			Description: deck.Description,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}); err != nil {
			return result, fmt.Errorf("put deck %s: %w", deckID, err)
		}
		result.Decks++

		for position, card := range deck.Cards {
			cardID := strings.TrimSpace(card.ID)
			if cardID == "" {
				generated, err := newID()
				if err != nil {
					return result, fmt.Errorf("generate card id: %w", err)
				}
				cardID = generated
			}
			if err := target.PutCard(ctx, storage.CardRecord{
				ID:           cardID,
				DeckID:       deckID,
				FrontContent: card.Front,
				BackContent:  card.Back,
				Position:     position,
				CreatedAt:    createdAt,
			}); err != nil {
				return result, fmt.Errorf("put card %s: %w", cardID, err)
			}
			result.Cards++
		}
	}

	if len(file.Selected) > 0 {
		if err := target.ReplaceSelectedDecks(ctx, file.Selected); err != nil {
			return result, fmt.Errorf("replace selection: %w", err)
		}
		result.Selected = len(file.Selected)
	}
	return result, nil
}
