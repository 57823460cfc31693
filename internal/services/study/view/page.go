package view

import (
	"github.com/sparkcards/sparkcards/internal/services/study/domain"
	"github.com/sparkcards/sparkcards/internal/services/study/render"
)

// FromSession builds the grid page for the session's current state.
func FromSession(loc render.Localizer, lang string, session *domain.Session, toasts []render.Toast) GridPage {
	selected := session.Selected()
	page := GridPage{
		Lang:         lang,
		Title:        render.Text(loc, "study.grid.title"),
		Summary:      render.SelectedSummary(loc, selected.Len()),
		Empty:        render.Text(loc, "study.grid.empty"),
		PreviewLabel: render.Text(loc, "study.grid.preview"),
		DeleteLabel:  render.Text(loc, "study.grid.delete"),
		Toasts:       toasts,
	}
	for _, deck := range session.Decks() {
		tile := DeckTile{
			ID:        deck.ID,
			Title:     deck.Title,
			CardCount: render.CardCount(loc, deck.CardCount),
			Selected:  selected.Has(deck.ID),
			Deleting:  session.DeletionInFlight(deck.ID),
		}
		if deck.Description != nil {
			tile.Description = *deck.Description
		}
		if deck.TopCard != nil {
			tile.TopCardFront = deck.TopCard.FrontContent
		}
		tile.ToggleLabel = render.Text(loc, "study.grid.add")
		if tile.Selected {
			tile.ToggleLabel = render.Text(loc, "study.grid.remove")
		}
		page.Tiles = append(page.Tiles, tile)
	}
	if pending, ok := session.Pending(); ok {
		page.Dialog = &PendingDialog{DeckID: pending.DeckID, Dialog: render.ConfirmDialog(loc, pending.Kind)}
	}
	if celebration, ok := session.Celebration(); ok {
		page.Celebration = &CelebrationBanner{
			Title:   render.Text(loc, "study.celebration.title"),
			Sparks:  render.Sparks(loc, celebration.Sparks),
			Dismiss: render.Text(loc, "study.celebration.dismiss"),
		}
	}
	return page
}
