// Package view renders the server-side deck grid page.
package view

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/sparkcards/sparkcards/internal/services/study/render"
)

// DeckTile is one rendered deck card in the grid.
type DeckTile struct {
	ID           string
	Title        string
	Description  string
	CardCount    string
	TopCardFront string
	Selected     bool
	Deleting     bool
	ToggleLabel  string
}

// PendingDialog is the confirmation dialog for the staged selection change.
type PendingDialog struct {
	DeckID string
	render.Dialog
}

// CelebrationBanner is the active completion celebration.
type CelebrationBanner struct {
	Title   string
	Sparks  string
	Dismiss string
}

// GridPage is everything the grid page shows.
type GridPage struct {
	Lang         string
	Title        string
	Summary      string
	Empty        string
	PreviewLabel string
	DeleteLabel  string
	Tiles        []DeckTile
	Dialog       *PendingDialog
	Celebration  *CelebrationBanner
	Toasts       []render.Toast
}

// Grid renders the deck grid document.
func Grid(page GridPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<!DOCTYPE html><html lang="`)
		p.text(page.Lang)
		p.raw(`"><head><meta charset="utf-8"><title>`)
		p.text(page.Title)
		p.raw(`</title></head><body><main class="study-grid">`)
		p.raw(`<h1>`)
		p.text(page.Title)
		p.raw(`</h1><p class="study-summary">`)
		p.text(page.Summary)
		p.raw(`</p>`)

		for _, toast := range page.Toasts {
			p.raw(`<div role="status" class="toast toast-`)
			p.text(string(toast.Level))
			p.raw(`">`)
			p.text(toast.Text)
			p.raw(`</div>`)
		}

		if page.Celebration != nil {
			p.raw(`<section class="celebration"><h2>`)
			p.text(page.Celebration.Title)
			p.raw(`</h2><p>`)
			p.text(page.Celebration.Sparks)
			p.raw(`</p><form method="post" action="`)
			p.url(CelebrationAckPath)
			p.raw(`"><button type="submit">`)
			p.text(page.Celebration.Dismiss)
			p.raw(`</button></form></section>`)
		}

		if len(page.Tiles) == 0 {
			p.raw(`<p class="study-empty">`)
			p.text(page.Empty)
			p.raw(`</p>`)
		} else {
			p.raw(`<ul class="deck-grid">`)
			for _, tile := range page.Tiles {
				renderTile(p, page, tile)
			}
			p.raw(`</ul>`)
		}

		if page.Dialog != nil {
			p.raw(`<dialog open class="confirm" data-deck-id="`)
			p.text(page.Dialog.DeckID)
			p.raw(`"><h2>`)
			p.text(page.Dialog.Title)
			p.raw(`</h2><p>`)
			p.text(page.Dialog.Body)
			p.raw(`</p><form method="post" action="`)
			p.url(ConfirmPath)
			p.raw(`"><button type="submit">`)
			p.text(page.Dialog.Action)
			p.raw(`</button></form><form method="post" action="`)
			p.url(CancelPath)
			p.raw(`"><button type="submit">`)
			p.text(page.Dialog.Cancel)
			p.raw(`</button></form></dialog>`)
		}

		p.raw(`</main></body></html>`)
		return p.err
	})
}

func renderTile(p *printer, page GridPage, tile DeckTile) {
	p.raw(`<li class="deck`)
	if tile.Selected {
		p.raw(` deck-selected`)
	}
	p.raw(`" data-deck-id="`)
	p.text(tile.ID)
	p.raw(`"><h3>`)
	p.text(tile.Title)
	p.raw(`</h3>`)
	if tile.Description != "" {
		p.raw(`<p class="deck-description">`)
		p.text(tile.Description)
		p.raw(`</p>`)
	}
	p.raw(`<p class="deck-count">`)
	p.text(tile.CardCount)
	p.raw(`</p>`)
	if tile.TopCardFront != "" {
		p.raw(`<p class="deck-preview"><span>`)
		p.text(page.PreviewLabel)
		p.raw(`</span> `)
		p.text(tile.TopCardFront)
		p.raw(`</p>`)
	}
	p.raw(`<form method="post" action="`)
	p.url(TogglePath(tile.ID))
	p.raw(`"><button type="submit" aria-pressed="`)
	p.raw(fmt.Sprint(tile.Selected))
	p.raw(`">`)
	p.text(tile.ToggleLabel)
	p.raw(`</button></form><form method="post" action="`)
	p.url(DeletePath(tile.ID))
	p.raw(`"><button type="submit"`)
	if tile.Deleting {
		p.raw(` disabled`)
	}
	p.raw(`>`)
	p.text(page.DeleteLabel)
	p.raw(`</button></form></li>`)
}

// printer writes markup and keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *printer) url(s string) {
	p.text(string(templ.URL(s)))
}
