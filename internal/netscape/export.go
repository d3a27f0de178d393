package netscape

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

//go:embed templates/export.html.tmpl
var exportSource string

// The template does not escape on its own: every user value goes through esc.
var exportTemplate = template.Must(template.New("export").
	Funcs(template.FuncMap{"esc": Escape}).
	Parse(exportSource))

type exportCard struct {
	Title       string
	URL         string
	Description string
	Tags        []string
}

type exportPage struct {
	ExportedAt string
	Cards      []exportCard
}

// SerializeExport renders a standalone page with one card per bookmark.
func SerializeExport(bookmarks []domain.Bookmark, exportedAt time.Time) (string, error) {
	page := exportPage{
		ExportedAt: exportedAt.Format("January 02, 2006 at 03:04 PM"),
		Cards:      make([]exportCard, 0, len(bookmarks)),
	}
	for _, bm := range bookmarks {
		card := exportCard{
			Title:       bm.Title,
			URL:         bm.URL,
			Description: strings.TrimSpace(bm.Description),
			Tags:        bm.Tags,
		}
		if strings.TrimSpace(card.Title) == "" {
			card.Title = domain.UntitledTitle
		}
		if card.URL == "" {
			card.URL = "#"
		}
		page.Cards = append(page.Cards, card)
	}

	var b strings.Builder
	if err := exportTemplate.Execute(&b, page); err != nil {
		return "", fmt.Errorf("failed to render export page: %w", err)
	}
	return b.String(), nil
}
