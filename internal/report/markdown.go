// Package report renders captured deals as a Markdown page.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"grocery_deals/internal/models"
)

// HistoryLimit is how many snapshot links the History section lists.
const HistoryLimit = 10

const (
	noMatchesLine = "- (no matches for your keywords)"
	noHistoryLine = "- (no history yet)"
	disclaimer    = "> Data comes from each store's public weekly ad and sales pages. For personal tracking only."
)

// Report is everything one rendered page shows.
type Report struct {
	Location  string
	UpdatedAt time.Time
	// Groups are rendered in the order given.
	Groups []models.StoreDeals
	// History holds link targets of recent snapshots, newest first.
	History []string
}

// Render produces the Markdown document.
func Render(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Grocery Deals @ %s\n", r.Location)
	fmt.Fprintf(&b, "_Last updated: %s_\n\n", r.UpdatedAt.UTC().Format("2006-01-02 15:04 UTC"))

	b.WriteString("## Stores Searched\n")
	for _, g := range r.Groups {
		fmt.Fprintf(&b, "- %s\n", g.Store)
	}
	b.WriteString("\n## Matches\n")
	for _, g := range r.Groups {
		fmt.Fprintf(&b, "### %s\n", g.Store)
		if len(g.Deals) == 0 {
			b.WriteString(noMatchesLine + "\n")
		}
		for _, d := range g.Deals {
			b.WriteString(dealLine(d) + "\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## History (recent %d days)\n", HistoryLimit)
	if len(r.History) == 0 {
		b.WriteString(noHistoryLine + "\n")
	}
	for _, link := range r.History {
		fmt.Fprintf(&b, "- [%s](%s)\n", filepath.Base(link), link)
	}
	b.WriteString("\n" + disclaimer + "\n")
	return b.String()
}

func dealLine(d models.Deal) string {
	line := fmt.Sprintf("- **%s** → %s", d.Product, d.PromoText)
	var extra []string
	if d.Price != "" {
		extra = append(extra, "$"+d.Price)
	}
	if d.Unit != "" {
		extra = append(extra, d.Unit)
	}
	if len(extra) > 0 {
		line += " (" + strings.Join(extra, ", ") + ")"
	}
	return line
}

// HistoryLinks turns snapshot paths into links relative to the report at
// reportPath. Paths that cannot be made relative are kept as they are.
func HistoryLinks(reportPath string, snapshots []string) []string {
	base := filepath.Dir(reportPath)
	links := make([]string, 0, len(snapshots))
	for _, p := range snapshots {
		rel, err := filepath.Rel(base, p)
		if err != nil {
			rel = p
		}
		links = append(links, filepath.ToSlash(rel))
	}
	return links
}

// WriteFile renders r to path, creating the parent directory when needed.
func WriteFile(path string, r Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Render(r)), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
