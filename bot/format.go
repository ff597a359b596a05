package bot

import (
	"fmt"
	"html"
	"strings"

	"moviemate/models"
	"moviemate/services/catalog"
	"moviemate/services/watchlist"
)

const overviewLimit = 300

// formatCard renders one catalog result as an HTML message body.
func formatCard(c catalog.Canonical) string {
	var b strings.Builder

	b.WriteString("<b>")
	b.WriteString(html.EscapeString(c.Title))
	b.WriteString("</b>")
	if c.ReleaseYear != "" {
		b.WriteString(" (" + c.ReleaseYear + ")")
	}
	b.WriteString("\n")

	if c.MediaKind == models.MediaKindTV {
		b.WriteString("📺 Series")
	} else {
		b.WriteString("🎬 Movie")
	}
	if c.Rating != nil {
		b.WriteString(fmt.Sprintf(" · ⭐ %.1f", *c.Rating))
	}
	b.WriteString("\n")

	if len(c.Genres) > 0 {
		b.WriteString(html.EscapeString(strings.Join(c.Genres, ", ")))
		b.WriteString("\n")
	}
	if c.Overview != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(shorten(c.Overview, overviewLimit)))
		b.WriteString("\n")
	}
	if c.PosterURL != "" {
		b.WriteString(fmt.Sprintf("\n<a href=\"%s\">🖼</a>", c.PosterURL))
	}

	return b.String()
}

// formatDetails is the expanded card shown behind the Details button.
func formatDetails(c catalog.Canonical) string {
	var b strings.Builder

	b.WriteString(formatCard(c))

	var extra []string
	if c.OriginalTitle != "" && c.OriginalTitle != c.Title {
		extra = append(extra, "Original title: "+html.EscapeString(c.OriginalTitle))
	}
	if c.RuntimeMin > 0 {
		extra = append(extra, fmt.Sprintf("Runtime: %d min", c.RuntimeMin))
	}
	if c.VoteCount > 0 {
		extra = append(extra, fmt.Sprintf("Votes: %d", c.VoteCount))
	}
	if c.Status != "" {
		extra = append(extra, "Status: "+html.EscapeString(c.Status))
	}

	if len(extra) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(extra, "\n"))
	}
	return b.String()
}

// formatWatchlist renders the saved entries, newest first, numbered to match the
// keyboard rows underneath.
func formatWatchlist(entries []models.WatchlistEntry) string {
	var b strings.Builder
	b.WriteString("<b>Your watchlist</b>\n\n")

	for i, e := range entries {
		b.WriteString(fmt.Sprintf("%d. %s", i+1, html.EscapeString(e.Movie.Title)))
		if year := e.Movie.ReleaseYear(); year != "" {
			b.WriteString(" (" + year + ")")
		}
		b.WriteString(fmt.Sprintf(" — added %s\n", e.AddedAt.Format("02 Jan")))
	}

	return b.String()
}

func formatStats(stats watchlist.Stats) string {
	if stats.Total == 0 {
		return "No titles saved yet. Search for something to get started."
	}
	return fmt.Sprintf("Saved: %d\nWatched: %d\nStill to watch: %d",
		stats.Total, stats.Watched, stats.Total-stats.Watched)
}
