package bot

import (
	"fmt"

	"moviemate/internal/telegram"
	"moviemate/models"
	"moviemate/services/catalog"
)

func resultKeyboard(c catalog.Canonical) *telegram.InlineKeyboardMarkup {
	key := fmt.Sprintf("%d:%s", c.ProviderID, c.MediaKind)
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				{Text: "💾 Watch later", CallbackData: verbAdd + ":" + key},
				{Text: "🎯 Similar", CallbackData: verbSimilar + ":" + key},
			},
			{
				{Text: "📝 Details", CallbackData: verbInfo + ":" + key},
			},
		},
	}
}

// genreKeyboard lays the genre menu out two buttons per row.
func genreKeyboard(genres []catalog.Genre) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for i := 0; i < len(genres); i += 2 {
		row := []telegram.InlineKeyboardButton{
			{Text: genres[i].Name, CallbackData: fmt.Sprintf("%s:%d", verbGenre, genres[i].ID)},
		}
		if i+1 < len(genres) {
			row = append(row, telegram.InlineKeyboardButton{
				Text:         genres[i+1].Name,
				CallbackData: fmt.Sprintf("%s:%d", verbGenre, genres[i+1].ID),
			})
		}
		rows = append(rows, row)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func watchlistKeyboard(entries []models.WatchlistEntry) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []telegram.InlineKeyboardButton{
			{Text: "✅ " + shorten(e.Movie.Title, 24), CallbackData: fmt.Sprintf("%s:%d", verbWatched, e.ID)},
			{Text: "🗑", CallbackData: fmt.Sprintf("%s:%d", verbRemove, e.ID)},
		})
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func shorten(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
