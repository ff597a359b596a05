package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"moviemate/internal/telegram"
	"moviemate/models"
	"moviemate/services/catalog"
	"moviemate/services/watchlist"
)

// Replies for the routine failure paths. Storage faults never leak internals.
const (
	replyStoreDown     = "The library is unreachable right now. Please try again later."
	replyUnsaveable    = "That result can't be saved — try picking a different one."
	replyNothingFound  = "Nothing found. Try a different title."
	replyEmptyList     = "Your watchlist is empty. Search for a movie to add one."
	replyUnknownButton = "This button has expired."
)

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	user, err := b.store.GetOrCreateUser(ctx, msg.From.ID, msg.From.Username,
		msg.From.FirstName, msg.From.LastName, localeFor(msg.From.LanguageCode))
	if err != nil {
		b.reply(ctx, msg.Chat.ID, replyStoreDown)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if !strings.HasPrefix(text, "/") {
		b.handleSearch(ctx, msg.Chat.ID, text)
		return
	}

	command, args := splitCommand(text)
	switch command {
	case "/start":
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf(
			"Hi, %s! Send me a movie or series title and I'll look it up.\nUse /help to see everything I can do.",
			user.DisplayName()))
	case "/help":
		b.reply(ctx, msg.Chat.ID, helpText)
	case "/search":
		if args == "" {
			b.reply(ctx, msg.Chat.ID, "Usage: /search <title>")
			return
		}
		b.handleSearch(ctx, msg.Chat.ID, args)
	case "/similar":
		if args == "" {
			b.reply(ctx, msg.Chat.ID, "Usage: /similar <title>")
			return
		}
		b.handleSimilarQuery(ctx, msg.Chat.ID, args)
	case "/watchlist":
		b.sendWatchlist(ctx, msg.Chat.ID, user.ID)
	case "/top":
		b.handleTop(ctx, msg.Chat.ID)
	case "/popular":
		b.handlePopular(ctx, msg.Chat.ID)
	case "/genre":
		b.sendGenreMenu(ctx, msg.Chat.ID)
	case "/random":
		b.handleRandom(ctx, msg.Chat.ID)
	case "/stats":
		b.handleStats(ctx, msg.Chat.ID, user.ID)
	default:
		b.reply(ctx, msg.Chat.ID, "Unknown command. Use /help.")
	}
}

const helpText = `What I can do:
/search <title> — find a movie or series (or just send me the title)
/similar <title> — titles like the one you name
/watchlist — your saved titles
/top — top-rated chart
/popular — what everyone is watching
/genre — browse by genre
/random — pick something for tonight
/stats — your watching numbers`

func (b *Bot) handleSearch(ctx context.Context, chatID int64, query string) {
	results, err := b.catalog.Search(ctx, query)
	if err != nil {
		log.Printf("[bot] search %q failed: %v", query, err)
		b.reply(ctx, chatID, "Search is unavailable right now. Please try again later.")
		return
	}
	if len(results) == 0 {
		b.reply(ctx, chatID, replyNothingFound)
		return
	}

	b.sendCards(ctx, chatID, results)
}

// handleSimilarQuery resolves the query to its best match first, then shows what is
// related to that match.
func (b *Bot) handleSimilarQuery(ctx context.Context, chatID int64, query string) {
	results, err := b.catalog.Search(ctx, query)
	if err != nil {
		log.Printf("[bot] similar search %q failed: %v", query, err)
		b.reply(ctx, chatID, "Search is unavailable right now. Please try again later.")
		return
	}
	if len(results) == 0 {
		b.reply(ctx, chatID, replyNothingFound)
		return
	}

	seed := results[0]
	similar, err := b.catalog.Similar(ctx, seed.ProviderID, seed.MediaKind)
	if err != nil {
		log.Printf("[bot] similar for %d failed: %v", seed.ProviderID, err)
		b.reply(ctx, chatID, "Similar titles are unavailable right now.")
		return
	}
	if len(similar) == 0 {
		b.reply(ctx, chatID, fmt.Sprintf("No titles similar to %q found.", seed.Title))
		return
	}

	b.sendCards(ctx, chatID, similar)
}

func (b *Bot) handleTop(ctx context.Context, chatID int64) {
	results, err := b.catalog.TopRated(ctx)
	if err != nil {
		log.Printf("[bot] top rated failed: %v", err)
		b.reply(ctx, chatID, "The chart is unavailable right now. Please try again later.")
		return
	}
	if len(results) == 0 {
		b.reply(ctx, chatID, replyNothingFound)
		return
	}

	b.sendCards(ctx, chatID, results)
}

func (b *Bot) handlePopular(ctx context.Context, chatID int64) {
	results, err := b.catalog.Popular(ctx)
	if err != nil {
		log.Printf("[bot] popular failed: %v", err)
		b.reply(ctx, chatID, "The chart is unavailable right now. Please try again later.")
		return
	}
	if len(results) == 0 {
		b.reply(ctx, chatID, replyNothingFound)
		return
	}

	b.sendCards(ctx, chatID, results)
}

func (b *Bot) sendGenreMenu(ctx context.Context, chatID int64) {
	genres := b.catalog.Genres()
	if len(genres) == 0 {
		b.reply(ctx, chatID, replyNothingFound)
		return
	}

	err := b.tg.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        "Pick a genre:",
		ReplyMarkup: genreKeyboard(genres),
	})
	if err != nil {
		log.Printf("[bot] send genre menu failed: %v", err)
	}
}

func (b *Bot) handleRandom(ctx context.Context, chatID int64) {
	pick, err := b.catalog.Random(ctx)
	if err != nil {
		log.Printf("[bot] random pick failed: %v", err)
		b.reply(ctx, chatID, "No luck picking a title right now. Please try again later.")
		return
	}

	b.sendCard(ctx, chatID, pick)
}

func (b *Bot) handleStats(ctx context.Context, chatID, userID int64) {
	stats, err := b.store.UserStats(ctx, userID)
	if err != nil {
		b.reply(ctx, chatID, replyStoreDown)
		return
	}
	b.reply(ctx, chatID, formatStats(stats))
}

func (b *Bot) sendCards(ctx context.Context, chatID int64, results []catalog.Canonical) {
	if len(results) > b.pageSize {
		results = results[:b.pageSize]
	}
	for _, c := range results {
		b.sendCard(ctx, chatID, c)
	}
}

func (b *Bot) sendCard(ctx context.Context, chatID int64, c catalog.Canonical) {
	err := b.tg.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:                chatID,
		Text:                  formatCard(c),
		ParseMode:             "HTML",
		DisableWebPagePreview: c.PosterURL == "",
		ReplyMarkup:           resultKeyboard(c),
	})
	if err != nil {
		log.Printf("[bot] send card failed: %v", err)
	}
}

func (b *Bot) sendWatchlist(ctx context.Context, chatID, userID int64) {
	entries, err := b.store.List(ctx, userID, b.pageSize, true)
	if err != nil {
		b.reply(ctx, chatID, replyStoreDown)
		return
	}
	if len(entries) == 0 {
		b.reply(ctx, chatID, replyEmptyList)
		return
	}

	err = b.tg.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        formatWatchlist(entries),
		ParseMode:   "HTML",
		ReplyMarkup: watchlistKeyboard(entries),
	})
	if err != nil {
		log.Printf("[bot] send watchlist failed: %v", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	user, err := b.store.GetOrCreateUser(ctx, cb.From.ID, cb.From.Username,
		cb.From.FirstName, cb.From.LastName, localeFor(cb.From.LanguageCode))
	if err != nil {
		b.answer(ctx, cb.ID, replyStoreDown)
		return
	}

	action, err := parseCallback(cb.Data)
	if err != nil {
		b.answer(ctx, cb.ID, replyUnknownButton)
		return
	}

	switch action.Verb {
	case verbAdd:
		b.callbackAdd(ctx, cb, user, action)
	case verbInfo:
		b.callbackInfo(ctx, cb, action)
	case verbSimilar:
		b.callbackSimilar(ctx, cb, action)
	case verbGenre:
		b.callbackGenre(ctx, cb, action)
	case verbWatched:
		b.callbackWatched(ctx, cb, user, action)
	case verbRemove:
		b.callbackRemove(ctx, cb, user, action)
	default:
		b.answer(ctx, cb.ID, replyUnknownButton)
	}
}

func (b *Bot) callbackAdd(ctx context.Context, cb *telegram.CallbackQuery, user *models.User, action callbackAction) {
	c, err := b.catalog.Details(ctx, action.ProviderID, action.Kind)
	if err != nil {
		if errors.Is(err, catalog.ErrMissingIdentifier) {
			b.answer(ctx, cb.ID, replyUnsaveable)
			return
		}
		b.answer(ctx, cb.ID, "The catalog is unreachable. Please try again later.")
		return
	}

	movie, err := b.store.FindOrCreateMovie(ctx, c)
	if err != nil {
		b.answer(ctx, cb.ID, replyStoreDown)
		return
	}

	outcome, err := b.store.Add(ctx, user.ID, movie.ID)
	if err != nil {
		b.answer(ctx, cb.ID, replyStoreDown)
		return
	}

	if outcome == watchlist.AddOutcomeAlreadyExists {
		b.answer(ctx, cb.ID, fmt.Sprintf("%q is already on your watchlist.", movie.Title))
		return
	}
	b.answer(ctx, cb.ID, fmt.Sprintf("Added %q to your watchlist.", movie.Title))
}

func (b *Bot) callbackInfo(ctx context.Context, cb *telegram.CallbackQuery, action callbackAction) {
	c, err := b.catalog.Details(ctx, action.ProviderID, action.Kind)
	if err != nil {
		b.answer(ctx, cb.ID, "Details are unavailable right now.")
		return
	}

	b.answer(ctx, cb.ID, "")
	if cb.Message != nil {
		b.replyHTML(ctx, cb.Message.Chat.ID, formatDetails(c))
	}
}

func (b *Bot) callbackSimilar(ctx context.Context, cb *telegram.CallbackQuery, action callbackAction) {
	results, err := b.catalog.Similar(ctx, action.ProviderID, action.Kind)
	if err != nil {
		b.answer(ctx, cb.ID, "Similar titles are unavailable right now.")
		return
	}

	b.answer(ctx, cb.ID, "")
	if cb.Message == nil {
		return
	}
	if len(results) == 0 {
		b.reply(ctx, cb.Message.Chat.ID, "No similar titles found.")
		return
	}
	b.sendCards(ctx, cb.Message.Chat.ID, results)
}

func (b *Bot) callbackGenre(ctx context.Context, cb *telegram.CallbackQuery, action callbackAction) {
	results, err := b.catalog.ByGenre(ctx, action.GenreID)
	if err != nil {
		b.answer(ctx, cb.ID, "That genre is unavailable right now.")
		return
	}

	b.answer(ctx, cb.ID, "")
	if cb.Message == nil {
		return
	}
	if len(results) == 0 {
		b.reply(ctx, cb.Message.Chat.ID, replyNothingFound)
		return
	}
	b.sendCards(ctx, cb.Message.Chat.ID, results)
}

func (b *Bot) callbackWatched(ctx context.Context, cb *telegram.CallbackQuery, user *models.User, action callbackAction) {
	ok, err := b.store.MarkWatched(ctx, action.EntryID, user.ID)
	if err != nil {
		b.answer(ctx, cb.ID, replyStoreDown)
		return
	}
	if !ok {
		b.answer(ctx, cb.ID, "That entry is not on your watchlist.")
		return
	}

	b.answer(ctx, cb.ID, "Marked as watched.")
	b.refreshWatchlistMessage(ctx, cb, user.ID)
}

func (b *Bot) callbackRemove(ctx context.Context, cb *telegram.CallbackQuery, user *models.User, action callbackAction) {
	ok, err := b.store.Remove(ctx, action.EntryID, user.ID)
	if err != nil {
		b.answer(ctx, cb.ID, replyStoreDown)
		return
	}
	if !ok {
		b.answer(ctx, cb.ID, "That entry is not on your watchlist.")
		return
	}

	b.answer(ctx, cb.ID, "Removed.")
	b.refreshWatchlistMessage(ctx, cb, user.ID)
}

// refreshWatchlistMessage rewrites the originating watchlist message after a mutation
// so the buttons always match persisted state.
func (b *Bot) refreshWatchlistMessage(ctx context.Context, cb *telegram.CallbackQuery, userID int64) {
	if cb.Message == nil {
		return
	}

	entries, err := b.store.List(ctx, userID, b.pageSize, true)
	if err != nil {
		return
	}

	text := formatWatchlist(entries)
	markup := watchlistKeyboard(entries)
	if len(entries) == 0 {
		text = replyEmptyList
		markup = nil
	}

	err = b.tg.EditMessageText(ctx, telegram.EditMessageTextRequest{
		ChatID:      cb.Message.Chat.ID,
		MessageID:   cb.Message.MessageID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: markup,
	})
	if err != nil {
		log.Printf("[bot] refresh watchlist message failed: %v", err)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.tg.SendMessage(ctx, telegram.SendMessageRequest{ChatID: chatID, Text: text}); err != nil {
		log.Printf("[bot] send message failed: %v", err)
	}
}

func (b *Bot) replyHTML(ctx context.Context, chatID int64, text string) {
	if err := b.tg.SendMessage(ctx, telegram.SendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"}); err != nil {
		log.Printf("[bot] send message failed: %v", err)
	}
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if err := b.tg.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		log.Printf("[bot] answer callback failed: %v", err)
	}
}

func splitCommand(text string) (string, string) {
	parts := strings.SplitN(text, " ", 2)
	command := parts[0]
	// Commands in groups arrive as /command@BotName.
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	if len(parts) == 2 {
		return command, strings.TrimSpace(parts[1])
	}
	return command, ""
}

// Callback data verbs. Payloads stay well under Telegram's 64-byte limit.
const (
	verbAdd     = "add"
	verbInfo    = "info"
	verbSimilar = "similar"
	verbGenre   = "genre"
	verbWatched = "watched"
	verbRemove  = "remove"
)

type callbackAction struct {
	Verb       string
	ProviderID int64
	EntryID    int64
	GenreID    int
	Kind       string
}

var errBadCallback = errors.New("malformed callback data")

// parseCallback decodes "verb:arg[:kind]" button payloads.
func parseCallback(data string) (callbackAction, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 || parts[0] == "" {
		return callbackAction{}, errBadCallback
	}

	action := callbackAction{Verb: parts[0]}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callbackAction{}, errBadCallback
	}

	switch action.Verb {
	case verbAdd, verbInfo, verbSimilar:
		action.ProviderID = id
		action.Kind = models.MediaKindMovie
		if len(parts) >= 3 && parts[2] == models.MediaKindTV {
			action.Kind = models.MediaKindTV
		}
	case verbGenre:
		action.GenreID = int(id)
	case verbWatched, verbRemove:
		action.EntryID = id
	default:
		return callbackAction{}, errBadCallback
	}

	return action, nil
}
