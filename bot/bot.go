package bot

import (
	"context"
	"log"
	"time"

	"github.com/sourcegraph/conc/pool"

	"moviemate/internal/telegram"
	"moviemate/services/catalog"
	"moviemate/services/watchlist"
)

const (
	defaultPageSize    = 5
	defaultPollTimeout = 30 * time.Second
	updateWorkers      = 8
	handleTimeout      = 30 * time.Second
)

// Bot routes Telegram updates to the catalog and watchlist services. It works both as
// a long-poll loop (Run) and as a webhook sink (Submit).
type Bot struct {
	tg       *telegram.Client
	catalog  *catalog.Service
	store    *watchlist.Service
	pageSize int
	workers  *pool.Pool
}

// New assembles a bot over the given transport and services. pageSize caps search and
// watchlist output; zero means the default.
func New(tg *telegram.Client, catalogSvc *catalog.Service, store *watchlist.Service, pageSize int) *Bot {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Bot{
		tg:       tg,
		catalog:  catalogSvc,
		store:    store,
		pageSize: pageSize,
		workers:  pool.New().WithMaxGoroutines(updateWorkers),
	}
}

// Run long-polls getUpdates until ctx is cancelled, fanning updates out to a bounded
// worker pool so one slow provider call does not stall the queue.
func (b *Bot) Run(ctx context.Context) error {
	log.Printf("[bot] polling for updates")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		updates, err := b.tg.GetUpdates(ctx, offset, defaultPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[bot] getUpdates failed: %v", err)
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			b.Submit(upd)
		}
	}
}

// Submit queues one update for processing. Used by both the poll loop and the webhook.
func (b *Bot) Submit(upd telegram.Update) {
	b.workers.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		b.dispatch(ctx, upd)
	})
}

// Close drains in-flight update handlers.
func (b *Bot) Close() {
	b.workers.Wait()
}

func (b *Bot) dispatch(ctx context.Context, upd telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[bot] PANIC handling update %d: %v", upd.UpdateID, r)
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil && !upd.Message.From.IsBot:
		b.handleMessage(ctx, upd.Message)
	}
}
