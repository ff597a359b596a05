package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"moviemate/bot"
	"moviemate/internal/telegram"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type updateSink interface {
	Submit(upd telegram.Update)
}

var _ updateSink = (*bot.Bot)(nil)

// WebhookHandler receives Telegram webhook deliveries and hands them to the bot's
// worker pool. Telegram expects a fast 200; processing happens off the request path.
type WebhookHandler struct {
	secret string
	sink   updateSink
}

// NewWebhookHandler builds a handler bound to the per-deployment secret path segment.
func NewWebhookHandler(secret string, sink updateSink) *WebhookHandler {
	return &WebhookHandler{secret: secret, sink: sink}
}

// Register mounts the webhook route on the router.
func (h *WebhookHandler) Register(r *mux.Router) {
	r.HandleFunc("/webhook/{secret}", h.Receive).Methods(http.MethodPost)
}

// Receive validates the secret path segment (and header, when Telegram sends it) and
// queues the update.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["secret"] != h.secret {
		http.NotFound(w, r)
		return
	}
	if token := r.Header.Get(secretTokenHeader); token != "" && token != h.secret {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var upd telegram.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&upd); err != nil {
		log.Printf("[webhook] bad update payload: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	h.sink.Submit(upd)
	w.WriteHeader(http.StatusOK)
}
