package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"moviemate/internal/telegram"
)

type recordingSink struct {
	updates []telegram.Update
}

func (s *recordingSink) Submit(upd telegram.Update) {
	s.updates = append(s.updates, upd)
}

func newTestRouter(sink *recordingSink) *mux.Router {
	r := mux.NewRouter()
	NewWebhookHandler("s3cret", sink).Register(r)
	return r
}

func TestReceiveQueuesUpdate(t *testing.T) {
	sink := &recordingSink{}
	router := newTestRouter(sink)

	body := `{"update_id":99,"message":{"message_id":1,"chat":{"id":5,"type":"private"},"text":"hi"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/s3cret", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(sink.updates) != 1 || sink.updates[0].UpdateID != 99 {
		t.Fatalf("update not queued: %+v", sink.updates)
	}
}

func TestReceiveRejectsWrongSecretPath(t *testing.T) {
	sink := &recordingSink{}
	router := newTestRouter(sink)

	req := httptest.NewRequest(http.MethodPost, "/webhook/guess", strings.NewReader(`{"update_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(sink.updates) != 0 {
		t.Fatalf("update must not be queued for wrong secret")
	}
}

func TestReceiveRejectsMismatchedSecretHeader(t *testing.T) {
	sink := &recordingSink{}
	router := newTestRouter(sink)

	req := httptest.NewRequest(http.MethodPost, "/webhook/s3cret", strings.NewReader(`{"update_id":1}`))
	req.Header.Set(secretTokenHeader, "other")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if len(sink.updates) != 0 {
		t.Fatalf("update must not be queued for mismatched header")
	}
}

func TestReceiveRejectsMalformedBody(t *testing.T) {
	sink := &recordingSink{}
	router := newTestRouter(sink)

	req := httptest.NewRequest(http.MethodPost, "/webhook/s3cret", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(sink.updates) != 0 {
		t.Fatalf("update must not be queued for malformed body")
	}
}
