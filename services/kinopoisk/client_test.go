package kinopoisk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchSendsAPIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2.1/films/search-by-keyword" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("X-API-KEY"); got != "kp-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		if got := r.URL.Query().Get("keyword"); got != "матрица" {
			t.Errorf("unexpected keyword %q", got)
		}

		w.Write([]byte(`{"films":[{"filmId":301,"nameRu":"Матрица","year":1999,"rating":"8.7"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "kp-key")
	records, err := client.Search(context.Background(), "матрица")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["nameRu"] != "Матрица" {
		t.Fatalf("unexpected record %v", records[0])
	}
}

func TestDetailsAndSimilarPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/v2.2/films/301/similars" {
			w.Write([]byte(`{"total":1,"items":[{"filmId":302,"nameRu":"Матрица 2"}]}`))
			return
		}
		w.Write([]byte(`{"kinopoiskId":301,"nameRu":"Матрица"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k")

	rec, err := client.Details(context.Background(), 301, "movie")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if rec["nameRu"] != "Матрица" {
		t.Fatalf("unexpected details record %v", rec)
	}

	similars, err := client.Similar(context.Background(), 301, "movie")
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(similars) != 1 {
		t.Fatalf("expected 1 similar, got %d", len(similars))
	}

	if paths[0] != "/v2.2/films/301" || paths[1] != "/v2.2/films/301/similars" {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestPopularRequestsTop100(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2.2/films/top" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != "TOP_100_POPULAR_FILMS" {
			t.Errorf("unexpected chart type %q", got)
		}
		w.Write([]byte(`{"films":[{"filmId":2,"nameRu":"Популярное"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k")
	films, err := client.Popular(context.Background())
	if err != nil {
		t.Fatalf("popular: %v", err)
	}
	if len(films) != 1 {
		t.Fatalf("expected 1 film, got %d", len(films))
	}
}

func TestByGenreFiltersAndOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2.2/films" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("genres") != "6" || q.Get("order") != "RATING" {
			t.Errorf("unexpected filter params %v", q)
		}
		w.Write([]byte(`{"items":[{"kinopoiskId":77,"nameRu":"Хоррор"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k")
	films, err := client.ByGenre(context.Background(), 6)
	if err != nil {
		t.Fatalf("by genre: %v", err)
	}
	if len(films) != 1 {
		t.Fatalf("expected 1 film, got %d", len(films))
	}
}

func TestTopRatedRequestsTop250(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2.2/films/top" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != "TOP_250_BEST_FILMS" {
			t.Errorf("unexpected chart type %q", got)
		}
		w.Write([]byte(`{"films":[{"filmId":1,"nameRu":"Топ"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k")
	films, err := client.TopRated(context.Background())
	if err != nil {
		t.Fatalf("top rated: %v", err)
	}
	if len(films) != 1 {
		t.Fatalf("expected 1 film, got %d", len(films))
	}
}
