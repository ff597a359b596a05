package kinopoisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"moviemate/services/catalog"
)

// DefaultBaseURL is the unofficial Kinopoisk API root.
const DefaultBaseURL = "https://kinopoiskapiunofficial.tech/api"

// Client handles requests against the unofficial Kinopoisk API. Authentication is a
// static X-API-KEY header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Kinopoisk client. baseURL is usually DefaultBaseURL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the provider in logs and config.
func (c *Client) Name() string {
	return "kinopoisk"
}

// Search looks up films by keyword.
func (c *Client) Search(ctx context.Context, query string) ([]catalog.Record, error) {
	params := url.Values{}
	params.Set("keyword", query)
	params.Set("page", "1")

	var result struct {
		Films []catalog.Record `json:"films"`
	}
	if err := c.getJSON(ctx, "/v2.1/films/search-by-keyword", params, &result); err != nil {
		return nil, err
	}
	return result.Films, nil
}

// Details fetches one film. Kinopoisk ids are global, so kind is ignored.
func (c *Client) Details(ctx context.Context, id int64, _ string) (catalog.Record, error) {
	var record catalog.Record
	if err := c.getJSON(ctx, fmt.Sprintf("/v2.2/films/%d", id), url.Values{}, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// Similar fetches films related to the given one.
func (c *Client) Similar(ctx context.Context, id int64, _ string) ([]catalog.Record, error) {
	var result struct {
		Items []catalog.Record `json:"items"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/v2.2/films/%d/similars", id), url.Values{}, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// TopRated returns the first page of the top-250 chart.
func (c *Client) TopRated(ctx context.Context) ([]catalog.Record, error) {
	params := url.Values{}
	params.Set("type", "TOP_250_BEST_FILMS")
	params.Set("page", "1")

	var result struct {
		Films []catalog.Record `json:"films"`
	}
	if err := c.getJSON(ctx, "/v2.2/films/top", params, &result); err != nil {
		return nil, err
	}
	return result.Films, nil
}

// Popular returns the first page of the top-100 popular chart.
func (c *Client) Popular(ctx context.Context) ([]catalog.Record, error) {
	params := url.Values{}
	params.Set("type", "TOP_100_POPULAR_FILMS")
	params.Set("page", "1")

	var result struct {
		Films []catalog.Record `json:"films"`
	}
	if err := c.getJSON(ctx, "/v2.2/films/top", params, &result); err != nil {
		return nil, err
	}
	return result.Films, nil
}

// filmGenres mirrors the /v2.2/films/filters taxonomy for the genres the bot offers.
// Kept static; the ids are stable on the unofficial API.
var filmGenres = []catalog.Genre{
	{ID: 11, Name: "Action"},
	{ID: 7, Name: "Adventure"},
	{ID: 13, Name: "Comedy"},
	{ID: 3, Name: "Crime"},
	{ID: 5, Name: "Detective"},
	{ID: 2, Name: "Drama"},
	{ID: 12, Name: "Fantasy"},
	{ID: 17, Name: "Horror"},
	{ID: 4, Name: "Romance"},
	{ID: 6, Name: "Sci-Fi"},
}

// Genres lists the browsable film genres.
func (c *Client) Genres() []catalog.Genre {
	return filmGenres
}

// ByGenre returns the first page of films in one genre, best-rated first. Genre ids are
// Kinopoisk's own numeric taxonomy.
func (c *Client) ByGenre(ctx context.Context, genreID int) ([]catalog.Record, error) {
	params := url.Values{}
	params.Set("genres", fmt.Sprintf("%d", genreID))
	params.Set("order", "RATING")
	params.Set("page", "1")

	var result struct {
		Items []catalog.Record `json:"items"`
	}
	if err := c.getJSON(ctx, "/v2.2/films", params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("X-API-KEY", c.apiKey)
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("http request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
				return fmt.Errorf("kinopoisk status %d for %s", resp.StatusCode, path)
			}
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				return retry.Unrecoverable(fmt.Errorf("kinopoisk status %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body))))
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[kinopoisk] retry %s attempt %d: %v", path, n+1, err)
		}),
	)
}
