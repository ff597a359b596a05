package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"moviemate/services/catalog"
)

// DefaultBaseURL is the production TMDB API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

const defaultLanguage = "ru-RU"

// Client handles requests against the TMDB v3 API using a bearer token.
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
}

// NewClient creates a TMDB client. baseURL is usually DefaultBaseURL; tests point it
// at a local server.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the provider in logs and config.
func (c *Client) Name() string {
	return "tmdb"
}

// Search runs a multi search across movies and series.
func (c *Client) Search(ctx context.Context, query string) ([]catalog.Record, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("include_adult", "false")

	var result struct {
		Results []catalog.Record `json:"results"`
	}
	if err := c.getJSON(ctx, "/search/multi", params, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// Details fetches a single movie or series by id. kind is "movie" or "tv".
func (c *Client) Details(ctx context.Context, id int64, kind string) (catalog.Record, error) {
	var record catalog.Record
	path := fmt.Sprintf("/%s/%d", mediaPath(kind), id)
	if err := c.getJSON(ctx, path, url.Values{}, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// Similar fetches titles related to the given one.
func (c *Client) Similar(ctx context.Context, id int64, kind string) ([]catalog.Record, error) {
	params := url.Values{}
	params.Set("page", "1")

	var result struct {
		Results []catalog.Record `json:"results"`
	}
	path := fmt.Sprintf("/%s/%d/similar", mediaPath(kind), id)
	if err := c.getJSON(ctx, path, params, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// TopRated returns the first page of the top-rated movie chart.
func (c *Client) TopRated(ctx context.Context) ([]catalog.Record, error) {
	return c.moviePage(ctx, "/movie/top_rated")
}

// Popular returns the first page of the popular movie chart.
func (c *Client) Popular(ctx context.Context) ([]catalog.Record, error) {
	return c.moviePage(ctx, "/movie/popular")
}

// movieGenres is TMDB's movie genre taxonomy, fixed upstream for years; keeping it
// static saves a startup round trip to /genre/movie/list.
var movieGenres = []catalog.Genre{
	{ID: 28, Name: "Action"},
	{ID: 16, Name: "Animation"},
	{ID: 35, Name: "Comedy"},
	{ID: 80, Name: "Crime"},
	{ID: 18, Name: "Drama"},
	{ID: 14, Name: "Fantasy"},
	{ID: 27, Name: "Horror"},
	{ID: 10749, Name: "Romance"},
	{ID: 878, Name: "Sci-Fi"},
	{ID: 53, Name: "Thriller"},
}

// Genres lists the browsable movie genres.
func (c *Client) Genres() []catalog.Genre {
	return movieGenres
}

// ByGenre returns the best-rated first page of movies in one genre via discover.
func (c *Client) ByGenre(ctx context.Context, genreID int) ([]catalog.Record, error) {
	params := url.Values{}
	params.Set("with_genres", strconv.Itoa(genreID))
	params.Set("sort_by", "vote_average.desc")
	params.Set("vote_count.gte", "200")
	params.Set("page", "1")

	var result struct {
		Results []catalog.Record `json:"results"`
	}
	if err := c.getJSON(ctx, "/discover/movie", params, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (c *Client) moviePage(ctx context.Context, path string) ([]catalog.Record, error) {
	params := url.Values{}
	params.Set("page", "1")

	var result struct {
		Results []catalog.Record `json:"results"`
	}
	if err := c.getJSON(ctx, path, params, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func mediaPath(kind string) string {
	if kind == "tv" {
		return "tv"
	}
	return "movie"
}

// getJSON performs a GET with auth headers, retrying transient failures. 4xx responses
// other than 429 are not retried.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("language", c.language)
	endpoint := c.baseURL + path + "?" + params.Encode()

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("Authorization", "Bearer "+c.apiKey)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("http request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
				return fmt.Errorf("tmdb status %d for %s", resp.StatusCode, path)
			}
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				return retry.Unrecoverable(fmt.Errorf("tmdb status %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body))))
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
			log.Printf("[tmdb] retry %s attempt %d: %v", path, n+1, err)
		}),
	)
}
