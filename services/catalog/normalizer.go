package catalog

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"moviemate/models"
)

// ErrMissingIdentifier is returned when an upstream record carries no usable id under
// any known alias. It is the only fatal normalization outcome; every other field
// degrades to a default.
var ErrMissingIdentifier = errors.New("upstream record has no recognizable identifier")

// tmdbImageHost resolves relative poster paths ("/abc.jpg") into absolute URLs.
const tmdbImageHost = "https://image.tmdb.org/t/p/w500"

// placeholderTitle is used when every title alias is empty.
const placeholderTitle = "Untitled"

// Record is a single upstream movie/show object as decoded from provider JSON. The key
// set varies by provider and endpoint; unknown keys are ignored.
type Record map[string]any

// Canonical is the provider-agnostic movie representation. ProviderID is always set;
// everything else is best-effort.
type Canonical struct {
	ProviderID    int64    `json:"providerId"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"originalTitle,omitempty"`
	ReleaseDate   string   `json:"releaseDate,omitempty"`
	ReleaseYear   string   `json:"releaseYear,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	PosterURL     string   `json:"posterUrl,omitempty"`
	MediaKind     string   `json:"mediaKind"`
	Genres        []string `json:"genres,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	VoteCount     int      `json:"voteCount,omitempty"`
	Popularity    float64  `json:"popularity,omitempty"`
	RuntimeMin    int      `json:"runtimeMin,omitempty"`
	Status        string   `json:"status,omitempty"`
}

// Ordered alias tables, one per canonical field. The first alias that yields a usable
// value wins. TMDB names come first, Kinopoisk names second.
var (
	idAliases            = []string{"id", "filmId", "kinopoiskId"}
	titleAliases         = []string{"title", "name", "nameRu", "nameEn", "nameOriginal"}
	originalTitleAliases = []string{"original_title", "original_name", "nameOriginal", "nameEn"}
	dateAliases          = []string{"release_date", "first_air_date", "year", "premiereWorld"}
	overviewAliases      = []string{"overview", "description", "shortDescription"}
	posterAliases        = []string{"poster_path", "poster_url", "posterUrl", "posterUrlPreview"}
	ratingAliases        = []string{"vote_average", "rating", "ratingKinopoisk"}
	voteCountAliases     = []string{"vote_count", "ratingVoteCount"}
	runtimeAliases       = []string{"runtime", "filmLength"}
)

// Kinopoisk "type" values that classify a record as a series.
var tvTypes = map[string]bool{
	"TV_SERIES":   true,
	"TV_SHOW":     true,
	"MINI_SERIES": true,
}

// Normalize converts one upstream record into the canonical shape. It is a pure
// transformation: missing optional fields fall back to defaults, and the only possible
// error is ErrMissingIdentifier.
func Normalize(rec Record) (Canonical, error) {
	id, ok := firstInt(rec, idAliases)
	if !ok {
		return Canonical{}, ErrMissingIdentifier
	}

	c := Canonical{
		ProviderID:    id,
		Title:         firstString(rec, titleAliases),
		OriginalTitle: firstString(rec, originalTitleAliases),
		ReleaseDate:   firstString(rec, dateAliases),
		Overview:      firstString(rec, overviewAliases),
		PosterURL:     normalizePoster(firstString(rec, posterAliases)),
		MediaKind:     classifyMediaKind(rec),
		Genres:        normalizeGenres(rec["genres"]),
		Rating:        firstFloatPtr(rec, ratingAliases),
		Popularity:    floatOrZero(rec["popularity"]),
		Status:        stringValue(rec["status"]),
	}

	if c.Title == "" {
		c.Title = placeholderTitle
	}
	if len(c.ReleaseDate) >= 4 {
		c.ReleaseYear = c.ReleaseDate[:4]
	}
	if n, ok := firstInt(rec, voteCountAliases); ok {
		c.VoteCount = int(n)
	}
	if n, ok := firstInt(rec, runtimeAliases); ok {
		c.RuntimeMin = int(n)
	}

	return c, nil
}

// classifyMediaKind resolves the {movie, tv} split across both provider shapes.
// Anything ambiguous defaults to movie.
func classifyMediaKind(rec Record) string {
	switch stringValue(rec["media_type"]) {
	case models.MediaKindMovie:
		return models.MediaKindMovie
	case models.MediaKindTV:
		return models.MediaKindTV
	}

	if t := stringValue(rec["type"]); t != "" {
		if tvTypes[strings.ToUpper(t)] {
			return models.MediaKindTV
		}
		return models.MediaKindMovie
	}

	// TMDB tv details carry name/first_air_date where movies carry title/release_date.
	if stringValue(rec["first_air_date"]) != "" {
		return models.MediaKindTV
	}
	if stringValue(rec["title"]) == "" && stringValue(rec["name"]) != "" {
		return models.MediaKindTV
	}

	return models.MediaKindMovie
}

func normalizePoster(path string) string {
	if strings.HasPrefix(path, "/") {
		return tmdbImageHost + path
	}
	return path
}

// normalizeGenres accepts either a list of strings or a list of objects keyed by
// "name" (TMDB) or "genre" (Kinopoisk).
func normalizeGenres(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	var genres []string
	for _, item := range items {
		switch g := item.(type) {
		case string:
			if g != "" {
				genres = append(genres, g)
			}
		case map[string]any:
			name := stringValue(g["name"])
			if name == "" {
				name = stringValue(g["genre"])
			}
			if name != "" {
				genres = append(genres, name)
			}
		}
	}
	return genres
}

func firstString(rec Record, aliases []string) string {
	for _, key := range aliases {
		if s := stringValue(rec[key]); s != "" {
			return s
		}
	}
	return ""
}

func firstInt(rec Record, aliases []string) (int64, bool) {
	for _, key := range aliases {
		if n, ok := intValue(rec[key]); ok {
			return n, true
		}
	}
	return 0, false
}

func firstFloatPtr(rec Record, aliases []string) *float64 {
	for _, key := range aliases {
		if f, ok := floatValue(rec[key]); ok {
			return &f
		}
	}
	return nil
}

// stringValue renders scalar JSON values as strings; numbers lose no precision
// (Kinopoisk reports year as a bare number).
func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// floatValue parses defensively: the upstream is trusted for range, only type safety
// is enforced. Empty and non-numeric values report !ok, never an error.
func floatValue(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	case json.Number:
		parsed, err := f.Float64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func floatOrZero(v any) float64 {
	f, _ := floatValue(v)
	return f
}
