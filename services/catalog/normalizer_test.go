package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTMDBShape(t *testing.T) {
	rec := Record{
		"id":           float64(301),
		"title":        "The Matrix",
		"release_date": "1999-03-31",
		"vote_average": "8.7",
	}

	c, err := Normalize(rec)
	require.NoError(t, err)

	assert.Equal(t, int64(301), c.ProviderID)
	assert.Equal(t, "The Matrix", c.Title)
	assert.Equal(t, "1999", c.ReleaseYear)
	require.NotNil(t, c.Rating)
	assert.InDelta(t, 8.7, *c.Rating, 0.0001)
	assert.Equal(t, "movie", c.MediaKind)
}

func TestNormalizeKinopoiskShape(t *testing.T) {
	rec := Record{
		"filmId": float64(301),
		"nameRu": "Матрица",
		"year":   float64(1999),
		"rating": "8.7",
	}

	c, err := Normalize(rec)
	require.NoError(t, err)

	assert.Equal(t, int64(301), c.ProviderID)
	assert.Equal(t, "Матрица", c.Title)
	assert.Equal(t, "1999", c.ReleaseYear)
	require.NotNil(t, c.Rating)
	assert.InDelta(t, 8.7, *c.Rating, 0.0001)
}

func TestNormalizeMissingIdentifier(t *testing.T) {
	_, err := Normalize(Record{"title": "Untitled Draft"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingIdentifier))
}

func TestNormalizeTitleFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
		want string
	}{
		{"prefers title", Record{"id": 1.0, "title": "A", "name": "B"}, "A"},
		{"falls back to name", Record{"id": 1.0, "name": "B"}, "B"},
		{"falls back to nameRu", Record{"id": 1.0, "nameRu": "В"}, "В"},
		{"falls back to nameEn", Record{"id": 1.0, "nameEn": "D"}, "D"},
		{"placeholder when all empty", Record{"id": 1.0, "title": ""}, "Untitled"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Normalize(tc.rec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Title)
		})
	}
}

func TestNormalizeRatingParsing(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
		want *float64
	}{
		{"string rating", Record{"id": 1.0, "rating": "8.7"}, ptr(8.7)},
		{"float rating", Record{"id": 1.0, "vote_average": 7.25}, ptr(7.25)},
		{"empty string", Record{"id": 1.0, "rating": ""}, nil},
		{"non-numeric", Record{"id": 1.0, "rating": "99%"}, nil},
		{"missing", Record{"id": 1.0}, nil},
		{"out of range passes through", Record{"id": 1.0, "rating": -3.0}, ptr(-3.0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Normalize(tc.rec)
			require.NoError(t, err)
			if tc.want == nil {
				assert.Nil(t, c.Rating)
				return
			}
			require.NotNil(t, c.Rating)
			assert.InDelta(t, *tc.want, *c.Rating, 0.0001)
		})
	}
}

func TestNormalizePoster(t *testing.T) {
	c, err := Normalize(Record{"id": 1.0, "poster_path": "/abc.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", c.PosterURL)

	c, err = Normalize(Record{"id": 1.0, "posterUrlPreview": "https://kp.example/poster.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "https://kp.example/poster.jpg", c.PosterURL)
}

func TestNormalizeMediaKind(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
		want string
	}{
		{"explicit movie", Record{"id": 1.0, "media_type": "movie"}, "movie"},
		{"explicit tv", Record{"id": 1.0, "media_type": "tv"}, "tv"},
		{"kinopoisk film", Record{"id": 1.0, "type": "FILM"}, "movie"},
		{"kinopoisk series", Record{"id": 1.0, "type": "TV_SERIES"}, "tv"},
		{"kinopoisk mini series", Record{"id": 1.0, "type": "MINI_SERIES"}, "tv"},
		{"tmdb tv details", Record{"id": 1.0, "name": "Show", "first_air_date": "2010-01-01"}, "tv"},
		{"ambiguous defaults to movie", Record{"id": 1.0}, "movie"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Normalize(tc.rec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.MediaKind)
		})
	}
}

func TestNormalizeGenres(t *testing.T) {
	c, err := Normalize(Record{"id": 1.0, "genres": []any{
		map[string]any{"id": 18.0, "name": "Drama"},
		map[string]any{"genre": "триллер"},
		"action",
		map[string]any{"irrelevant": true},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Drama", "триллер", "action"}, c.Genres)

	c, err = Normalize(Record{"id": 1.0})
	require.NoError(t, err)
	assert.Nil(t, c.Genres)
}

func TestNormalizeOverviewAndExtras(t *testing.T) {
	c, err := Normalize(Record{
		"id":              42.0,
		"description":     "Описание",
		"ratingVoteCount": float64(12345),
		"filmLength":      float64(136),
		"premiereWorld":   "1999-03-31",
	})
	require.NoError(t, err)

	assert.Equal(t, "Описание", c.Overview)
	assert.Equal(t, 12345, c.VoteCount)
	assert.Equal(t, 136, c.RuntimeMin)
	assert.Equal(t, "1999", c.ReleaseYear)
}

func TestNormalizeIDAliases(t *testing.T) {
	c, err := Normalize(Record{"kinopoiskId": float64(77)})
	require.NoError(t, err)
	assert.Equal(t, int64(77), c.ProviderID)

	// A non-numeric id under one alias must not shadow a usable one under another.
	c, err = Normalize(Record{"id": "not-a-number", "filmId": float64(5)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.ProviderID)
}

func ptr(f float64) *float64 { return &f }
