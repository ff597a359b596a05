package catalog

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	searchRecords  []Record
	detailsRecord  Record
	similarRecords []Record
	topRecords     []Record
	popularRecords []Record
	genres         []Genre
	genreRecords   []Record
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Search(context.Context, string) ([]Record, error) {
	return p.searchRecords, nil
}

func (p *stubProvider) Details(context.Context, int64, string) (Record, error) {
	return p.detailsRecord, nil
}

func (p *stubProvider) Similar(context.Context, int64, string) ([]Record, error) {
	return p.similarRecords, nil
}

func (p *stubProvider) TopRated(context.Context) ([]Record, error) {
	return p.topRecords, nil
}

func (p *stubProvider) Popular(context.Context) ([]Record, error) {
	return p.popularRecords, nil
}

func (p *stubProvider) Genres() []Genre {
	return p.genres
}

func (p *stubProvider) ByGenre(context.Context, int) ([]Record, error) {
	return p.genreRecords, nil
}

func TestSearchSkipsRecordsWithoutIdentifiers(t *testing.T) {
	svc := NewService(&stubProvider{searchRecords: []Record{
		{"id": 1.0, "title": "Keep Me"},
		{"title": "No ID Here"},
		{"id": 2.0, "title": "Keep Me Too"},
	}})

	results, err := svc.Search(context.Background(), "keep")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].ProviderID)
	assert.Equal(t, int64(2), results[1].ProviderID)
}

func TestDetailsTrustsCallerKind(t *testing.T) {
	// Kinopoisk details for a series carry no type discriminator the normalizer can
	// use; the caller's kind wins.
	svc := NewService(&stubProvider{detailsRecord: Record{"kinopoiskId": 9.0, "nameRu": "Сериал"}})

	c, err := svc.Details(context.Background(), 9, "tv")
	require.NoError(t, err)
	assert.Equal(t, "tv", c.MediaKind)
}

func TestDetailsMissingIdentifier(t *testing.T) {
	svc := NewService(&stubProvider{detailsRecord: Record{"title": "ghost"}})

	_, err := svc.Details(context.Background(), 9, "movie")
	assert.ErrorIs(t, err, ErrMissingIdentifier)
}

func TestByGenreNormalizesAndSkipsBrokenRecords(t *testing.T) {
	svc := NewService(&stubProvider{
		genres: []Genre{{ID: 27, Name: "Horror"}},
		genreRecords: []Record{
			{"id": 5.0, "title": "The Shining"},
			{"title": "no id"},
		},
	})

	require.Equal(t, []Genre{{ID: 27, Name: "Horror"}}, svc.Genres())

	results, err := svc.ByGenre(context.Background(), 27)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The Shining", results[0].Title)
}

func TestPopularNormalizes(t *testing.T) {
	svc := NewService(&stubProvider{popularRecords: []Record{
		{"id": 6.0, "title": "Trending"},
	}})

	results, err := svc.Popular(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(6), results[0].ProviderID)
}

func TestRandomIsDeterministicWithSeededSource(t *testing.T) {
	top := []Record{
		{"id": 10.0, "title": "First"},
		{"id": 20.0, "title": "Second"},
		{"id": 30.0, "title": "Third"},
	}
	svc := NewServiceWithRand(&stubProvider{topRecords: top}, rand.New(rand.NewSource(1)))

	first, err := svc.Random(context.Background())
	require.NoError(t, err)

	svc2 := NewServiceWithRand(&stubProvider{topRecords: top}, rand.New(rand.NewSource(1)))
	second, err := svc2.Random(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.ProviderID, second.ProviderID)
}

func TestRandomEmptyCatalog(t *testing.T) {
	svc := NewService(&stubProvider{})

	_, err := svc.Random(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}
