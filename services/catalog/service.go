package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"moviemate/models"
)

// Genre is one entry of a provider's genre taxonomy. IDs are provider-specific and only
// meaningful when passed back to the same provider.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Provider is one upstream movie/TV metadata source. Implementations return raw
// records so arbitrary upstream fields survive until normalization.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Record, error)
	Details(ctx context.Context, id int64, kind string) (Record, error)
	Similar(ctx context.Context, id int64, kind string) ([]Record, error)
	TopRated(ctx context.Context) ([]Record, error)
	Popular(ctx context.Context) ([]Record, error)
	Genres() []Genre
	ByGenre(ctx context.Context, genreID int) ([]Record, error)
}

// ErrEmptyCatalog is returned by Random when the provider's top-rated page is empty.
var ErrEmptyCatalog = errors.New("catalog returned no titles")

// Service fronts the configured primary provider and hands canonical records to the
// rest of the bot. Result ranking and cross-provider merging are deliberately absent;
// one provider is chosen at startup.
type Service struct {
	provider Provider
	rng      *rand.Rand
}

// NewService returns a catalog service over the given provider.
func NewService(provider Provider) *Service {
	return &Service{
		provider: provider,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewServiceWithRand injects a deterministic random source for tests.
func NewServiceWithRand(provider Provider, rng *rand.Rand) *Service {
	return &Service{provider: provider, rng: rng}
}

// ProviderName reports which upstream source is active.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Search runs a keyword search and normalizes the results. Records without a usable
// identifier are skipped, not fatal: one broken record must not sink the batch.
func (s *Service) Search(ctx context.Context, query string) ([]Canonical, error) {
	records, err := s.provider.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.provider.Name(), err)
	}
	return s.normalizeBatch("search", records), nil
}

// Details fetches and normalizes a single title.
func (s *Service) Details(ctx context.Context, id int64, kind string) (Canonical, error) {
	record, err := s.provider.Details(ctx, id, kind)
	if err != nil {
		return Canonical{}, fmt.Errorf("details %s: %w", s.provider.Name(), err)
	}

	c, err := Normalize(record)
	if err != nil {
		return Canonical{}, err
	}
	if c.MediaKind != kind && (kind == models.MediaKindMovie || kind == models.MediaKindTV) {
		// Details endpoints often drop the type discriminator; the caller knows better.
		c.MediaKind = kind
	}
	return c, nil
}

// Similar returns normalized titles related to the given one.
func (s *Service) Similar(ctx context.Context, id int64, kind string) ([]Canonical, error) {
	records, err := s.provider.Similar(ctx, id, kind)
	if err != nil {
		return nil, fmt.Errorf("similar %s: %w", s.provider.Name(), err)
	}
	return s.normalizeBatch("similar", records), nil
}

// TopRated returns the provider's top-rated page, normalized.
func (s *Service) TopRated(ctx context.Context) ([]Canonical, error) {
	records, err := s.provider.TopRated(ctx)
	if err != nil {
		return nil, fmt.Errorf("top rated %s: %w", s.provider.Name(), err)
	}
	return s.normalizeBatch("top", records), nil
}

// Popular returns the provider's popular page, normalized.
func (s *Service) Popular(ctx context.Context) ([]Canonical, error) {
	records, err := s.provider.Popular(ctx)
	if err != nil {
		return nil, fmt.Errorf("popular %s: %w", s.provider.Name(), err)
	}
	return s.normalizeBatch("popular", records), nil
}

// Genres lists the active provider's browsable genres.
func (s *Service) Genres() []Genre {
	return s.provider.Genres()
}

// ByGenre returns the provider's best titles in one genre, normalized.
func (s *Service) ByGenre(ctx context.Context, genreID int) ([]Canonical, error) {
	records, err := s.provider.ByGenre(ctx, genreID)
	if err != nil {
		return nil, fmt.Errorf("by genre %s: %w", s.provider.Name(), err)
	}
	return s.normalizeBatch("genre", records), nil
}

// Random picks one title uniformly from the top-rated page.
func (s *Service) Random(ctx context.Context) (Canonical, error) {
	titles, err := s.TopRated(ctx)
	if err != nil {
		return Canonical{}, err
	}
	if len(titles) == 0 {
		return Canonical{}, ErrEmptyCatalog
	}
	return titles[s.rng.Intn(len(titles))], nil
}

func (s *Service) normalizeBatch(op string, records []Record) []Canonical {
	out := make([]Canonical, 0, len(records))
	skipped := 0
	for _, rec := range records {
		c, err := Normalize(rec)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, c)
	}
	if skipped > 0 {
		log.Printf("[catalog] %s: skipped %d record(s) without identifiers", op, skipped)
	}
	return out
}
