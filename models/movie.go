package models

import "time"

// Media kinds recognised by the catalog. Ambiguous upstream records are stored as movies.
const (
	MediaKindMovie = "movie"
	MediaKindTV    = "tv"
)

// Movie is a canonical, deduplicated catalog entry sourced from one of the upstream
// providers. Rows are created lazily on the first watchlist add and never deleted;
// (ProviderID, MediaKind) is the natural dedup key since a movie and a series can share
// a numeric upstream id.
type Movie struct {
	ID            int64     `json:"id"`
	ProviderID    int64     `json:"providerId"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"originalTitle,omitempty"`
	ReleaseDate   string    `json:"releaseDate,omitempty"`
	Overview      string    `json:"overview,omitempty"`
	PosterURL     string    `json:"posterUrl,omitempty"`
	MediaKind     string    `json:"mediaKind"`
	Genres        []string  `json:"genres,omitempty"`
	Rating        *float64  `json:"rating,omitempty"`
	VoteCount     int       `json:"voteCount,omitempty"`
	Popularity    float64   `json:"popularity,omitempty"`
	RuntimeMin    int       `json:"runtimeMin,omitempty"`
	Status        string    `json:"status,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ReleaseYear returns the leading year component of the stored release date, or "".
func (m Movie) ReleaseYear() string {
	if len(m.ReleaseDate) < 4 {
		return ""
	}
	return m.ReleaseDate[:4]
}
