package watchlist

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"

	"moviemate/internal/database"
	"moviemate/models"
	"moviemate/services/catalog"
)

var (
	// ErrStoreUnavailable means the relational store could not be reached. No partial
	// writes were made; the caller may retry later.
	ErrStoreUnavailable = errors.New("movie store unavailable")
	// ErrStore means a write violated an invariant unexpectedly. It is logged and
	// surfaced, never retried here.
	ErrStore = errors.New("movie store write failed")
)

// AddOutcome reports what Add did. AlreadyExists is an ordinary outcome, not an error.
type AddOutcome int

const (
	AddOutcomeCreated AddOutcome = iota
	AddOutcomeAlreadyExists
)

func (o AddOutcome) String() string {
	if o == AddOutcomeAlreadyExists {
		return "already_exists"
	}
	return "created"
}

// Stats summarizes one user's watchlist.
type Stats struct {
	Total   int `json:"total"`
	Watched int `json:"watched"`
}

// Service is the single authority for User, Movie and WatchlistEntry state. Every
// mutation is idempotent or uniqueness-guarded, so retrying after a timeout is safe.
type Service struct {
	db              *database.DB
	refreshProfiles bool
	now             func() time.Time
}

// NewService returns a watchlist service. refreshProfiles controls whether repeat
// visits overwrite stale profile fields; default deployments leave it off.
func NewService(db *database.DB, refreshProfiles bool) *Service {
	return &Service{
		db:              db,
		refreshProfiles: refreshProfiles,
		now:             time.Now,
	}
}

const userColumns = "id, telegram_id, username, first_name, last_name, locale, created_at, updated_at"

// GetOrCreateUser looks a user up by Telegram id, creating the row on first contact.
func (s *Service) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName, locale string) (*models.User, error) {
	if locale == "" {
		locale = models.DefaultLocale
	}

	user, err := s.userByTelegramID(ctx, telegramID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, s.readErr("get user", err)
	}

	if user != nil {
		if s.refreshProfiles && (user.Username != username || user.FirstName != firstName || user.LastName != lastName) {
			now := s.now().UTC()
			_, err := s.db.Conn().ExecContext(ctx,
				s.db.Rebind("UPDATE users SET username = ?, first_name = ?, last_name = ?, updated_at = ? WHERE id = ?"),
				username, firstName, lastName, now, user.ID)
			if err != nil {
				return nil, s.writeErr("refresh user profile", err)
			}
			user.Username = username
			user.FirstName = firstName
			user.LastName = lastName
			user.UpdatedAt = now
		}
		return user, nil
	}

	now := s.now().UTC()
	id, err := s.insertReturningID(ctx,
		"INSERT INTO users (telegram_id, username, first_name, last_name, locale, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		telegramID, username, firstName, lastName, locale, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race against a concurrent first contact; the winner's row is ours.
			return s.refetchUser(ctx, telegramID)
		}
		return nil, s.writeErr("create user", err)
	}

	log.Printf("[watchlist] created user telegram_id=%d", telegramID)
	return &models.User{
		ID:         id,
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		Locale:     locale,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *Service) refetchUser(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.userByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, s.readErr("refetch user", err)
	}
	return user, nil
}

func (s *Service) userByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		s.db.Rebind("SELECT "+userColumns+" FROM users WHERE telegram_id = ?"), telegramID)

	var u models.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.Locale, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const movieColumns = "id, provider_id, title, original_title, release_date, overview, poster_url, media_kind, genres, rating, vote_count, popularity, runtime_min, status, created_at"

// FindOrCreateMovie resolves a canonical record to a persisted Movie row, inserting it
// on first sight. The (provider_id, media_kind) unique constraint keeps concurrent
// callers from producing duplicates; losing the insert race means refetching.
func (s *Service) FindOrCreateMovie(ctx context.Context, c catalog.Canonical) (*models.Movie, error) {
	movie, err := s.movieByProviderID(ctx, c.ProviderID, c.MediaKind)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, s.readErr("get movie", err)
	}
	if movie != nil {
		return movie, nil
	}

	genres, err := json.Marshal(c.Genres)
	if err != nil {
		return nil, s.writeErr("encode genres", err)
	}

	now := s.now().UTC()
	id, err := s.insertReturningID(ctx,
		"INSERT INTO movies (provider_id, title, original_title, release_date, overview, poster_url, media_kind, genres, rating, vote_count, popularity, runtime_min, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ProviderID, c.Title, c.OriginalTitle, c.ReleaseDate, c.Overview, c.PosterURL, c.MediaKind,
		string(genres), ratingArg(c.Rating), c.VoteCount, c.Popularity, c.RuntimeMin, c.Status, now)
	if err != nil {
		if isUniqueViolation(err) {
			existing, ferr := s.movieByProviderID(ctx, c.ProviderID, c.MediaKind)
			if ferr != nil {
				return nil, s.readErr("refetch movie", ferr)
			}
			return existing, nil
		}
		return nil, s.writeErr("create movie", err)
	}

	return &models.Movie{
		ID:            id,
		ProviderID:    c.ProviderID,
		Title:         c.Title,
		OriginalTitle: c.OriginalTitle,
		ReleaseDate:   c.ReleaseDate,
		Overview:      c.Overview,
		PosterURL:     c.PosterURL,
		MediaKind:     c.MediaKind,
		Genres:        c.Genres,
		Rating:        c.Rating,
		VoteCount:     c.VoteCount,
		Popularity:    c.Popularity,
		RuntimeMin:    c.RuntimeMin,
		Status:        c.Status,
		CreatedAt:     now,
	}, nil
}

func (s *Service) movieByProviderID(ctx context.Context, providerID int64, kind string) (*models.Movie, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		s.db.Rebind("SELECT "+movieColumns+" FROM movies WHERE provider_id = ? AND media_kind = ?"),
		providerID, kind)
	return scanMovie(row)
}

// Add links a movie to a user's watchlist. The check-and-insert is a single atomic
// statement; a concurrent duplicate add resolves to AlreadyExists, never a second row.
func (s *Service) Add(ctx context.Context, userID, movieID int64) (AddOutcome, error) {
	res, err := s.db.Conn().ExecContext(ctx,
		s.db.Rebind("INSERT INTO watchlist (user_id, movie_id, added_at, watched, reminder, note) VALUES (?, ?, ?, FALSE, FALSE, '') ON CONFLICT (user_id, movie_id) DO NOTHING"),
		userID, movieID, s.now().UTC())
	if err != nil {
		return 0, s.writeErr("add to watchlist", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, s.writeErr("add to watchlist", err)
	}
	if affected == 0 {
		return AddOutcomeAlreadyExists, nil
	}
	return AddOutcomeCreated, nil
}

// List returns a user's entries joined with their movies, most recently added first.
func (s *Service) List(ctx context.Context, userID int64, limit int, unwatchedOnly bool) ([]models.WatchlistEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := "SELECT w.id, w.user_id, w.movie_id, w.added_at, w.watched, w.watched_at, w.reminder, w.note, " + prefixedMovieColumns("m") +
		" FROM watchlist w JOIN movies m ON m.id = w.movie_id WHERE w.user_id = ?"
	if unwatchedOnly {
		query += " AND w.watched = FALSE"
	}
	query += " ORDER BY w.added_at DESC, w.id DESC LIMIT ?"

	rows, err := s.db.Conn().QueryContext(ctx, s.db.Rebind(query), userID, limit)
	if err != nil {
		return nil, s.readErr("list watchlist", err)
	}
	defer rows.Close()

	var entries []models.WatchlistEntry
	for rows.Next() {
		var (
			e         models.WatchlistEntry
			watchedAt sql.NullTime
			rating    sql.NullFloat64
			genresRaw string
		)
		err := rows.Scan(
			&e.ID, &e.UserID, &e.MovieID, &e.AddedAt, &e.Watched, &watchedAt, &e.Reminder, &e.Note,
			&e.Movie.ID, &e.Movie.ProviderID, &e.Movie.Title, &e.Movie.OriginalTitle, &e.Movie.ReleaseDate,
			&e.Movie.Overview, &e.Movie.PosterURL, &e.Movie.MediaKind, &genresRaw, &rating,
			&e.Movie.VoteCount, &e.Movie.Popularity, &e.Movie.RuntimeMin, &e.Movie.Status, &e.Movie.CreatedAt)
		if err != nil {
			return nil, s.readErr("scan watchlist row", err)
		}
		if watchedAt.Valid {
			t := watchedAt.Time
			e.WatchedAt = &t
		}
		if rating.Valid {
			r := rating.Float64
			e.Movie.Rating = &r
		}
		if genresRaw != "" {
			// Genres were serialized by us; a decode failure here means a corrupt row,
			// not a reason to fail the whole listing.
			if err := json.Unmarshal([]byte(genresRaw), &e.Movie.Genres); err != nil {
				log.Printf("[watchlist] WARN: bad genres payload for movie %d: %v", e.Movie.ID, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.readErr("list watchlist", err)
	}

	return entries, nil
}

// MarkWatched flips an entry to watched, scoped to the owning user. Idempotent: the
// watched timestamp is set once and repeat calls report success without changing state.
func (s *Service) MarkWatched(ctx context.Context, entryID, userID int64) (bool, error) {
	res, err := s.db.Conn().ExecContext(ctx,
		s.db.Rebind("UPDATE watchlist SET watched = TRUE, watched_at = COALESCE(watched_at, ?) WHERE id = ? AND user_id = ?"),
		s.now().UTC(), entryID, userID)
	if err != nil {
		return false, s.writeErr("mark watched", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, s.writeErr("mark watched", err)
	}
	return affected > 0, nil
}

// Remove hard-deletes an entry, scoped to the owning user. Reports whether a row went.
func (s *Service) Remove(ctx context.Context, entryID, userID int64) (bool, error) {
	res, err := s.db.Conn().ExecContext(ctx,
		s.db.Rebind("DELETE FROM watchlist WHERE id = ? AND user_id = ?"), entryID, userID)
	if err != nil {
		return false, s.writeErr("remove from watchlist", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, s.writeErr("remove from watchlist", err)
	}
	return affected > 0, nil
}

// UserStats counts a user's total and watched entries.
func (s *Service) UserStats(ctx context.Context, userID int64) (Stats, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		s.db.Rebind("SELECT COUNT(*), COALESCE(SUM(CASE WHEN watched THEN 1 ELSE 0 END), 0) FROM watchlist WHERE user_id = ?"),
		userID)

	var stats Stats
	if err := row.Scan(&stats.Total, &stats.Watched); err != nil {
		return Stats{}, s.readErr("user stats", err)
	}
	return stats, nil
}

func prefixedMovieColumns(alias string) string {
	return alias + ".id, " + alias + ".provider_id, " + alias + ".title, " + alias + ".original_title, " +
		alias + ".release_date, " + alias + ".overview, " + alias + ".poster_url, " + alias + ".media_kind, " +
		alias + ".genres, " + alias + ".rating, " + alias + ".vote_count, " + alias + ".popularity, " +
		alias + ".runtime_min, " + alias + ".status, " + alias + ".created_at"
}

func scanMovie(row *sql.Row) (*models.Movie, error) {
	var (
		m         models.Movie
		rating    sql.NullFloat64
		genresRaw string
	)
	err := row.Scan(&m.ID, &m.ProviderID, &m.Title, &m.OriginalTitle, &m.ReleaseDate, &m.Overview,
		&m.PosterURL, &m.MediaKind, &genresRaw, &rating, &m.VoteCount, &m.Popularity, &m.RuntimeMin,
		&m.Status, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		r := rating.Float64
		m.Rating = &r
	}
	if genresRaw != "" {
		if err := json.Unmarshal([]byte(genresRaw), &m.Genres); err != nil {
			log.Printf("[watchlist] WARN: bad genres payload for movie %d: %v", m.ID, err)
		}
	}
	return &m, nil
}

// insertReturningID bridges the LastInsertId / RETURNING split between the two engines.
func (s *Service) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	if s.db.Dialect() == database.DialectPostgres {
		var id int64
		err := s.db.Conn().QueryRowContext(ctx, s.db.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}

	res, err := s.db.Conn().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func ratingArg(r *float64) any {
	if r == nil {
		return nil
	}
	return *r
}

// readErr wraps read-path faults so callers can tell "store is down" from "empty list".
func (s *Service) readErr(op string, err error) error {
	log.Printf("[watchlist] %s failed: %v", op, err)
	return fmt.Errorf("%s: %v: %w", op, err, ErrStoreUnavailable)
}

// writeErr classifies write-path faults: connectivity surfaces as ErrStoreUnavailable,
// anything else as ErrStore.
func (s *Service) writeErr(op string, err error) error {
	log.Printf("[watchlist] %s failed: %v", op, err)
	if isUnavailable(err) {
		return fmt.Errorf("%s: %v: %w", op, err, ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrStore)
}

func isUnavailable(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}
