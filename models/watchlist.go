package models

import "time"

// WatchlistEntry links one user to one movie with watched/unwatched state. The
// (UserID, MovieID) pair is unique; adding the same movie twice is a no-op upstream.
type WatchlistEntry struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	MovieID   int64      `json:"movieId"`
	AddedAt   time.Time  `json:"addedAt"`
	Watched   bool       `json:"watched"`
	WatchedAt *time.Time `json:"watchedAt,omitempty"`
	Reminder  bool       `json:"reminder,omitempty"`
	Note      string     `json:"note,omitempty"`

	// Movie is populated on read paths that join the movies table.
	Movie Movie `json:"movie"`
}
