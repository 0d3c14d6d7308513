package api

import (
	"context"
)

// Gateway defines every operation reelpick performs against the service.
// *Client implements it; pages and the session store depend on this
// interface so they can be exercised against fakes.
type Gateway interface {
	Authenticator
	MovieSource
	RecommendationSource
	HistoryService
	RatingService

	// GetUsers lists every account
	GetUsers(ctx context.Context) ([]User, error)
}

// Authenticator exchanges credentials for a user
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*User, error)
}

// MovieSource pages through the catalog
type MovieSource interface {
	GetMovies(ctx context.Context, q MovieQuery) (*MoviePage, error)
	GetHotMovies(ctx context.Context, limit int) ([]Movie, error)
}

// RecommendationSource pages through a user's recommendations
type RecommendationSource interface {
	GetRecommendations(ctx context.Context, userID int64, q PageQuery) (*MoviePage, error)
}

// HistoryService reads and records watch history
type HistoryService interface {
	GetWatchHistory(ctx context.Context, userID int64) ([]WatchHistoryEntry, error)
	GetGenrePreferences(ctx context.Context, userID int64) ([]GenrePreference, error)
	AddWatchHistory(ctx context.Context, in WatchInput) error
}

// RatingService reads and upserts a user's movie ratings
type RatingService interface {
	// GetRating returns nil when the user has not rated the movie
	GetRating(ctx context.Context, userID, movieID int64) (*int, error)
	UpsertRating(ctx context.Context, in RatingInput) error
}

var _ Gateway = (*Client)(nil)
