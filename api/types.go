package api

import (
	"fmt"
	"time"
)

// Role is the capability class of a user
type Role string

const (
	// RoleAdmin can inspect other users' history and genre trends
	RoleAdmin Role = "admin"
	// RoleViewer browses, watches and rates movies
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// User represents an account on the recommendation service
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Role     Role   `json:"role"`
}

// GetDisplayName returns the best available display name for the user
func (u *User) GetDisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("user #%d", u.ID)
}

// Movie is the canonical movie shape. Rating is always on a /10 scale.
type Movie struct {
	ID          int64
	Title       string
	Year        int
	Rating      float64
	Genres      []string
	Description string
}

// PrimaryGenre returns the first genre, or "" when the movie has none
func (m Movie) PrimaryGenre() string {
	if len(m.Genres) == 0 {
		return ""
	}
	return m.Genres[0]
}

// WatchHistoryEntry records that a user watched a movie
type WatchHistoryEntry struct {
	MovieID    int64
	UserID     int64
	WatchedAt  time.Time
	MovieTitle string
	Genres     []string
}

// GenrePreference is how many watched movies of a user carry a genre
type GenrePreference struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// MovieQuery selects a page of the catalog
type MovieQuery struct {
	Limit  int
	Offset int
	// UserID is optional; zero omits it from the request.
	UserID int64
}

// PageQuery selects a page of a per-user list
type PageQuery struct {
	Limit  int
	Offset int
}

// MoviePage is one page of a paginated movie listing
type MoviePage struct {
	Movies  []Movie
	HasMore bool
	Limit   int
	Offset  int
}

// Credentials are submitted to the login endpoint
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RatingInput is an upsert of a user's rating for a movie
type RatingInput struct {
	UserID  int64 `json:"userId" validate:"gt=0"`
	MovieID int64 `json:"movieId" validate:"gt=0"`
	Rating  int   `json:"rating" validate:"min=1,max=5"`
}

// WatchInput records a watch event
type WatchInput struct {
	UserID  int64 `json:"userId" validate:"gt=0"`
	MovieID int64 `json:"movieId" validate:"gt=0"`
}
