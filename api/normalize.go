package api

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// flexInt decodes a JSON number, a numeric string or null
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	// ids occasionally arrive as 12.0
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", s)
	}
	*f = flexInt(int64(v))
	return nil
}

// flexFloat decodes a JSON number, a numeric string (postgres numerics) or null
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", s)
	}
	*f = flexFloat(v)
	return nil
}

// flexTime accepts RFC3339 and the common SQL timestamp layouts
type flexTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02",
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*f = flexTime(time.Time{})
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t)
			return nil
		}
	}
	// unix seconds
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexTime(time.Unix(n, 0).UTC())
		return nil
	}
	return fmt.Errorf("unrecognized timestamp: %s", s)
}

type rawUser struct {
	ID       flexInt `json:"id"`
	UserID   flexInt `json:"userId"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
}

func (r rawUser) normalize() User {
	id := int64(r.ID)
	if id == 0 {
		id = int64(r.UserID)
	}
	return User{
		ID:       id,
		Username: r.Username,
		Name:     r.Name,
		Role:     Role(strings.ToLower(strings.TrimSpace(r.Role))),
	}
}

type rawMovie struct {
	ID          flexInt   `json:"id"`
	MovieID     flexInt   `json:"movieId"`
	MovieIDAlt  flexInt   `json:"movie_id"`
	Title       string    `json:"title"`
	Year        flexInt   `json:"year"`
	Rating      flexFloat `json:"rating"`
	Genres      []string  `json:"genres"`
	Genre       string    `json:"genre"`
	Description string    `json:"description"`
}

func (r rawMovie) normalize(scale float64) Movie {
	id := firstNonZero(int64(r.ID), int64(r.MovieID), int64(r.MovieIDAlt))
	return Movie{
		ID:          id,
		Title:       r.Title,
		Year:        int(r.Year),
		Rating:      toTenScale(float64(r.Rating), scale),
		Genres:      genreList(r.Genres, r.Genre),
		Description: strings.TrimSpace(r.Description),
	}
}

type rawHistoryEntry struct {
	MovieID       flexInt  `json:"movieId"`
	MovieIDAlt    flexInt  `json:"movie_id"`
	UserID        flexInt  `json:"userId"`
	UserIDAlt     flexInt  `json:"user_id"`
	WatchedAt     flexTime `json:"watchedAt"`
	WatchedAtAlt  flexTime `json:"watched_at"`
	MovieTitle    string   `json:"movieTitle"`
	MovieTitleAlt string   `json:"movie_title"`
	Title         string   `json:"title"`
	Genres        []string `json:"genres"`
	Genre         string   `json:"genre"`
}

func (r rawHistoryEntry) normalize() WatchHistoryEntry {
	watched := time.Time(r.WatchedAt)
	if watched.IsZero() {
		watched = time.Time(r.WatchedAtAlt)
	}
	return WatchHistoryEntry{
		MovieID:    firstNonZero(int64(r.MovieID), int64(r.MovieIDAlt)),
		UserID:     firstNonZero(int64(r.UserID), int64(r.UserIDAlt)),
		WatchedAt:  watched,
		MovieTitle: firstNonEmpty(r.MovieTitle, r.MovieTitleAlt, r.Title),
		Genres:     genreList(r.Genres, r.Genre),
	}
}

type rawGenrePreference struct {
	Genre string  `json:"genre"`
	Count flexInt `json:"count"`
}

// decodeRating accepts a bare number, null, or an object carrying rating/value
func decodeRating(data json.RawMessage) (*int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var obj struct {
			Rating *flexFloat `json:"rating"`
			Value  *flexFloat `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}
		switch {
		case obj.Rating != nil:
			trimmed = []byte(strconv.FormatFloat(float64(*obj.Rating), 'f', -1, 64))
		case obj.Value != nil:
			trimmed = []byte(strconv.FormatFloat(float64(*obj.Value), 'f', -1, 64))
		default:
			return nil, nil
		}
	}
	var v flexFloat
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	n := int(math.Round(float64(v)))
	if n == 0 {
		return nil, nil
	}
	return &n, nil
}

// toTenScale converts a rating reported on scale to the canonical /10 scale
func toTenScale(rating, scale float64) float64 {
	if scale <= 0 || scale == 10 {
		return rating
	}
	return math.Round(rating*(10/scale)*10) / 10
}

func genreList(genres []string, single string) []string {
	out := make([]string, 0, len(genres)+1)
	for _, g := range genres {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	if len(out) == 0 && strings.TrimSpace(single) != "" {
		out = append(out, strings.TrimSpace(single))
	}
	return out
}

func firstNonZero(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
