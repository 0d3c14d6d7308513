package mockapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	errUnknownUser  = errors.New("User not found")
	errUnknownMovie = errors.New("Movie not found")
)

type userRecord struct {
	ID       int64
	Username string
	Password string
	Name     string
	Role     string
}

type movieRecord struct {
	ID          int64
	Title       string
	Year        int
	Rating      float64 // always /10 internally
	Genres      []string
	Description string
}

type historyRecord struct {
	ID        int64
	UserID    int64
	MovieID   int64
	WatchedAt time.Time
}

type ratingKey struct {
	userID  int64
	movieID int64
}

// Store is the in-memory dataset behind the mock service
type Store struct {
	mu      sync.RWMutex
	users   []userRecord
	movies  []movieRecord
	history []historyRecord
	ratings map[ratingKey]int
	nextID  int64

	// RatingScale is the scale movie ratings are reported on (5 or 10).
	RatingScale float64
	now         func() time.Time
}

// NewStore returns a store seeded with demo users and movies
func NewStore() *Store {
	s := &Store{
		ratings:     make(map[ratingKey]int),
		RatingScale: 10,
		now:         time.Now,
	}
	s.users = seedUsers()
	s.movies = seedMovies()

	// give the first viewer some history so recommendations have a signal
	base := time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC)
	for i, movieID := range []int64{1, 4, 9} {
		s.nextID++
		s.history = append(s.history, historyRecord{
			ID:        s.nextID,
			UserID:    2,
			MovieID:   movieID,
			WatchedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		})
	}
	return s
}

// NewEmptyStore returns a store with users but no movies or history
func NewEmptyStore() *Store {
	return &Store{
		users:       seedUsers(),
		ratings:     make(map[ratingKey]int),
		RatingScale: 10,
		now:         time.Now,
	}
}

// SetClock replaces the time source used for new history records
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddMovie appends a movie and returns its id
func (s *Store) AddMovie(title string, year int, rating float64, genres ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64 = 1
	if n := len(s.movies); n > 0 {
		id = s.movies[n-1].ID + 1
	}
	s.movies = append(s.movies, movieRecord{ID: id, Title: title, Year: year, Rating: rating, Genres: genres})
	return id
}

func (s *Store) authenticate(username, password string) (userRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) && u.Password == password {
			return u, true
		}
	}
	return userRecord{}, false
}

func (s *Store) listUsers() []userRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]userRecord(nil), s.users...)
}

func (s *Store) userExists(id int64) bool {
	for _, u := range s.users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) movieByID(id int64) (movieRecord, bool) {
	for _, m := range s.movies {
		if m.ID == id {
			return m, true
		}
	}
	return movieRecord{}, false
}

// page slices items and reports whether more remain
func page[T any](items []T, limit, offset int) ([]T, bool) {
	if offset >= len(items) {
		return []T{}, false
	}
	end := min(offset+limit, len(items))
	return items[offset:end], end < len(items)
}

func (s *Store) listMovies(limit, offset int) ([]movieRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(append([]movieRecord(nil), s.movies...), limit, offset)
}

func (s *Store) hotMovies(limit int) []movieRecord {
	s.mu.RLock()
	movies := append([]movieRecord(nil), s.movies...)
	s.mu.RUnlock()

	sort.SliceStable(movies, func(i, j int) bool {
		if movies[i].Rating != movies[j].Rating {
			return movies[i].Rating > movies[j].Rating
		}
		return movies[i].Year > movies[j].Year
	})
	out, _ := page(movies, limit, 0)
	return out
}

func (s *Store) userHistory(userID int64) []historyRecord {
	var out []historyRecord
	for _, h := range s.history {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) watchHistory(userID int64) ([]historyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.userExists(userID) {
		return nil, errUnknownUser
	}
	records := s.userHistory(userID)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].WatchedAt.After(records[j].WatchedAt)
	})
	return records, nil
}

type genreCount struct {
	Genre string
	Count int
}

func (s *Store) preferenceCounts(userID int64) map[string]int {
	counts := make(map[string]int)
	for _, h := range s.userHistory(userID) {
		if m, ok := s.movieByID(h.MovieID); ok {
			for _, g := range m.Genres {
				counts[g]++
			}
		}
	}
	return counts
}

func (s *Store) preferences(userID int64) ([]genreCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.userExists(userID) {
		return nil, errUnknownUser
	}

	counts := s.preferenceCounts(userID)
	out := make([]genreCount, 0, len(counts))
	for g, c := range counts {
		out = append(out, genreCount{Genre: g, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Genre < out[j].Genre
	})
	return out, nil
}

// recommendations ranks unwatched movies by genre affinity, then rating
func (s *Store) recommendations(userID int64, limit, offset int) ([]movieRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.userExists(userID) {
		return nil, false, errUnknownUser
	}

	watched := make(map[int64]bool)
	for _, h := range s.userHistory(userID) {
		watched[h.MovieID] = true
	}
	counts := s.preferenceCounts(userID)

	type scored struct {
		movie movieRecord
		score int
	}
	var candidates []scored
	for _, m := range s.movies {
		if watched[m.ID] {
			continue
		}
		score := 0
		for _, g := range m.Genres {
			score += counts[g]
		}
		candidates = append(candidates, scored{movie: m, score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].movie.Rating != candidates[j].movie.Rating {
			return candidates[i].movie.Rating > candidates[j].movie.Rating
		}
		return candidates[i].movie.ID < candidates[j].movie.ID
	})

	movies := make([]movieRecord, 0, len(candidates))
	for _, c := range candidates {
		movies = append(movies, c.movie)
	}
	out, more := page(movies, limit, offset)
	return out, more, nil
}

func (s *Store) addHistory(userID, movieID int64) (historyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.userExists(userID) {
		return historyRecord{}, errUnknownUser
	}
	if _, ok := s.movieByID(movieID); !ok {
		return historyRecord{}, errUnknownMovie
	}
	for _, h := range s.history {
		if h.UserID == userID && h.MovieID == movieID {
			return h, nil
		}
	}

	s.nextID++
	rec := historyRecord{ID: s.nextID, UserID: userID, MovieID: movieID, WatchedAt: s.now().UTC()}
	s.history = append(s.history, rec)
	return rec, nil
}

func (s *Store) rating(userID, movieID int64) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.ratings[ratingKey{userID, movieID}]
	return v, ok
}

func (s *Store) upsertRating(userID, movieID int64, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.userExists(userID) {
		return errUnknownUser
	}
	if _, ok := s.movieByID(movieID); !ok {
		return errUnknownMovie
	}
	s.ratings[ratingKey{userID, movieID}] = value
	return nil
}

// WatchCount reports how many history records exist for a user
func (s *Store) WatchCount(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.userHistory(userID))
}
