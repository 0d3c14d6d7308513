package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

type userJSON struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type movieJSON struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Rating      float64  `json:"rating"`
	Genres      []string `json:"genres"`
	Description string   `json:"description,omitempty"`
}

// historyJSON uses the snake_case column names the service returns
type historyJSON struct {
	ID         int64    `json:"id"`
	UserID     int64    `json:"user_id"`
	MovieID    int64    `json:"movie_id"`
	MovieTitle string   `json:"movie_title"`
	Genres     []string `json:"genres"`
	WatchedAt  string   `json:"watched_at"`
}

type preferenceJSON struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

func toUserJSON(u userRecord) userJSON {
	return userJSON{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
}

func (s *Server) toMovieJSON(movies []movieRecord) []movieJSON {
	scale := s.store.RatingScale
	if scale <= 0 {
		scale = 10
	}
	out := make([]movieJSON, 0, len(movies))
	for _, m := range movies {
		out = append(out, movieJSON{
			ID:          m.ID,
			Title:       m.Title,
			Year:        m.Year,
			Rating:      m.Rating * scale / 10,
			Genres:      m.Genres,
			Description: m.Description,
		})
	}
	return out
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Username) == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, ok := s.store.authenticate(body.Username, body.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	writeData(w, toUserJSON(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users := s.store.listUsers()
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUserJSON(u))
	}
	writeData(w, out)
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(r, defaultMoviesLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}
	movies, more := s.store.listMovies(limit, offset)
	writePage(w, s.toMovieJSON(movies), more, limit, offset)
}

func (s *Server) handleHotMovies(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultPageLimit)
	if !ok || limit == 0 {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	writeData(w, s.toMovieJSON(s.store.hotMovies(limit)))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	limit, offset, ok := pagination(r, defaultPageLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	movies, more, err := s.store.recommendations(userID, limit, offset)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writePage(w, s.toMovieJSON(movies), more, limit, offset)
}

func (s *Server) handleWatchHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	records, err := s.store.watchHistory(userID)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	out := make([]historyJSON, 0, len(records))
	for _, h := range records {
		entry := historyJSON{
			ID:        h.ID,
			UserID:    h.UserID,
			MovieID:   h.MovieID,
			WatchedAt: h.WatchedAt.Format(time.RFC3339),
		}
		s.store.mu.RLock()
		if m, ok := s.store.movieByID(h.MovieID); ok {
			entry.MovieTitle = m.Title
			entry.Genres = m.Genres
		}
		s.store.mu.RUnlock()
		out = append(out, entry)
	}
	writeData(w, out)
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	prefs, err := s.store.preferences(userID)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	out := make([]preferenceJSON, 0, len(prefs))
	for _, p := range prefs {
		out = append(out, preferenceJSON{Genre: p.Genre, Count: p.Count})
	}
	writeData(w, out)
}

func (s *Server) handleAddWatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID  int64 `json:"userId"`
		MovieID int64 `json:"movieId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID <= 0 || body.MovieID <= 0 {
		writeError(w, http.StatusBadRequest, "userId and movieId are required")
		return
	}

	rec, err := s.store.addHistory(body.UserID, body.MovieID)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: map[string]any{
		"id":         rec.ID,
		"user_id":    rec.UserID,
		"movie_id":   rec.MovieID,
		"watched_at": rec.WatchedAt.Format(time.RFC3339),
	}})
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	movieID, ok := pathID(r, "movieId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	if v, found := s.store.rating(userID, movieID); found {
		writeData(w, v)
		return
	}
	writeData(w, nil)
}

func (s *Server) handleUpsertRating(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID  int64 `json:"userId"`
		MovieID int64 `json:"movieId"`
		Rating  int   `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID <= 0 || body.MovieID <= 0 {
		writeError(w, http.StatusBadRequest, "userId, movieId and rating are required")
		return
	}
	if body.Rating < 1 || body.Rating > 5 {
		writeError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	if err := s.store.upsertRating(body.UserID, body.MovieID, body.Rating); err != nil {
		writeLookupError(w, err)
		return
	}
	writeData(w, map[string]any{"userId": body.UserID, "movieId": body.MovieID, "rating": body.Rating})
}
