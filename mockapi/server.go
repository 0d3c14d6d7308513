package mockapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Prefix is the path every route is mounted under
const Prefix = "/api"

const (
	defaultMoviesLimit = 20
	defaultPageLimit   = 10
)

type injectedFailure struct {
	status  int
	message string
}

// Server is an in-memory stand-in for the recommendation service
type Server struct {
	store  *Store
	logger zerolog.Logger
	router chi.Router

	mu       sync.RWMutex
	failures map[string]injectedFailure
	httpSrv  *http.Server
}

// New constructs the mock server with base middleware and routes.
func New(store *Store, logger zerolog.Logger) *Server {
	if store == nil {
		store = NewStore()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	s := &Server{
		store:    store,
		logger:   logger.With().Str("component", "mockapi").Logger(),
		router:   r,
		failures: make(map[string]injectedFailure),
	}
	r.Use(s.requestLogger)
	r.Use(s.injectFailures)
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Route(Prefix, func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/users", s.handleListUsers)
		r.Route("/movies", func(r chi.Router) {
			r.Get("/", s.handleListMovies)
			r.Get("/hot/list", s.handleHotMovies)
		})
		r.Get("/recommendations/user/{userId}", s.handleRecommendations)
		r.Route("/watch-history", func(r chi.Router) {
			r.Post("/", s.handleAddWatch)
			r.Get("/user/{userId}", s.handleWatchHistory)
			r.Get("/user/{userId}/preferences", s.handlePreferences)
		})
		r.Route("/ratings", func(r chi.Router) {
			r.Post("/", s.handleUpsertRating)
			r.Get("/user/{userId}/movie/{movieId}", s.handleGetRating)
		})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Store returns the dataset backing the server
func (s *Server) Store() *Store {
	return s.store
}

// InjectFailure makes every request matching method and path fail with status
func (s *Server) InjectFailure(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = injectedFailure{status: status, message: message}
}

// ClearFailures removes all injected failures
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]injectedFailure)
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpSrv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Mock API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Handled request")
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		f, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.RUnlock()
		if ok {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
	HasMore *bool  `json:"hasMore,omitempty"`
	Limit   *int   `json:"limit,omitempty"`
	Offset  *int   `json:"offset,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, response{Success: true, Data: data})
}

func writePage(w http.ResponseWriter, data any, hasMore bool, limit, offset int) {
	writeJSON(w, http.StatusOK, response{Success: true, Data: data, HasMore: &hasMore, Limit: &limit, Offset: &offset})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: false, Error: message})
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUnknownUser) || errors.Is(err, errUnknownMovie) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func pagination(r *http.Request, defaultLimit int) (int, int, bool) {
	limit, ok := queryInt(r, "limit", defaultLimit)
	if !ok || limit == 0 {
		return 0, 0, false
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		return 0, 0, false
	}
	return limit, offset, true
}
