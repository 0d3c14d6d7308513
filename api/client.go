package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client represents a recommendation service API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	userAgent   string
	ratingScale float64
	logger      zerolog.Logger
}

// NewClient creates a new API client. No request is made until the first call.
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", ErrInvalidConfig, baseURL)
	}

	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent:   "reelpick",
		ratingScale: 10,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// BaseURL returns the normalized base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the wrapper shared by every service response
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	HasMore bool            `json:"hasMore"`
	Limit   *int            `json:"limit"`
	Offset  *int            `json:"offset"`
}

func (e *envelope) errorMessage() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// doRequest performs one HTTP request and unwraps the envelope
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values, payload any) (*envelope, error) {
	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method, URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: method, URL: requestURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", requestURL).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("API request")

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.ServerMessage = env.errorMessage()
		}
		apiErr.Message = apiErr.ServerMessage
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	if decodeErr != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", decodeErr)}
	}

	if !env.Success {
		msg := env.errorMessage()
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg, ServerMessage: msg}
		if msg == "" {
			apiErr.Message = "request was not successful"
		}
		return nil, apiErr
	}

	return &env, nil
}

func decodeData[T any](env *envelope, what string) (T, error) {
	var out T
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to parse %s: %w", what, err)
	}
	return out, nil
}

// Login exchanges credentials for the signed-in user
func (c *Client) Login(ctx context.Context, creds Credentials) (*User, error) {
	if err := validateInput(creds); err != nil {
		return nil, err
	}

	env, err := c.doRequest(ctx, http.MethodPost, "/auth/login", nil, creds)
	if err != nil {
		return nil, err
	}

	raw, err := decodeData[*rawUser](env, "user")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("login: %w", ErrEmptyEnvelope)
	}

	user := raw.normalize()
	return &user, nil
}

// GetUsers lists every account
func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	env, err := c.doRequest(ctx, http.MethodGet, "/users", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	raw, err := decodeData[[]rawUser](env, "users")
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(raw))
	for _, r := range raw {
		users = append(users, r.normalize())
	}
	return users, nil
}

// GetMovies retrieves one page of the catalog
func (c *Client) GetMovies(ctx context.Context, q MovieQuery) (*MoviePage, error) {
	params := pageParams(q.Limit, q.Offset)
	if q.UserID > 0 {
		params.Set("userId", strconv.FormatInt(q.UserID, 10))
	}

	env, err := c.doRequest(ctx, http.MethodGet, "/movies", params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get movies: %w", err)
	}

	return c.moviePage(env, q.Limit, q.Offset)
}

// GetHotMovies retrieves the highlighted movies for the slideshow
func (c *Client) GetHotMovies(ctx context.Context, limit int) ([]Movie, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	env, err := c.doRequest(ctx, http.MethodGet, "/movies/hot/list", params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get hot movies: %w", err)
	}

	raw, err := decodeData[[]rawMovie](env, "hot movies")
	if err != nil {
		return nil, err
	}
	return c.normalizeMovies(raw), nil
}

// GetRecommendations retrieves one page of a user's recommendations
func (c *Client) GetRecommendations(ctx context.Context, userID int64, q PageQuery) (*MoviePage, error) {
	if err := validateID("userId", userID); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/recommendations/user/%d", userID)
	env, err := c.doRequest(ctx, http.MethodGet, endpoint, pageParams(q.Limit, q.Offset), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}

	return c.moviePage(env, q.Limit, q.Offset)
}

// GetWatchHistory retrieves everything a user has watched
func (c *Client) GetWatchHistory(ctx context.Context, userID int64) ([]WatchHistoryEntry, error) {
	if err := validateID("userId", userID); err != nil {
		return nil, err
	}

	env, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/watch-history/user/%d", userID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get watch history: %w", err)
	}

	raw, err := decodeData[[]rawHistoryEntry](env, "watch history")
	if err != nil {
		return nil, err
	}

	entries := make([]WatchHistoryEntry, 0, len(raw))
	for _, r := range raw {
		entry := r.normalize()
		if entry.UserID == 0 {
			entry.UserID = userID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetGenrePreferences retrieves per-genre watch counts for a user
func (c *Client) GetGenrePreferences(ctx context.Context, userID int64) ([]GenrePreference, error) {
	if err := validateID("userId", userID); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/watch-history/user/%d/preferences", userID)
	env, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get genre preferences: %w", err)
	}

	raw, err := decodeData[[]rawGenrePreference](env, "genre preferences")
	if err != nil {
		return nil, err
	}

	prefs := make([]GenrePreference, 0, len(raw))
	for _, r := range raw {
		prefs = append(prefs, GenrePreference{Genre: r.Genre, Count: int(r.Count)})
	}
	return prefs, nil
}

// AddWatchHistory records that a user watched a movie.
// Duplicate suppression is left to the server.
func (c *Client) AddWatchHistory(ctx context.Context, in WatchInput) error {
	if err := validateInput(in); err != nil {
		return err
	}

	if _, err := c.doRequest(ctx, http.MethodPost, "/watch-history", nil, in); err != nil {
		return fmt.Errorf("failed to add watch history: %w", err)
	}

	c.logger.Debug().Int64("user_id", in.UserID).Int64("movie_id", in.MovieID).Msg("Recorded watch")
	return nil
}

// GetRating returns the user's rating for a movie, or nil if unrated
func (c *Client) GetRating(ctx context.Context, userID, movieID int64) (*int, error) {
	if err := validateID("userId", userID); err != nil {
		return nil, err
	}
	if err := validateID("movieId", movieID); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/ratings/user/%d/movie/%d", userID, movieID)
	env, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}

	rating, err := decodeRating(env.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rating: %w", err)
	}
	return rating, nil
}

// UpsertRating creates or replaces the user's rating for a movie
func (c *Client) UpsertRating(ctx context.Context, in RatingInput) error {
	if err := validateInput(in); err != nil {
		return err
	}

	if _, err := c.doRequest(ctx, http.MethodPost, "/ratings", nil, in); err != nil {
		return fmt.Errorf("failed to save rating: %w", err)
	}

	c.logger.Debug().
		Int64("user_id", in.UserID).
		Int64("movie_id", in.MovieID).
		Int("rating", in.Rating).
		Msg("Saved rating")
	return nil
}

func (c *Client) moviePage(env *envelope, limit, offset int) (*MoviePage, error) {
	raw, err := decodeData[[]rawMovie](env, "movies")
	if err != nil {
		return nil, err
	}

	page := &MoviePage{
		Movies:  c.normalizeMovies(raw),
		HasMore: env.HasMore,
		Limit:   limit,
		Offset:  offset,
	}
	if env.Limit != nil {
		page.Limit = *env.Limit
	}
	if env.Offset != nil {
		page.Offset = *env.Offset
	}
	return page, nil
}

func (c *Client) normalizeMovies(raw []rawMovie) []Movie {
	movies := make([]Movie, 0, len(raw))
	for _, r := range raw {
		movies = append(movies, r.normalize(c.ratingScale))
	}
	return movies
}

func pageParams(limit, offset int) url.Values {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	} else {
		params.Set("offset", "0")
	}
	return params
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput converts validator failures into *ValidationError
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "input", Reason: err.Error()}
	}

	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Reason: describeTag(fe)}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func validateID(field string, id int64) error {
	if id <= 0 {
		return &ValidationError{Field: field, Reason: "must be greater than 0"}
	}
	return nil
}
