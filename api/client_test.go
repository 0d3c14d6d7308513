package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/reelpick/mockapi"
)

func newMockClient(t *testing.T, opts ...Option) (*Client, *mockapi.Server) {
	t.Helper()

	mock := mockapi.New(mockapi.NewStore(), zerolog.Nop())
	server := httptest.NewServer(mock)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+mockapi.Prefix, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return client, mock
}

func newStubClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{
			name:    "valid url",
			baseURL: "http://localhost:3000/api",
			want:    "http://localhost:3000/api",
		},
		{
			name:    "trailing slash trimmed",
			baseURL: " http://localhost:3000/api/ ",
			want:    "http://localhost:3000/api",
		},
		{
			name:    "empty url",
			baseURL: "",
			wantErr: true,
		},
		{
			name:    "relative url",
			baseURL: "/api",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.baseURL, logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.BaseURL())
		})
	}
}

func TestClientOptions(t *testing.T) {
	httpClient := &http.Client{Timeout: time.Second}

	client, err := NewClient("http://localhost", zerolog.Nop(),
		WithHTTPClient(httpClient),
		WithTimeout(5*time.Second),
		WithUserAgent("reelpick-test"),
		WithRatingScale(5),
	)
	require.NoError(t, err)

	assert.Same(t, httpClient, client.httpClient)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.Equal(t, "reelpick-test", client.userAgent)
	assert.Equal(t, 5.0, client.ratingScale)
}

func TestLogin(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		user, err := client.Login(ctx, Credentials{Username: "viewer", Password: "viewer123"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), user.ID)
		assert.Equal(t, RoleViewer, user.Role)
		assert.Equal(t, "Alice Viewer", user.GetDisplayName())
	})

	t.Run("bad password surfaces server message", func(t *testing.T) {
		_, err := client.Login(ctx, Credentials{Username: "viewer", Password: "nope"})
		require.Error(t, err)

		apiErr, ok := AsAPIError(err)
		require.True(t, ok)
		assert.True(t, apiErr.IsUnauthorized())
		assert.Equal(t, "Invalid username or password", apiErr.Message)
		assert.Equal(t, "Invalid username or password", apiErr.ServerMessage)
	})

	t.Run("empty credentials never reach the server", func(t *testing.T) {
		_, err := client.Login(ctx, Credentials{Username: "viewer"})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), "password")
	})
}

func TestLoginEmptyData(t *testing.T) {
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":null}`)
	})

	_, err := client.Login(context.Background(), Credentials{Username: "a", Password: "b"})
	assert.ErrorIs(t, err, ErrEmptyEnvelope)
}

func TestEnvelopeFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "success false on 200",
			status:     http.StatusOK,
			body:       `{"success":false,"error":"Something broke"}`,
			wantStatus: http.StatusOK,
			wantMsg:    "Something broke",
		},
		{
			name:       "success false without message",
			status:     http.StatusOK,
			body:       `{"success":false}`,
			wantStatus: http.StatusOK,
			wantMsg:    "request was not successful",
		},
		{
			name:       "non 2xx with envelope",
			status:     http.StatusNotFound,
			body:       `{"success":false,"message":"User not found"}`,
			wantStatus: http.StatusNotFound,
			wantMsg:    "User not found",
		},
		{
			name:       "non 2xx with html body",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "Bad Gateway",
		},
		{
			name:       "malformed 200",
			status:     http.StatusOK,
			body:       `not json`,
			wantStatus: http.StatusOK,
			wantMsg:    "malformed response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.GetUsers(context.Background())
			require.Error(t, err)

			apiErr, ok := AsAPIError(err)
			require.True(t, ok, "expected *APIError, got %T", err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Contains(t, apiErr.Message, tt.wantMsg)
			assert.False(t, IsNetworkError(err))
		})
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, err := NewClient(baseURL, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.GetHotMovies(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))

	_, ok := AsAPIError(err)
	assert.False(t, ok)
}

func TestRequestHeaders(t *testing.T) {
	var seen []string
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "reelpick", r.Header.Get("User-Agent"))
		seen = append(seen, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
	})

	for range 2 {
		_, err := client.GetUsers(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0])
	assert.NotEqual(t, seen[0], seen[1])
}

func TestGetMoviesPaging(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	first, err := client.GetMovies(ctx, MovieQuery{Limit: 20})
	require.NoError(t, err)
	assert.Len(t, first.Movies, 20)
	assert.True(t, first.HasMore)
	assert.Equal(t, 0, first.Offset)

	second, err := client.GetMovies(ctx, MovieQuery{Limit: 20, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, second.Movies, 15)
	assert.False(t, second.HasMore)
	assert.Equal(t, 20, second.Offset)

	third, err := client.GetMovies(ctx, MovieQuery{Limit: 20, Offset: 35})
	require.NoError(t, err)
	assert.Empty(t, third.Movies)
}

func TestGetMoviesQueryParams(t *testing.T) {
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movies", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		assert.Equal(t, "7", r.URL.Query().Get("userId"))
		_, _ = io.WriteString(w, `{"success":true,"data":[]}`)
	})

	page, err := client.GetMovies(context.Background(), MovieQuery{Limit: 20, UserID: 7})
	require.NoError(t, err)
	assert.Empty(t, page.Movies)
	assert.False(t, page.HasMore)
}

func TestRatingScaleNormalization(t *testing.T) {
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id":"4","title":"Pulp Fiction","year":1994,"rating":"4.45","genre":"Crime"}]}`)
	})
	client.ratingScale = 5

	movies, err := client.GetHotMovies(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, movies, 1)

	m := movies[0]
	assert.Equal(t, int64(4), m.ID)
	assert.Equal(t, 8.9, m.Rating)
	assert.Equal(t, []string{"Crime"}, m.Genres)
}

func TestRatingScaleAgainstMock(t *testing.T) {
	mock := mockapi.New(mockapi.NewStore(), zerolog.Nop())
	mock.Store().RatingScale = 5
	server := httptest.NewServer(mock)
	defer server.Close()

	client, err := NewClient(server.URL+mockapi.Prefix, zerolog.Nop(), WithRatingScale(5))
	require.NoError(t, err)

	movies, err := client.GetHotMovies(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "The Shawshank Redemption", movies[0].Title)
	assert.InDelta(t, 9.3, movies[0].Rating, 0.001)
}

func TestRecommendations(t *testing.T) {
	client, _ := newMockClient(t)

	page, err := client.GetRecommendations(context.Background(), 2, PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Movies, 10)
	assert.True(t, page.HasMore)

	for _, m := range page.Movies {
		assert.NotContains(t, []int64{1, 4, 9}, m.ID, "watched movie %d recommended", m.ID)
	}

	_, err = client.GetRecommendations(context.Background(), 0, PageQuery{Limit: 10})
	assert.True(t, IsValidationError(err))
}

func TestWatchHistoryRoundTrip(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	before, err := client.GetWatchHistory(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, before)

	require.NoError(t, client.AddWatchHistory(ctx, WatchInput{UserID: 3, MovieID: 5}))

	after, err := client.GetWatchHistory(ctx, 3)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, int64(5), after[0].MovieID)
	assert.Equal(t, int64(3), after[0].UserID)
	assert.Equal(t, "Inception", after[0].MovieTitle)
	assert.False(t, after[0].WatchedAt.IsZero())

	prefs, err := client.GetGenrePreferences(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, prefs, 3)
}

func TestWatchHistoryVariants(t *testing.T) {
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"movieId":3,"watchedAt":"2025-02-01T10:00:00Z","title":"The Dark Knight","genres":["Action"]},
			{"movie_id":"8","watched_at":"2025-01-15 21:30:00","movie_title":"The Matrix","genre":"Sci-Fi"}
		]}`)
	})

	entries, err := client.GetWatchHistory(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(3), entries[0].MovieID)
	assert.Equal(t, int64(9), entries[0].UserID)
	assert.Equal(t, "The Dark Knight", entries[0].MovieTitle)

	assert.Equal(t, int64(8), entries[1].MovieID)
	assert.Equal(t, "The Matrix", entries[1].MovieTitle)
	assert.Equal(t, []string{"Sci-Fi"}, entries[1].Genres)
	assert.Equal(t, time.Date(2025, 1, 15, 21, 30, 0, 0, time.UTC), entries[1].WatchedAt)
}

func TestGetRatingShapes(t *testing.T) {
	tests := []struct {
		name string
		data string
		want *int
	}{
		{name: "null", data: `null`, want: nil},
		{name: "number", data: `4`, want: intPtr(4)},
		{name: "numeric string", data: `"3"`, want: intPtr(3)},
		{name: "object", data: `{"rating":5,"userId":1}`, want: intPtr(5)},
		{name: "value object", data: `{"value":2}`, want: intPtr(2)},
		{name: "zero means unrated", data: `0`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/ratings/user/1/movie/2", r.URL.Path)
				_, _ = io.WriteString(w, `{"success":true,"data":`+tt.data+`}`)
			})

			got, err := client.GetRating(context.Background(), 1, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpsertRating(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	got, err := client.GetRating(ctx, 2, 7)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, client.UpsertRating(ctx, RatingInput{UserID: 2, MovieID: 7, Rating: 4}))
	require.NoError(t, client.UpsertRating(ctx, RatingInput{UserID: 2, MovieID: 7, Rating: 2}))

	got, err = client.GetRating(ctx, 2, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, *got)
}

func TestUpsertRatingValidation(t *testing.T) {
	var calls int
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = io.WriteString(w, `{"success":true,"data":null}`)
	})

	for _, rating := range []int{0, 6} {
		err := client.UpsertRating(context.Background(), RatingInput{UserID: 1, MovieID: 1, Rating: rating})
		require.Error(t, err)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "rating", vErr.Field)
	}
	assert.Zero(t, calls)
}

func TestUpsertRatingPayload(t *testing.T) {
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ratings", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 1, body["userId"])
		assert.EqualValues(t, 12, body["movieId"])
		assert.EqualValues(t, 5, body["rating"])
		_, _ = io.WriteString(w, `{"success":true,"data":{}}`)
	})

	require.NoError(t, client.UpsertRating(context.Background(), RatingInput{UserID: 1, MovieID: 12, Rating: 5}))
}

func TestInjectedFailure(t *testing.T) {
	client, mock := newMockClient(t)
	mock.InjectFailure(http.MethodPost, mockapi.Prefix+"/watch-history", http.StatusInternalServerError, "database unavailable")

	err := client.AddWatchHistory(context.Background(), WatchInput{UserID: 2, MovieID: 3})
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "database unavailable", apiErr.Message)
	assert.Equal(t, 3, mock.Store().WatchCount(2))
}

func intPtr(n int) *int { return &n }

func TestAPIErrorWithoutServerMessage(t *testing.T) {
	client := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false}`)
	})

	_, err := client.GetUsers(context.Background())
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "Unauthorized", apiErr.Message)
	assert.Empty(t, apiErr.ServerMessage)
}
