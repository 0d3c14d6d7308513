// Package api provides the client for the movie recommendation service.
//
// The Client is the only place in reelpick that performs network I/O. Every
// method issues exactly one HTTP request against the configured base URL,
// unwraps the service's response envelope and hands back canonical types.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := api.NewClient(
//		"https://movies.example.com/api",
//		logger,
//		api.WithTimeout(10*time.Second),
//		api.WithRatingScale(10),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	page, err := client.GetMovies(ctx, api.MovieQuery{Limit: 20})
//
// # Envelope
//
// All responses share the shape
//
//	{"success": true, "data": ..., "error": "...", "hasMore": true, "limit": 20, "offset": 0}
//
// A success=false envelope is returned as an *APIError carrying the server's
// message. Callers treat it as recoverable.
//
// # Normalization
//
// The service is loose about field names (movieId vs movie_id, watchedAt vs
// watched_at) and about the scale of movie ratings. The client accepts every
// observed variant and produces one shape: ids as int64, ratings on a /10
// scale, history entries with a genre slice.
//
// # Error Handling
//
//   - *NetworkError: no response (connectivity, timeout)
//   - *APIError: non-2xx status or success=false envelope
//   - *ValidationError: local input rejected before any request
//
// There are no retries, no caching and no request de-duplication.
package api
