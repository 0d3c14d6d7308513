package pages

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelpick/api"
	"github.com/s0up4200/reelpick/paginate"
	"github.com/s0up4200/reelpick/session"
	"github.com/s0up4200/reelpick/ui"
)

// DefaultViewportHeight is the number of rows the recommendations list shows
const DefaultViewportHeight = 10

// RecommendationsClient is what the recommendations page needs from the service
type RecommendationsClient interface {
	api.RecommendationSource
	api.RatingService
}

// RecommendationsOptions configures a RecommendationsPage
type RecommendationsOptions struct {
	Limit          int
	ViewportHeight int
	Logger         zerolog.Logger
	OnChange       func(paginate.Snapshot[api.Movie])
}

// RecommendationsPage lists the movies recommended to a viewer and lets
// them rate each one from its detail overlay.
type RecommendationsPage struct {
	client   RecommendationsClient
	user     session.Session
	logger   zerolog.Logger
	list     *paginate.Controller[int64, api.Movie]
	viewport *ui.Viewport
	onChange func(paginate.Snapshot[api.Movie])

	mu        sync.Mutex
	committed map[int64]int
	open      *ui.DetailOverlay
	closed    bool
}

// NewRecommendationsPage creates the recommendations page for a viewer
func NewRecommendationsPage(client RecommendationsClient, user *session.Session, opts RecommendationsOptions) (*RecommendationsPage, error) {
	if err := requireRole(user, api.RoleViewer); err != nil {
		return nil, err
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}

	logger := opts.Logger.With().Str("page", "recommendations").Int64("user_id", user.UserID).Logger()
	p := &RecommendationsPage{
		client:    client,
		user:      *user,
		logger:    logger,
		viewport:  ui.NewViewport(opts.ViewportHeight),
		onChange:  opts.OnChange,
		committed: make(map[int64]int),
	}
	p.list = paginate.New[int64, api.Movie](p.fetchRecommendations, movieKey, paginate.Options[api.Movie]{
		Limit:    opts.Limit,
		Logger:   logger,
		OnChange: p.render,
		Scroll:   p.viewport,
	})
	return p, nil
}

func (p *RecommendationsPage) fetchRecommendations(ctx context.Context, limit, offset int, userID int64) (paginate.Page[api.Movie], error) {
	page, err := p.client.GetRecommendations(ctx, userID, api.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return paginate.Page[api.Movie]{}, err
	}
	return paginate.Page[api.Movie]{Items: page.Movies, HasMore: page.HasMore}, nil
}

func (p *RecommendationsPage) render(snap paginate.Snapshot[api.Movie]) {
	p.viewport.SetTotal(len(snap.Items))
	if p.onChange != nil {
		p.onChange(snap)
	}
}

// Mount loads the first page of recommendations
func (p *RecommendationsPage) Mount(ctx context.Context) error {
	if p.Closed() {
		return ErrClosed
	}
	return p.list.SetQuery(ctx, p.user.UserID)
}

// LoadMore appends the next page, keeping the scroll position
func (p *RecommendationsPage) LoadMore(ctx context.Context) (bool, error) {
	return p.list.LoadMore(ctx)
}

// List exposes the list controller, e.g. to drive it from a trigger
func (p *RecommendationsPage) List() *paginate.Controller[int64, api.Movie] {
	return p.list
}

// Viewport is the scroll state of the list
func (p *RecommendationsPage) Viewport() *ui.Viewport {
	return p.viewport
}

// NearEnd reports whether the end of the list is within threshold rows
func (p *RecommendationsPage) NearEnd(threshold int) bool {
	return p.viewport.NearEnd(threshold)
}

// Snapshot returns the list state
func (p *RecommendationsPage) Snapshot() paginate.Snapshot[api.Movie] {
	return p.list.Snapshot()
}

// Open builds the detail overlay for a loaded movie. The rating widget
// shows the committed rating: the one saved from this page, otherwise the
// one stored by the service. A failed lookup shows the movie unrated.
func (p *RecommendationsPage) Open(ctx context.Context, movieID int64) (*ui.DetailOverlay, error) {
	if p.Closed() {
		return nil, ErrClosed
	}
	m, ok := findMovie(p.list.Items(), movieID)
	if !ok {
		return nil, ErrUnknownMovie
	}

	value, known := p.Committed(movieID)
	if !known {
		rating, err := p.client.GetRating(ctx, p.user.UserID, movieID)
		switch {
		case err != nil:
			p.logger.Warn().Err(err).Int64("movie_id", movieID).Msg("Failed to load rating")
		case rating != nil:
			value = *rating
		}
	}

	overlay := &ui.DetailOverlay{Movie: m}
	overlay.Rating = ui.NewStarRating(value, false, func(n int) {
		if err := p.Rate(context.Background(), movieID, n); err != nil {
			p.logger.Error().Err(err).Int64("movie_id", movieID).Int("rating", n).Msg("Failed to save rating")
		}
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	p.open = overlay
	return overlay, nil
}

// CloseOverlay dismisses the open overlay
func (p *RecommendationsPage) CloseOverlay() {
	p.mu.Lock()
	p.open = nil
	p.mu.Unlock()
}

// Rate saves a 1..5 rating. The rating is committed locally, and shown by
// an open overlay for the movie, only after the service accepted it.
func (p *RecommendationsPage) Rate(ctx context.Context, movieID int64, value int) error {
	if p.Closed() {
		return ErrClosed
	}

	err := p.client.UpsertRating(ctx, api.RatingInput{UserID: p.user.UserID, MovieID: movieID, Rating: value})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.committed[movieID] = value
	if p.open != nil && p.open.Movie.ID == movieID && p.open.Rating != nil {
		p.open.Rating.SetValue(value)
	}
	p.logger.Debug().Int64("movie_id", movieID).Int("rating", value).Msg("Rating saved")
	return nil
}

// Committed returns the rating saved from this page for movieID
func (p *RecommendationsPage) Committed(movieID int64) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.committed[movieID]
	return v, ok
}

// Close stops the page. Later responses are ignored.
func (p *RecommendationsPage) Close() {
	p.mu.Lock()
	p.closed = true
	p.open = nil
	p.mu.Unlock()
	p.list.Close()
}

// Closed reports whether Close has been called
func (p *RecommendationsPage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
