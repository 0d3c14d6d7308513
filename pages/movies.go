package pages

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/reelpick/api"
	"github.com/s0up4200/reelpick/filter"
	"github.com/s0up4200/reelpick/paginate"
	"github.com/s0up4200/reelpick/session"
	"github.com/s0up4200/reelpick/ui"
)

// ratingLookups bounds the concurrent GetRating calls of LoadRatings
const ratingLookups = 4

// MoviesClient is what the movies page needs from the service
type MoviesClient interface {
	api.MovieSource
	api.HistoryService
	api.RatingService
}

// MoviesOptions configures a MoviesPage
type MoviesOptions struct {
	Limit    int
	HotLimit int
	Logger   zerolog.Logger
	OnChange func(paginate.Snapshot[api.Movie])
	Scroll   paginate.ScrollKeeper
}

// MoviesPage is the viewer's catalog: an endlessly scrolling movie grid,
// the hot movies carousel and the watched markers.
type MoviesPage struct {
	client   MoviesClient
	user     session.Session
	hotLimit int
	logger   zerolog.Logger
	catalog  *paginate.Controller[int64, api.Movie]

	mu      sync.RWMutex
	hot     []api.Movie
	watched map[int64]struct{}
	pending map[int64]struct{}
	// ratings holds looked up ratings, 0 for movies the user has not rated
	ratings map[int64]int
	filter  filter.Filter
	closed  bool
}

// NewMoviesPage creates the catalog page for a viewer
func NewMoviesPage(client MoviesClient, user *session.Session, opts MoviesOptions) (*MoviesPage, error) {
	if err := requireRole(user, api.RoleViewer); err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		opts.Limit = paginate.DefaultLimit
	}
	if opts.HotLimit <= 0 {
		opts.HotLimit = 10
	}

	logger := opts.Logger.With().Str("page", "movies").Int64("user_id", user.UserID).Logger()
	p := &MoviesPage{
		client:   client,
		user:     *user,
		hotLimit: opts.HotLimit,
		logger:   logger,
		watched:  make(map[int64]struct{}),
		pending:  make(map[int64]struct{}),
		ratings:  make(map[int64]int),
	}
	p.catalog = paginate.New[int64, api.Movie](p.fetchMovies, movieKey, paginate.Options[api.Movie]{
		Limit:    opts.Limit,
		Logger:   logger,
		OnChange: opts.OnChange,
		Scroll:   opts.Scroll,
	})
	return p, nil
}

func (p *MoviesPage) fetchMovies(ctx context.Context, limit, offset int, userID int64) (paginate.Page[api.Movie], error) {
	page, err := p.client.GetMovies(ctx, api.MovieQuery{Limit: limit, Offset: offset, UserID: userID})
	if err != nil {
		return paginate.Page[api.Movie]{}, err
	}
	return paginate.Page[api.Movie]{Items: page.Movies, HasMore: page.HasMore}, nil
}

// Mount loads the first catalog page, the hot list and the watch history
// concurrently. Hot list and history failures leave those parts empty; only
// a failed catalog load is returned.
func (p *MoviesPage) Mount(ctx context.Context) error {
	if p.Closed() {
		return ErrClosed
	}

	var g errgroup.Group
	g.Go(func() error {
		return p.catalog.SetQuery(ctx, p.user.UserID)
	})
	g.Go(func() error {
		hot, err := p.client.GetHotMovies(ctx, p.hotLimit)
		if err != nil {
			p.logger.Error().Err(err).Msg("Failed to load hot movies")
			return nil
		}
		p.mu.Lock()
		if !p.closed {
			p.hot = hot
		}
		p.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		history, err := p.client.GetWatchHistory(ctx, p.user.UserID)
		if err != nil {
			p.logger.Error().Err(err).Msg("Failed to load watch history")
			return nil
		}
		p.mu.Lock()
		if !p.closed {
			for _, h := range history {
				p.watched[h.MovieID] = struct{}{}
			}
		}
		p.mu.Unlock()
		return nil
	})
	return g.Wait()
}

// LoadMore appends the next catalog page
func (p *MoviesPage) LoadMore(ctx context.Context) (bool, error) {
	return p.catalog.LoadMore(ctx)
}

// Catalog exposes the list controller, e.g. to drive it from a trigger
func (p *MoviesPage) Catalog() *paginate.Controller[int64, api.Movie] {
	return p.catalog
}

// Snapshot returns the catalog state
func (p *MoviesPage) Snapshot() paginate.Snapshot[api.Movie] {
	return p.catalog.Snapshot()
}

// Hot returns the hot movies loaded on mount
func (p *MoviesPage) Hot() []api.Movie {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]api.Movie(nil), p.hot...)
}

// IsWatched reports whether the user has watched movieID
func (p *MoviesPage) IsWatched(movieID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.watched[movieID]
	return ok
}

// WatchedSet returns a copy of the watched markers
func (p *MoviesPage) WatchedSet() map[int64]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[int64]bool, len(p.watched))
	for id := range p.watched {
		out[id] = true
	}
	return out
}

// MarkWatched records that the user watched movieID. It does nothing when
// the movie is already watched or a request for it is in flight. The
// marker is added only once the service accepted the entry.
func (p *MoviesPage) MarkWatched(ctx context.Context, movieID int64) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if _, ok := p.watched[movieID]; ok {
		p.mu.Unlock()
		return nil
	}
	if _, ok := p.pending[movieID]; ok {
		p.mu.Unlock()
		return nil
	}
	p.pending[movieID] = struct{}{}
	p.mu.Unlock()

	err := p.client.AddWatchHistory(ctx, api.WatchInput{UserID: p.user.UserID, MovieID: movieID})

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, movieID)
	if err != nil {
		p.logger.Error().Err(err).Int64("movie_id", movieID).Msg("Failed to add to watch history")
		return err
	}
	if !p.closed {
		p.watched[movieID] = struct{}{}
	}
	p.logger.Debug().Int64("movie_id", movieID).Msg("Marked as watched")
	return nil
}

// LoadRatings looks up the user's rating of every loaded movie whose rating
// is not known yet. Lookups that succeeded are kept when another fails.
func (p *MoviesPage) LoadRatings(ctx context.Context) error {
	if p.Closed() {
		return ErrClosed
	}

	items := p.catalog.Items()

	p.mu.RLock()
	var missing []int64
	for _, m := range items {
		if _, ok := p.ratings[m.ID]; !ok {
			missing = append(missing, m.ID)
		}
	}
	p.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ratingLookups)
	for _, id := range missing {
		g.Go(func() error {
			rating, err := p.client.GetRating(ctx, p.user.UserID, id)
			if err != nil {
				return err
			}
			value := 0
			if rating != nil {
				value = *rating
			}

			p.mu.Lock()
			if !p.closed {
				p.ratings[id] = value
			}
			p.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.logger.Error().Err(err).Msg("Failed to load ratings")
		return err
	}
	return nil
}

// Rating returns the user's rating of movieID, 0 when unrated or not
// looked up
func (p *MoviesPage) Rating(movieID int64) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ratings[movieID]
}

// SetFilter narrows what Visible returns. nil shows everything.
func (p *MoviesPage) SetFilter(f filter.Filter) {
	p.mu.Lock()
	p.filter = f
	p.mu.Unlock()
}

// Visible returns the loaded movies that pass the filter, with their
// watched markers and ratings
func (p *MoviesPage) Visible() []filter.Subject {
	return p.Subjects(p.catalog.Items())
}

// Subjects pairs movies with what the page knows about them and applies
// the filter
func (p *MoviesPage) Subjects(movies []api.Movie) []filter.Subject {
	p.mu.RLock()
	f := p.filter
	subjects := make([]filter.Subject, len(movies))
	for i, m := range movies {
		_, watched := p.watched[m.ID]
		subjects[i] = filter.Subject{Movie: m, Watched: watched, MyRating: p.ratings[m.ID]}
	}
	p.mu.RUnlock()

	return filter.Apply(f, subjects)
}

// Overlay builds the detail view for a loaded movie
func (p *MoviesPage) Overlay(movieID int64) (*ui.DetailOverlay, error) {
	m, ok := findMovie(p.catalog.Items(), movieID)
	if !ok {
		m, ok = findMovie(p.Hot(), movieID)
	}
	if !ok {
		return nil, ErrUnknownMovie
	}
	return &ui.DetailOverlay{
		Movie:           m,
		ShowWatchAction: true,
		Watched:         p.IsWatched(movieID),
	}, nil
}

// Close stops the page. Later responses are ignored.
func (p *MoviesPage) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.catalog.Close()
}

// Closed reports whether Close has been called
func (p *MoviesPage) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func findMovie(movies []api.Movie, id int64) (api.Movie, bool) {
	for _, m := range movies {
		if m.ID == id {
			return m, true
		}
	}
	return api.Movie{}, false
}
