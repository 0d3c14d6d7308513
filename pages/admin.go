package pages

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelpick/api"
	"github.com/s0up4200/reelpick/session"
	"github.com/s0up4200/reelpick/ui"
)

// AdminClient is what the admin pages need from the service
type AdminClient interface {
	GetUsers(ctx context.Context) ([]api.User, error)
	GetWatchHistory(ctx context.Context, userID int64) ([]api.WatchHistoryEntry, error)
	GetGenrePreferences(ctx context.Context, userID int64) ([]api.GenrePreference, error)
}

// Trend is one bar of the genre chart
type Trend struct {
	api.GenrePreference
	// Width is the bar length as a percentage of the most watched genre.
	Width float64
}

// AdminPage lets an admin pick a viewer and inspect their watch history
// and genre trends. Load failures leave the affected list empty.
type AdminPage struct {
	client AdminClient
	logger zerolog.Logger

	mu       sync.RWMutex
	viewers  []api.User
	selected int64
	history  []api.WatchHistoryEntry
	trends   []Trend
	closed   bool
}

// NewAdminPage creates the admin page
func NewAdminPage(client AdminClient, user *session.Session, logger zerolog.Logger) (*AdminPage, error) {
	if err := requireRole(user, api.RoleAdmin); err != nil {
		return nil, err
	}
	return &AdminPage{
		client: client,
		logger: logger.With().Str("page", "admin").Logger(),
	}, nil
}

// Mount loads the viewer accounts and selects the first one
func (p *AdminPage) Mount(ctx context.Context) error {
	if p.Closed() {
		return ErrClosed
	}

	users, err := p.client.GetUsers(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to load users")
		return err
	}

	viewers := slices.DeleteFunc(users, func(u api.User) bool { return u.Role != api.RoleViewer })

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.viewers = viewers
	if p.selected == 0 && len(viewers) > 0 {
		p.selected = viewers[0].ID
	}
	return nil
}

// Viewers returns the accounts with the viewer role
func (p *AdminPage) Viewers() []api.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.viewers)
}

// Selected returns the viewer being inspected, 0 when none
func (p *AdminPage) Selected() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selected
}

// Select switches to another listed viewer and clears the loaded data
func (p *AdminPage) Select(userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if !slices.ContainsFunc(p.viewers, func(u api.User) bool { return u.ID == userID }) {
		return ErrUnknownUser
	}
	if p.selected != userID {
		p.selected = userID
		p.history = nil
		p.trends = nil
	}
	return nil
}

// SelectByName selects the listed viewer with the given username
func (p *AdminPage) SelectByName(username string) error {
	p.mu.RLock()
	idx := slices.IndexFunc(p.viewers, func(u api.User) bool { return u.Username == username })
	var id int64
	if idx >= 0 {
		id = p.viewers[idx].ID
	}
	p.mu.RUnlock()

	if idx < 0 {
		return ErrUnknownUser
	}
	return p.Select(id)
}

// LoadHistory fetches the selected viewer's watch history
func (p *AdminPage) LoadHistory(ctx context.Context) ([]api.WatchHistoryEntry, error) {
	userID := p.Selected()
	if userID == 0 {
		return nil, nil
	}

	history, err := p.client.GetWatchHistory(ctx, userID)
	if err != nil {
		p.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load watch history")
		history = nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if p.selected == userID {
		p.history = history
	}
	return slices.Clone(history), err
}

// History returns the last loaded watch history
func (p *AdminPage) History() []api.WatchHistoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.history)
}

// LoadTrends fetches the selected viewer's genre preferences
func (p *AdminPage) LoadTrends(ctx context.Context) ([]Trend, error) {
	userID := p.Selected()
	if userID == 0 {
		return nil, nil
	}

	prefs, err := p.client.GetGenrePreferences(ctx, userID)
	if err != nil {
		p.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load genre preferences")
		prefs = nil
	}

	widths := ui.BarWidths(prefs)
	trends := make([]Trend, len(prefs))
	for i, pref := range prefs {
		trends[i] = Trend{GenrePreference: pref, Width: widths[i]}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if p.selected == userID {
		p.trends = trends
	}
	return slices.Clone(trends), err
}

// Trends returns the last loaded genre trends
func (p *AdminPage) Trends() []Trend {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.trends)
}

// Close stops the page. Later responses are ignored.
func (p *AdminPage) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Closed reports whether Close has been called
func (p *AdminPage) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}
