// Package pages composes the api client, the list controllers and the ui
// components into the screens a signed-in user can open.
//
// A page is created for one session, mounted once and closed when the user
// navigates away. Closing a page closes its controllers, so responses that
// arrive afterwards are dropped.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelpick/api"
	"github.com/s0up4200/reelpick/guard"
	"github.com/s0up4200/reelpick/session"
)

var (
	// ErrClosed is returned by operations on a closed page
	ErrClosed = errors.New("page closed")
	// ErrForbidden is returned when the session's role may not open a page
	ErrForbidden = errors.New("not allowed for this role")
	// ErrUnknownMovie is returned for a movie that is not in the page's list
	ErrUnknownMovie = errors.New("movie not loaded")
	// ErrUnknownUser is returned when selecting a user the page does not list
	ErrUnknownUser = errors.New("user not listed")
)

// Page is a mountable screen
type Page interface {
	Mount(ctx context.Context) error
	Close()
}

// Options holds the settings shared by every page
type Options struct {
	MoviesLimit          int
	RecommendationsLimit int
	HotLimit             int
	Logger               zerolog.Logger
}

// ForRoute creates the page for an authorized route
func ForRoute(route string, client api.Gateway, user *session.Session, opts Options) (Page, error) {
	var (
		page Page
		err  error
	)
	switch guard.Normalize(route) {
	case guard.RouteViewerMovies:
		page, err = NewMoviesPage(client, user, MoviesOptions{
			Limit:    opts.MoviesLimit,
			HotLimit: opts.HotLimit,
			Logger:   opts.Logger,
		})
	case guard.RouteViewerRecommendations:
		page, err = NewRecommendationsPage(client, user, RecommendationsOptions{
			Limit:  opts.RecommendationsLimit,
			Logger: opts.Logger,
		})
	case guard.RouteAdminHistory, guard.RouteAdminTrends:
		page, err = NewAdminPage(client, user, opts.Logger)
	default:
		return nil, fmt.Errorf("no page for route %s", route)
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

func requireRole(user *session.Session, role api.Role) error {
	if user == nil {
		return session.ErrNotLoggedIn
	}
	if user.Role != role {
		return fmt.Errorf("%w: %s", ErrForbidden, user.Role)
	}
	return nil
}

func movieKey(m api.Movie) string {
	return strconv.FormatInt(m.ID, 10)
}
