// Package guard decides whether the current session may open a route.
package guard

import (
	"slices"
	"strings"

	"github.com/s0up4200/reelpick/api"
	"github.com/s0up4200/reelpick/session"
)

// Routes known to the client
const (
	RouteLogin                 = "/login"
	RouteAdminHistory          = "/admin/history"
	RouteAdminTrends           = "/admin/trends"
	RouteViewerRecommendations = "/viewer/recommendations"
	RouteViewerMovies          = "/viewer/movies"
)

// Outcome is the result of a route check
type Outcome int

const (
	// Pending means the session has not been restored yet; render nothing.
	Pending Outcome = iota
	// Unauthenticated means there is no session; go to the login route.
	Unauthenticated
	// Unauthorized means the role may not open the route; go to its landing route.
	Unauthorized
	// Authorized means the route may be rendered.
	Authorized
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Unauthenticated:
		return "unauthenticated"
	case Unauthorized:
		return "unauthorized"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Requirement decides whether a session may open a route
type Requirement interface {
	Allows(s *session.Session) bool
}

// RoleRequirement admits sessions whose role is one of Roles
type RoleRequirement struct {
	Roles []api.Role
}

// RequireRoles builds a RoleRequirement
func RequireRoles(roles ...api.Role) RoleRequirement {
	return RoleRequirement{Roles: roles}
}

func (r RoleRequirement) Allows(s *session.Session) bool {
	return s != nil && slices.Contains(r.Roles, s.Role)
}

// Public admits everyone, signed in or not
type Public struct{}

func (Public) Allows(*session.Session) bool { return true }

// Decision is what the caller should do with a route request
type Decision struct {
	Outcome Outcome
	// Route is the route to render: the requested one when Authorized or
	// public, otherwise the redirect target. Empty when Pending.
	Route string
}

// Redirected reports whether Route differs from the requested route
func (d Decision) Redirected(requested string) bool {
	return d.Route != "" && d.Route != Normalize(requested)
}

// SessionSource is the read side of the session store
type SessionSource interface {
	Restored() bool
	Current() (*session.Session, bool)
}

// Guard maps routes to requirements
type Guard struct {
	sessions SessionSource
	routes   map[string]Requirement
}

// New returns a guard with the standard route table
func New(sessions SessionSource) *Guard {
	return &Guard{
		sessions: sessions,
		routes: map[string]Requirement{
			RouteLogin:                 Public{},
			RouteAdminHistory:          RequireRoles(api.RoleAdmin),
			RouteAdminTrends:           RequireRoles(api.RoleAdmin),
			RouteViewerRecommendations: RequireRoles(api.RoleViewer),
			RouteViewerMovies:          RequireRoles(api.RoleViewer),
		},
	}
}

// Routes returns the known routes in sorted order
func (g *Guard) Routes() []string {
	out := make([]string, 0, len(g.routes))
	for r := range g.routes {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Check decides what to do with a request for route. Unknown routes and the
// root redirect to the login route.
func (g *Guard) Check(route string) Decision {
	route = Normalize(route)

	req, known := g.routes[route]
	if !known {
		return Decision{Outcome: Unauthenticated, Route: RouteLogin}
	}
	if _, public := req.(Public); public {
		return Decision{Outcome: Authorized, Route: route}
	}

	if !g.sessions.Restored() {
		return Decision{Outcome: Pending}
	}

	current, ok := g.sessions.Current()
	if !ok {
		return Decision{Outcome: Unauthenticated, Route: RouteLogin}
	}
	if !req.Allows(current) {
		return Decision{Outcome: Unauthorized, Route: LandingFor(current.Role)}
	}
	return Decision{Outcome: Authorized, Route: route}
}

// LandingFor returns the default route for a role
func LandingFor(role api.Role) string {
	switch role {
	case api.RoleAdmin:
		return RouteAdminHistory
	case api.RoleViewer:
		return RouteViewerRecommendations
	default:
		return RouteLogin
	}
}

// Normalize lowercases route, ensures a leading slash and drops a trailing one
func Normalize(route string) string {
	route = strings.ToLower(strings.TrimSpace(route))
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
		if route == "" {
			route = "/"
		}
	}
	return route
}
