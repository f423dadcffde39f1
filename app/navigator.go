package app

import (
	"context"
	"fmt"

	"github.com/jrsteele09/smartcane-client/auth"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/sessions"
	"github.com/rs/zerolog/log"
)

const defaultMaxRedirects = 4

// ErrTooManyRedirects means the guard kept bouncing between routes.
var ErrTooManyRedirects = errors.New("too many redirects")

// View renders a page for the current session.
type View func(ctx context.Context, snap sessions.Snapshot) (string, error)

// Route is one navigable page.
type Route struct {
	Path         string
	RequireToken bool
	Role         identity.RoleType // implies RequireToken
	View         View
}

// Page is the result of a navigation.
type Page struct {
	Path      string
	Body      string
	Redirects []string // every path passed through before Path
}

// Navigator resolves paths through the route guard and renders the target view.
type Navigator struct {
	sessions     *auth.SessionService
	guard        auth.Guard
	routes       map[string]Route
	maxRedirects int
}

func NewNavigator(sessionService *auth.SessionService, guard auth.Guard, routes ...Route) *Navigator {
	n := &Navigator{
		sessions:     sessionService,
		guard:        guard,
		routes:       make(map[string]Route, len(routes)),
		maxRedirects: defaultMaxRedirects,
	}
	for _, r := range routes {
		n.routes[r.Path] = r
	}
	return n
}

// Navigate evaluates the guard for path, follows redirects and renders the
// page it lands on. "/" and unknown paths go to /auth. A pending decision
// runs the identity flow once per navigation.
func (n *Navigator) Navigate(ctx context.Context, path string) (*Page, error) {
	page := &Page{}
	loaded := false

	for hops := 0; ; hops++ {
		if hops > n.maxRedirects {
			return nil, errors.Wrapf(ErrTooManyRedirects, "navigating to %s", page.Redirects[0])
		}

		route, ok := n.routes[path]
		if !ok {
			page.Redirects = append(page.Redirects, path)
			path = auth.AuthPath
			continue
		}

		snap := n.sessions.Store().Snapshot()
		decision := n.decide(route, snap)

		if decision.Kind == auth.Pending || (decision.Kind == auth.Allow && route.RequireToken && snap.IdentityLoading()) {
			if loaded {
				return nil, fmt.Errorf("identity for %s is still loading", path)
			}
			loaded = true
			if _, err := n.sessions.LoadIdentity(ctx); err != nil && !errors.Is(err, errors.ErrAuthExpired) && !errors.Is(err, errors.ErrSessionChanged) {
				return nil, err
			}
			hops--
			continue
		}

		if decision.Kind == auth.Redirect {
			log.Debug().Str("from", path).Str("to", decision.Target).Msg("route guard redirect")
			page.Redirects = append(page.Redirects, path)
			path = decision.Target
			continue
		}

		body, err := route.View(ctx, snap)
		if err != nil {
			return nil, err
		}
		page.Path = path
		page.Body = body
		return page, nil
	}
}

func (n *Navigator) decide(route Route, snap sessions.Snapshot) auth.Decision {
	if !route.RequireToken && route.Role == "" {
		return auth.Decision{Kind: auth.Allow}
	}
	return n.guard.CanEnter(snap, route.Role)
}
