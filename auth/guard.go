package auth

import (
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/internal/config"
	"github.com/jrsteele09/smartcane-client/sessions"
	"github.com/rs/zerolog/log"
)

const (
	AuthPath    = "/auth"
	ProfilePath = "/profile"
	AdminPath   = "/admin"
)

type DecisionKind int

const (
	Allow DecisionKind = iota
	Redirect
	Pending // Identity still loading; decide again once it arrives
)

func (k DecisionKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Pending:
		return "pending"
	}
	return "unknown"
}

// Decision is the outcome of a route guard check.
type Decision struct {
	Kind   DecisionKind
	Target string // Set for Redirect
}

func RedirectTo(target string) Decision {
	return Decision{Kind: Redirect, Target: target}
}

// Guard evaluates route access against a session snapshot.
type Guard struct {
	Mode identity.MatchMode
}

// NewGuard reads the role match mode from config.
func NewGuard(cfg config.SecurityConfig) Guard {
	if cfg.GetRoleMatchMode() == config.RoleMatchExact {
		return Guard{Mode: identity.MatchExact}
	}
	return Guard{Mode: identity.MatchSuffix}
}

// CanEnter checks a route with the default suffix role matching.
func CanEnter(snap sessions.Snapshot, requiredRole string) Decision {
	return Guard{Mode: identity.MatchSuffix}.CanEnter(snap, requiredRole)
}

// CanEnter returns Redirect(/auth) without a token, Pending while a required
// role cannot be checked yet, Redirect(/profile) when the role is missing,
// and Allow otherwise. An empty requiredRole only needs a token.
func (g Guard) CanEnter(snap sessions.Snapshot, requiredRole string) Decision {
	if !snap.HasToken() {
		return RedirectTo(AuthPath)
	}
	if requiredRole == "" {
		return Decision{Kind: Allow}
	}
	if snap.Identity == nil {
		return Decision{Kind: Pending}
	}
	if !snap.Identity.HasRole(requiredRole, g.Mode) {
		return RedirectTo(ProfilePath)
	}
	if g.Mode == identity.MatchSuffix && snap.Identity.Roles.MatchedBySuffixOnly(requiredRole) {
		log.Warn().Str("required", requiredRole).Str("roles", snap.Identity.Roles.String()).
			Msg("role granted by suffix match")
	}
	return Decision{Kind: Allow}
}
