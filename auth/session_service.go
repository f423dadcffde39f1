package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/sessions"
	"github.com/rs/zerolog/log"
)

// IdentityBackend is the part of the REST API the refresh flow needs.
type IdentityBackend interface {
	Me(ctx context.Context, accessToken string) (*identity.Identity, error)
	Refresh(ctx context.Context, refreshToken string) (api.TokenPair, error)
}

var _ IdentityBackend = api.AuthAPI{}

// SessionService resolves the identity for the stored tokens, refreshing
// them at most once when the identity fetch fails.
type SessionService struct {
	store   *sessions.Store
	backend IdentityBackend

	// One LoadIdentity at a time, so a failure never triggers two refreshes.
	loadLock sync.Mutex
}

func NewSessionService(store *sessions.Store, backend IdentityBackend) *SessionService {
	return &SessionService{store: store, backend: backend}
}

func (ss *SessionService) Store() *sessions.Store {
	return ss.store
}

func (ss *SessionService) Backend() IdentityBackend {
	return ss.backend
}

// LoadIdentity runs the identity flow for the current tokens.
//
// Returns errors.ErrNotAuthenticated without a token, errors.ErrAuthExpired
// when the session could not be recovered (the session is cleared), and
// errors.ErrSessionChanged when the tokens were replaced mid-flight (the
// result is dropped). Context cancellation aborts without touching the session.
func (ss *SessionService) LoadIdentity(ctx context.Context) (*identity.Identity, error) {
	ss.loadLock.Lock()
	defer ss.loadLock.Unlock()

	snap := ss.store.Snapshot()
	gen := snap.Generation
	if !snap.HasToken() {
		ss.store.SetState(gen, sessions.Unauthenticated)
		return nil, errors.ErrNotAuthenticated
	}

	logger := log.With().Uint64("generation", gen).Logger()
	ss.store.SetState(gen, sessions.FetchingIdentity)
	logger.Debug().Str("state", sessions.FetchingIdentity.String()).Msg("fetching identity")

	id, err := ss.backend.Me(ctx, snap.AccessToken)
	if err == nil {
		return ss.apply(gen, id)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if snap.RefreshToken == "" {
		logger.Info().Err(err).Msg("identity fetch failed without a refresh token")
		return nil, ss.expire(ctx, gen, err)
	}

	if !ss.store.SetState(gen, sessions.Refreshing) {
		return nil, errors.ErrSessionChanged
	}
	logger.Debug().Err(err).Str("state", sessions.Refreshing.String()).Msg("identity fetch failed, refreshing tokens")

	pair, err := ss.backend.Refresh(ctx, snap.RefreshToken)
	if err == nil && pair.AccessToken == "" {
		err = errors.New("refresh response carried no access token")
	}
	if err != nil {
		if ctx.Err() != nil {
			ss.store.SetState(gen, sessions.FetchingIdentity)
			return nil, ctx.Err()
		}
		logger.Info().Err(err).Msg("token refresh failed")
		return nil, ss.expire(ctx, gen, err)
	}

	refresh := pair.RefreshToken
	if refresh == "" {
		refresh = snap.RefreshToken
	}
	newGen, ok, err := ss.store.SaveTokensIf(ctx, gen, pair.AccessToken, refresh)
	if !ok {
		return nil, errors.ErrSessionChanged
	}
	if err != nil {
		logger.Warn().Err(err).Msg("refreshed tokens were not persisted")
	}

	id, err = ss.backend.Me(ctx, pair.AccessToken)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Info().Err(err).Msg("identity fetch failed after refresh")
		return nil, ss.expire(ctx, newGen, err)
	}
	return ss.apply(newGen, id)
}

func (ss *SessionService) apply(gen uint64, id *identity.Identity) (*identity.Identity, error) {
	if !ss.store.SetIdentityIf(gen, id) {
		return nil, errors.ErrSessionChanged
	}
	log.Debug().Str("email", id.Email).Str("roles", id.Roles.String()).Msg("identity loaded")
	return id, nil
}

// expire clears the session unless it changed since gen.
func (ss *SessionService) expire(ctx context.Context, gen uint64, cause error) error {
	ok, err := ss.store.ClearIf(ctx, gen)
	if !ok {
		return errors.ErrSessionChanged
	}
	if err != nil {
		log.Err(err).Msg("failed to clear persisted session")
	}
	return fmt.Errorf("%w: %w", errors.ErrAuthExpired, cause)
}
