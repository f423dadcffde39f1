package auth

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/internal/config"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// Backend is the REST surface the authentication service talks to.
type Backend interface {
	IdentityBackend
	Login(ctx context.Context, req api.LoginRequest) (api.TokenPair, error)
	Signup(ctx context.Context, req api.SignupRequest) (*api.Response, error)
}

var _ Backend = api.AuthAPI{}

// Service implements password login with lockout, signup, social login and
// logout on top of the session store.
type Service struct {
	sessions  *SessionService
	backend   Backend
	lockout   *Lockout
	oauth     config.OAuthConfig
	baseURL   string
	validator *Validator
}

func NewService(
	sessions *SessionService,
	backend Backend,
	lockout *Lockout,
	oauth config.OAuthConfig,
	baseURL string,
) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("[NewService] session service is required")
	}
	if backend == nil {
		return nil, errors.New("[NewService] backend is required")
	}
	if oauth == nil {
		return nil, errors.New("[NewService] oauth config is required")
	}
	if lockout == nil {
		lockout = NewLockout()
	}
	return &Service{
		sessions:  sessions,
		backend:   backend,
		lockout:   lockout,
		oauth:     oauth,
		baseURL:   strings.TrimRight(baseURL, "/"),
		validator: NewValidator(),
	}, nil
}

func (s *Service) Lockout() *Lockout {
	return s.lockout
}

func (s *Service) Sessions() *SessionService {
	return s.sessions
}

// Login rejects without a network call while locked out, otherwise exchanges
// the credentials for tokens and loads the identity.
func (s *Service) Login(ctx context.Context, email, password string) (*identity.Identity, error) {
	if err := s.lockout.Check(); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateLogin(email, password); err != nil {
		return nil, err
	}

	pair, err := s.backend.Login(ctx, api.LoginRequest{Email: strings.TrimSpace(email), Password: password})
	if err == nil && pair.AccessToken == "" {
		err = errors.New("login response carried no access token")
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if s.lockout.RecordFailure() {
			log.Warn().Int("seconds", s.lockout.RemainingSeconds()).Msg("login locked after repeated failures")
		}
		return nil, err
	}
	s.lockout.RecordSuccess()

	if err := s.sessions.Store().SaveTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		log.Warn().Err(err).Msg("login tokens were not persisted")
	}
	return s.sessions.LoadIdentity(ctx)
}

func (s *Service) Signup(ctx context.Context, form SignupForm) error {
	if err := s.validator.ValidateSignup(form); err != nil {
		return err
	}
	_, err := s.backend.Signup(ctx, api.SignupRequest{
		Email:     strings.TrimSpace(form.Email),
		Nickname:  strings.TrimSpace(form.Nickname),
		BirthDate: strings.TrimSpace(form.BirthDate),
		Password:  form.Password,
	})
	return err
}

// SocialLoginURL is where the browser must go to start a provider login.
// SMARTCANE_<PROVIDER>_OAUTH_URL replaces it entirely when set.
func (s *Service) SocialLoginURL(provider, redirectURI string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !slices.Contains(s.oauth.GetSocialProviders(), provider) {
		return "", errors.Wrapf(errors.ErrUnknownProvider, "%q", provider)
	}
	if override := s.oauth.GetProviderOverrideURL(provider); override != "" {
		return override, nil
	}
	query := url.Values{"redirect_uri": {redirectURI}}
	return s.baseURL + api.OAuthAuthorizeRoute(provider) + "?" + query.Encode(), nil
}

// CompleteSocialLogin consumes the provider callback query.
func (s *Service) CompleteSocialLogin(ctx context.Context, query url.Values) (*identity.Identity, error) {
	access, refresh := query.Get("accessToken"), query.Get("refreshToken")
	if access != "" && refresh != "" {
		if err := s.sessions.Store().SaveTokens(ctx, access, refresh); err != nil {
			log.Warn().Err(err).Msg("social login tokens were not persisted")
		}
		return s.sessions.LoadIdentity(ctx)
	}
	if reason := query.Get("error"); reason != "" {
		return nil, &SocialLoginError{Reason: reason}
	}
	return nil, MissingCallbackErr
}

func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Store().Clear(ctx)
}
