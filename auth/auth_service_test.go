package auth_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/auth"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/internal/config"
	smerrors "github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/sessions"
	"github.com/jrsteele09/smartcane-client/sessions/storage"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL     = "http://api.smartcane.test"
	testUserEmail   = "john.doe@example.com"
	testPassword    = "password123"
	testRedirectURI = "http://127.0.0.1:5173/auth"
)

// testFixture holds all test dependencies
type testFixture struct {
	ctx     context.Context
	clock   *fakeClock
	store   *sessions.Store
	backend *stubBackend
	service *auth.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()
	store, err := sessions.New(ctx, storage.NewMemory())
	require.NoError(t, err)

	backend := newStubBackend()
	backend.logins[testUserEmail+"/"+testPassword] = api.TokenPair{AccessToken: "a1", RefreshToken: "r1"}
	backend.identities["a1"] = &identity.Identity{Email: testUserEmail, Roles: identity.NewRoles("USER")}

	clock := newFakeClock()
	service, err := auth.NewService(
		auth.NewSessionService(store, backend),
		backend,
		auth.NewLockout(auth.WithNowTime(clock.Now)),
		config.OAuth{},
		testBaseURL+"/",
	)
	require.NoError(t, err)

	return &testFixture{ctx: ctx, clock: clock, store: store, backend: backend, service: service}
}

func TestNewService(t *testing.T) {
	_, err := auth.NewService(nil, newStubBackend(), nil, config.OAuth{}, testBaseURL)
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)

	id, err := f.service.Login(f.ctx, testUserEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, id.Email)

	snap := f.store.Snapshot()
	require.Equal(t, "a1", snap.AccessToken)
	require.Equal(t, "r1", snap.RefreshToken)
	require.Equal(t, sessions.Authenticated, snap.State)

	t.Run("blank fields never reach the server", func(t *testing.T) {
		calls := f.backend.loginCalls
		_, err := f.service.Login(f.ctx, " ", testPassword)
		require.ErrorIs(t, err, smerrors.ErrInvalidInput)
		require.Equal(t, calls, f.backend.loginCalls)
		require.Zero(t, f.service.Lockout().Failures())
	})
}

func TestLoginLockout(t *testing.T) {
	f := setupTestFixture(t)

	for i := 0; i < 5; i++ {
		_, err := f.service.Login(f.ctx, testUserEmail, "wrong")
		var reqErr *api.RequestError
		require.ErrorAs(t, err, &reqErr)
	}
	require.Equal(t, 5, f.backend.loginCalls)
	require.True(t, f.service.Lockout().Locked())
	require.Equal(t, 5, f.service.Lockout().RemainingSeconds())

	_, err := f.service.Login(f.ctx, testUserEmail, testPassword)
	require.ErrorIs(t, err, smerrors.ErrLoginLocked)
	require.Equal(t, 5, f.backend.loginCalls)

	f.clock.Advance(5 * time.Second)
	require.Zero(t, f.service.Lockout().Failures())
	_, err = f.service.Login(f.ctx, testUserEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, 6, f.backend.loginCalls)
}

func TestLoginSuccessResetsFailures(t *testing.T) {
	f := setupTestFixture(t)
	for i := 0; i < 3; i++ {
		_, _ = f.service.Login(f.ctx, testUserEmail, "wrong")
	}
	require.Equal(t, 2, f.service.Lockout().RemainingAttempts())

	_, err := f.service.Login(f.ctx, testUserEmail, testPassword)
	require.NoError(t, err)
	require.Zero(t, f.service.Lockout().Failures())
}

func TestSignup(t *testing.T) {
	f := setupTestFixture(t)
	form := auth.SignupForm{
		Email:     "new@example.com",
		Nickname:  "walker",
		BirthDate: "1990-04-05",
		Password:  "pw",
		Confirm:   "pw",
	}

	require.NoError(t, f.service.Signup(f.ctx, form))
	require.Equal(t, 1, f.backend.signupCalls)
	require.Equal(t, "1990-04-05", f.backend.lastSignup.BirthDate)

	t.Run("mismatched confirmation", func(t *testing.T) {
		bad := form
		bad.Confirm = "other"
		err := f.service.Signup(f.ctx, bad)
		require.ErrorIs(t, err, smerrors.ErrInvalidInput)
		require.Equal(t, 1, f.backend.signupCalls)
	})
}

func TestSocialLoginURL(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("backend authorization url", func(t *testing.T) {
		u, err := f.service.SocialLoginURL("Kakao", testRedirectURI)
		require.NoError(t, err)
		require.Equal(t, testBaseURL+"/oauth2/authorization/kakao?redirect_uri="+url.QueryEscape(testRedirectURI), u)
	})

	t.Run("override", func(t *testing.T) {
		t.Setenv("SMARTCANE_NAVER_OAUTH_URL", "https://naver.example.com/start")
		u, err := f.service.SocialLoginURL("naver", testRedirectURI)
		require.NoError(t, err)
		require.Equal(t, "https://naver.example.com/start", u)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := f.service.SocialLoginURL("myspace", testRedirectURI)
		require.ErrorIs(t, err, smerrors.ErrUnknownProvider)
	})
}

func TestCompleteSocialLogin(t *testing.T) {
	t.Run("tokens", func(t *testing.T) {
		f := setupTestFixture(t)
		id, err := f.service.CompleteSocialLogin(f.ctx, url.Values{"accessToken": {"a1"}, "refreshToken": {"r1"}})
		require.NoError(t, err)
		require.Equal(t, testUserEmail, id.Email)
		require.Equal(t, "r1", f.store.Snapshot().RefreshToken)
	})

	t.Run("provider error", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.service.CompleteSocialLogin(f.ctx, url.Values{"error": {"access_denied"}})
		require.ErrorIs(t, err, smerrors.ErrSocialLogin)
		var socialErr *auth.SocialLoginError
		require.ErrorAs(t, err, &socialErr)
		require.Equal(t, "access_denied", socialErr.Reason)
		require.False(t, f.store.Snapshot().HasToken())
	})

	t.Run("only one token", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.service.CompleteSocialLogin(f.ctx, url.Values{"accessToken": {"a1"}})
		require.ErrorIs(t, err, auth.MissingCallbackErr)
		require.False(t, f.store.Snapshot().HasToken())
	})
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.service.Login(f.ctx, testUserEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(f.ctx))
	snap := f.store.Snapshot()
	require.False(t, snap.HasToken())
	require.Nil(t, snap.Identity)
}
