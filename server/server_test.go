package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/smartcane-client/auth"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/server"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	calls int
}

func (c *stubCompleter) CompleteSocialLogin(_ context.Context, q url.Values) (*identity.Identity, error) {
	c.calls++
	if q.Get("error") != "" {
		return nil, &auth.SocialLoginError{Reason: q.Get("error")}
	}
	if q.Get("accessToken") == "" || q.Get("refreshToken") == "" {
		return nil, auth.MissingCallbackErr
	}
	return &identity.Identity{ID: "u-1", Nickname: "cane"}, nil
}

func setupTestFixture(t *testing.T) (*server.CallbackServer, *stubCompleter) {
	t.Helper()
	completer := &stubCompleter{}
	return server.New(completer, "TEST"), completer
}

func waitShort(t *testing.T, s *server.CallbackServer) server.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	return s.Wait(ctx)
}

func TestCallbackServer(t *testing.T) {
	t.Run("root redirects to auth keeping the query", func(t *testing.T) {
		s, _ := setupTestFixture(t)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?error=denied", nil))
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "/auth?error=denied", rec.Header().Get("Location"))
	})

	t.Run("tokens complete the login", func(t *testing.T) {
		s, completer := setupTestFixture(t)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth?accessToken=a&refreshToken=r", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Signed in as cane")
		require.Equal(t, 1, completer.calls)

		res := waitShort(t, s)
		require.NoError(t, res.Err)
		require.Equal(t, identity.ID("u-1"), res.Identity.ID)
	})

	t.Run("provider error is delivered", func(t *testing.T) {
		s, _ := setupTestFixture(t)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth?error=access_denied", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		res := waitShort(t, s)
		var socialErr *auth.SocialLoginError
		require.ErrorAs(t, res.Err, &socialErr)
		require.Equal(t, "access_denied", socialErr.Reason)
	})

	t.Run("bare hit does not end the wait", func(t *testing.T) {
		s, _ := setupTestFixture(t)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		res := waitShort(t, s)
		require.ErrorIs(t, res.Err, context.DeadlineExceeded)
	})

	t.Run("only the first result is kept", func(t *testing.T) {
		s, _ := setupTestFixture(t)
		s.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth?error=first", nil))
		s.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth?accessToken=a&refreshToken=r", nil))

		res := waitShort(t, s)
		require.ErrorContains(t, res.Err, "first")
	})

	t.Run("frame security headers", func(t *testing.T) {
		s, _ := setupTestFixture(t)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth", nil))
		require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
		require.Equal(t, "frame-ancestors 'self'", rec.Header().Get("Content-Security-Policy"))
	})

	t.Run("listens on loopback", func(t *testing.T) {
		s, _ := setupTestFixture(t)
		require.NoError(t, s.Listen("127.0.0.1:0"))
		redirect := s.RedirectURI()
		require.Contains(t, redirect, "http://127.0.0.1:")

		resp, err := http.Get(redirect + "?accessToken=a&refreshToken=r")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		res := s.Wait(ctx)
		require.NoError(t, res.Err)
		require.Equal(t, "cane", res.Identity.Nickname)
	})
}

func TestRecoverMiddleware(t *testing.T) {
	h := server.ChainMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), server.StdMiddleware("DEV")...)

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/anything", nil))
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChainMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := server.ChainMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("a"), mark("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}
