package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/rs/zerolog/log"
)

// SocialCompleter finishes a social login from the callback query.
type SocialCompleter interface {
	CompleteSocialLogin(ctx context.Context, query url.Values) (*identity.Identity, error)
}

// Result is the outcome of the first callback the server receives.
type Result struct {
	Identity *identity.Identity
	Err      error
}

// CallbackServer is the short-lived loopback listener a social login
// redirect lands on.
type CallbackServer struct {
	env       string
	router    chi.Router
	completer SocialCompleter

	listener   net.Listener
	httpServer *http.Server

	results chan Result
	once    sync.Once
}

func New(completer SocialCompleter, env string) *CallbackServer {
	s := &CallbackServer{
		env:       env,
		router:    chi.NewRouter(),
		completer: completer,
		results:   make(chan Result, 1),
	}
	s.routes()
	return s
}

func (s *CallbackServer) routes() {
	s.router.Use(StdMiddleware(s.env)...)
	s.router.Get(RouteRoot, func(w http.ResponseWriter, r *http.Request) {
		target := RouteAuth
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusFound)
	})
	s.router.Get(RouteAuth, s.AuthCallbackHandler())
}

func (s *CallbackServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Listen binds addr. Port 0 picks a free port; see RedirectURI.
func (s *CallbackServer) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("[CallbackServer Listen] %s: %w", addr, err)
	}
	s.listener = l
	s.httpServer = &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("callback server stopped")
		}
	}()
	log.Debug().Str("addr", l.Addr().String()).Msg("callback server listening")
	return nil
}

// RedirectURI is the absolute /auth URL of the bound listener.
func (s *CallbackServer) RedirectURI() string {
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + RouteAuth
}

// Wait blocks until the first callback completes or ctx ends, then shuts the
// listener down.
func (s *CallbackServer) Wait(ctx context.Context) Result {
	defer s.Shutdown()
	select {
	case res := <-s.results:
		return res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

func (s *CallbackServer) Shutdown() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("callback server shutdown")
	}
}

func (s *CallbackServer) deliver(res Result) {
	s.once.Do(func() {
		s.results <- res
	})
}
