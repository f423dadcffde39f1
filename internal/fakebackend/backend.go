// Package fakebackend is an in-process implementation of the Smart Cane REST
// backend. Tests mount it on httptest servers and `smartcane dev-backend`
// serves it locally.
package fakebackend

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/server"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultAutopayURL = "https://pay.toss.example/autopay/session"
)

// Backend holds accounts, tokens, points and device bindings in memory.
type Backend struct {
	router  chi.Router
	env     string
	now     func() time.Time
	users   *UserRepo
	issuer  *Issuer
	devices *DeviceRepo

	rotateRefresh bool
	autopayURL    string

	controlLock sync.Mutex
	failures    map[string][]Failure
	calls       map[string]int
	socialError string
}

// Failure is an injected response for one call to a route.
type Failure struct {
	Status  int
	Message string
	Body    string // raw body; overrides Message when set
}

type Option func(*Backend)

// WithNowTime sets the clock used for token issue and expiry.
func WithNowTime(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

func WithAccessTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.issuer.accessTTL = ttl
	}
}

// WithRotateRefresh controls whether /api/auth/refresh issues a new refresh
// token. When false the response carries only an access token.
func WithRotateRefresh(rotate bool) Option {
	return func(b *Backend) {
		b.rotateRefresh = rotate
	}
}

func WithAutopayURL(u string) Option {
	return func(b *Backend) {
		b.autopayURL = u
	}
}

func WithEnv(env string) Option {
	return func(b *Backend) {
		b.env = env
	}
}

func New(options ...Option) *Backend {
	b := &Backend{
		router:        chi.NewRouter(),
		env:           "TEST",
		now:           time.Now,
		rotateRefresh: true,
		autopayURL:    defaultAutopayURL,
		failures:      make(map[string][]Failure),
		calls:         make(map[string]int),
	}
	now := func() time.Time { return b.now() }
	b.users = NewUserRepo(now)
	b.issuer = NewIssuer([]byte("smartcane-dev-secret"), defaultAccessTTL, now)
	b.devices = NewDeviceRepo(now)

	for _, option := range options {
		option(b)
	}
	b.routes()
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) routes() {
	r := b.router
	r.Use(middleware.RealIP)
	r.Use(server.StdMiddleware(b.env)...)
	r.Use(b.countingMiddleware)

	r.Get("/oauth2/authorization/{provider}", b.handleSocialAuthorize)

	r.Post(api.SignupRoute, b.handleSignup)
	r.Post(api.LoginRoute, b.handleLogin)
	r.Post(api.RefreshRoute, b.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(b.bearerMiddleware)

		r.Get(api.IdentityRoute, b.handleMe)

		r.Get(api.PointsBalanceRoute, b.handleBalance)
		r.Post(api.PointsChargeRoute, b.handleCharge)
		r.Post(api.PointsPayRoute, b.handlePay)

		r.Get(api.TossAutopayRoute, b.handleAutopay)

		r.Get("/api/users/{userID}/device-bindings", b.handleListDevices)
		r.Post(api.DevicesRoute, b.handleRegisterDevice)
		r.Get(api.DevicesRoute+"/{id}", b.handleGetDevice)
		r.Delete(api.DevicesRoute+"/{id}", b.handleRemoveDevice)

		r.Route(api.AdminUsersRoute, func(r chi.Router) {
			r.Use(b.adminMiddleware)
			r.Get("/", b.handleListUsers)
			r.Post("/", b.handleCreateUser)
			r.Patch("/{id}/status", b.handleUpdateStatus)
		})
	})
}

// SeedUser creates an account directly, bypassing signup validation.
func (b *Backend) SeedUser(email, password string, roles ...string) (*User, error) {
	u := User{Email: email, Nickname: nicknameFromEmail(email)}
	if len(roles) > 0 {
		u.Roles = normalizeRoles(roles)
	}
	return b.users.Create(u, password)
}

// Users exposes the account table.
func (b *Backend) Users() *UserRepo {
	return b.users
}

func (b *Backend) Issuer() *Issuer {
	return b.issuer
}

func (b *Backend) Devices() *DeviceRepo {
	return b.devices
}

// FailNext makes the next call to method+path answer with f instead of the
// real handler. Repeated calls queue further failures.
func (b *Backend) FailNext(method, path string, f Failure) {
	b.controlLock.Lock()
	defer b.controlLock.Unlock()
	key := method + " " + path
	b.failures[key] = append(b.failures[key], f)
}

// Calls reports how many requests method+path has received.
func (b *Backend) Calls(method, path string) int {
	b.controlLock.Lock()
	defer b.controlLock.Unlock()
	return b.calls[method+" "+path]
}

// SetSocialError makes the social authorization endpoint redirect back with
// error=reason. An empty reason restores normal logins.
func (b *Backend) SetSocialError(reason string) {
	b.controlLock.Lock()
	defer b.controlLock.Unlock()
	b.socialError = reason
}

func (b *Backend) countingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		b.controlLock.Lock()
		b.calls[key]++
		var injected *Failure
		if queue := b.failures[key]; len(queue) > 0 {
			injected = &queue[0]
			b.failures[key] = queue[1:]
		}
		b.controlLock.Unlock()

		if injected != nil {
			if injected.Body != "" {
				w.WriteHeader(injected.Status)
				_, _ = w.Write([]byte(injected.Body))
				return
			}
			respondError(w, injected.Status, injected.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}
