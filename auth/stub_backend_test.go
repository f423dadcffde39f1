package auth_test

import (
	"context"
	"sync"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/identity"
)

// stubBackend answers from per-token tables and counts calls.
type stubBackend struct {
	lock sync.Mutex

	identities map[string]*identity.Identity // access token -> identity
	refreshes  map[string]api.TokenPair      // refresh token -> new pair
	logins     map[string]api.TokenPair      // email -> pair

	onMe      func(accessToken string)  // runs before Me answers
	onRefresh func(refreshToken string) // runs before Refresh answers

	meCalls      int
	refreshCalls int
	loginCalls   int
	signupCalls  int
	lastSignup   api.SignupRequest
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		identities: make(map[string]*identity.Identity),
		refreshes:  make(map[string]api.TokenPair),
		logins:     make(map[string]api.TokenPair),
	}
}

func (b *stubBackend) Me(ctx context.Context, accessToken string) (*identity.Identity, error) {
	b.lock.Lock()
	b.meCalls++
	hook := b.onMe
	id, ok := b.identities[accessToken]
	b.lock.Unlock()

	if hook != nil {
		hook(accessToken)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, &api.RequestError{Status: 401, Message: "invalid token"}
	}
	return id, nil
}

func (b *stubBackend) Refresh(ctx context.Context, refreshToken string) (api.TokenPair, error) {
	b.lock.Lock()
	b.refreshCalls++
	hook := b.onRefresh
	pair, ok := b.refreshes[refreshToken]
	b.lock.Unlock()

	if hook != nil {
		hook(refreshToken)
	}
	if err := ctx.Err(); err != nil {
		return api.TokenPair{}, err
	}
	if !ok {
		return api.TokenPair{}, &api.RequestError{Status: 401, Message: "invalid refresh token"}
	}
	return pair, nil
}

func (b *stubBackend) Login(ctx context.Context, req api.LoginRequest) (api.TokenPair, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.loginCalls++
	pair, ok := b.logins[req.Email+"/"+req.Password]
	if !ok {
		return api.TokenPair{}, &api.RequestError{Status: 401, Message: "bad credentials"}
	}
	return pair, nil
}

func (b *stubBackend) Signup(ctx context.Context, req api.SignupRequest) (*api.Response, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.signupCalls++
	b.lastSignup = req
	return &api.Response{Status: 201}, nil
}
