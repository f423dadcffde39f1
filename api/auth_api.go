package api

import (
	"context"
	"net/http"

	"github.com/jrsteele09/smartcane-client/identity"
	"golang.org/x/oauth2"
)

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// OAuth2 carries the pair as an oauth2 token.
func (tp TokenPair) OAuth2() *oauth2.Token {
	return &oauth2.Token{AccessToken: tp.AccessToken, RefreshToken: tp.RefreshToken, TokenType: "Bearer"}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	BirthDate string `json:"birthDate"`
	Password  string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthAPI wraps the authentication and identity endpoints.
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(c *Client) AuthAPI {
	return AuthAPI{client: c}
}

func (a AuthAPI) Signup(ctx context.Context, req SignupRequest) (*Response, error) {
	return a.client.Call(ctx, SignupRoute, CallOptions{Method: http.MethodPost, Body: req})
}

func (a AuthAPI) Login(ctx context.Context, req LoginRequest) (TokenPair, error) {
	return a.tokenCall(ctx, LoginRoute, req)
}

func (a AuthAPI) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	return a.tokenCall(ctx, RefreshRoute, refreshRequest{RefreshToken: refreshToken})
}

func (a AuthAPI) tokenCall(ctx context.Context, route string, body any) (TokenPair, error) {
	var pair TokenPair
	resp, err := a.client.Call(ctx, route, CallOptions{Method: http.MethodPost, Body: body})
	if err != nil {
		return pair, err
	}
	if resp.IsJSON {
		if err := resp.Decode(&pair); err != nil {
			return pair, err
		}
	}
	return pair, nil
}

// Me fetches the identity for the given access token.
func (a AuthAPI) Me(ctx context.Context, accessToken string) (*identity.Identity, error) {
	resp, err := a.client.Call(ctx, IdentityRoute, CallOptions{BearerToken: accessToken})
	if err != nil {
		return nil, err
	}
	var id identity.Identity
	if err := resp.Decode(&id); err != nil {
		return nil, err
	}
	return &id, nil
}
