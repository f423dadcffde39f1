package fakebackend

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	errInvalidToken = errors.New("invalid token")
	errRevokedToken = errors.New("token revoked")
)

// AccessClaims are the claims the fake backend puts in an access token.
type AccessClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwtlib.RegisteredClaims
}

// Issuer signs HS256 access tokens and manages rotating refresh tokens.
type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time

	lock         sync.RWMutex
	refresh      map[string]string   // refresh token to user id
	userRefresh  map[string]string   // user id to refresh token
	userJTIs     map[string][]string // access token ids issued per user
	revoked      map[string]time.Time
	refreshBytes int
}

func NewIssuer(secret []byte, accessTTL time.Duration, now func() time.Time) *Issuer {
	return &Issuer{
		secret:       secret,
		accessTTL:    accessTTL,
		now:          now,
		refresh:      make(map[string]string),
		userRefresh:  make(map[string]string),
		userJTIs:     make(map[string][]string),
		revoked:      make(map[string]time.Time),
		refreshBytes: 32,
	}
}

// CreateAccessToken signs a token carrying the user's id, email and roles.
func (is *Issuer) CreateAccessToken(u *User) (string, error) {
	now := is.now()
	claims := AccessClaims{
		Email: u.Email,
		Roles: []string(u.Roles),
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(is.accessTTL)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(is.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	is.lock.Lock()
	is.userJTIs[u.ID] = append(is.userJTIs[u.ID], claims.ID)
	is.lock.Unlock()
	return signed, nil
}

// Verify checks signature, expiry and revocation.
func (is *Issuer) Verify(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return is.secret, nil
	}, jwtlib.WithTimeFunc(is.now), jwtlib.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if is.isRevoked(claims.ID) {
		return nil, errRevokedToken
	}
	return claims, nil
}

// CreateRefreshToken replaces any refresh token the user already holds.
func (is *Issuer) CreateRefreshToken(userID string) (string, error) {
	b := make([]byte, is.refreshBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	token := hex.EncodeToString(b)

	is.lock.Lock()
	defer is.lock.Unlock()
	if existing, ok := is.userRefresh[userID]; ok {
		delete(is.refresh, existing)
	}
	is.refresh[token] = userID
	is.userRefresh[userID] = token
	return token, nil
}

// RefreshOwner returns the user a refresh token belongs to.
func (is *Issuer) RefreshOwner(token string) (string, bool) {
	is.lock.RLock()
	defer is.lock.RUnlock()
	id, ok := is.refresh[token]
	return id, ok
}

// RevokeUser revokes every access token and the refresh token of a user.
func (is *Issuer) RevokeUser(userID string) {
	is.lock.Lock()
	defer is.lock.Unlock()
	exp := is.now().Add(is.accessTTL)
	for _, jti := range is.userJTIs[userID] {
		is.revoked[jti] = exp
	}
	delete(is.userJTIs, userID)
	if token, ok := is.userRefresh[userID]; ok {
		delete(is.refresh, token)
		delete(is.userRefresh, userID)
	}
}

// ExpireAccessTokens revokes every access token issued so far while leaving
// refresh tokens valid.
func (is *Issuer) ExpireAccessTokens() {
	is.lock.Lock()
	defer is.lock.Unlock()
	exp := is.now().Add(is.accessTTL)
	for userID, jtis := range is.userJTIs {
		for _, jti := range jtis {
			is.revoked[jti] = exp
		}
		delete(is.userJTIs, userID)
	}
}

// Cleanup drops revocation entries whose tokens have expired anyway.
func (is *Issuer) Cleanup() {
	is.lock.Lock()
	defer is.lock.Unlock()
	now := is.now()
	for jti, exp := range is.revoked {
		if now.After(exp) {
			delete(is.revoked, jti)
		}
	}
}

func (is *Issuer) isRevoked(jti string) bool {
	is.lock.RLock()
	defer is.lock.RUnlock()
	_, ok := is.revoked[jti]
	return ok
}
