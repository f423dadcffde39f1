package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/internal/utils"
)

// ErrNotJWT is returned for opaque tokens.
var ErrNotJWT = errors.New("not a JWT")

// Introspection is what the client can read from an access token without
// the server's key. Nothing here is verified.
type Introspection struct {
	Sub       string         `json:"sub,omitempty"`   // Subject (user id)
	Email     string         `json:"email,omitempty"` // Present on tokens that carry it
	Roles     identity.Roles `json:"roles,omitempty"` // Roles claim, normalized
	ID        string         `json:"jti,omitempty"`   // Token id
	IssuedAt  *time.Time     `json:"iat,omitempty"`
	ExpiresAt *time.Time     `json:"exp,omitempty"`
}

// Inspect parses raw unverified. A "Bearer " prefix is ignored.
func Inspect(raw string) (*Introspection, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if strings.Count(raw, ".") != 2 {
		return nil, ErrNotJWT
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	info := &Introspection{
		Sub:   utils.AsString(claims["sub"]),
		Email: utils.AsString(claims["email"]),
		ID:    utils.AsString(claims["jti"]),
		Roles: rolesClaim(claims["roles"]),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = &exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = &iat.Time
	}
	return info, nil
}

func rolesClaim(v any) identity.Roles {
	switch t := v.(type) {
	case string:
		return identity.NewRoles(t)
	case []any:
		return identity.NewRoles(utils.ToStringSlice(t)...)
	}
	return nil
}

// Expired reports whether the exp claim is before now. Tokens without exp
// never expire client-side.
func (i *Introspection) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// ExpiresIn is the time left before exp, zero if none or already expired.
func (i *Introspection) ExpiresIn(now time.Time) time.Duration {
	if i.ExpiresAt == nil || now.After(*i.ExpiresAt) {
		return 0
	}
	return i.ExpiresAt.Sub(now)
}
