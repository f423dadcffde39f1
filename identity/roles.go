package identity

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// RoleType is an uppercase role tag carried on an identity
type RoleType = string

const (
	RoleAdmin RoleType = "ADMIN" // Can open the admin console
	RoleUser  RoleType = "USER"  // Regular account
)

// MatchMode selects how a required role is compared against held roles.
type MatchMode int

const (
	// MatchSuffix accepts a held role that equals or ends with the required
	// role, so ORG_ADMIN satisfies ADMIN. Kept for compatibility with the
	// existing web client; see MatchExact.
	MatchSuffix MatchMode = iota
	// MatchExact accepts only an identical role.
	MatchExact
)

var roleSeparators = regexp.MustCompile(`[,\s]+`)

// Roles is a normalized set of uppercase role tokens. It decodes from either
// a delimited string ("admin, user") or an array of strings.
type Roles []RoleType

// NewRoles normalizes raw role strings; each may itself be delimited.
func NewRoles(raw ...string) Roles {
	seen := make(map[string]struct{})
	roles := make(Roles, 0, len(raw))
	for _, r := range raw {
		for _, token := range roleSeparators.Split(r, -1) {
			token = strings.ToUpper(strings.TrimSpace(token))
			if token == "" {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			roles = append(roles, token)
		}
	}
	sort.Strings(roles)
	return roles
}

func (r *Roles) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*r = nil
	case string:
		*r = NewRoles(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("roles: unexpected element %T", item)
			}
			parts = append(parts, s)
		}
		*r = NewRoles(parts...)
	default:
		return fmt.Errorf("roles: unexpected type %T", raw)
	}
	return nil
}

// Match reports whether any held role satisfies the required role,
// case-insensitively.
func (r Roles) Match(required string, mode MatchMode) bool {
	target := strings.ToUpper(strings.TrimSpace(required))
	if target == "" {
		return true
	}
	for _, role := range r {
		if role == target {
			return true
		}
		if mode == MatchSuffix && strings.HasSuffix(role, target) {
			return true
		}
	}
	return false
}

// MatchedBySuffixOnly is true when the role is granted solely through the
// suffix rule. Callers log it so the loose match stays visible.
func (r Roles) MatchedBySuffixOnly(required string) bool {
	return r.Match(required, MatchSuffix) && !r.Match(required, MatchExact)
}

func (r Roles) String() string {
	return strings.Join(r, ", ")
}
