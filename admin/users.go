package admin

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/internal/utils"
)

const (
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
	StatusUnknown   = "UNKNOWN"
)

// AdminUser is one normalized row of the admin user table.
type AdminUser struct {
	ID          string // id, userId or email; a random fallback when none is present
	Email       string
	Name        string // name, else nickname
	PhoneNumber string // phoneNumber, else tel
	Roles       identity.Roles
	Status      string
	CreatedAt   string // createdAt, joinedAt or created_at
	Raw         map[string]any
}

// Normalize maps one server row onto AdminUser.
func Normalize(raw map[string]any) AdminUser {
	u := AdminUser{
		ID:          StatusKey(raw),
		Email:       utils.AsString(raw["email"]),
		Name:        utils.FirstString(raw, "name", "nickname"),
		PhoneNumber: utils.FirstString(raw, "phoneNumber", "tel"),
		Roles:       rolesOf(raw["roles"]),
		Status:      statusOf(raw),
		CreatedAt:   utils.FirstString(raw, "createdAt", "joinedAt", "created_at"),
		Raw:         raw,
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return u
}

// StatusKey is the identifier a status change is sent for.
func StatusKey(raw map[string]any) string {
	return utils.FirstString(raw, "id", "userId", "email")
}

func rolesOf(v any) identity.Roles {
	switch t := v.(type) {
	case string:
		return identity.NewRoles(t)
	case []any:
		return identity.NewRoles(utils.ToStringSlice(t)...)
	}
	return identity.Roles{}
}

func statusOf(raw map[string]any) string {
	if s, ok := raw["status"].(string); ok {
		return strings.ToUpper(s)
	}
	if active, ok := raw["active"].(bool); ok {
		if active {
			return StatusActive
		}
		return StatusSuspended
	}
	return StatusUnknown
}

// NextStatus is the toggle target: SUSPENDED goes to ACTIVE, anything else
// to SUSPENDED.
func (u AdminUser) NextStatus() string {
	if u.Status == StatusSuspended {
		return StatusActive
	}
	return StatusSuspended
}

// Stats summarizes the user table.
type Stats struct {
	Total     int
	Active    int
	Suspended int
}

func ComputeStats(users []AdminUser) Stats {
	s := Stats{Total: len(users)}
	for _, u := range users {
		switch u.Status {
		case StatusActive:
			s.Active++
		case StatusSuspended:
			s.Suspended++
		}
	}
	return s
}
