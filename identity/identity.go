package identity

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/jrsteele09/smartcane-client/internal/utils"
)

// ID accepts both numeric and string identifiers from the server.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*id = ID(utils.AsString(raw))
	return nil
}

func (id ID) String() string { return string(id) }

// Identity is the user record returned by GET /api/identity/me.
type Identity struct {
	ID          ID     `json:"id,omitempty"`          // Server user id (number or string)
	Email       string `json:"email"`                 // Always present
	Nickname    string `json:"nickname,omitempty"`    // Chosen at signup
	Name        string `json:"name,omitempty"`        // Set by admins
	BirthDate   string `json:"birthDate,omitempty"`   // YYYY-MM-DD
	PhoneNumber string `json:"phoneNumber,omitempty"` // Free form
	CreatedAt   string `json:"createdAt,omitempty"`   // Server timestamp, passed through
	UpdatedAt   string `json:"updatedAt,omitempty"`   // Server timestamp, passed through
	Roles       Roles  `json:"roles,omitempty"`       // Normalized uppercase set

	// Extra holds any fields the server sent that are not listed above.
	Extra map[string]any `json:"-"`
}

var knownFields = map[string]struct{}{
	"id": {}, "email": {}, "nickname": {}, "name": {}, "birthDate": {},
	"phoneNumber": {}, "createdAt": {}, "updatedAt": {}, "roles": {},
}

func (i *Identity) UnmarshalJSON(data []byte) error {
	type plain Identity
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range knownFields {
		delete(all, k)
	}
	if len(all) > 0 {
		p.Extra = all
	}
	*i = Identity(p)
	return nil
}

// HasRole checks the identity's roles against a required role.
func (i *Identity) HasRole(required string, mode MatchMode) bool {
	if i == nil {
		return false
	}
	return i.Roles.Match(required, mode)
}

// IsAdmin uses the same matching rule as the admin route.
func (i *Identity) IsAdmin(mode MatchMode) bool {
	return i.HasRole(RoleAdmin, mode)
}

// DisplayName is nickname, then name, then email.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	for _, s := range []string{i.Nickname, i.Name, i.Email} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Initials returns up to two uppercase initials of the display name.
func (i *Identity) Initials() string {
	name := i.DisplayName()
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	var out []rune
	for _, word := range strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '.' || r == '_' || r == '-'
	}) {
		out = append(out, unicode.ToUpper([]rune(word)[0]))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}
