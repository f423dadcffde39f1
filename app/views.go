package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/smartcane-client/admin"
	"github.com/jrsteele09/smartcane-client/auth"
	"github.com/jrsteele09/smartcane-client/devices"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/points"
	"github.com/jrsteele09/smartcane-client/sessions"
)

// BalanceSource supplies the points line of the profile view.
type BalanceSource interface {
	Balance(ctx context.Context) (points.Balance, error)
}

// UserLister supplies the admin dashboard rows.
type UserLister interface {
	ListUsers(ctx context.Context) ([]admin.AdminUser, error)
}

// Views holds what the standard pages render from. Nil sources leave their
// section out.
type Views struct {
	Auth    *auth.Service
	Balance BalanceSource
	Users   UserLister
}

// Routes returns /auth, /profile (token) and /admin (ADMIN).
func (v Views) Routes() []Route {
	return []Route{
		{Path: auth.AuthPath, View: v.authView},
		{Path: auth.ProfilePath, RequireToken: true, View: v.profileView},
		{Path: auth.AdminPath, RequireToken: true, Role: identity.RoleAdmin, View: v.adminView},
	}
}

func (v Views) authView(_ context.Context, snap sessions.Snapshot) (string, error) {
	var b strings.Builder
	if snap.Identity != nil {
		fmt.Fprintf(&b, "Signed in as %s.\n", snap.Identity.DisplayName())
		return b.String(), nil
	}
	b.WriteString("Not signed in.\n")
	b.WriteString("  smartcane login                 email and password\n")
	b.WriteString("  smartcane login social kakao    kakao account\n")
	b.WriteString("  smartcane login social naver    naver account\n")
	b.WriteString("  smartcane signup                create an account\n")
	if v.Auth != nil {
		lockout := v.Auth.Lockout()
		if lockout.Locked() {
			fmt.Fprintf(&b, "Login is locked for %d more second(s).\n", lockout.RemainingSeconds())
		}
	}
	return b.String(), nil
}

func (v Views) profileView(ctx context.Context, snap sessions.Snapshot) (string, error) {
	var b strings.Builder
	RenderProfile(&b, snap.Identity)
	if v.Balance != nil {
		balance, err := v.Balance.Balance(ctx)
		if err != nil {
			fmt.Fprintf(&b, "\nPoints: unavailable (%v)\n", err)
		} else {
			fmt.Fprintf(&b, "\nPoints: %s\n", balance)
		}
	}
	return b.String(), nil
}

func (v Views) adminView(ctx context.Context, _ sessions.Snapshot) (string, error) {
	if v.Users == nil {
		return "Admin console\n", nil
	}
	users, err := v.Users.ListUsers(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	RenderAdmin(&b, users)
	return b.String(), nil
}

type field struct {
	key   string
	label string
}

var profileSections = []struct {
	title  string
	fields []field
}{
	{"Basic", []field{{"nickname", "Nickname"}, {"email", "Email"}, {"birthDate", "Birth date"}, {"phoneNumber", "Phone"}}},
	{"System", []field{{"id", "Member ID"}, {"createdAt", "Joined"}, {"updatedAt", "Updated"}, {"roles", "Roles"}}},
}

// RenderProfile writes the identity header, the basic and system sections,
// and any fields the server sent beyond those.
func RenderProfile(w io.Writer, id *identity.Identity) {
	if id == nil {
		fmt.Fprintln(w, "Loading...")
		return
	}
	fmt.Fprintf(w, "[%s] %s\n", id.Initials(), orDash(id.DisplayName()))
	fmt.Fprintf(w, "     %s\n", orDash(id.Email))

	values := map[string]string{
		"nickname":    id.Nickname,
		"email":       id.Email,
		"birthDate":   id.BirthDate,
		"phoneNumber": id.PhoneNumber,
		"id":          id.ID.String(),
		"createdAt":   id.CreatedAt,
		"updatedAt":   id.UpdatedAt,
		"roles":       strings.Join(id.Roles, ", "),
	}
	for _, section := range profileSections {
		fmt.Fprintf(w, "\n%s\n", section.title)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, f := range section.fields {
			fmt.Fprintf(tw, "  %s\t%s\n", f.label, orDash(values[f.key]))
		}
		tw.Flush()
	}

	if len(id.Extra) == 0 {
		return
	}
	keys := make([]string, 0, len(id.Extra))
	for k := range id.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "\nAdditional\n")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%s\n", k, devices.FormatValue(id.Extra[k]))
	}
	tw.Flush()
}

// RenderAdmin writes the member statistics and the user table.
func RenderAdmin(w io.Writer, users []admin.AdminUser) {
	stats := admin.ComputeStats(users)
	fmt.Fprintf(w, "Members %d   Active %d   Suspended %d\n\n", stats.Total, stats.Active, stats.Suspended)
	if len(users) == 0 {
		fmt.Fprintln(w, "No members.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tPHONE\tROLES\tSTATUS\tJOINED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, orDash(u.Email), orDash(u.Name), orDash(u.PhoneNumber),
			orDash(strings.Join(u.Roles, ",")), u.Status, orDash(u.CreatedAt))
	}
	tw.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
