package admin_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/smartcane-client/admin"
	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/identity"
	smerrors "github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) AccessToken() (string, error) { return string(s), nil }

type recorded struct {
	method string
	path   string
	body   map[string]any
	calls  int
}

func newService(t *testing.T, body string, opts ...admin.Option) (*admin.Service, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.calls++
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.body = nil
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return admin.NewService(api.NewAdminAPI(api.NewClient(srv.URL)), staticToken("tok"), opts...), rec
}

func TestNormalize(t *testing.T) {
	u := admin.Normalize(map[string]any{
		"userId":    "u-1",
		"email":     "a@b.c",
		"nickname":  "walker",
		"tel":       "010-0000-0000",
		"roles":     "user, admin",
		"active":    false,
		"joinedAt":  "2024-01-01",
		"favourite": "blue",
	})
	require.Equal(t, "u-1", u.ID)
	require.Equal(t, "walker", u.Name)
	require.Equal(t, "010-0000-0000", u.PhoneNumber)
	require.Equal(t, identity.Roles{"ADMIN", "USER"}, u.Roles)
	require.Equal(t, admin.StatusSuspended, u.Status)
	require.Equal(t, "2024-01-01", u.CreatedAt)
	require.Equal(t, admin.StatusActive, u.NextStatus())

	t.Run("status variants", func(t *testing.T) {
		require.Equal(t, "ACTIVE", admin.Normalize(map[string]any{"status": "active"}).Status)
		require.Equal(t, "PENDING", admin.Normalize(map[string]any{"status": "pending"}).Status)
		require.Equal(t, admin.StatusActive, admin.Normalize(map[string]any{"active": true}).Status)
		require.Equal(t, admin.StatusUnknown, admin.Normalize(map[string]any{}).Status)
		require.Equal(t, admin.StatusSuspended, admin.Normalize(map[string]any{}).NextStatus())
	})

	t.Run("fallback id", func(t *testing.T) {
		a := admin.Normalize(map[string]any{"name": "x"})
		b := admin.Normalize(map[string]any{"name": "x"})
		require.NotEmpty(t, a.ID)
		require.NotEqual(t, a.ID, b.ID)
		require.Empty(t, admin.StatusKey(a.Raw))
	})

	t.Run("roles array", func(t *testing.T) {
		require.Equal(t, identity.Roles{"USER"}, admin.Normalize(map[string]any{"roles": []any{"user"}}).Roles)
		require.Empty(t, admin.Normalize(map[string]any{}).Roles)
	})
}

func TestListUsersAndStats(t *testing.T) {
	body := `[
		{"id":1,"email":"a@b.c","status":"ACTIVE"},
		{"id":2,"email":"b@b.c","status":"suspended"},
		{"id":3,"email":"c@b.c","active":true},
		{"id":4,"email":"d@b.c"}
	]`
	svc, rec := newService(t, body)

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 4)
	require.Equal(t, "/api/admin/users", rec.path)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, admin.Stats{Total: 4, Active: 2, Suspended: 1}, stats)

	u, ok := admin.FindUser(users, "B@B.C")
	require.True(t, ok)
	require.Equal(t, "2", u.ID)
}

func TestListShapes(t *testing.T) {
	t.Run("strict rejects envelopes", func(t *testing.T) {
		svc, _ := newService(t, `{"content":[{"id":1}]}`)
		_, err := svc.ListUsers(context.Background())
		require.ErrorIs(t, err, smerrors.ErrUnexpectedShape)
	})

	for _, key := range []string{"content", "users", "data"} {
		t.Run("lenient "+key, func(t *testing.T) {
			svc, _ := newService(t, `{"`+key+`":[{"id":1},{"id":2}]}`, admin.WithLenientLists(true))
			users, err := svc.ListUsers(context.Background())
			require.NoError(t, err)
			require.Len(t, users, 2)
		})
	}

	t.Run("lenient unknown envelope", func(t *testing.T) {
		svc, _ := newService(t, `{"total":2}`, admin.WithLenientLists(true))
		users, err := svc.ListUsers(context.Background())
		require.NoError(t, err)
		require.Empty(t, users)
	})
}

func TestCreateUser(t *testing.T) {
	svc, rec := newService(t, `{}`)
	require.NoError(t, svc.CreateUser(context.Background(), admin.CreateUserForm{Email: "n@b.c", Password: "init", Role: "admin"}))
	require.Equal(t, http.MethodPost, rec.method)
	require.Equal(t, []any{"ADMIN"}, rec.body["roles"])
	require.NotContains(t, rec.body, "name")

	t.Run("default role", func(t *testing.T) {
		require.NoError(t, svc.CreateUser(context.Background(), admin.CreateUserForm{Email: "m@b.c", Password: "init"}))
		require.Equal(t, []any{"USER"}, rec.body["roles"])
	})

	t.Run("required fields", func(t *testing.T) {
		calls := rec.calls
		require.ErrorIs(t, svc.CreateUser(context.Background(), admin.CreateUserForm{Password: "x"}), smerrors.ErrInvalidInput)
		require.ErrorIs(t, svc.CreateUser(context.Background(), admin.CreateUserForm{Email: "x@y.z"}), smerrors.ErrInvalidInput)
		require.Equal(t, calls, rec.calls)
	})
}

func TestToggleStatus(t *testing.T) {
	svc, rec := newService(t, `{}`)

	next, err := svc.ToggleStatus(context.Background(), admin.Normalize(map[string]any{"id": 5, "status": "SUSPENDED"}))
	require.NoError(t, err)
	require.Equal(t, admin.StatusActive, next)
	require.Equal(t, http.MethodPatch, rec.method)
	require.Equal(t, "/api/admin/users/5/status", rec.path)
	require.Equal(t, "ACTIVE", rec.body["status"])

	next, err = svc.ToggleStatus(context.Background(), admin.Normalize(map[string]any{"email": "a@b.c", "status": "ACTIVE"}))
	require.NoError(t, err)
	require.Equal(t, admin.StatusSuspended, next)
	require.Equal(t, "/api/admin/users/a@b.c/status", rec.path)

	t.Run("no identifier", func(t *testing.T) {
		calls := rec.calls
		_, err := svc.ToggleStatus(context.Background(), admin.Normalize(map[string]any{"name": "ghost"}))
		require.ErrorIs(t, err, smerrors.ErrMissingID)
		require.Equal(t, calls, rec.calls)
	})
}
