package devices_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/devices"
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

func newService(t *testing.T, body string, opts ...devices.Option) (*devices.Service, *recorded) {
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
	return devices.NewService(api.NewDevicesAPI(api.NewClient(srv.URL)), staticToken("tok"), opts...), rec
}

func TestDeviceID(t *testing.T) {
	require.Equal(t, "7", devices.Device{"id": json.Number("7"), "deviceId": "D"}.ID())
	require.Equal(t, "D", devices.Device{"deviceId": "D", "uuid": "U"}.ID())
	require.Equal(t, "S", devices.Device{"serialNumber": "S"}.ID())
	require.Equal(t, "U", devices.Device{"uuid": "U"}.ID())
	require.False(t, devices.Device{"nickname": "living room"}.Removable())
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a user id", func(t *testing.T) {
		svc, rec := newService(t, `[]`)
		_, err := svc.List(ctx, " ")
		require.ErrorIs(t, err, smerrors.ErrInvalidInput)
		require.Zero(t, rec.calls)
	})

	t.Run("array", func(t *testing.T) {
		svc, rec := newService(t, `[{"id":1,"nickname":"cane"},{"serialNumber":"SC-2"}]`)
		list, err := svc.List(ctx, "42")
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, "/api/users/42/device-bindings", rec.path)
		require.Equal(t, "SC-2", list[1].ID())
	})

	t.Run("strict rejects envelopes", func(t *testing.T) {
		svc, _ := newService(t, `{"devices":[{"id":1}]}`)
		_, err := svc.List(ctx, "42")
		require.ErrorIs(t, err, smerrors.ErrUnexpectedShape)
	})

	t.Run("empty body", func(t *testing.T) {
		svc, _ := newService(t, ``)
		list, err := svc.List(ctx, "42")
		require.NoError(t, err)
		require.Empty(t, list)
	})
}

func TestLenientDecoding(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"devices", `{"devices":[{"id":1},{"id":2}]}`, 2},
		{"items", `{"items":[{"id":1}]}`, 1},
		{"data", `{"data":[{"id":1}]}`, 1},
		{"content", `{"content":[{"id":1},{"id":2},{"id":3}]}`, 3},
		{"single device", `{"device":{"deviceId":"D1"}}`, 1},
		{"bare device", `{"serialNumber":"SC-1","nickname":"x"}`, 1},
		{"unrelated object", `{"total":0}`, 0},
		{"scalar", `"nothing"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, tt.body, devices.WithLenientLists(true))
			list, err := svc.List(context.Background(), "42")
			require.NoError(t, err)
			require.Len(t, list, tt.want)
		})
	}
}

func TestBuildPayload(t *testing.T) {
	payload, err := devices.BuildPayload(devices.RegisterRequest{
		IdentifierType: devices.IdentifierSerialNumber,
		Value:          " SC-000001 ",
		Metadata:       `{"nickname":"living room","model":2}`,
	})
	require.NoError(t, err)
	require.Equal(t, "SC-000001", payload["serialNumber"])
	require.Equal(t, "living room", payload["nickname"])

	tests := []struct {
		name  string
		req   devices.RegisterRequest
		field string
	}{
		{"unknown type", devices.RegisterRequest{IdentifierType: "mac", Value: "x"}, "identifierType"},
		{"blank value", devices.RegisterRequest{IdentifierType: devices.IdentifierUUID, Value: "  "}, "value"},
		{"invalid json", devices.RegisterRequest{IdentifierType: devices.IdentifierUUID, Value: "u", Metadata: "{"}, "metadata"},
		{"array metadata", devices.RegisterRequest{IdentifierType: devices.IdentifierUUID, Value: "u", Metadata: "[1]"}, "metadata"},
		{"null metadata", devices.RegisterRequest{IdentifierType: devices.IdentifierUUID, Value: "u", Metadata: "null"}, "metadata"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := devices.BuildPayload(tt.req)
			var vErr *smerrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestRegister(t *testing.T) {
	svc, rec := newService(t, `{"id":9}`)
	_, err := svc.Register(context.Background(), devices.RegisterRequest{IdentifierType: devices.IdentifierDeviceID, Value: "D-1"})
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, rec.method)
	require.Equal(t, "/api/devices", rec.path)
	require.Equal(t, map[string]any{"deviceId": "D-1"}, rec.body)

	t.Run("invalid form never reaches the server", func(t *testing.T) {
		svc, rec := newService(t, `{}`)
		_, err := svc.Register(context.Background(), devices.RegisterRequest{IdentifierType: devices.IdentifierDeviceID})
		require.Error(t, err)
		require.Zero(t, rec.calls)
	})
}

func TestGetAndRemove(t *testing.T) {
	ctx := context.Background()

	svc, rec := newService(t, `{"id":"D-1","battery":80}`)
	d, err := svc.Get(ctx, "D-1")
	require.NoError(t, err)
	require.Equal(t, "D-1", d.ID())
	require.Equal(t, []string{"battery", "id"}, d.Keys())

	require.NoError(t, svc.Remove(ctx, devices.Device{"uuid": "U-1"}))
	require.Equal(t, http.MethodDelete, rec.method)
	require.Equal(t, "/api/devices/U-1", rec.path)

	calls := rec.calls
	err = svc.Remove(ctx, devices.Device{"nickname": "x"})
	require.ErrorIs(t, err, smerrors.ErrMissingID)
	require.Equal(t, calls, rec.calls)
}

func TestFormatValue(t *testing.T) {
	require.Equal(t, "-", devices.FormatValue(nil))
	require.Equal(t, "true", devices.FormatValue(true))
	require.Equal(t, `{"a":1}`, devices.FormatValue(map[string]any{"a": 1}))
}
