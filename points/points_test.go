package points_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/smartcane-client/api"
	smerrors "github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/points"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) AccessToken() (string, error) {
	if s == "" {
		return "", smerrors.ErrNotAuthenticated
	}
	return string(s), nil
}

func newService(t *testing.T, token string, body string) (*points.Service, *int32, *float64) {
	t.Helper()
	var calls int32
	var lastAmount float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method == http.MethodPost {
			var req struct {
				Amount float64 `json:"amount"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			lastAmount = req.Amount
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return points.NewService(api.NewPointsAPI(api.NewClient(srv.URL)), staticToken(token)), &calls, &lastAmount
}

func TestParseAmount(t *testing.T) {
	amount, err := points.ParseAmount(" 10000 ")
	require.NoError(t, err)
	require.Equal(t, 10000.0, amount)

	for _, bad := range []string{"0", "-5", "abc", "", "NaN", "Inf", "-0"} {
		t.Run(bad, func(t *testing.T) {
			_, err := points.ParseAmount(bad)
			require.ErrorIs(t, err, smerrors.ErrInvalidInput)
		})
	}
}

func TestInvalidAmountsNeverReachTheServer(t *testing.T) {
	svc, calls, _ := newService(t, "tok", `{}`)
	ctx := context.Background()

	require.ErrorIs(t, svc.Charge(ctx, 0), smerrors.ErrInvalidInput)
	require.ErrorIs(t, svc.Charge(ctx, -100), smerrors.ErrInvalidInput)
	require.ErrorIs(t, svc.Pay(ctx, 0), smerrors.ErrInvalidInput)
	require.Zero(t, atomic.LoadInt32(calls))
}

func TestChargeAndPay(t *testing.T) {
	svc, calls, last := newService(t, "tok", `{"balance":1000}`)
	ctx := context.Background()

	require.NoError(t, svc.Charge(ctx, 1500))
	require.Equal(t, 1500.0, *last)
	require.NoError(t, svc.Pay(ctx, 300))
	require.Equal(t, 300.0, *last)
	require.EqualValues(t, 2, atomic.LoadInt32(calls))

	t.Run("requires a session", func(t *testing.T) {
		svc, calls, _ := newService(t, "", `{}`)
		require.ErrorIs(t, svc.Charge(ctx, 10), smerrors.ErrNotAuthenticated)
		require.Zero(t, atomic.LoadInt32(calls))
	})
}

func TestBalance(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"balance field", `{"balance":1234567,"point":1}`, "1,234,567 P"},
		{"zero balance", `{"balance":0,"point":99}`, "0 P"},
		{"point field", `{"point":250}`, "250 P"},
		{"bare number", `3000`, "3,000 P"},
		{"plain text", `42`, "42 P"},
		{"empty", ``, "- P"},
		{"other object", `{"amount":5}`, `{"amount":5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newService(t, "tok", tt.body)
			b, err := svc.Balance(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.want, b.String())
		})
	}
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "0", points.FormatAmount(0))
	require.Equal(t, "999", points.FormatAmount(999))
	require.Equal(t, "1,000", points.FormatAmount(1000))
	require.Equal(t, "-12,345.5", points.FormatAmount(-12345.5))
}
