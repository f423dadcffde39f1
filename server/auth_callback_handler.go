package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/smartcane-client/auth"
)

// AuthCallbackHandler completes the social login carried in the query string
// and hands the result to Wait. A hit without tokens or an error parameter is
// answered with 400 and does not end the wait.
func (s *CallbackServer) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		id, err := s.completer.CompleteSocialLogin(r.Context(), r.URL.Query())
		if errors.Is(err, auth.MissingCallbackErr) {
			http.Error(w, "Missing accessToken/refreshToken or error parameter", http.StatusBadRequest)
			return
		}
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintf(w, "Social login failed: %v\nReturn to the terminal and try again.\n", err)
			s.deliver(Result{Err: err})
			return
		}

		name := "your account"
		if id != nil {
			name = id.DisplayName()
		}
		fmt.Fprintf(w, "Signed in as %s. You can close this window.\n", name)
		s.deliver(Result{Identity: id})
	}
}
