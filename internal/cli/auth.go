package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jrsteele09/smartcane-client/auth"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/server"
	"github.com/jrsteele09/smartcane-client/token"
	"github.com/spf13/cobra"
)

func (r *root) newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: "Sign in with email and password. Missing values are prompted for, and a failed " +
			"attempt prompts again until the attempts run out and login locks for a few seconds.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.services(cmd.Context())
			if err != nil {
				return err
			}
			id, err := passwordLogin(cmd, d.auth, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", id.DisplayName(), id.Roles)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted if omitted)")
	cmd.AddCommand(r.newSocialLoginCmd())
	return cmd
}

// passwordLogin keeps prompting while answers are available. With both
// flags set it makes exactly one attempt.
func passwordLogin(cmd *cobra.Command, svc *auth.Service, email, password string) (*identity.Identity, error) {
	p := newPrompter(cmd)
	single := email != "" && password != ""

	var lastErr error
	for {
		e, err := p.ask("Email", email)
		if err != nil {
			return nil, orLast(lastErr, err)
		}
		pw, err := p.askSecret("Password", password)
		if err != nil {
			return nil, orLast(lastErr, err)
		}

		id, err := svc.Login(cmd.Context(), e, pw)
		if err == nil {
			return id, nil
		}
		if single {
			return nil, err
		}
		lastErr = err
		fmt.Fprintln(cmd.ErrOrStderr(), FormatError(err))

		var locked *auth.LockedError
		if errors.As(err, &locked) || svc.Lockout().Locked() {
			waitForUnlock(cmd.Context(), cmd.ErrOrStderr(), svc.Lockout())
			if cmd.Context().Err() != nil {
				return nil, cmd.Context().Err()
			}
		} else if left := svc.Lockout().RemainingAttempts(); left > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d attempt(s) left before login locks.\n", left)
		}
	}
}

// orLast prefers the last login failure over the read error that ended the
// prompts.
func orLast(last, err error) error {
	if last != nil {
		return last
	}
	return err
}

func waitForUnlock(ctx context.Context, w io.Writer, lockout *auth.Lockout) {
	lockout.Countdown(ctx, func(remaining int) {
		if remaining > 0 {
			fmt.Fprintf(w, "\rLocked, retry in %ds ", remaining)
		} else {
			fmt.Fprintln(w, "\rLogin unlocked.        ")
		}
	})
}

func (r *root) newSocialLoginCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:       "social <provider>",
		Short:     "Sign in through kakao or naver in the browser",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"kakao", "naver"},
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.services(cmd.Context())
			if err != nil {
				return err
			}

			callback := server.New(d.auth, d.cfg.GetEnv())
			if err := callback.Listen(d.cfg.GetCallbackAddr()); err != nil {
				return err
			}
			loginURL, err := d.auth.SocialLoginURL(args[0], callback.RedirectURI())
			if err != nil {
				callback.Shutdown()
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Opening %s\n", loginURL)
			if err := r.openBrowser(loginURL); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Could not open a browser (%v). Visit the URL above.\n", err)
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			res := callback.Wait(ctx)
			if res.Err != nil {
				return res.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", res.Identity.DisplayName(), res.Identity.Roles)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up waiting for the browser after this long (0 waits until interrupted)")
	return cmd
}

func (r *root) newSignupCmd() *cobra.Command {
	var form auth.SignupForm

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.services(cmd.Context())
			if err != nil {
				return err
			}
			p := newPrompter(cmd)
			for _, q := range []struct {
				label  string
				field  *string
				secret bool
			}{
				{"Email", &form.Email, false},
				{"Nickname", &form.Nickname, false},
				{"Birth date (YYYY-MM-DD)", &form.BirthDate, false},
				{"Password", &form.Password, true},
				{"Confirm password", &form.Confirm, true},
			} {
				ask := p.ask
				if q.secret {
					ask = p.askSecret
				}
				if *q.field, err = ask(q.label, *q.field); err != nil {
					return err
				}
			}
			if err := d.auth.Signup(cmd.Context(), form); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account created. Run `smartcane login` to sign in.")
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Email, "email", "", "account email")
	cmd.Flags().StringVar(&form.Nickname, "nickname", "", "display nickname")
	cmd.Flags().StringVar(&form.BirthDate, "birth-date", "", "birth date, YYYY-MM-DD")
	cmd.Flags().StringVar(&form.Password, "password", "", "password")
	cmd.Flags().StringVar(&form.Confirm, "confirm", "", "password confirmation")
	return cmd
}

func (r *root) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.services(cmd.Context())
			if err != nil {
				return err
			}
			if err := d.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (r *root) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.services(cmd.Context())
			if err != nil {
				return err
			}
			id, err := d.sessions.LoadIdentity(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> %s\n", id.DisplayName(), id.Email, id.Roles)
			return nil
		},
	}
}

func (r *root) newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show stored token details without contacting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.services(cmd.Context())
			if err != nil {
				return err
			}
			snap := d.store.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Storage:       %s\n", d.cfg.GetStorageBackend())
			fmt.Fprintf(out, "State:         %s\n", snap.State)
			fmt.Fprintf(out, "Access token:  %s\n", present(snap.AccessToken))
			fmt.Fprintf(out, "Refresh token: %s\n", present(snap.RefreshToken))
			if !snap.HasToken() {
				return nil
			}

			info, err := token.Inspect(snap.AccessToken)
			if err != nil {
				fmt.Fprintf(out, "Token:         %v\n", err)
				return nil
			}
			fmt.Fprintf(out, "Subject:       %s\n", orDash(info.Sub))
			fmt.Fprintf(out, "Email:         %s\n", orDash(info.Email))
			fmt.Fprintf(out, "Roles:         %s\n", orDash(info.Roles.String()))
			if info.ExpiresAt != nil {
				now := time.Now()
				exp := info.ExpiresAt.Format(time.RFC3339)
				if info.Expired(now) {
					fmt.Fprintf(out, "Expires:       %s (expired)\n", exp)
				} else {
					fmt.Fprintf(out, "Expires:       %s (in %s)\n", exp, info.ExpiresIn(now).Round(time.Second))
				}
			}
			return nil
		},
	}
}

func present(s string) string {
	if s == "" {
		return "none"
	}
	return "present"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
