package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/smartcane-client/internal/config"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/internal/fakebackend"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (r *root) newDevBackendCmd() *cobra.Command {
	var (
		addr      string
		seeds     []string
		accessTTL time.Duration
		noRotate  bool
	)

	cmd := &cobra.Command{
		Use:   "dev-backend",
		Short: "Serve an in-memory Smart Cane backend for local development",
		Long: "Serve an in-memory implementation of the Smart Cane REST API. Accounts are " +
			"seeded with --seed email:password[:ROLE,ROLE] and vanish when the process exits.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			backend := fakebackend.New(
				fakebackend.WithEnv(cfg.GetEnv()),
				fakebackend.WithAccessTTL(accessTTL),
				fakebackend.WithRotateRefresh(!noRotate),
			)
			for _, seed := range seeds {
				email, password, roles, err := parseSeed(seed)
				if err != nil {
					return err
				}
				if _, err := backend.SeedUser(email, password, roles...); err != nil {
					return fmt.Errorf("seeding %s: %w", email, err)
				}
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("net.Listen %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), banner(cfg.GetAppName()))
			fmt.Fprintf(cmd.OutOrStdout(), "Backend listening on http://%s\n", ln.Addr())
			return serveUntilDone(cmd.Context(), &http.Server{Handler: backend}, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8081", "listen address")
	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "account to create, email:password[:ROLE,ROLE] (repeatable)")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", 15*time.Minute, "access token lifetime")
	cmd.Flags().BoolVar(&noRotate, "no-rotate", false, "refresh returns only a new access token")
	return cmd
}

func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("server.Serve %w", err)
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("backend stopped")
	return nil
}

// parseSeed splits email:password[:ROLE,ROLE].
func parseSeed(seed string) (email, password string, roles []string, err error) {
	parts := strings.SplitN(seed, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", nil, errors.Validation("seed", "want email:password[:ROLE,ROLE], got %q", seed)
	}
	if len(parts) == 3 {
		for _, role := range strings.Split(parts[2], ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
	}
	return parts[0], parts[1], roles, nil
}
