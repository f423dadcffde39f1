package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jrsteele09/smartcane-client/admin"
	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/app"
	"github.com/jrsteele09/smartcane-client/auth"
	"github.com/jrsteele09/smartcane-client/devices"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/internal/config"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/internal/logging"
	"github.com/jrsteele09/smartcane-client/payments"
	"github.com/jrsteele09/smartcane-client/points"
	"github.com/jrsteele09/smartcane-client/sessions"
	"github.com/jrsteele09/smartcane-client/sessions/storage"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type flags struct {
	api       string
	config    string
	envFile   string
	storage   string
	debug     bool
	logLevel  string
	logFormat string
}

// deps is everything a command needs, wired once per invocation.
type deps struct {
	cfg      config.Config
	storage  storage.Storage
	store    *sessions.Store
	client   *api.Client
	sessions *auth.SessionService
	auth     *auth.Service
	guard    auth.Guard
	points   *points.Service
	payments *payments.Service
	devices  *devices.Service
	admin    *admin.Service

	identity *identity.Identity
}

// requireSession runs the identity flow once per invocation, refreshing an
// expired access token before any bearer call goes out.
func (d *deps) requireSession(ctx context.Context) (*identity.Identity, error) {
	if d.identity != nil {
		return d.identity, nil
	}
	id, err := d.sessions.LoadIdentity(ctx)
	if err != nil {
		return nil, err
	}
	d.identity = id
	return id, nil
}

// requireRole applies the route guard to the loaded session.
func (d *deps) requireRole(ctx context.Context, role identity.RoleType) error {
	if _, err := d.requireSession(ctx); err != nil {
		return err
	}
	decision := d.guard.CanEnter(d.store.Snapshot(), role)
	if decision.Kind == auth.Allow {
		return nil
	}
	return fmt.Errorf("%w: %s (this account opens %s)", errors.ErrForbidden, role, decision.Target)
}

func (d *deps) navigator() *app.Navigator {
	views := app.Views{Auth: d.auth, Balance: d.points, Users: d.admin}
	return app.NewNavigator(d.sessions, d.guard, views.Routes()...)
}

// Option adjusts the root command; tests use it to inject collaborators.
type Option func(*root)

// WithStorage replaces the configured token storage.
func WithStorage(st storage.Storage) Option {
	return func(r *root) {
		r.storage = st
	}
}

// WithBrowser replaces the function that opens URLs for social login and
// payments.
func WithBrowser(open func(url string) error) Option {
	return func(r *root) {
		r.openBrowser = open
	}
}

type root struct {
	flags       flags
	storage     storage.Storage
	openBrowser func(url string) error
	deps        *deps
}

// NewRootCmd creates the root cobra command for the smartcane CLI.
func NewRootCmd(options ...Option) *cobra.Command {
	r := &root{openBrowser: openBrowser}
	for _, option := range options {
		option(r)
	}

	cmd := &cobra.Command{
		Use:     "smartcane",
		Short:   "Smart Cane account client",
		Long:    "smartcane signs in to the Smart Cane service and manages your profile, points, payments, devices and, for administrators, member accounts.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return r.configure(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return r.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(banner("Smart Cane") + "smartcane {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&r.flags.api, "api", "", "REST backend base URL (or SMARTCANE_API_BASE_URL)")
	pf.StringVar(&r.flags.config, "config", defaultConfigPath(), "YAML config file")
	pf.StringVar(&r.flags.envFile, "env-file", ".env", "dotenv file loaded before the config file")
	pf.StringVar(&r.flags.storage, "storage", "", "token storage: file, sqlite, redis or memory (or SMARTCANE_STORAGE)")
	pf.BoolVar(&r.flags.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&r.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&r.flags.logFormat, "log-format", "", "Log format (text, json)")

	cmd.AddCommand(
		r.newLoginCmd(),
		r.newSignupCmd(),
		r.newLogoutCmd(),
		r.newWhoamiCmd(),
		r.newSessionCmd(),
		r.newOpenCmd(),
		r.newPointsCmd(),
		r.newPaymentsCmd(),
		r.newDevicesCmd(),
		r.newAdminCmd(),
		r.newDevBackendCmd(),
	)
	return cmd
}

func defaultConfigPath() string {
	return filepath.Join(config.EnvVars{}.GetDataFolder(), "config.yaml")
}

// configure loads config sources, applies flag overrides and sets up logging.
func (r *root) configure(cmd *cobra.Command) error {
	if err := config.Load(r.flags.envFile, r.flags.config); err != nil {
		return err
	}
	config.Override(config.KeyAPIBaseURL, r.flags.api)
	config.Override(config.KeyStorage, r.flags.storage)
	config.Override(config.KeyLogFormat, r.flags.logFormat)
	level := r.flags.logLevel
	if r.flags.debug {
		level = "debug"
	}
	config.Override(config.KeyLogLevel, level)

	cfg := config.New()
	logging.SetupWithWriter(cfg.GetLogLevel(), cfg.GetLogFormat(), cmd.ErrOrStderr())
	return nil
}

// services wires storage, the session store and every service on first use.
func (r *root) services(ctx context.Context) (*deps, error) {
	if r.deps != nil {
		return r.deps, nil
	}
	cfg := config.New()

	st := r.storage
	if st == nil {
		var err error
		if st, err = storage.NewFromConfig(ctx, cfg); err != nil {
			return nil, err
		}
	}
	store, err := sessions.New(ctx, st)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.GetAPIBaseURL(), api.WithTimeout(cfg.GetHTTPTimeout()))
	authAPI := api.NewAuthAPI(client)
	sessionService := auth.NewSessionService(store, authAPI)
	authService, err := auth.NewService(sessionService, authAPI, auth.NewLockoutFromConfig(cfg), cfg, client.BaseURL())
	if err != nil {
		return nil, err
	}
	lenient := cfg.GetLenientLists()

	r.deps = &deps{
		cfg:      cfg,
		storage:  st,
		store:    store,
		client:   client,
		sessions: sessionService,
		auth:     authService,
		guard:    auth.NewGuard(cfg),
		points:   points.NewService(api.NewPointsAPI(client), store),
		payments: payments.NewService(api.NewPaymentsAPI(client), store),
		devices:  devices.NewService(api.NewDevicesAPI(client), store, devices.WithLenientLists(lenient)),
		admin:    admin.NewService(api.NewAdminAPI(client), store, admin.WithLenientLists(lenient)),
	}
	return r.deps, nil
}

// signedIn wires services and loads the session for bearer commands.
func (r *root) signedIn(ctx context.Context) (*deps, error) {
	d, err := r.services(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := d.requireSession(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// asAdmin is signedIn plus the ADMIN route guard.
func (r *root) asAdmin(ctx context.Context) (*deps, error) {
	d, err := r.services(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.requireRole(ctx, identity.RoleAdmin); err != nil {
		return nil, err
	}
	return d, nil
}

// close releases storage opened from config. Injected storage belongs to the
// caller.
func (r *root) close() error {
	if r.deps == nil {
		return nil
	}
	d := r.deps
	r.deps = nil
	if r.storage != nil {
		return nil
	}
	return d.storage.Close()
}
