package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/smartcane-client/admin"
	"github.com/jrsteele09/smartcane-client/app"
	"github.com/jrsteele09/smartcane-client/devices"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/points"
	"github.com/spf13/cobra"
)

func (r *root) newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open [path]",
		Short: "Render a page: /auth, /profile or /admin",
		Long: "Render a page the way the web client would, applying the same route guard. " +
			"Without a token every page leads to /auth; /admin needs the ADMIN role and sends other users to /profile.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.services(cmd.Context())
			if err != nil {
				return err
			}
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			page, err := d.navigator().Navigate(cmd.Context(), path)
			if err != nil {
				return err
			}
			for _, hop := range page.Redirects {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s -> ", hop)
			}
			if len(page.Redirects) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), page.Path)
			}
			fmt.Fprint(cmd.OutOrStdout(), page.Body)
			return nil
		},
	}
}

func (r *root) newPointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Show, charge and spend points",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "balance",
		Short: "Show the points balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			balance, err := d.points.Balance(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), balance)
			return nil
		},
	})

	for _, op := range []struct {
		use, short, done string
		run              func(*points.Service) func(cmd *cobra.Command, amount float64) error
	}{
		{"charge <amount>", "Add points", "Charged",
			func(s *points.Service) func(*cobra.Command, float64) error {
				return func(cmd *cobra.Command, amount float64) error { return s.Charge(cmd.Context(), amount) }
			}},
		{"pay <amount>", "Spend points", "Paid",
			func(s *points.Service) func(*cobra.Command, float64) error {
				return func(cmd *cobra.Command, amount float64) error { return s.Pay(cmd.Context(), amount) }
			}},
	} {
		op := op
		cmd.AddCommand(&cobra.Command{
			Use:   op.use,
			Short: op.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := points.ParseAmount(args[0])
				if err != nil {
					return err
				}
				d, err := r.signedIn(cmd.Context())
				if err != nil {
					return err
				}
				if err := op.run(d.points)(cmd, amount); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s P\n", op.done, points.FormatAmount(amount))
				if balance, err := d.points.Balance(cmd.Context()); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s\n", balance)
				}
				return nil
			},
		})
	}
	return cmd
}

func (r *root) newPaymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Payment provider redirects",
	}
	var open bool
	autopay := &cobra.Command{
		Use:   "autopay",
		Short: "Print (or open) the Toss autopay registration URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			u, err := d.payments.AutopayURL(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			if open {
				return r.openBrowser(u)
			}
			return nil
		},
	}
	autopay.Flags().BoolVar(&open, "open", false, "open the URL in the browser")
	cmd.AddCommand(autopay)
	return cmd
}

func (r *root) newDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Manage device bindings",
	}

	var userID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List devices bound to your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			owner := userID
			if owner == "" {
				owner = d.identity.ID.String()
			}
			list, err := d.devices.List(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No devices registered.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDETAILS")
			for _, dev := range list {
				fmt.Fprintf(tw, "%s\t%s\n", orDash(dev.ID()), summarize(dev))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&userID, "user", "", "list another user's devices (defaults to you)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			dev, err := d.devices.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, k := range dev.Keys() {
				fmt.Fprintf(tw, "%s\t%s\n", k, devices.FormatValue(dev[k]))
			}
			return tw.Flush()
		},
	}

	var req devices.RegisterRequest
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a device by identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := devices.BuildPayload(req); err != nil {
				return err
			}
			d, err := r.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := d.devices.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			if obj, ok := resp.Object(); ok && devices.Device(obj).ID() != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Registered device %s\n", devices.Device(obj).ID())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registered device")
			return nil
		},
	}
	register.Flags().StringVar(&req.IdentifierType, "type", devices.IdentifierSerialNumber,
		"identifier type: "+strings.Join(devices.IdentifierTypes, ", "))
	register.Flags().StringVar(&req.Value, "value", "", "identifier value")
	register.Flags().StringVar(&req.Metadata, "metadata", "", "extra fields as a JSON object")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a device binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := d.devices.RemoveByID(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed device %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, register, remove)
	return cmd
}

// summarize joins a device's fields other than its id as key=value pairs.
func summarize(dev devices.Device) string {
	var parts []string
	for _, k := range dev.Keys() {
		if k == "id" {
			continue
		}
		parts = append(parts, k+"="+devices.FormatValue(dev[k]))
	}
	return strings.Join(parts, " ")
}

func (r *root) newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer member accounts (ADMIN role)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "Show member statistics and the member table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.asAdmin(cmd.Context())
			if err != nil {
				return err
			}
			users, err := d.admin.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			app.RenderAdmin(cmd.OutOrStdout(), users)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show member counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.asAdmin(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := d.admin.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total %d\nActive %d\nSuspended %d\n", stats.Total, stats.Active, stats.Suspended)
			return nil
		},
	})

	var form admin.CreateUserForm
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a member account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := r.asAdmin(cmd.Context())
			if err != nil {
				return err
			}
			if err := d.admin.CreateUser(cmd.Context(), form); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", strings.TrimSpace(form.Email))
			return nil
		},
	}
	create.Flags().StringVar(&form.Email, "email", "", "email (required)")
	create.Flags().StringVar(&form.Password, "password", "", "temporary password (required)")
	create.Flags().StringVar(&form.Name, "name", "", "full name")
	create.Flags().StringVar(&form.PhoneNumber, "phone", "", "phone number")
	create.Flags().StringVar(&form.Role, "role", "USER", "USER or ADMIN")
	cmd.AddCommand(create)

	for _, target := range []struct{ use, short, status string }{
		{"suspend <id|email>", "Suspend a member", admin.StatusSuspended},
		{"activate <id|email>", "Reactivate a member", admin.StatusActive},
	} {
		target := target
		cmd.AddCommand(&cobra.Command{
			Use:   target.use,
			Short: target.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := r.asAdmin(cmd.Context())
				if err != nil {
					return err
				}
				users, err := d.admin.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				user, ok := admin.FindUser(users, args[0])
				if !ok {
					return errors.Wrapf(errors.ErrMissingID, "no member matches %q", args[0])
				}
				if user.Status == target.status {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already %s\n", orDash(user.Email), target.status)
					return nil
				}
				key := admin.StatusKey(user.Raw)
				if key == "" {
					return errors.Wrapf(errors.ErrMissingID, "member has no id, userId or email")
				}
				if err := d.admin.UpdateStatus(cmd.Context(), key, target.status); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", orDash(user.Email), target.status)
				return nil
			},
		})
	}
	return cmd
}
