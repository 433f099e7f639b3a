// sessionctl is a small CLI front end for the sessionkit library: it logs
// in against the configured authentication server, keeps the session in a
// file blob under the user config dir, and gates protected commands on the
// session state.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sessionkit/sessionkit"
	"github.com/sessionkit/sessionkit/core/client"
	"github.com/sessionkit/sessionkit/core/config"
	"github.com/sessionkit/sessionkit/storage/filestore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Manage the local authentication session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(),
		newSignupCmd(),
		newMeCmd(),
		newStatusCmd(),
		newLogoutCmd(),
	)

	return root
}

func newClient(ctx context.Context) (*sessionkit.Client, error) {
	var cfg sessionkit.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	var fileCfg filestore.Config
	if err := config.Load(&fileCfg); err != nil {
		return nil, err
	}
	path := fileCfg.Path
	if path == "" {
		var err error
		if path, err = filestore.DefaultPath(); err != nil {
			return nil, err
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	return sessionkit.New(ctx, cfg,
		sessionkit.WithStorage(filestore.New(path)),
		sessionkit.WithLogger(logger),
	)
}

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			if err := c.Login(cmd.Context(), email, password); err != nil {
				if errors.Is(err, client.ErrUnauthorized) {
					return errors.New("invalid email or password")
				}
				return err
			}

			c.RefreshProfile(cmd.Context())

			snap := c.Session()
			if snap.User != nil && snap.User.DisplayName != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", snap.User.DisplayName, snap.User.Email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newSignupCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new account (does not log in)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			user, err := c.Signup(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (id %d); run `sessionctl login` to sign in\n",
				user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name (optional)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			if !c.Gate().Allowed() {
				return errors.New("not logged in; run `sessionctl login`")
			}

			c.RefreshProfile(cmd.Context())

			snap := c.Session()
			if snap.User == nil {
				// The fetch failed; if the credential was rejected the
				// transport already evicted the session.
				if !c.Gate().Allowed() {
					return errors.New("session expired; run `sessionctl login`")
				}
				return errors.New("profile unavailable")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ID:        %d\n", snap.User.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Email:     %s\n", snap.User.Email)
			if snap.User.DisplayName != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Name:      %s\n", snap.User.DisplayName)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active:    %t\n", snap.User.IsActive)
			fmt.Fprintf(cmd.OutOrStdout(), "Provider:  %s\n", snap.User.AuthProvider)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local session state without calling the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			snap := c.Session()
			if !snap.Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			}

			if snap.User != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", snap.User.Email)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in (profile not fetched yet)")
			}
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			c.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
