package main

import (
	"fmt"

	"github.com/spf13/cobra"

	auth "github.com/tokenestate/go-estate-auth"
)

type sessionView struct {
	Authenticated bool            `json:"authenticated"`
	Phase         auth.AuthPhase  `json:"phase"`
	User          *auth.User      `json:"user,omitempty"`
	Permissions   map[string]bool `json:"permissions"`
}

func viewOf(snap auth.Snapshot) sessionView {
	return sessionView{
		Authenticated: snap.IsAuthenticated,
		Phase:         snap.Phase,
		User:          snap.User,
		Permissions:   snap.Access().Permissions.Map(),
	}
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:     "login [wallet]",
		Short:   "Sign a wallet in, creating the account when it is new.",
		Example: "estate login 0x71562b71999873DB5b286dF957af199Ec94617F7 --name Alice",
		Args:    cobra.ExactArgs(1),
		RunE: opts.run(func(cmd *cobra.Command, args []string, a *app) error {
			if _, err := a.state.Login(cmd.Context(), args[0], name); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), viewOf(a.state.Snapshot()))
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "display name used when the account is created")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session.",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, args []string, a *app) error {
			if _, err := a.store.Load(cmd.Context()); err != nil {
				a.logger.Warn("session load failed", "error", err)
			}
			if err := a.state.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		}),
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Restore the stored session and show the user and permissions.",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, args []string, a *app) error {
			if _, err := a.state.Restore(cmd.Context()); err != nil {
				a.logger.Debug("session restore failed", "kind", auth.ErrorKind(err), "error", err)
			}
			printJSON(cmd.OutOrStdout(), viewOf(a.state.Snapshot()))
			return nil
		}),
	}
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the backend health endpoint.",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, args []string, a *app) error {
			status, err := a.backend.Health(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), status)
			return nil
		}),
	}
}
