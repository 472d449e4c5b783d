package main

import (
	"fmt"
	"io"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	"github.com/tokenestate/go-estate-auth/config"
)

type rootOptions struct {
	configPath string
}

// runFunc is a command body that receives the wired app.
type runFunc func(cmd *cobra.Command, args []string, a *app) error

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "estate",
		Short:        "Wallet sessions and property roles for the estate platform.",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a JSON config file")
	flags.String("backend.url", "", "backend base URL")
	flags.String("session.driver", "", "session storage: memory, file or sqlite")
	flags.String("session.path", "", "session file or database path")
	flags.String("activity.db_path", "", "SQLite file for the activity log")
	flags.String("log.level", "", "log level")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newGrantRoleCmd(opts),
		newHealthCmd(opts),
		newActivityCmd(opts),
		newRolesCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// run loads the config, builds the app and closes it once fn returns.
func (o *rootOptions) run(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(o.configPath, cmd.Flags())
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

func printJSON(w io.Writer, v any) {
	fmt.Fprintln(w, print.MaybePrettyJSON(v))
}
