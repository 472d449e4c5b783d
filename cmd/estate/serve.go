package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/guard"
	"github.com/tokenestate/go-estate-auth/portal"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web portal for the local session.",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			if _, err := a.state.Restore(ctx); err != nil {
				a.logger.Info("stored session not restored", "kind", auth.ErrorKind(err))
			}

			popts := []portal.Option{
				portal.WithMetrics(a.metrics),
				portal.WithFeed(a.feed),
				portal.WithLoginPath(a.cfg.GetLoginPath()),
				portal.WithHomePath(a.cfg.GetRejectedRouteDefault()),
				portal.WithLoggerProvider(a.provider),
				portal.WithDebug(a.cfg.IsDevelopment()),
				portal.WithGuardOptions(guard.WithRejectedRouteKey(a.cfg.GetRejectedRouteKey())),
			}
			if a.cfg.BlockOnDeny() {
				popts = append(popts, portal.WithGuardOptions(guard.WithMode(guard.ModeBlock)))
			}
			if sync, err := a.synchronizer(ctx); err == nil {
				popts = append(popts, portal.WithRoleSyncer(sync))
			} else {
				a.logger.Info("role grants disabled", "reason", err)
			}

			srv := portal.New(a.state, a.backend, popts...)

			errc := make(chan error, 1)
			go func() {
				errc <- srv.Listen(a.cfg.GetPortalAddr())
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return <-errc
		}),
	}
	cmd.Flags().String("portal.addr", "", "listen address")
	cmd.Flags().String("portal.guard_mode", "", "redirect or block")
	return cmd
}
