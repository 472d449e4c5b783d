package main

import (
	"strings"

	"github.com/spf13/cobra"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/chain"
	"github.com/tokenestate/go-estate-auth/portal"
)

func newGrantRoleCmd(opts *rootOptions) *cobra.Command {
	payload := portal.GrantRolePayload{}
	cmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Grant an on-chain property role and mirror it to the backend user.",
		Example: "estate grant-role --user-id 42 --grantee 0x71562b71999873DB5b286dF957af199Ec94617F7 " +
			"--role MANAGER_ROLE --properties 1,2",
		Args: cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, args []string, a *app) error {
			if _, err := a.state.Restore(cmd.Context()); err != nil {
				return err
			}
			if !a.state.Access().HasPermission(auth.PermManageUsers) {
				return auth.UnauthorizedError(nil, "signed in user may not manage roles")
			}

			req, err := payload.Request()
			if err != nil {
				return err
			}
			req.Operator = auth.ActorFor(a.state.Snapshot().User)
			sync, err := a.synchronizer(cmd.Context())
			if err != nil {
				return err
			}

			report, err := sync.Sync(cmd.Context(), req)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), report)
			if w := report.Warning(); w != nil {
				cmd.PrintErrln("warning:", w)
			}
			return nil
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&payload.UserID, "user-id", "", "backend id of the user to mirror the role to")
	flags.StringVar(&payload.Grantee, "grantee", "", "wallet address receiving the role")
	flags.StringVar(&payload.Role, "role", "", "one of "+roleTypeList())
	flags.StringVar(&payload.Properties, "properties", "", "comma separated on-chain property ids")
	flags.String("chain.rpc_url", "", "chain RPC endpoint")
	flags.String("chain.registry", "", "property registry address")
	flags.String("chain.signer_key", "", "hex private key used to sign grants")
	return cmd
}

func roleTypeList() string {
	names := make([]string, 0, 3)
	for _, r := range chain.RoleTypes() {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}
