package main

import (
	"github.com/spf13/cobra"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/activitymap"
	"github.com/tokenestate/go-estate-auth/chain"
)

func newActivityCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List the most recent entries of the activity log.",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, args []string, a *app) error {
			if a.db == nil {
				return auth.ValidationError(nil, "activity.db_path or the sqlite session driver is required")
			}
			events, err := a.db.Activity().Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := make([]activitymap.Normalized, 0, len(events))
			for _, e := range events {
				out = append(out, activitymap.Normalize(e))
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	return cmd
}

type propertyRole struct {
	PropertyID uint64 `json:"property_id"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
	Role       string `json:"role"`
	Granted    bool   `json:"granted"`
}

func newRolesCmd(opts *rootOptions) *cobra.Command {
	var account, role string
	cmd := &cobra.Command{
		Use:     "roles",
		Short:   "Show which on-chain property roles an account holds.",
		Example: "estate roles --account 0x71562b71999873DB5b286dF957af199Ec94617F7 --role MANAGER_ROLE",
		Args:    cobra.NoArgs,
		RunE: opts.run(func(cmd *cobra.Command, args []string, a *app) error {
			if !chain.ValidAddress(account) {
				return auth.ValidationError(nil, "account must be a 0x address")
			}
			roles := chain.RoleTypes()
			if role != "" {
				rt, ok := chain.ParseRoleType(role)
				if !ok {
					return auth.ValidationError(nil, "role must be one of "+roleTypeList())
				}
				roles = []chain.RoleType{rt}
			}

			c, err := a.dialChain(cmd.Context())
			if err != nil {
				return err
			}
			props, err := c.Properties(cmd.Context())
			if err != nil {
				return err
			}

			out := make([]propertyRole, 0, len(props)*len(roles))
			for _, p := range props {
				for _, rt := range roles {
					granted, err := c.HasRole(cmd.Context(), p.ID, rt, account)
					if err != nil {
						return err
					}
					out = append(out, propertyRole{
						PropertyID: p.ID,
						Name:       p.Name,
						Active:     p.Active,
						Role:       string(rt),
						Granted:    granted,
					})
				}
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		}),
	}
	flags := cmd.Flags()
	flags.StringVar(&account, "account", "", "wallet address to check")
	flags.StringVar(&role, "role", "", "limit the check to one role type")
	flags.String("chain.rpc_url", "", "chain RPC endpoint")
	flags.String("chain.registry", "", "property registry address")
	return cmd
}
