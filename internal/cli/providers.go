package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
)

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List every registered provider and whether it has a key",
		RunE: func(_ *cobra.Command, _ []string) error {
			g, err := buildGateway()
			if err != nil {
				return err
			}

			providers := g.Registry.AllProviders()
			if rootOpts.jsonOut {
				return json.NewEncoder(os.Stdout).Encode(providers)
			}

			tbl := newTable("ID", "Alias", "Chain", "Auth", "Host", "Key")
			for _, p := range providers {
				keyed := "-"
				if _, ok := g.Store.APIKey(p.ProviderID); ok {
					keyed = green("configured")
				} else if p.Auth != gatewaytypes.AuthUnauthenticated {
					keyed = yellow("missing")
				}
				tbl.AddRow(p.ProviderID, p.Alias, p.ChainID, authName(p.Auth), p.Hostname, keyed)
			}
			tbl.Print()
			return nil
		},
	}
}

func authName(a gatewaytypes.AuthKind) string {
	switch a {
	case gatewaytypes.AuthBearerToken:
		return "bearer"
	case gatewaytypes.AuthURLParameter:
		return "url_param"
	default:
		return "none"
	}
}

func newKeysCommand() *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage provider API keys in the persisted state",
	}

	keys.AddCommand(&cobra.Command{
		Use:   "set <provider-id> <key>",
		Short: "Store an API key for a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid provider id %q: %w", args[0], err)
			}
			g, err := buildGateway()
			if err != nil {
				return err
			}
			key := args[1]
			if err := g.Store.UpdateAPIKeys(map[uint64]*string{id: &key}); err != nil {
				return err
			}
			fmt.Printf("key stored for provider %d\n", id)
			return nil
		},
	})

	keys.AddCommand(&cobra.Command{
		Use:   "unset <provider-id>",
		Short: "Remove a provider's API key (revert to public fallback)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid provider id %q: %w", args[0], err)
			}
			g, err := buildGateway()
			if err != nil {
				return err
			}
			if err := g.Store.UpdateAPIKeys(map[uint64]*string{id: nil}); err != nil {
				return err
			}
			fmt.Printf("key removed for provider %d\n", id)
			return nil
		},
	})

	return keys
}
