package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmagro/eth-rpc-gateway/internal/ethtypes"
	"github.com/dmagro/eth-rpc-gateway/internal/gateway"
	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/selection"
)

func newCompareCommand() *cobra.Command {
	var flags strategyFlags

	cmd := &cobra.Command{
		Use:   "compare [tag]",
		Short: "Fetch one block from every provider and diff the answers",
		Long: `compare queries every declared provider for the same block under the
Equality strategy, so any divergence — a lagging head, a different
canonical chain view — shows up as a per-provider breakdown instead of
a single answer.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := "latest"
			if len(args) == 1 {
				arg = args[0]
			}
			tag, err := ethtypes.ParseBlockTag(arg)
			if err != nil {
				return err
			}

			g, err := buildGateway()
			if err != nil {
				return err
			}

			services := flags.services
			if len(services) == 0 {
				services = g.Registry.SupportedServices(rootOpts.chainID)
			}
			if len(services) == 0 {
				return fmt.Errorf("no providers declared for chain %d in %s", rootOpts.chainID, rootOpts.configPath)
			}

			result, err := g.GetBlockByNumber(cmd.Context(), gateway.CallOptions{
				Hint:     selection.Hint{Services: services},
				Strategy: gatewaytypes.Equality(),
			}, tag, false)
			if err != nil {
				return err
			}

			if rootOpts.jsonOut {
				return json.NewEncoder(os.Stdout).Encode(result)
			}

			fmt.Println()
			if result.Consistent {
				if result.Err != nil {
					fmt.Printf("%s all %d providers returned the same error: %v\n", yellow("consistent:"), len(services), result.Err)
					return nil
				}
				parsed := result.Value.Parsed()
				fmt.Printf("%s all %d providers agree on block %d (%s)\n",
					green("consistent:"), len(services), parsed.Number, result.Value.Hash)
				return nil
			}

			fmt.Println(red("inconsistent:"))
			printDisagreement(result.PerProvider, func(b ethtypes.Block) string {
				p := b.Parsed()
				return fmt.Sprintf("height %d hash %s", p.Number, b.Hash)
			})
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&flags.services, "providers", nil, "logical services to compare (default: all for the chain)")
	return cmd
}
