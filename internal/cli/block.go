package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmagro/eth-rpc-gateway/internal/ethtypes"
	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
)

func newBlockCommand() *cobra.Command {
	var flags strategyFlags
	var fullTxs bool

	cmd := &cobra.Command{
		Use:   "block [tag]",
		Short: "Fetch a block under a consensus strategy",
		Long: `block fetches eth_getBlockByNumber across the chosen providers and
reduces the answers. The tag is "latest" (default), "pending",
"earliest", a decimal height, or 0x-hex.`,
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

			opts, err := flags.callOptions()
			if err != nil {
				return err
			}

			g, err := buildGateway()
			if err != nil {
				return err
			}

			result, err := g.GetBlockByNumber(cmd.Context(), opts, tag, fullTxs)
			if err != nil {
				return err
			}

			if rootOpts.jsonOut {
				return json.NewEncoder(os.Stdout).Encode(result)
			}

			if !result.Consistent {
				fmt.Println(red("providers disagree:"))
				printDisagreement(result.PerProvider, func(b ethtypes.Block) string { return b.Number + " " + b.Hash })
				return nil
			}
			if result.Err != nil {
				return result.Err
			}

			b := result.Value
			number, _ := ethtypes.ParseHexUint64(b.Number)
			timestamp, _ := ethtypes.ParseHexUint64(b.Timestamp)
			gasUsed, _ := ethtypes.ParseHexUint64(b.GasUsed)
			gasLimit, _ := ethtypes.ParseHexUint64(b.GasLimit)

			fmt.Println()
			fmt.Println(bold(fmt.Sprintf("Block %d", number)))
			fmt.Printf("  %s %s\n", cyan("hash:"), b.Hash)
			fmt.Printf("  %s %s\n", cyan("parent:"), b.ParentHash)
			fmt.Printf("  %s %d\n", cyan("timestamp:"), timestamp)
			fmt.Printf("  %s %d / %d\n", cyan("gas:"), gasUsed, gasLimit)
			if fee := ethtypes.ParseHexBigInt(b.BaseFeePerGas); fee != nil {
				fmt.Printf("  %s %s wei\n", cyan("base fee:"), fee.String())
			}
			fmt.Printf("  %s %d\n", cyan("transactions:"), len(b.Transactions))
			fmt.Println()
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&fullTxs, "full", false, "fetch full transaction objects instead of hashes")
	return cmd
}

// printDisagreement renders the per-provider breakdown of an inconsistent
// result, one line per provider.
func printDisagreement[T any](perProvider []gatewaytypes.PerProviderResult[T], render func(T) string) {
	tbl := newTable("Provider", "Outcome", "Value")
	for _, pp := range perProvider {
		if pp.Err != nil {
			tbl.AddRow(pp.Service, red("error"), pp.Err.Error())
			continue
		}
		tbl.AddRow(pp.Service, green("ok"), render(pp.Value))
	}
	tbl.Print()
}
