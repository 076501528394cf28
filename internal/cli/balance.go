package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmagro/eth-rpc-gateway/internal/abi"
)

func newBalanceCommand() *cobra.Command {
	var flags strategyFlags
	var token string
	var decimals int
	var symbol string

	cmd := &cobra.Command{
		Use:   "balance <holder>",
		Short: "Read an ERC-20 balance via a consensus eth_call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder := args[0]

			tokenAddr := token
			switch strings.ToUpper(token) {
			case "USDC":
				tokenAddr, decimals, symbol = abi.USDCAddress, abi.USDCDecimals, "USDC"
			case "USDT":
				tokenAddr, decimals, symbol = abi.USDTAddress, abi.USDTDecimals, "USDT"
			}

			opts, err := flags.callOptions()
			if err != nil {
				return err
			}

			g, err := buildGateway()
			if err != nil {
				return err
			}

			result, err := g.ERC20Balance(cmd.Context(), opts, tokenAddr, holder)
			if err != nil {
				return err
			}

			if rootOpts.jsonOut {
				return json.NewEncoder(os.Stdout).Encode(result)
			}

			if !result.Consistent {
				fmt.Println(red("providers disagree:"))
				printDisagreement(result.PerProvider, func(raw string) string { return raw })
				return nil
			}
			if result.Err != nil {
				return result.Err
			}

			amount, err := abi.DecodeUint256(result.Value)
			if err != nil {
				return err
			}
			fmt.Println(bold(abi.FormatTokenAmount(amount, decimals, symbol)))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&token, "token", "USDC", "token contract address, or USDC/USDT")
	cmd.Flags().IntVar(&decimals, "decimals", 18, "token decimals when --token is a raw address")
	cmd.Flags().StringVar(&symbol, "symbol", "", "token symbol for display")
	return cmd
}
