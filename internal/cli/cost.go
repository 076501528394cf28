package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCostCommand() *cobra.Command {
	var maxResponseBytes uint64
	var params []string

	cmd := &cobra.Command{
		Use:   "cost <method>",
		Short: "Estimate what each provider would charge for a call",
		Long: `cost prices the given JSON-RPC method per provider without sending
anything: the same pre-dispatch estimate the gateway enforces against a
caller's attached cycles. String params ride through --param, repeated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			method := args[0]

			g, err := buildGateway()
			if err != nil {
				return err
			}

			services := g.Registry.SupportedServices(rootOpts.chainID)
			if len(services) == 0 {
				return fmt.Errorf("no providers declared for chain %d in %s", rootOpts.chainID, rootOpts.configPath)
			}

			rpcParams := make([]interface{}, len(params))
			for i, p := range params {
				rpcParams[i] = p
			}

			type row struct {
				Service string `json:"service"`
				Cycles  uint64 `json:"cycles"`
				Err     string `json:"error,omitempty"`
			}
			rows := make([]row, 0, len(services))
			for _, svc := range services {
				cycles, err := g.RequestCost(svc, method, rpcParams, maxResponseBytes)
				r := row{Service: svc, Cycles: cycles}
				if err != nil {
					r.Err = err.Error()
				}
				rows = append(rows, r)
			}

			if rootOpts.jsonOut {
				return json.NewEncoder(os.Stdout).Encode(rows)
			}

			tbl := newTable("Provider", "Cycles")
			for _, r := range rows {
				if r.Err != "" {
					tbl.AddRow(r.Service, red(r.Err))
					continue
				}
				tbl.AddRow(r.Service, r.Cycles)
			}
			tbl.Print()
			return nil
		},
	}

	cmd.Flags().Uint64Var(&maxResponseBytes, "max-response-bytes", 0, "response budget to price against (default: gateway initial budget)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "positional string param, repeatable")
	return cmd
}
