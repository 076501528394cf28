// Package cli implements the gwctl operator console: ad hoc health
// checks, provider inspection, ranking state, cost estimates, and typed
// calls against the same engine gatewayd serves over HTTP.
package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dmagro/eth-rpc-gateway/internal/env"
)

// rootOptions are the persistent flags every subcommand shares.
type rootOptions struct {
	configPath string
	statePath  string
	chainID    uint64
	timeout    time.Duration
	jsonOut    bool
	demoMode   bool
}

var rootOpts rootOptions

// NewRootCommand builds the gwctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gwctl",
		Short: "Operator console for the multi-provider JSON-RPC gateway",
		Long: `gwctl drives the gateway engine directly from the terminal: list and
key providers, probe their health, inspect ranking state, estimate call
cost, and issue typed calls with an explicit consensus strategy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// .env first, so ${VAR} references in providers.yaml resolve.
			env.Load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&rootOpts.configPath, "config", "c", "providers.yaml", "provider registry file")
	pf.StringVar(&rootOpts.statePath, "state", "gateway-state.json", "persisted gateway state file")
	pf.Uint64Var(&rootOpts.chainID, "chain", 1, "chain id the default provider set is drawn from")
	pf.DurationVar(&rootOpts.timeout, "timeout", 10*time.Second, "per-call timeout")
	pf.BoolVar(&rootOpts.jsonOut, "json", false, "emit JSON instead of tables")
	pf.BoolVar(&rootOpts.demoMode, "demo", true, "skip cycle charging (no attached budget needed)")

	root.AddCommand(
		newProvidersCommand(),
		newKeysCommand(),
		newHealthCommand(),
		newRankCommand(),
		newBlockCommand(),
		newCompareCommand(),
		newBalanceCommand(),
		newCostCommand(),
	)
	return root
}
