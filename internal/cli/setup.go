package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmagro/eth-rpc-gateway/internal/gateway"
	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/override"
	"github.com/dmagro/eth-rpc-gateway/internal/registry"
	"github.com/dmagro/eth-rpc-gateway/internal/selection"
	"github.com/dmagro/eth-rpc-gateway/internal/store"
	"github.com/dmagro/eth-rpc-gateway/internal/transport"
)

// buildGateway assembles a Gateway from the persistent flags: registry
// from --config, durable state from --state, and a production HTTP
// transport bounded by --timeout. Each invocation is one short-lived
// process, so metrics stay on a private registry.
func buildGateway() (*gateway.Gateway, error) {
	reg, err := registry.Load(rootOpts.configPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(rootOpts.statePath, gateway.DefaultConfig().NodesInSubnet)
	if err != nil {
		return nil, err
	}

	ov, err := override.New(st.URLOverride(), "")
	if err != nil {
		return nil, fmt.Errorf("invalid url override in state file: %w", err)
	}

	cfg := gateway.DefaultConfig()
	cfg.ChainID = rootOpts.chainID
	cfg.DemoMode = rootOpts.demoMode || st.DemoMode()
	cfg.NodesInSubnet = st.SubnetNodeCount()

	g := gateway.New(reg, st,
		gateway.WithConfig(cfg),
		gateway.WithTransport(transport.New(transport.WithTimeout(rootOpts.timeout))),
		gateway.WithOverride(ov),
	)
	return g, nil
}

// strategyFlags holds the consensus flags call-issuing subcommands share.
type strategyFlags struct {
	services []string
	strategy string
	min      uint8
	total    uint8
}

func (f *strategyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.services, "providers", nil, "logical services to query (default: ranked defaults for the chain)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "equality", "consensus strategy: equality or threshold")
	cmd.Flags().Uint8Var(&f.min, "min", 0, "minimum agreeing providers (threshold)")
	cmd.Flags().Uint8Var(&f.total, "total", 0, "providers to query (threshold; required with default selection)")
}

// callOptions turns the flags into gateway CallOptions. An empty
// --providers list means "use the ranked defaults for this chain".
func (f *strategyFlags) callOptions() (gateway.CallOptions, error) {
	hint := selection.Hint{Services: f.services, UseDefaults: len(f.services) == 0}

	var strategy gatewaytypes.ConsensusStrategy
	switch f.strategy {
	case "", "equality":
		strategy = gatewaytypes.Equality()
	case "threshold":
		if f.min == 0 {
			return gateway.CallOptions{}, fmt.Errorf("threshold strategy requires --min > 0")
		}
		var total *uint8
		if f.total > 0 {
			t := f.total
			total = &t
		}
		strategy = gatewaytypes.Threshold(total, f.min)
	default:
		return gateway.CallOptions{}, fmt.Errorf("unknown strategy %q (want equality or threshold)", f.strategy)
	}

	return gateway.CallOptions{Hint: hint, Strategy: strategy}, nil
}
