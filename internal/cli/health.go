package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmagro/eth-rpc-gateway/internal/ethtypes"
	"github.com/dmagro/eth-rpc-gateway/internal/gateway"
	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/selection"
	"github.com/dmagro/eth-rpc-gateway/internal/stats"
)

// healthResult is one provider's probe summary.
type healthResult struct {
	Service     string        `json:"service"`
	Success     int           `json:"success"`
	Total       int           `json:"total"`
	BlockHeight uint64        `json:"block_height"`
	P50         time.Duration `json:"p50_ns"`
	P95         time.Duration `json:"p95_ns"`
	P99         time.Duration `json:"p99_ns"`
	Max         time.Duration `json:"max_ns"`
}

func newHealthCommand() *cobra.Command {
	var samples int

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe each provider with eth_blockNumber and report tail latency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := buildGateway()
			if err != nil {
				return err
			}

			services := g.Registry.SupportedServices(rootOpts.chainID)
			if len(services) == 0 {
				return fmt.Errorf("no providers declared for chain %d in %s", rootOpts.chainID, rootOpts.configPath)
			}

			fmt.Printf("\nProbing %d providers with %d samples each...\n\n", len(services), samples)
			results := probeAll(cmd.Context(), g, services, samples)

			if rootOpts.jsonOut {
				return json.NewEncoder(os.Stdout).Encode(results)
			}

			tbl := newTable("Provider", "Status", "Success", "Height", "p50", "p95", "p99", "Max")
			for _, r := range results {
				tbl.AddRow(
					r.Service,
					colorStatus(r.Success > 0),
					fmt.Sprintf("%d/%d", r.Success, r.Total),
					r.BlockHeight,
					colorLatency(r.P50),
					colorLatency(r.P95),
					colorLatency(r.P99),
					colorLatency(r.Max),
				)
			}
			tbl.Print()
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().IntVar(&samples, "samples", 5, "probes per provider")
	return cmd
}

// probeAll runs the sample loop per provider sequentially; each probe is
// itself a full gateway call (single-provider set, equality strategy), so
// ranking state and metrics update exactly as production calls do.
func probeAll(ctx context.Context, g *gateway.Gateway, services []string, samples int) []healthResult {
	results := make([]healthResult, 0, len(services))
	for _, svc := range services {
		r := healthResult{Service: svc, Total: samples}
		latencies := make([]time.Duration, 0, samples)

		for i := 0; i < samples; i++ {
			start := time.Now()
			reduced, err := g.Request(ctx, gateway.CallOptions{
				Hint:     selection.Hint{Services: []string{svc}},
				Strategy: gatewaytypes.Equality(),
			}, "eth_blockNumber", nil, 0)
			if err != nil || !reduced.Consistent || reduced.Err != nil {
				continue
			}

			latencies = append(latencies, time.Since(start))
			r.Success++

			var hexHeight string
			if json.Unmarshal(reduced.Value, &hexHeight) == nil {
				if height, err := ethtypes.ParseHexUint64(hexHeight); err == nil && height > r.BlockHeight {
					r.BlockHeight = height
				}
			}
		}

		tail := stats.CalculateTailLatency(latencies)
		r.P50, r.P95, r.P99, r.Max = tail.P50, tail.P95, tail.P99, tail.Max
		results = append(results, r)
	}
	return results
}
