package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newRankCommand() *cobra.Command {
	var probe bool
	var samples int

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show the default provider ordering for this chain",
		Long: `rank prints the order default selection would use right now. Ranking
state is per process, so a fresh gwctl invocation starts cold; pass
--probe to run a quick health round first and rank on its outcomes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := buildGateway()
			if err != nil {
				return err
			}

			services := g.Registry.SupportedServices(rootOpts.chainID)
			if len(services) == 0 {
				return fmt.Errorf("no providers declared for chain %d in %s", rootOpts.chainID, rootOpts.configPath)
			}

			if probe {
				fmt.Printf("\nProbing %d providers with %d samples each...\n", len(services), samples)
				probeAll(cmd.Context(), g, services, samples)
			}

			now := time.Now()
			ranked := g.Ranking.Rank(services, now)

			if rootOpts.jsonOut {
				return json.NewEncoder(os.Stdout).Encode(ranked)
			}

			fmt.Println()
			tbl := newTable("#", "Provider", "Recent successes")
			for i, svc := range ranked {
				tbl.AddRow(i+1, svc, g.Ranking.SampleCount(svc, now))
			}
			tbl.Print()
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "run a health round before ranking")
	cmd.Flags().IntVar(&samples, "samples", 3, "probes per provider with --probe")
	return cmd
}
