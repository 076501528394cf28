// Package selection resolves a user hint and a consensus strategy into
// the non-empty, ordered provider set the fanout dispatches to. A
// user-supplied list is respected verbatim; "use defaults" picks the
// top-ranked providers for the network.
package selection

import (
	"time"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/ranking"
)

// defaultEqualityCount is how many top-ranked providers an Equality call
// queries when the caller didn't name any.
const defaultEqualityCount = 3

// Hint is the user's provider-selection input: either an explicit,
// non-empty list of logical services or "use the defaults for this
// network" (an empty Services slice with UseDefaults set).
type Hint struct {
	Services    []string
	UseDefaults bool
}

// Select resolves hint and strategy into a ProviderSet.
func Select(hint Hint, strategy gatewaytypes.ConsensusStrategy, chainSupported []string, rank *ranking.Ranking, now time.Time) (gatewaytypes.ProviderSet, error) {
	if !hint.UseDefaults {
		if len(hint.Services) == 0 {
			return gatewaytypes.ProviderSet{}, &gatewaytypes.ProviderNotFoundError{}
		}
		services := append([]string(nil), hint.Services...)
		return gatewaytypes.ProviderSet{Services: services, Origin: gatewaytypes.OriginUserSupplied}, nil
	}

	ranked := rank.Rank(chainSupported, now)

	count := defaultEqualityCount
	if strategy.Kind == gatewaytypes.StrategyThreshold && strategy.Total != nil {
		count = int(*strategy.Total)
	}
	if count > len(ranked) {
		count = len(ranked)
	}
	if count == 0 {
		return gatewaytypes.ProviderSet{}, &gatewaytypes.ProviderNotFoundError{}
	}

	return gatewaytypes.ProviderSet{Services: ranked[:count], Origin: gatewaytypes.OriginDefault}, nil
}
