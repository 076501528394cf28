package gateway

import (
	"fmt"

	"github.com/dmagro/eth-rpc-gateway/internal/ethtypes"
	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
)

// validateBlockRange enforces the get_logs range ceiling: when both
// endpoints name a concrete block number, |to - from| may not exceed
// Config.MaxBlockRange. Endpoint order doesn't matter. A "latest"/
// "pending"/"earliest" endpoint is never rejected here; the provider
// itself is the source of truth for how many blocks that resolves to.
func (g *Gateway) validateBlockRange(p ethtypes.GetLogsParams) error {
	if p.FromBlock == nil || p.ToBlock == nil {
		return nil
	}
	if !p.FromBlock.IsConcrete() || !p.ToBlock.IsConcrete() {
		return nil
	}
	from, to := *p.FromBlock.Number, *p.ToBlock.Number
	span := to - from
	if from > to {
		span = from - to
	}
	if span > g.Config.MaxBlockRange {
		return &gatewaytypes.ValidationError{
			Reason: fmt.Sprintf("requested %d blocks; limited to %d blocks per get_logs call", span, g.Config.MaxBlockRange),
		}
	}
	return nil
}
