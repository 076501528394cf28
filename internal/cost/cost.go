// Package cost prices one outbound HTTP call in cycles before it is made,
// so a caller with too small a budget is rejected without generating any
// network traffic.
package cost

import "github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"

// Request-byte accounting folds in fixed overheads beyond the literal
// payload: the per-call ingress framing and the URL-handling surcharge.
const (
	CollateralCyclesPerNode = 10_000_000
	IngressOverheadBytes    = 100
	RPCURLCostBytes         = 300
)

// Estimate computes cost = base_fee + request_fee + response_fee for one
// outbound call, given the subnet node count and the already-built HTTP call
// parameters, from which request_bytes is derived.
func Estimate(nodesInSubnet uint32, params gatewaytypes.HTTPCallParams) uint64 {
	n := uint64(nodesInSubnet)
	requestBytes := requestBytes(params) + RPCURLCostBytes + IngressOverheadBytes
	return baseFee(n) + requestFee(n, requestBytes) + responseFee(n, params.MaxResponseBytes)
}

// WithCollateral adds the per-node collateral charged on top of cost when
// billing a caller. Demo mode skips the charge entirely rather than
// calling this.
func WithCollateral(nodesInSubnet uint32, cost uint64) uint64 {
	return cost + CollateralCyclesPerNode*uint64(nodesInSubnet)
}

func requestBytes(params gatewaytypes.HTTPCallParams) uint64 {
	total := uint64(len(params.URL)) + uint64(len(params.Body)) + uint64(len(params.Transform))
	for name, value := range params.Headers {
		total += uint64(len(name)) + uint64(len(value))
	}
	return total
}

func baseFee(n uint64) uint64 {
	return (3_000_000 + 60_000*n) * n
}

func requestFee(n, bytes uint64) uint64 {
	return 400 * n * bytes
}

func responseFee(n, bytes uint64) uint64 {
	return 800 * n * bytes
}
