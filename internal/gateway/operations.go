package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmagro/eth-rpc-gateway/internal/abi"
	"github.com/dmagro/eth-rpc-gateway/internal/canonical"
	"github.com/dmagro/eth-rpc-gateway/internal/cost"
	"github.com/dmagro/eth-rpc-gateway/internal/ethtypes"
	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/reqbuilder"
	"github.com/dmagro/eth-rpc-gateway/internal/selection"
)

// CallOptions bundles the per-call inputs every typed operation shares:
// which providers to use, what consensus rule to reduce them under, and
// the cycles the caller attached to pay for the call. Demo-mode gateways
// ignore AttachedCycles entirely.
type CallOptions struct {
	Hint           selection.Hint
	Strategy       gatewaytypes.ConsensusStrategy
	AttachedCycles uint64
}

func parseJSON[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

// GetLogs implements the get_logs operation, rejecting over-wide concrete
// block ranges before any provider is contacted.
func (g *Gateway) GetLogs(ctx context.Context, opts CallOptions, p ethtypes.GetLogsParams) (gatewaytypes.ReducedResult[[]ethtypes.Log], error) {
	var zero gatewaytypes.ReducedResult[[]ethtypes.Log]
	if err := g.validateBlockRange(p); err != nil {
		return zero, err
	}
	spec := RequestSpec{
		Method:    "eth_getLogs",
		Params:    []interface{}{p.Wire()},
		Transform: gatewaytypes.TransformLogEntries,
	}
	return multiCall(ctx, g, opts.Hint, opts.Strategy, opts.AttachedCycles, spec, parseJSON[[]ethtypes.Log])
}

// GetBlockByNumber implements get_block_by_number.
func (g *Gateway) GetBlockByNumber(ctx context.Context, opts CallOptions, block ethtypes.BlockTag, fullTx bool) (gatewaytypes.ReducedResult[ethtypes.Block], error) {
	spec := RequestSpec{
		Method:    "eth_getBlockByNumber",
		Params:    []interface{}{block.Param(), fullTx},
		Transform: gatewaytypes.TransformBlock,
	}
	return multiCall(ctx, g, opts.Hint, opts.Strategy, opts.AttachedCycles, spec, parseJSON[ethtypes.Block])
}

// GetTransactionReceipt implements get_transaction_receipt. The result is
// a pointer: a nil Value with no error means the transaction is not yet
// mined (the upstream returned `result: null`).
func (g *Gateway) GetTransactionReceipt(ctx context.Context, opts CallOptions, txHash string) (gatewaytypes.ReducedResult[*ethtypes.Receipt], error) {
	spec := RequestSpec{
		Method:    "eth_getTransactionReceipt",
		Params:    []interface{}{txHash},
		Transform: gatewaytypes.TransformTransactionReceipt,
	}
	return multiCall(ctx, g, opts.Hint, opts.Strategy, opts.AttachedCycles, spec, parseJSON[*ethtypes.Receipt])
}

// GetTransactionCount implements get_transaction_count.
func (g *Gateway) GetTransactionCount(ctx context.Context, opts CallOptions, p ethtypes.GetTransactionCountParams) (gatewaytypes.ReducedResult[uint64], error) {
	spec := RequestSpec{
		Method:    "eth_getTransactionCount",
		Params:    []interface{}{p.Address, p.Block.Param()},
		Transform: gatewaytypes.TransformGetTransactionCount,
	}
	parse := func(raw json.RawMessage) (uint64, error) {
		var hexVal string
		if err := json.Unmarshal(raw, &hexVal); err != nil {
			return 0, fmt.Errorf("gateway: parsing transaction count: %w", err)
		}
		return ethtypes.ParseHexUint64(hexVal)
	}
	return multiCall(ctx, g, opts.Hint, opts.Strategy, opts.AttachedCycles, spec, parse)
}

// FeeHistory implements fee_history.
func (g *Gateway) FeeHistory(ctx context.Context, opts CallOptions, p ethtypes.FeeHistoryParams) (gatewaytypes.ReducedResult[ethtypes.FeeHistory], error) {
	spec := RequestSpec{
		Method:    "eth_feeHistory",
		Params:    p.Wire(),
		Transform: gatewaytypes.TransformFeeHistory,
	}
	return multiCall(ctx, g, opts.Hint, opts.Strategy, opts.AttachedCycles, spec, parseJSON[ethtypes.FeeHistory])
}

// SendRawTransaction implements send_raw_transaction. A successful result
// has already been collapsed by the canonicalizer into the closed outcome
// set this method's result type enumerates. Providers that reject a
// transaction do so through the JSON-RPC error envelope instead, so an
// agreed-upon upstream error is folded into the same outcome set here
// rather than surfaced as a failure: a rejected transaction is a valid
// answer, not a broken provider.
func (g *Gateway) SendRawTransaction(ctx context.Context, opts CallOptions, rawTx string) (gatewaytypes.ReducedResult[ethtypes.SendRawTxOutcome], error) {
	spec := RequestSpec{
		Method:    "eth_sendRawTransaction",
		Params:    []interface{}{rawTx},
		Transform: gatewaytypes.TransformSendRawTransaction,
	}
	result, err := multiCall(ctx, g, opts.Hint, opts.Strategy, opts.AttachedCycles, spec, parseJSON[ethtypes.SendRawTxOutcome])
	if err != nil {
		return result, err
	}

	if result.Consistent && result.Err != nil {
		var rpcErr *gatewaytypes.JsonRpcError
		if errors.As(result.Err, &rpcErr) {
			outcome := ethtypes.SendRawTxOutcome{Outcome: canonical.ClassifySendRawTxError(rpcErr.Message)}
			if outcome.Outcome == "Other" {
				outcome.Message = rpcErr.Message
			}
			return gatewaytypes.ReducedResult[ethtypes.SendRawTxOutcome]{Consistent: true, Value: outcome}, nil
		}
	}
	return result, nil
}

// EthCall implements eth_call, returning the raw hex-encoded return data.
func (g *Gateway) EthCall(ctx context.Context, opts CallOptions, p ethtypes.CallParams) (gatewaytypes.ReducedResult[string], error) {
	spec := RequestSpec{
		Method:    "eth_call",
		Params:    p.Wire(),
		Transform: gatewaytypes.TransformCall,
	}
	return multiCall(ctx, g, opts.Hint, opts.Strategy, opts.AttachedCycles, spec, parseJSON[string])
}

// ERC20Balance is a convenience built on EthCall: it encodes
// balanceOf(address), dispatches it as an eth_call, and returns the raw
// uint256 return data for the caller to decode.
func (g *Gateway) ERC20Balance(ctx context.Context, opts CallOptions, token, holder string) (gatewaytypes.ReducedResult[string], error) {
	var zero gatewaytypes.ReducedResult[string]
	if err := abi.ValidateAddress(token); err != nil {
		return zero, &gatewaytypes.ValidationError{Reason: err.Error()}
	}
	if err := abi.ValidateAddress(holder); err != nil {
		return zero, &gatewaytypes.ValidationError{Reason: err.Error()}
	}
	calldata, err := abi.EncodeBalanceOfCalldata(holder)
	if err != nil {
		return zero, &gatewaytypes.ValidationError{Reason: err.Error()}
	}
	block := ethtypes.Latest()
	return g.EthCall(ctx, opts, ethtypes.CallParams{To: token, Data: calldata, Block: &block})
}

// Request implements the raw pass-through operation: an arbitrary method
// and params, a caller-chosen response-size budget, returning the
// canonicalized result as a JSON string per provider/consensus rule
// rather than a typed value.
func (g *Gateway) Request(ctx context.Context, opts CallOptions, method string, params []interface{}, maxResponseBytes uint64) (gatewaytypes.ReducedResult[json.RawMessage], error) {
	spec := RequestSpec{Method: method, Params: params, Transform: gatewaytypes.TransformRaw}
	return multiCallSized(ctx, g, opts.Hint, opts.Strategy, opts.AttachedCycles, maxResponseBytes, spec,
		func(raw json.RawMessage) (json.RawMessage, error) { return raw, nil })
}

// RequestCost implements the request_cost query: the cycles a single
// named provider would charge for the identical call Request would make,
// computed without generating any outbound HTTP traffic.
func (g *Gateway) RequestCost(service string, method string, params []interface{}, maxResponseBytes uint64) (uint64, error) {
	provider, err := g.Registry.Resolve(service)
	if err != nil {
		return 0, err
	}
	if maxResponseBytes == 0 {
		maxResponseBytes = g.Config.InitialResponseBytes
	}

	req := gatewaytypes.NewRequest(0, method, params)
	httpParams, err := reqbuilder.Build(reqbuilder.Input{
		Request:          req,
		Provider:         provider,
		APIKey:           g.resolveAPIKey(provider),
		MaxResponseBytes: maxResponseBytes,
		Transform:        gatewaytypes.TransformRaw,
		Override:         g.Override,
	})
	if err != nil {
		return 0, err
	}

	total := cost.Estimate(g.Config.NodesInSubnet, httpParams)
	if g.Config.DemoMode {
		g.Metrics.ObserveCost(service, total)
		return total, nil
	}
	charged := cost.WithCollateral(g.Config.NodesInSubnet, total)
	g.Metrics.ObserveCost(service, charged)
	return charged, nil
}
