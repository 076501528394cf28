package apiserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmagro/eth-rpc-gateway/internal/ethtypes"
	"github.com/dmagro/eth-rpc-gateway/internal/gateway"
	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/selection"
)

// operationHandler unmarshals a caller's params array, runs the named
// gateway operation, and marshals the ReducedResult back to JSON.
type operationHandler func(ctx context.Context, gw *gateway.Gateway, params json.RawMessage) (json.RawMessage, error)

// operationTable maps every public method name onto its handler.
// "request" and "request_cost" are the pass-through/query operations; the
// rest are the typed table.
var operationTable = map[string]operationHandler{
	"get_logs":                 handleGetLogs,
	"get_block_by_number":      handleGetBlockByNumber,
	"get_transaction_receipt":  handleGetTransactionReceipt,
	"get_transaction_count":    handleGetTransactionCount,
	"fee_history":              handleFeeHistory,
	"send_raw_transaction":     handleSendRawTransaction,
	"eth_call":                 handleEthCall,
	"request":                  handleRequest,
	"request_cost":             handleRequestCost,
}

// opEnvelope carries the provider-selection and consensus overrides
// every operation accepts alongside its typed params.
type opEnvelope struct {
	Services       []string      `json:"services,omitempty"`
	Strategy       *strategyWire `json:"strategy,omitempty"`
	AttachedCycles uint64        `json:"attached_cycles,omitempty"`
}

type strategyWire struct {
	Kind  string `json:"kind"` // "equality" | "threshold"
	Total *uint8 `json:"total,omitempty"`
	Min   uint8  `json:"min,omitempty"`
}

func (e opEnvelope) callOptions() gateway.CallOptions {
	hint := selection.Hint{Services: e.Services, UseDefaults: len(e.Services) == 0}
	strategy := gatewaytypes.Equality()
	if e.Strategy != nil && e.Strategy.Kind == "threshold" {
		strategy = gatewaytypes.Threshold(e.Strategy.Total, e.Strategy.Min)
	}
	return gateway.CallOptions{Hint: hint, Strategy: strategy, AttachedCycles: e.AttachedCycles}
}

// soleParam unmarshals the caller's one-element params array into T.
func soleParam[T any](raw json.RawMessage) (T, error) {
	var zero T
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return zero, fmt.Errorf("apiserver: params must be a one-element array: %w", err)
	}
	if len(arr) != 1 {
		return zero, fmt.Errorf("apiserver: expected exactly one params element, got %d", len(arr))
	}
	var v T
	if err := json.Unmarshal(arr[0], &v); err != nil {
		return zero, fmt.Errorf("apiserver: decoding params: %w", err)
	}
	return v, nil
}

func marshalResult[T any](result gatewaytypes.ReducedResult[T]) (json.RawMessage, error) {
	return json.Marshal(result)
}

type getLogsRequest struct {
	opEnvelope
	FromBlock string   `json:"from_block,omitempty"`
	ToBlock   string    `json:"to_block,omitempty"`
	Addresses []string  `json:"addresses,omitempty"`
	Topics    []string  `json:"topics,omitempty"`
}

func handleGetLogs(ctx context.Context, gw *gateway.Gateway, params json.RawMessage) (json.RawMessage, error) {
	req, err := soleParam[getLogsRequest](params)
	if err != nil {
		return nil, err
	}
	p := ethtypes.GetLogsParams{Addresses: req.Addresses, Topics: req.Topics}
	if req.FromBlock != "" {
		tag, err := ethtypes.ParseBlockTag(req.FromBlock)
		if err != nil {
			return nil, &gatewaytypes.ValidationError{Reason: err.Error()}
		}
		p.FromBlock = &tag
	}
	if req.ToBlock != "" {
		tag, err := ethtypes.ParseBlockTag(req.ToBlock)
		if err != nil {
			return nil, &gatewaytypes.ValidationError{Reason: err.Error()}
		}
		p.ToBlock = &tag
	}
	result, err := gw.GetLogs(ctx, req.callOptions(), p)
	if err != nil {
		return nil, err
	}
	return marshalResult(result)
}

type blockByNumberRequest struct {
	opEnvelope
	Block   string `json:"block"`
	FullTxs bool   `json:"full_transactions,omitempty"`
}

func handleGetBlockByNumber(ctx context.Context, gw *gateway.Gateway, params json.RawMessage) (json.RawMessage, error) {
	req, err := soleParam[blockByNumberRequest](params)
	if err != nil {
		return nil, err
	}
	tag, err := ethtypes.ParseBlockTag(req.Block)
	if err != nil {
		return nil, &gatewaytypes.ValidationError{Reason: err.Error()}
	}
	result, err := gw.GetBlockByNumber(ctx, req.callOptions(), tag, req.FullTxs)
	if err != nil {
		return nil, err
	}
	return marshalResult(result)
}

type txReceiptRequest struct {
	opEnvelope
	TxHash string `json:"tx_hash"`
}

func handleGetTransactionReceipt(ctx context.Context, gw *gateway.Gateway, params json.RawMessage) (json.RawMessage, error) {
	req, err := soleParam[txReceiptRequest](params)
	if err != nil {
		return nil, err
	}
	result, err := gw.GetTransactionReceipt(ctx, req.callOptions(), req.TxHash)
	if err != nil {
		return nil, err
	}
	return marshalResult(result)
}

type txCountRequest struct {
	opEnvelope
	Address string `json:"address"`
	Block   string `json:"block"`
}

func handleGetTransactionCount(ctx context.Context, gw *gateway.Gateway, params json.RawMessage) (json.RawMessage, error) {
	req, err := soleParam[txCountRequest](params)
	if err != nil {
		return nil, err
	}
	tag, err := ethtypes.ParseBlockTag(req.Block)
	if err != nil {
		return nil, &gatewaytypes.ValidationError{Reason: err.Error()}
	}
	result, err := gw.GetTransactionCount(ctx, req.callOptions(), ethtypes.GetTransactionCountParams{Address: req.Address, Block: tag})
	if err != nil {
		return nil, err
	}
	return marshalResult(result)
}

type feeHistoryRequest struct {
	opEnvelope
	BlockCount        uint64    `json:"block_count"`
	NewestBlock       string    `json:"newest_block"`
	RewardPercentiles []float64 `json:"reward_percentiles,omitempty"`
}

func handleFeeHistory(ctx context.Context, gw *gateway.Gateway, params json.RawMessage) (json.RawMessage, error) {
	req, err := soleParam[feeHistoryRequest](params)
	if err != nil {
		return nil, err
	}
	tag, err := ethtypes.ParseBlockTag(req.NewestBlock)
	if err != nil {
		return nil, &gatewaytypes.ValidationError{Reason: err.Error()}
	}
	result, err := gw.FeeHistory(ctx, req.callOptions(), ethtypes.FeeHistoryParams{
		BlockCount:        req.BlockCount,
		NewestBlock:       tag,
		RewardPercentiles: req.RewardPercentiles,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(result)
}

type sendRawTxRequest struct {
	opEnvelope
	RawTx string `json:"raw_tx"`
}

func handleSendRawTransaction(ctx context.Context, gw *gateway.Gateway, params json.RawMessage) (json.RawMessage, error) {
	req, err := soleParam[sendRawTxRequest](params)
	if err != nil {
		return nil, err
	}
	result, err := gw.SendRawTransaction(ctx, req.callOptions(), req.RawTx)
	if err != nil {
		return nil, err
	}
	return marshalResult(result)
}

type ethCallRequest struct {
	opEnvelope
	To    string `json:"to"`
	From  string `json:"from,omitempty"`
	Data  string `json:"data,omitempty"`
	Value string `json:"value,omitempty"`
	Block string `json:"block,omitempty"`
}

func handleEthCall(ctx context.Context, gw *gateway.Gateway, params json.RawMessage) (json.RawMessage, error) {
	req, err := soleParam[ethCallRequest](params)
	if err != nil {
		return nil, err
	}
	p := ethtypes.CallParams{To: req.To, From: req.From, Data: req.Data, Value: req.Value}
	if req.Block != "" {
		tag, err := ethtypes.ParseBlockTag(req.Block)
		if err != nil {
			return nil, &gatewaytypes.ValidationError{Reason: err.Error()}
		}
		p.Block = &tag
	}
	result, err := gw.EthCall(ctx, req.callOptions(), p)
	if err != nil {
		return nil, err
	}
	return marshalResult(result)
}

type rawRequest struct {
	opEnvelope
	Method           string        `json:"method"`
	Params           []interface{} `json:"params,omitempty"`
	MaxResponseBytes uint64        `json:"max_response_bytes,omitempty"`
}

func handleRequest(ctx context.Context, gw *gateway.Gateway, params json.RawMessage) (json.RawMessage, error) {
	req, err := soleParam[rawRequest](params)
	if err != nil {
		return nil, err
	}
	result, err := gw.Request(ctx, req.callOptions(), req.Method, req.Params, req.MaxResponseBytes)
	if err != nil {
		return nil, err
	}
	return marshalResult(result)
}

type requestCostRequest struct {
	Service          string        `json:"service"`
	Method           string        `json:"method"`
	Params           []interface{} `json:"params,omitempty"`
	MaxResponseBytes uint64        `json:"max_response_bytes,omitempty"`
}

func handleRequestCost(_ context.Context, gw *gateway.Gateway, params json.RawMessage) (json.RawMessage, error) {
	req, err := soleParam[requestCostRequest](params)
	if err != nil {
		return nil, err
	}
	cycles, err := gw.RequestCost(req.Service, req.Method, req.Params, req.MaxResponseBytes)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cycles)
}
