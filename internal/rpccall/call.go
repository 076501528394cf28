// Package rpccall performs one typed JSON-RPC round-trip against one
// provider: build the HTTP request, price and charge it, submit, parse
// the envelope, and retry with a doubled response budget when the
// transport rejected the previous attempt as oversize.
//
// Only oversize rejections are retried. Every other failure is surfaced
// as-is so the reducer upstream can decide what to make of it; retrying
// transient faults here would hide exactly the per-provider behavior the
// consensus layer exists to observe.
package rpccall

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmagro/eth-rpc-gateway/internal/canonical"
	"github.com/dmagro/eth-rpc-gateway/internal/cost"
	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/override"
	"github.com/dmagro/eth-rpc-gateway/internal/reqbuilder"
	"github.com/dmagro/eth-rpc-gateway/internal/transport"
)

// ErrorType buckets a failed CallResult for metrics and reporting.
type ErrorType int

const (
	ErrorTypeNone ErrorType = iota
	ErrorTypeInsufficientCycles
	ErrorTypeTransport
	ErrorTypeHTTPStatus
	ErrorTypeParseError
	ErrorTypeJSONRPC
)

// CallResult is the outcome of one CallOnce invocation.
type CallResult struct {
	Provider  string
	Method    string
	Success   bool
	Response  *gatewaytypes.Response // canonicalized result, set on success
	Latency   time.Duration
	Err       error
	ErrorType ErrorType
	Attempts  int // 1 + number of oversize retries
}

// Deps bundles the collaborators a call depends on but does not own.
type Deps struct {
	Transport     transport.Transport
	NodesInSubnet uint32
	DemoMode      bool
	IDs           *IDGenerator
}

// Params is one call's request-specific inputs.
type Params struct {
	Service                 string
	Provider                gatewaytypes.Provider
	APIKey                  *string
	Method                  string
	RPCParams               []interface{}
	Transform               gatewaytypes.TransformTag
	InitialMaxResponseBytes uint64
	AttachedCycles          uint64
	Override                *override.Override
}

const minRetryResponseBytes = 1024

// CallOnce runs one logical call to completion: build, price, charge,
// submit, parse, and retry on oversize. Every retry mints a fresh request
// id so a deduplicating transport layer sees a new request rather than
// replaying the rejected one.
func CallOnce(ctx context.Context, deps Deps, p Params) *CallResult {
	maxResponseBytes := p.InitialMaxResponseBytes
	attempts := 0
	start := time.Now()

	for {
		attempts++
		id := deps.IDs.Next()
		req := gatewaytypes.NewRequest(id, p.Method, p.RPCParams)

		params, err := reqbuilder.Build(reqbuilder.Input{
			Request:          req,
			Provider:         p.Provider,
			APIKey:           p.APIKey,
			MaxResponseBytes: maxResponseBytes,
			Transform:        p.Transform,
			Override:         p.Override,
		})
		if err != nil {
			return fail(p, start, attempts, err, ErrorTypeParseError)
		}

		totalCost := cost.Estimate(deps.NodesInSubnet, params)
		if !deps.DemoMode {
			charge := cost.WithCollateral(deps.NodesInSubnet, totalCost)
			if p.AttachedCycles < charge {
				return fail(p, start, attempts, &gatewaytypes.TooFewCyclesError{Expected: charge, Received: p.AttachedCycles}, ErrorTypeInsufficientCycles)
			}
		}

		result, icErr := deps.Transport.Submit(ctx, params)
		if icErr != nil {
			if icErr.Retryable {
				if next, ok := nextRetryBudget(maxResponseBytes); ok {
					maxResponseBytes = next
					continue
				}
			}
			return fail(p, start, attempts, icErr, ErrorTypeTransport)
		}

		if result.Status < 200 || result.Status >= 300 {
			return fail(p, start, attempts, &gatewaytypes.InvalidHttpJsonRpcResponseError{Status: result.Status, Body: string(result.Body)}, ErrorTypeHTTPStatus)
		}

		resp, err := parseEnvelope(result.Body, req.ID)
		if err != nil {
			return fail(p, start, attempts, err, ErrorTypeParseError)
		}
		if resp.Error != nil {
			return fail(p, start, attempts, &gatewaytypes.JsonRpcError{Code: resp.Error.Code, Message: resp.Error.Message}, ErrorTypeJSONRPC)
		}

		resp.Result = canonical.Canonicalize(p.Transform, resp.Result)
		return &CallResult{
			Provider: p.Service,
			Method:   p.Method,
			Success:  true,
			Response: resp,
			Latency:  time.Since(start),
			Attempts: attempts,
		}
	}
}

// nextRetryBudget doubles the response budget: max(previous,1024)*2
// capped at the transport ceiling. No retry when the new budget would not
// strictly exceed the previous one, i.e. the ceiling has been reached.
func nextRetryBudget(previous uint64) (uint64, bool) {
	if previous >= gatewaytypes.MaxResponseBytesCeiling {
		return 0, false
	}
	base := previous
	if base < minRetryResponseBytes {
		base = minRetryResponseBytes
	}
	next := base * 2
	if next > gatewaytypes.MaxResponseBytesCeiling {
		next = gatewaytypes.MaxResponseBytesCeiling
	}
	if next <= previous {
		return 0, false
	}
	return next, true
}

func parseEnvelope(body []byte, wantID uint64) (*gatewaytypes.Response, error) {
	var resp gatewaytypes.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &gatewaytypes.InvalidHttpJsonRpcResponseError{Body: string(body), ParsingError: err.Error()}
	}
	if resp.JSONRPC != "2.0" {
		return nil, &gatewaytypes.InvalidHttpJsonRpcResponseError{Body: string(body), ParsingError: "jsonrpc version mismatch"}
	}
	gotID, err := resp.ID.Int64()
	if err != nil || uint64(gotID) != wantID {
		return nil, &gatewaytypes.InvalidHttpJsonRpcResponseError{Body: string(body), ParsingError: "response id does not match request id"}
	}
	if resp.Result == nil && resp.Error == nil {
		return nil, &gatewaytypes.InvalidHttpJsonRpcResponseError{Body: string(body), ParsingError: "neither result nor error present"}
	}
	return &resp, nil
}

func fail(p Params, start time.Time, attempts int, err error, kind ErrorType) *CallResult {
	return &CallResult{
		Provider:  p.Service,
		Method:    p.Method,
		Success:   false,
		Err:       err,
		ErrorType: kind,
		Latency:   time.Since(start),
		Attempts:  attempts,
	}
}
