// Package gateway ties the registry, ranking, cost, request-builder,
// canonicalizer, fanout, selection, override, and transport packages into
// the caller-facing operation table: get_logs, get_block_by_number,
// get_transaction_receipt, get_transaction_count, fee_history,
// send_raw_transaction, eth_call, and the raw request/request_cost
// pass-through.
//
// Every operation follows the same shape: resolve a provider set,
// dispatch one typed call per provider, and hand back a ReducedResult.
// This package owns none of that machinery; it is purely the seam that
// supplies each operation's method name, params, transform tag, and parse
// function.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/dmagro/eth-rpc-gateway/internal/fanout"
	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/obs"
	"github.com/dmagro/eth-rpc-gateway/internal/override"
	"github.com/dmagro/eth-rpc-gateway/internal/ranking"
	"github.com/dmagro/eth-rpc-gateway/internal/registry"
	"github.com/dmagro/eth-rpc-gateway/internal/rpccall"
	"github.com/dmagro/eth-rpc-gateway/internal/selection"
	"github.com/dmagro/eth-rpc-gateway/internal/store"
	"github.com/dmagro/eth-rpc-gateway/internal/transport"
)

// Config bundles the process-wide settings an operation needs beyond the
// collaborators themselves: the subnet node count and demo-mode flag the
// cost estimator prices calls against, which chain the default provider
// list is drawn from, and the default response-size budget and get_logs
// block-range ceiling.
type Config struct {
	NodesInSubnet        uint32
	DemoMode             bool
	ChainID              uint64
	InitialResponseBytes uint64
	MaxBlockRange        uint64
}

// DefaultConfig targets Ethereum mainnet with a conservative get_logs
// range ceiling (500 blocks, the same default most public providers
// enforce).
func DefaultConfig() Config {
	return Config{
		NodesInSubnet:        13,
		DemoMode:             false,
		ChainID:              1,
		InitialResponseBytes: 2 * 1024,
		MaxBlockRange:        500,
	}
}

// Gateway is the process-wide handle every caller-facing operation is a
// method on. It is safe for concurrent use: every field it holds is
// either read-only (Registry) or independently concurrency-safe (Ranking,
// the store, the IDGenerator).
type Gateway struct {
	Registry  *registry.Registry
	Ranking   *ranking.Ranking
	Transport transport.Transport
	Store     *store.Store
	IDs       *rpccall.IDGenerator
	Override  *override.Override
	Config    Config
	Metrics   *obs.Metrics
	Log       *zap.Logger
}

// New builds a Gateway from its collaborators. reg and st are required;
// everything else defaults to a fresh ranking table, a production HTTP
// transport, no override, unregistered metrics, and a no-op logger.
func New(reg *registry.Registry, st *store.Store, opts ...Option) *Gateway {
	g := &Gateway{
		Registry:  reg,
		Ranking:   ranking.NewDefault(),
		Transport: transport.New(),
		Store:     st,
		IDs:       &rpccall.IDGenerator{},
		Config:    DefaultConfig(),
		Metrics:   obs.NewMetrics(nil, "", ""),
		Log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Option configures a Gateway at construction time.
type Option func(*Gateway)

func WithRanking(r *ranking.Ranking) Option      { return func(g *Gateway) { g.Ranking = r } }
func WithTransport(t transport.Transport) Option { return func(g *Gateway) { g.Transport = t } }
func WithOverride(o *override.Override) Option   { return func(g *Gateway) { g.Override = o } }
func WithConfig(c Config) Option                 { return func(g *Gateway) { g.Config = c } }
func WithMetrics(m *obs.Metrics) Option          { return func(g *Gateway) { g.Metrics = m } }
func WithLogger(l *zap.Logger) Option            { return func(g *Gateway) { g.Log = l } }

// RequestSpec is one logical call: the method name, its typed params
// (already shaped into the JSON-RPC params array a Wire() method
// produces), and the response canonicalizer to run.
type RequestSpec struct {
	Method    string
	Params    []interface{}
	Transform gatewaytypes.TransformTag
}

// resolveAPIKey looks up the configured key for provider, returning nil
// (meaning "no key") rather than an error. The request builder decides
// whether that is fatal based on whether a public fallback exists.
func (g *Gateway) resolveAPIKey(p gatewaytypes.Provider) *string {
	if key, ok := g.Store.APIKey(p.ProviderID); ok {
		return &key
	}
	return nil
}

// callOne adapts rpccall.CallOnce into the fanout.CallOneFunc shape,
// closing over the request spec, attached cycles, and response-size
// budget so every provider in the fanout runs the identical logical call.
func (g *Gateway) callOne(spec RequestSpec, attachedCycles, initialResponseBytes uint64) fanout.CallOneFunc {
	return func(ctx context.Context, service string, provider gatewaytypes.Provider) rpccall.CallResult {
		result := rpccall.CallOnce(ctx, rpccall.Deps{
			Transport:     g.Transport,
			NodesInSubnet: g.Config.NodesInSubnet,
			DemoMode:      g.Config.DemoMode,
			IDs:           g.IDs,
		}, rpccall.Params{
			Service:                 service,
			Provider:                provider,
			APIKey:                  g.resolveAPIKey(provider),
			Method:                  spec.Method,
			RPCParams:               spec.Params,
			Transform:               spec.Transform,
			InitialMaxResponseBytes: initialResponseBytes,
			AttachedCycles:          attachedCycles,
			Override:                g.Override,
		})

		g.Metrics.ObserveCall(service, spec.Method, result.Success, errorTypeLabel(result.ErrorType), result.Attempts, result.Latency)
		if !result.Success {
			g.Log.Debug("provider call failed",
				zap.String("service", service),
				zap.String("method", spec.Method),
				zap.Int("attempts", result.Attempts),
				zap.Error(result.Err),
			)
		}
		return *result
	}
}

func errorTypeLabel(t rpccall.ErrorType) string {
	switch t {
	case rpccall.ErrorTypeInsufficientCycles:
		return "insufficient_cycles"
	case rpccall.ErrorTypeTransport:
		return "transport"
	case rpccall.ErrorTypeHTTPStatus:
		return "http_status"
	case rpccall.ErrorTypeParseError:
		return "parse_error"
	case rpccall.ErrorTypeJSONRPC:
		return "json_rpc"
	default:
		return "none"
	}
}

// multiCall runs spec across the provider set chosen by hint/strategy and
// parses each winning result with parse. It is the single place every
// typed operation below funnels through. A zero initialResponseBytes
// falls back to Config.InitialResponseBytes.
func multiCall[T any](
	ctx context.Context,
	g *Gateway,
	hint selection.Hint,
	strategy gatewaytypes.ConsensusStrategy,
	attachedCycles uint64,
	spec RequestSpec,
	parse func(json.RawMessage) (T, error),
) (gatewaytypes.ReducedResult[T], error) {
	return multiCallSized(ctx, g, hint, strategy, attachedCycles, g.Config.InitialResponseBytes, spec, parse)
}

func multiCallSized[T any](
	ctx context.Context,
	g *Gateway,
	hint selection.Hint,
	strategy gatewaytypes.ConsensusStrategy,
	attachedCycles uint64,
	initialResponseBytes uint64,
	spec RequestSpec,
	parse func(json.RawMessage) (T, error),
) (gatewaytypes.ReducedResult[T], error) {
	supported := g.Registry.SupportedServices(g.Config.ChainID)
	set, err := selection.Select(hint, strategy, supported, g.Ranking, time.Now())
	if err != nil {
		var zero gatewaytypes.ReducedResult[T]
		return zero, err
	}
	if initialResponseBytes == 0 {
		initialResponseBytes = g.Config.InitialResponseBytes
	}

	result, err := fanout.MultiCall(ctx, g.Registry, g.Ranking, set, strategy, len(supported),
		g.callOne(spec, attachedCycles, initialResponseBytes),
		func(raw []byte) (T, error) { return parse(raw) },
	)
	if err == nil && !result.Consistent {
		g.Metrics.ObserveInconsistent(spec.Method)
	}
	for _, service := range set.Services {
		g.Metrics.SetRankingScore(service, g.Ranking.SampleCount(service, time.Now()))
	}
	return result, err
}
