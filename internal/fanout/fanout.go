// Package fanout dispatches one typed call to every provider in a
// ProviderSet concurrently, waits for all of them, and reduces the
// per-provider results under an Equality or Threshold consensus strategy.
//
// One provider failing never cancels the others, and the reducer runs
// only after every provider has finished. Short-circuiting would save
// latency but make cost accounting and metrics depend on completion
// order, which is not observable.
package fanout

import (
	"bytes"
	"context"
	"crypto/sha256"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/ranking"
	"github.com/dmagro/eth-rpc-gateway/internal/registry"
	"github.com/dmagro/eth-rpc-gateway/internal/rpccall"
)

// CallOneFunc performs one provider's call and returns its CallResult,
// carrying the canonicalized "result" bytes or an error. It is the seam between
// fanout (which only knows about ordering and reduction) and rpccall
// (which knows how to actually talk to a provider).
type CallOneFunc func(ctx context.Context, service string, provider gatewaytypes.Provider) rpccall.CallResult

type providerOutcome struct {
	service    string
	providerID uint64
	ok         bool
	resultRaw  []byte // canonicalized result bytes, nil on error
	err        error
}

// MultiCall dispatches call to every service in set concurrently, then
// reduces the outcomes under strategy. parse converts the winning
// canonicalized result bytes into the caller's typed T.
func MultiCall[T any](
	ctx context.Context,
	reg *registry.Registry,
	rank *ranking.Ranking,
	set gatewaytypes.ProviderSet,
	strategy gatewaytypes.ConsensusStrategy,
	supportedCount int,
	call CallOneFunc,
	parse func(raw []byte) (T, error),
) (gatewaytypes.ReducedResult[T], error) {
	if err := set.Validate(strategy, supportedCount); err != nil {
		var zero gatewaytypes.ReducedResult[T]
		return zero, err
	}

	outcomes := dispatch(ctx, reg, set, call)

	now := time.Now()
	for _, o := range outcomes {
		if o.ok {
			rank.RecordSuccess(o.service, now)
		}
	}

	return reduce(strategy, outcomes, parse)
}

// dispatch launches one goroutine per provider, writes each outcome into
// a mutex-guarded pre-sized slice, and joins them all. g.Go closures
// always return nil so errgroup never cancels the siblings.
func dispatch(ctx context.Context, reg *registry.Registry, set gatewaytypes.ProviderSet, call CallOneFunc) []providerOutcome {
	results := make([]providerOutcome, len(set.Services))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for i, service := range set.Services {
		i, service := i, service
		g.Go(func() error {
			provider, err := reg.Resolve(service)
			if err != nil {
				mu.Lock()
				results[i] = providerOutcome{service: service, err: err}
				mu.Unlock()
				return nil
			}

			cr := call(gctx, service, provider)

			mu.Lock()
			if cr.Success {
				results[i] = providerOutcome{service: service, providerID: provider.ProviderID, ok: true, resultRaw: cr.Response.Result}
			} else {
				results[i] = providerOutcome{service: service, providerID: provider.ProviderID, err: cr.Err}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func reduce[T any](strategy gatewaytypes.ConsensusStrategy, outcomes []providerOutcome, parse func([]byte) (T, error)) (gatewaytypes.ReducedResult[T], error) {
	var zero gatewaytypes.ReducedResult[T]

	toPerProvider := func() []gatewaytypes.PerProviderResult[T] {
		out := make([]gatewaytypes.PerProviderResult[T], 0, len(outcomes))
		for _, o := range outcomes {
			pp := gatewaytypes.PerProviderResult[T]{Service: o.service, Err: o.err}
			if o.ok {
				if v, err := parse(o.resultRaw); err == nil {
					pp.Value = v
				} else {
					pp.Err = err
				}
			}
			out = append(out, pp)
		}
		return out
	}

	switch strategy.Kind {
	case gatewaytypes.StrategyEquality:
		if allOK(outcomes) && allResultsEqual(outcomes) {
			v, err := parse(outcomes[0].resultRaw)
			if err != nil {
				return zero, err
			}
			return gatewaytypes.ReducedResult[T]{Consistent: true, Value: v}, nil
		}
		if allErrors(outcomes) && allErrorsEqual(outcomes) {
			return gatewaytypes.ReducedResult[T]{Consistent: true, Err: outcomes[0].err}, nil
		}
		return gatewaytypes.ReducedResult[T]{Consistent: false, PerProvider: toPerProvider()}, nil

	case gatewaytypes.StrategyThreshold:
		if winner, ok := largestOKBucket(outcomes, int(strategy.Min)); ok {
			v, err := parse(winner)
			if err != nil {
				return zero, err
			}
			return gatewaytypes.ReducedResult[T]{Consistent: true, Value: v}, nil
		}
		if allErrors(outcomes) && allErrorsEqual(outcomes) && len(outcomes) >= int(strategy.Min) {
			return gatewaytypes.ReducedResult[T]{Consistent: true, Err: outcomes[0].err}, nil
		}
		return gatewaytypes.ReducedResult[T]{Consistent: false, PerProvider: toPerProvider()}, nil

	default:
		return zero, &gatewaytypes.InvalidRpcConfigError{Reason: "unknown consensus strategy"}
	}
}

func allOK(outcomes []providerOutcome) bool {
	for _, o := range outcomes {
		if !o.ok {
			return false
		}
	}
	return true
}

func allErrors(outcomes []providerOutcome) bool {
	for _, o := range outcomes {
		if o.ok {
			return false
		}
	}
	return true
}

func allResultsEqual(outcomes []providerOutcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	first := outcomes[0].resultRaw
	for _, o := range outcomes[1:] {
		if !bytes.Equal(o.resultRaw, first) {
			return false
		}
	}
	return true
}

func allErrorsEqual(outcomes []providerOutcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	first := outcomes[0].err.Error()
	for _, o := range outcomes[1:] {
		if o.err == nil || o.err.Error() != first {
			return false
		}
	}
	return true
}

// largestOKBucket groups OK outcomes by the SHA-256 of their canonical
// bytes and returns the contents of the largest bucket when it has at
// least min members, tie-breaking on the lowest provider id among bucket
// members.
func largestOKBucket(outcomes []providerOutcome, min int) ([]byte, bool) {
	type bucket struct {
		hash       [32]byte
		raw        []byte
		minProvID  uint64
		count      int
	}
	buckets := make(map[[32]byte]*bucket)

	for _, o := range outcomes {
		if !o.ok {
			continue
		}
		h := sha256.Sum256(o.resultRaw)
		b, exists := buckets[h]
		if !exists {
			buckets[h] = &bucket{hash: h, raw: o.resultRaw, minProvID: o.providerID, count: 1}
			continue
		}
		b.count++
		if o.providerID < b.minProvID {
			b.minProvID = o.providerID
		}
	}

	all := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].minProvID < all[j].minProvID
	})

	if len(all) == 0 || all[0].count < min {
		return nil, false
	}
	return all[0].raw, true
}
