package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/eth-rpc-gateway/internal/ethtypes"
	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/registry"
	"github.com/dmagro/eth-rpc-gateway/internal/selection"
	"github.com/dmagro/eth-rpc-gateway/internal/store"
)

// step is one canned outcome a fakeTransport hands back for a given
// provider URL, in call order.
type step struct {
	retryable bool
	status    int // non-zero: raw HTTP status with rawBody, no envelope
	rawBody   string
	rpcErr    *gatewaytypes.RPCError
	result    json.RawMessage
}

// fakeTransport never touches the network. It replays, per provider URL,
// the steps a test configured, so these tests exercise the real
// selection/fanout/call/canonicalize/reduce machinery end to end.
type fakeTransport struct {
	steps map[string][]step
	calls map[string]int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{steps: make(map[string][]step), calls: make(map[string]int)}
}

func (f *fakeTransport) on(url string, s ...step) {
	f.steps[url] = s
}

func (f *fakeTransport) Submit(_ context.Context, params gatewaytypes.HTTPCallParams) (*gatewaytypes.HTTPCallResult, *gatewaytypes.IcError) {
	var req struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal(params.Body, &req); err != nil {
		return nil, &gatewaytypes.IcError{Code: gatewaytypes.CodeSysFatal, Message: "bad request body"}
	}

	seq := f.steps[params.URL]
	idx := f.calls[params.URL]
	f.calls[params.URL] = idx + 1
	if idx >= len(seq) {
		return nil, &gatewaytypes.IcError{Code: gatewaytypes.CodeUnknown, Message: fmt.Sprintf("no more canned steps for %s", params.URL)}
	}
	s := seq[idx]
	if s.retryable {
		return nil, &gatewaytypes.IcError{Code: gatewaytypes.CodeSysFatal, Message: "size limit exceeded", Retryable: true}
	}
	if s.status != 0 {
		return &gatewaytypes.HTTPCallResult{Status: s.status, Body: []byte(s.rawBody)}, nil
	}

	envelope := gatewaytypes.Response{JSONRPC: "2.0", ID: json.Number(fmt.Sprintf("%d", req.ID)), Result: s.result, Error: s.rpcErr}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, &gatewaytypes.IcError{Code: gatewaytypes.CodeSysFatal, Message: err.Error()}
	}
	return &gatewaytypes.HTTPCallResult{Status: 200, Body: body}, nil
}

// newTestGateway builds a Gateway wired to a fakeTransport and a registry
// of n public, unauthenticated providers on chain 1 named p0..p(n-1),
// each reachable at its own "https://provider-N.example" URL.
func newTestGateway(t *testing.T, n int) (*Gateway, *fakeTransport, []string) {
	t.Helper()

	yamlPath := filepath.Join(t.TempDir(), "providers.yaml")
	body := "providers:\n"
	urls := make([]string, n)
	for i := 0; i < n; i++ {
		url := fmt.Sprintf("https://provider-%d.example", i)
		urls[i] = url
		body += fmt.Sprintf("  - provider_id: %d\n    chain_id: 1\n    alias: p%d\n    auth: none\n    public_url: %q\n", i+1, i, url)
	}
	require.NoError(t, writeFile(yamlPath, body))

	reg, err := registry.Load(yamlPath)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "state.json"), 13)
	require.NoError(t, err)

	ft := newFakeTransport()
	g := New(reg, st, WithTransport(ft), WithConfig(Config{
		NodesInSubnet:        13,
		DemoMode:             true,
		ChainID:              1,
		InitialResponseBytes: 2048,
		MaxBlockRange:        500,
	}))
	return g, ft, urls
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func blockResult(number uint64) json.RawMessage {
	b := ethtypes.Block{Number: ethtypes.Uint64ToHex(number), Hash: "0xabc", ParentHash: "0xdef", Timestamp: "0x1", GasUsed: "0x5208", GasLimit: "0x1c9c380"}
	raw, _ := json.Marshal(b)
	return raw
}

func servicesHint(services ...string) selection.Hint {
	return selection.Hint{Services: services}
}

func TestGetBlockByNumberSingleProviderSuccess(t *testing.T) {
	g, ft, urls := newTestGateway(t, 1)
	ft.on(urls[0], step{result: blockResult(100)})

	result, err := g.GetBlockByNumber(context.Background(), CallOptions{
		Hint:     servicesHint("p0"),
		Strategy: gatewaytypes.Equality(),
	}, ethtypes.BlockNumber(100), false)

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, ethtypes.Uint64ToHex(100), result.Value.Number)
}

func TestGetBlockByNumberEqualityAgreementAcrossThree(t *testing.T) {
	g, ft, urls := newTestGateway(t, 3)
	for _, u := range urls {
		ft.on(u, step{result: blockResult(200)})
	}

	result, err := g.GetBlockByNumber(context.Background(), CallOptions{
		Hint:     servicesHint("p0", "p1", "p2"),
		Strategy: gatewaytypes.Equality(),
	}, ethtypes.Latest(), false)

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, ethtypes.Uint64ToHex(200), result.Value.Number)
}

func TestGetBlockByNumberThreshold2of3(t *testing.T) {
	g, ft, urls := newTestGateway(t, 3)
	ft.on(urls[0], step{result: blockResult(300)})
	ft.on(urls[1], step{result: blockResult(300)})
	ft.on(urls[2], step{result: blockResult(301)}) // minority, outvoted

	total := uint8(3)
	result, err := g.GetBlockByNumber(context.Background(), CallOptions{
		Hint:     servicesHint("p0", "p1", "p2"),
		Strategy: gatewaytypes.Threshold(&total, 2),
	}, ethtypes.Latest(), false)

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, ethtypes.Uint64ToHex(300), result.Value.Number)
}

func TestGetBlockByNumberThreshold3of4Inconsistent(t *testing.T) {
	g, ft, urls := newTestGateway(t, 4)
	ft.on(urls[0], step{result: blockResult(400)})
	ft.on(urls[1], step{result: blockResult(401)})
	ft.on(urls[2], step{result: blockResult(402)})
	ft.on(urls[3], step{result: blockResult(403)})

	total := uint8(4)
	result, err := g.GetBlockByNumber(context.Background(), CallOptions{
		Hint:     servicesHint("p0", "p1", "p2", "p3"),
		Strategy: gatewaytypes.Threshold(&total, 3),
	}, ethtypes.Latest(), false)

	require.NoError(t, err)
	assert.False(t, result.Consistent)
	assert.Len(t, result.PerProvider, 4)
}

func TestGetBlockByNumberOversizeRetry(t *testing.T) {
	g, ft, urls := newTestGateway(t, 1)
	ft.on(urls[0], step{retryable: true}, step{result: blockResult(500)})

	result, err := g.GetBlockByNumber(context.Background(), CallOptions{
		Hint:     servicesHint("p0"),
		Strategy: gatewaytypes.Equality(),
	}, ethtypes.Latest(), false)

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, ethtypes.Uint64ToHex(500), result.Value.Number)
	assert.Equal(t, 2, ft.calls[urls[0]])
}

func TestGetLogsBlockRangeValidation(t *testing.T) {
	g, _, _ := newTestGateway(t, 1)

	from := ethtypes.BlockNumber(0)
	to := ethtypes.BlockNumber(501)
	_, err := g.GetLogs(context.Background(), CallOptions{
		Hint:     servicesHint("p0"),
		Strategy: gatewaytypes.Equality(),
	}, ethtypes.GetLogsParams{FromBlock: &from, ToBlock: &to})

	require.Error(t, err)
	var ve *gatewaytypes.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "501 blocks")
	assert.Contains(t, ve.Error(), "limited to 500")
}

func TestGetLogsExactBoundaryRangeIsAllowed(t *testing.T) {
	g, ft, urls := newTestGateway(t, 1)
	ft.on(urls[0], step{result: json.RawMessage(`[]`)})

	from := ethtypes.BlockNumber(0)
	to := ethtypes.BlockNumber(500)
	result, err := g.GetLogs(context.Background(), CallOptions{
		Hint:     servicesHint("p0"),
		Strategy: gatewaytypes.Equality(),
	}, ethtypes.GetLogsParams{FromBlock: &from, ToBlock: &to})

	require.NoError(t, err, "|to-from| equal to the limit must pass")
	assert.True(t, result.Consistent)
}

func TestGetLogsReversedRangeUsesAbsoluteDifference(t *testing.T) {
	g, ft, urls := newTestGateway(t, 1)
	ft.on(urls[0], step{result: json.RawMessage(`[]`)})

	// Within the limit: endpoint order alone is not an error.
	from := ethtypes.BlockNumber(500)
	to := ethtypes.BlockNumber(0)
	_, err := g.GetLogs(context.Background(), CallOptions{
		Hint:     servicesHint("p0"),
		Strategy: gatewaytypes.Equality(),
	}, ethtypes.GetLogsParams{FromBlock: &from, ToBlock: &to})
	require.NoError(t, err)

	// Over the limit: rejected on the absolute difference.
	from = ethtypes.BlockNumber(501)
	to = ethtypes.BlockNumber(0)
	_, err = g.GetLogs(context.Background(), CallOptions{
		Hint:     servicesHint("p0"),
		Strategy: gatewaytypes.Equality(),
	}, ethtypes.GetLogsParams{FromBlock: &from, ToBlock: &to})
	require.Error(t, err)
	var ve *gatewaytypes.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "501 blocks")
}

func TestGetTransactionCountSingleProvider(t *testing.T) {
	g, ft, urls := newTestGateway(t, 1)
	ft.on(urls[0], step{result: json.RawMessage(`"0x1"`)})

	result, err := g.GetTransactionCount(context.Background(), CallOptions{
		Hint:     servicesHint("p0"),
		Strategy: gatewaytypes.Equality(),
	}, ethtypes.GetTransactionCountParams{
		Address: "0xdac17f958d2ee523a2206206994597c13d831ec7",
		Block:   ethtypes.Latest(),
	})

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, uint64(1), result.Value)
}

func TestThreshold2of3WithOneHTTPFailure(t *testing.T) {
	g, ft, urls := newTestGateway(t, 3)
	ft.on(urls[0], step{result: json.RawMessage(`"0x1"`)})
	ft.on(urls[1], step{status: 500, rawBody: "upstream exploded"})
	ft.on(urls[2], step{result: json.RawMessage(`"0x1"`)})

	total := uint8(3)
	result, err := g.GetTransactionCount(context.Background(), CallOptions{
		Hint:     servicesHint("p0", "p1", "p2"),
		Strategy: gatewaytypes.Threshold(&total, 2),
	}, ethtypes.GetTransactionCountParams{
		Address: "0xdac17f958d2ee523a2206206994597c13d831ec7",
		Block:   ethtypes.Latest(),
	})

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, uint64(1), result.Value)
}

func TestSendRawTransactionErrorEnvelopeNormalized(t *testing.T) {
	g, ft, urls := newTestGateway(t, 2)
	rejection := &gatewaytypes.RPCError{Code: -32000, Message: "nonce too low"}
	ft.on(urls[0], step{rpcErr: rejection})
	ft.on(urls[1], step{rpcErr: rejection})

	result, err := g.SendRawTransaction(context.Background(), CallOptions{
		Hint:     servicesHint("p0", "p1"),
		Strategy: gatewaytypes.Equality(),
	}, "0xf86c0a8502540be400")

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	require.NoError(t, result.Err)
	assert.Equal(t, "NonceTooLow", result.Value.Outcome)
}

func TestSendRawTransactionHashResult(t *testing.T) {
	g, ft, urls := newTestGateway(t, 1)
	ft.on(urls[0], step{result: json.RawMessage(`"0xabcdef"`)})

	result, err := g.SendRawTransaction(context.Background(), CallOptions{
		Hint:     servicesHint("p0"),
		Strategy: gatewaytypes.Equality(),
	}, "0xf86c0a8502540be400")

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, "Ok", result.Value.Outcome)
	assert.Equal(t, "0xabcdef", result.Value.Hash)
}

func TestGetLogsSortsAcrossProviderOrderings(t *testing.T) {
	g, ft, urls := newTestGateway(t, 2)
	logA := `{"address":"0xa","topics":[],"data":"0x","blockNumber":"0x1","transactionHash":"0x1","transactionIndex":"0x0","blockHash":"0x1","logIndex":"0x0","removed":false}`
	logB := `{"address":"0xb","topics":[],"data":"0x","blockNumber":"0x2","transactionHash":"0x2","transactionIndex":"0x0","blockHash":"0x2","logIndex":"0x1","removed":false}`
	ft.on(urls[0], step{result: json.RawMessage("[" + logA + "," + logB + "]")})
	ft.on(urls[1], step{result: json.RawMessage("[" + logB + "," + logA + "]")})

	from := ethtypes.BlockNumber(1)
	to := ethtypes.BlockNumber(2)
	result, err := g.GetLogs(context.Background(), CallOptions{
		Hint:     servicesHint("p0", "p1"),
		Strategy: gatewaytypes.Equality(),
	}, ethtypes.GetLogsParams{FromBlock: &from, ToBlock: &to})

	require.NoError(t, err)
	assert.True(t, result.Consistent, "same logs in a different order must agree after canonicalization")
	assert.Len(t, result.Value, 2)
}

func TestRequestCostIsPositiveAndTrafficFree(t *testing.T) {
	g, ft, _ := newTestGateway(t, 1)

	cycles, err := g.RequestCost("p0", "eth_blockNumber", nil, 0)
	require.NoError(t, err)
	assert.Greater(t, cycles, uint64(0))
	assert.Empty(t, ft.calls, "request_cost must not generate traffic")
}

func TestThreshold3of4WithOneDivergentProvider(t *testing.T) {
	g, ft, urls := newTestGateway(t, 4)
	ft.on(urls[0], step{result: json.RawMessage(`"0x1"`)})
	ft.on(urls[1], step{result: json.RawMessage(`"0x1"`)})
	ft.on(urls[2], step{result: json.RawMessage(`"0x2"`)}) // lagging minority
	ft.on(urls[3], step{result: json.RawMessage(`"0x1"`)})

	total := uint8(4)
	result, err := g.GetTransactionCount(context.Background(), CallOptions{
		Hint:     servicesHint("p0", "p1", "p2", "p3"),
		Strategy: gatewaytypes.Threshold(&total, 3),
	}, ethtypes.GetTransactionCountParams{
		Address: "0xdac17f958d2ee523a2206206994597c13d831ec7",
		Block:   ethtypes.Latest(),
	})

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, uint64(1), result.Value)
}
