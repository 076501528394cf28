package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/ranking"
	"github.com/dmagro/eth-rpc-gateway/internal/registry"
	"github.com/dmagro/eth-rpc-gateway/internal/rpccall"
)

// testRegistry declares n public providers p0..p(n-1) on chain 1.
func testRegistry(t *testing.T, n int) *registry.Registry {
	t.Helper()
	body := "providers:\n"
	for i := 0; i < n; i++ {
		body += fmt.Sprintf("  - provider_id: %d\n    chain_id: 1\n    alias: p%d\n    auth: none\n    public_url: \"https://p%d.example\"\n", i+1, i, i)
	}
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	reg, err := registry.Load(path)
	require.NoError(t, err)
	return reg
}

// outcomes maps a service to either a canned result or an error.
type outcomes map[string]rpccall.CallResult

func (o outcomes) call(_ context.Context, service string, _ gatewaytypes.Provider) rpccall.CallResult {
	return o[service]
}

func ok(result string) rpccall.CallResult {
	return rpccall.CallResult{
		Success:  true,
		Response: &gatewaytypes.Response{JSONRPC: "2.0", Result: json.RawMessage(result)},
	}
}

func failed(err error) rpccall.CallResult {
	return rpccall.CallResult{Success: false, Err: err}
}

func parseString(raw []byte) (string, error) {
	var s string
	err := json.Unmarshal(raw, &s)
	return s, err
}

func userSet(services ...string) gatewaytypes.ProviderSet {
	return gatewaytypes.ProviderSet{Services: services, Origin: gatewaytypes.OriginUserSupplied}
}

func TestEqualityAllErrorsEqualIsConsistentError(t *testing.T) {
	reg := testRegistry(t, 2)
	o := outcomes{
		"p0": failed(&gatewaytypes.JsonRpcError{Code: -32000, Message: "reverted"}),
		"p1": failed(&gatewaytypes.JsonRpcError{Code: -32000, Message: "reverted"}),
	}

	result, err := MultiCall(context.Background(), reg, ranking.NewDefault(), userSet("p0", "p1"),
		gatewaytypes.Equality(), 2, o.call, parseString)
	require.NoError(t, err)

	assert.True(t, result.Consistent)
	require.Error(t, result.Err)
	var rpcErr *gatewaytypes.JsonRpcError
	assert.ErrorAs(t, result.Err, &rpcErr)
}

func TestEqualityMixedOutcomesIsInconsistent(t *testing.T) {
	reg := testRegistry(t, 2)
	o := outcomes{
		"p0": ok(`"0x1"`),
		"p1": failed(&gatewaytypes.JsonRpcError{Code: -32000, Message: "reverted"}),
	}

	result, err := MultiCall(context.Background(), reg, ranking.NewDefault(), userSet("p0", "p1"),
		gatewaytypes.Equality(), 2, o.call, parseString)
	require.NoError(t, err)

	assert.False(t, result.Consistent)
	assert.Len(t, result.PerProvider, 2)
}

func TestThresholdErrorConsensus(t *testing.T) {
	reg := testRegistry(t, 2)
	o := outcomes{
		"p0": failed(&gatewaytypes.JsonRpcError{Code: -32000, Message: "reverted"}),
		"p1": failed(&gatewaytypes.JsonRpcError{Code: -32000, Message: "reverted"}),
	}

	total := uint8(2)
	result, err := MultiCall(context.Background(), reg, ranking.NewDefault(), userSet("p0", "p1"),
		gatewaytypes.Threshold(&total, 2), 2, o.call, parseString)
	require.NoError(t, err)

	assert.True(t, result.Consistent)
	assert.Error(t, result.Err)
}

func TestThresholdBelowMinIsInconsistent(t *testing.T) {
	reg := testRegistry(t, 3)
	o := outcomes{
		"p0": ok(`"0x1"`),
		"p1": ok(`"0x2"`),
		"p2": ok(`"0x3"`),
	}

	total := uint8(3)
	result, err := MultiCall(context.Background(), reg, ranking.NewDefault(), userSet("p0", "p1", "p2"),
		gatewaytypes.Threshold(&total, 2), 3, o.call, parseString)
	require.NoError(t, err)

	assert.False(t, result.Consistent)
}

func TestZeroMinIsRejectedBeforeDispatch(t *testing.T) {
	reg := testRegistry(t, 1)
	called := false
	call := func(context.Context, string, gatewaytypes.Provider) rpccall.CallResult {
		called = true
		return ok(`"0x1"`)
	}

	total := uint8(1)
	_, err := MultiCall(context.Background(), reg, ranking.NewDefault(), userSet("p0"),
		gatewaytypes.Threshold(&total, 0), 1, call, parseString)

	var invalid *gatewaytypes.InvalidRpcConfigError
	require.ErrorAs(t, err, &invalid)
	assert.False(t, called, "no dispatch on invalid strategy")
}

func TestMismatchedTotalIsRejected(t *testing.T) {
	reg := testRegistry(t, 2)
	total := uint8(3)
	_, err := MultiCall(context.Background(), reg, ranking.NewDefault(), userSet("p0", "p1"),
		gatewaytypes.Threshold(&total, 2), 2, outcomes{}.call, parseString)

	var invalid *gatewaytypes.InvalidRpcConfigError
	require.ErrorAs(t, err, &invalid)
}

func TestSuccessesFeedRanking(t *testing.T) {
	reg := testRegistry(t, 2)
	rank := ranking.NewDefault()
	o := outcomes{
		"p0": ok(`"0x1"`),
		"p1": failed(&gatewaytypes.JsonRpcError{Code: 1, Message: "down"}),
	}

	_, err := MultiCall(context.Background(), reg, rank, userSet("p0", "p1"),
		gatewaytypes.Equality(), 2, o.call, parseString)
	require.NoError(t, err)

	now := time.Now()
	assert.Equal(t, 1, rank.SampleCount("p0", now))
	assert.Equal(t, 0, rank.SampleCount("p1", now))
}

func TestUnknownServiceSurfacesPerProvider(t *testing.T) {
	reg := testRegistry(t, 1)
	o := outcomes{"p0": ok(`"0x1"`)}

	result, err := MultiCall(context.Background(), reg, ranking.NewDefault(), userSet("p0", "ghost"),
		gatewaytypes.Equality(), 1, o.call, parseString)
	require.NoError(t, err)

	assert.False(t, result.Consistent)
	var missing *gatewaytypes.MissingRequiredProviderError
	found := false
	for _, pp := range result.PerProvider {
		if pp.Service == "ghost" {
			found = assert.ErrorAs(t, pp.Err, &missing)
		}
	}
	assert.True(t, found)
}
