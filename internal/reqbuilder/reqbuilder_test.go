package reqbuilder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
	"github.com/dmagro/eth-rpc-gateway/internal/override"
)

func strPtr(s string) *string { return &s }

func baseInput(p gatewaytypes.Provider) Input {
	return Input{
		Request:          gatewaytypes.NewRequest(7, "eth_blockNumber", nil),
		Provider:         p,
		MaxResponseBytes: 2048,
		Transform:        gatewaytypes.TransformRaw,
	}
}

func TestBuildSerializesEnvelope(t *testing.T) {
	in := baseInput(gatewaytypes.Provider{Alias: "pub", Auth: gatewaytypes.AuthUnauthenticated, PublicURL: "https://rpc.example"})

	params, err := Build(in)
	require.NoError(t, err)

	var req struct {
		JSONRPC string        `json:"jsonrpc"`
		Method  string        `json:"method"`
		Params  []interface{} `json:"params"`
		ID      uint64        `json:"id"`
	}
	require.NoError(t, json.Unmarshal(params.Body, &req))
	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, "eth_blockNumber", req.Method)
	assert.NotNil(t, req.Params)
	assert.Equal(t, uint64(7), req.ID)

	assert.Equal(t, gatewaytypes.MethodPOST, params.Method)
	assert.Equal(t, "https://rpc.example", params.URL)
	assert.Equal(t, uint64(2048), params.MaxResponseBytes)
}

func TestContentTypeInsertedWhenAbsent(t *testing.T) {
	in := baseInput(gatewaytypes.Provider{Alias: "pub", PublicURL: "https://rpc.example"})

	params, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "application/json", params.Headers["Content-Type"])
}

func TestContentTypeNotDuplicatedCaseInsensitive(t *testing.T) {
	in := baseInput(gatewaytypes.Provider{Alias: "pub", PublicURL: "https://rpc.example"})
	in.Headers = map[string]string{"content-type": "application/json-rpc"}

	params, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "application/json-rpc", params.Headers["content-type"])
	_, clobbered := params.Headers["Content-Type"]
	assert.False(t, clobbered)
}

func TestURLParameterSubstitution(t *testing.T) {
	in := baseInput(gatewaytypes.Provider{
		Alias:       "alchemy",
		Auth:        gatewaytypes.AuthURLParameter,
		URLTemplate: "https://eth-mainnet.g.alchemy.com/v2/{API_KEY}",
	})
	in.APIKey = strPtr("sekrit")

	params, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "https://eth-mainnet.g.alchemy.com/v2/sekrit", params.URL)
}

func TestBearerTokenHeader(t *testing.T) {
	in := baseInput(gatewaytypes.Provider{
		Alias:       "blast",
		Auth:        gatewaytypes.AuthBearerToken,
		URLTemplate: "https://eth.blastapi.io",
	})
	in.APIKey = strPtr("sekrit")

	params, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "https://eth.blastapi.io", params.URL)
	assert.Equal(t, "Bearer sekrit", params.Headers["Authorization"])
}

func TestMissingKeyFallsBackToPublicURL(t *testing.T) {
	in := baseInput(gatewaytypes.Provider{
		Alias:       "ankr",
		Auth:        gatewaytypes.AuthURLParameter,
		URLTemplate: "https://rpc.ankr.com/eth/{API_KEY}",
		PublicURL:   "https://rpc.ankr.com/eth",
	})

	params, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.ankr.com/eth", params.URL)
	assert.Empty(t, params.Headers["Authorization"])
}

func TestMissingKeyWithoutFallbackFails(t *testing.T) {
	in := baseInput(gatewaytypes.Provider{
		Alias:       "alchemy",
		Auth:        gatewaytypes.AuthURLParameter,
		URLTemplate: "https://eth-mainnet.g.alchemy.com/v2/{API_KEY}",
	})

	_, err := Build(in)
	var noKey *gatewaytypes.NoApiKeyError
	require.ErrorAs(t, err, &noKey)
	assert.Equal(t, "alchemy", noKey.Provider)
}

func TestInvalidHeaderIsRejected(t *testing.T) {
	in := baseInput(gatewaytypes.Provider{Alias: "pub", PublicURL: "https://rpc.example"})
	in.Headers = map[string]string{"X-Bad\nName": "v"}

	_, err := Build(in)
	var invalid *gatewaytypes.InvalidHttpHeaderError
	require.ErrorAs(t, err, &invalid)
}

func TestOverrideRewritesURLAndStripsHeaders(t *testing.T) {
	ov, err := override.New(`^https://rpc\.example`, "http://localhost:8545")
	require.NoError(t, err)

	in := baseInput(gatewaytypes.Provider{
		Alias:       "bearer",
		Auth:        gatewaytypes.AuthBearerToken,
		URLTemplate: "https://rpc.example",
	})
	in.APIKey = strPtr("sekrit")
	in.Override = ov

	params, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", params.URL)
	// The bearer header was bound to the original host; it must not leak.
	assert.Empty(t, params.Headers)
}
