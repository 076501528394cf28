package canonical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
)

func TestGenericCanonicalizationOrdersKeys(t *testing.T) {
	a := json.RawMessage(`{"b": 2, "a": 1}`)
	b := json.RawMessage(`{"a":1,"b":2}`)

	ca := Canonicalize(gatewaytypes.TransformBlock, a)
	cb := Canonicalize(gatewaytypes.TransformBlock, b)
	assert.Equal(t, string(cb), string(ca))
}

func TestCanonicalizationIsIdempotent(t *testing.T) {
	bodies := []json.RawMessage{
		json.RawMessage(`{"z":1,"a":{"y":2,"x":3}}`),
		json.RawMessage(`[{"b":1},{"a":2}]`),
		json.RawMessage(`"0x1"`),
		json.RawMessage(`"0xdeadbeef"`),
		json.RawMessage(`{"message":"nonce too low"}`),
	}
	tags := []gatewaytypes.TransformTag{
		gatewaytypes.TransformBlock,
		gatewaytypes.TransformLogEntries,
		gatewaytypes.TransformGetTransactionCount,
		gatewaytypes.TransformSendRawTransaction,
		gatewaytypes.TransformSendRawTransaction,
	}

	for i, body := range bodies {
		once := Canonicalize(tags[i], body)
		twice := Canonicalize(tags[i], once)
		assert.Equal(t, string(once), string(twice))
	}
}

func TestParseFailureLeavesBodyUnchanged(t *testing.T) {
	bad := json.RawMessage(`{"unterminated`)
	assert.Equal(t, string(bad), string(Canonicalize(gatewaytypes.TransformBlock, bad)))
	assert.Equal(t, string(bad), string(Canonicalize(gatewaytypes.TransformLogEntries, bad)))
}

func TestRawTransformIsIdentity(t *testing.T) {
	body := json.RawMessage(`{"b": 2, "a": 1}`)
	assert.Equal(t, string(body), string(Canonicalize(gatewaytypes.TransformRaw, body)))
}

func TestLogEntriesSortIsOrderInsensitive(t *testing.T) {
	// The same two logs in both orders must canonicalize identically.
	ab := json.RawMessage(`[{"logIndex":"0x1"},{"logIndex":"0x2"}]`)
	ba := json.RawMessage(`[{"logIndex":"0x2"},{"logIndex":"0x1"}]`)

	assert.Equal(t,
		string(Canonicalize(gatewaytypes.TransformLogEntries, ab)),
		string(Canonicalize(gatewaytypes.TransformLogEntries, ba)),
	)
}

func TestSendRawTransactionHashIsOk(t *testing.T) {
	body := json.RawMessage(`"0xdeadbeef"`)
	out := Canonicalize(gatewaytypes.TransformSendRawTransaction, body)

	var result struct {
		Outcome string `json:"outcome"`
		Hash    string `json:"hash"`
	}
	assert.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, "Ok", result.Outcome)
	assert.Equal(t, "0xdeadbeef", result.Hash)
}

func TestSendRawTransactionErrorNormalization(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"nonce too low", "NonceTooLow"},
		{"Nonce too HIGH for account", "NonceTooHigh"},
		{"insufficient funds for gas * price + value", "InsufficientFunds"},
		{"already known", "AlreadyKnown"},
		{"some provider-specific failure", "Other"},
	}

	for _, tt := range tests {
		body, _ := json.Marshal(map[string]string{"message": tt.message})
		out := Canonicalize(gatewaytypes.TransformSendRawTransaction, body)

		var result struct {
			Outcome string `json:"outcome"`
		}
		assert.NoError(t, json.Unmarshal(out, &result))
		assert.Equal(t, tt.want, result.Outcome, "message %q", tt.message)
	}
}
