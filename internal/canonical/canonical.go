// Package canonical is the deterministic post-processing transform
// applied to each raw provider response so that semantically-equal
// payloads become byte-equal. Providers differ in key order, whitespace,
// and (for eth_getLogs) array ordering; without this transform the
// equality reducer would report false disagreements.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"regexp"
	"sort"

	"github.com/dmagro/eth-rpc-gateway/internal/gatewaytypes"
)

// Canonicalize applies the transform selected by tag to a raw JSON-RPC
// result body (the bytes inside "result", not the whole envelope). It is
// idempotent and total: a parse failure returns the body unchanged.
func Canonicalize(tag gatewaytypes.TransformTag, body json.RawMessage) json.RawMessage {
	switch tag {
	case gatewaytypes.TransformLogEntries:
		return canonicalizeLogEntries(body)
	case gatewaytypes.TransformSendRawTransaction:
		return canonicalizeSendRawTransaction(body)
	case gatewaytypes.TransformRaw:
		return body
	default:
		return canonicalizeGeneric(body)
	}
}

// canonicalizeGeneric re-serializes arbitrary JSON with a deterministic
// key order. encoding/json already sorts map keys when marshaling a Go
// map, so round-tripping through a generic value is sufficient — no
// hand-rolled key sort is needed.
func canonicalizeGeneric(body json.RawMessage) json.RawMessage {
	var generic interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return body
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return body
	}
	return out
}

// canonicalizeLogEntries canonicalizes every element of an array result,
// then sorts the elements by the SHA-256 of their own canonical bytes,
// ascending. Providers return logs in different orders for the same range.
func canonicalizeLogEntries(body json.RawMessage) json.RawMessage {
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return body
	}

	canon := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		canon[i] = canonicalizeGeneric(e)
	}

	sort.Slice(canon, func(i, j int) bool {
		hi := sha256.Sum256(canon[i])
		hj := sha256.Sum256(canon[j])
		return bytes.Compare(hi[:], hj[:]) < 0
	})

	out, err := json.Marshal(canon)
	if err != nil {
		return body
	}
	return out
}

// sendRawTxPattern maps a regexp matched against a provider's raw error
// string to one of the closed set of submission outcomes.
type sendRawTxPattern struct {
	match   *regexp.Regexp
	outcome string
}

var sendRawTxPatterns = []sendRawTxPattern{
	{regexp.MustCompile(`(?i)nonce too low`), "NonceTooLow"},
	{regexp.MustCompile(`(?i)nonce too high`), "NonceTooHigh"},
	{regexp.MustCompile(`(?i)insufficient funds`), "InsufficientFunds"},
	{regexp.MustCompile(`(?i)already known`), "AlreadyKnown"},
}

// sendRawTxResult is the canonical shape a send_raw_transaction result is
// normalized into: either a transaction hash or one of the named outcomes.
type sendRawTxResult struct {
	Outcome string `json:"outcome"`
	Hash    string `json:"hash,omitempty"`
	Message string `json:"message,omitempty"`
}

// ClassifySendRawTxError maps a provider's submission error message onto
// the closed outcome set, "Other" when nothing in the pattern table
// matches.
func ClassifySendRawTxError(message string) string {
	for _, p := range sendRawTxPatterns {
		if p.match.MatchString(message) {
			return p.outcome
		}
	}
	return "Other"
}

func canonicalizeSendRawTransaction(body json.RawMessage) json.RawMessage {
	// Already canonical (carries an "outcome" field): re-serialize only,
	// so applying the transform twice equals applying it once.
	var already sendRawTxResult
	if err := json.Unmarshal(body, &already); err == nil && already.Outcome != "" {
		out, err := json.Marshal(already)
		if err != nil {
			return body
		}
		return out
	}

	var hash string
	if err := json.Unmarshal(body, &hash); err == nil && hash != "" {
		out, err := json.Marshal(sendRawTxResult{Outcome: "Ok", Hash: hash})
		if err != nil {
			return body
		}
		return out
	}

	var errObj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errObj); err != nil {
		return body
	}

	for _, p := range sendRawTxPatterns {
		if p.match.MatchString(errObj.Message) {
			out, _ := json.Marshal(sendRawTxResult{Outcome: p.outcome})
			return out
		}
	}
	out, _ := json.Marshal(sendRawTxResult{Outcome: "Other", Message: errObj.Message})
	return out
}
