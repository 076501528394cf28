// Package ethtypes holds the Ethereum wire type definitions the gateway
// operations serialize into JSON-RPC params and parse results back into.
// Fields stay in their raw hex-string wire format; helpers convert to
// native types where an operation needs them.
package ethtypes

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ParseHexUint64 parses a "0x..."-prefixed hex string into a uint64, the
// conversion every block-number, timestamp, and gas field needs.
func ParseHexUint64(hex string) (uint64, error) {
	hex = strings.TrimPrefix(hex, "0x")
	if hex == "" {
		return 0, fmt.Errorf("ethtypes: empty hex value")
	}
	return strconv.ParseUint(hex, 16, 64)
}

// Uint64ToHex renders n as a "0x"-prefixed lowercase hex string, the format
// every JSON-RPC numeric parameter and result field uses on the wire.
func Uint64ToHex(n uint64) string {
	return fmt.Sprintf("0x%x", n)
}

// ParseHexBigInt parses an arbitrary-precision hex value (e.g.
// baseFeePerGas, which can exceed 64 bits). Returns nil on an empty or
// malformed string, since these fields are optional (e.g. pre-EIP-1559
// blocks have no base fee).
func ParseHexBigInt(hex string) *big.Int {
	hex = strings.TrimPrefix(hex, "0x")
	if hex == "" {
		return nil
	}
	n := new(big.Int)
	if _, ok := n.SetString(hex, 16); !ok {
		return nil
	}
	return n
}

// BigIntToHex renders n as a "0x"-prefixed hex string.
func BigIntToHex(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return "0x" + n.Text(16)
}
