// Package abi implements the minimal ABI encode/decode the gateway needs
// to build an eth_call against an ERC-20 contract and interpret its
// result: function selectors, address padding, and uint256 decoding.
// Nothing here knows about providers or consensus.
package abi

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Well-known mainnet token addresses and decimals, used by the gateway's
// balance convenience helper and the gwctl balance command.
const (
	USDCAddress  = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	USDTAddress  = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	USDCDecimals = 6
	USDTDecimals = 6
)

// FunctionSelector computes the 4-byte function selector from a Solidity
// signature, e.g. "balanceOf(address)" -> 0x70a08231.
func FunctionSelector(signature string) []byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(signature))
	return hasher.Sum(nil)[:4]
}

// EncodeAddress left-pads an Ethereum address to the 32-byte word ABI
// encoding requires for an address-typed argument.
func EncodeAddress(addr string) ([]byte, error) {
	addr = strings.TrimPrefix(strings.ToLower(addr), "0x")
	if len(addr) != 40 {
		return nil, fmt.Errorf("abi: invalid address length: expected 40 hex chars, got %d", len(addr))
	}
	addrBytes, err := hex.DecodeString(addr)
	if err != nil {
		return nil, fmt.Errorf("abi: invalid address hex: %w", err)
	}
	padded := make([]byte, 32)
	copy(padded[12:], addrBytes)
	return padded, nil
}

// EncodeBalanceOfCalldata builds the calldata for balanceOf(address).
func EncodeBalanceOfCalldata(address string) (string, error) {
	selector := FunctionSelector("balanceOf(address)")
	addrEncoded, err := EncodeAddress(address)
	if err != nil {
		return "", fmt.Errorf("abi: encoding address: %w", err)
	}
	calldata := append(selector, addrEncoded...)
	return "0x" + hex.EncodeToString(calldata), nil
}

// DecodeUint256 parses an eth_call result hex string into a big.Int.
func DecodeUint256(hexResult string) (*big.Int, error) {
	hexResult = strings.TrimPrefix(hexResult, "0x")
	hexResult = strings.TrimLeft(hexResult, "0")
	if hexResult == "" {
		return big.NewInt(0), nil
	}
	result := new(big.Int)
	if _, ok := result.SetString(hexResult, 16); !ok {
		return nil, fmt.Errorf("abi: failed to parse hex result %q", hexResult)
	}
	return result, nil
}

// FormatTokenAmount renders a raw token amount with its decimal point
// inserted and thousand separators on the whole part.
func FormatTokenAmount(raw *big.Int, decimals int, symbol string) string {
	if raw == nil || raw.Sign() == 0 {
		return fmt.Sprintf("0.%s %s", strings.Repeat("0", decimals), symbol)
	}

	rawStr := raw.String()
	for len(rawStr) <= decimals {
		rawStr = "0" + rawStr
	}

	insertPos := len(rawStr) - decimals
	wholePart := addThousandSeparators(rawStr[:insertPos])
	decimalPart := rawStr[insertPos:]

	return fmt.Sprintf("%s.%s %s", wholePart, decimalPart, symbol)
}

func addThousandSeparators(s string) string {
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// ValidateAddress checks that addr is 40 hex characters, with or without
// the "0x" prefix.
func ValidateAddress(addr string) error {
	addr = strings.TrimPrefix(addr, "0x")
	if len(addr) != 40 {
		return fmt.Errorf("abi: invalid address length: expected 40 hex chars (with or without 0x prefix)")
	}
	if _, err := hex.DecodeString(addr); err != nil {
		return fmt.Errorf("abi: invalid address: contains non-hex characters")
	}
	return nil
}
