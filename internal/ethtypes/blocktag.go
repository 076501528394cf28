package ethtypes

import (
	"fmt"
	"strconv"
	"strings"
)

// BlockTag is the JSON-RPC "block parameter": one of the named tags or a
// concrete block number.
type BlockTag struct {
	Tag    string // "latest" | "pending" | "earliest" | "" when Number is set
	Number *uint64
}

// Latest, Pending, and Earliest build the named tags accepted wherever a
// BlockTag is.
func Latest() BlockTag   { return BlockTag{Tag: "latest"} }
func Pending() BlockTag  { return BlockTag{Tag: "pending"} }
func Earliest() BlockTag { return BlockTag{Tag: "earliest"} }

// BlockNumber builds a BlockTag for a concrete block height.
func BlockNumber(n uint64) BlockTag { return BlockTag{Number: &n} }

// ParseBlockTag accepts "latest"/"pending"/"earliest", a decimal number,
// or a "0x"-prefixed hex number, the three forms a CLI flag or an HTTP
// parameter shows up in.
func ParseBlockTag(arg string) (BlockTag, error) {
	arg = strings.TrimSpace(strings.ToLower(arg))
	switch arg {
	case "", "latest":
		return Latest(), nil
	case "pending":
		return Pending(), nil
	case "earliest":
		return Earliest(), nil
	}
	if strings.HasPrefix(arg, "0x") {
		n, err := ParseHexUint64(arg)
		if err != nil {
			return BlockTag{}, fmt.Errorf("ethtypes: invalid hex block number %q: %w", arg, err)
		}
		return BlockNumber(n), nil
	}
	n, err := strconv.ParseUint(arg, 10, 64)
	if err == nil {
		return BlockNumber(n), nil
	}
	return BlockTag{}, fmt.Errorf("ethtypes: invalid block tag %q", arg)
}

// Param renders the tag the way it appears as a JSON-RPC parameter: a
// string for named tags, a hex string for concrete numbers.
func (b BlockTag) Param() interface{} {
	if b.Number != nil {
		return Uint64ToHex(*b.Number)
	}
	if b.Tag == "" {
		return "latest"
	}
	return b.Tag
}

func (b BlockTag) String() string {
	if b.Number != nil {
		return fmt.Sprintf("%d", *b.Number)
	}
	if b.Tag == "" {
		return "latest"
	}
	return b.Tag
}

// IsConcrete reports whether the tag names an exact block number, as
// opposed to a named tag like "latest". The get_logs range validation
// only applies when both endpoints are concrete.
func (b BlockTag) IsConcrete() bool { return b.Number != nil }
