package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsZeroAddress reports whether addr is the all-zero address.
func IsZeroAddress(addr [20]byte) bool { return addr == [20]byte{} }

// HexAddress renders addr in EIP-55 checksummed hex.
func HexAddress(addr [20]byte) string { return common.Address(addr).Hex() }

// ParseAddress decodes a 0x-prefixed 20 byte hex address.
func ParseAddress(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}
