package chainutils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidHexChainID = errors.New("invalid hex chain id")

// GetHexChainID formats a decimal chain id the way EVM providers expect it.
func GetHexChainID(chainID uint64) string {
	return fmt.Sprintf("0x%s", strconv.FormatUint(chainID, 16))
}

// ParseHexChainID parses a "0x"-prefixed chain id from switch/add-chain
// params. Plain decimal strings are accepted too, some dApps send those.
func ParseHexChainID(value string) (uint64, error) {
	if value == "" {
		return 0, ErrInvalidHexChainID
	}

	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		chainID, err := strconv.ParseUint(value[2:], 16, 64)
		if err != nil {
			return 0, ErrInvalidHexChainID
		}
		return chainID, nil
	}

	chainID, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, ErrInvalidHexChainID
	}
	return chainID, nil
}
