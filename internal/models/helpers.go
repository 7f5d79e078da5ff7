package models

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseID parses a 0x-prefixed 32-byte hex identifier.
func ParseID(s string) (common.Hash, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(trimmed) != common.HashLength*2 {
		return common.Hash{}, fmt.Errorf("%w: id must be 32 bytes of hex, got %q", ErrInvalidInput, s)
	}
	if !isHex(trimmed) {
		return common.Hash{}, fmt.Errorf("%w: id contains non-hex characters", ErrInvalidInput)
	}
	return common.HexToHash(trimmed), nil
}

// ParseAddress parses a 0x-prefixed 20-byte hex address and rejects the zero
// address, which is never a valid party.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not a valid address", ErrInvalidInput, s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidInput)
	}
	return addr, nil
}

// ParseAmount parses a non-negative base-10 token amount in base units.
func ParseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a decimal amount", ErrInvalidInput, s)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return amount, nil
}

// ParseSignature parses a 0x-prefixed 65-byte compact ECDSA signature.
func ParseSignature(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(trimmed) != 130 || !isHex(trimmed) {
		return nil, fmt.Errorf("%w: signature must be 65 bytes of hex", ErrInvalidInput)
	}
	return common.Hex2Bytes(trimmed), nil
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
