package validation

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	addressHexLen = 40 // 20 bytes
	hashHexLen    = 64 // 32 bytes
)

// ValidateAddress validates an EVM address (20 bytes, hex, optional 0x prefix)
func ValidateAddress(addr string) error {
	return validateHex(addr, addressHexLen, "address")
}

// ValidateTxHash validates a transaction hash (32 bytes, hex, optional 0x prefix)
func ValidateTxHash(hash string) error {
	return validateHex(hash, hashHexLen, "transaction hash")
}

func validateHex(value string, wantLen int, what string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}

	normalized := trimHexPrefix(value)
	if len(normalized) != wantLen {
		return fmt.Errorf("invalid %s length: expected %d characters (without 0x), got %d", what, wantLen, len(normalized))
	}

	if _, err := hex.DecodeString(normalized); err != nil {
		return fmt.Errorf("invalid hex %s: %w", what, err)
	}

	return nil
}

// NormalizeHex converts an address or hash to lowercase with a single 0x prefix.
// Deposits are stored in this form, so lookups must normalize first.
func NormalizeHex(value string) string {
	return "0x" + strings.ToLower(trimHexPrefix(value))
}

// ValidateAndNormalizeAddress validates an address and returns its normalized form
func ValidateAndNormalizeAddress(addr string) (string, error) {
	if err := ValidateAddress(addr); err != nil {
		return "", err
	}
	return NormalizeHex(addr), nil
}

func trimHexPrefix(value string) string {
	value = strings.TrimPrefix(value, "0x")
	return strings.TrimPrefix(value, "0X")
}
