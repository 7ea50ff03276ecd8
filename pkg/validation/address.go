package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressPrefix marks custodial wallet display addresses.
const AddressPrefix = "cw"

// addressHexLen is the number of hex characters after the prefix (20 bytes).
const addressHexLen = 40

// DeriveAddress computes the display address for a user's custodial wallet.
// The address is presentational only; it is not an account on any chain.
func DeriveAddress(userID string) string {
	sum := sha256.Sum256([]byte("custodia:wallet:" + userID))
	return AddressPrefix + hex.EncodeToString(sum[:20])
}

// ValidateAddress validates a custodial wallet display address format.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if !strings.HasPrefix(addr, AddressPrefix) {
		return fmt.Errorf("invalid address prefix: expected %q", AddressPrefix)
	}

	body := strings.TrimPrefix(addr, AddressPrefix)
	if len(body) != addressHexLen {
		return fmt.Errorf("invalid address length: expected %d hex characters after prefix, got %d", addressHexLen, len(body))
	}

	if _, err := hex.DecodeString(body); err != nil {
		return fmt.Errorf("invalid hex address: %w", err)
	}

	return nil
}

// NormalizeAddress converts an address to its canonical lowercase form.
func NormalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

// ValidateAndNormalizeAddress validates an address and returns its normalized form.
func ValidateAndNormalizeAddress(addr string) (string, error) {
	normalized := NormalizeAddress(addr)
	if err := ValidateAddress(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
