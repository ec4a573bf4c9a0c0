package kernel

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// #region key-loading

// KeyFromHex decodes a 64-character hex string into a KernelKey, the format
// the RFSN_KERNEL_KEY environment variable carries (spec.md §5, "the kernel
// signing key is read once at startup and held immutably").
func KeyFromHex(s string) (KernelKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return KernelKey{}, fmt.Errorf("kernel: decode key hex: %w", err)
	}
	if len(raw) != 32 {
		return KernelKey{}, fmt.Errorf("kernel: key must be 32 bytes, got %d", len(raw))
	}
	var k KernelKey
	copy(k[:], raw)
	return k, nil
}

// GenerateKey returns a fresh random KernelKey, for first-run bootstrapping
// when no RFSN_KERNEL_KEY is set.
func GenerateKey() (KernelKey, error) {
	var k KernelKey
	if _, err := rand.Read(k[:]); err != nil {
		return KernelKey{}, fmt.Errorf("kernel: generate key: %w", err)
	}
	return k, nil
}

// #endregion key-loading
