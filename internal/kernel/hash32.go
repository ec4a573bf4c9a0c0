package kernel

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash32 is a 32-byte digest (SHA-256 output, or an HMAC-SHA256 tag) that
// always serializes as a lowercase hex string, matching the ledger's wire
// format (`"input_hash":"<hex32>"`). The zero value is 32 zero bytes, the
// convention spec.md uses for the first ledger entry's prev_hash.
type Hash32 [32]byte

// String returns the lowercase hex encoding.
func (h Hash32) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON encodes as a hex string.
func (h Hash32) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into h.
func (h *Hash32) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("hash32: invalid hex: %w", err)
	}
	if len(b) != 32 {
		return fmt.Errorf("hash32: want 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return nil
}

// ParseHash32 decodes a hex string into a Hash32.
func ParseHash32(s string) (Hash32, error) {
	var h Hash32
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("hash32: invalid hex: %w", err)
	}
	if len(b) != 32 {
		return h, fmt.Errorf("hash32: want 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}
