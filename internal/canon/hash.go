package canon

import "crypto/sha256"

// ZeroHash is the 32 zero bytes used as prev_hash for the first ledger entry.
var ZeroHash [32]byte

// HashStruct canonicalizes v and returns its SHA-256 digest. Used for
// Decision.input_hash (hash of StateSnapshot+Proposal) and anywhere else a
// content hash of a Go value is needed.
func HashStruct(v interface{}) ([32]byte, error) {
	data, err := MarshalStruct(v)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// HashBytes is a thin wrapper kept for call sites that already hold a
// canonical byte slice (e.g. the ledger's entry_hash, which concatenates
// binary fields with a canonical JSON payload rather than hashing a single
// Go value).
func HashBytes(b []byte) [32]byte {
	return sha256.Sum256(b)
}
