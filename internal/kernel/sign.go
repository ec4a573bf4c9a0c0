package kernel

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/danielpatrickdp/rfsnkernel/internal/canon"
)

// #region input-hash

// hashableInput is the canonical shape hashed into Decision.input_hash: the
// StateSnapshot and Proposal under the fixed keys "state" and "proposal".
// Both types are embedded whole, so every field of either (including
// Proposal.Meta) is part of the hash.
type hashableInput struct {
	State    StateSnapshot `json:"state"`
	Proposal Proposal      `json:"proposal"`
}

// InputHash computes the canonical hash of (StateSnapshot, Proposal) used as
// Decision.input_hash.
func InputHash(state StateSnapshot, proposal Proposal) (Hash32, error) {
	sum, err := canon.HashStruct(hashableInput{State: state, Proposal: proposal})
	if err != nil {
		return Hash32{}, err
	}
	return Hash32(sum), nil
}

// #endregion input-hash

// #region signature

// signableDecision is the subset of Decision fields the signature covers,
// per spec: (input_hash, allowed, reason, approved_actions).
type signableDecision struct {
	InputHash       Hash32   `json:"input_hash"`
	Allowed         bool     `json:"allowed"`
	Reason          string   `json:"reason"`
	ApprovedActions []Action `json:"approved_actions"`
}

// KernelKey is the process-scoped HMAC key used to sign and verify
// Decisions. Producer and consumer are the same process (spec §9,
// "Signatures"), so a symmetric key read once at startup is sufficient; no
// public-key scheme is needed.
type KernelKey [32]byte

// Sign computes the HMAC-SHA256 signature over a Decision's stable fields.
func Sign(key KernelKey, inputHash Hash32, allowed bool, reason string, approved []Action) (Hash32, error) {
	payload, err := canon.MarshalStruct(signableDecision{
		InputHash:       inputHash,
		Allowed:         allowed,
		Reason:          reason,
		ApprovedActions: approved,
	})
	if err != nil {
		return Hash32{}, err
	}
	mac := hmac.New(sha256.New, key[:])
	mac.Write(payload)
	var sig Hash32
	copy(sig[:], mac.Sum(nil))
	return sig, nil
}

// Verify reports whether d.Signature is a valid HMAC over d's stable fields
// under key. Uses constant-time comparison.
func Verify(key KernelKey, d Decision) (bool, error) {
	want, err := Sign(key, d.InputHash, d.Allowed, d.Reason, d.ApprovedActions)
	if err != nil {
		return false, err
	}
	return hmac.Equal(want[:], d.Signature[:]), nil
}

// #endregion signature
