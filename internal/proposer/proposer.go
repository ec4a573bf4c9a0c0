// Package proposer defines the interface point between the kernel's
// episode runner and the (out-of-scope) proposer/strategy generator:
// spec.md §6 names the contract as "propose(state, bandit_arm_id) →
// Proposal" without specifying an implementation. DeterministicStub exists
// only so the runner is exercisable without any LLM wired in, grounded on
// original_source/rfsn_companion/proposers/deterministic_stub.py.
package proposer

import "github.com/danielpatrickdp/rfsnkernel/internal/kernel"

// Proposer builds a Proposal from the current workspace state and the
// bandit arm selected for this episode. The core never calls an LLM
// itself; real implementations live outside this module entirely.
type Proposer interface {
	Propose(state kernel.StateSnapshot, armID string) kernel.Proposal
}

// DeterministicStub always proposes running the allowlisted test suite,
// matching rfsn_companion/proposers/deterministic_stub.py's
// propose_deterministic: the minimal proposal that keeps the pipeline
// runnable with no external model.
type DeterministicStub struct{}

func (DeterministicStub) Propose(state kernel.StateSnapshot, armID string) kernel.Proposal {
	return kernel.Proposal{
		ProposalID: "deterministic-stub",
		Actions: []kernel.Action{
			{Kind: kernel.ActionRunTests, Argv: []string{"pytest", "-q"}},
		},
		Meta: map[string]string{"proposer": "deterministic_stub", "bandit_arm": armID},
	}
}
