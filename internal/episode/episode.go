// Package episode wires the Gate, Controller, Ledger, and Bandit into one
// episode: select an arm, obtain a proposal, gate it, execute it if
// approved, record every step to the ledger, and feed the outcome back to
// the bandit. It is the supervisor spec.md §5 and §7 describe ("the
// episode supervisor"), not itself part of the trusted computing base.
package episode

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/rfsnkernel/internal/bandit"
	"github.com/danielpatrickdp/rfsnkernel/internal/controller"
	"github.com/danielpatrickdp/rfsnkernel/internal/gate"
	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
	"github.com/danielpatrickdp/rfsnkernel/internal/klog"
	"github.com/danielpatrickdp/rfsnkernel/internal/ledger"
	"github.com/danielpatrickdp/rfsnkernel/internal/proposer"
)

// #region supervisor

// Supervisor owns one workspace's Gate/Controller/Ledger/Bandit and runs
// episodes against it sequentially (spec.md §5, "strictly sequential
// within an episode").
type Supervisor struct {
	Gate       *gate.Gate
	Controller *controller.Controller
	Ledger     *ledger.Ledger
	Bandit     *bandit.Bandit
	Proposer   proposer.Proposer
	Log        *klog.Logger

	KernelVersion  string
	RulesetVersion string
}

// Result summarizes one episode's outcome for the caller.
type Result struct {
	EpisodeID string
	Status    string // "completed" | "denied"; an aborted episode is reported through Run's error instead
	Allowed   bool
	Reason    string
	Results   []kernel.ExecResult
}

// #endregion supervisor

// #region run

// Run executes exactly one episode against workspaceRoot: select an arm,
// propose, gate, execute, record, and update the bandit from the outcome.
func (s *Supervisor) Run(ctx context.Context, workspaceRoot string, seed int64) (Result, error) {
	episodeID := uuid.NewString()
	now := time.Now()

	state := kernel.StateSnapshot{WorkspaceRoot: workspaceRoot}

	if _, err := s.Ledger.Append(kernel.EventEpisodeBegin, kernel.EpisodeBeginPayload{
		EpisodeID: episodeID, State: state,
		KernelVersion: s.KernelVersion, RulesetVersion: s.RulesetVersion,
	}, now.UnixMicro()); err != nil {
		return Result{}, err
	}

	armID, err := s.Bandit.Select(seed)
	if err != nil {
		return Result{}, err
	}

	proposal := s.Proposer.Propose(state, armID)

	if _, err := s.Ledger.Append(kernel.EventProposalSeen, kernel.ProposalSeenPayload{
		EpisodeID: episodeID, Proposal: proposal,
	}, time.Now().UnixMicro()); err != nil {
		return Result{}, err
	}

	decision := s.Gate.Evaluate(state, proposal)
	s.Log.LogGateDecision(decision.Allowed, decision.Reason, workspaceRoot)

	if _, err := s.Ledger.Append(kernel.EventGateDecision, kernel.GateDecisionPayload{
		EpisodeID: episodeID, InputHash: decision.InputHash.String(),
		Allowed: decision.Allowed, Reason: decision.Reason,
		ApprovedActions: decision.ApprovedActions, Signature: decision.Signature.String(),
	}, time.Now().UnixMicro()); err != nil {
		return Result{}, err
	}

	if !decision.Allowed {
		if err := s.endEpisode(episodeID, "denied"); err != nil {
			return Result{}, err
		}
		if err := s.Bandit.Update(armID, 0, episodeID, now); err != nil {
			return Result{}, err
		}
		return Result{EpisodeID: episodeID, Status: "denied", Allowed: false, Reason: decision.Reason}, nil
	}

	results, err := s.Controller.Execute(ctx, state, decision)
	if err != nil {
		s.Log.Error("controller execute failed", klog.F("episode_id", episodeID), klog.F("err", err.Error()))
		if ce, ok := err.(*controller.Error); ok && ce.Kind == kernel.ErrorSignatureInvalid {
			s.Log.LogSecurityEvent(string(ce.Kind), "error", klog.F("input_hash", decision.InputHash.String()))
		}
		if endErr := s.endEpisode(episodeID, "aborted"); endErr != nil {
			return Result{}, endErr
		}
		return Result{}, err
	}

	for _, r := range results {
		if _, err := s.Ledger.Append(kernel.EventExecResult, kernel.ExecResultPayload{
			EpisodeID: episodeID, Result: r,
		}, time.Now().UnixMicro()); err != nil {
			return Result{}, err
		}
		s.Log.LogActionExecution(string(r.Kind), r.OK, r.DurationMS)
	}

	if err := s.endEpisode(episodeID, "completed"); err != nil {
		return Result{}, err
	}

	reward := 0
	if allSucceeded(results) {
		reward = 1
	}
	if err := s.Bandit.Update(armID, reward, episodeID, now); err != nil {
		return Result{}, err
	}

	return Result{EpisodeID: episodeID, Status: "completed", Allowed: true, Reason: decision.Reason, Results: results}, nil
}

func (s *Supervisor) endEpisode(episodeID, status string) error {
	_, err := s.Ledger.Append(kernel.EventEpisodeEnd, kernel.EpisodeEndPayload{
		EpisodeID: episodeID, Status: status,
	}, time.Now().UnixMicro())
	return err
}

func allSucceeded(results []kernel.ExecResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}

// #endregion run
