package court

import (
	"context"
	"log/slog"
	"time"

	"github.com/KafClaw/tribunal/internal/balance"
	"github.com/KafClaw/tribunal/internal/orchestrator"
	"github.com/KafClaw/tribunal/internal/state"
)

// Judge is the loop-control node of a review round. It ends the loop once
// the evidence is balanced and otherwise installs refined search suffixes.
type Judge struct {
	policy  balance.Policy
	advisor orchestrator.Node
}

// NewJudge returns a deterministic judge. When advisor is non-nil it is
// asked to pick the refinement first; the policy applies if it sets nothing.
func NewJudge(policy balance.Policy, advisor orchestrator.Node) *Judge {
	return &Judge{policy: policy, advisor: advisor}
}

func (j *Judge) Name() string { return AgentJudge }

func (j *Judge) Run(ctx context.Context, st *state.Store) (orchestrator.Outcome, error) {
	started := time.Now()
	out, detail, err := j.decide(ctx, st)
	orchestrator.Record(ctx, orchestrator.Span{
		Node:     AgentJudge,
		Kind:     orchestrator.KindControl,
		Started:  started,
		Duration: time.Since(started),
		Outcome:  out,
		Err:      err,
		Detail:   detail,
	})
	return out, err
}

func (j *Judge) decide(ctx context.Context, st *state.Store) (orchestrator.Outcome, string, error) {
	snap := st.Snapshot()
	verdict := balance.Evaluate(snap)
	if verdict.Balanced {
		slog.Info("Evidence balanced", "iteration", snap.Iteration, "pos", verdict.PositiveCount, "neg", verdict.NegativeCount)
		return orchestrator.Terminate, verdict.Summary(), nil
	}
	slog.Info("Evidence not balanced", "iteration", snap.Iteration, "reasons", verdict.Reasons)

	if j.advisor != nil {
		if _, err := j.advisor.Run(ctx, st); err != nil {
			return orchestrator.Continue, verdict.Summary(), err
		}
		after := st.Snapshot()
		if after.PositiveSuffix != snap.PositiveSuffix || after.NegativeSuffix != snap.NegativeSuffix {
			return orchestrator.Continue, verdict.Summary(), nil
		}
		slog.Warn("Judge advisor left suffixes unchanged, applying policy")
	}

	pos, neg := j.policy.Refine(snap, verdict)
	st.SetSuffixes(pos, neg)
	slog.Info("Suffix updated", "pos_suffix", pos, "neg_suffix", neg)
	return orchestrator.Continue, verdict.Summary(), nil
}
