package court

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KafClaw/tribunal/internal/balance"
	"github.com/KafClaw/tribunal/internal/orchestrator"
	"github.com/KafClaw/tribunal/internal/state"
)

func fill(st *state.Store, pos int, neg ...string) {
	for i := 0; i < pos; i++ {
		st.AppendFact(state.Positive, "FACT: positive "+string(rune('a'+i)))
	}
	for _, n := range neg {
		st.AppendFact(state.Negative, n)
	}
}

func TestJudgeTerminatesWhenBalanced(t *testing.T) {
	st := state.New()
	st.Reset("t")
	fill(st, 3, balancedCritic...)

	out, err := NewJudge(balance.DefaultPolicy(), nil).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.Terminate, out)
	assert.Equal(t, state.DefaultNegativeSuffix, st.Snapshot().NegativeSuffix)
}

func TestJudgeRefinesWhenUnbalanced(t *testing.T) {
	st := state.New()
	st.Reset("t")
	fill(st, 1, balancedCritic[0])

	policy := balance.DefaultPolicy()
	out, err := NewJudge(policy, nil).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.Continue, out)

	snap := st.Snapshot()
	wantPos, wantNeg := policy.Refine(snap, balance.Evaluate(snap))
	assert.Equal(t, wantPos, snap.PositiveSuffix)
	assert.Equal(t, wantNeg, snap.NegativeSuffix)
	assert.Equal(t, policy.Positive, snap.PositiveSuffix)
}

func TestJudgeLegalLegalOtherIsNotBalanced(t *testing.T) {
	st := state.New()
	st.Reset("t")
	fill(st, 3,
		"[Legal]: one (Ref: A)",
		"[Legal]: two (Ref: B)",
		"[Other]: three (Ref: C)",
	)
	out, err := NewJudge(balance.DefaultPolicy(), nil).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.Continue, out)
}

func TestJudgeAdvisorError(t *testing.T) {
	st := state.New()
	st.Reset("t")
	boom := errors.New("advisor down")
	advisor := orchestrator.Func(AgentJudge, func(context.Context, *state.Store) (orchestrator.Outcome, error) {
		return orchestrator.Continue, boom
	})
	_, err := NewJudge(balance.DefaultPolicy(), advisor).Run(context.Background(), st)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, state.DefaultPositiveSuffix, st.Snapshot().PositiveSuffix)
}

func TestJudgeAdvisorSkippedWhenBalanced(t *testing.T) {
	st := state.New()
	st.Reset("t")
	fill(st, 3, balancedCritic...)
	called := false
	advisor := orchestrator.Func(AgentJudge, func(context.Context, *state.Store) (orchestrator.Outcome, error) {
		called = true
		return orchestrator.Continue, nil
	})
	out, err := NewJudge(balance.DefaultPolicy(), advisor).Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.Terminate, out)
	assert.False(t, called)
}
