// Package balance decides when the review loop has gathered balanced
// evidence and, when it has not, how the search suffixes should be refined.
package balance

import (
	"fmt"
	"strings"

	"github.com/KafClaw/tribunal/internal/state"
)

// Verdict is the result of evaluating a snapshot.
type Verdict struct {
	Balanced      bool
	PositiveCount int
	NegativeCount int
	Tags          state.TagReport
	Reasons       []string
}

// Balanced reports whether snap satisfies the balance predicate:
//
//	len(pos) >= 3 AND len(neg) >= 3 AND |len(pos)-len(neg)| <= 1
//	AND len(neg) == 3 AND every required tag prefixes exactly one neg entry
func Balanced(snap state.Snapshot) bool {
	return Evaluate(snap).Balanced
}

// Evaluate applies the balance predicate and explains every failed clause.
func Evaluate(snap state.Snapshot) Verdict {
	pos, neg := len(snap.Positive), len(snap.Negative)
	v := Verdict{
		PositiveCount: pos,
		NegativeCount: neg,
		Tags:          snap.Tags(),
	}

	if pos < state.MaxFacts {
		v.Reasons = append(v.Reasons, fmt.Sprintf("positive has %d of %d facts", pos, state.MaxFacts))
	}
	if neg < state.MaxFacts {
		v.Reasons = append(v.Reasons, fmt.Sprintf("negative has %d of %d facts", neg, state.MaxFacts))
	}
	if diff := pos - neg; diff > 1 || diff < -1 {
		v.Reasons = append(v.Reasons, fmt.Sprintf("counts differ by %d", abs(diff)))
	}
	if neg > state.MaxFacts {
		v.Reasons = append(v.Reasons, fmt.Sprintf("negative has %d facts, want exactly %d", neg, state.MaxFacts))
	}
	for _, tag := range snap.RequiredTags {
		switch n := v.Tags.CountByTag[tag]; {
		case n == 0:
			v.Reasons = append(v.Reasons, fmt.Sprintf("tag %s missing", tag))
		case n > 1:
			v.Reasons = append(v.Reasons, fmt.Sprintf("tag %s appears %d times", tag, n))
		}
	}

	v.Balanced = pos >= state.MaxFacts &&
		neg >= state.MaxFacts &&
		abs(pos-neg) <= 1 &&
		neg == state.MaxFacts &&
		v.Tags.OK
	return v
}

// MissingTags lists the required tags that do not appear exactly once.
func (v Verdict) MissingTags(required []state.Tag) []state.Tag {
	var out []state.Tag
	for _, tag := range required {
		if v.Tags.CountByTag[tag] != 1 {
			out = append(out, tag)
		}
	}
	return out
}

// Summary renders the verdict as one log-friendly line.
func (v Verdict) Summary() string {
	if v.Balanced {
		return fmt.Sprintf("balanced (pos=%d neg=%d)", v.PositiveCount, v.NegativeCount)
	}
	return fmt.Sprintf("not balanced (pos=%d neg=%d): %s", v.PositiveCount, v.NegativeCount, strings.Join(v.Reasons, "; "))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
