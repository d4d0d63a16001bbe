package balance

import (
	"strings"

	"github.com/KafClaw/tribunal/internal/state"
)

// Policy holds the refined suffixes the Judge installs when a round ends
// unbalanced.
type Policy struct {
	Positive string               `yaml:"positive"`
	Negative string               `yaml:"negative"`
	TagHints map[state.Tag]string `yaml:"tagHints"`
}

// DefaultPolicy returns the built-in refinement values.
func DefaultPolicy() Policy {
	return Policy{
		Positive: " achievements presidency policy economy legislation treaties appointments honors",
		Negative: " criticism controversy investigation",
		TagHints: map[state.Tag]string{
			state.TagLegal: "lawsuit indictment conviction court ruling impeachment",
			state.TagEvent: "attack riot protest incident election dispute",
			state.TagOther: "scandal policy criticism",
		},
	}
}

// Refine computes the suffixes for the next round. A side that already holds
// its full quota keeps its current suffix; the negative side gains the hints
// of every tag that is not covered exactly once.
func (p Policy) Refine(snap state.Snapshot, v Verdict) (positive, negative string) {
	positive, negative = snap.PositiveSuffix, snap.NegativeSuffix

	if v.PositiveCount < state.MaxFacts && p.Positive != "" {
		positive = p.Positive
	}

	missing := v.MissingTags(snap.RequiredTags)
	if v.NegativeCount < state.MaxFacts || len(missing) > 0 {
		parts := []string{strings.TrimSpace(p.Negative)}
		for _, tag := range missing {
			if hint := strings.TrimSpace(p.TagHints[tag]); hint != "" {
				parts = append(parts, hint)
			}
		}
		if joined := strings.TrimSpace(strings.Join(parts, " ")); joined != "" {
			negative = " " + joined
		}
	}
	return positive, negative
}
