package court

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KafClaw/tribunal/internal/agent"
	"github.com/KafClaw/tribunal/internal/balance"
)

// Agent names the court wires into its pipeline.
const (
	AgentAdmirer = "admirer"
	AgentCritic  = "critic"
	AgentJudge   = "judge"
	AgentWriter  = "verdict_writer"
)

//go:embed agents.yaml
var builtinAgents []byte

// Catalog holds the agent definitions and the judge's refinement policy.
type Catalog struct {
	Agents agent.Definitions
	Policy balance.Policy
}

// ParseCatalog decodes an agents document. A missing policy block yields
// balance.DefaultPolicy.
func ParseCatalog(data []byte) (Catalog, error) {
	defs, err := agent.ParseDefinitions(data)
	if err != nil {
		return Catalog{}, err
	}
	policy, err := parsePolicy(data)
	if err != nil {
		return Catalog{}, err
	}
	c := Catalog{Agents: defs, Policy: balance.DefaultPolicy()}
	if policy != nil {
		c.Policy = *policy
	}
	return c, nil
}

func parsePolicy(data []byte) (*balance.Policy, error) {
	var doc struct {
		Policy *balance.Policy `yaml:"policy"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	return doc.Policy, nil
}

// DefaultCatalog returns the built-in agents.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(builtinAgents)
}

// LoadCatalog returns the built-in catalog overlaid with the file at path.
// Definitions in the file replace built-ins of the same name; a policy
// block replaces the built-in policy.
func LoadCatalog(path string) (Catalog, error) {
	base, err := DefaultCatalog()
	if err != nil {
		return Catalog{}, fmt.Errorf("builtin agents: %w", err)
	}
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read agents file: %w", err)
	}
	override, err := agent.ParseDefinitions(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	policy, err := parsePolicy(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	base.Agents = base.Agents.Merge(override)
	if policy != nil {
		base.Policy = *policy
	}
	return base, nil
}

// Require checks that every named agent is defined.
func (c Catalog) Require(names ...string) error {
	for _, n := range names {
		if _, ok := c.Agents.Get(n); !ok {
			return fmt.Errorf("%w: %s", ErrMissingAgent, n)
		}
	}
	return nil
}
