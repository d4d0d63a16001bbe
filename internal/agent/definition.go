package agent

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KafClaw/tribunal/internal/state"
)

// ErrInvalidDefinition is returned for agent definitions that cannot be built.
var ErrInvalidDefinition = errors.New("invalid agent definition")

// Definition describes one reasoning leaf. Instruction is a text/template
// rendered over the state snapshot before every run.
type Definition struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Instruction string   `yaml:"instruction"`
	Prompt      string   `yaml:"prompt,omitempty"`
	Tools       []string `yaml:"tools,omitempty"`
	Partition   []string `yaml:"partition,omitempty"`
	Model       string   `yaml:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// Lists resolves Partition into list IDs.
func (d Definition) Lists() ([]state.ListID, error) {
	out := make([]state.ListID, 0, len(d.Partition))
	for _, p := range d.Partition {
		id, ok := state.ParseListID(p)
		if !ok {
			return nil, fmt.Errorf("%w: %s: unknown partition %q", ErrInvalidDefinition, d.Name, p)
		}
		out = append(out, id)
	}
	return out, nil
}

// Validate checks the fields every leaf needs.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDefinition)
	}
	if strings.TrimSpace(d.Instruction) == "" {
		return fmt.Errorf("%w: %s: missing instruction", ErrInvalidDefinition, d.Name)
	}
	if d.Temperature != nil && (*d.Temperature < 0 || *d.Temperature > 2) {
		return fmt.Errorf("%w: %s: temperature %.2f out of range", ErrInvalidDefinition, d.Name, *d.Temperature)
	}
	_, err := d.Lists()
	return err
}

// Definitions is an ordered set of agent definitions keyed by name.
type Definitions []Definition

// ParseDefinitions decodes a YAML document holding an "agents" list.
func ParseDefinitions(data []byte) (Definitions, error) {
	var doc struct {
		Agents Definitions `yaml:"agents"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse agent definitions: %w", err)
	}
	seen := make(map[string]bool, len(doc.Agents))
	for _, d := range doc.Agents {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("%w: duplicate agent %q", ErrInvalidDefinition, d.Name)
		}
		seen[d.Name] = true
	}
	return doc.Agents, nil
}

// Get returns the definition called name.
func (ds Definitions) Get(name string) (Definition, bool) {
	for _, d := range ds {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Merge returns ds with every definition in override replacing the one of
// the same name. New names are appended.
func (ds Definitions) Merge(override Definitions) Definitions {
	out := make(Definitions, len(ds))
	copy(out, ds)
	for _, o := range override {
		replaced := false
		for i := range out {
			if out[i].Name == o.Name {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}
