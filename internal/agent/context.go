package agent

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/KafClaw/tribunal/internal/provider"
	"github.com/KafClaw/tribunal/internal/state"
)

const defaultPrompt = "Topic: {{.Topic}}"

// ContextBuilder assembles the messages for one leaf run from its
// definition and the current state snapshot.
type ContextBuilder struct {
	name        string
	instruction *template.Template
	prompt      *template.Template
}

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"lines": func(items []string) string { return strings.Join(items, "\n") },
	"count": func(items []string) int { return len(items) },
}

// NewContextBuilder parses the definition's templates.
func NewContextBuilder(def Definition) (*ContextBuilder, error) {
	instr, err := template.New(def.Name).Funcs(templateFuncs).Option("missingkey=zero").Parse(def.Instruction)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: instruction: %v", ErrInvalidDefinition, def.Name, err)
	}
	p := def.Prompt
	if strings.TrimSpace(p) == "" {
		p = defaultPrompt
	}
	prompt, err := template.New(def.Name + "/prompt").Funcs(templateFuncs).Parse(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: prompt: %v", ErrInvalidDefinition, def.Name, err)
	}
	return &ContextBuilder{name: def.Name, instruction: instr, prompt: prompt}, nil
}

// BuildSystemPrompt renders the instruction over snap.
func (b *ContextBuilder) BuildSystemPrompt(snap state.Snapshot) (string, error) {
	return render(b.instruction, snap)
}

// BuildMessages returns the system and user messages that open a run.
func (b *ContextBuilder) BuildMessages(snap state.Snapshot) ([]provider.Message, error) {
	system, err := b.BuildSystemPrompt(snap)
	if err != nil {
		return nil, fmt.Errorf("render %s instruction: %w", b.name, err)
	}
	user, err := render(b.prompt, snap)
	if err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", b.name, err)
	}
	return []provider.Message{
		{Role: provider.RoleSystem, Content: system},
		{Role: provider.RoleUser, Content: user},
	}, nil
}

func render(t *template.Template, snap state.Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, snap); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
