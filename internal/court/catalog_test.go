package court

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KafClaw/tribunal/internal/agent"
	"github.com/KafClaw/tribunal/internal/balance"
	"github.com/KafClaw/tribunal/internal/state"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	require.NoError(t, c.Require(AgentAdmirer, AgentCritic, AgentJudge, AgentWriter))

	if diff := cmp.Diff(balance.DefaultPolicy(), c.Policy); diff != "" {
		t.Fatalf("embedded policy differs from default (-want +got):\n%s", diff)
	}

	admirer, _ := c.Agents.Get(AgentAdmirer)
	assert.Equal(t, []string{"positive"}, admirer.Partition)
	critic, _ := c.Agents.Get(AgentCritic)
	assert.Equal(t, []string{"negative"}, critic.Partition)
	writer, _ := c.Agents.Get(AgentWriter)
	assert.Equal(t, []string{"write_file"}, writer.Tools)
	for _, d := range c.Agents {
		require.NotNil(t, d.Temperature, d.Name)
		assert.Zero(t, *d.Temperature, d.Name)
	}
}

func TestDefaultInstructionsRender(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	st := state.New()
	st.Reset("Abraham Lincoln")
	st.AppendFact(state.Negative, "[Legal]: Ex parte Merryman (Ref: Ex parte Merryman)")
	st.AppendTitle(state.Positive, "Gettysburg Address")
	snap := st.Snapshot()

	for _, def := range c.Agents {
		b, err := agent.NewContextBuilder(def)
		require.NoError(t, err, def.Name)
		prompt, err := b.BuildSystemPrompt(snap)
		require.NoError(t, err, def.Name)
		assert.Contains(t, prompt, "TOPIC: Abraham Lincoln", def.Name)
		assert.NotContains(t, prompt, "<no value>", def.Name)
	}

	admirer, _ := c.Agents.Get(AgentAdmirer)
	b, _ := agent.NewContextBuilder(admirer)
	prompt, _ := b.BuildSystemPrompt(snap)
	assert.Contains(t, prompt, "TITLES_USED: Gettysburg Address")
	assert.Contains(t, prompt, `"Abraham Lincoln achievements legacy`)

	writer, _ := c.Agents.Get(AgentWriter)
	b, _ = agent.NewContextBuilder(writer)
	prompt, _ = b.BuildSystemPrompt(snap)
	assert.Contains(t, prompt, "NEG_DATA (1):\n[Legal]: Ex parte Merryman (Ref: Ex parte Merryman)")
	assert.Contains(t, prompt, `filename="Abraham Lincoln.txt"`)
	assert.NotContains(t, prompt, `directory="`)
}

func TestLoadCatalogOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	doc := `
agents:
  - name: verdict_writer
    instruction: "Write about {{.Topic}} in French."
    tools: [write_file]
  - name: historian
    instruction: "extra"
policy:
  positive: " pos"
  negative: " neg"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	writer, _ := c.Agents.Get(AgentWriter)
	assert.Equal(t, "Write about {{.Topic}} in French.", writer.Instruction)
	_, ok := c.Agents.Get("historian")
	assert.True(t, ok)
	_, ok = c.Agents.Get(AgentAdmirer)
	assert.True(t, ok)
	assert.Equal(t, " pos", c.Policy.Positive)
	assert.Empty(t, c.Policy.TagHints)
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("agents:\n  - name: x\n"), 0o644))
	_, err = LoadCatalog(bad)
	require.ErrorIs(t, err, agent.ErrInvalidDefinition)

	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Agents, 4)
}

func TestCatalogRequire(t *testing.T) {
	err := Catalog{}.Require(AgentAdmirer)
	require.ErrorIs(t, err, ErrMissingAgent)
	assert.Contains(t, err.Error(), AgentAdmirer)
}
