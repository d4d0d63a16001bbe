package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KafClaw/tribunal/internal/knowledge"
	"github.com/KafClaw/tribunal/internal/retry"
	"github.com/KafClaw/tribunal/internal/state"
)

func newCtx(t *testing.T, lists ...state.ListID) (context.Context, *state.Store) {
	t.Helper()
	st := state.New()
	st.Reset("Abraham Lincoln")
	return state.NewContext(context.Background(), st.View(lists...)), st
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewAppendFactTool()))
	require.NoError(t, r.Register(NewCheckNegTagsTool()))

	got, ok := r.Get("append_fact")
	require.True(t, ok)
	assert.Equal(t, "append_fact", got.Name())
	assert.True(t, r.Has("check_neg_tags"))
	assert.False(t, r.Has("nonexistent"))
	assert.Equal(t, []string{"append_fact", "check_neg_tags"}, r.Names())

	err := r.Register(NewAppendFactTool())
	require.ErrorIs(t, err, ErrToolExists)

	defs := r.Definitions()
	require.Len(t, defs, 2)
	fn := defs[0]["function"].(map[string]any)
	assert.Equal(t, "append_fact", fn["name"])
	assert.Equal(t, "function", defs[0]["type"])

	_, err = r.Execute(context.Background(), "nope", nil)
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry().MustRegister(NewSetSuffixesTool(), NewSetSuffixesTool())
	})
}

func TestSubset(t *testing.T) {
	r := NewCourtRegistry(CourtOptions{})
	sub, err := r.Subset("append_fact", "append_title_used")
	require.NoError(t, err)
	assert.Equal(t, []string{"append_fact", "append_title_used"}, sub.Names())

	_, err = r.Subset("append_fact", "exec")
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestCourtRegistryWikipediaOptional(t *testing.T) {
	assert.False(t, NewCourtRegistry(CourtOptions{}).Has("wikipedia"))
	assert.True(t, NewCourtRegistry(CourtOptions{Lookup: stubLookup{}}).Has("wikipedia"))
}

func TestStateToolsNeedView(t *testing.T) {
	for _, tool := range []Tool{NewInitTopicTool(), NewAppendFactTool(), NewAppendTitleTool(), NewCheckNegTagsTool(), NewSetSuffixesTool(), NewWriteFileTool(nil, "")} {
		_, err := tool.Execute(context.Background(), map[string]any{})
		assert.ErrorIs(t, err, ErrNoState, tool.Name())
	}
}

func TestInitTopicResets(t *testing.T) {
	ctx, st := newCtx(t)
	st.AppendFact(state.Positive, "old")

	out, err := NewInitTopicTool().Execute(ctx, map[string]any{"topic": "  Napoleon "})
	require.NoError(t, err)
	assert.Equal(t, "success", decode(t, out)["status"])
	snap := st.Snapshot()
	assert.Equal(t, "Napoleon", snap.Topic)
	assert.Empty(t, snap.Positive)
}

func TestAppendFactTool(t *testing.T) {
	ctx, st := newCtx(t)
	tool := NewAppendFactTool()
	var counts []float64
	var statuses []string
	for _, f := range []string{"FACT: a (Ref: A)", "FACT: b (Ref: B)", "FACT: c (Ref: C)", "FACT: d (Ref: D)"} {
		out, err := tool.Execute(ctx, map[string]any{"key": "positive", "fact": f})
		require.NoError(t, err)
		m := decode(t, out)
		statuses = append(statuses, m["status"].(string))
		counts = append(counts, m["totalCount"].(float64))
	}
	assert.Equal(t, []string{"success", "success", "success", "skipped"}, statuses)
	assert.Equal(t, []float64{1, 2, 3, 3}, counts)
	assert.Len(t, st.Snapshot().Positive, 3)
}

func TestAppendFactToolLegacyKeyAndUnknown(t *testing.T) {
	ctx, st := newCtx(t)
	out, err := NewAppendFactTool().Execute(ctx, map[string]any{"key": "neg_data", "fact": "[Legal]: x (Ref: X)"})
	require.NoError(t, err)
	assert.Equal(t, "success", decode(t, out)["status"])
	assert.Len(t, st.Snapshot().Negative, 1)

	out, err = NewAppendFactTool().Execute(ctx, map[string]any{"key": "bogus", "fact": "x"})
	require.NoError(t, err)
	m := decode(t, out)
	assert.Equal(t, "ignored", m["status"])
	assert.Equal(t, state.ReasonUnknownList, m["reason"])
}

func TestAppendFactToolBlob(t *testing.T) {
	ctx, st := newCtx(t)
	blob := "[Legal]: one (Ref: A) [Event]: two (Ref: B) [Other]: three (Ref: C)"
	out, err := NewAppendFactTool().Execute(ctx, map[string]any{"key": "negative", "fact": blob})
	require.NoError(t, err)
	m := decode(t, out)
	assert.Equal(t, "success", m["status"])
	assert.EqualValues(t, 3, m["addedCount"])
	assert.True(t, st.CheckRequiredTags().OK)
}

func TestAppendFactToolRespectsPartition(t *testing.T) {
	ctx, st := newCtx(t, state.Positive)
	out, err := NewAppendFactTool().Execute(ctx, map[string]any{"key": "negative", "fact": "[Legal]: x"})
	require.NoError(t, err)
	m := decode(t, out)
	assert.Equal(t, "ignored", m["status"])
	assert.Equal(t, state.ReasonPartition, m["reason"])
	assert.Empty(t, st.Snapshot().Negative)
}

func TestAppendTitleTool(t *testing.T) {
	ctx, st := newCtx(t)
	tool := NewAppendTitleTool()
	out, err := tool.Execute(ctx, map[string]any{"key": "pos_titles_used", "title": " Abraham   Lincoln "})
	require.NoError(t, err)
	assert.Equal(t, "success", decode(t, out)["status"])

	out, err = tool.Execute(ctx, map[string]any{"key": "positive", "title": "Abraham Lincoln"})
	require.NoError(t, err)
	assert.Equal(t, "skipped", decode(t, out)["status"])
	assert.Equal(t, []string{"Abraham Lincoln"}, st.Snapshot().PositiveTitles)
}

func TestCheckNegTagsTool(t *testing.T) {
	ctx, st := newCtx(t)
	st.AppendFact(state.Negative, "[Legal]: a")
	st.AppendFact(state.Negative, "[Legal]: b")
	st.AppendFact(state.Negative, "[Other]: c")

	out, err := NewCheckNegTagsTool().Execute(ctx, nil)
	require.NoError(t, err)
	m := decode(t, out)
	assert.Equal(t, false, m["ok"])
	assert.EqualValues(t, 3, m["neg_count"])
	present := m["present"].(map[string]any)
	assert.Equal(t, false, present[string(state.TagEvent)])
}

func TestSetSuffixesTool(t *testing.T) {
	ctx, st := newCtx(t)
	out, err := NewSetSuffixesTool().Execute(ctx, map[string]any{"pos_suffix": " reforms", "neg_suffix": " scandal"})
	require.NoError(t, err)
	assert.Equal(t, "success", decode(t, out)["status"])
	snap := st.Snapshot()
	assert.Equal(t, " reforms", snap.PositiveSuffix)
	assert.Equal(t, " scandal", snap.NegativeSuffix)
}

func TestWriteFileTool(t *testing.T) {
	root := t.TempDir()
	ctx, st := newCtx(t)
	tool := NewWriteFileTool(func() string { return root }, "outputs")

	out, err := tool.Execute(ctx, map[string]any{"filename": "Abraham Lincoln", "content": "report"})
	require.NoError(t, err)
	m := decode(t, out)
	assert.Equal(t, "success", m["status"])
	want := filepath.Join(root, "outputs", "Abraham_Lincoln.txt")
	assert.Equal(t, want, m["path"])
	assert.Equal(t, want, st.Snapshot().OutputPath)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "report", string(data))
}

func TestWriteFileToolDefaultsFilenameToTopic(t *testing.T) {
	root := t.TempDir()
	ctx, _ := newCtx(t)
	out, err := NewWriteFileTool(func() string { return root }, "").Execute(ctx, map[string]any{"content": "x"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "outputs", "Abraham_Lincoln.txt"), decode(t, out)["path"])
}

func TestWriteFileToolConfinedToWorkspace(t *testing.T) {
	root := t.TempDir()
	ctx, st := newCtx(t)
	tool := NewWriteFileTool(func() string { return root }, "outputs")

	for _, dir := range []string{"../escape", "/tmp"} {
		out, err := tool.Execute(ctx, map[string]any{"directory": dir, "filename": "x", "content": "x"})
		require.NoError(t, err)
		m := decode(t, out)
		assert.Equal(t, "ignored", m["status"], dir)
		assert.Equal(t, ReasonOutsideWorkspace, m["reason"], dir)
	}
	assert.Empty(t, st.Snapshot().OutputPath)

	out, err := tool.Execute(ctx, map[string]any{"filename": "../../etc/passwd", "content": "x"})
	require.NoError(t, err)
	path := decode(t, out)["path"].(string)
	assert.Equal(t, filepath.Join(root, "outputs", ".._.._etc_passwd.txt"), path)
}

func TestWriteFileToolConfiguredDirOutsideWorkspace(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "reports")
	ctx, st := newCtx(t)
	tool := NewWriteFileTool(func() string { return root }, outDir)

	out, err := tool.Execute(ctx, map[string]any{"filename": "Abraham Lincoln", "content": "report"})
	require.NoError(t, err)
	m := decode(t, out)
	assert.Equal(t, "success", m["status"])
	want := filepath.Join(outDir, "Abraham_Lincoln.txt")
	assert.Equal(t, want, st.Snapshot().OutputPath)
	assert.FileExists(t, want)

	out, err = tool.Execute(ctx, map[string]any{"directory": outDir, "filename": "x", "content": "x"})
	require.NoError(t, err)
	assert.Equal(t, ReasonOutsideWorkspace, decode(t, out)["reason"])
}

func TestIsWithin(t *testing.T) {
	assert.True(t, isWithin("", "/anything"))
	assert.True(t, isWithin("/a/b", "/a/b"))
	assert.True(t, isWithin("/a/b", "/a/b/c"))
	assert.False(t, isWithin("/a/b", "/a"))
	assert.False(t, isWithin("/a/b", "/a/bc"))
}

type stubLookup struct {
	res knowledge.Result
	err error
}

func (s stubLookup) Search(context.Context, string) (knowledge.Result, error) { return s.res, s.err }

func TestWikipediaTool(t *testing.T) {
	tool := NewWikipediaTool(stubLookup{res: knowledge.Result{Found: true, Title: "Abraham Lincoln", Snippet: "Page: Abraham Lincoln"}})
	out, err := tool.Execute(context.Background(), map[string]any{"query": "Abraham Lincoln"})
	require.NoError(t, err)
	m := decode(t, out)
	assert.Equal(t, true, m["found"])
	assert.Equal(t, "Abraham Lincoln", m["title"])

	out, err = tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, false, decode(t, out)["found"])
}

func TestWikipediaToolPropagatesExternalError(t *testing.T) {
	ese := &retry.ExternalServiceError{Op: "wikipedia search", Attempts: 6, Err: errors.New("503")}
	_, err := NewWikipediaTool(stubLookup{err: ese}).Execute(context.Background(), map[string]any{"query": "x"})
	require.Error(t, err)
	assert.True(t, retry.IsExternal(err))
}

func TestGetHelpers(t *testing.T) {
	params := map[string]any{"s": "v", "i": float64(3), "b": true}
	assert.Equal(t, "v", GetString(params, "s", ""))
	assert.Equal(t, "d", GetString(params, "missing", "d"))
	assert.Equal(t, 3, GetInt(params, "i", 0))
	assert.True(t, GetBool(params, "b", false))
}
