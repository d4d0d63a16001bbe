package tools

import "github.com/KafClaw/tribunal/internal/knowledge"

// CourtOptions configures the court's tool set.
type CourtOptions struct {
	Workspace func() string
	OutputDir string
	Lookup    knowledge.Lookup
}

// NewCourtRegistry registers every tool the court agents may be granted.
// The wikipedia tool is only registered when a lookup is configured.
func NewCourtRegistry(opts CourtOptions) *Registry {
	r := NewRegistry().MustRegister(
		NewInitTopicTool(),
		NewAppendFactTool(),
		NewAppendTitleTool(),
		NewCheckNegTagsTool(),
		NewSetSuffixesTool(),
		NewWriteFileTool(opts.Workspace, opts.OutputDir),
	)
	if opts.Lookup != nil {
		r.MustRegister(NewWikipediaTool(opts.Lookup))
	}
	return r
}
