package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	geminiDefaultModel = "gemini-2.5-flash"

	// syntheticIDPrefix marks call IDs made up locally because the API
	// returned none. They are never sent back.
	syntheticIDPrefix = "local-"
)

// GeminiOptions configures a GeminiProvider.
type GeminiOptions struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	HTTPClient   *http.Client
}

// GeminiProvider implements LLMProvider on the Gemini API through the
// google.golang.org/genai SDK.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiProvider creates a Gemini provider using a static API key.
func NewGeminiProvider(ctx context.Context, opts GeminiOptions) (*GeminiProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = geminiDefaultModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiProvider{client: client, defaultModel: opts.DefaultModel}, nil
}

func (p *GeminiProvider) DefaultModel() string {
	return p.defaultModel
}

func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	model = strings.TrimPrefix(model, "gemini/")

	system, contents := buildGeminiContents(req.Messages)
	resp, err := p.client.Models.GenerateContent(ctx, model, contents, buildGeminiConfig(req, system))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return parseGeminiResponse(resp)
}

func buildGeminiConfig(req *ChatRequest, system *genai.Content) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  convertSchema(t.Function.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return cfg
}

// buildGeminiContents splits system messages into a system instruction and
// maps the rest onto user/model turns. Consecutive tool results are merged
// into one user turn, which is how the API expects parallel function
// responses.
func buildGeminiContents(messages []Message) (*genai.Content, []*genai.Content) {
	var systemParts []*genai.Part
	var contents []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if msg.Content != "" {
				systemParts = append(systemParts, genai.NewPartFromText(msg.Content))
			}

		case RoleTool:
			part := genai.NewPartFromFunctionResponse(toolName(msg), functionResponse(msg.Content))
			if part.FunctionResponse != nil && apiCallID(msg.ToolCallID) {
				part.FunctionResponse.ID = msg.ToolCallID
			}
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})

		case RoleAssistant:
			c := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				c.Parts = append(c.Parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				part := genai.NewPartFromFunctionCall(tc.Name, tc.Arguments)
				if part.FunctionCall != nil && apiCallID(tc.ID) {
					part.FunctionCall.ID = tc.ID
				}
				c.Parts = append(c.Parts, part)
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}

		default:
			if msg.Content != "" {
				contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
			}
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: systemParts}
	}
	return system, contents
}

func isFunctionResponseTurn(c *genai.Content) bool {
	if c == nil || c.Role != genai.RoleUser || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

func apiCallID(id string) bool {
	return id != "" && !strings.HasPrefix(id, syntheticIDPrefix)
}

func toolName(msg Message) string {
	if msg.Name != "" {
		return msg.Name
	}
	return msg.ToolCallID
}

// functionResponse wraps a tool result. JSON objects are passed through;
// anything else goes under "output", or "error" for error text.
func functionResponse(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	if strings.HasPrefix(content, "Error:") {
		return map[string]any{"error": strings.TrimSpace(strings.TrimPrefix(content, "Error:"))}
	}
	return map[string]any{"output": content}
}

// convertSchema maps a JSON Schema object onto the genai schema subset.
func convertSchema(in map[string]any) *genai.Schema {
	if len(in) == 0 {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := in["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := in["description"].(string); ok {
		s.Description = d
	}
	if props, ok := in["properties"].(map[string]any); ok && len(props) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if m, ok := raw.(map[string]any); ok {
				s.Properties[name] = convertSchema(m)
			}
		}
	}
	if items, ok := in["items"].(map[string]any); ok {
		s.Items = convertSchema(items)
	}
	s.Required = stringList(in["required"])
	s.Enum = stringList(in["enum"])
	return s
}

func stringList(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, x := range vals {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: %w: no candidates", ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	result := &ChatResponse{
		FinishReason: string(candidate.FinishReason),
	}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if candidate.Content == nil {
		return result, nil
	}

	var text strings.Builder
	for i, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
		if fc := part.FunctionCall; fc != nil {
			id := fc.ID
			if id == "" {
				id = fmt.Sprintf("%s%s-%d", syntheticIDPrefix, fc.Name, i)
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        id,
				Name:      fc.Name,
				Arguments: fc.Args,
			})
		}
	}
	result.Content = text.String()
	return result, nil
}
