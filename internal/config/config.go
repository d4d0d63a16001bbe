// Package config provides configuration types and loading for tribunal.
package config

import (
	"time"

	"github.com/KafClaw/tribunal/internal/retry"
)

// Config is the root configuration struct.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Model     ModelConfig     `json:"model"`
	Retry     RetryConfig     `json:"retry"`
	Loop      LoopConfig      `json:"loop"`
	Judge     JudgeConfig     `json:"judge"`
	Providers ProvidersConfig `json:"providers"`
	Lookup    LookupConfig    `json:"lookup"`
	Logging   LoggingConfig   `json:"logging"`
	Timeline  TimelineConfig  `json:"timeline"`
	Trace     TraceConfig     `json:"trace"`
	Notify    NotifyConfig    `json:"notify"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings. OutputDir is resolved
// against Workspace when relative.
type PathsConfig struct {
	Workspace  string `json:"workspace" envconfig:"WORKSPACE"`
	OutputDir  string `json:"outputDir" envconfig:"OUTPUT_DIR"`
	AgentsFile string `json:"agentsFile,omitempty" envconfig:"AGENTS_FILE"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model and leaf-loop settings. Name takes a
// "provider/model" string or a bare model name.
type ModelConfig struct {
	Name              string  `json:"name" envconfig:"NAME"`
	MaxTokens         int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature       float64 `json:"temperature" envconfig:"TEMPERATURE"`
	MaxToolIterations int     `json:"maxToolIterations" envconfig:"MAX_TOOL_ITERATIONS"`
}

// RetryConfig controls backoff for backend and lookup calls.
type RetryConfig struct {
	InitialDelay time.Duration `json:"initialDelay" envconfig:"INITIAL_DELAY"`
	MaxDelay     time.Duration `json:"maxDelay" envconfig:"MAX_DELAY"`
	Multiplier   float64       `json:"multiplier" envconfig:"MULTIPLIER"`
	MaxAttempts  int           `json:"maxAttempts" envconfig:"MAX_ATTEMPTS"`
}

// Policy converts the config into a retry.Policy.
func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		InitialDelay: c.InitialDelay,
		MaxDelay:     c.MaxDelay,
		Multiplier:   c.Multiplier,
		MaxAttempts:  c.MaxAttempts,
	}
}

// ---------------------------------------------------------------------------
// Court – review loop and judge
// ---------------------------------------------------------------------------

// LoopConfig bounds the review loop. MaxParallel caps concurrent
// investigators; zero runs all of them at once.
type LoopConfig struct {
	MaxIterations int `json:"maxIterations" envconfig:"MAX_ITERATIONS"`
	MaxParallel   int `json:"maxParallel" envconfig:"MAX_PARALLEL"`
}

// JudgeConfig selects how the judge refines search keywords.
type JudgeConfig struct {
	UseModel bool `json:"useModel" envconfig:"USE_MODEL"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	Gemini     ProviderConfig `json:"gemini"`
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Lookup – reference search
// ---------------------------------------------------------------------------

// LookupConfig configures the Wikipedia client.
type LookupConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"ENABLED"`
	Lang     string `json:"lang" envconfig:"WIKI_LANG"`
	TopK     int    `json:"topK" envconfig:"TOP_K"`
	MaxChars int    `json:"maxChars" envconfig:"MAX_CHARS"`
	BaseURL  string `json:"baseUrl,omitempty" envconfig:"BASE_URL"`
}

// ---------------------------------------------------------------------------
// Observability – logging, run timeline, trace export, notices
// ---------------------------------------------------------------------------

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `json:"level" envconfig:"LOG_LEVEL"`
	Format string `json:"format" envconfig:"LOG_FORMAT"` // "text" or "json"
}

// TimelineConfig enables the sqlite span store when DBPath is set.
type TimelineConfig struct {
	DBPath string `json:"dbPath,omitempty" envconfig:"DB_PATH"`
}

// TraceConfig enables Kafka span export when Brokers is set.
type TraceConfig struct {
	Brokers string `json:"brokers,omitempty" envconfig:"KAFKA_BROKERS"` // comma separated
	Topic   string `json:"topic" envconfig:"TRACE_TOPIC"`
}

// NotifyConfig enables a Slack notice after each report.
type NotifyConfig struct {
	SlackToken   string `json:"slackToken,omitempty" envconfig:"SLACK_TOKEN"`
	SlackChannel string `json:"slackChannel,omitempty" envconfig:"SLACK_CHANNEL"`
	SlackAPIBase string `json:"slackApiBase,omitempty" envconfig:"SLACK_API_BASE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Workspace: ".",
			OutputDir: "outputs",
		},
		Model: ModelConfig{
			Name:              "gemini/gemini-2.5-flash",
			MaxTokens:         8192,
			Temperature:       0,
			MaxToolIterations: 20,
		},
		Retry: RetryConfig{
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2,
			MaxAttempts:  6,
		},
		Loop: LoopConfig{
			MaxIterations: 5,
		},
		Lookup: LookupConfig{
			Enabled:  true,
			Lang:     "en",
			TopK:     5,
			MaxChars: 4000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Trace: TraceConfig{
			Topic: "tribunal.trace",
		},
	}
}
