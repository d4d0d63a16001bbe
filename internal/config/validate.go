package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the values the court cannot run without.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	if c.Loop.MaxIterations < 1 {
		add("loop.maxIterations must be at least 1, got %d", c.Loop.MaxIterations)
	}
	if c.Loop.MaxParallel < 0 {
		add("loop.maxParallel must not be negative, got %d", c.Loop.MaxParallel)
	}
	if c.Model.MaxToolIterations < 1 {
		add("model.maxToolIterations must be at least 1, got %d", c.Model.MaxToolIterations)
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		add("model.name is empty")
	}
	if c.Retry.MaxAttempts < 1 {
		add("retry.maxAttempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Lookup.Enabled && c.Lookup.TopK < 1 {
		add("lookup.topK must be at least 1, got %d", c.Lookup.TopK)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		add("logging.format must be text or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level %q is not a known level", c.Logging.Level)
	}
	return errors.Join(errs...)
}

// Masked returns a copy with secrets replaced, for display.
func (c *Config) Masked() *Config {
	out := *c
	out.Providers.Gemini.APIKey = mask(c.Providers.Gemini.APIKey)
	out.Providers.OpenAI.APIKey = mask(c.Providers.OpenAI.APIKey)
	out.Providers.OpenRouter.APIKey = mask(c.Providers.OpenRouter.APIKey)
	out.Notify.SlackToken = mask(c.Notify.SlackToken)
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-2:]
}
