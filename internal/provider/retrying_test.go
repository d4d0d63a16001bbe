package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/KafClaw/tribunal/internal/retry"
)

type scriptedProvider struct {
	errs  []error
	calls int
}

func (p *scriptedProvider) DefaultModel() string { return "scripted" }

func (p *scriptedProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	p.calls++
	if p.calls <= len(p.errs) && p.errs[p.calls-1] != nil {
		return nil, p.errs[p.calls-1]
	}
	return &ChatResponse{Content: "ok"}, nil
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2, MaxAttempts: attempts}
}

func TestWithRetryRecoversFromTransientErrors(t *testing.T) {
	inner := &scriptedProvider{errs: []error{
		&StatusError{Provider: "openai", StatusCode: http.StatusServiceUnavailable},
		&StatusError{Provider: "openai", StatusCode: http.StatusTooManyRequests},
	}}
	p := WithRetry(inner, fastPolicy(6))

	resp, err := p.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "scripted", p.DefaultModel())
}

func TestWithRetryStopsOnClientError(t *testing.T) {
	inner := &scriptedProvider{errs: []error{&StatusError{Provider: "openai", StatusCode: http.StatusUnauthorized}}}
	_, err := WithRetry(inner, fastPolicy(6)).Chat(context.Background(), &ChatRequest{})

	var ese *retry.ExternalServiceError
	require.ErrorAs(t, err, &ese)
	assert.Equal(t, 1, ese.Attempts)
	assert.Equal(t, 1, inner.calls)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}

func TestWithRetryExhaustion(t *testing.T) {
	boom := errors.New("connection reset")
	inner := &scriptedProvider{errs: []error{boom, boom, boom, boom}}
	_, err := WithRetry(inner, fastPolicy(3)).Chat(context.Background(), &ChatRequest{})

	var ese *retry.ExternalServiceError
	require.ErrorAs(t, err, &ese)
	assert.Equal(t, 3, ese.Attempts)
	assert.Equal(t, "llm chat", ese.Op)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"missing key", fmt.Errorf("gemini: %w", ErrMissingAPIKey), false},
		{"canceled", context.Canceled, false},
		{"server error", &StatusError{StatusCode: 502}, true},
		{"bad request", &StatusError{StatusCode: 400}, false},
		{"timeout", &StatusError{StatusCode: 408}, true},
		{"genai rate limit", fmt.Errorf("gemini generate: %w", genai.APIError{Code: 429}), true},
		{"genai forbidden", genai.APIError{Code: 403}, false},
		{"genai unavailable", genai.APIError{Code: 503}, true},
		{"network", errors.New("dial tcp: timeout"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, retryable(tc.err))
		})
	}
}

func TestWithRetryCapsRetryAfter(t *testing.T) {
	inner := &scriptedProvider{errs: []error{
		&StatusError{Provider: "openai", StatusCode: http.StatusTooManyRequests, RetryAfter: time.Hour},
	}}
	p := WithRetry(inner, fastPolicy(2))

	started := time.Now()
	_, err := p.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Less(t, time.Since(started), time.Second, "Retry-After must be capped at MaxDelay")
	assert.Equal(t, 2, inner.calls)
}
