package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/KafClaw/tribunal/internal/retry"
)

type retryingProvider struct {
	inner  LLMProvider
	policy retry.Policy
}

// WithRetry wraps p so every Chat call is retried under policy. Client
// errors other than rate limits fail immediately. Exhaustion yields a
// *retry.ExternalServiceError.
func WithRetry(p LLMProvider, policy retry.Policy) LLMProvider {
	return &retryingProvider{inner: p, policy: policy}
}

func (r *retryingProvider) DefaultModel() string { return r.inner.DefaultModel() }

func (r *retryingProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var resp *ChatResponse
	err := retry.Do(ctx, "llm chat", r.policy, func(ctx context.Context) error {
		out, err := r.inner.Chat(ctx, req)
		if err != nil {
			if !retryable(err) {
				return retry.Permanent(err)
			}
			r.honorRetryAfter(ctx, err)
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// honorRetryAfter waits out a backend-requested delay, capped at the
// policy's MaxDelay. The policy's own backoff still follows.
func (r *retryingProvider) honorRetryAfter(ctx context.Context, err error) {
	var se *StatusError
	if !errors.As(err, &se) || se.RetryAfter <= 0 {
		return
	}
	wait := se.RetryAfter
	if r.policy.MaxDelay > 0 && wait > r.policy.MaxDelay {
		wait = r.policy.MaxDelay
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func retryable(err error) bool {
	if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ae genai.APIError
	if errors.As(err, &ae) {
		return ae.Code == http.StatusTooManyRequests || ae.Code == http.StatusRequestTimeout || ae.Code >= 500
	}
	return true
}
