// Package notify sends a short notice when the court writes a report.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/KafClaw/tribunal/internal/court"
	"github.com/KafClaw/tribunal/internal/retry"
	"github.com/slack-go/slack"
)

// DefaultSlackAPIBase is the public Slack Web API.
const DefaultSlackAPIBase = "https://slack.com/api"

// ErrMissingChannel is returned when a token is configured without a channel.
var ErrMissingChannel = errors.New("slack channel is required")

// Slack posts report notices to one channel.
type Slack struct {
	api     *slack.Client
	channel string
	policy  retry.Policy
}

// NewSlack creates a notifier. An empty apiBase uses the public API.
func NewSlack(token, channel, apiBase string) (*Slack, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("missing slack token")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, ErrMissingChannel
	}
	base := strings.TrimSpace(apiBase)
	if base == "" {
		base = DefaultSlackAPIBase
	}
	base = strings.TrimRight(base, "/") + "/"
	client := &http.Client{Timeout: 15 * time.Second}
	return &Slack{
		api:     slack.New(token, slack.OptionHTTPClient(client), slack.OptionAPIURL(base)),
		channel: channel,
		policy: retry.Policy{
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
			MaxAttempts:  3,
		},
	}, nil
}

// ReportWritten implements court.Notifier.
func (s *Slack) ReportWritten(ctx context.Context, res *court.Result) error {
	text := FormatNotice(res)
	return retry.Do(ctx, "slack notice", s.policy, func(ctx context.Context) error {
		_, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
		return retryDecision(err)
	})
}

// Only rate limits are retried; auth and channel errors will not improve.
func retryDecision(err error) error {
	if err == nil {
		return nil
	}
	var rl *slack.RateLimitedError
	if errors.As(err, &rl) {
		return err
	}
	return retry.Permanent(err)
}

// FormatNotice renders the message text for a finished session.
func FormatNotice(res *court.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Verdict ready for *%s*\n", res.Topic)
	fmt.Fprintf(&sb, "Report: `%s`", filepath.Base(res.OutputPath))
	if res.Fallback {
		sb.WriteString(" (fallback write)")
	}
	sb.WriteString("\n")
	balanced := "no, iteration budget exhausted"
	if res.Balanced {
		balanced = "yes"
	}
	fmt.Fprintf(&sb, "Rounds: %d, balanced: %s\n", res.Iterations, balanced)
	fmt.Fprintf(&sb, "Run: %s", res.RunID)
	return sb.String()
}
