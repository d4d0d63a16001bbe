// Package knowledge looks up reference text for evidence collection.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/KafClaw/tribunal/internal/retry"
)

// Result is the outcome of one lookup. Found is false when the query
// matched nothing; that is not an error.
type Result struct {
	Found   bool     `json:"found"`
	Title   string   `json:"title"`
	Snippet string   `json:"snippet"`
	Titles  []string `json:"titles,omitempty"`
}

// Lookup searches a reference source.
type Lookup interface {
	Search(ctx context.Context, query string) (Result, error)
}

// Options configures the Wikipedia client.
type Options struct {
	BaseURL    string
	Lang       string
	TopK       int
	MaxChars   int
	UserAgent  string
	HTTPClient *http.Client
	Retry      retry.Policy
}

// Defaults mirror the lookup settings the court has always used.
const (
	DefaultLang     = "en"
	DefaultTopK     = 5
	DefaultMaxChars = 4000
)

// Wikipedia queries the MediaWiki action API.
type Wikipedia struct {
	endpoint  string
	topK      int
	maxChars  int
	userAgent string
	client    *http.Client
	policy    retry.Policy
}

// NewWikipedia creates a client. Zero fields in opts take the defaults.
func NewWikipedia(opts Options) *Wikipedia {
	if opts.Lang == "" {
		opts.Lang = DefaultLang
	}
	if opts.BaseURL == "" {
		opts.BaseURL = fmt.Sprintf("https://%s.wikipedia.org", opts.Lang)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "tribunal/1.0 (historical court research)"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	return &Wikipedia{
		endpoint:  strings.TrimRight(opts.BaseURL, "/") + "/w/api.php",
		topK:      opts.TopK,
		maxChars:  opts.MaxChars,
		userAgent: opts.UserAgent,
		client:    opts.HTTPClient,
		policy:    opts.Retry,
	}
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
	Error *apiError `json:"error,omitempty"`
}

type extractResponse struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// Search finds up to TopK pages for query and returns their summaries,
// formatted as "Page: <title>\nSummary: <text>" blocks and truncated to
// MaxChars.
func (w *Wikipedia) Search(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, nil
	}

	var sr searchResponse
	err := w.get(ctx, "wikipedia search", url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(w.topK)},
	}, &sr)
	if err != nil {
		return Result{}, err
	}
	if len(sr.Query.Search) == 0 {
		return Result{}, nil
	}
	titles := make([]string, 0, len(sr.Query.Search))
	for _, s := range sr.Query.Search {
		titles = append(titles, s.Title)
	}

	var er extractResponse
	err = w.get(ctx, "wikipedia extracts", url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"exlimit":     {"max"},
		"redirects":   {"1"},
		"titles":      {strings.Join(titles, "|")},
	}, &er)
	if err != nil {
		return Result{}, err
	}

	extracts := make(map[string]string, len(er.Query.Pages))
	for _, p := range er.Query.Pages {
		if !p.Missing {
			extracts[p.Title] = strings.TrimSpace(p.Extract)
		}
	}
	var blocks []string
	for _, title := range titles {
		text, ok := extracts[title]
		if !ok || text == "" {
			continue
		}
		blocks = append(blocks, "Page: "+title+"\nSummary: "+text)
	}
	if len(blocks) == 0 {
		return Result{}, nil
	}
	return Result{
		Found:   true,
		Title:   titles[0],
		Snippet: truncate(strings.Join(blocks, "\n\n"), w.maxChars),
		Titles:  titles,
	}, nil
}

func (w *Wikipedia) get(ctx context.Context, op string, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	target := w.endpoint + "?" + params.Encode()

	return retry.Do(ctx, op, w.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("User-Agent", w.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
		}
		if resp.StatusCode != http.StatusOK {
			return retry.Permanent(fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(body), 200)))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return retry.Permanent(fmt.Errorf("parse response: %w", err))
		}
		return apiErr(out)
	})
}

func apiErr(out any) error {
	var e *apiError
	switch r := out.(type) {
	case *searchResponse:
		e = r.Error
	case *extractResponse:
		e = r.Error
	}
	if e == nil {
		return nil
	}
	return retry.Permanent(fmt.Errorf("mediawiki %s: %s", e.Code, e.Info))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
