package state

import (
	"regexp"
	"strings"
)

// ListID names one of the two evidence lists (and its title registry).
type ListID string

const (
	Positive ListID = "positive"
	Negative ListID = "negative"
)

// ParseListID resolves a list or registry identifier. The legacy state keys
// (pos_data, neg_titles_used, ...) are accepted as aliases.
func ParseListID(s string) (ListID, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "pos", "pos_data", "pos_titles_used":
		return Positive, true
	case "negative", "neg", "neg_data", "neg_titles_used":
		return Negative, true
	}
	return "", false
}

// Tag is the categorical marker a negative fact carries.
type Tag string

const (
	TagNone  Tag = ""
	TagLegal Tag = "Legal"
	TagEvent Tag = "Event"
	TagOther Tag = "Other"
)

// Marker returns the line-leading marker for the tag, e.g. "[Legal]:".
func (t Tag) Marker() string {
	if t == TagNone {
		return ""
	}
	return "[" + string(t) + "]:"
}

// RequiredTags returns the fixed, ordered set of tags the negative list must
// cover exactly once each.
func RequiredTags() []Tag {
	return []Tag{TagLegal, TagEvent, TagOther}
}

func tagFromWord(w string) Tag {
	switch strings.ToUpper(w) {
	case "LEGAL":
		return TagLegal
	case "EVENT":
		return TagEvent
	case "OTHER":
		return TagOther
	}
	return TagNone
}

var (
	leadingTagRe = regexp.MustCompile(`(?i)^(?:FACT\s*)?\[(LEGAL|EVENT|OTHER)\]\s*:\s*`)
	anyTagRe     = regexp.MustCompile(`(?i)(?:FACT\s*)?\[(LEGAL|EVENT|OTHER)\]\s*:`)
	plainFactRe  = regexp.MustCompile(`(?i)^FACT\s*:\s*`)
	citationRe   = regexp.MustCompile(`(?i)\(\s*(?:Ref|Wikipedia|Source)\s*:\s*([^()]*?)\s*\)\s*$`)
)

// Fact is one evidence entry. Tag, Body and Citation are derived once, when
// the fact is appended; Text is the normalized line used for dedup.
type Fact struct {
	Text     string `json:"text"`
	Tag      Tag    `json:"tag,omitempty"`
	Body     string `json:"body"`
	Citation string `json:"citation,omitempty"`
}

// ParseFact builds a Fact from an already normalized line.
func ParseFact(text string) Fact {
	f := Fact{Text: text}
	rest := text
	if m := leadingTagRe.FindStringSubmatch(rest); m != nil {
		f.Tag = tagFromWord(m[1])
		rest = rest[len(m[0]):]
	} else if loc := plainFactRe.FindStringIndex(rest); loc != nil {
		rest = rest[loc[1]:]
	}
	if m := citationRe.FindStringSubmatchIndex(rest); m != nil {
		f.Citation = rest[m[2]:m[3]]
		rest = rest[:m[0]]
	}
	f.Body = strings.TrimSpace(rest)
	return f
}

// Normalize collapses internal whitespace runs to single spaces and trims.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SplitEntries breaks a blob into individual fact lines. Lines are split on
// newlines; a single line that starts with a tag marker and carries further
// markers is split again at every marker boundary.
func SplitEntries(blob string) []string {
	var out []string
	for _, line := range strings.Split(blob, "\n") {
		line = Normalize(line)
		if line == "" {
			continue
		}
		locs := anyTagRe.FindAllStringIndex(line, -1)
		if len(locs) < 2 || locs[0][0] != 0 {
			out = append(out, line)
			continue
		}
		for i, loc := range locs {
			end := len(line)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			if part := Normalize(line[loc[0]:end]); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
