// Package state holds the typed execution context shared by every node of a
// topic run: evidence lists, title registries, search suffixes and run
// bookkeeping. All mutations go through one coarse lock.
package state

import (
	"sync"
)

// MaxFacts is the capacity of each fact list.
const MaxFacts = 3

// Default search suffixes applied on reset. Both stay topic-neutral; terms
// tied to one figure belong in the judge's tag hints.
const (
	DefaultPositiveSuffix = " achievements legacy impact reforms diplomacy economy"
	DefaultNegativeSuffix = " controversy impeachment investigation indictment scandal"
)

// Store is the execution context for one topic. The zero value is not usable;
// call New.
type Store struct {
	mu sync.RWMutex

	topic string

	positive []Fact
	negative []Fact

	positiveTitles []string
	negativeTitles []string

	positiveSuffix string
	negativeSuffix string

	required []Tag

	terminated bool
	iteration  int
	outputPath string
	outputs    map[string]string
}

// New returns a store in the default state with an empty topic.
func New() *Store {
	s := &Store{}
	s.resetLocked("")
	return s
}

// Reset clears every field and installs topic. It is a single atomic
// operation regardless of prior content.
func (s *Store) Reset(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(topic)
}

func (s *Store) resetLocked(topic string) {
	s.topic = Normalize(topic)
	s.positive = nil
	s.negative = nil
	s.positiveTitles = nil
	s.negativeTitles = nil
	s.positiveSuffix = DefaultPositiveSuffix
	s.negativeSuffix = DefaultNegativeSuffix
	s.required = RequiredTags()
	s.terminated = false
	s.iteration = 0
	s.outputPath = ""
	s.outputs = make(map[string]string)
}

// Topic returns the current topic.
func (s *Store) Topic() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topic
}

func (s *Store) factsLocked(list ListID) *[]Fact {
	switch list {
	case Positive:
		return &s.positive
	case Negative:
		return &s.negative
	}
	return nil
}

func (s *Store) titlesLocked(list ListID) *[]string {
	switch list {
	case Positive:
		return &s.positiveTitles
	case Negative:
		return &s.negativeTitles
	}
	return nil
}

// AppendFact adds one fact to list after whitespace normalization.
func (s *Store) AppendFact(list ListID, text string) AppendResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.factsLocked(list)
	if facts == nil {
		return AppendResult{Status: StatusIgnored, Reason: ReasonUnknownList}
	}
	return appendOneLocked(facts, Normalize(text))
}

func appendOneLocked(facts *[]Fact, text string) AppendResult {
	if text == "" {
		return AppendResult{Status: StatusEmpty, TotalCount: len(*facts)}
	}
	if len(*facts) >= MaxFacts {
		return AppendResult{Status: StatusSkipped, Reason: ReasonCapacity, TotalCount: len(*facts)}
	}
	for _, f := range *facts {
		if f.Text == text {
			return AppendResult{Status: StatusSkipped, Reason: ReasonDuplicate, TotalCount: len(*facts)}
		}
	}
	*facts = append(*facts, ParseFact(text))
	return AppendResult{Status: StatusSuccess, AddedCount: 1, TotalCount: len(*facts)}
}

// AppendFacts splits blob into entries (see SplitEntries) and applies the
// AppendFact rule to each one in order.
func (s *Store) AppendFacts(list ListID, blob string) AppendResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.factsLocked(list)
	if facts == nil {
		return AppendResult{Status: StatusIgnored, Reason: ReasonUnknownList}
	}
	entries := SplitEntries(blob)
	if len(entries) == 0 {
		return AppendResult{Status: StatusEmpty, TotalCount: len(*facts)}
	}
	if len(entries) == 1 {
		return appendOneLocked(facts, entries[0])
	}

	agg := AppendResult{Status: StatusSkipped}
	for _, entry := range entries {
		r := appendOneLocked(facts, entry)
		agg.Entries = append(agg.Entries, r)
		if r.Status == StatusSuccess {
			agg.AddedCount++
		} else if agg.Reason == "" {
			agg.Reason = r.Reason
		}
	}
	if agg.AddedCount > 0 {
		agg.Status = StatusSuccess
		agg.Reason = ""
	}
	agg.TotalCount = len(*facts)
	return agg
}

// AppendTitle records a cited page title. Titles are unbounded but unique.
func (s *Store) AppendTitle(list ListID, title string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles := s.titlesLocked(list)
	if titles == nil {
		return Result{Status: StatusIgnored, Reason: ReasonUnknownList}
	}
	title = Normalize(title)
	if title == "" {
		return Result{Status: StatusEmpty}
	}
	for _, t := range *titles {
		if t == title {
			return Result{Status: StatusSkipped, Reason: ReasonDuplicate}
		}
	}
	*titles = append(*titles, title)
	return Result{Status: StatusSuccess}
}

// SetSuffixes overwrites both search suffixes.
func (s *Store) SetSuffixes(positive, negative string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positiveSuffix = positive
	s.negativeSuffix = negative
	return Result{Status: StatusSuccess}
}

// CheckRequiredTags reports tag coverage of the negative list.
func (s *Store) CheckRequiredTags() TagReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CheckTags(s.negative, s.required)
}

// SetIteration records the current loop iteration (1-based).
func (s *Store) SetIteration(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration = i
}

// MarkTerminated sets the termination flag. It reports false when the flag
// was already set.
func (s *Store) MarkTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return false
	}
	s.terminated = true
	return true
}

// ClearTerminated resets the termination flag for a new loop invocation.
func (s *Store) ClearTerminated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = false
}

// SetOutputPath records where the report was written.
func (s *Store) SetOutputPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputPath = path
}

// SetOutput stores the terminal text a named node produced.
func (s *Store) SetOutput(node, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[node] = text
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outputs := make(map[string]string, len(s.outputs))
	for k, v := range s.outputs {
		outputs[k] = v
	}
	return Snapshot{
		Topic:          s.topic,
		Positive:       append([]Fact(nil), s.positive...),
		Negative:       append([]Fact(nil), s.negative...),
		PositiveTitles: append([]string(nil), s.positiveTitles...),
		NegativeTitles: append([]string(nil), s.negativeTitles...),
		PositiveSuffix: s.positiveSuffix,
		NegativeSuffix: s.negativeSuffix,
		RequiredTags:   append([]Tag(nil), s.required...),
		Terminated:     s.terminated,
		Iteration:      s.iteration,
		OutputPath:     s.outputPath,
		Outputs:        outputs,
	}
}
