package state

// Snapshot is an immutable copy of a Store. Instruction templates, the
// balance validator and tests read snapshots rather than the live store.
type Snapshot struct {
	Topic          string
	Positive       []Fact
	Negative       []Fact
	PositiveTitles []string
	NegativeTitles []string
	PositiveSuffix string
	NegativeSuffix string
	RequiredTags   []Tag
	Terminated     bool
	Iteration      int
	OutputPath     string
	Outputs        map[string]string
}

// Facts returns the facts of list, or nil for an unknown list.
func (s Snapshot) Facts(list ListID) []Fact {
	switch list {
	case Positive:
		return s.Positive
	case Negative:
		return s.Negative
	}
	return nil
}

// Titles returns the title registry of list.
func (s Snapshot) Titles(list ListID) []string {
	switch list {
	case Positive:
		return s.PositiveTitles
	case Negative:
		return s.NegativeTitles
	}
	return nil
}

// PositiveTexts returns the positive fact lines in insertion order.
func (s Snapshot) PositiveTexts() []string { return texts(s.Positive) }

// NegativeTexts returns the negative fact lines in insertion order.
func (s Snapshot) NegativeTexts() []string { return texts(s.Negative) }

// Tags evaluates tag coverage of the negative list.
func (s Snapshot) Tags() TagReport {
	return CheckTags(s.Negative, s.RequiredTags)
}

func texts(facts []Fact) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.Text
	}
	return out
}
