package state

// Status is the structured outcome of a state operation. Operations never
// fail with an error; rejections are reported through the status.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusIgnored Status = "ignored"
	StatusEmpty   Status = "empty"
)

// Reasons attached to skipped and ignored results.
const (
	ReasonCapacity    = "capacity"
	ReasonDuplicate   = "duplicate"
	ReasonUnknownList = "unknown_list"
	ReasonPartition   = "partition"
)

// Result is returned by title and suffix operations.
type Result struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// AppendResult is returned by fact appends. Entries is only populated when a
// blob was split into more than one entry.
type AppendResult struct {
	Status     Status         `json:"status"`
	AddedCount int            `json:"addedCount"`
	TotalCount int            `json:"totalCount"`
	Reason     string         `json:"reason,omitempty"`
	Entries    []AppendResult `json:"entries,omitempty"`
}

// TagReport describes how the negative list covers the required tags.
type TagReport struct {
	OK            bool         `json:"ok"`
	PresentByTag  map[Tag]bool `json:"present"`
	CountByTag    map[Tag]int  `json:"counts"`
	NegativeCount int          `json:"neg_count"`
}

// CheckTags evaluates tag coverage: OK iff there are exactly MaxFacts entries
// and every required tag prefixes exactly one of them.
func CheckTags(negative []Fact, required []Tag) TagReport {
	r := TagReport{
		PresentByTag:  make(map[Tag]bool, len(required)),
		CountByTag:    make(map[Tag]int, len(required)),
		NegativeCount: len(negative),
	}
	for _, tag := range required {
		r.PresentByTag[tag] = false
		r.CountByTag[tag] = 0
	}
	for _, f := range negative {
		if _, ok := r.CountByTag[f.Tag]; ok {
			r.CountByTag[f.Tag]++
			r.PresentByTag[f.Tag] = true
		}
	}
	r.OK = len(negative) == MaxFacts
	for _, tag := range required {
		if r.CountByTag[tag] != 1 {
			r.OK = false
		}
	}
	return r
}
