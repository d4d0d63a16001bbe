package state

import "context"

// View is a projection of a Store handed to a single node. Fact and title
// writes are limited to the view's partition; everything else passes through.
// Parallel siblings get disjoint partitions so a misbehaving backend cannot
// write into the other side's lists.
type View struct {
	store     *Store
	partition map[ListID]bool
}

// View returns a projection limited to lists. With no lists the view is
// unrestricted.
func (s *Store) View(lists ...ListID) *View {
	v := &View{store: s}
	if len(lists) > 0 {
		v.partition = make(map[ListID]bool, len(lists))
		for _, l := range lists {
			v.partition[l] = true
		}
	}
	return v
}

// Store returns the underlying store.
func (v *View) Store() *Store { return v.store }

// Allows reports whether the view may write to list.
func (v *View) Allows(list ListID) bool {
	if v.partition == nil {
		return true
	}
	return v.partition[list]
}

// InitTopic resets the underlying store for topic.
func (v *View) InitTopic(topic string) Result {
	v.store.Reset(topic)
	return Result{Status: StatusSuccess}
}

func (v *View) AppendFact(list ListID, text string) AppendResult {
	if _, known := ParseListID(string(list)); known && !v.Allows(list) {
		return AppendResult{Status: StatusIgnored, Reason: ReasonPartition}
	}
	return v.store.AppendFact(list, text)
}

func (v *View) AppendFacts(list ListID, blob string) AppendResult {
	if _, known := ParseListID(string(list)); known && !v.Allows(list) {
		return AppendResult{Status: StatusIgnored, Reason: ReasonPartition}
	}
	return v.store.AppendFacts(list, blob)
}

func (v *View) AppendTitle(list ListID, title string) Result {
	if _, known := ParseListID(string(list)); known && !v.Allows(list) {
		return Result{Status: StatusIgnored, Reason: ReasonPartition}
	}
	return v.store.AppendTitle(list, title)
}

func (v *View) SetSuffixes(positive, negative string) Result {
	return v.store.SetSuffixes(positive, negative)
}

func (v *View) CheckRequiredTags() TagReport { return v.store.CheckRequiredTags() }

func (v *View) SetOutputPath(path string) { v.store.SetOutputPath(path) }

func (v *View) Snapshot() Snapshot { return v.store.Snapshot() }

type viewKey struct{}

// NewContext returns a context carrying v for tool execution.
func NewContext(ctx context.Context, v *View) context.Context {
	return context.WithValue(ctx, viewKey{}, v)
}

// FromContext extracts the view installed by NewContext.
func FromContext(ctx context.Context) (*View, bool) {
	v, ok := ctx.Value(viewKey{}).(*View)
	return v, ok && v != nil
}
