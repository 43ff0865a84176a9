// Package filter implements the subscription filter type and the two
// operations that must agree with each other: in-memory matching for
// live delivery, and SQL lowering for historical queries.
package filter

// Filter is a conjunction of optional predicates; every populated field
// must be satisfied for a match.
type Filter struct {
	SubscriptionID string
	IDs            []string
	Authors        []string
	Kinds          []int
	Since          *int64
	Until          *int64
	Limit          int
	// Tags maps a single-letter tag name to the set of acceptable values.
	Tags map[string][]string
}

// IsEmpty reports whether f has no predicates at all. An empty filter is
// not a valid input to delete or mark-delete operations.
func (f *Filter) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.IDs) == 0 &&
		len(f.Authors) == 0 &&
		len(f.Kinds) == 0 &&
		f.Since == nil &&
		f.Until == nil &&
		len(f.Tags) == 0
}

// IsEmpty is the package-level form, for callers holding a possibly-nil
// filter value.
func IsEmpty(f *Filter) bool {
	return f.IsEmpty()
}
