package filter

import (
	"strings"

	"relaycore/lib/nostrcore"
)

// Matches evaluates f against e with the same semantics ToQuery lowers
// to SQL. It is pure and never suspends.
func Matches(f *Filter, e *nostrcore.Event) bool {
	if len(f.IDs) > 0 && !anyPrefix(f.IDs, e.ID) {
		return false
	}
	if len(f.Authors) > 0 && !anyPrefix(f.Authors, e.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, e.Kind) {
		return false
	}
	if f.Since != nil && e.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && e.CreatedAt > *f.Until {
		return false
	}
	for name, values := range f.Tags {
		if !tagMatches(e.Tags, name, values) {
			return false
		}
	}
	return true
}

func anyPrefix(prefixes []string, s string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsInt(set []int, v int) bool {
	for _, k := range set {
		if k == v {
			return true
		}
	}
	return false
}

func tagMatches(tags nostrcore.Tags, name string, values []string) bool {
	for _, row := range tags {
		if len(row) < 2 || row[0] != name {
			continue
		}
		for _, v := range values {
			if row[1] == v {
				return true
			}
		}
	}
	return false
}
