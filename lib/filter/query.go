package filter

import (
	"fmt"
	"sort"
	"strings"
)

// ToQuery lowers f to the SQL fragments eventstore.Query assembles into
// a gorm query against the events/event_tags tables: one inner join per
// tag predicate, then the where clauses ANDed together. The joins carry
// no placeholders; args bind positionally to the "?" placeholders of the
// where clauses, in order.
//
// ToQuery and Matches MUST agree: an event satisfies one iff it
// satisfies the other.
func ToQuery(f *Filter, relayID string) (joins []string, where []string, args []interface{}) {
	where = append(where, "events.relay_id = ?")
	args = append(args, relayID)
	where = append(where, "events.deleted = ?")
	args = append(args, false)

	if len(f.IDs) > 0 {
		clause, vals := prefixClause("events.id", f.IDs)
		where = append(where, clause)
		args = append(args, vals...)
	}
	if len(f.Authors) > 0 {
		clause, vals := prefixClause("events.pubkey", f.Authors)
		where = append(where, clause)
		args = append(args, vals...)
	}
	if len(f.Kinds) > 0 {
		placeholders := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			placeholders[i] = "?"
			args = append(args, k)
		}
		where = append(where, fmt.Sprintf("events.kind IN (%s)", strings.Join(placeholders, ",")))
	}
	if f.Since != nil {
		where = append(where, "events.created_at >= ?")
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		where = append(where, "events.created_at <= ?")
		args = append(args, *f.Until)
	}

	// One inner join per tag letter, in deterministic (sorted) order so
	// generated SQL and argument order are stable across calls.
	names := make([]string, 0, len(f.Tags))
	for name := range f.Tags {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		alias := fmt.Sprintf("ta%d", i)
		values := f.Tags[name]
		placeholders := make([]string, len(values))
		args = append(args, name)
		for j, v := range values {
			placeholders[j] = "?"
			args = append(args, v)
		}
		joins = append(joins, fmt.Sprintf(
			"JOIN event_tags AS %s ON %s.relay_id = events.relay_id AND %s.event_id = events.id",
			alias, alias, alias,
		))
		where = append(where, fmt.Sprintf("%s.name = ? AND %s.value IN (%s)", alias, alias, strings.Join(placeholders, ",")))
	}

	return joins, where, args
}

func prefixClause(column string, prefixes []string) (string, []interface{}) {
	parts := make([]string, len(prefixes))
	vals := make([]interface{}, len(prefixes))
	for i, p := range prefixes {
		parts[i] = fmt.Sprintf("%s LIKE ?", column)
		vals[i] = p + "%"
	}
	return "(" + strings.Join(parts, " OR ") + ")", vals
}

// insertAt inserts v into args at index i, shifting the tail right.
func insertAt(args []interface{}, i int, v interface{}) []interface{} {
	args = append(args, nil)
	copy(args[i+1:], args[i:])
	args[i] = v
	return args
}
