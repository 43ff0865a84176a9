// Package eventstore persists events and their tag index using gorm
// over sqlite, and answers filtered range queries lowered by
// lib/filter.
package eventstore

// Event is the gorm model backing the events table. It carries a
// relay_id column because a single store instance is shared by every
// tenant relay in the process.
type Event struct {
	RelayID   string `gorm:"column:relay_id;primaryKey;index:idx_events_relay_id"`
	ID        string `gorm:"column:id;primaryKey"`
	PubKey    string `gorm:"column:pubkey;index:idx_events_pubkey"`
	CreatedAt int64  `gorm:"column:created_at;index:idx_events_created_at"`
	Kind      int    `gorm:"column:kind;index:idx_events_kind"`
	Content   string `gorm:"column:content"`
	Sig       string `gorm:"column:sig"`
	Size      int    `gorm:"column:size"`
	Deleted   bool   `gorm:"column:deleted;index:idx_events_deleted"`
}

func (Event) TableName() string { return "events" }

// EventTag is one row per tag occurrence, indexed for #<letter>
// membership queries.
type EventTag struct {
	RelayID string `gorm:"column:relay_id;primaryKey;index:idx_tags_lookup,priority:1"`
	EventID string `gorm:"column:event_id;primaryKey;index:idx_tags_event_id"`
	Seq     int    `gorm:"column:seq;primaryKey"`
	Name    string `gorm:"column:name;index:idx_tags_lookup,priority:2"`
	Value   string `gorm:"column:value;index:idx_tags_lookup,priority:3"`
	// Extra is the JSON-encoded array of any tag elements past the
	// value, or empty when the tag row has only name and value.
	Extra string `gorm:"column:extra"`
}

func (EventTag) TableName() string { return "event_tags" }
