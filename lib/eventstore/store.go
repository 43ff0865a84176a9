package eventstore

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"relaycore/lib/filter"
	"relaycore/lib/nostrcore"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is a relay-scoped event store backed by a shared gorm/sqlite
// connection. All operations take relayID explicitly since one process
// hosts many tenant relays over the same database.
type Store struct {
	db *gorm.DB
}

// Open creates (or attaches to) the sqlite database at dsn and
// migrates the events/event_tags schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := db.AutoMigrate(&Event{}, &EventTag{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", ErrStorage, err)
	}

	return &Store{db: db}, nil
}

// PrunableEvent is the minimal shape Prunable returns: enough for the
// policy package to accumulate bytes and call Delete by id.
type PrunableEvent struct {
	ID   string
	Size int
}

// Put inserts e and its tag rows in a single transaction, scoped to
// relayID. Returns ErrDuplicate on a (relay_id, id) collision.
func (s *Store) Put(relayID string, e *nostrcore.Event) error {
	row := Event{
		RelayID:   relayID,
		ID:        e.ID,
		PubKey:    e.PubKey,
		CreatedAt: e.CreatedAt,
		Kind:      e.Kind,
		Content:   e.Content,
		Sig:       e.Sig,
		Size:      e.SizeBytes,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		for i, t := range e.Tags {
			if len(t) < 2 {
				continue
			}
			extra := ""
			if len(t) > 2 {
				b, err := json.Marshal(t[2:])
				if err != nil {
					return err
				}
				extra = string(b)
			}
			tagRow := EventTag{
				RelayID: relayID,
				EventID: e.ID,
				Seq:     i,
				Name:    t[0],
				Value:   t[1],
				Extra:   extra,
			}
			if err := tx.Create(&tagRow).Error; err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("%w: put: %v", ErrStorage, err)
	}

	return nil
}

// Query returns events matching f for relayID, most-recent-first,
// breaking created_at ties by id descending (an implementation choice
// this store documents rather than leaving unspecified). f.Limit caps
// the result only when positive.
func (s *Store) Query(relayID string, f *filter.Filter) ([]*nostrcore.Event, error) {
	joins, where, args := filter.ToQuery(f, relayID)

	q := s.db.Table("events").Select("events.*")
	for _, j := range joins {
		q = q.Joins(j)
	}
	if len(where) > 0 {
		q = q.Where(joinAnd(where), args...)
	}
	q = q.Order("events.created_at DESC, events.id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []Event
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStorage, err)
	}

	events := make([]*nostrcore.Event, 0, len(rows))
	for _, row := range rows {
		tags, err := s.loadTags(relayID, row.ID)
		if err != nil {
			return nil, err
		}
		events = append(events, &nostrcore.Event{
			ID:        row.ID,
			PubKey:    row.PubKey,
			CreatedAt: row.CreatedAt,
			Kind:      row.Kind,
			Tags:      tags,
			Content:   row.Content,
			Sig:       row.Sig,
			SizeBytes: row.Size,
		})
	}

	return events, nil
}

func (s *Store) loadTags(relayID, eventID string) (nostrcore.Tags, error) {
	var rows []EventTag
	err := s.db.Where("relay_id = ? AND event_id = ?", relayID, eventID).
		Order("seq ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load tags: %v", ErrStorage, err)
	}

	tags := make(nostrcore.Tags, 0, len(rows))
	for _, r := range rows {
		t := []string{r.Name, r.Value}
		if r.Extra != "" {
			var extra []string
			if err := json.Unmarshal([]byte(r.Extra), &extra); err == nil {
				t = append(t, extra...)
			}
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// MarkDeleted soft-deletes every event matching f for relayID. Refuses
// an empty filter.
func (s *Store) MarkDeleted(relayID string, f *filter.Filter) error {
	if filter.IsEmpty(f) {
		return ErrEmptyFilter
	}

	joins, where, args := filter.ToQuery(f, relayID)

	var ids []string
	q := s.db.Table("events").Select("events.id")
	for _, j := range joins {
		q = q.Joins(j)
	}
	if err := q.Where(joinAnd(where), args...).Pluck("events.id", &ids).Error; err != nil {
		return fmt.Errorf("%w: mark_deleted: select ids: %v", ErrStorage, err)
	}
	if len(ids) == 0 {
		return nil
	}

	err := s.db.Table("events").Where("relay_id = ? AND id IN ?", relayID, ids).
		Update("deleted", true).Error
	if err != nil {
		return fmt.Errorf("%w: mark_deleted: %v", ErrStorage, err)
	}
	return nil
}

// Delete physically removes events matching f, and their tag rows, in
// one transaction. Refuses an empty filter.
func (s *Store) Delete(relayID string, f *filter.Filter) error {
	if filter.IsEmpty(f) {
		return ErrEmptyFilter
	}

	joins, where, args := filter.ToQuery(f, relayID)

	var ids []string
	q := s.db.Table("events").Select("events.id")
	for _, j := range joins {
		q = q.Joins(j)
	}
	if err := q.Where(joinAnd(where), args...).Pluck("events.id", &ids).Error; err != nil {
		return fmt.Errorf("%w: delete: select ids: %v", ErrStorage, err)
	}

	return s.DeleteByIDs(relayID, ids)
}

// DeleteByIDs removes the given event ids (and their tag rows) for
// relayID in one transaction. Used directly by the prune policy, which
// already knows the id set it wants gone.
func (s *Store) DeleteByIDs(relayID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("relay_id = ? AND event_id IN ?", relayID, ids).
			Delete(&EventTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("relay_id = ? AND id IN ?", relayID, ids).
			Delete(&Event{}).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: delete by ids: %v", ErrStorage, err)
	}
	return nil
}

// StorageBytes sums size over all events (including soft-deleted) for
// pubkey on relayID.
func (s *Store) StorageBytes(relayID, pubkey string) (int64, error) {
	var total int64
	err := s.db.Model(&Event{}).
		Where("relay_id = ? AND pubkey = ?", relayID, pubkey).
		Select("COALESCE(SUM(size), 0)").Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("%w: storage_bytes: %v", ErrStorage, err)
	}
	return total, nil
}

// Prunable returns the oldest 10,000 events by created_at ascending for
// pubkey on relayID, as input to the prune policy.
func (s *Store) Prunable(relayID, pubkey string) ([]PrunableEvent, error) {
	var rows []Event
	err := s.db.Where("relay_id = ? AND pubkey = ?", relayID, pubkey).
		Order("created_at ASC").Limit(10000).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: prunable: %v", ErrStorage, err)
	}

	out := make([]PrunableEvent, len(rows))
	for i, r := range rows {
		out[i] = PrunableEvent{ID: r.ID, Size: r.Size}
	}
	return out, nil
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint")
}
