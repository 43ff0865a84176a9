package eventstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaycore/lib/filter"
	"relaycore/lib/nostrcore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "events.db")
	s, err := Open(dsn)
	require.NoError(t, err)
	return s
}

func mkEvent(id, pubkey string, createdAt int64, kind int, tags nostrcore.Tags) *nostrcore.Event {
	return &nostrcore.Event{
		ID:        id,
		PubKey:    pubkey,
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
		Content:   "x",
		Sig:       "sig",
		SizeBytes: 100,
	}
}

func TestPutAndQuery(t *testing.T) {
	s := newTestStore(t)

	e1 := mkEvent("id1", "pub1", 100, 1, nil)
	e2 := mkEvent("id2", "pub1", 200, 1, nil)
	e3 := mkEvent("id3", "pub1", 300, 2, nil)

	for _, e := range []*nostrcore.Event{e1, e2, e3} {
		require.NoError(t, s.Put("relayA", e))
	}

	results, err := s.Query("relayA", &filter.Filter{Kinds: []int{1}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "id2", results[0].ID)
	assert.Equal(t, "id1", results[1].ID)
}

func TestPutDuplicate(t *testing.T) {
	s := newTestStore(t)
	e := mkEvent("id1", "pub1", 100, 1, nil)
	require.NoError(t, s.Put("relayA", e))
	assert.ErrorIs(t, s.Put("relayA", e), ErrDuplicate)
}

func TestRelayIsolation(t *testing.T) {
	s := newTestStore(t)
	e := mkEvent("id1", "pub1", 100, 1, nil)
	require.NoError(t, s.Put("relayA", e))

	results, err := s.Query("relayB", &filter.Filter{Kinds: []int{1}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTagFilter(t *testing.T) {
	s := newTestStore(t)
	e := mkEvent("id1", "pub1", 100, 1, nostrcore.Tags{{"e", "abc"}, {"p", "def"}})
	require.NoError(t, s.Put("relayA", e))

	results, err := s.Query("relayA", &filter.Filter{Tags: map[string][]string{"e": {"abc"}}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "id1", results[0].ID)

	results, err = s.Query("relayA", &filter.Filter{Tags: map[string][]string{"e": {"xyz"}}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMarkDeletedExcludesFromQuery(t *testing.T) {
	s := newTestStore(t)
	e := mkEvent("id1", "pub1", 100, 1, nil)
	require.NoError(t, s.Put("relayA", e))

	require.NoError(t, s.MarkDeleted("relayA", &filter.Filter{IDs: []string{"id1"}}))

	results, err := s.Query("relayA", &filter.Filter{Kinds: []int{1}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMarkDeletedRefusesEmptyFilter(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.MarkDeleted("relayA", &filter.Filter{}), ErrEmptyFilter)
	assert.ErrorIs(t, s.Delete("relayA", &filter.Filter{}), ErrEmptyFilter)
}

func TestDeleteRemovesTagRows(t *testing.T) {
	s := newTestStore(t)
	e := mkEvent("id1", "pub1", 100, 1, nostrcore.Tags{{"e", "abc"}})
	require.NoError(t, s.Put("relayA", e))

	require.NoError(t, s.Delete("relayA", &filter.Filter{IDs: []string{"id1"}}))

	var count int64
	require.NoError(t, s.db.Model(&EventTag{}).Where("relay_id = ? AND event_id = ?", "relayA", "id1").Count(&count).Error)
	assert.Zero(t, count)
}

func TestStorageBytesAndPrunable(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"id1", "id2", "id3"} {
		e := mkEvent(id, "pub1", int64(100*(i+1)), 1, nil)
		require.NoError(t, s.Put("relayA", e))
	}

	total, err := s.StorageBytes("relayA", "pub1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), total)

	prunable, err := s.Prunable("relayA", "pub1")
	require.NoError(t, err)
	require.Len(t, prunable, 3)
	assert.Equal(t, "id1", prunable[0].ID)
}

// TestMatchQueryAgreement checks that filter.Matches and filter.ToQuery
// (exercised through Store.Query) agree over a small generated
// event/filter corpus, per the match/query agreement property.
func TestMatchQueryAgreement(t *testing.T) {
	s := newTestStore(t)

	events := []*nostrcore.Event{
		mkEvent("aa01", "pubA", 100, 1, nostrcore.Tags{{"e", "x"}}),
		mkEvent("bb02", "pubA", 200, 1, nostrcore.Tags{{"e", "y"}}),
		mkEvent("cc03", "pubB", 300, 2, nil),
		mkEvent("dd04", "pubB", 400, 1, nostrcore.Tags{{"p", "z"}}),
	}
	for _, e := range events {
		require.NoError(t, s.Put("relayA", e))
	}

	since := int64(150)
	filters := []*filter.Filter{
		{Kinds: []int{1}},
		{Authors: []string{"pubB"}},
		{Since: &since},
		{Tags: map[string][]string{"e": {"x", "y"}}},
		{IDs: []string{"aa"}},
	}

	for _, f := range filters {
		results, err := s.Query("relayA", f)
		require.NoError(t, err)

		got := map[string]bool{}
		for _, r := range results {
			got[r.ID] = true
		}

		for _, e := range events {
			want := filter.Matches(f, e)
			assert.Equal(t, want, got[e.ID], "event %s filter %+v", e.ID, f)
		}
	}
}
