package policy

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaycore/lib/eventstore"
	"relaycore/lib/filter"
	"relaycore/lib/nostrcore"
)

func newTestStore(t *testing.T) *eventstore.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "events.db")
	s, err := eventstore.Open(dsn)
	require.NoError(t, err)
	return s
}

func mkEvent(id, pubkey string, createdAt int64, kind int, size int) *nostrcore.Event {
	return &nostrcore.Event{
		ID:        id,
		PubKey:    pubkey,
		CreatedAt: createdAt,
		Kind:      kind,
		Content:   "x",
		Sig:       "sig",
		SizeBytes: size,
	}
}

func TestAdmitRejectsOversizeEvent(t *testing.T) {
	store := newTestStore(t)
	spec := Spec{MaxEventSize: map[int]int{1: 100}}

	e := mkEvent("id1", "pub1", 100, 1, 200)
	assert.ErrorIs(t, Admit(store, "relayA", spec, e), ErrEventTooLarge)
}

func TestAdmitWithinQuota(t *testing.T) {
	store := newTestStore(t)
	spec := Spec{MaxBytesPerPubkey: 10000}

	e := mkEvent("id1", "pub1", 100, 1, 500)
	require.NoError(t, Admit(store, "relayA", spec, e))
}

func TestAdmitPrunesOnOverflow(t *testing.T) {
	store := newTestStore(t)

	// 100 events * 99 bytes = 9900 bytes under a 10000-byte cap.
	for i := 0; i < 100; i++ {
		e := mkEvent(idFor(i), "pub1", int64(i), 1, 99)
		require.NoError(t, store.Put("relayA", e))
	}

	spec := Spec{MaxBytesPerPubkey: 10000, PruneEnabled: true}
	newEvent := mkEvent("new-event", "pub1", 1000, 1, 300)

	require.NoError(t, Admit(store, "relayA", spec, newEvent))
	require.NoError(t, store.Put("relayA", newEvent))

	used, err := store.StorageBytes("relayA", "pub1")
	require.NoError(t, err)
	assert.LessOrEqual(t, used, spec.MaxBytesPerPubkey)
}

func TestAdmitRejectsWhenPruneInsufficientOrDisabled(t *testing.T) {
	store := newTestStore(t)
	e := mkEvent("id1", "pub1", 100, 1, 20000)
	require.NoError(t, store.Put("relayA", e))

	spec := Spec{MaxBytesPerPubkey: 10000, PruneEnabled: false}
	newEvent := mkEvent("id2", "pub1", 200, 1, 500)
	assert.ErrorIs(t, Admit(store, "relayA", spec, newEvent), ErrQuotaExceeded)
}

func TestApplyDeletionOnlyRemovesOwnEvents(t *testing.T) {
	store := newTestStore(t)

	victim := mkEvent("victim", "attacker-target-pubkey", 100, 1, 10)
	require.NoError(t, store.Put("relayA", victim))

	deletion := mkEvent("del1", "someone-else", 200, nostrcore.KindDeletion, 10)
	deletion.Tags = nostrcore.Tags{{"e", "victim"}}

	require.NoError(t, ApplyDeletion(store, "relayA", deletion))

	events, err := store.Query("relayA", &filter.Filter{})
	require.NoError(t, err)
	found := false
	for _, e := range events {
		if e.ID == "victim" {
			found = true
		}
	}
	assert.True(t, found, "deletion from a different author must not remove the event")
}

func idFor(i int) string {
	return fmt.Sprintf("ev%06d", i)
}
