// Package policy enforces per-pubkey storage quotas, per-kind event size
// limits, and the event-admission side effect that kind-5 deletion
// events trigger against the store.
package policy

import (
	"errors"
	"fmt"

	"relaycore/lib/eventstore"
	"relaycore/lib/filter"
	"relaycore/lib/nostrcore"
)

var (
	// ErrEventTooLarge is returned when an event's size exceeds the
	// per-kind maximum declared in the relay's spec.
	ErrEventTooLarge = errors.New("policy: event too large")

	// ErrQuotaExceeded is returned when, even after pruning, admitting
	// the event would leave the pubkey over its byte allowance.
	ErrQuotaExceeded = errors.New("policy: quota exceeded")
)

// Spec is the quota and size-limit configuration for one relay, read
// from its persisted meta blob.
type Spec struct {
	MaxBytesPerPubkey int64
	// MaxEventSize maps kind to a byte ceiling; kinds absent from the
	// map are unbounded.
	MaxEventSize map[int]int
	PruneEnabled bool
}

func (s Spec) maxSizeFor(kind int) (int, bool) {
	if s.MaxEventSize == nil {
		return 0, false
	}
	max, ok := s.MaxEventSize[kind]
	return max, ok
}

// Admit checks e against spec's size and quota rules, pruning the
// oldest events for e.PubKey if that is enabled and necessary. It
// returns ErrEventTooLarge or ErrQuotaExceeded when e cannot be
// admitted.
func Admit(store *eventstore.Store, relayID string, spec Spec, e *nostrcore.Event) error {
	if max, ok := spec.maxSizeFor(e.Kind); ok && e.SizeBytes > max {
		return ErrEventTooLarge
	}

	if spec.MaxBytesPerPubkey <= 0 {
		return nil
	}

	used, err := store.StorageBytes(relayID, e.PubKey)
	if err != nil {
		return fmt.Errorf("policy: admit: %w", err)
	}

	projected := used + int64(e.SizeBytes)
	if projected <= spec.MaxBytesPerPubkey {
		return nil
	}

	if !spec.PruneEnabled {
		return ErrQuotaExceeded
	}

	deficit := projected - spec.MaxBytesPerPubkey
	if err := Prune(store, relayID, e.PubKey, deficit); err != nil {
		return fmt.Errorf("policy: admit: prune: %w", err)
	}

	used, err = store.StorageBytes(relayID, e.PubKey)
	if err != nil {
		return fmt.Errorf("policy: admit: %w", err)
	}
	if used+int64(e.SizeBytes) > spec.MaxBytesPerPubkey {
		return ErrQuotaExceeded
	}

	return nil
}

// Prune deletes the oldest events for pubkey on relayID, accumulating
// ids in created_at-ascending order until their combined size is at
// least need bytes, then deleting that id set in one transaction.
func Prune(store *eventstore.Store, relayID, pubkey string, need int64) error {
	candidates, err := store.Prunable(relayID, pubkey)
	if err != nil {
		return fmt.Errorf("policy: prune: %w", err)
	}

	var ids []string
	var freed int64
	for _, c := range candidates {
		if freed >= need {
			break
		}
		ids = append(ids, c.ID)
		freed += int64(c.Size)
	}

	if len(ids) == 0 {
		return nil
	}

	if err := store.DeleteByIDs(relayID, ids); err != nil {
		return fmt.Errorf("policy: prune: %w", err)
	}
	return nil
}

// ApplyDeletion implements the kind-5 deletion side effect: events
// referenced by e's "e" tags are soft-deleted, restricted to events
// authored by e.PubKey so a client can only delete its own events.
func ApplyDeletion(store *eventstore.Store, relayID string, e *nostrcore.Event) error {
	if e.Kind != nostrcore.KindDeletion {
		return nil
	}

	ids := e.Tags.Values("e")
	if len(ids) == 0 {
		return nil
	}

	f := &filter.Filter{IDs: ids, Authors: []string{e.PubKey}}
	if err := store.MarkDeleted(relayID, f); err != nil {
		return fmt.Errorf("policy: apply deletion: %w", err)
	}
	return nil
}
