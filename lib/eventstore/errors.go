package eventstore

import "errors"

var (
	// ErrDuplicate is returned by Put when (relay_id, id) already exists.
	ErrDuplicate = errors.New("eventstore: duplicate event")

	// ErrEmptyFilter is returned by MarkDeleted/Delete when called with
	// a filter that carries no predicates.
	ErrEmptyFilter = errors.New("eventstore: refusing empty filter")

	// ErrStorage wraps underlying driver failures.
	ErrStorage = errors.New("eventstore: storage error")
)
