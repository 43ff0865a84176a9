package nostrcore

import "errors"

var (
	// ErrBadID is returned when an event's advertised id does not match
	// the hash of its canonical serialization.
	ErrBadID = errors.New("nostrcore: bad id")

	// ErrBadSignature is returned when an event's sig does not verify
	// against its id under its pubkey.
	ErrBadSignature = errors.New("nostrcore: bad signature")
)
