package nostrcore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// ComputeID returns the lowercase-hex sha256 of the event's canonical
// serialization.
func ComputeID(e *Event) string {
	sum := sha256.Sum256(Canonicalize(e))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the event id and checks it against the advertised
// id, then verifies the Schnorr signature over the id bytes under the
// event's pubkey. It returns ErrBadID or ErrBadSignature on failure.
func Verify(e *Event) error {
	want := ComputeID(e)
	if !strings.EqualFold(want, e.ID) {
		return ErrBadID
	}

	idBytes, err := hex.DecodeString(want)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadID, err)
	}

	pubKeyBytes, err := hex.DecodeString(e.PubKey)
	if err != nil {
		return fmt.Errorf("%w: bad pubkey encoding", ErrBadSignature)
	}
	pubKey, err := schnorr.ParsePubKey(pubKeyBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	sigBytes, err := hex.DecodeString(e.Sig)
	if err != nil {
		return fmt.Errorf("%w: bad signature encoding", ErrBadSignature)
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	if !sig.Verify(idBytes, pubKey) {
		return ErrBadSignature
	}

	return nil
}
