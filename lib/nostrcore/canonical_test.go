package nostrcore

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeEscaping(t *testing.T) {
	e := &Event{
		PubKey:    "abc",
		CreatedAt: 1700000000,
		Kind:      1,
		Tags:      Tags{{"e", "abc"}, {"p", "def"}},
		Content:   "hello \"world\"\nline2",
	}

	got := string(Canonicalize(e))
	want := `[0,"abc",1700000000,1,[["e","abc"],["p","def"]],"hello \"world\"\nline2"]`
	assert.Equal(t, want, got)
}

func TestCanonicalizeControlChars(t *testing.T) {
	e := &Event{Content: "\x01\x1f"}
	got := string(Canonicalize(e))
	want := "[0,\"\",0,0,[],\"\\u0001\\u001f\"]"
	assert.Equal(t, want, got)
}

func signedEvent(t *testing.T, priv *btcec.PrivateKey, content string) *Event {
	t.Helper()

	pubKeyHex := hex.EncodeToString(schnorr.SerializePubKey(priv.PubKey()))

	e := &Event{
		PubKey:    pubKeyHex,
		CreatedAt: 1700000000,
		Kind:      1,
		Tags:      Tags{},
		Content:   content,
	}
	e.ID = ComputeID(e)

	idBytes, err := hex.DecodeString(e.ID)
	require.NoError(t, err)

	sig, err := schnorr.Sign(priv, idBytes)
	require.NoError(t, err)
	e.Sig = hex.EncodeToString(sig.Serialize())

	return e
}

func TestVerifyRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	e := signedEvent(t, priv, "hello")
	require.NoError(t, Verify(e))

	corrupted := *e
	corrupted.Content = "tampered"
	assert.ErrorIs(t, Verify(&corrupted), ErrBadID)
}

func TestVerifyBadSignature(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	e := signedEvent(t, priv, "hello")

	sigBytes, err := hex.DecodeString(e.Sig)
	require.NoError(t, err)
	sigBytes[0] ^= 0xff
	e.Sig = hex.EncodeToString(sigBytes)

	assert.ErrorIs(t, Verify(e), ErrBadSignature)
}
