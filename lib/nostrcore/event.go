// Package nostrcore implements the event model: canonical serialization,
// id computation, and Schnorr signature verification.
package nostrcore

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Tags is an ordered sequence of tag rows; each row's first element is the
// tag name, the second its value, the rest arbitrary extra elements.
type Tags [][]string

// Values returns the value (second element) of every row named name.
func (t Tags) Values(name string) []string {
	var out []string
	for _, row := range t {
		if len(row) >= 2 && row[0] == name {
			out = append(out, row[1])
		}
	}
	return out
}

// Event is an immutable, content-addressed protocol record.
type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`

	// SizeBytes is storage-accounting size, derived and not authenticated.
	SizeBytes int `json:"-"`
}

// KindDeletion is the protocol-defined deletion event kind (NIP-09).
const KindDeletion = 5

func (e *Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal((*alias)(e))
}

func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	if err := json.Unmarshal(data, (*alias)(e)); err != nil {
		return err
	}
	e.SizeBytes = len(data)
	return nil
}
