package filter

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wireFilter mirrors the JSON shape of a filter object on the wire:
// ids/authors/kinds/since/until/limit plus any number of "#<letter>"
// keys, which UnmarshalJSON below folds into Filter.Tags.
type wireFilter struct {
	IDs     []string `json:"ids,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Kinds   []int    `json:"kinds,omitempty"`
	Since   *int64   `json:"since,omitempty"`
	Until   *int64   `json:"until,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// UnmarshalJSON decodes a filter object, including any "#<letter>" tag
// predicates, which JSON's struct tags cannot express directly.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var w wireFilter
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	tags := map[string][]string{}
	for key, val := range raw {
		if !strings.HasPrefix(key, "#") || len(key) != 2 {
			continue
		}
		var values []string
		if err := json.Unmarshal(val, &values); err != nil {
			return err
		}
		tags[key[1:]] = values
	}

	f.IDs = w.IDs
	f.Authors = w.Authors
	f.Kinds = w.Kinds
	f.Since = w.Since
	f.Until = w.Until
	f.Limit = w.Limit
	f.Tags = tags
	return nil
}

// MarshalJSON encodes a filter back to wire form, including its tag
// predicates as "#<letter>" keys.
func (f *Filter) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	if len(f.IDs) > 0 {
		out["ids"] = f.IDs
	}
	if len(f.Authors) > 0 {
		out["authors"] = f.Authors
	}
	if len(f.Kinds) > 0 {
		out["kinds"] = f.Kinds
	}
	if f.Since != nil {
		out["since"] = *f.Since
	}
	if f.Until != nil {
		out["until"] = *f.Until
	}
	if f.Limit > 0 {
		out["limit"] = f.Limit
	}
	for name, values := range f.Tags {
		out["#"+name] = values
	}
	return json.Marshal(out)
}
