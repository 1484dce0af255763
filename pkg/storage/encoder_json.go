package storage

import "encoding/json"

// JSONEncoder stores values as pretty-printed JSON for human inspection.
// Slower and larger than the default pipeline, but the stored files can be
// read and edited by hand.
type JSONEncoder struct {
	// Indent is the indentation unit. Empty means two spaces.
	Indent string
}

func (e JSONEncoder) indent() string {
	if e.Indent == "" {
		return "  "
	}
	return e.Indent
}

// Encode renders v as indented JSON.
func (e JSONEncoder) Encode(v any) (Encoded, error) {
	b, err := json.MarshalIndent(v, "", e.indent())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Decode parses JSON into the value pointed to by into.
func (e JSONEncoder) Decode(enc Encoded, into any) error {
	s, err := encodedString(enc)
	if err != nil {
		return &DecodeError{Stage: "input", Err: err}
	}
	if err := json.Unmarshal([]byte(s), into); err != nil {
		return &DecodeError{Input: s, Stage: "json", Err: err}
	}
	return nil
}
