package storage

import "fmt"

// DecodeError reports that stored bytes could not be parsed back into a
// value. Input carries the offending encoded form, Stage the pipeline layer
// that rejected it (for the default encoder: "hex", "zlib" or "cbor").
type DecodeError struct {
	Input string
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	in := e.Input
	if len(in) > 64 {
		in = in[:64] + "..."
	}
	return fmt.Sprintf("storage: decode failed at %s stage: %v (input %q)", e.Stage, e.Err, in)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// encodedString asserts that an encoded value is the string form used by
// text-oriented backings.
func encodedString(e Encoded) (string, error) {
	s, ok := e.(string)
	if !ok {
		return "", fmt.Errorf("storage: encoded value is %T, want string", e)
	}
	return s, nil
}
