package storage

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// DefaultEncoder is the default binary encoding pipeline: CBOR in canonical
// form, zlib deflate at best compression, then lowercase hex ASCII (MSB
// nibble first) so the result is safe for text-oriented backings.
//
// Decode accepts uppercase hex digits and reverses each layer, failing with
// a *DecodeError naming the layer that rejected the input.
type DefaultEncoder struct{}

// Default is the encoder used by backings unless overridden.
var Default Encoder = DefaultEncoder{}

// cborMode is the canonical encode mode shared by all encodes.
var cborMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Encode serializes v through the cbor -> zlib -> hex pipeline.
func (DefaultEncoder) Encode(v any) (Encoded, error) {
	data, err := cborMode.Marshal(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return hexEncode(buf.Bytes()), nil
}

// hexEncode renders the compressed bytes as lowercase hex ASCII, most
// significant nibble first.
func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// hexDecode reverses hexEncode. Uppercase digits are accepted.
func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// Decode reverses the pipeline into the value pointed to by into.
func (DefaultEncoder) Decode(e Encoded, into any) error {
	s, err := encodedString(e)
	if err != nil {
		return &DecodeError{Stage: "input", Err: err}
	}

	raw, err := hexDecode(s)
	if err != nil {
		return &DecodeError{Input: s, Stage: "hex", Err: err}
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return &DecodeError{Input: s, Stage: "zlib", Err: err}
	}
	data, err := io.ReadAll(zr)
	if cerr := zr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &DecodeError{Input: s, Stage: "zlib", Err: err}
	}

	if err := cbor.Unmarshal(data, into); err != nil {
		return &DecodeError{Input: s, Stage: "cbor", Err: err}
	}
	return nil
}
