package extractor

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/xerrors"
)

// Encoding describes a text encoding that documents may be decoded with.
type Encoding struct {
	Name   string
	Decode func(raw []byte) (string, error)
}

// DefaultEncodings lists the encodings attempted, in priority order, when
// no explicit list is configured.
var DefaultEncodings = []Encoding{
	{Name: "utf-8", Decode: decodeUTF8},
	{Name: "latin1", Decode: decodeWith(charmap.ISO8859_1)},
	{Name: "cp1252", Decode: decodeWith(charmap.Windows1252)},
	{Name: "iso-8859-1", Decode: decodeWith(charmap.ISO8859_1)},
}

var errInvalidUTF8 = xerrors.New("invalid utf-8 byte sequence")

func decodeUTF8(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", errInvalidUTF8
	}
	return string(raw), nil
}

func decodeWith(enc encoding.Encoding) func([]byte) (string, error) {
	return func(raw []byte) (string, error) {
		out, _, err := transform.Bytes(enc.NewDecoder(), raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// decode returns the text of raw using the first encoding that succeeds.
func decode(raw []byte, encodings []Encoding) (string, string, error) {
	for _, enc := range encodings {
		text, err := enc.Decode(raw)
		if err != nil {
			continue
		}
		return text, enc.Name, nil
	}
	return "", "", ErrUndecodable
}
