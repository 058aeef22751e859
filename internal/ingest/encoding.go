package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var ErrUnknownEncoding = errors.New("unknown encoding")

// DefaultEncoding is the legacy Western European encoding of the utility exports.
const DefaultEncoding = "iso-8859-1"

var encodings = map[string]encoding.Encoding{
	"iso-8859-1":   charmap.ISO8859_1,
	"iso8859-1":    charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"latin-1":      charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

// Lookup resolves an encoding name. Empty and utf-8 names resolve to UTF-8
// with an optional byte order mark.
func Lookup(name string) (encoding.Encoding, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	default:
		enc, ok := encodings[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
		}
		return enc, nil
	}
}

// Decode wraps r so that it yields UTF-8.
func Decode(r io.Reader, name string) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
