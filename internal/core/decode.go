package core

// decode.go turns raw file bytes into the text handed to the CSV parser.
//
// Spreadsheet exports from Windows commonly arrive with a UTF-8 BOM or in a
// legacy single-byte code page. DecodeText normalises both and replaces any
// invalid UTF-8 that remains with U+FFFD so a bad byte never aborts an import.

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encodings lists the accepted input encoding names.
var Encodings = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
}

// stripBOM removes a leading UTF-8 byte order mark.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// DecodeText converts data to a UTF-8 string. enc is "" or "utf-8" for
// UTF-8 input, otherwise one of the names in Encodings.
func DecodeText(data []byte, enc string) (string, error) {
	data = stripBOM(data)

	switch name := strings.ToLower(strings.TrimSpace(enc)); name {
	case "", "utf-8", "utf8":
	default:
		e, ok := Encodings[name]
		if !ok {
			return "", fmt.Errorf("encoding error: unsupported input encoding %q", enc)
		}
		decoded, _, err := transform.Bytes(e.NewDecoder(), data)
		if err != nil {
			return "", fmt.Errorf("encoding error: decode %s: %w", name, err)
		}
		data = decoded
	}

	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
