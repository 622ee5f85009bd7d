// Package export writes mapped records as a generated source file that binds
// an exported constant to a JSON array literal, and edits such files in place
// for the merge command.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Header is the first line of every generated file.
const Header = "// Code generated by lozio import; DO NOT EDIT."

// closeMarker ends the array literal.
const closeMarker = "];"

const indent = "  "

// ErrMarkerNotFound is returned when a file has no closing array marker.
var ErrMarkerNotFound = errors.New("closing array marker not found")

// Write encodes records as
//
//	export const <constName> = [ ... ];
//
// preceded by Header. A nil slice is written as an empty array.
func Write(w io.Writer, constName string, records []any) error {
	if records == nil {
		records = []any{}
	}
	data, err := marshal(records, "")
	if err != nil {
		return fmt.Errorf("encode %s: %w", constName, err)
	}
	_, err = fmt.Fprintf(w, "%s\n\nexport const %s = %s;\n", Header, constName, data)
	return err
}

// Render returns the file content Write would produce.
func Render(constName string, records []any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, constName, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path atomically: the content goes to a temporary
// file in the same directory which is then renamed over path.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// marshal encodes v as indented JSON without HTML escaping, so text such as
// "Rum & Co" stays readable in the generated file.
func marshal(v any, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// arrayBounds returns the offsets of the opening '[' and the closing "];".
func arrayBounds(content string) (start, end int, err error) {
	end = strings.LastIndex(content, closeMarker)
	if end < 0 {
		return 0, 0, ErrMarkerNotFound
	}
	eq := strings.Index(content, "=")
	if eq < 0 || eq > end {
		return 0, 0, fmt.Errorf("no array assignment before closing marker")
	}
	start = strings.Index(content[eq:], "[")
	if start < 0 || eq+start > end {
		return 0, 0, fmt.Errorf("no array literal before closing marker")
	}
	return eq + start, end, nil
}

// ReadIDs returns the values stored under idKey in every object of the
// file's array, in file order. Objects without the key are ignored.
func ReadIDs(content, idKey string) ([]string, error) {
	start, end, err := arrayBounds(content)
	if err != nil {
		return nil, err
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("parse existing array: %w", err)
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		raw, ok := item[idKey]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = strings.Trim(string(raw), `"`)
		}
		if s != "" {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// InsertBeforeClose appends records to the array in content, just before the
// closing marker, and returns the new content. Existing text is unchanged.
func InsertBeforeClose(content string, records []any) (string, error) {
	start, end, err := arrayBounds(content)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return content, nil
	}

	parts := make([]string, len(records))
	for i, rec := range records {
		data, err := marshal(rec, indent)
		if err != nil {
			return "", fmt.Errorf("encode record %d: %w", i, err)
		}
		parts[i] = indent + string(data)
	}
	added := strings.Join(parts, ",\n")

	body := strings.TrimRight(content[:end], " \t\r\n")
	empty := len(body) == start+1

	var b strings.Builder
	b.WriteString(body)
	if !empty {
		b.WriteString(",")
	}
	b.WriteString("\n")
	b.WriteString(added)
	b.WriteString("\n")
	b.WriteString(content[end:])
	return b.String(), nil
}
