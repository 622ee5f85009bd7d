// Package csvparse tokenizes comma-separated text into rows of string fields.
//
// The reader is deliberately more forgiving than encoding/csv: a bare quote in
// the middle of an unquoted field is kept verbatim, rows may have any number
// of fields, and in permissive mode an unterminated quoted field absorbs the
// rest of the input instead of failing. Use [ParseStrict] to reject the latter.
package csvparse

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnterminatedQuote is returned by ParseStrict when a quoted field has no
// closing quote before the end of the input.
var ErrUnterminatedQuote = errors.New("unterminated quoted field")

// ParseError reports the position of the quote that opened an unterminated field.
// Line and Column are 1-based; Column counts bytes.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse splits text into rows. It never fails: an unterminated quote swallows
// the remainder of the text into a single field.
func Parse(text string) [][]string {
	rows, _ := scan(text, false)
	return rows
}

// ParseStrict behaves like Parse but returns a *ParseError when a quoted field
// is not closed.
func ParseStrict(text string) ([][]string, error) {
	return scan(text, true)
}

type scanner struct {
	text string
	pos  int

	// line and lineStart track the position for error reporting.
	line      int
	lineStart int
}

func scan(text string, strict bool) ([][]string, error) {
	s := &scanner{text: text, line: 1}

	var rows [][]string
	for s.pos < len(s.text) {
		row, err := s.readRow(strict)
		if err != nil {
			return rows, err
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// readRow consumes fields until a record separator or the end of the text.
// A line holding nothing but a record separator yields no fields.
func (s *scanner) readRow(strict bool) ([]string, error) {
	var (
		row    []string
		quoted bool
	)
	for {
		var (
			field string
			err   error
		)
		if s.pos < len(s.text) && s.text[s.pos] == '"' {
			field, err = s.readQuoted(strict)
			if err != nil {
				return nil, err
			}
			// Text between a closing quote and the separator stays in the field.
			field += s.readBare()
			quoted = true
		} else {
			field = s.readBare()
		}
		row = append(row, field)

		if len(row) == 1 && !quoted && field == "" && s.atRowEnd() {
			s.skipRowEnd()
			return nil, nil
		}

		if s.pos >= len(s.text) {
			return row, nil
		}

		switch s.text[s.pos] {
		case ',':
			s.pos++
			// A trailing comma at end of text still denotes one more empty field.
			if s.pos >= len(s.text) {
				return append(row, ""), nil
			}
		default:
			s.skipRowEnd()
			return row, nil
		}
	}
}

func (s *scanner) atRowEnd() bool {
	return s.pos >= len(s.text) || s.text[s.pos] == '\r' || s.text[s.pos] == '\n'
}

// skipRowEnd consumes one record separator, treating CRLF as a single one.
func (s *scanner) skipRowEnd() {
	if s.pos >= len(s.text) {
		return
	}
	if s.text[s.pos] == '\r' {
		s.pos++
		if s.pos < len(s.text) && s.text[s.pos] == '\n' {
			s.pos++
		}
	} else {
		s.pos++
	}
	s.newline()
}

func (s *scanner) readBare() string {
	start := s.pos
	for s.pos < len(s.text) {
		switch s.text[s.pos] {
		case ',', '\r', '\n':
			return s.text[start:s.pos]
		}
		s.pos++
	}
	return s.text[start:]
}

func (s *scanner) readQuoted(strict bool) (string, error) {
	openLine, openCol := s.line, s.pos-s.lineStart+1
	s.pos++ // opening quote

	var b strings.Builder
	for s.pos < len(s.text) {
		c := s.text[s.pos]
		if c == '"' {
			if s.pos+1 < len(s.text) && s.text[s.pos+1] == '"' {
				b.WriteByte('"')
				s.pos += 2
				continue
			}
			s.pos++
			return b.String(), nil
		}
		if c == '\n' {
			b.WriteByte(c)
			s.pos++
			s.newline()
			continue
		}
		b.WriteByte(c)
		s.pos++
	}

	if strict {
		return "", &ParseError{Line: openLine, Column: openCol, Err: ErrUnterminatedQuote}
	}
	return b.String(), nil
}

func (s *scanner) newline() {
	s.line++
	s.lineStart = s.pos
}
