package core

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "duplicate key maps correctly",
			err:         errors.New("ERROR: duplicate key value violates unique constraint \"venues_pkey\""),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
		{
			name:        "foreign key maps correctly",
			err:         errors.New("insert or update on table \"reviews\" violates foreign key constraint"),
			wantCode:    "DB002",
			wantMessage: "The referenced venue does not exist",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			wantCode:    "DB003",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "timeout maps correctly",
			err:         errors.New("context deadline exceeded"),
			wantCode:    "DB004",
			wantMessage: "Operation timed out",
		},
		{
			name:        "rating out of range",
			err:         errors.New("rating must be between 1 and 5"),
			wantCode:    "VAL001",
			wantMessage: "Rating must be between 1 and 5",
		},
		{
			name:        "missing column",
			err:         errors.New("missing required column id"),
			wantCode:    "VAL003",
			wantMessage: "Required column is missing from CSV",
		},
		{
			name:        "body too long",
			err:         errors.New("body must be at most 4000 characters"),
			wantCode:    "VAL005",
			wantMessage: "Some text is longer than allowed",
		},
		{
			name:        "unknown status",
			err:         errors.New(`invalid status "hidden"`),
			wantCode:    "VAL006",
			wantMessage: "Unknown review status",
		},
		{
			name:        "wrapped not found",
			err:         fmt.Errorf("get venue: %w", errors.New("venue not found")),
			wantCode:    "NF001",
			wantMessage: "The requested record was not found",
		},
		{
			name:        "missing file",
			err:         fmt.Errorf("read venues.csv: %w", fs.ErrNotExist),
			wantCode:    "FILE001",
			wantMessage: "Input file not found",
		},
		{
			name:        "unterminated quote",
			err:         errors.New("line 3, column 3: unterminated quoted field"),
			wantCode:    "FILE002",
			wantMessage: "The CSV file has an unclosed quote",
		},
		{
			name:        "case insensitive",
			err:         errors.New("RATE LIMIT exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error uses default",
			err:         errors.New("something strange"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(errors.New("rating must be between 1 and 5"))
	want := "Rating must be between 1 and 5 (Code: VAL001). Pick a rating from 1 to 5"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}
