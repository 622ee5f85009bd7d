package core

// error_messages.go maps technical errors to user-facing messages.
//
// Each message carries a short code that shows up both in API responses and
// in the server log, so a report from the site can be matched to a log line:
//
//	DB001  duplicate id                 DB002  referenced venue missing
//	DB003  database unreachable         DB004  operation timed out
//	VAL001 rating out of range          VAL002 required field empty
//	VAL003 missing column in CSV        VAL004 malformed request body
//	VAL005 text too long                VAL006 unknown review status
//	NF001  record not found             FILE001 file not found
//	FILE002 unterminated quote          FILE003 encoding error
//	AUTH001 missing API key             RATE001 rate limited
//	ERR000 anything else

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// UserMessage is an error explained for the person who triggered it.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Use a different id or update the existing record",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "The referenced venue does not exist",
			Action:  "Import venues before their reviews and drinks",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "rating must be",
		msg: UserMessage{
			Message: "Rating must be between 1 and 5",
			Action:  "Pick a rating from 1 to 5",
			Code:    "VAL001",
		},
	},
	{
		pattern: "is required",
		msg: UserMessage{
			Message: "A required field is empty",
			Action:  "Fill in every required field",
			Code:    "VAL002",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from CSV",
			Action:  "Check the header row against the expected columns",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a JSON body matching the documented fields",
			Code:    "VAL004",
		},
	},
	{
		pattern: "must be at most",
		msg: UserMessage{
			Message: "Some text is longer than allowed",
			Action:  "Shorten the highlighted field and submit again",
			Code:    "VAL005",
		},
	},
	{
		pattern: "invalid status",
		msg: UserMessage{
			Message: "Unknown review status",
			Action:  "Use pending, approved or rejected",
			Code:    "VAL006",
		},
	},
	{
		pattern: "not found",
		msg: UserMessage{
			Message: "The requested record was not found",
			Action:  "Check the id and try again",
			Code:    "NF001",
		},
	},
	{
		pattern: "unterminated quoted field",
		msg: UserMessage{
			Message: "The CSV file has an unclosed quote",
			Action:  "Close the quote at the reported line and column",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8 or set IMPORT_ENCODING",
			Code:    "FILE003",
		},
	},
	{
		pattern: "api key",
		msg: UserMessage{
			Message: "Admin access requires a valid API key",
			Action:  "Send the X-API-Key header",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var fileNotFound = UserMessage{
	Message: "Input file not found",
	Action:  "Check the data directory and file name",
	Code:    "FILE001",
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Known error values are matched first, then message patterns
// (case-insensitive). Unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return fileNotFound
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
