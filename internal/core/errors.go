package core

// errors.go maps technical errors to user-friendly messages with codes
// for support reference. Patterns are matched case-insensitively with
// strings.Contains; the first match wins, so specific patterns precede
// general ones.
//
// Code ranges:
//
//	FILE001-FILE099  file handling and parsing
//	VAL001-VAL099    validation and format checks
//	REG001-REG099    registry matching
//	DB001-DB099      run history persistence
//	MAIL001-MAIL099  report delivery
//	RATE001-RATE099  request throttling
//	ERR000           fallback when nothing matches

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable
// guidance.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors.
	{
		pattern: "no data rows",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a spreadsheet with data rows",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE002",
		},
	},
	{
		pattern: "parse",
		msg: UserMessage{
			Message: "File could not be parsed",
			Action:  "Ensure the file is a valid CSV saved as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},

	// Validation errors.
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "Required columns are missing from the file",
			Action:  "Check that the identity columns are present",
			Code:    "VAL001",
		},
	},
	{
		pattern: "no validation result",
		msg: UserMessage{
			Message: "Validation has not been run yet",
			Action:  "Run validation before exporting",
			Code:    "VAL002",
		},
	},
	{
		pattern: "unknown export kind",
		msg: UserMessage{
			Message: "Unknown export type",
			Action:  "Use valid, invalid or cleaned",
			Code:    "VAL003",
		},
	},

	// Registry matching errors.
	{
		pattern: "matching already in progress",
		msg: UserMessage{
			Message: "A matching run is already in progress for this file",
			Action:  "Wait for it to finish or cancel it first",
			Code:    "REG001",
		},
	},
	{
		pattern: "no completed matching run",
		msg: UserMessage{
			Message: "No completed matching run exists for this file",
			Action:  "Start a matching run first",
			Code:    "REG002",
		},
	},
	{
		pattern: "too many concurrent matching runs",
		msg: UserMessage{
			Message: "The system is busy matching other files",
			Action:  "Please wait a moment and try again",
			Code:    "REG003",
		},
	},
	{
		pattern: "registry",
		msg: UserMessage{
			Message: "The registry service could not be reached",
			Action:  "Please try again in a few moments",
			Code:    "REG004",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Upload session not found",
			Action:  "The session may have expired. Please upload the file again",
			Code:    "REG005",
		},
	},

	// Persistence errors.
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB003",
		},
	},

	// Delivery errors.
	{
		pattern: "smtp",
		msg: UserMessage{
			Message: "The report email could not be sent",
			Action:  "Check the recipient address and try again",
			Code:    "MAIL001",
		},
	},

	// Cancellation and throttling.
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "ERR001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "ERR002",
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

// defaultMessage is the ERR000 fallback. Support staff should check the
// logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. The
// first matching pattern wins; unmatched errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders the mapped message for display, in the form
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether the error matches a known pattern rather
// than the generic fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
