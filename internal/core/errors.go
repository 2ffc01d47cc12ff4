package core

// errors.go defines the engine's error types and maps technical errors to
// user-friendly messages with codes for support reference. Evaluation
// itself is total and never produces errors; everything here concerns the
// edges: decoding source bytes, importing configurations, and the
// suggestion integration.

import (
	"errors"
	"fmt"
	"strings"
)

// DecodeError reports that source bytes could not be decoded under the
// selected encoding. The previously decoded grid is retained by the
// session; the user may retry with a different encoding.
type DecodeError struct {
	Encoding string
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Encoding, e.Reason)
}

// ConfigParseError reports that an imported configuration document is not
// well-formed. The current configuration is retained unchanged.
type ConfigParseError struct {
	Reason string
	Err    error
}

func (e *ConfigParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration parse: %s: %v", e.Reason, e.Err)
	}
	return "configuration parse: " + e.Reason
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// ErrNoSource is returned by session operations that need a loaded
// source file when none has been uploaded yet.
var ErrNoSource = errors.New("no source file loaded")

// UserMessage provides user-friendly error information with actionable
// guidance and a code for support reference.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// MapError converts a technical error to a user-friendly message.
//
// Typed errors are matched first; remaining errors fall through a small
// pattern table (case-insensitive substring match, first match wins,
// specific patterns before general ones). Unmatched errors get the
// generic ERR000 message, and the technical detail stays in the server
// logs.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{Message: "Success", Code: "OK"}
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return UserMessage{
			Message: fmt.Sprintf("The file could not be read as %s", decodeErr.Encoding),
			Action:  "Select a different character encoding and try again",
			Code:    "ENC001",
		}
	}

	var parseErr *ConfigParseError
	if errors.As(err, &parseErr) {
		return UserMessage{
			Message: "The configuration document is not valid",
			Action:  "Re-export the configuration from the sender and import it again",
			Code:    "CFG001",
		}
	}

	if errors.Is(err, ErrNoSource) {
		return UserMessage{
			Message: "No source file has been loaded",
			Action:  "Upload a source file first",
			Code:    "SRC001",
		}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}

	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support with the error code",
		Code:    "ERR000",
	}
}

// errorPattern defines a pattern to match and its corresponding message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Export a smaller slice of the question bank and retry",
			Code:    "FILE002",
		},
	},
	{
		pattern: "field not found",
		msg: UserMessage{
			Message: "The output field no longer exists",
			Action:  "Refresh the field list and retry",
			Code:    "FLD001",
		},
	},
	{
		pattern: "unsupported encoding",
		msg: UserMessage{
			Message: "The selected encoding is not supported",
			Action:  "Choose one of the listed encodings",
			Code:    "ENC002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Please try again",
			Code:    "ERR001",
		},
	},
}
