package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// Structured *sheet.Error values are mapped by kind. Anything else is
// matched against a list of lower-case substrings; the first match wins.
//
// # Import errors (IMP001-IMP099)
//
//	IMP001 - A required value is empty (blank path, start cell or column)
//	IMP002 - The file does not exist
//	IMP003 - The start cell is not a valid cell address
//	IMP004 - A row has a different number of columns than the header
//	IMP005 - A date cell could not be read as a date
//
// # Export errors (EXP001-EXP099)
//
//	EXP001 - More columns than a sheet can hold
//	EXP002 - A field holds a list or object instead of a single value
//	EXP003 - The workbook name is empty
//
// # File errors (FILE001-FILE099)
//
//	FILE001 - The workbook or CSV could not be read or written
//	FILE002 - The upload exceeds the size limit
//	FILE003 - No file was attached to the request
//
// # Jobs and requests (JOB001-JOB099, RATE001)
//
//	JOB001 - All job slots are busy
//	JOB002 - The request was cancelled
//	JOB003 - The request timed out
//	RATE001 - Too many requests from this client
//
// # Configuration (CFG001)
//
//	CFG001 - The pattern catalog or another setting is invalid
//
// ERR000 is the fallback; the original error is in the server log.

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheets/internal/sheet"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
	Status  int    `json:"-"`
}

var kindMessages = map[sheet.Kind]UserMessage{
	sheet.EmptyInput: {
		Message: "A required value is empty",
		Action:  "Provide the file and the start cell",
		Code:    "IMP001",
		Status:  http.StatusBadRequest,
	},
	sheet.SourceNotFound: {
		Message: "The file does not exist",
		Action:  "Check the path and try again",
		Code:    "IMP002",
		Status:  http.StatusNotFound,
	},
	sheet.InvalidCellReference: {
		Message: "Invalid cell or column reference",
		Action:  "Use a cell address such as A1 or a column letter such as B",
		Code:    "IMP003",
		Status:  http.StatusBadRequest,
	},
	sheet.ColumnCountMismatch: {
		Message: "A row does not have the same number of columns as the header",
		Action:  "Make every row as wide as the column list",
		Code:    "IMP004",
		Status:  http.StatusUnprocessableEntity,
	},
	sheet.InvalidDateFormat: {
		Message: "A date column contains a value that is not a date",
		Action:  "Use YYYY-MM-DD, MM/DD/YYYY or a spreadsheet date",
		Code:    "IMP005",
		Status:  http.StatusUnprocessableEntity,
	},
	sheet.ColumnOverflow: {
		Message: "Too many columns for one sheet",
		Action:  "Export at most 16384 columns",
		Code:    "EXP001",
		Status:  http.StatusUnprocessableEntity,
	},
	sheet.NonScalarCell: {
		Message: "A field holds a list or object instead of a single value",
		Action:  "Flatten the record before exporting",
		Code:    "EXP002",
		Status:  http.StatusUnprocessableEntity,
	},
	sheet.EmptyName: {
		Message: "The workbook name is empty",
		Action:  "Give the export a name",
		Code:    "EXP003",
		Status:  http.StatusBadRequest,
	},
	sheet.CodecFailure: {
		Message: "The file could not be read or written",
		Action:  "Make sure it is a valid xlsx or CSV file",
		Code:    "FILE001",
		Status:  http.StatusUnprocessableEntity,
	},
	sheet.ConfigError: {
		Message: "The server configuration is invalid",
		Action:  "Contact support",
		Code:    "CFG001",
		Status:  http.StatusInternalServerError,
	},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are tried in order for errors that carry no kind.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file exceeds the size limit",
			Action:  "Split the file into smaller parts",
			Code:    "FILE002",
			Status:  http.StatusRequestEntityTooLarge,
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The file exceeds the size limit",
			Action:  "Split the file into smaller parts",
			Code:    "FILE002",
			Status:  http.StatusRequestEntityTooLarge,
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "No file was attached",
			Action:  "Attach the file in the \"file\" field",
			Code:    "FILE003",
			Status:  http.StatusBadRequest,
		},
	},
	{
		pattern: "too many concurrent jobs",
		msg: UserMessage{
			Message: "The server is busy with other jobs",
			Action:  "Wait a moment and try again",
			Code:    "JOB001",
			Status:  http.StatusServiceUnavailable,
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "JOB002",
			Status:  499,
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "JOB003",
			Status:  http.StatusGatewayTimeout,
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
			Status:  http.StatusTooManyRequests,
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts an error to a user-friendly message. The zero
// UserMessage is returned for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var se *sheet.Error
	if errors.As(err, &se) {
		if msg, ok := kindMessages[se.Kind]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
