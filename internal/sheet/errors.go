// Package sheet holds the primitives shared by the import and export paths:
// structured error kinds, spreadsheet column letters and cell references,
// serial-date conversion and scalar value binding.
package sheet

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it without parsing
// messages.
type Kind int

const (
	KindUnknown Kind = iota
	EmptyInput
	SourceNotFound
	InvalidCellReference
	ColumnCountMismatch
	InvalidDateFormat
	ConfigError
	ColumnOverflow
	NonScalarCell
	EmptyName
	CodecFailure
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown error",
	EmptyInput:           "empty input",
	SourceNotFound:       "source not found",
	InvalidCellReference: "invalid cell reference",
	ColumnCountMismatch:  "column count mismatch",
	InvalidDateFormat:    "invalid date format",
	ConfigError:          "config error",
	ColumnOverflow:       "column overflow",
	NonScalarCell:        "non-scalar cell",
	EmptyName:            "empty name",
	CodecFailure:         "codec failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Code returns a stable machine-readable identifier for the kind.
func (k Kind) Code() string {
	switch k {
	case EmptyInput:
		return "EMPTY_INPUT"
	case SourceNotFound:
		return "SOURCE_NOT_FOUND"
	case InvalidCellReference:
		return "INVALID_CELL_REFERENCE"
	case ColumnCountMismatch:
		return "COLUMN_COUNT_MISMATCH"
	case InvalidDateFormat:
		return "INVALID_DATE_FORMAT"
	case ConfigError:
		return "CONFIG_ERROR"
	case ColumnOverflow:
		return "COLUMN_OVERFLOW"
	case NonScalarCell:
		return "NON_SCALAR_CELL"
	case EmptyName:
		return "EMPTY_NAME"
	case CodecFailure:
		return "CODEC_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Error is the single error shape returned by the import and export paths.
// Data carries the offending value for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Data    any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so the
// Err* sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrEmptyInput           = &Error{Kind: EmptyInput}
	ErrSourceNotFound       = &Error{Kind: SourceNotFound}
	ErrInvalidCellReference = &Error{Kind: InvalidCellReference}
	ErrColumnCountMismatch  = &Error{Kind: ColumnCountMismatch}
	ErrInvalidDateFormat    = &Error{Kind: InvalidDateFormat}
	ErrConfig               = &Error{Kind: ConfigError}
	ErrColumnOverflow       = &Error{Kind: ColumnOverflow}
	ErrNonScalarCell        = &Error{Kind: NonScalarCell}
	ErrEmptyName            = &Error{Kind: EmptyName}
	ErrCodecFailure         = &Error{Kind: CodecFailure}
)

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind Kind, data any, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Data:    data,
	}
}

// Wrap converts a lower-level error into an *Error of the given kind.
// An err that is already an *Error keeps its kind and gains the message as context.
func Wrap(kind Kind, err error, data any, format string, args ...any) *Error {
	var se *Error
	if errors.As(err, &se) {
		kind = se.Kind
		if data == nil {
			data = se.Data
		}
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Data:    data,
		Err:     err,
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
