package sheet

// dates.go converts between calendar strings and spreadsheet serial dates.
//
// A serial date counts days since 1899-12-30 with the time of day as the
// fraction, matching the 1900 date system of xlsx workbooks. Serials below 61
// carry the historical 1900-02-29 quirk: Serial skips the missing day and
// DateFromSerial adds it back.

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// unixEpochSerial is the serial number of 1970-01-01.
const unixEpochSerial = 25569

// exportDayOffset is applied to every date written by the export path.
// Existing workbooks depend on the exact value, so it is kept as is.
const exportDayOffset = -5.0 / 24

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are moved
// to the previous century.
var TwoDigitYearPivot = 20

// leapBugCutoff is the first date whose serial is unaffected by the
// fictitious 1900-02-29.
var leapBugCutoff = time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC)

// Layouts mirror what source files actually contain: ISO dates with optional
// time, slash dates month-first, dash and dot dates day-first, and a few
// written-out month forms.
var (
	fourDigitYearLayouts = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"2006/01/02 15:04:05",
		"2006.01.02",
		"1/2/2006", "01/02/2006", "1/2/2006 15:04:05", "01/02/2006 15:04",
		"2-1-2006", "02-01-2006", "2-1-2006 15:04:05",
		"2.1.2006", "02.01.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "2-1-06", "02-01-06", "2.1.06", "02.01.06",
	}
)

// ParseDate parses a calendar date or date-time string in loc.
// Reports false when no known layout matches.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// Serial converts a wall-clock time to its serial date. Only the calendar
// fields of t matter, its location is ignored.
func Serial(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	serial := float64(wall.Unix())/86400 + unixEpochSerial
	serial += float64(wall.Nanosecond()) / float64(24*time.Hour)
	if wall.Before(leapBugCutoff) {
		serial--
	}
	return serial
}

// ExportSerial converts a date string to the serial written by the export
// path: seconds since the Unix epoch of the instant the string names in loc,
// scaled to days, shifted to the spreadsheet epoch, plus exportDayOffset.
func ExportSerial(s string, loc *time.Location) (float64, bool) {
	t, ok := ParseDate(s, loc)
	if !ok {
		return 0, false
	}
	return float64(t.Unix())/86400 + unixEpochSerial + exportDayOffset, true
}

// DateFromSerial converts a serial date back into a UTC time.
func DateFromSerial(serial float64) (time.Time, error) {
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, Wrap(InvalidDateFormat, err, serial, "serial %v out of range", serial)
	}
	if serial > 0 && serial < 60 {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

// NormalizeDate turns a date cell into an ISO YYYY-MM-DD string by way of the
// serial representation, so the result is exactly what a workbook would
// show for the same cell. Values that are already serial numbers are
// accepted as such.
func NormalizeDate(value string, loc *time.Location) (string, error) {
	var serial float64
	if t, ok := ParseDate(value, loc); ok {
		serial = Serial(t)
	} else {
		trimmed := strings.TrimSpace(value)
		if !IsNumeric(trimmed) {
			return "", Errorf(InvalidDateFormat, value, "date %q is not in a recognized format", value)
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return "", Wrap(InvalidDateFormat, err, value, "date %q is not a valid serial", value)
		}
		serial = f
	}

	t, err := DateFromSerial(serial)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}
