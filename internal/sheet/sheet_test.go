package sheet

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnName(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{71, "BT"},
		{701, "ZZ"},
		{702, "AAA"},
		{16383, "XFD"},
		{-1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnName(tt.index))
		})
	}
}

func TestColumnIndex_RoundTrip(t *testing.T) {
	for i := 0; i < 20000; i += 37 {
		name := ColumnName(i)
		got, ok := ColumnIndex(name)
		require.True(t, ok, name)
		assert.Equal(t, i, got, name)
	}

	got, ok := ColumnIndex("bt")
	assert.True(t, ok)
	assert.Equal(t, 71, got)

	for _, bad := range []string{"", "A1", "1", "Ñ"} {
		_, ok := ColumnIndex(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseCell(t *testing.T) {
	col, row, err := ParseCell("B3")
	require.NoError(t, err)
	assert.Equal(t, 2, col)
	assert.Equal(t, 3, row)

	col, row, err = ParseCell(" $C$10 ")
	require.NoError(t, err)
	assert.Equal(t, 3, col)
	assert.Equal(t, 10, row)

	_, _, err = ParseCell("")
	assert.ErrorIs(t, err, ErrEmptyInput)

	for _, bad := range []string{"1A", "A0", "hello", "A-1"} {
		_, _, err = ParseCell(bad)
		assert.ErrorIs(t, err, ErrInvalidCellReference, bad)
	}
}

func TestErrorKinds(t *testing.T) {
	err := Errorf(ColumnCountMismatch, []string{"a"}, "row %d has %d cells, want %d", 2, 1, 3)
	assert.Equal(t, "column count mismatch: row 2 has 1 cells, want 3", err.Error())
	assert.ErrorIs(t, err, ErrColumnCountMismatch)
	assert.NotErrorIs(t, err, ErrInvalidDateFormat)

	wrapped := fmt.Errorf("import: %w", err)
	assert.Equal(t, ColumnCountMismatch, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))

	// Wrapping an *Error keeps its kind.
	rewrapped := Wrap(CodecFailure, err, nil, "reading rows")
	assert.Equal(t, ColumnCountMismatch, rewrapped.Kind)
	assert.Equal(t, []string{"a"}, rewrapped.Data)

	assert.Equal(t, "CODEC_FAILURE", CodecFailure.Code())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-03-15", "2024-03-15 00:00:00"},
		{"2024-03-15 13:45:10", "2024-03-15 13:45:10"},
		{"2024-03-15T08:00:00", "2024-03-15 08:00:00"},
		{"2024/03/15", "2024-03-15 00:00:00"},
		{"3/15/2024", "2024-03-15 00:00:00"},
		{"15-03-2024", "2024-03-15 00:00:00"},
		{"15.03.2024", "2024-03-15 00:00:00"},
		{"Mar 15, 2024", "2024-03-15 00:00:00"},
		{"20240315", "2024-03-15 00:00:00"},
		{"3/15/24", "2024-03-15 00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input, time.UTC)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Format("2006-01-02 15:04:05"))
		})
	}

	for _, bad := range []string{"", "not a date", "45366", "2024-13-40"} {
		_, ok := ParseDate(bad, time.UTC)
		assert.False(t, ok, bad)
	}
}

func TestSerial(t *testing.T) {
	assert.Equal(t, 45366.0, Serial(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 45366.5, Serial(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 25569.0, Serial(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 61.0, Serial(time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 59.0, Serial(time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC)))

	// Location does not shift the wall clock.
	mx := time.FixedZone("CST", -6*3600)
	assert.Equal(t, 45366.0, Serial(time.Date(2024, 3, 15, 0, 0, 0, 0, mx)))
}

func TestExportSerial(t *testing.T) {
	got, ok := ExportSerial("2024-03-15", time.UTC)
	require.True(t, ok)
	assert.Equal(t, float64(1710460800)/86400+25569+(-5.0/24), got)

	mx := time.FixedZone("CST", -6*3600)
	got, ok = ExportSerial("2024-03-15", mx)
	require.True(t, ok)
	assert.InDelta(t, 45366.0+1.0/24, got, 1e-9)

	_, ok = ExportSerial("tomorrow", time.UTC)
	assert.False(t, ok)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-03-15", "2024-03-15"},
		{"2024-03-15 23:59:59", "2024-03-15"},
		{"3/15/2024", "2024-03-15"},
		{"45366", "2024-03-15"},
		{"45366.75", "2024-03-15"},
		{"1900-01-01", "1900-01-01"},
		{"1900-02-28", "1900-02-28"},
		{"1900-03-01", "1900-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeDate(tt.input, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizeDate("someday", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidDateFormat)

	_, err = NormalizeDate("-3", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestDateFromSerial_Before1900March(t *testing.T) {
	tests := []struct {
		serial float64
		want   string
	}{
		{1, "1900-01-01"},
		{59, "1900-02-28"},
		{61, "1900-03-01"},
	}

	for _, tt := range tests {
		got, err := DateFromSerial(tt.serial)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), "serial %v", tt.serial)

		back := Serial(got)
		assert.Equal(t, tt.serial, back, "round trip of %s", tt.want)
	}
}

func TestBindValue(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"10.5", 10.5},
		{"0", 0.0},
		{"0.25", 0.25},
		{"-12", -12.0},
		{"1e3", 1000.0},
		{"007", "007"},
		{"0123", "0123"},
		{"$10.00", "$10.00"},
		{"1,000", "1,000"},
		{"Alice", "Alice"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, BindValue(tt.input))
		})
	}
}

func TestIsScalar(t *testing.T) {
	var nilText *string
	scalars := []any{nil, "x", 1, 2.5, true, time.Now(), nilText, pgtype.Text{String: "a", Valid: true}, pgtype.Text{}}
	for _, v := range scalars {
		assert.True(t, IsScalar(v), "%#v", v)
	}

	composites := []any{[]any{"a"}, map[string]any{"a": 1}, []string{}, struct{ A int }{1}}
	for _, v := range composites {
		assert.False(t, IsScalar(v), "%#v", v)
	}
}

func TestScalarString(t *testing.T) {
	assert.Equal(t, "", ScalarString(nil))
	assert.Equal(t, "abc", ScalarString("abc"))
	assert.Equal(t, "10.5", ScalarString(10.5))
	assert.Equal(t, "3", ScalarString(3))
	assert.Equal(t, "1", ScalarString(true))
	assert.Equal(t, "", ScalarString(false))
	assert.Equal(t, "x", ScalarString(pgtype.Text{String: "x", Valid: true}))
	assert.Equal(t, "", ScalarString(pgtype.Text{}))
	assert.Equal(t, "2024-03-15 10:00:00", ScalarString(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)))
}
