package sheet

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxColumns is the widest row the xlsx format can address (column XFD).
const MaxColumns = excelize.MaxColumns

// ColumnName maps a zero-based column index to its spreadsheet letter label:
// 0 -> A, 25 -> Z, 26 -> AA, 701 -> ZZ, 702 -> AAA. It has no upper bound;
// callers writing to a workbook check MaxColumns separately.
func ColumnName(index int) string {
	if index < 0 {
		return ""
	}
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append(b, byte('A'+(n-1)%26))
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// ColumnIndex is the inverse of ColumnName. It accepts upper or lower case
// letters and reports false for anything else.
func ColumnIndex(name string) (int, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, false
	}
	n := 0
	for _, r := range name {
		if r < 'A' || r > 'Z' {
			return 0, false
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, true
}

// ParseCell validates a cell address such as "A1" or "$B$2" and returns its
// one-based column and row.
func ParseCell(ref string) (col, row int, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, 0, Errorf(EmptyInput, ref, "start cell is empty")
	}
	col, row, cerr := excelize.CellNameToCoordinates(strings.ReplaceAll(ref, "$", ""))
	if cerr != nil {
		return 0, 0, Wrap(InvalidCellReference, cerr, ref, "invalid cell %q", ref)
	}
	return col, row, nil
}

// CellName joins a zero-based column index and one-based row into "B7" form.
func CellName(index, row int) string {
	return ColumnName(index) + strconv.Itoa(row)
}
