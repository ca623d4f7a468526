// Package importer reads spreadsheet files into row records.
//
// A source (xlsx workbook or CSV file) is cut into a Grid starting at a given
// cell. The first grid row names the columns; every following row becomes a
// Record keyed by those names. Cells listed as dates are normalized to
// YYYY-MM-DD through the serial-date representation, so the output matches
// what a workbook would display for the same value.
package importer

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/JonMunkholm/sheets/internal/sheet"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultStartCell is where reads begin when no start cell is given.
const DefaultStartCell = "A1"

// Grid is a rectangular block of nullable cell values.
type Grid [][]pgtype.Text

// Record is one imported row keyed by column name. Null cells are kept as
// invalid pgtype.Text values.
type Record map[string]pgtype.Text

// MarshalJSON writes null cells as JSON null.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]*string, len(r))
	for k, v := range r {
		if v.Valid {
			s := v.String
			out[k] = &s
		} else {
			out[k] = nil
		}
	}
	return json.Marshal(out)
}

// Get returns the cell value for key, or "" when it is null or absent.
func (r Record) Get(key string) string {
	return r[key].String
}

// Result is a full read: the header row and the records below it.
type Result struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Options tune how sources are decoded.
type Options struct {
	// Location is used to read date strings that carry no zone.
	Location *time.Location

	// Charset of CSV input. Empty means UTF-8.
	Charset string

	// Comma is the CSV field separator. Zero means ','.
	Comma rune
}

// Importer reads sources into records. It holds no per-read state and may be
// shared.
type Importer struct {
	opts Options
}

// New returns an Importer with opts.
func New(opts Options) *Importer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Importer{opts: opts}
}

// ReadHeader returns row 0 of grid as the column keys. Null cells become "".
func ReadHeader(grid Grid) []string {
	if len(grid) == 0 {
		return []string{}
	}
	keys := make([]string, len(grid[0]))
	for i, c := range grid[0] {
		keys[i] = c.String
	}
	return keys
}

// ReadRecords converts every row after the header into a Record.
//
// A row whose width differs from len(keys) fails the whole read with
// ColumnCountMismatch. Single quotes are removed from every value. Non-empty
// values of dateKeys are normalized to YYYY-MM-DD; a value that is neither a
// date nor a serial number fails with InvalidDateFormat.
func (im *Importer) ReadRecords(grid Grid, keys, dateKeys []string) ([]Record, error) {
	isDate := make(map[string]bool, len(dateKeys))
	for _, k := range dateKeys {
		isDate[k] = true
	}

	records := make([]Record, 0, max(len(grid)-1, 0))
	for i := 1; i < len(grid); i++ {
		row := grid[i]
		if len(row) != len(keys) {
			return nil, sheet.Errorf(sheet.ColumnCountMismatch, keys,
				"row %d has %d columns, expected %d", i+1, len(row), len(keys))
		}

		rec := make(Record, len(keys))
		for j, key := range keys {
			cell := row[j]
			if cell.Valid {
				cell.String = strings.ReplaceAll(cell.String, "'", "")
			}

			if isDate[key] && cell.String != "" {
				day, err := sheet.NormalizeDate(cell.String, im.opts.Location)
				if err != nil {
					return nil, sheet.Wrap(sheet.InvalidDateFormat, err, cell.String,
						"row %d column %q", i+1, key)
				}
				cell.String = day
			}

			rec[key] = cell
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFirstRow returns the first row of the range that starts at startCell.
func (im *Importer) ReadFirstRow(path, startCell string) ([]string, error) {
	grid, err := im.openGrid(path, startCell, 1)
	if err != nil {
		return nil, err
	}
	return ReadHeader(grid), nil
}

// ReadFile reads the records of path below the header row at startCell,
// naming columns with keys. An empty startCell means DefaultStartCell.
func (im *Importer) ReadFile(path string, keys, dateKeys []string, startCell string) ([]Record, error) {
	if startCell == "" {
		startCell = DefaultStartCell
	}
	grid, err := im.openGrid(path, startCell, 0)
	if err != nil {
		return nil, err
	}
	return im.ReadRecords(grid, keys, dateKeys)
}

// Read is a full read of path from A1: the header row names the columns
// and every other row becomes a record. No column is treated as a date.
func (im *Importer) Read(path string) (*Result, error) {
	grid, err := im.openGrid(path, DefaultStartCell, 0)
	if err != nil {
		return nil, err
	}
	return im.result(grid)
}

// ReadStream is Read for an already open source. name is used only to
// detect the file type.
func (im *Importer) ReadStream(r io.Reader, name string) (*Result, error) {
	grid, err := im.LoadGrid(r, name, DefaultStartCell, 0)
	if err != nil {
		return nil, err
	}
	return im.result(grid)
}

// ReadRecordsStream is ReadFile for an already open source.
func (im *Importer) ReadRecordsStream(r io.Reader, name string, keys, dateKeys []string, startCell string) ([]Record, error) {
	if startCell == "" {
		startCell = DefaultStartCell
	}
	grid, err := im.LoadGrid(r, name, startCell, 0)
	if err != nil {
		return nil, err
	}
	return im.ReadRecords(grid, keys, dateKeys)
}

// ReadFirstRowStream is ReadFirstRow for an already open source.
func (im *Importer) ReadFirstRowStream(r io.Reader, name, startCell string) ([]string, error) {
	grid, err := im.LoadGrid(r, name, startCell, 1)
	if err != nil {
		return nil, err
	}
	return ReadHeader(grid), nil
}

// LoadGrid decodes r and cuts the range starting at startCell. When
// maxRows > 0 at most that many rows are returned.
func (im *Importer) LoadGrid(r io.Reader, name, startCell string, maxRows int) (Grid, error) {
	col, row, err := sheet.ParseCell(startCell)
	if err != nil {
		return nil, err
	}
	rows, err := loadRows(r, name, im.opts)
	if err != nil {
		return nil, err
	}
	return cutRange(rows, col, row, maxRows), nil
}

func (im *Importer) openGrid(path, startCell string, maxRows int) (Grid, error) {
	col, row, err := validateSource(path, startCell)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, sheet.Wrap(sheet.CodecFailure, err, path, "opening %s", path)
	}
	defer f.Close()

	rows, err := loadRows(f, path, im.opts)
	if err != nil {
		return nil, sheet.Wrap(sheet.CodecFailure, err, path, "reading %s", path)
	}
	return cutRange(rows, col, row, maxRows), nil
}

func (im *Importer) result(grid Grid) (*Result, error) {
	columns := ReadHeader(grid)
	rows, err := im.ReadRecords(grid, columns, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: columns, Rows: rows}, nil
}
