package importer

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/sheets/internal/sheet"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xuri/excelize/v2"
)

// FileType is the container format of a source file.
type FileType string

const (
	TypeXLSX FileType = "xlsx"
	TypeCSV  FileType = "csv"
)

// DetectType identifies a source by its file extension.
func DetectType(name string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return TypeXLSX, nil
	case ".csv", ".txt", ".tsv":
		return TypeCSV, nil
	}
	return "", sheet.Errorf(sheet.CodecFailure, name, "unsupported file type %q", filepath.Ext(name))
}

// validateSource runs the checks that must pass before a file is opened:
// non-blank arguments, an existing path and a well-formed start cell.
func validateSource(path, startCell string) (col, row int, err error) {
	if strings.TrimSpace(startCell) == "" {
		return 0, 0, sheet.Errorf(sheet.EmptyInput, startCell, "start cell is empty")
	}
	if strings.TrimSpace(path) == "" {
		return 0, 0, sheet.Errorf(sheet.EmptyInput, path, "file path is empty")
	}
	if _, err := DetectType(path); err != nil {
		return 0, 0, err
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return 0, 0, sheet.Wrap(sheet.SourceNotFound, statErr, path, "file %s does not exist", path)
		}
		return 0, 0, sheet.Wrap(sheet.CodecFailure, statErr, path, "checking %s", path)
	}
	if info.IsDir() {
		return 0, 0, sheet.Errorf(sheet.SourceNotFound, path, "%s is a directory", path)
	}

	return sheet.ParseCell(startCell)
}

// loadRows decodes every row of the first sheet of r.
func loadRows(r io.Reader, name string, opts Options) ([][]string, error) {
	kind, err := DetectType(name)
	if err != nil {
		return nil, err
	}

	switch kind {
	case TypeCSV:
		return readCSV(r, opts)
	default:
		return readXLSX(r)
	}
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, sheet.Wrap(sheet.CodecFailure, err, nil, "opening workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, sheet.Errorf(sheet.CodecFailure, nil, "workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, sheet.Wrap(sheet.CodecFailure, err, sheets[0], "reading sheet %q", sheets[0])
	}
	return rows, nil
}

// cutRange extracts the rectangle that starts at (col, row), both one-based,
// and extends to the highest used column of the sheet and either its highest
// used row or maxRows rows when maxRows > 0. Missing and empty cells are null.
func cutRange(rows [][]string, col, row, maxRows int) Grid {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	last := len(rows)
	if maxRows > 0 && row-1+maxRows < last {
		last = row - 1 + maxRows
	}
	if row-1 >= last || col-1 >= width {
		return Grid{}
	}

	grid := make(Grid, 0, last-row+1)
	for _, src := range rows[row-1 : last] {
		out := make([]pgtype.Text, width-col+1)
		for j := range out {
			if idx := col - 1 + j; idx < len(src) && src[idx] != "" {
				out[j] = pgtype.Text{String: src[idx], Valid: true}
			}
		}
		grid = append(grid, out)
	}
	return grid
}
