package importer

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheets/internal/sheet"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

func gridOf(rows ...[]string) Grid {
	g := make(Grid, len(rows))
	for i, r := range rows {
		g[i] = make([]pgtype.Text, len(r))
		for j, c := range r {
			g[i][j] = text(c)
		}
	}
	return g
}

// writeWorkbook saves rows to the first sheet of a new workbook, starting at
// startCell, and returns its path.
func writeWorkbook(t *testing.T, startCell string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	col, row, err := excelize.CellNameToCoordinates(startCell)
	require.NoError(t, err)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(col, row+i)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadHeader(t *testing.T) {
	grid := Grid{{text("id"), {}, text("name")}}
	assert.Equal(t, []string{"id", "", "name"}, ReadHeader(grid))
	assert.Empty(t, ReadHeader(nil))
}

func TestReadRecords_EndToEnd(t *testing.T) {
	im := New(Options{})
	grid := gridOf(
		[]string{"id", "name"},
		[]string{"1", "Alice"},
		[]string{"2", "Bob"},
	)

	records, err := im.ReadRecords(grid, []string{"id", "name"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Record{"id": text("1"), "name": text("Alice")}, records[0])
	assert.Equal(t, Record{"id": text("2"), "name": text("Bob")}, records[1])
}

func TestReadRecords_StripsQuotes(t *testing.T) {
	im := New(Options{})
	grid := gridOf([]string{"name"}, []string{"O'Brien"}, []string{"'quoted'"})

	records, err := im.ReadRecords(grid, []string{"name"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "OBrien", records[0].Get("name"))
	assert.Equal(t, "quoted", records[1].Get("name"))
}

func TestReadRecords_Dates(t *testing.T) {
	im := New(Options{})

	tests := []struct {
		value string
		want  string
	}{
		{"2024-03-15", "2024-03-15"},
		{"'2024-03-15'", "2024-03-15"},
		{"3/15/2024", "2024-03-15"},
		{"45366", "2024-03-15"},
		{"2024-03-15 18:30:00", "2024-03-15"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			grid := gridOf([]string{"when"}, []string{tt.value})
			records, err := im.ReadRecords(grid, []string{"when"}, []string{"when"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, records[0].Get("when"))
		})
	}
}

func TestReadRecords_DateColumnNullAndEmpty(t *testing.T) {
	im := New(Options{})
	grid := Grid{{text("when")}, {{}}, {text("")}}

	records, err := im.ReadRecords(grid, []string{"when"}, []string{"when"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.False(t, records[0]["when"].Valid)
	assert.Equal(t, text(""), records[1]["when"])
}

func TestReadRecords_InvalidDate(t *testing.T) {
	im := New(Options{})
	grid := gridOf([]string{"when"}, []string{"2024-03-15"}, []string{"next tuesday"})

	records, err := im.ReadRecords(grid, []string{"when"}, []string{"when"})
	assert.Nil(t, records)
	assert.ErrorIs(t, err, sheet.ErrInvalidDateFormat)
}

func TestReadRecords_ColumnCountMismatch(t *testing.T) {
	im := New(Options{})
	grid := gridOf([]string{"a", "b"}, []string{"a", "b"})

	records, err := im.ReadRecords(grid, []string{"id", "name", "extra"}, nil)
	assert.Nil(t, records)
	assert.ErrorIs(t, err, sheet.ErrColumnCountMismatch)
}

func TestReadRecords_CountsMatch(t *testing.T) {
	im := New(Options{})
	keys := []string{"a", "b", "c"}

	for n := 1; n <= 5; n++ {
		rows := [][]string{keys}
		for i := 0; i < n; i++ {
			rows = append(rows, []string{"1", "2", "3"})
		}
		records, err := im.ReadRecords(gridOf(rows...), keys, nil)
		require.NoError(t, err)
		require.Len(t, records, n)
		for _, r := range records {
			assert.Len(t, r, len(keys))
		}
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Record{"a": text("x"), "b": {}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x","b":null}`, string(data))
}

func TestRead_Workbook(t *testing.T) {
	path := writeWorkbook(t, "A1", [][]any{
		{"id", "name", "joined"},
		{1, "Alice", "2024-03-15"},
		{2, "O'Brien", nil},
	})

	im := New(Options{})
	res, err := im.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "joined"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "1", res.Rows[0].Get("id"))
	assert.Equal(t, "OBrien", res.Rows[1].Get("name"))
	assert.False(t, res.Rows[1]["joined"].Valid)
}

func TestReadFile_StartCellAndDates(t *testing.T) {
	path := writeWorkbook(t, "B3", [][]any{
		{"id", "when"},
		{"7", "2024-03-15"},
		{"8", 45366},
	})

	im := New(Options{})
	header, err := im.ReadFirstRow(path, "B3")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "when"}, header)

	records, err := im.ReadFile(path, header, []string{"when"}, "B3")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-03-15", records[0].Get("when"))
	assert.Equal(t, "2024-03-15", records[1].Get("when"))
}

func TestReadFile_Validation(t *testing.T) {
	im := New(Options{})
	dir := t.TempDir()
	existing := writeWorkbook(t, "A1", [][]any{{"id"}})

	tests := []struct {
		name  string
		path  string
		start string
		want  error
	}{
		{"blank path", " ", "A1", sheet.ErrEmptyInput},
		{"blank start", existing, " ", sheet.ErrEmptyInput},
		{"missing file", filepath.Join(dir, "nope.xlsx"), "A1", sheet.ErrSourceNotFound},
		{"bad cell", existing, "1A", sheet.ErrInvalidCellReference},
		{"unknown type", filepath.Join(dir, "file.pdf"), "A1", sheet.ErrCodecFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := im.ReadFirstRow(tt.path, tt.start)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadFile_CorruptWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := New(Options{}).Read(path)
	assert.ErrorIs(t, err, sheet.ErrCodecFailure)
}

func TestReadStream_CSV(t *testing.T) {
	input := "\xEF\xBB\xBFid,name,code\n1,Alice,=\"007\"\n2,\"Bob, Jr\",\n\n"

	res, err := New(Options{}).ReadStream(strings.NewReader(input), "upload.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "code"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "007", res.Rows[0].Get("code"))
	assert.Equal(t, "Bob, Jr", res.Rows[1].Get("name"))
	assert.False(t, res.Rows[1]["code"].Valid)
}

func TestReadStream_CSVCharset(t *testing.T) {
	// "Peña" in windows-1252.
	input := []byte("name\nPe\xF1a\n")

	res, err := New(Options{Charset: "windows-1252"}).ReadStream(bytes.NewReader(input), "latin.csv")
	require.NoError(t, err)
	assert.Equal(t, "Peña", res.Rows[0].Get("name"))

	// Without a charset the invalid byte is replaced, not fatal.
	res, err = New(Options{}).ReadStream(bytes.NewReader(input), "latin.csv")
	require.NoError(t, err)
	assert.Equal(t, "Pe\uFFFDa", res.Rows[0].Get("name"))

	_, err = New(Options{Charset: "klingon"}).ReadStream(bytes.NewReader(input), "latin.csv")
	assert.ErrorIs(t, err, sheet.ErrConfig)
}

func TestReadRecordsStream_Semicolon(t *testing.T) {
	input := "x;a;b\n;1;2\n;3;4\n"

	im := New(Options{Comma: ';'})
	header, err := im.ReadFirstRowStream(strings.NewReader(input), "data.csv", "B1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)

	records, err := im.ReadRecordsStream(strings.NewReader(input), "data.csv", header, nil, "B1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "4", records[1].Get("b"))
}

func TestNewDecodingReader_BOM(t *testing.T) {
	r, err := NewDecodingReader(bytes.NewReader([]byte("\xEF\xBB\xBFhello")), "")
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestCutRange(t *testing.T) {
	rows := [][]string{
		{"a", "b", "c"},
		{"1"},
		{},
		{"", "", "z"},
	}

	grid := cutRange(rows, 2, 1, 0)
	require.Len(t, grid, 4)
	for _, r := range grid {
		assert.Len(t, r, 2)
	}
	assert.Equal(t, text("b"), grid[0][0])
	assert.False(t, grid[1][0].Valid)
	assert.Equal(t, text("z"), grid[3][1])

	assert.Len(t, cutRange(rows, 1, 1, 1), 1)
	assert.Empty(t, cutRange(rows, 5, 1, 0))
	assert.Empty(t, cutRange(rows, 1, 9, 0))
}
