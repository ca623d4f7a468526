package importer

// csv.go reads delimited text into a Grid.
//
// Input passes through a decoding chain before the CSV parser sees it:
//
//   - a UTF-8 BOM (as written by Windows tools) is stripped
//   - the configured charset is decoded to UTF-8 (windows-1252, iso-8859-1, ...)
//   - invalid UTF-8 is replaced with U+FFFD instead of failing the read
//
// The chain streams, so memory stays proportional to the grid, not the file.

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/JonMunkholm/sheets/internal/sheet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewDecodingReader wraps r so that it yields UTF-8 text. An empty charset
// means UTF-8. Names are resolved with the WHATWG encoding index, so the
// usual aliases ("latin1", "cp1252", "utf8") work.
func NewDecodingReader(r io.Reader, charset string) (io.Reader, error) {
	var enc encoding.Encoding = unicode.UTF8
	if name := strings.TrimSpace(charset); name != "" {
		e, err := htmlindex.Get(name)
		if err != nil {
			return nil, sheet.Wrap(sheet.ConfigError, err, charset, "unknown charset %q", charset)
		}
		enc = e
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// readCSV parses the whole input into rows. Rows keep their own width;
// padding happens when the range is cut.
func readCSV(r io.Reader, opts Options) ([][]string, error) {
	decoded, err := NewDecodingReader(r, opts.Charset)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, sheet.Wrap(sheet.CodecFailure, err, nil, "parsing csv")
		}
		for i, cell := range record {
			record[i] = unwrapFormulaText(cell)
		}
		rows = append(rows, record)
	}

	// Trailing blank lines carry no data.
	for len(rows) > 0 && isBlankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows, nil
}

// unwrapFormulaText turns the ="0123" form spreadsheet programs use to keep
// leading zeros in CSV back into the plain text.
func unwrapFormulaText(s string) string {
	if len(s) >= 3 && strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		return s[2 : len(s)-1]
	}
	return s
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
