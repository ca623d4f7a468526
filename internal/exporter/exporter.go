// Package exporter writes record sets to styled xlsx workbooks.
//
// Build runs a fixed sequence over one new workbook:
//
//  1. document properties
//  2. header row
//  3. body rows, each cell classified to pick its number format
//  4. totals, below a blank separator row
//  5. column formatting: title font, widths, centering, currency overrides
//
// The finished workbook is then streamed or persisted (see Listing).
package exporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/sheets/internal/patterns"
	"github.com/JonMunkholm/sheets/internal/sheet"
	"github.com/xuri/excelize/v2"
)

// Number formats applied by the column-level currency overrides.
const (
	CurrencyFormat          = `"$"#,##0.00_-`
	CurrencyNoDecimalFormat = `$#,00`
)

// maxSheetTitle is the longest sheet name a workbook accepts.
const maxSheetTitle = 31

// Request describes one export. Column references in Centered, Currency,
// CurrencyNoDecimal and FixedWidths name either a key or a column letter.
type Request struct {
	Name              string             `json:"name"`
	Keys              []string           `json:"keys"`
	Records           []map[string]any   `json:"records"`
	Totals            []Total            `json:"totals,omitempty"`
	Centered          []string           `json:"centered,omitempty"`
	Currency          []string           `json:"currency,omitempty"`
	CurrencyNoDecimal []string           `json:"currency_no_decimal,omitempty"`
	FixedWidths       map[string]float64 `json:"fixed_widths,omitempty"`
	SheetIndex        int                `json:"sheet_index,omitempty"`
}

// Total is a label/value pair written below the body.
type Total struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Font is the typeface used for content and title cells.
type Font struct {
	Name string
	Size float64
}

// Options configure a Builder. Zero values select the defaults.
type Options struct {
	Font Font

	// TitleSpan is the last column of row 1 that gets the bold title font.
	TitleSpan string

	// Creator is written to the document properties.
	Creator string

	// Location is used to read date strings written to date cells.
	Location *time.Location

	// BasePath is the directory Persist writes under when the caller does
	// not give one.
	BasePath string
}

func (o Options) withDefaults() Options {
	if o.Font.Name == "" {
		o.Font.Name = "Verdana"
	}
	if o.Font.Size <= 0 {
		o.Font.Size = 8
	}
	if o.TitleSpan == "" {
		o.TitleSpan = "Z"
	}
	if o.Creator == "" {
		o.Creator = "Sistema"
	}
	if o.Location == nil {
		o.Location = DefaultLocation()
	}
	return o
}

// DefaultLocation is the zone date cells are read in when none is
// configured. Serial dates carry a fixed -5h adjustment; reading dates in
// UTC-6 keeps the result on the intended calendar day.
func DefaultLocation() *time.Location {
	if loc, err := time.LoadLocation("America/Mexico_City"); err == nil {
		return loc
	}
	return time.FixedZone("CST", -6*60*60)
}

// Builder produces workbooks. It is safe for concurrent use; every Build
// owns its workbook.
type Builder struct {
	classifier *patterns.Classifier
	opts       Options
	titleSpan  int
}

// New returns a Builder that classifies cells with c.
func New(c *patterns.Classifier, opts Options) (*Builder, error) {
	if c == nil {
		return nil, fmt.Errorf("exporter: classifier is required")
	}
	opts = opts.withDefaults()

	span, ok := sheet.ColumnIndex(opts.TitleSpan)
	if !ok {
		return nil, sheet.Errorf(sheet.InvalidCellReference, opts.TitleSpan, "invalid title span column %q", opts.TitleSpan)
	}

	return &Builder{classifier: c, opts: opts, titleSpan: span}, nil
}

// Options returns the effective options.
func (b *Builder) Options() Options {
	return b.opts
}

// build holds the state of one Build call.
type build struct {
	*Builder
	req    Request
	f      *excelize.File
	sheet  string
	styles *styleSheet
	widths columnWidths
}

// Build runs every phase and returns the finished workbook. The caller owns
// the result and must Close it.
func (b *Builder) Build(req Request) (*Workbook, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, sheet.Errorf(sheet.EmptyName, req.Name, "workbook name is empty")
	}

	bd := &build{
		Builder: b,
		req:     req,
		f:       excelize.NewFile(),
		styles:  newStyleSheet(),
		widths:  make(columnWidths),
	}

	phases := []func() error{
		bd.initialize,
		bd.writeHeaders,
		bd.writeBody,
		bd.writeTotals,
		bd.format,
	}
	for _, phase := range phases {
		if err := phase(); err != nil {
			bd.f.Close()
			return nil, err
		}
	}

	return &Workbook{f: bd.f, Name: req.Name, Sheet: bd.sheet}, nil
}

func (bd *build) initialize() error {
	sheets := bd.f.GetSheetList()
	if bd.req.SheetIndex < 0 || bd.req.SheetIndex >= len(sheets) {
		return sheet.Errorf(sheet.CodecFailure, bd.req.SheetIndex, "sheet index %d out of range", bd.req.SheetIndex)
	}
	bd.sheet = sheets[bd.req.SheetIndex]
	bd.f.SetActiveSheet(bd.req.SheetIndex)

	name := bd.req.Name
	err := bd.f.SetDocProps(&excelize.DocProperties{
		Creator:        bd.opts.Creator,
		LastModifiedBy: bd.opts.Creator,
		Title:          name,
		Subject:        name,
		Description:    name,
		Keywords:       name,
		Category:       name,
	})
	if err != nil {
		return sheet.Wrap(sheet.CodecFailure, err, name, "setting document properties")
	}
	return nil
}

func (bd *build) writeHeaders() error {
	if len(bd.req.Keys) > sheet.MaxColumns {
		return sheet.Errorf(sheet.ColumnOverflow, len(bd.req.Keys),
			"%d columns requested, a sheet holds at most %d", len(bd.req.Keys), sheet.MaxColumns)
	}

	for i, key := range bd.req.Keys {
		cell := sheet.CellName(i, 1)
		if err := bd.f.SetCellValue(bd.sheet, cell, key); err != nil {
			return sheet.Wrap(sheet.CodecFailure, err, key, "writing header %s", cell)
		}
		bd.widths.observe(i, key)
	}
	return nil
}

func (bd *build) writeBody() error {
	for i, rec := range bd.req.Records {
		row := i + 2
		for col, key := range bd.req.Keys {
			v, ok := rec[key]
			if !ok || sheet.Underlying(v) == nil {
				continue
			}
			if err := bd.writeCell(col, row, key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (bd *build) writeCell(col, row int, key string, v any) error {
	cell := sheet.CellName(col, row)
	if !sheet.IsScalar(v) {
		return sheet.Errorf(sheet.NonScalarCell, v, "field %q of row %d is not a single value", key, row)
	}

	text := strings.TrimSpace(sheet.ScalarString(v))
	match, _ := bd.classifier.Classify(text)
	code, hasFormat := bd.classifier.FormatCode(match.Format)

	var value any
	switch {
	case match.IsDate():
		serial, ok := sheet.ExportSerial(text, bd.opts.Location)
		if !ok {
			return sheet.Errorf(sheet.InvalidDateFormat, text, "field %q of row %d is not a valid date", key, row)
		}
		value = serial
	case match.Format == patterns.FormatPlainNumericText:
		value = text
	default:
		value = sheet.BindValue(text)
	}

	if err := bd.f.SetCellValue(bd.sheet, cell, value); err != nil {
		return sheet.Wrap(sheet.CodecFailure, err, text, "writing %s", cell)
	}
	bd.widths.observe(col, text)

	bd.styles.update(col, row, func(st *cellStyle) {
		st.font = true
		if hasFormat {
			st.numFmt = code
		}
	})
	return nil
}

func (bd *build) writeTotals() error {
	row := len(bd.req.Records) + 3
	for _, t := range bd.req.Totals {
		if !sheet.IsScalar(t.Value) {
			return sheet.Errorf(sheet.NonScalarCell, t.Value, "total %q is not a single value", t.Label)
		}

		value := sheet.Underlying(t.Value)
		if s, ok := value.(string); ok {
			value = sheet.BindValue(s)
		} else if value != nil {
			value = sheet.BindValue(sheet.ScalarString(value))
		}

		cells := []struct {
			col int
			v   any
		}{{0, t.Label}, {1, value}}
		for _, c := range cells {
			cell := sheet.CellName(c.col, row)
			if err := bd.f.SetCellValue(bd.sheet, cell, c.v); err != nil {
				return sheet.Wrap(sheet.CodecFailure, err, t.Label, "writing total %s", cell)
			}
			bd.styles.update(c.col, row, func(st *cellStyle) { st.font = true })
		}
		row++
	}
	return nil
}

func (bd *build) format() error {
	for col := 0; col <= bd.titleSpan; col++ {
		bd.styles.update(col, 1, func(st *cellStyle) {
			st.font = true
			st.bold = true
		})
	}

	fixed := make(map[int]float64, len(bd.req.FixedWidths))
	for ref, w := range bd.req.FixedWidths {
		col, err := bd.resolveColumn(ref)
		if err != nil {
			return err
		}
		fixed[col] = w
	}
	for col := range bd.req.Keys {
		if _, ok := fixed[col]; ok {
			continue
		}
		if err := bd.setWidth(col, bd.widths.width(col)); err != nil {
			return err
		}
	}
	for col, w := range fixed {
		if err := bd.setWidth(col, w); err != nil {
			return err
		}
	}

	last := len(bd.req.Records) + 1
	overrides := []struct {
		refs []string
		fn   func(*cellStyle)
	}{
		{bd.req.Centered, func(st *cellStyle) { st.center = true }},
		{bd.req.CurrencyNoDecimal, func(st *cellStyle) { st.numFmt = CurrencyNoDecimalFormat }},
		{bd.req.Currency, func(st *cellStyle) { st.numFmt = CurrencyFormat }},
	}
	for _, o := range overrides {
		for _, ref := range o.refs {
			col, err := bd.resolveColumn(ref)
			if err != nil {
				return err
			}
			bd.styles.updateColumn(col, 1, last, o.fn)
		}
	}

	if err := bd.styles.apply(bd.f, bd.sheet, bd.opts.Font); err != nil {
		return err
	}

	title := SheetTitle(bd.req.Name)
	if title != bd.sheet {
		if err := bd.f.SetSheetName(bd.sheet, title); err != nil {
			return sheet.Wrap(sheet.CodecFailure, err, title, "naming sheet")
		}
		bd.sheet = title
	}
	return nil
}

func (bd *build) setWidth(col int, width float64) error {
	name := sheet.ColumnName(col)
	if err := bd.f.SetColWidth(bd.sheet, name, name, width); err != nil {
		return sheet.Wrap(sheet.CodecFailure, err, name, "sizing column %s", name)
	}
	return nil
}

// resolveColumn maps a column reference to a zero-based index. Keys take
// precedence over letters.
func (bd *build) resolveColumn(ref string) (int, error) {
	for i, key := range bd.req.Keys {
		if key == ref {
			return i, nil
		}
	}
	if col, ok := sheet.ColumnIndex(ref); ok && col < sheet.MaxColumns {
		return col, nil
	}
	return 0, sheet.Errorf(sheet.InvalidCellReference, ref, "%q is neither a key nor a column", ref)
}

// SheetTitle makes a valid sheet name from name: characters a workbook
// rejects become '_' and the result is cut to 31 characters.
func SheetTitle(name string) string {
	title := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	title = strings.Trim(title, "'")

	if runes := []rune(title); len(runes) > maxSheetTitle {
		title = string(runes[:maxSheetTitle])
	}
	if title == "" {
		title = "Sheet1"
	}
	return title
}
