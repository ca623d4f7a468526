package exporter

import (
	"sort"

	"github.com/JonMunkholm/sheets/internal/sheet"
	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"
)

// textNumFmt is the builtin id of the "@" (text) number format.
const textNumFmt = 49

// cellStyle is everything the builder sets on a cell. excelize replaces a
// cell's whole style on every SetCellStyle, so attributes are accumulated
// here per cell and written once at the end.
type cellStyle struct {
	font   bool
	bold   bool
	center bool
	numFmt string
}

type coord struct {
	col, row int // zero-based column, one-based row
}

type styleSheet struct {
	cells map[coord]cellStyle
}

func newStyleSheet() *styleSheet {
	return &styleSheet{cells: make(map[coord]cellStyle)}
}

func (s *styleSheet) update(col, row int, fn func(*cellStyle)) {
	c := coord{col, row}
	st := s.cells[c]
	fn(&st)
	s.cells[c] = st
}

// updateColumn applies fn to rows first..last of col.
func (s *styleSheet) updateColumn(col, first, last int, fn func(*cellStyle)) {
	for row := first; row <= last; row++ {
		s.update(col, row, fn)
	}
}

// apply registers one excelize style per distinct cellStyle and assigns it.
func (s *styleSheet) apply(f *excelize.File, sheetName string, font Font) error {
	coords := make([]coord, 0, len(s.cells))
	for c := range s.cells {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].row != coords[j].row {
			return coords[i].row < coords[j].row
		}
		return coords[i].col < coords[j].col
	})

	ids := make(map[cellStyle]int)
	for _, c := range coords {
		st := s.cells[c]
		id, ok := ids[st]
		if !ok {
			var err error
			id, err = f.NewStyle(st.toStyle(font))
			if err != nil {
				return sheet.Wrap(sheet.CodecFailure, err, st.numFmt, "creating cell style")
			}
			ids[st] = id
		}

		cell := sheet.CellName(c.col, c.row)
		if err := f.SetCellStyle(sheetName, cell, cell, id); err != nil {
			return sheet.Wrap(sheet.CodecFailure, err, cell, "styling %s", cell)
		}
	}
	return nil
}

func (st cellStyle) toStyle(font Font) *excelize.Style {
	out := &excelize.Style{}
	if st.font {
		out.Font = &excelize.Font{Family: font.Name, Size: font.Size, Bold: st.bold}
	}
	if st.center {
		out.Alignment = &excelize.Alignment{Horizontal: "center"}
	}
	switch st.numFmt {
	case "":
	case "@":
		out.NumFmt = textNumFmt
	default:
		code := st.numFmt
		out.CustomNumFmt = &code
	}
	return out
}

// columnWidths tracks the widest display text seen per column.
type columnWidths map[int]int

func (w columnWidths) observe(col int, s string) {
	if n := runewidth.StringWidth(s); n > w[col] {
		w[col] = n
	}
}

// width converts a display width in characters to a column width, leaving
// room for cell padding.
func (w columnWidths) width(col int) float64 {
	width := float64(w[col]) + 2
	if width > excelize.MaxColumnWidth {
		width = excelize.MaxColumnWidth
	}
	return width
}
