package core

import (
	"context"
	"io"
	"strings"

	"github.com/JonMunkholm/sheets/internal/history"
	"github.com/JonMunkholm/sheets/internal/importer"
	"github.com/JonMunkholm/sheets/internal/patterns"
)

// DefaultPreviewRows is the sample size used when none is given.
const DefaultPreviewRows = 10

// ColumnProfile summarizes how the catalog classifies one column.
type ColumnProfile struct {
	Column string `json:"column"`

	// Type and Format are set only when every non-empty value in the column
	// matched the same rule type.
	Type   patterns.SemanticType `json:"type,omitempty"`
	Format patterns.FormatKey    `json:"format,omitempty"`

	Counts    map[patterns.SemanticType]int `json:"counts"`
	Empty     int                           `json:"empty"`
	Unmatched int                           `json:"unmatched"`
}

// Preview is a read-only look at a source before it is imported.
type Preview struct {
	Columns   []string          `json:"columns"`
	TotalRows int               `json:"total_rows"`
	Sample    []importer.Record `json:"sample"`
	Profiles  []ColumnProfile   `json:"profiles"`
}

// Preview reads an uploaded source like Import and returns the first
// sampleRows records with a per-column type profile over all rows.
func (s *Service) Preview(ctx context.Context, r io.Reader, name string, req ImportRequest, sampleRows int) (*Preview, error) {
	return s.preview(ctx, name, sampleRows, func() (*importer.Result, error) {
		return s.readStream(r, name, req)
	})
}

// PreviewFile is Preview for the source at path.
func (s *Service) PreviewFile(ctx context.Context, path string, req ImportRequest, sampleRows int) (*Preview, error) {
	return s.preview(ctx, path, sampleRows, func() (*importer.Result, error) {
		return s.readFile(path, req)
	})
}

func (s *Service) preview(ctx context.Context, name string, sampleRows int, read func() (*importer.Result, error)) (*Preview, error) {
	if sampleRows <= 0 {
		sampleRows = DefaultPreviewRows
	}

	var p *Preview
	err := s.run(ctx, history.KindPreview, name, func() (int, int, error) {
		res, err := read()
		if err != nil {
			return 0, 0, err
		}
		p = s.profile(res, sampleRows)
		return len(res.Rows), len(res.Columns), nil
	})
	return p, err
}

func (s *Service) profile(res *importer.Result, sampleRows int) *Preview {
	p := &Preview{
		Columns:   res.Columns,
		TotalRows: len(res.Rows),
		Sample:    res.Rows[:min(sampleRows, len(res.Rows))],
		Profiles:  make([]ColumnProfile, len(res.Columns)),
	}

	for i, col := range res.Columns {
		prof := ColumnProfile{Column: col, Counts: map[patterns.SemanticType]int{}}
		var format patterns.FormatKey

		for _, row := range res.Rows {
			cell := row[col]
			if !cell.Valid || strings.TrimSpace(cell.String) == "" {
				prof.Empty++
				continue
			}
			m, ok := s.classifier.Classify(cell.String)
			if !ok {
				prof.Unmatched++
				continue
			}
			prof.Counts[m.Type]++
			format = m.Format
		}

		if len(prof.Counts) == 1 && prof.Unmatched == 0 {
			for t := range prof.Counts {
				prof.Type = t
			}
			prof.Format = format
		}
		p.Profiles[i] = prof
	}
	return p
}
