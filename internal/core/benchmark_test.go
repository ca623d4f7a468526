package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheets/internal/exporter"
	"github.com/JonMunkholm/sheets/internal/patterns"
)

// ============================================================================
// Classification Benchmarks
// ============================================================================

// BenchmarkClassify runs the default catalog over a mix of cell values.
// Every exported cell goes through this.
func BenchmarkClassify(b *testing.B) {
	c := patterns.Default()
	values := []string{
		"2024-01-15",
		"007",
		"123456789012",
		"-1234.50",
		"42",
		"someone@example.com",
		"plain text",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, v := range values {
			c.Classify(v)
		}
	}
}

// ============================================================================
// Service Benchmarks
// ============================================================================

func benchCSV(rows int) string {
	var sb strings.Builder
	sb.WriteString("id,fecha,monto,email\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "%d,2024-%02d-%02d,%d.50,user%d@example.com\n", i, i%12+1, i%28+1, i, i)
	}
	return sb.String()
}

// BenchmarkImport_CSV measures a header-mode CSV import with one date column.
func BenchmarkImport_CSV(b *testing.B) {
	for _, rows := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("rows=%d", rows), func(b *testing.B) {
			svc, _ := newTestService(b, nil)
			src := benchCSV(rows)
			req := ImportRequest{DateColumns: []string{"fecha"}}

			b.SetBytes(int64(len(src)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := svc.Import(context.Background(), strings.NewReader(src), "bench.csv", req); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPreview measures profiling on top of the import.
func BenchmarkPreview(b *testing.B) {
	svc, _ := newTestService(b, nil)
	src := benchCSV(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Preview(context.Background(), strings.NewReader(src), "bench.csv", ImportRequest{}, 10); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExport_Base64 builds and persists a 1000-row workbook.
func BenchmarkExport_Base64(b *testing.B) {
	svc, _ := newTestService(b, nil)

	records := make([]map[string]any, 1000)
	for i := range records {
		records[i] = map[string]any{
			"id":    fmt.Sprint(i),
			"fecha": "2024-03-15",
			"monto": "1234.50",
		}
	}
	req := exporter.Request{Name: "bench", Keys: []string{"id", "fecha", "monto"}, Records: records}
	out := exporter.Output{Dir: b.TempDir()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Export(context.Background(), req, out); err != nil {
			b.Fatal(err)
		}
	}
}
