package core

import (
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheets/internal/history"
	"github.com/JonMunkholm/sheets/internal/patterns"
)

func TestService_Preview(t *testing.T) {
	svc, store := newTestService(t, nil)

	src := "id,fecha,email,note\n" +
		"1,2024-01-02,a@b.co,\n" +
		"2,2024-02-03,x,hi\n" +
		"3,2024-03-04,c@d.io,\n"

	p, err := svc.Preview(context.Background(), strings.NewReader(src), "p.csv", ImportRequest{}, 2)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.TotalRows != 3 || len(p.Sample) != 2 {
		t.Fatalf("total=%d sample=%d, want 3 and 2", p.TotalRows, len(p.Sample))
	}

	tests := []struct {
		column    string
		wantType  patterns.SemanticType
		wantFmt   patterns.FormatKey
		empty     int
		unmatched int
	}{
		{"id", "entero", "", 0, 0},
		{"fecha", patterns.TypeDate, patterns.FormatDate, 0, 0},
		{"email", "", "", 0, 1},
		{"note", "", "", 2, 1},
	}

	for i, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			prof := p.Profiles[i]
			if prof.Column != tt.column {
				t.Fatalf("profile %d column = %q, want %q", i, prof.Column, tt.column)
			}
			if prof.Type != tt.wantType || prof.Format != tt.wantFmt {
				t.Errorf("type/format = %q/%q, want %q/%q", prof.Type, prof.Format, tt.wantType, tt.wantFmt)
			}
			if prof.Empty != tt.empty || prof.Unmatched != tt.unmatched {
				t.Errorf("empty/unmatched = %d/%d, want %d/%d", prof.Empty, prof.Unmatched, tt.empty, tt.unmatched)
			}
		})
	}

	if got := p.Profiles[2].Counts["email"]; got != 2 {
		t.Errorf("email count = %d, want 2", got)
	}

	job := lastJob(t, store)
	if job.Kind != history.KindPreview || job.Rows != 3 {
		t.Errorf("job = %+v, want a 3-row preview", job)
	}
}

func TestService_PreviewDefaultsSample(t *testing.T) {
	svc, _ := newTestService(t, nil)

	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 25; i++ {
		b.WriteString("7\n")
	}

	p, err := svc.Preview(context.Background(), strings.NewReader(b.String()), "n.csv", ImportRequest{}, 0)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(p.Sample) != DefaultPreviewRows {
		t.Errorf("sample = %d, want %d", len(p.Sample), DefaultPreviewRows)
	}
}

func TestService_RecordsClientMetadata(t *testing.T) {
	svc, store := newTestService(t, nil)

	ctx := ContextWithIPAddress(context.Background(), "203.0.113.9")
	ctx = ContextWithUserAgent(ctx, "curl/8.0")
	if _, err := svc.Import(ctx, strings.NewReader("a\n1\n"), "a.csv", ImportRequest{}); err != nil {
		t.Fatalf("Import: %v", err)
	}

	job := lastJob(t, store)
	if job.ClientIP != "203.0.113.9" || job.UserAgent != "curl/8.0" {
		t.Errorf("client = %q %q, want 203.0.113.9 curl/8.0", job.ClientIP, job.UserAgent)
	}
}
