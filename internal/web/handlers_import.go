package web

import (
	"net/http"

	"github.com/JonMunkholm/sheets/internal/core"
)

// handleImport reads the upload from the start cell with its first row as
// the header.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.upload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	res, err := s.service.Import(r.Context(), file, header.Filename, core.ImportRequest{
		DateColumns: formList(r, "date_columns"),
		StartCell:   s.startCell(r),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleImportRecords reads the upload with caller-supplied column names.
func (s *Server) handleImportRecords(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.upload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	res, err := s.service.Import(r.Context(), file, header.Filename, core.ImportRequest{
		Columns:     formList(r, "columns"),
		DateColumns: formList(r, "date_columns"),
		StartCell:   s.startCell(r),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleImportHeader(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.upload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	columns, err := s.service.Header(r.Context(), file, header.Filename, s.startCell(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"columns": columns})
}

// handleImportPreview reads the upload like handleImport and returns a sample
// with per-column type profiles. ?rows sets the sample size.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	file, header, ok := s.upload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	req := core.ImportRequest{
		Columns:     formList(r, "columns"),
		DateColumns: formList(r, "date_columns"),
		StartCell:   s.startCell(r),
	}
	preview, err := s.service.Preview(r.Context(), file, header.Filename, req,
		parseIntParam(r, "rows", core.DefaultPreviewRows))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, preview)
}
