package web

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// upload parses the multipart form and returns the "file" part. The caller
// closes the file.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		respondError(w, r, err)
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, err)
		return nil, nil, false
	}
	return file, header, true
}

// formList reads a list field sent either as repeated fields or as one
// comma-separated value.
func formList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.MultipartForm.Value[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) startCell(r *http.Request) string {
	if cell := strings.TrimSpace(r.FormValue("start_cell")); cell != "" {
		return cell
	}
	return s.cfg.Import.DefaultStartCell
}

// parseIntParam parses a positive integer query parameter, falling back to
// defaultVal when it is missing or invalid.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
