package web

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/sheets/internal/exporter"
	"github.com/JonMunkholm/sheets/internal/logging"
	"github.com/JonMunkholm/sheets/internal/sheet"
)

// haltSignal carries a streamed export failure out of the exporter to the
// handler's recover.
type haltSignal struct{ err error }

func haltRequest(err error) {
	panic(haltSignal{err: err})
}

// attachment sends the download headers on the first write, so a failure
// before any byte is produced can still be answered with a JSON error.
type attachment struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (a *attachment) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		h := a.w.Header()
		h.Set("Content-Type", exporter.ContentType)
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.filename}))
		a.w.WriteHeader(http.StatusOK)
	}
	return a.w.Write(p)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exporter.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, sheet.Wrap(sheet.CodecFailure, err, nil, "decoding export request"))
		return
	}

	download, _ := strconv.ParseBool(r.URL.Query().Get("download"))
	if !download {
		payload, err := s.service.Export(r.Context(), req, exporter.Output{})
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]string{
			"filename": exporter.SheetTitle(req.Name) + ".xlsx",
			"data":     payload,
		})
		return
	}

	out := &attachment{w: w, filename: exporter.SheetTitle(req.Name) + ".xlsx"}
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		sig, ok := rec.(haltSignal)
		if !ok {
			panic(rec)
		}
		if !out.started {
			respondError(w, r, sig.err)
			return
		}
		logging.FromContext(r.Context()).Error("export stream aborted", "error", sig.err)
		panic(http.ErrAbortHandler)
	}()

	if _, err := s.service.Export(r.Context(), req, exporter.Output{Stream: out, Halt: haltRequest}); err != nil {
		// Rejected before the workbook was built, e.g. no free job slot.
		respondError(w, r, err)
	}
}
