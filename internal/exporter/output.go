package exporter

import (
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/JonMunkholm/sheets/internal/sheet"
	"github.com/xuri/excelize/v2"
)

// ArchiveDir is the directory under the base path where persisted workbooks
// are written before being encoded.
const ArchiveDir = "archivos"

// ContentType is the media type of an xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook is a finished export.
type Workbook struct {
	f     *excelize.File
	Name  string
	Sheet string
}

// File exposes the underlying workbook.
func (w *Workbook) File() *excelize.File {
	return w.f
}

// Close releases the workbook's temporary resources.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Filename is the download name of the workbook.
func (w *Workbook) Filename() string {
	return w.Name + ".xlsx"
}

// Stream writes the workbook to dst.
func (w *Workbook) Stream(dst io.Writer) error {
	if err := w.f.Write(dst); err != nil {
		return sheet.Wrap(sheet.CodecFailure, err, w.Name, "writing workbook")
	}
	return nil
}

// Persist saves the workbook to <dir>/archivos/<unix-nanos>.xlsx, reads it
// back as base64 and removes the file.
func (w *Workbook) Persist(dir string) (string, error) {
	archive := filepath.Join(dir, ArchiveDir)
	if err := os.MkdirAll(archive, 0o755); err != nil {
		return "", sheet.Wrap(sheet.CodecFailure, err, archive, "creating %s", archive)
	}

	path := filepath.Join(archive, strconv.FormatInt(time.Now().UnixNano(), 10)+".xlsx")
	if err := w.f.SaveAs(path); err != nil {
		os.Remove(path)
		return "", sheet.Wrap(sheet.CodecFailure, err, path, "saving workbook")
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", sheet.Wrap(sheet.CodecFailure, err, path, "reading back %s", path)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// HaltFunc ends the caller's unit of work after a failure on a streamed
// export. It must not return.
type HaltFunc func(error)

// Output selects where Listing delivers the workbook.
type Output struct {
	// Stream, when set, receives the workbook directly. Failures are then
	// passed to Halt instead of being returned.
	Stream io.Writer
	Halt   HaltFunc

	// Dir is the base path for persisted workbooks. Empty means the
	// builder's BasePath.
	Dir string
}

// ErrHaltReturned is returned if a HaltFunc returns.
var ErrHaltReturned = errors.New("exporter: halt function returned")

// Listing builds the workbook for req and delivers it. Without a stream the
// base64 encoding of the persisted file is returned. With a stream nothing is
// returned on success and any failure is handed to out.Halt.
func (b *Builder) Listing(req Request, out Output) (string, error) {
	if out.Stream != nil {
		if out.Halt == nil {
			return "", errors.New("exporter: streamed output requires a halt function")
		}
		err := b.stream(req, out.Stream)
		if err == nil {
			return "", nil
		}
		out.Halt(err)
		return "", errors.Join(err, ErrHaltReturned)
	}

	wb, err := b.Build(req)
	if err != nil {
		return "", err
	}
	defer wb.Close()

	dir := out.Dir
	if dir == "" {
		dir = b.opts.BasePath
	}
	return wb.Persist(dir)
}

func (b *Builder) stream(req Request, dst io.Writer) error {
	wb, err := b.Build(req)
	if err != nil {
		return err
	}
	defer wb.Close()
	return wb.Stream(dst)
}
