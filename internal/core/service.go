package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/sheets/internal/exporter"
	"github.com/JonMunkholm/sheets/internal/history"
	"github.com/JonMunkholm/sheets/internal/importer"
	"github.com/JonMunkholm/sheets/internal/logging"
	"github.com/JonMunkholm/sheets/internal/patterns"
	"github.com/google/uuid"
)

// JobTimeout is the default limit for a single import or export.
var JobTimeout = 5 * time.Minute

// Service runs imports and exports against one pattern catalog. Each job
// takes a limiter slot and is written to the history store when it ends.
type Service struct {
	classifier *patterns.Classifier
	importer   *importer.Importer
	exporter   *exporter.Builder
	history    history.Store
	limiter    *JobLimiter
	timeout    time.Duration
}

// Deps are the collaborators of a Service. Classifier, Importer and
// Exporter are required.
type Deps struct {
	Classifier *patterns.Classifier
	Importer   *importer.Importer
	Exporter   *exporter.Builder
	History    history.Store
	Limiter    *JobLimiter
	Timeout    time.Duration
}

// NewService creates a new Service instance. A nil History keeps jobs in
// memory and a nil Limiter uses the default slot count.
func NewService(d Deps) (*Service, error) {
	if d.Classifier == nil || d.Importer == nil || d.Exporter == nil {
		return nil, errors.New("core: classifier, importer and exporter are required")
	}
	if d.History == nil {
		d.History = history.NewMemoryStore(history.DefaultMemoryCapacity)
	}
	if d.Limiter == nil {
		d.Limiter = NewJobLimiter(DefaultMaxConcurrentJobs, DefaultMaxWaitTime)
	}
	if d.Timeout <= 0 {
		d.Timeout = JobTimeout
	}
	return &Service{
		classifier: d.Classifier,
		importer:   d.Importer,
		exporter:   d.Exporter,
		history:    d.History,
		limiter:    d.Limiter,
		timeout:    d.Timeout,
	}, nil
}

// ImportRequest selects how a source is read.
//
// The first row of the range at StartCell is the header row. Its cells name
// the columns unless Columns is given, in which case Columns is used and
// must match the row width.
type ImportRequest struct {
	Columns     []string `json:"columns"`
	DateColumns []string `json:"date_columns"`
	StartCell   string   `json:"start_cell"`
}

// Import reads an uploaded source. name is used to detect the file type.
func (s *Service) Import(ctx context.Context, r io.Reader, name string, req ImportRequest) (*importer.Result, error) {
	var res *importer.Result
	err := s.run(ctx, history.KindImport, name, func() (int, int, error) {
		var err error
		res, err = s.readStream(r, name, req)
		if err != nil {
			return 0, 0, err
		}
		return len(res.Rows), len(res.Columns), nil
	})
	return res, err
}

// ImportFile reads the source at path.
func (s *Service) ImportFile(ctx context.Context, path string, req ImportRequest) (*importer.Result, error) {
	var res *importer.Result
	err := s.run(ctx, history.KindImport, path, func() (int, int, error) {
		var err error
		res, err = s.readFile(path, req)
		if err != nil {
			return 0, 0, err
		}
		return len(res.Rows), len(res.Columns), nil
	})
	return res, err
}

func (s *Service) readStream(r io.Reader, name string, req ImportRequest) (*importer.Result, error) {
	if len(req.Columns) > 0 {
		rows, err := s.importer.ReadRecordsStream(r, name, req.Columns, req.DateColumns, req.StartCell)
		if err != nil {
			return nil, err
		}
		return &importer.Result{Columns: req.Columns, Rows: rows}, nil
	}
	if isDefaultStart(req.StartCell) && len(req.DateColumns) == 0 {
		return s.importer.ReadStream(r, name)
	}

	start := req.StartCell
	if start == "" {
		start = importer.DefaultStartCell
	}
	grid, err := s.importer.LoadGrid(r, name, start, 0)
	if err != nil {
		return nil, err
	}
	return s.headed(grid, req.DateColumns)
}

func (s *Service) readFile(path string, req ImportRequest) (*importer.Result, error) {
	if len(req.Columns) > 0 {
		rows, err := s.importer.ReadFile(path, req.Columns, req.DateColumns, req.StartCell)
		if err != nil {
			return nil, err
		}
		return &importer.Result{Columns: req.Columns, Rows: rows}, nil
	}
	if isDefaultStart(req.StartCell) && len(req.DateColumns) == 0 {
		return s.importer.Read(path)
	}

	keys, err := s.importer.ReadFirstRow(path, startOrDefault(req.StartCell))
	if err != nil {
		return nil, err
	}
	rows, err := s.importer.ReadFile(path, keys, req.DateColumns, req.StartCell)
	if err != nil {
		return nil, err
	}
	return &importer.Result{Columns: keys, Rows: rows}, nil
}

func (s *Service) headed(grid importer.Grid, dateKeys []string) (*importer.Result, error) {
	keys := importer.ReadHeader(grid)
	rows, err := s.importer.ReadRecords(grid, keys, dateKeys)
	if err != nil {
		return nil, err
	}
	return &importer.Result{Columns: keys, Rows: rows}, nil
}

// isDefaultStart reports whether cell selects the whole sheet from A1.
func isDefaultStart(cell string) bool {
	return strings.EqualFold(strings.TrimSpace(startOrDefault(cell)), importer.DefaultStartCell)
}

func startOrDefault(cell string) string {
	if cell == "" {
		return importer.DefaultStartCell
	}
	return cell
}

// Header returns the first row of an uploaded source from startCell.
func (s *Service) Header(ctx context.Context, r io.Reader, name, startCell string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.importer.ReadFirstRowStream(r, name, startOrDefault(startCell))
}

// HeaderFile returns the first row of the source at path from startCell.
func (s *Service) HeaderFile(ctx context.Context, path, startCell string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.importer.ReadFirstRow(path, startCell)
}

// Export builds the workbook for req and delivers it through out. See
// exporter.Builder.Listing for the delivery rules. When streaming, the job
// is recorded before out.Halt runs.
func (s *Service) Export(ctx context.Context, req exporter.Request, out exporter.Output) (string, error) {
	var payload string
	err := s.run(ctx, history.KindExport, req.Name, func() (int, int, error) {
		if out.Halt != nil {
			halt := out.Halt
			start := time.Now()
			out.Halt = func(err error) {
				s.record(ctx, newJob(history.KindExport, req.Name), start, 0, len(req.Keys), err)
				halt(err)
			}
		}

		var err error
		payload, err = s.exporter.Listing(req, out)
		if errors.Is(err, exporter.ErrHaltReturned) {
			return 0, 0, errRecorded{err}
		}
		return len(req.Records), len(req.Keys), err
	})
	var rec errRecorded
	if errors.As(err, &rec) {
		err = rec.err
	}
	return payload, err
}

// Classify returns the first catalog rule matching value.
func (s *Service) Classify(value string) (patterns.Match, bool) {
	return s.classifier.Classify(value)
}

// Classifier returns the catalog in use.
func (s *Service) Classifier() *patterns.Classifier {
	return s.classifier
}

// History returns up to limit recent jobs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Job, error) {
	return s.history.Recent(ctx, limit)
}

// Limiter exposes the job limiter for health reporting and shutdown.
func (s *Service) Limiter() *JobLimiter {
	return s.limiter
}

// Drain waits for running jobs to finish.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func newJob(kind history.Kind, name string) history.Job {
	return history.Job{ID: uuid.New(), Kind: kind, Name: name}
}

// run executes fn under a limiter slot and the job timeout, and records the
// outcome. fn is not cancelled mid-read; the timeout only bounds the wait.
func (s *Service) run(ctx context.Context, kind history.Kind, name string, fn func() (rows, cols int, err error)) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	job := newJob(kind, name)
	log := logging.WithFields(ctx, "job_id", job.ID, "kind", kind, "name", name)

	if err := s.limiter.Acquire(ctx); err != nil {
		log.Warn("job rejected", "error", err)
		return err
	}
	defer s.limiter.Release()

	start := time.Now()
	log.Debug("job started")

	rows, cols, err := fn()
	var rec errRecorded
	if !errors.As(err, &rec) {
		s.record(ctx, job, start, rows, cols, err)
	}

	if err != nil {
		log.Warn("job failed", "error", err, "duration", time.Since(start))
		return err
	}
	log.Info("job completed", "rows", rows, "columns", cols, "duration", time.Since(start))
	return nil
}

// errRecorded marks a job error that was already written to history.
type errRecorded struct{ err error }

func (e errRecorded) Error() string { return e.err.Error() }
func (e errRecorded) Unwrap() error { return e.err }

func (s *Service) record(ctx context.Context, job history.Job, start time.Time, rows, cols int, err error) {
	job.Rows = rows
	job.Columns = cols
	job.Duration = time.Since(start)
	job.CreatedAt = start
	job.ClientIP = IPAddressFromContext(ctx)
	job.UserAgent = UserAgentFromContext(ctx)
	if err != nil {
		job.Error = err.Error()
		job.Rows = 0
	}

	// A context that already ended must not lose the record.
	if rerr := s.history.Record(context.WithoutCancel(ctx), job); rerr != nil {
		logging.FromContext(ctx).Error("record job history",
			"job_id", job.ID, "error", fmt.Errorf("%s %s: %w", job.Kind, job.Name, rerr))
	}
}
