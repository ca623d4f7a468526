// Package core runs spreadsheet import and export jobs.
//
// The package ties the pattern catalog, the importer and the workbook
// exporter together behind one [Service]. It has no knowledge of HTTP or the
// command line; the web server and sheetctl both drive it the same way.
//
// # Jobs
//
// Every import, preview and export is a job. A job:
//
//  1. Takes a slot from the [JobLimiter], waiting at most its MaxWaitTime
//  2. Runs under the service timeout
//  3. Is written to the history store when it ends, successful or not
//
// Jobs rejected by the limiter are not recorded. The caller's IP address and
// User-Agent, when set with [ContextWithIPAddress] and [ContextWithUserAgent],
// are stored with the job.
//
// # Imports
//
// The first row of the range at the start cell is the header row. Without
// explicit columns its cells name the record fields:
//
//	res, err := svc.Import(ctx, file, "ventas.xlsx", core.ImportRequest{
//	    StartCell:   "B3",
//	    DateColumns: []string{"fecha"},
//	})
//
// [Service.Preview] reads the same way and adds a per-column type profile
// from the catalog.
//
// # Exports
//
// [Service.Export] either persists the workbook and returns its base64 text
// or writes it to a stream. When streaming, failures go to the Halt function
// of the output, after the job has been recorded.
//
// # Error Handling
//
// Errors are mapped to user-facing messages with [MapError]. Each category
// has a code for support reference:
//
//   - IMP001-IMP005: Import errors (empty input, missing file, bad cell, widths, dates)
//   - EXP001-EXP003: Export errors (too many columns, nested values, no name)
//   - FILE001-FILE003: File errors (codec, size, missing upload)
//   - JOB001-JOB003, RATE001: Capacity and timeouts
//
// # Maintenance
//
// [Service.StartHistoryPruner] deletes jobs past the retention window from
// stores that support it.
package core
