package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/JonMunkholm/sheets/internal/core"
	"github.com/JonMunkholm/sheets/internal/exporter"
	"github.com/JonMunkholm/sheets/internal/sheet"
	"github.com/spf13/cobra"
)

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) importCmd() *cobra.Command {
	var req core.ImportRequest

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Read a workbook or CSV file into JSON records",
		Long: `Read a workbook or CSV file into JSON records.

The row at --start is the header row. Its cells name the columns unless
--columns is given. Columns listed in --dates are normalized to YYYY-MM-DD.

Example: sheetctl import ventas.xlsx --start B3 --dates fecha`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.app.Service.ImportFile(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return c.printJSON(res)
		},
	}

	cmd.Flags().StringSliceVar(&req.Columns, "columns", nil, "column names, comma-separated")
	cmd.Flags().StringSliceVar(&req.DateColumns, "dates", nil, "date columns, comma-separated")
	cmd.Flags().StringVar(&req.StartCell, "start", "", "first cell of the range (default A1)")
	return cmd
}

func (c *cli) previewCmd() *cobra.Command {
	var (
		req  core.ImportRequest
		rows int
	)

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show a sample of the rows and the type the catalog gives each column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.Service.PreviewFile(cmd.Context(), args[0], req, rows)
			if err != nil {
				return err
			}
			return c.printJSON(p)
		},
	}

	cmd.Flags().StringSliceVar(&req.Columns, "columns", nil, "column names, comma-separated")
	cmd.Flags().StringSliceVar(&req.DateColumns, "dates", nil, "date columns, comma-separated")
	cmd.Flags().StringVar(&req.StartCell, "start", "", "first cell of the range (default A1)")
	cmd.Flags().IntVar(&rows, "rows", core.DefaultPreviewRows, "sample size")
	return cmd
}

func (c *cli) headerCmd() *cobra.Command {
	var start string

	cmd := &cobra.Command{
		Use:   "header <file>",
		Short: "Print the first row of the range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if start == "" {
				start = c.cfg.Import.DefaultStartCell
			}
			columns, err := c.app.Service.HeaderFile(cmd.Context(), args[0], start)
			if err != nil {
				return err
			}
			return c.printJSON(columns)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first cell of the range (default from IMPORT_START_CELL)")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var (
		specPath string
		outPath  string
		dir      string
	)

	cmd := &cobra.Command{
		Use:   "export --spec spec.json (--out file.xlsx | --base64)",
		Short: "Build a styled workbook from a JSON export request",
		Long: `Build a styled workbook from a JSON export request.

With --out the workbook is written to that file. Without it the workbook is
persisted under --dir and printed as base64. Use "-" as --spec to read the
request from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd.InOrStdin(), specPath)
			if err != nil {
				return err
			}

			if outPath == "" {
				payload, err := c.app.Service.Export(cmd.Context(), req, exporter.Output{Dir: dir})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.stdout, payload)
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			halt := func(err error) {
				f.Close()
				os.Remove(outPath)
				c.fail(err)
			}
			if _, err := c.app.Service.Export(cmd.Context(), req, exporter.Output{Stream: f, Halt: halt}); err != nil {
				f.Close()
				os.Remove(outPath)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(c.stderr, "wrote %s (%d rows)\n", outPath, len(req.Records))
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "export request JSON file, or - for stdin")
	cmd.Flags().StringVar(&outPath, "out", "", "workbook file to write")
	cmd.Flags().Bool("base64", false, "print the workbook as base64 (the default without --out)")
	cmd.Flags().StringVar(&dir, "dir", "", "base path for persisted workbooks (default EXPORT_BASE_PATH)")
	cmd.MarkFlagRequired("spec")
	cmd.MarkFlagsMutuallyExclusive("out", "base64")
	return cmd
}

func readRequest(stdin io.Reader, path string) (exporter.Request, error) {
	var req exporter.Request

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, sheet.Wrap(sheet.SourceNotFound, err, path, "opening export request")
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return req, sheet.Wrap(sheet.CodecFailure, err, path, "decoding export request")
	}
	return req, nil
}

func (c *cli) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <value>...",
		Short: "Show the type and export format each value would get",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier := c.app.Service.Classifier()
			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VALUE\tTYPE\tFORMAT")
			for _, v := range args {
				m, ok := classifier.Classify(v)
				if !ok {
					fmt.Fprintf(tw, "%s\t-\t-\n", v)
					continue
				}
				code, ok := classifier.FormatCode(m.Format)
				if !ok {
					code = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", v, m.Type, code)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) patternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List the loaded pattern catalog in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(c.stdout, c.app.Service.Classifier().Describe())
			return err
		},
	}
}
