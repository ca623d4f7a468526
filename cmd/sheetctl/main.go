// Command sheetctl imports, exports and classifies spreadsheets from the
// command line using the same configuration as the server.
package main

import (
	"fmt"
	"io"
	"os"
	_ "time/tzdata"

	"github.com/JonMunkholm/sheets/internal/application"
	"github.com/JonMunkholm/sheets/internal/config"
	"github.com/JonMunkholm/sheets/internal/core"
	"github.com/JonMunkholm/sheets/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// cli carries the state shared by all subcommands.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	exit   func(int)

	catalog  string
	logLevel string

	cfg *config.Config
	app *application.App
}

func main() {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr, exit: os.Exit}
	if err := c.root().Execute(); err != nil {
		c.fail(err)
	}
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "sheetctl",
		Short:         "Read and write spreadsheets with typed columns",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.PersistentFlags().StringVar(&c.catalog, "catalog", "", "pattern catalog file (JSON or YAML); overrides CATALOG_PATH")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level; overrides LOG_LEVEL")

	root.AddCommand(
		c.importCmd(),
		c.previewCmd(),
		c.headerCmd(),
		c.exportCmd(),
		c.classifyCmd(),
		c.patternsCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.catalog != "" {
		cfg.Catalog.Path = c.catalog
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	app, err := application.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.app = app
	return nil
}

// fail prints err with its support code and exits with status 1.
func (c *cli) fail(err error) {
	if msg := core.FormatUserError(err); core.IsUserFacing(err) {
		fmt.Fprintln(c.stderr, msg)
	}
	fmt.Fprintln(c.stderr, "error:", err)
	c.exit(1)
}
