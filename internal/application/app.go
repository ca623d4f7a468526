// Package application assembles the service from configuration. Both the
// HTTP server and the CLI start from here.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/sheets/internal/config"
	"github.com/JonMunkholm/sheets/internal/core"
	"github.com/JonMunkholm/sheets/internal/exporter"
	"github.com/JonMunkholm/sheets/internal/history"
	"github.com/JonMunkholm/sheets/internal/importer"
	"github.com/JonMunkholm/sheets/internal/logging"
	"github.com/JonMunkholm/sheets/internal/patterns"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App owns the service and the resources behind it.
type App struct {
	Service *core.Service
	pool    *pgxpool.Pool
}

// New loads the catalog, connects the history store and builds the service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	classifier, err := loadClassifier(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	importLoc, err := cfg.ImportLocation()
	if err != nil {
		return nil, fmt.Errorf("import timezone: %w", err)
	}
	exportLoc := exporter.DefaultLocation()
	if cfg.Export.Timezone != "" {
		if exportLoc, err = time.LoadLocation(cfg.Export.Timezone); err != nil {
			return nil, fmt.Errorf("export timezone: %w", err)
		}
	}

	builder, err := exporter.New(classifier, exporter.Options{
		Font:      exporter.Font{Name: cfg.Export.FontName, Size: cfg.Export.FontSize},
		TitleSpan: cfg.Export.TitleSpan,
		Creator:   cfg.Export.Creator,
		Location:  exportLoc,
		BasePath:  cfg.Export.BasePath,
	})
	if err != nil {
		return nil, err
	}

	app := &App{}
	store, err := app.historyStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app.Service, err = core.NewService(core.Deps{
		Classifier: classifier,
		Importer: importer.New(importer.Options{
			Location: importLoc,
			Charset:  cfg.Import.CSVCharset,
			Comma:    cfg.Import.Comma(),
		}),
		Exporter: builder,
		History:  store,
		Limiter:  core.NewJobLimiter(cfg.Jobs.MaxConcurrent, cfg.Jobs.MaxWaitTime),
		Timeout:  cfg.Jobs.Timeout,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func loadClassifier(path string) (*patterns.Classifier, error) {
	rules := patterns.DefaultRules()
	if path != "" {
		var err error
		if rules, err = patterns.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return patterns.New(rules, nil)
}

func (a *App) historyStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	log := logging.FromContext(ctx)
	if cfg.Database.URL == "" {
		log.Debug("job history kept in memory", "capacity", cfg.Jobs.HistorySize)
		return history.NewMemoryStore(cfg.Jobs.HistorySize), nil
	}

	pool, err := history.Connect(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		return nil, err
	}
	store := history.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	a.pool = pool
	log.Info("job history stored in postgres")
	return store, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
