// Package app assembles the engine from configuration for the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/YusovID/bim-delivery-service/internal/config"
	"github.com/YusovID/bim-delivery-service/internal/repository/postgres"
	"github.com/YusovID/bim-delivery-service/internal/service"
	"github.com/YusovID/bim-delivery-service/internal/templatefile"
)

// App owns the database pool and the services built on it.
type App struct {
	db       *postgres.Postgres
	Services service.Services
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	db, err := postgres.NewDB(cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}

	repos := db.Repositories()

	services := service.New(db.DB(), log, service.Repositories{
		Projects:  repos.Projects,
		Services:  repos.Services,
		Cycles:    repos.Cycles,
		Claims:    repos.Claims,
		Templates: repos.Templates,
	}, EngineOptions(cfg.Engine))

	return &App{db: db, Services: services}, nil
}

// EngineOptions maps the engine config section onto service options.
func EngineOptions(cfg config.Engine) service.Options {
	opts := service.DefaultOptions()
	opts.TurnaroundDays = cfg.TurnaroundDays

	if cfg.UpcomingLookahead > 0 {
		opts.UpcomingLookahead = cfg.UpcomingLookahead
	}

	return opts
}

func (a *App) Close() error {
	return a.db.DB().Close()
}

// ImportCatalogFile loads a YAML template catalog and stores the templates not seen before.
func ImportCatalogFile(ctx context.Context, templates service.TemplateService, path string) (total, created int, err error) {
	catalog, err := templatefile.Load(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load template catalog: %w", err)
	}

	created, err = templates.ImportCatalog(ctx, catalog)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to import template catalog: %w", err)
	}

	return len(catalog), created, nil
}
