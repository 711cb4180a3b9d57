package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/WillHanighen/CottageLauncher/internal/cache"
	"github.com/WillHanighen/CottageLauncher/internal/catalog"
	"github.com/WillHanighen/CottageLauncher/internal/config"
	"github.com/WillHanighen/CottageLauncher/internal/download"
	"github.com/WillHanighen/CottageLauncher/internal/fetch"
	"github.com/WillHanighen/CottageLauncher/internal/jre"
	"github.com/WillHanighen/CottageLauncher/internal/logger"
	"github.com/WillHanighen/CottageLauncher/internal/repository/instances"
	"github.com/WillHanighen/CottageLauncher/internal/service/installer"
	"github.com/WillHanighen/CottageLauncher/internal/service/launcher"
	"github.com/WillHanighen/CottageLauncher/internal/version"
)

// env bundles the wired collaborators every subcommand picks from.
type env struct {
	cfg       *config.Config
	catalog   *catalog.Client
	repo      *instances.Repository
	installer *installer.Service
	launcher  *launcher.Service
}

// loadEnv loads settings, applies the log level, and wires the service
// graph: one HTTP client, one download engine confined to the data root,
// one shared library cache, and the services on top.
func loadEnv(_ context.Context) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	if err = os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	client := fetch.New(
		fetch.WithUserAgent(version.UserAgent()),
		fetch.WithMaxRetries(cfg.DownloadRetries),
	)

	engine := download.NewEngine(client, cfg.DataDir, download.WithWorkers(cfg.DownloadWorkers))
	store := cache.NewStore(cfg.LibrariesDir(), engine)
	repo := instances.NewRepository(cfg.InstancesDir())
	provisioner := jre.NewProvisioner(client, engine, cfg.RuntimeAPIURL, cfg.RuntimesDir())
	catalogClient := catalog.New(client, cfg.CatalogURL, cfg.LoaderMetaURL, cfg.GameMetaURL)

	return &env{
		cfg:       cfg,
		catalog:   catalogClient,
		repo:      repo,
		installer: installer.NewService(catalogClient, store, engine, provisioner, repo, cfg.DownloadWorkers),
		launcher:  launcher.NewService(store, provisioner, repo, cfg.JavaHeapMB, cfg.LoaderPins),
	}, nil
}
