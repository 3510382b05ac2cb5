package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imgharvest/pkg/config"
	"imgharvest/pkg/downloader"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/search"
	"imgharvest/pkg/storage"
	"imgharvest/pkg/webclient"
)

// app holds the collaborators shared by every task of one invocation
type app struct {
	cfg        *config.Config
	log        logger.Logger
	client     *webclient.Client
	store      *storage.Manager
	downloader *downloader.Downloader
}

// newApp loads configuration, sets up logging and builds the HTTP,
// storage and download layers
func newApp(cmd *cobra.Command, extra map[string]interface{}) (*app, error) {
	flags := flagOverrides(cmd)
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	// the live view owns the terminal, so console logging is off unless
	// a log file is configured
	if useTUI && cfg.Logging.File == "" {
		cfg.Logging.Level = "disabled"
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, err
	}
	log := logger.WithField("version", version)
	log.DebugWithFields("configuration loaded", map[string]interface{}{
		"output":     cfg.Output.BaseDirectory,
		"rate_limit": cfg.RateLimit.RequestsPerMinute,
	})

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client := webclient.NewFromConfig(cfg, log.WithField("component", "webclient"))
	return &app{
		cfg:        cfg,
		log:        log,
		client:     client,
		store:      store,
		downloader: downloader.New(client, store, cfg.Download, log.WithField("component", "downloader")),
	}, nil
}

// searcher builds a reverse image search client on the shared web client
func (a *app) searcher() (*search.Searcher, error) {
	return search.New(a.client, a.cfg.Search, a.log.WithField("component", "search"))
}
