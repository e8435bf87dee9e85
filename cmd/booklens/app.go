package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/justyntemme/booklens/internal/client"
	"github.com/justyntemme/booklens/internal/config"
	"github.com/justyntemme/booklens/internal/library"
	"github.com/justyntemme/booklens/internal/logging"
	"github.com/justyntemme/booklens/internal/metadata"
	"github.com/justyntemme/booklens/internal/persona"
	"github.com/justyntemme/booklens/internal/progress"
	"github.com/justyntemme/booklens/internal/storage"
	"github.com/justyntemme/booklens/internal/tracker"
)

// app holds the collaborators shared by every command
type app struct {
	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
	store   *storage.FileStore
	api     *client.Client
	repo    *library.Repository
	tracker *tracker.Service
	meta    *metadata.Service

	out io.Writer
	in  io.Reader
}

func newApp(cfgPath string, verbose bool, out io.Writer, in io.Reader) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Development: cfg.Logging.Development || verbose})
	if err != nil {
		return nil, err
	}

	store, err := storage.NewFileStore(cfg.LocalStorePath())
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}
	api := client.New(client.Options{
		BaseURL:    cfg.API.BaseURL,
		Token:      cfg.API.Token,
		Timeout:    timeout,
		MaxRetries: cfg.API.MaxRetries,
		Logger:     logger.Named("api"),
	})

	mode, err := progress.ParseInputMode(cfg.Reading.InputMode)
	if err != nil {
		return nil, err
	}

	repo := library.NewRepository(api, store, logger.Named("library"))
	svc := tracker.New(tracker.Config{
		Library:   repo,
		Sessions:  store,
		Personas:  persona.NewCache(store, logger.Named("persona")),
		InputMode: mode,
		UserID:    cfg.UserID,
		Logger:    logger.Named("tracker"),
	})

	return &app{
		cfg:     cfg,
		cfgPath: cfgPath,
		logger:  logger,
		store:   store,
		api:     api,
		repo:    repo,
		tracker: svc,
		meta:    metadata.NewDefaultService(cfg.Metadata.GoogleBooksAPIKey, logger.Named("metadata")),
		out:     out,
		in:      in,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// offlineNote marks output produced from the local store
func (a *app) offlineNote(degraded bool) {
	if degraded {
		a.printf("(API unreachable: saved to the local store)\n")
	}
}
