package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"imgseek/internal/config"
	"imgseek/internal/datadir"
	"imgseek/internal/history"
	"imgseek/internal/logging"
	"imgseek/internal/searchapi"
)

// app bundles the resolved configuration shared by the commands.
type app struct {
	cfg     *config.Config
	cfgPath string
	dirs    *datadir.DataDir
	logger  *log.Logger
	closer  io.Closer
}

// loadApp resolves the data directory, .env files and configuration in
// priority order: flags, environment, config file, defaults. When logFile is
// true the logger writes to {datadir}/imgseek.log instead of stderr.
func loadApp(opts *globalOptions, stderr io.Writer, logFile bool) (*app, error) {
	dirs, err := datadir.New(opts.dataDir)
	if err != nil {
		return nil, err
	}
	if err := datadir.LoadEnv(dirs.Root()); err != nil {
		return nil, err
	}

	cfgPath := opts.cfgFile
	if cfgPath == "" {
		cfgPath = dirs.ConfigPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	// data_dir from the config file applies when neither the flag nor
	// IMGSEEK_DATA_DIR chose one.
	if opts.dataDir == "" && datadir.EnvValue() == "" && cfg.DataDir != "" {
		if dirs, err = datadir.New(cfg.DataDir); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if opts.server != "" {
		cfg.ServerURL = opts.server
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{cfg: cfg, cfgPath: cfgPath, dirs: dirs}
	if logFile {
		if err := dirs.Ensure(); err != nil {
			return nil, err
		}
		logger, closer, err := logging.NewFile(dirs.LogPath(), cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		a.logger, a.closer = logger, closer
	} else {
		a.logger = logging.New(stderr, cfg.LogLevel)
	}

	a.logger.Debug("configuration loaded", "config", cfgPath, "data_dir", dirs.Root(), "server", cfg.ServerURL)
	return a, nil
}

// Close releases the log file, if any.
func (a *app) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// client builds the search server client.
func (a *app) client() (*searchapi.Client, error) {
	return searchapi.NewClient(searchapi.Config{
		BaseURL: a.cfg.ServerURL,
		Timeout: a.cfg.Timeout(),
	}, a.logger)
}

// openHistory opens the local search history, or returns nil when it is
// disabled.
func (a *app) openHistory() (*history.Store, error) {
	if !a.cfg.History() {
		return nil, nil
	}
	if err := a.dirs.Ensure(); err != nil {
		return nil, err
	}
	store, err := history.Open(a.cfg.ResolveHistoryPath(a.dirs.HistoryPath()))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("search history opened", "path", store.Path())
	return store, nil
}
