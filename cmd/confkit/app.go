// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/confkit/confkit/internal/config"
	"github.com/confkit/confkit/internal/container"
	"github.com/confkit/confkit/internal/vcs"
)

type (
	// App wires CLI services and shared dependencies. Cobra handlers receive
	// an App and delegate to its services.
	App struct {
		Config  config.Provider
		VCS     vcs.Resolver
		engines *container.Selector
		stdout  io.Writer
		stderr  io.Writer
		logger  *slog.Logger

		verbose    bool
		configPath string
		// installLogger also makes the CLI logger the slog default.
		installLogger bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		VCS    vcs.Resolver
		// Engines is used as is when set; otherwise the engine named in the
		// configuration is selected on first use.
		Engines *container.Selector
		Stdout  io.Writer
		Stderr  io.Writer
	}
)

// NewApp creates the CLI composition root.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config:  deps.Config,
		VCS:     deps.VCS,
		engines: deps.Engines,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
		logger:  newLogger(deps.Stderr, false),
	}, nil
}

// newLogger returns a slog logger backed by a charmbracelet/log handler.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return slog.New(handler)
}

func (a *App) setupLogging() {
	a.logger = newLogger(a.stderr, a.verbose)
	if a.installLogger {
		slog.SetDefault(a.logger)
	}
}

func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
}

// engine selects the configured engine on first use and returns it.
func (a *App) engine(ctx context.Context, cfg *config.Config) (container.Engine, error) {
	typ, err := container.ParseEngineType(cfg.Engine)
	if err != nil {
		return nil, err
	}
	if a.engines == nil {
		a.engines = container.NewSelector(
			container.WithCompose(cfg.EngineCompose.Project, cfg.ResolvePath(cfg.EngineCompose.File)),
			container.WithLogger(a.logger),
		)
	}
	return a.engines.Select(ctx, typ)
}

// vcsResolver returns the injected resolver or a go-git backed one.
func (a *App) vcsResolver() vcs.Resolver {
	if a.VCS != nil {
		return a.VCS
	}
	return vcs.NewGitResolver(vcs.WithLogger(a.logger))
}

// withEngine loads the configuration, selects the engine and calls fn.
func (a *App) withEngine(ctx context.Context, fn func(*config.Config, container.Engine) error) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	engine, err := a.engine(ctx, cfg)
	if err != nil {
		return err
	}
	return fn(cfg, engine)
}
