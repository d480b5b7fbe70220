package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	coreapp "overrides/internal/core/app"
	"overrides/internal/core/config"
	"overrides/internal/core/errors"
	"overrides/internal/shared/observability"
	"path/filepath"
	"time"
)

// Run executes the CLI and returns the process exit code.
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, out, errOut io.Writer) int {
	rt := &runtime{opts: &cliOptions{}, out: out, errOut: errOut}
	root := newRootCmd(rt)
	root.SetArgs(args)
	err := root.Execute()
	if closeErr := rt.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(errOut, errorStyle.Render("error: ")+err.Error())
		if errors.IsCode(err, errors.CodeValidationError) {
			return 2
		}
		return 1
	}
	return 0
}

// runtime holds what a command needs once flags are parsed.
type runtime struct {
	opts   *cliOptions
	out    io.Writer
	errOut io.Writer

	cfg         *config.Config
	app         *coreapp.App
	stopTracing func(context.Context) error
}

func (rt *runtime) setup() error {
	configureLogging(rt.opts.verbose, rt.errOut)

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, path, err := loadConfig(rt.opts.configPath, cwd)
	if err != nil {
		return err
	}
	if path != "" {
		slog.Debug("config loaded", "path", path)
	}
	rt.cfg = cfg

	if obs := cfg.Observability; obs.OTLPEndpoint != "" {
		stop, err := observability.InitTracing(context.Background(), obs.OTLPEndpoint, obs.OTLPInsecure)
		if err != nil {
			return err
		}
		rt.stopTracing = stop
	}
	return nil
}

// openApp creates the app and loads a hierarchy: the latest stored snapshot
// with --stored, a fresh index otherwise.
func (rt *runtime) openApp(ctx context.Context) (*coreapp.App, error) {
	if rt.opts.stored {
		rt.cfg.DB.Enabled = true
	}
	a, err := rt.newApp()
	if err != nil {
		return nil, err
	}

	if rt.opts.stored {
		if _, err := a.UseStored(ctx); err != nil {
			return nil, err
		}
		return a, nil
	}
	if _, err := a.Index(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (rt *runtime) newApp() (*coreapp.App, error) {
	a, err := coreapp.New(rt.cfg)
	if err != nil {
		return nil, err
	}
	rt.app = a
	return a, nil
}

func (rt *runtime) close() error {
	var err error
	if rt.app != nil {
		err = rt.app.Close()
		rt.app = nil
	}
	if rt.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if stopErr := rt.stopTracing(ctx); stopErr != nil {
			slog.Warn("failed to flush spans", "error", stopErr)
		}
		rt.stopTracing = nil
	}
	return err
}

// loadConfig reads path. The default path is optional: when it does not
// exist the built-in defaults apply, rooted at cwd.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	candidate := filepath.Join(cwd, config.DefaultFileName)
	if _, err := os.Stat(candidate); err == nil {
		cfg, err := config.Load(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}

	cfg := config.DefaultConfig()
	config.ApplyEnvOverrides(cfg)
	for i, p := range cfg.SourcePaths {
		cfg.SourcePaths[i] = config.ResolveRelative(cwd, p)
	}
	cfg.DB.Path = config.ResolveRelative(cwd, cfg.DB.Path)
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

func configureLogging(verbose bool, output io.Writer) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
