package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/til/internal/config"
	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/httpapi"
	"github.com/roach88/til/internal/mysqlstore"
	"github.com/roach88/til/internal/repository"
	"github.com/roach88/til/internal/session"
	"github.com/roach88/til/internal/store"
)

// seeder is implemented by the database backends.
type seeder interface {
	Seed(ctx context.Context, facts []fact.Fact) (int, error)
}

// backend is an opened remote plus its release function.
type backend struct {
	Remote repository.Remote
	Driver string
	close  func() error
}

// Close releases the backend's connections.
func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// newLogger builds the command logger: text on stderr, Debug with --verbose.
func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// resolveConfig loads the config file, if any, and applies flag overrides.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	switch {
	case opts.Database != "":
		cfg.Driver = config.DriverSQLite
		cfg.Database = opts.Database
	case opts.Remote != "":
		cfg.Driver = config.DriverHTTP
		cfg.RemoteURL = opts.Remote
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// openBackend connects to the remote selected by cfg.Driver.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		logger.Debug("opening database", "path", cfg.Database)
		st, err := store.Open(cfg.Database, store.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &backend{Remote: st, Driver: cfg.Driver, close: st.Close}, nil
	case config.DriverMySQL:
		logger.Debug("connecting to mysql")
		st, err := mysqlstore.Open(ctx, cfg.DSN, mysqlstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &backend{Remote: st, Driver: cfg.Driver, close: st.Close}, nil
	case config.DriverHTTP:
		logger.Debug("using remote", "url", cfg.RemoteURL)
		client, err := httpapi.NewClient(cfg.RemoteURL, httpapi.WithTimeout(cfg.HTTPTimeout))
		if err != nil {
			return nil, err
		}
		return &backend{Remote: client, Driver: cfg.Driver}, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// env is what a session-backed command needs.
type env struct {
	cfg       config.Config
	logger    *slog.Logger
	backend   *backend
	formatter *OutputFormatter
}

// setup resolves config, opens the backend and builds the formatter.
// The caller must Close the returned env.
func setup(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	formatter := newFormatter(opts, cmd)

	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to resolve config", err)
	}

	logger := newLogger(opts, cmd)
	b, err := openBackend(commandContext(cmd), cfg, logger)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeBackend, fmt.Sprintf("failed to open %s backend", cfg.Driver), err)
	}

	return &env{cfg: cfg, logger: logger, backend: b, formatter: formatter}, nil
}

func (e *env) Close() {
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend", "error", err)
	}
}

// newSession builds a session whose notices print to stderr.
func (e *env) newSession(cmd *cobra.Command) *session.Session {
	opts := []session.Option{
		session.WithLogger(e.logger),
		session.WithNotifier(session.WriterNotifier{W: cmd.ErrOrStderr()}),
		session.WithDefaultCategory(e.cfg.DefaultCategory),
	}
	if e.cfg.DiscardStale {
		opts = append(opts, session.WithDiscardStale())
	}
	return session.New(repository.New(e.backend.Remote), opts...)
}
