package cmd

import (
	"strings"

	"github.com/Iron-Ham/parley/internal/backend"
	"github.com/Iron-Ham/parley/internal/config"
	"github.com/Iron-Ham/parley/internal/event"
	"github.com/Iron-Ham/parley/internal/invoker"
	"github.com/Iron-Ham/parley/internal/logging"
	"github.com/Iron-Ham/parley/internal/plugin"
	"github.com/Iron-Ham/parley/internal/session"
	"github.com/Iron-Ham/parley/internal/template"
	"github.com/spf13/cobra"
)

// app bundles the collaborators every command needs, resolved once from
// the loaded configuration.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *backend.Registry
	invoker  *invoker.Process
	bus      *event.Bus
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	res, err := plugin.LoadDir(cfg.Paths.ResolvePluginsDir())
	if err != nil {
		logger.Warn("plugin directory unreadable", "error", err.Error())
	}
	for _, skipped := range res.Skipped {
		logger.Warn("skipping plugin", "error", skipped.Error())
		cmd.PrintErrf("warning: %v\n", skipped)
	}

	registry, err := backend.NewRegistry(cfg.Backends, res.Descriptors)
	if err != nil {
		if registry == nil {
			_ = logger.Close()
			return nil, err
		}
		logger.Warn("some plugins were rejected", "error", err.Error())
		cmd.PrintErrf("warning: %v\n", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		invoker:  invoker.New(invoker.WithGracePeriod(cfg.Invoker.GracePeriod), invoker.WithLogger(logger)),
		bus:      event.NewBus(logger),
	}, nil
}

// newLogger writes to the config directory when logging.file is set.
// Otherwise only warnings reach stderr, unless debug output was requested.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if cfg.Logging.File {
		return logging.New(logging.Options{
			Dir:   config.ConfigDir(),
			Level: cfg.Logging.Level,
			Rotation: logging.RotationConfig{
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
			},
		})
	}
	level := logging.LevelWarn
	if strings.EqualFold(cfg.Logging.Level, "debug") {
		level = logging.LevelDebug
	}
	return logging.New(logging.Options{Level: level})
}

func (a *app) store() (*session.Store, error) {
	return session.NewStore(a.cfg.Paths.ResolveSessionsDir(),
		session.WithLogger(a.logger),
		session.WithBus(a.bus))
}

func (a *app) templates() (*template.Catalog, error) {
	return template.Load(a.cfg.Paths.ResolveTemplatesDir(), a.registry.IsKnown, a.logger)
}

func (a *app) close() {
	_ = a.logger.Close()
}
