package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/hylla/timebox/internal/adapters/notify"
	"github.com/hylla/timebox/internal/adapters/storage/sqlite"
	"github.com/hylla/timebox/internal/app"
	"github.com/hylla/timebox/internal/config"
	"github.com/hylla/timebox/internal/platform"
	"github.com/hylla/timebox/internal/tui"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// program is the slice of *tea.Program the CLI depends on.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests swap it for a fake.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// tickerFactory builds the ticker that drives watch and serve.
var tickerFactory = func() app.Ticker {
	return app.NewSystemTicker(time.Second)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes one CLI invocation.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if args == nil {
		args = []string{}
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// cliOptions holds the persistent flags shared by every command.
type cliOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{stdout: stdout, stderr: stderr}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TIMEBOX_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := "timebox"
	if envApp := strings.TrimSpace(os.Getenv("TIMEBOX_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:   "timebox",
		Short: "Track how long work really takes against your estimate",
		Long: "timebox starts a countdown for one activity at a time, rings when the estimate runs out\n" +
			"and records how far the actual time landed from the guess.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newStartCommand(opts),
		newCompleteCommand(opts),
		newDeleteCommand(opts),
		newEditCommand(opts),
		newListCommand(opts),
		newExportCommand(opts),
		newReportCommand(opts),
		newWatchCommand(opts),
		newServeCommand(opts),
		newPathsCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// session is the wired runtime one command works against.
type session struct {
	command    string
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	repo       *sqlite.Repository
	store      *app.Store
	bell       *notify.Bell
}

func (o *cliOptions) resolvePaths() (platform.Paths, error) {
	return platform.Resolve(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
}

// resolveConfig applies flag, env and platform defaults then loads the config file.
func (o *cliOptions) resolveConfig(paths platform.Paths) (string, config.Config, error) {
	configPath := strings.TrimSpace(o.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TIMEBOX_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(o.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("TIMEBOX_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}
	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return "", config.Config{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if strings.TrimSpace(cfg.Export.Dir) == "" {
		cfg.Export.Dir = paths.ExportDir
	}
	return configPath, cfg, nil
}

// openSession resolves configuration, opens storage and loads the activity list.
func openSession(ctx context.Context, opts *cliOptions, command string) (*session, error) {
	paths, err := opts.resolvePaths()
	if err != nil {
		return nil, err
	}
	configPath, cfg, err := opts.resolveConfig(paths)
	if err != nil {
		return nil, err
	}
	logger, err := newRuntimeLogger(opts.stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// The board owns the terminal; runtime logs go to the dev file only.
		logger.SetConsoleEnabled(false)
	}
	s := &session{
		command:    command,
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "export_dir", cfg.Export.Dir)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	s.repo = repo

	storeOpts := []app.Option{
		app.WithLogger(logger),
		app.WithStorageKey(cfg.Storage.Key),
	}
	if cfg.Alert.Enabled {
		s.bell = notify.NewBell(opts.stderr,
			notify.WithBeeps(cfg.Alert.Beeps),
			notify.WithInterval(cfg.AlertInterval()),
			notify.WithLogger(logger),
		)
		storeOpts = append(storeOpts, app.WithNotifier(s.bell))
	}
	s.store = app.NewStore(repo, storeOpts...)
	res := s.store.Load(ctx)
	if res.Recovered != nil {
		logger.Warn("activity storage reset", "key", cfg.Storage.Key, "err", res.Recovered)
	}
	logger.Info("activities loaded", "count", res.Loaded, "dropped", res.Dropped, "active", res.Restored)
	return s, nil
}

// Close stops pending beeps and releases storage and the log file.
func (s *session) Close() {
	if s == nil {
		return
	}
	if s.bell != nil {
		s.bell.Cancel()
	}
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.logger.Warn("sqlite close failed", "db_path", s.cfg.Database.Path, "err", err)
		}
	}
	if err := s.logger.Close(); err != nil && s.logger.consoleActive() {
		s.logger.consoleSink.Warn("close runtime log sink failed", "err", err)
	}
}

// saved reports the last persistence failure so mutating commands exit non-zero.
func (s *session) saved() error {
	if err := s.store.LastSaveError(); err != nil {
		return fmt.Errorf("save activities: %w", err)
	}
	return nil
}

// withSession wraps one command body with session setup, flow logging and teardown.
func withSession(ctx context.Context, opts *cliOptions, command string, fn func(*session) error) error {
	s, err := openSession(ctx, opts, command)
	if err != nil {
		return err
	}
	defer s.Close()
	s.logger.Info("command flow start", "command", command)
	if err := fn(s); err != nil {
		s.logger.Error("command flow failed", "command", command, "err", err)
		return err
	}
	s.logger.Info("command flow complete", "command", command)
	return nil
}

func runTUI(ctx context.Context, opts *cliOptions) error {
	return withSession(ctx, opts, "tui", func(s *session) error {
		m := tui.NewModel(
			s.store,
			tui.WithWarningThreshold(s.cfg.WarningThreshold()),
			tui.WithExportDir(s.cfg.Export.Dir),
		)
		s.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			return fmt.Errorf("run tui program: %w", err)
		}
		s.store.StopTimer()
		return nil
	})
}

// parseBoolEnv reads a boolean env var; ok is false when unset or unparsable.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// ignoreCanceled treats an interrupted long-running command as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
