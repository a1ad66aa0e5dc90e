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
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/webherbas/taskflow/internal/adapters/server"
	"github.com/webherbas/taskflow/internal/adapters/storage/jsonfile"
	"github.com/webherbas/taskflow/internal/adapters/storage/sqlite"
	"github.com/webherbas/taskflow/internal/app"
	"github.com/webherbas/taskflow/internal/config"
	"github.com/webherbas/taskflow/internal/platform"
	"github.com/webherbas/taskflow/internal/tui"
)

var version = "dev"

// program is the part of tea.Program the board command needs.
type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP pages, REST API, and MCP endpoint.
var serveCommandRunner = func(ctx context.Context, cfg server.Config, deps server.Dependencies) error {
	return server.Run(ctx, cfg, deps)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := fang.Execute(ctx, newRootCommand(os.Stdout, os.Stderr), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes one command line against the given streams.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	storePath  string
	backend    string
	appName    string
	devMode    bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	opts := &globalOptions{stdout: stdout, stderr: stderr}

	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TASKFLOW_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("TASKFLOW_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:           "taskflow",
		Short:         "Three-column task board for the terminal and the browser",
		Long:          "taskflow keeps a todo / in-progress / done board in a local store.\nRun without a command to open the board in the terminal.",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd.Context(), opts)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.storePath, "store", "", "path to the task store (sqlite database or JSON file)")
	flags.StringVar(&opts.backend, "backend", "", "store backend: sqlite or file")
	flags.StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newServeCommand(opts),
		newAddCommand(opts),
		newListCommand(opts),
		newMoveCommand(opts),
		newAdvanceCommand(opts),
		newRemoveCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newClearCommand(opts),
		newBackupCommand(opts),
		newHistoryCommand(opts),
		newPathsCommand(opts),
	)
	return root
}

// runBoard opens the terminal board.
func runBoard(ctx context.Context, opts *globalOptions) error {
	env, err := openRuntime(ctx, opts, "tui")
	if err != nil {
		return err
	}
	defer env.Close()

	exportDir, err := os.Getwd()
	if err != nil {
		exportDir = "."
	}
	m := tui.NewModel(
		env.board,
		tui.WithLocation(env.loc),
		tui.WithExportDir(exportDir),
		tui.WithConfirmDelete(env.cfg.Confirm.Delete),
		tui.WithLogger(env.logger),
	)
	env.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	env.logger.Info("command flow complete", "command", "tui")
	return nil
}

// runtimeEnv is the resolved configuration, logger, store, and board for
// one command.
type runtimeEnv struct {
	opts       *globalOptions
	paths      platform.Paths
	configPath string
	cfg        config.Config
	loc        *time.Location
	logger     *runtimeLogger
	sqlite     *sqlite.Store
	json       *jsonfile.Store
	board      *app.Board
}

// resolvePaths resolves per-user paths for the selected app name.
// TASKFLOW_HOME switches to a portable layout rooted at that directory.
func resolvePaths(opts *globalOptions) (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
		Home:    os.Getenv("TASKFLOW_HOME"),
	})
}

// loadRuntimeConfig merges the config file with flag and environment
// overrides. Flags win over environment variables, which win over the file.
func loadRuntimeConfig(opts *globalOptions, paths platform.Paths) (string, config.Config, error) {
	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TASKFLOW_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	storePath := strings.TrimSpace(opts.storePath)
	if storePath == "" {
		storePath = strings.TrimSpace(os.Getenv("TASKFLOW_STORE_PATH"))
	}
	backend := strings.TrimSpace(opts.backend)
	if backend == "" {
		backend = strings.TrimSpace(os.Getenv("TASKFLOW_STORE_BACKEND"))
	}

	cfg, err := config.Load(configPath, config.Default(paths.DBPath))
	if err != nil {
		return "", config.Config{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if backend != "" {
		cfg.Storage.Backend = config.Backend(strings.ToLower(backend))
	}
	switch {
	case storePath != "":
		cfg.Storage.Path = storePath
	case cfg.Storage.Backend == config.BackendFile && cfg.Storage.Path == paths.DBPath:
		cfg.Storage.Path = paths.JSONPath
	}
	if strings.TrimSpace(cfg.Backup.Dir) == "" {
		cfg.Backup.Dir = paths.BackupDir
	}
	if err := cfg.Validate(); err != nil {
		return "", config.Config{}, fmt.Errorf("validate config %q: %w", configPath, err)
	}
	return configPath, cfg, nil
}

// openRuntime loads config, starts logging, opens the configured store, and
// loads the board. The caller must Close the result.
func openRuntime(ctx context.Context, opts *globalOptions, command string) (*runtimeEnv, error) {
	paths, err := resolvePaths(opts)
	if err != nil {
		return nil, err
	}
	configPath, cfg, err := loadRuntimeConfig(opts, paths)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	logger, err := newRuntimeLogger(opts.stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		logger.SetConsoleEnabled(false)
	}
	env := &runtimeEnv{
		opts:       opts,
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		loc:        loc,
		logger:     logger,
	}

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "store_path", cfg.Storage.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	var kv app.KeyValueStore
	switch cfg.Storage.Backend {
	case config.BackendFile:
		store, err := jsonfile.Open(cfg.Storage.Path, jsonfile.WithLogger(logger))
		if err != nil {
			logger.Error("json store open failed", "path", cfg.Storage.Path, "err", err)
			env.Close()
			return nil, fmt.Errorf("open json store: %w", err)
		}
		env.json = store
		kv = store
	default:
		store, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			logger.Error("sqlite open failed", "path", cfg.Storage.Path, "err", err)
			env.Close()
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		env.sqlite = store
		kv = store
	}
	logger.Info("store ready", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)

	env.board = app.NewBoard(app.NewStorage(kv, logger), uuid.NewString, nil, app.BoardConfig{
		PageSize: cfg.Board.PageSize,
		Logger:   logger,
	})
	env.board.Reload(ctx)
	return env, nil
}

// Close releases the store and the log file.
func (e *runtimeEnv) Close() {
	if e == nil {
		return
	}
	if e.sqlite != nil {
		if err := e.sqlite.Close(); err != nil {
			e.logger.Warn("sqlite close failed", "path", e.cfg.Storage.Path, "err", err)
		}
		e.sqlite = nil
	}
	if err := e.logger.Close(); err != nil && e.logger.consoleActive() {
		_, _ = fmt.Fprintf(e.opts.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// withRuntime opens the runtime for command, runs fn, and logs the outcome
// the same way for every subcommand.
func withRuntime(ctx context.Context, opts *globalOptions, command string, fn func(*runtimeEnv) error) error {
	env, err := openRuntime(ctx, opts, command)
	if err != nil {
		return err
	}
	defer env.Close()

	env.logger.Info("command flow start", "command", command)
	if err := fn(env); err != nil {
		env.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	env.logger.Info("command flow complete", "command", command)
	return nil
}

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

// errHistoryUnsupported is returned by history on the JSON file backend,
// which keeps no change journal.
var errHistoryUnsupported = errors.New("history requires the sqlite backend")
