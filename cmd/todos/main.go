package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hylla/todos/internal/adapters/codec/yamlio"
	"github.com/hylla/todos/internal/adapters/server"
	"github.com/hylla/todos/internal/adapters/server/common"
	"github.com/hylla/todos/internal/adapters/storage/sqlite"
	"github.com/hylla/todos/internal/app"
	"github.com/hylla/todos/internal/config"
	"github.com/hylla/todos/internal/platform"
	"github.com/hylla/todos/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(ctx, root, fang.WithVersion(version)); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes the command tree without fang styling.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceErrors = true
	root.SilenceUsage = true
	return root.ExecuteContext(ctx)
}

// rootOptions holds persistent flag values.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand builds the cobra command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	envOpts := platform.OptionsFromEnv(os.Getenv)
	opts := &rootOptions{appName: envOpts.AppName}
	if opts.appName == "" {
		opts.appName = "todos"
	}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TODOS_DEV_MODE"); ok {
		defaultDevMode = envDev
	}

	root := &cobra.Command{
		Use:     "todos",
		Short:   "A todo list driven by a small state machine",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newListCommand(opts, stdout, stderr),
		newAddCommand(opts, stdout, stderr),
		newExportCommand(opts, stdout, stderr),
		newImportCommand(opts, stdout, stderr),
		newServeCommand(opts, stderr),
	)
	return root
}

func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", resolveConfigPath(opts, paths))
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", resolveDBPath(opts, paths))
			return nil
		},
	}
}

func newListCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		view  string
		plain bool
		style string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the task list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "list", stderr, func(ctx context.Context, rt *runtimeEnv) error {
				snap, err := rt.svc.ShowView(ctx, view)
				if err != nil {
					return fmt.Errorf("show view: %w", err)
				}
				markdown := tui.TasksMarkdown(snap)
				if saved, err := rt.repo.UpdatedAt(ctx, rt.cfg.Persistence.Key); err == nil && !saved.IsZero() {
					markdown = strings.TrimRight(markdown, "\n") + "\n\n_saved " + saved.Local().Format(time.RFC3339) + "_\n"
				}
				if !plain {
					markdown = tui.RenderMarkdown(markdown, outputStyle(stdout, style), 80)
				}
				_, err = fmt.Fprintln(stdout, strings.TrimRight(markdown, "\n"))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", "all", "filter: all, active, or completed")
	cmd.Flags().BoolVar(&plain, "plain", false, "print markdown without terminal styling")
	cmd.Flags().StringVar(&style, "style", "", "glamour style (default dark on a terminal, notty otherwise)")
	return cmd
}

func newAddCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), opts, "add", stderr, func(ctx context.Context, rt *runtimeEnv) error {
				task, err := rt.svc.AddTask(ctx, strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("add task: %w", err)
				}
				_, err = fmt.Fprintf(stdout, "added %s %q\n", task.ID, task.Title)
				return err
			})
		},
	}
}

func newExportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		outPath string
		format  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the task list as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "export", stderr, func(_ context.Context, rt *runtimeEnv) error {
				return runExport(rt.svc, outPath, format, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "yaml or json (default from --out extension, else yaml)")
	return cmd
}

func newImportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		inPath string
		format string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the task list from a YAML or JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			return withRuntime(cmd.Context(), opts, "import", stderr, func(ctx context.Context, rt *runtimeEnv) error {
				count, err := runImport(ctx, rt.svc, inPath, format)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(stdout, "imported %d tasks\n", count)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input file")
	cmd.Flags().StringVar(&format, "format", "", "yaml or json (default from --in extension, else yaml)")
	return cmd
}

func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var httpBind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "serve", stderr, func(ctx context.Context, rt *runtimeEnv) error {
				bind := rt.cfg.Server.HTTPBind
				if strings.TrimSpace(httpBind) != "" {
					bind = httpBind
				}
				return server.Run(ctx, server.Config{
					HTTPBind:      bind,
					APIEndpoint:   rt.cfg.Server.APIEndpoint,
					MCPEndpoint:   rt.cfg.Server.MCPEndpoint,
					ServerName:    "todos",
					ServerVersion: version,
				}, server.Dependencies{
					Todos:  common.NewAppServiceAdapter(rt.svc),
					Logger: rt.logger.componentLogger(),
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "listen address (default from config)")
	return cmd
}

// outputStyle picks a glamour style; an explicit style always wins.
func outputStyle(w io.Writer, style string) string {
	if style = strings.TrimSpace(style); style != "" {
		return style
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "dark"
	}
	return "notty"
}

// runTUI runs the interactive program loop.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	return withRuntime(ctx, opts, "tui", stderr, func(ctx context.Context, rt *runtimeEnv) error {
		m := tui.NewModel(
			rt.svc,
			tui.WithContext(ctx),
			tui.WithKeyConfig(tui.KeyConfig{
				ToggleAll:      rt.cfg.Keys.ToggleAll,
				ClearCompleted: rt.cfg.Keys.ClearCompleted,
				CopyTitle:      rt.cfg.Keys.CopyTitle,
			}),
		)
		rt.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			rt.logger.Error("tui program terminated with error", "err", err)
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

// runExport writes the current tasks to outPath.
func runExport(svc *app.Service, outPath, rawFormat string, stdout io.Writer) error {
	format, err := pickFormat(rawFormat, outPath)
	if err != nil {
		return err
	}
	tasks := svc.Snapshot().Context.Tasks
	if outPath == "" || outPath == "-" {
		return yamlio.Export(stdout, tasks, format)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := yamlio.Export(f, tasks, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("write export file: %w", err)
	}
	return f.Close()
}

// runImport replaces the task list with the contents of inPath.
func runImport(ctx context.Context, svc *app.Service, inPath, rawFormat string) (int, error) {
	format, err := pickFormat(rawFormat, inPath)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("read import file: %w", err)
	}
	defer f.Close()
	tasks, err := yamlio.Import(f, format, uuid.NewString)
	if err != nil {
		return 0, fmt.Errorf("decode import file: %w", err)
	}
	snap, err := svc.ReplaceTasks(ctx, tasks)
	if err != nil {
		return 0, fmt.Errorf("replace tasks: %w", err)
	}
	return len(snap.Context.Tasks), nil
}

// pickFormat prefers an explicit format, then the file extension.
func pickFormat(raw, path string) (yamlio.Format, error) {
	if strings.TrimSpace(raw) != "" {
		return yamlio.ParseFormat(raw)
	}
	return yamlio.FormatForPath(path, yamlio.FormatYAML), nil
}

// runtimeEnv bundles what every data command needs.
type runtimeEnv struct {
	cfg    config.Config
	logger *runtimeLogger
	repo   *sqlite.Repository
	svc    *app.Service
}

// withRuntime resolves config, opens storage, builds the service, and runs fn.
func withRuntime(ctx context.Context, opts *rootOptions, command string, stderr io.Writer, fn func(context.Context, *runtimeEnv) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths, err := resolvePaths(opts)
	if err != nil {
		return err
	}
	configPath := resolveConfigPath(opts, paths)
	dbPath := resolveDBPath(opts, paths)
	dbOverridden := strings.TrimSpace(opts.dbPath) != "" || strings.TrimSpace(os.Getenv("TODOS_DB_PATH")) != ""

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config %q: %w", configPath, err)
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		logger.SetConsoleEnabled(false)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.shouldLogToSink(logger.consoleSink) {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()
	logger.Debug("configuration loaded", "command", command, "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Debug("dev file logging enabled", "path", devPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()

	serviceCfg := app.ServiceConfig{
		SlotKey:            cfg.Persistence.Key,
		SavePendingText:    cfg.Persistence.SavePendingText,
		InitialPendingText: cfg.Todos.InitialPendingText,
	}
	componentLogger := logger.componentLogger()
	initial := app.LoadInitialContext(ctx, repo, serviceCfg, componentLogger)
	svc := app.NewService(repo, initial, uuid.NewString, componentLogger, serviceCfg)
	logger.Debug("application service initialized", "key", serviceCfg.SlotKey, "tasks", len(initial.Tasks))

	rt := &runtimeEnv{cfg: cfg, logger: logger, repo: repo, svc: svc}
	if err := fn(ctx, rt); err != nil {
		logger.Error("command flow failed", "command", command, "err", err)
		return err
	}
	logger.Debug("command flow complete", "command", command)
	return nil
}

func resolvePaths(opts *rootOptions) (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
}

// resolveConfigPath applies flag, then TODOS_CONFIG, then the platform default.
func resolveConfigPath(opts *rootOptions, paths platform.Paths) string {
	if p := strings.TrimSpace(opts.configPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("TODOS_CONFIG")); p != "" {
		return p
	}
	return paths.ConfigPath
}

// resolveDBPath applies flag, then TODOS_DB_PATH, then the platform default.
func resolveDBPath(opts *rootOptions, paths platform.Paths) string {
	if p := strings.TrimSpace(opts.dbPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("TODOS_DB_PATH")); p != "" {
		return p
	}
	return paths.DBPath
}

// parseBoolEnv parses input into a normalized form.
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

// runtimeLogger fans log events to a styled console sink and an optional dev-file sink.
type runtimeLogger struct {
	sinks          []*charmLog.Logger
	consoleSink    *charmLog.Logger
	fileSink       *charmLog.Logger
	consoleEnabled bool
	closeFile      func() error
	devLog         string
}

// newRuntimeLogger configures runtime log sinks from CLI/config state.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if now == nil {
		now = time.Now
	}
	if stderr == nil {
		stderr = io.Discard
	}

	consoleLogger := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})
	logger := &runtimeLogger{
		sinks:          []*charmLog.Logger{consoleLogger},
		consoleSink:    consoleLogger,
		consoleEnabled: true,
	}
	if !devMode || !cfg.DevFile.Enabled {
		return logger, nil
	}

	devLogPath, err := devLogFilePath(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(devLogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	logFile, err := os.OpenFile(devLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}

	fileLogger := charmLog.NewWithOptions(logFile, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	logger.sinks = append(logger.sinks, fileLogger)
	logger.fileSink = fileLogger
	logger.closeFile = logFile.Close
	logger.devLog = devLogPath
	return logger, nil
}

// componentLogger returns the single sink handed to services and servers:
// the dev file when open, else the console unless it is muted.
func (l *runtimeLogger) componentLogger() *charmLog.Logger {
	switch {
	case l == nil:
		return charmLog.New(io.Discard)
	case l.fileSink != nil:
		return l.fileSink
	case l.consoleEnabled:
		return l.consoleSink
	default:
		return charmLog.New(io.Discard)
	}
}

// DevLogPath returns the active dev log file path.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

// Close closes the optional dev-file sink.
func (l *runtimeLogger) Close() error {
	if l == nil || l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

// SetConsoleEnabled toggles whether the console sink receives runtime events.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.consoleEnabled = enabled
}

// shouldLogToSink reports whether one sink should receive runtime output.
func (l *runtimeLogger) shouldLogToSink(sink *charmLog.Logger) bool {
	if l == nil || sink == nil {
		return false
	}
	return sink != l.consoleSink || l.consoleEnabled
}

func (l *runtimeLogger) each(fn func(*charmLog.Logger)) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if l.shouldLogToSink(sink) {
			fn(sink)
		}
	}
}

// Debug logs a debug event to all configured sinks.
func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	l.each(func(s *charmLog.Logger) { s.Debug(msg, keyvals...) })
}

// Info logs an informational event to all configured sinks.
func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	l.each(func(s *charmLog.Logger) { s.Info(msg, keyvals...) })
}

// Warn logs a warning event to all configured sinks.
func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	l.each(func(s *charmLog.Logger) { s.Warn(msg, keyvals...) })
}

// Error logs an error event to all configured sinks.
func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	l.each(func(s *charmLog.Logger) { s.Error(msg, keyvals...) })
}

// devLogFilePath resolves a workspace-local dev log file path for the current run day.
func devLogFilePath(configDir, appName string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(configDir)
	if baseDir == "" {
		baseDir = ".todos/log"
	}
	if !filepath.IsAbs(baseDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		baseDir = filepath.Join(workspaceRootFrom(cwd), baseDir)
	}
	fileName := fmt.Sprintf("%s-%s.log", sanitizeLogFileStem(appName), now.Format("20060102"))
	return filepath.Join(filepath.Clean(baseDir), fileName), nil
}

// workspaceRootFrom walks up to the nearest directory holding go.mod or .git.
func workspaceRootFrom(start string) string {
	start = filepath.Clean(strings.TrimSpace(start))
	if start == "" {
		return "."
	}
	for dir := start; ; {
		for _, marker := range []string{"go.mod", ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// sanitizeLogFileStem normalizes app names into safe file-name segments.
func sanitizeLogFileStem(appName string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	stem := strings.Trim(replacer.Replace(strings.TrimSpace(appName)), "-")
	if stem == "" {
		return "todos"
	}
	return stem
}
