package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/google/subcommands"

	"github.com/erazemk/holdfolio/internal/config"
	"github.com/erazemk/holdfolio/internal/db"
)

var (
	configFile = flag.String("config", "", "path to a holdfolio.yaml config file")
	envFile    = flag.String("env", "", "path to a .env file (default: ./.env when present)")
	logFile    = flag.String("log", "", "also write logs to this file")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&addUserCmd{}, "")
	commander.Register(&importCmd{}, "")
	commander.Register(&exportCmd{}, "")
	commander.Register(&dashboardCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	level  slog.Level
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.level
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		level:  lr.level,
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		level:  lr.level,
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogger configures structured logging. INFO/WARN go to out, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(level, logPath string, out io.Writer) (func(), error) {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}

	cleanup := func() {}

	stdoutW := out
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(out, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		level:  lvl,
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

// env is what every subcommand starts from: loaded config, logging and a
// migrated database.
type env struct {
	cfg *config.Config
	db  *sql.DB
	// close releases the database and the log file.
	close func()
}

// setup loads configuration, configures logging and opens the database.
// Commands that print reports pass os.Stderr as logOut to keep stdout clean.
func setup(logOut io.Writer) (*env, error) {
	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logPath := cfg.Log.File
	if *logFile != "" {
		logPath = *logFile
	}
	closeLog, err := setupLogger(cfg.Log.Level, logPath, logOut)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		closeLog()
		return nil, err
	}

	version, err := db.Migrate(database)
	if err != nil {
		database.Close()
		closeLog()
		return nil, err
	}
	slog.Debug("database ready", "path", cfg.Database.Path, "version", version)

	return &env{
		cfg: cfg,
		db:  database,
		close: func() {
			database.Close()
			closeLog()
		},
	}, nil
}
