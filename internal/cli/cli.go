package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/specialistvlad/nodegrid/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments on top of the .env file and the
// process environment. It returns the merged configuration, a boolean
// indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*config.Config, bool, error) {
	return ParseWithEnv(args, output, os.LookupEnv)
}

// ParseWithEnv is Parse with an explicit environment lookup.
func ParseWithEnv(args []string, output io.Writer, env config.Lookup) (*config.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("nodegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
nodegrid - A tick-driven dataflow node graph engine.

Usage:
  nodegrid [options] [GRAPH_PATH]

Arguments:
  GRAPH_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Environment:
  NODEGRID_* variables, OPENAI_API_KEY, OPENAI_BASE_URL and DATABASE_URL
  are read from the environment and from the env file. Flags win.

Options:
`)
		flagSet.PrintDefaults()
	}

	def := config.Default()
	f := def
	flagSet.StringVar(&f.GraphPath, "graph", "", "Path to the graph file or directory.")
	flagSet.StringVar(&f.GraphPath, "g", "", "Path to the graph file or directory (shorthand).")
	flagSet.StringVar(&f.LogFormat, "log-format", def.LogFormat, "Log output format. Options: 'text' or 'json'.")
	flagSet.StringVar(&f.LogLevel, "log-level", def.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.Float64Var(&f.Rate, "rate", def.Rate, "Ticks per second. Values below 0.1 are clamped.")
	flagSet.IntVar(&f.Ticks, "ticks", def.Ticks, "Stop after this many ticks. 0 runs until interrupted.")
	flagSet.DurationVar(&f.Duration, "duration", def.Duration, "Stop after this long. 0 runs until interrupted.")
	flagSet.IntVar(&f.HTTPPort, "http-port", def.HTTPPort, "Port for the HTTP control API. 0 is disabled.")
	flagSet.DurationVar(&f.JoinTimeout, "join-timeout", def.JoinTimeout, "How long Stop waits for the running tick.")
	flagSet.Int64Var(&f.MaxTasks, "max-tasks", def.MaxTasks, "Maximum concurrent background tasks.")
	flagSet.StringVar(&f.StateIn, "state-in", "", "Restore graph state from this file or document name.")
	flagSet.StringVar(&f.StateOut, "state-out", "", "Save graph state to this file or document name on exit.")
	flagSet.StringVar(&f.StateBackend, "state-backend", def.StateBackend, "Where state documents live. Options: 'file' or 'postgres'.")
	flagSet.StringVar(&f.DatabaseURL, "database-url", "", "Postgres connection string.")
	flagSet.StringVar(&f.VectorBackend, "vector-backend", def.VectorBackend, "Vector store. Options: 'memory' or 'pgvector'.")
	flagSet.StringVar(&f.EnvFile, "env-file", "", "Path to a .env file. Defaults to ./.env when present.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	envFile, required := config.DefaultEnvFile, false
	if v, ok := env("NODEGRID_ENV_FILE"); ok && v != "" {
		envFile, required = v, true
	}
	if f.EnvFile != "" {
		envFile, required = f.EnvFile, true
	}
	fileEnv, err := config.ReadEnvFile(envFile, required)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg := config.Default()
	if err := cfg.ApplyEnv(config.Layered(env, fileEnv)); err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid environment: %v", err)}
	}

	flagSet.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "graph", "g":
			cfg.GraphPath = f.GraphPath
		case "log-format":
			cfg.LogFormat = f.LogFormat
		case "log-level":
			cfg.LogLevel = f.LogLevel
		case "rate":
			cfg.Rate = f.Rate
		case "ticks":
			cfg.Ticks = f.Ticks
		case "duration":
			cfg.Duration = f.Duration
		case "http-port":
			cfg.HTTPPort = f.HTTPPort
		case "join-timeout":
			cfg.JoinTimeout = f.JoinTimeout
		case "max-tasks":
			cfg.MaxTasks = f.MaxTasks
		case "state-in":
			cfg.StateIn = f.StateIn
		case "state-out":
			cfg.StateOut = f.StateOut
		case "state-backend":
			cfg.StateBackend = f.StateBackend
		case "database-url":
			cfg.DatabaseURL = f.DatabaseURL
		case "vector-backend":
			cfg.VectorBackend = f.VectorBackend
		}
	})
	cfg.EnvFile = envFile
	if cfg.GraphPath == "" && flagSet.NArg() > 0 {
		cfg.GraphPath = flagSet.Arg(0)
	}
	slog.Debug("Graph path determined.", "path", cfg.GraphPath)

	if cfg.Idle() {
		slog.Debug("Nothing to run, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "graph", cfg.GraphPath, "httpPort", cfg.HTTPPort)
	return &cfg, false, nil
}
