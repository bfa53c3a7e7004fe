package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/ferry/internal/config"
	"github.com/ALT-F4-LLC/ferry/internal/importer"
	"github.com/ALT-F4-LLC/ferry/internal/logging"
	"github.com/ALT-F4-LLC/ferry/internal/output"
	"github.com/ALT-F4-LLC/ferry/internal/retry"
	"github.com/ALT-F4-LLC/ferry/internal/source"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type contextKey string

const (
	dbKey     contextKey = "db"
	cfgKey    contextKey = "cfg"
	loggerKey contextKey = "logger"
)

// httpTimeout bounds a single request; retries are handled separately.
const httpTimeout = 60 * time.Second

// CmdError wraps an error with a machine-readable error code for structured output.
type CmdError struct {
	Err  error
	Code output.ErrorCode
}

func (e *CmdError) Error() string { return e.Err.Error() }

func (e *CmdError) Unwrap() error { return e.Err }

func cmdErr(err error, code output.ErrorCode) *CmdError {
	return &CmdError{Err: err, Code: code}
}

// runErr classifies a failure from a network phase.
func runErr(err error) *CmdError {
	switch {
	case errors.Is(err, importer.ErrRateLimitExhausted):
		return cmdErr(err, output.ErrRateLimited)
	case errors.Is(err, retry.ErrAborted), errors.Is(err, context.Canceled):
		return cmdErr(err, output.ErrAborted)
	case errors.Is(err, source.ErrProjectMismatch):
		return cmdErr(err, output.ErrConflict)
	default:
		return cmdErr(err, output.ErrGeneral)
	}
}

var closeLog = func() error { return nil }

var rootCmd = &cobra.Command{
	Use:   "ferry",
	Short: "Migrate issues from a legacy project tracker to GitHub",
	Long: `ferry stages a legacy tracker project (issues, comments, attachments) in a
local SQLite store and replays it onto a GitHub repository. Both phases
resume where an interrupted run stopped.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		if err := cfg.Validate(); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		quiet, _ := cmd.Flags().GetBool("quiet")
		level := cfg.Log.Level
		if quiet {
			level = "warn"
		}
		logger, closeFn, err := logging.New(logging.Options{
			Level:   level,
			Verbose: verbose,
			Format:  cfg.Log.Format,
			File:    cfg.Log.File,
		})
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		closeLog = closeFn
		if cfg.ConfigFile != "" {
			logger.WithField("file", cfg.ConfigFile).Debug("loaded config file")
		}

		ctx := context.WithValue(cmd.Context(), cfgKey, cfg)
		ctx = context.WithValue(ctx, loggerKey, logger)

		if _, ok := cmd.Annotations["skipDB"]; ok {
			cmd.SetContext(ctx)
			return nil
		}

		_, create := cmd.Annotations["initDB"]
		conn, created, err := openStore(cfg, create)
		if err != nil {
			return err
		}
		if created {
			logger.WithField("path", cfg.DBPath()).Info("created staging store")
		}

		cmd.SetContext(context.WithValue(ctx, dbKey, conn))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		conn, ok := cmd.Context().Value(dbKey).(*sql.DB)
		if ok && conn != nil {
			return conn.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file (default .ferry/config.yaml)")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func getWriter(cmd *cobra.Command) *output.Writer {
	jsonMode, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	return output.New(jsonMode, quietMode)
}

func getCfg(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(cfgKey).(*config.Config)
	return cfg
}

func getDB(cmd *cobra.Command) *sql.DB {
	conn, _ := cmd.Context().Value(dbKey).(*sql.DB)
	return conn
}

func getLogger(cmd *cobra.Command) *logrus.Logger {
	logger, _ := cmd.Context().Value(loggerKey).(*logrus.Logger)
	if logger == nil {
		return logging.Discard()
	}
	return logger
}

var (
	interruptOnce sync.Once
	interruptCh   chan os.Signal
)

// interrupts delivers SIGINT to the retry controller, which asks before
// aborting the run.
func interrupts() <-chan os.Signal {
	interruptOnce.Do(func() {
		interruptCh = make(chan os.Signal, 1)
		signal.Notify(interruptCh, os.Interrupt)
	})
	return interruptCh
}

func newController(cmd *cobra.Command) *retry.Controller {
	cfg := getCfg(cmd)
	policy := retry.Policy{
		Interval:    cfg.Retry.Interval,
		MaxAttempts: cfg.Retry.MaxAttempts,
	}
	return retry.New(policy, getLogger(cmd), retry.WithInterrupt(interrupts()))
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// Execute runs the root command and returns an exit code.
func Execute() int {
	defer func() { _ = closeLog() }()

	if err := rootCmd.Execute(); err != nil {
		jsonMode, _ := rootCmd.PersistentFlags().GetBool("json")
		quietMode, _ := rootCmd.PersistentFlags().GetBool("quiet")
		w := output.New(jsonMode, quietMode)

		var ce *CmdError
		if errors.As(err, &ce) {
			return w.Error(ce.Err, ce.Code)
		}
		return w.Error(err, output.ErrGeneral)
	}
	return 0
}
