package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresmejia3/goober/internal/camera"
	"github.com/andresmejia3/goober/internal/config"
	"github.com/andresmejia3/goober/internal/journal"
	"github.com/andresmejia3/goober/internal/logger"
	"github.com/andresmejia3/goober/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// journalAnnotation marks commands that use the capture journal.
const journalAnnotation = "journal"

const (
	journalOptional = "optional"
	journalRequired = "required"
)

var (
	cfg *config.Config
	// Journal is the capture journal shared by subcommands. Nil when no database is configured.
	Journal *journal.Store

	apiURL     string
	reqTimeout time.Duration
	dbURL      string
	logLevel   string
	noColor    bool
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "goober",
	Short:         "Face detection capture & photo gallery client",
	Version:       Version, // This enables the --version flag
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("api") {
			cfg.API.URL = apiURL
		}
		if flags.Changed("timeout") {
			cfg.API.RequestTimeout = reqTimeout
		}
		if flags.Changed("db") {
			cfg.Database.URL = dbURL
		}
		if flags.Changed("log-level") {
			cfg.App.LogLevel = logLevel
		}
		if flags.Changed("no-color") {
			cfg.App.NoColor = noColor
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level, _ := logger.ParseLevel(cfg.App.LogLevel)
		logger.Init(level, os.Stderr, useColor())

		return openJournal(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if Journal != nil {
			Journal.Close()
		}
	},
}

// openJournal connects to Postgres for commands that want it.
func openJournal(cmd *cobra.Command) error {
	mode := cmd.Annotations[journalAnnotation]
	if mode == "" {
		return nil
	}

	url := cfg.DatabaseURL()
	if url == "" {
		if mode == journalRequired {
			return errors.New("no journal database configured (use --db, DATABASE_URL or POSTGRES_HOST)")
		}
		return nil
	}

	// Use the command's context (which will be cancellable) for the connection
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	var err error
	Journal, err = journal.New(ctx, url)
	if err != nil {
		if mode == journalRequired {
			return fmt.Errorf("failed to connect to journal database: %w", err)
		}
		// The journal is a side channel; capture goes on without it.
		logger.Warn("Journal", "disabled, cannot connect: %v", err)
		Journal = nil
	}
	return nil
}

func useColor() bool {
	return !cfg.App.NoColor && term.IsTerminal(int(os.Stdout.Fd()))
}

// reportedError marks a failure the user has already been told about.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}

	var rep *reportedError
	var proc *camera.ProcessError
	switch {
	case errors.As(err, &rep):
		logger.Debug("Main", "%v", rep.err)
	case errors.As(err, &proc):
		utils.ShowError(os.Stderr, "Camera capture failed", proc.Err, proc.Cmd)
	default:
		fmt.Fprintln(os.Stderr, "❌", err)
	}
	stop()
	os.Exit(1)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&apiURL, "api", "", "Photo service base URL (default: $GOOBER_API_URL or http://localhost:3000)")
	pf.DurationVar(&reqTimeout, "timeout", 10*time.Second, "Per-request timeout for the photo service")
	pf.StringVar(&dbURL, "db", "", "PostgreSQL connection string for the capture journal (default: $DATABASE_URL or POSTGRES_*)")
	pf.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error, silent")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
}
