package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"parsersmith/internal/config"
	"parsersmith/internal/extract"
	"parsersmith/internal/logging"
)

var (
	// Global flags
	verbose     bool
	workspace   string
	configPath  string
	timeout     time.Duration
	metricsFile string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "parsersmith",
	Short: "Synthesize bank statement parsers with an LLM",
	Long: `parsersmith writes a Go parser for a bank's PDF statements.

Given data/<id>/<id>_sample.pdf and the expected table in
data/<id>/<id>_sample.csv, it asks the model for a parser, runs it against
the sample and compares the output with the reference. Up to
synthesis.max_attempts attempts are made; the last one is kept in
custom_parsers/<id>_parser.go.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The child entry point must keep stdout clean and start fast.
		if cmd.Name() == execCmd.Name() {
			return nil
		}
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to .parsersmith/logs")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/parsersmith.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 20*time.Minute, "Overall operation timeout")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(execCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("error: ")+err.Error())
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, dimStyle.Render("hint: "+hint))
		}
		os.Exit(1)
	}
}

// setup resolves the workspace, loads .env and config, and starts logging.
func setup() error {
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve workspace: %w", err)
		}
		workspace = wd
	}
	ws, err := filepath.Abs(workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	workspace = ws

	if err := config.LoadDotEnv(workspace); err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path = filepath.Join(workspace, config.DefaultConfigFile)
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if verbose {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
	if metricsFile == "" {
		metricsFile = c.Metrics.TextfilePath
	}
	cfg = c

	if err := logging.Initialize(logging.Options{
		Workspace:  workspace,
		DebugMode:  c.Logging.DebugMode,
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		Categories: c.Logging.Categories,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger = logging.Zap()
	logger.Debug("parsersmith starting", zap.String("workspace", workspace), zap.String("config", path))
	return nil
}

// commandContext applies --timeout and cancels on SIGINT/SIGTERM.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// errorHint suggests a remedy for errors caused by the inputs.
func errorHint(err error) string {
	if extract.IsFailure(err) {
		return "the sample must be a text PDF; scanned statements need OCR first"
	}
	return ""
}

// targetID reads the target from --target or the first positional argument.
func targetID(flag string, args []string) (string, error) {
	switch {
	case flag != "":
		return flag, nil
	case len(args) > 0:
		return args[0], nil
	default:
		return "", fmt.Errorf("target required: pass --target <id> or a positional id")
	}
}
