package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/yumyai/ggenrich/internal/config"
	"github.com/yumyai/ggenrich/logger"
	"github.com/yumyai/ggenrich/pkg/handler"
	"github.com/yumyai/ggenrich/pkg/middle"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const VERSION = "0.1.0"

// Commands running longer than this get a warning in the log.
const slowCommand = 5 * time.Minute

var (
	cfg      *config.Config
	logLevel string
)

func main() {
	// Establish logger; setup re-creates it at the configured level.
	if err := logger.InitLogger(zapcore.InfoLevel); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("Command failed", zap.Error(err))
	}
	logger.Sync() // Make sure that the buffered is flushed.
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ggenrich",
		Short:         "Comparative genomics enrichment toolkit",
		Version:       VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides GGENRICH_LOG_LEVEL)")

	addCommands(root)
	return root
}

// setup loads .env and the environment, then starts the logger.
func setup() error {
	foundDotenv := config.LoadDotenv()

	var err error
	cfg, err = config.FromEnv()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(level); err != nil {
		return err
	}

	if !foundDotenv {
		logger.Debug("No .env found, using local environment")
	}
	logger.Debug("Start", zap.String("version", VERSION), zap.String("data_dir", cfg.DataDir))
	return nil
}

// run wraps a handler call with the run id and logging middleware.
func run(body func(ctx context.Context, app *handler.AppContext, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log := logger.With()
		f := middle.Chain(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			app := handler.NewAppContext(cfg, middle.RunID(ctx))
			app.Log = middle.Logger(ctx, app.Log)
			return body(ctx, app, cmd, args)
		}, middle.RunIDMiddleware(log), middle.LoggingMiddleware(log, slowCommand))
		return middle.RunE(f)(cmd, args)
	}
}
