package middle

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	zap "go.uber.org/zap"
)

// CommandFunc is the body of a sub-command.
type CommandFunc func(ctx context.Context, cmd *cobra.Command, args []string) error

type Middleware func(next CommandFunc) CommandFunc

type ctxKey string

const (
	runIDKey  ctxKey = "run_id"
	loggerKey ctxKey = "logger"
)

// Chain applies mws so that the first one is outermost.
func Chain(f CommandFunc, mws ...Middleware) CommandFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		f = mws[i](f)
	}
	return f
}

// RunE adapts a CommandFunc to cobra, using the command's context.
func RunE(f CommandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return f(ctx, cmd, args)
	}
}

// RunIDMiddleware adds a unique run ID, and a logger carrying it, to the context.
func RunIDMiddleware(logger *zap.Logger) Middleware {
	return func(next CommandFunc) CommandFunc {
		return func(ctx context.Context, cmd *cobra.Command, args []string) error {
			runID := generateRunID()
			ctx = context.WithValue(ctx, runIDKey, runID)
			ctx = context.WithValue(ctx, loggerKey, logger.With(zap.String("run_id", runID)))
			return next(ctx, cmd, args)
		}
	}
}

// LoggingMiddleware logs the command, its duration and outcome. A panic in the
// command becomes its error.
func LoggingMiddleware(logger *zap.Logger, slow time.Duration) Middleware {
	return func(next CommandFunc) CommandFunc {
		return func(ctx context.Context, cmd *cobra.Command, args []string) (err error) {
			start := time.Now()
			log := Logger(ctx, logger)

			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("internal error in %s: %v", cmd.Name(), r)
					log.Error("Command panicked",
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
				}

				duration := time.Since(start)
				status := "ok"
				if err != nil {
					status = "failed"
				}
				log.Debug("Command completed",
					zap.String("command", cmd.Name()),
					zap.Strings("args", args),
					zap.String("status", status),
					zap.Duration("duration", duration),
				)

				if slow > 0 && duration > slow {
					log.Warn("Slow command",
						zap.String("command", cmd.Name()),
						zap.Duration("duration", duration),
					)
				}
			}()

			return next(ctx, cmd, args)
		}
	}
}

// RunID returns the run ID set by RunIDMiddleware, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// Logger returns the run logger from ctx, or fallback.
func Logger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}

func generateRunID() string {
	return "run-" + uuid.New().String()
}
