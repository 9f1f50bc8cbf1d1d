// Package cli holds the start-up plumbing shared by the gymnexus binaries:
// the cobra root command, logger setup and HTTP server lifecycle.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"gymnexus/internal/config"
)

// RunFunc is the body of a binary once config and logging are in place.
type RunFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error

type globalFlags struct {
	debug      bool
	configFile string
}

// NewLogger returns a JSON logger writing to w. Debug enables debug level
// and source locations.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	logLevel := slog.LevelInfo
	addSource := false
	if debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	return slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
}

// NewRootCommand builds a root command carrying the --debug and --config
// flags. The configuration is loaded before run and travels on the command
// context.
func NewRootCommand(programName, short string, run RunFunc) *cobra.Command {
	var flags globalFlags
	cmd := &cobra.Command{
		Use:           programName,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cmd.SetContext(config.WithContext(cmd.Context(), cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			logger := commonRun(cmd.OutOrStdout(), programName, flags.debug)
			return run(cmd.Context(), cfg, logger)
		},
	}
	cmd.PersistentFlags().
		BoolVarP(&flags.debug, "debug", "D", false, "enable debug logging")
	cmd.PersistentFlags().
		StringVar(&flags.configFile, "config", "", "path to config file")
	return cmd
}

func commonRun(w io.Writer, programName string, debug bool) *slog.Logger {
	logger := NewLogger(w, debug).With("program", programName)
	slog.SetDefault(logger)
	_, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		logger.Info(fmt.Sprintf(format, v...), "component", "maxprocs")
	}))
	if err != nil {
		logger.Warn("failed to set GOMAXPROCS", "error", err)
	}
	return logger
}

// Execute runs cmd until SIGINT or SIGTERM and exits non-zero on failure.
func Execute(cmd *cobra.Command) {
	ctx, stop := signalContext()
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		slog.Error(err.Error())
		stop()
		os.Exit(1)
	}
}

// Serve runs every server until ctx is done or one of them fails, then
// shuts all of them down within timeout.
func Serve(ctx context.Context, logger *slog.Logger, timeout time.Duration, servers ...*http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("listening", "component", "http", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "component", "http")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
