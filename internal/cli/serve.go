package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/setfield/internal/admin"
	"github.com/roach88/setfield/internal/querysql"
)

// shutdownTimeout bounds graceful shutdown of the admin server.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr  string
	Reset bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		Long: `Migrate the database, then serve the admin API until interrupted.

Endpoints:
  GET    /health
  GET    /metrics
  GET    /api/models/
  GET    /api/models/{model}/records/?tags__includes=OPT
  POST   /api/models/{model}/records/
  GET    /api/models/{model}/records/{pk}
  PUT    /api/models/{model}/records/{pk}
  DELETE /api/models/{model}/records/{pk}

Example:
  setfield serve --addr :8000
  setfield serve --reset   # start from an empty SQLite database`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default $SETFIELD_ADDR or :8000)")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "delete the SQLite database before starting")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger()

	addr := opts.Addr
	if addr == "" {
		addr = opts.Config().Addr
	}

	if opts.Reset {
		if err := resetDatabase(opts.Driver, opts.Database); err != nil {
			return reportError(formatter, "failed to reset database", err)
		}
		logger.Info("database reset", "db", opts.Database)
	}

	st, err := opts.openStore()
	if err != nil {
		return reportError(formatter, "failed to open database", err)
	}
	defer opts.closeStore(st)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return reportError(formatter, "failed to listen", err)
	}

	server := &http.Server{
		Handler:           admin.NewServer(st, admin.WithLogger(logger)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving admin API on http://%s\n", listener.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	logger.Info("admin server starting", "addr", listener.Addr().String(), "db", opts.Database)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down admin server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "admin server error", err)
	}

	logger.Info("admin server stopped gracefully")
	return nil
}

// resetDatabase removes a SQLite database and its WAL files. Other drivers
// are refused.
func resetDatabase(driver, path string) error {
	dialect, err := querysql.DialectForDriver(driver)
	if err != nil {
		return err
	}
	if dialect != querysql.DialectSQLite {
		return fmt.Errorf("%w: --reset only supports sqlite3", errBadArgument)
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
