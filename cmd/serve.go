package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muonblog/mycoserve/internal/config"
	"github.com/muonblog/mycoserve/internal/errors"
	"github.com/muonblog/mycoserve/internal/logging"
	"github.com/muonblog/mycoserve/internal/render"
	"github.com/muonblog/mycoserve/internal/request"
	"github.com/muonblog/mycoserve/internal/router"
	"github.com/muonblog/mycoserve/internal/server"
	"github.com/muonblog/mycoserve/internal/static"
	"github.com/muonblog/mycoserve/internal/taxonomy"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight connections may take once a
// signal arrives.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the server",
	Long: `Start accepting connections for the site and the encyclopedia.

The server runs until it receives SIGINT or SIGTERM, then stops accepting
and waits for in-flight connections before exiting.

Examples:
  mycoserve serve                         # Listen on 127.0.0.1:7878
  mycoserve serve --host 0.0.0.0 -p 8080  # Listen on all interfaces
  mycoserve serve --workers 16            # Larger worker pool`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	AddServerFlags(serveCmd)
}

// app is a fully wired server with its access log.
type app struct {
	server     *server.Server
	aggregator *logging.Aggregator
	tally      *logging.Tally
	logger     *logging.ServerLogger
}

// newApp wires every component from cfg. Access records are echoed to
// console; operational logs go to stderr and the log file.
func newApp(ctx context.Context, cfg *config.Config, console, stderr io.Writer) (*app, error) {
	agg := logging.NewAggregator(logging.AggregatorConfig{
		FilePath: cfg.Logging.File,
		Console:  console,
		Buffer:   cfg.Logging.Buffer,
	})

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: io.MultiWriter(stderr, agg.Writer()),
	})

	templates := render.LoadTemplates(ctx, cfg.Paths.Data, logger)
	store := taxonomy.NewStore(cfg.Paths.Source, logger)
	images := render.NewDirImageCounter(cfg.Paths.Images, logger)

	encyclopedia := render.NewEncyclopedia(store, render.NewRenderer(templates, images))
	site := static.NewHandler(cfg.Paths.Root, templates, logger)

	tally := logging.NewTally()
	srv, err := server.New(cfg, server.Deps{
		Parser: request.NewParser(request.Domains{
			Site:         cfg.Domains.Site,
			Encyclopedia: cfg.Domains.Encyclopedia,
		}),
		Router: router.New(site, encyclopedia),
		Tally:  tally,
		Sink:   agg,
		Logger: logger,
	})
	if err != nil {
		agg.Close()
		return nil, err
	}

	return &app{server: srv, aggregator: agg, tally: tally, logger: logger}, nil
}

// Close flushes the access log.
func (a *app) Close() error {
	return a.aggregator.Close()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.WrapConfig(err, "failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer a.Close()

	perf := a.logger.StartOperation("serve")
	a.logger.Info(ctx, "Starting mycoserve",
		"addr", cfg.Addr(),
		"site", cfg.Domains.Site,
		"encyclopedia", cfg.Domains.Encyclopedia,
		"root", cfg.Paths.Root,
		"workers", cfg.Server.Workers)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe(ctx)
	}()

	serveDone := false
	var serveErr error
	select {
	case serveErr = <-errCh:
		serveDone = true
	case <-ctx.Done():
	}

	// Shutdown also waits for workers still finishing a connection.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error(shutdownCtx, err, "Error during server shutdown")
	}
	if !serveDone {
		serveErr = <-errCh
	}

	unique, total, _ := a.tally.Snapshot()
	a.logger.Info(context.Background(), "Connections served", "unique", unique, "total", total)
	if serveErr != nil {
		return fmt.Errorf("server stopped: %w", serveErr)
	}

	perf.End(context.Background())
	return nil
}
