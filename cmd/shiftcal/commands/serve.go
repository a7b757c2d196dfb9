package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shiftcal/internal/extract"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/web"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listenAddr != "" {
			cfg.Listen = listenAddr
		}
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ex web.Extractor
	e, err := newExtractor(ctx)
	switch {
	case err == nil:
		ex = e
	case errors.Is(err, extract.ErrNotConfigured):
		appLog.Warn("gemini api key not configured; extraction disabled")
		out.Warning("Gemini API key not configured; /api/extract will answer 503")
	default:
		return explain(err)
	}

	var cm web.Committer
	if m, err := newMaterializer(ctx); err != nil {
		appLog.Warn("calendar provider unavailable", "provider", cfg.Calendar.Provider, "error", err)
		out.Warning("Calendar provider unavailable: %v", err)
	} else {
		cm = m
	}

	srv := web.NewServer(cfg, loc, ex, cm)
	resets, err := web.NewResetScheduler(cfg.ResetCron, loc, srv.Reset)
	if err != nil {
		return explain(err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "timezone", loc.String())
		out.Step("listening on http://%s", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		resets.Start()
		<-gctx.Done()
		appLog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resets.Stop(shutdownCtx)
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return explain(err)
	}
	appLog.Info("shiftcal exiting")
	return nil
}
