package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsaid97/geomcheck/bus"
	"github.com/bsaid97/geomcheck/handlers"
	"github.com/bsaid97/geomcheck/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the geometry check endpoints over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		metrics.Init()
		b := bus.New()
		if err := countRuns(b); err != nil {
			return err
		}

		mux := http.NewServeMux()
		handlers.NewServer(log, b, cfg.Output.Encoding).Routes(mux)
		mux.Handle("/metrics", metrics.Handler())

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Info("shutting down server")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "localhost:8080", "Address to listen on")
	cobra.CheckErr(viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")))

	rootCmd.AddCommand(serveCmd)
}
