package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/steve/internal/cli"
	httpadapter "github.com/aretw0/steve/pkg/adapters/http"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the conversation as a JSON API: POST /chat, POST /reset and GET /state,
plus /health, /info, /openapi.yaml and Prometheus /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
		}
		fresh, _ := cmd.Flags().GetBool("fresh")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		logger := cli.NewLogger(cfg.Debug)
		rt, err := cli.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		// A missing template is fatal here, before the listener opens.
		if fresh {
			_, err = rt.Session.Start(ctx)
		} else {
			_, err = rt.Session.Resume(ctx)
		}
		if err != nil {
			return fmt.Errorf("could not start the conversation: %w", err)
		}

		handler, err := httpadapter.NewHandler(rt.Session,
			httpadapter.WithLogger(logger),
			httpadapter.WithMetrics(rt.Metrics.Handler()),
		)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "Starting Steve Server on %s\n", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			if sig := ctx.Signal(); sig != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nStart shutdown... Signal: %v\n", sig)
			}

			// Give outstanding turns a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Steve Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 5000, "Port to listen on (overrides http.port)")
	serveCmd.Flags().Bool("fresh", false, "Reset the conversation to the template on startup")
}
