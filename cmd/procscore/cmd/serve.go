package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/srodi/procscore/pkg/config"
	"github.com/srodi/procscore/pkg/facts"
	"github.com/srodi/procscore/pkg/server"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose reports, host facts and metrics over HTTP",
		Long: `Run an HTTP server. Every report read takes a fresh snapshot.

Endpoints:
  GET /report              scored table (?format=json, ?limit=N)
  GET /report/{id}         further pages of a limited report (?offset=O&limit=N)
  GET /facts               host summary
  PUT /facts/mask          set the host summary field mask
  GET /metrics             Prometheus metrics
  GET /healthz             liveness

Example:
  procscore serve --listen 0.0.0.0:9477`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				cfg.Server.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, cleanup, err := newEngine(prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer cleanup()

			provider, err := facts.NewProvider(nil, cfg.Facts.Mask)
			if err != nil {
				return err
			}

			if configPath != "" {
				watcher, err := config.NewWatcher(configPath, log.Logger, func(next *config.Config) {
					e.SetThresholds(next.Score)
					if err := provider.Write(next.Facts.Mask); err != nil {
						log.Warn().Err(err).Msg("keeping facts mask")
					}
				})
				if err != nil {
					return err
				}
				go func() {
					if err := watcher.Run(ctx); err != nil {
						log.Error().Err(err).Msg("config watcher stopped")
					}
				}()
			}

			srv := server.New(e, provider,
				server.WithListen(cfg.Server.Listen),
				server.WithSnapshotTTL(cfg.Server.SnapshotTTL),
				server.WithMaxSnapshots(cfg.Server.MaxSnapshots),
				server.WithGatherer(prometheus.DefaultGatherer),
				server.WithLogger(log.With().Str("component", "server").Logger()),
			)
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides server.listen")
	return cmd
}
