package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soyeahso/marketmind/internal/gateway"
	"github.com/soyeahso/marketmind/internal/metrics"
	"github.com/soyeahso/marketmind/internal/store"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}
			if err := checkConfig(&cfg); err != nil {
				return err
			}

			var m *metrics.Metrics
			if cfg.Gateway.Metrics {
				m = metrics.New()
			}

			rt, err := buildRuntime(cfg, m, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Store.Backend != "memory" {
				if err := paths.EnsureDirs(); err != nil {
					return fmt.Errorf("creating data directories: %w", err)
				}
			}
			dbPath := paths.DatabasePath(cfg.Store)
			st, err := store.Open(cfg.Store, dbPath, log)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()
			if err := store.Seed(ctx, st); err != nil {
				return fmt.Errorf("seeding store: %w", err)
			}
			log.Info().Str("backend", cfg.Store.Backend).Str("path", dbPath).Msg("store ready")

			announceGateway(rt.hooks, cmd.OutOrStdout())
			srv := gateway.New(cfg, gateway.Deps{
				Store:   st,
				Sources: rt.sources,
				Agent:   rt.agentDeps(),
			}, log, gateway.WithHooks(rt.hooks), gateway.WithMetrics(m))

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}
