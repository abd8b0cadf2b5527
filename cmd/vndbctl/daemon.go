package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/vndbctl/internal/observability"
	"github.com/danmuck/vndbctl/internal/tags"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	tagsDaemonCmd.Flags().Duration("interval", tags.DefaultDaemonInterval, "refresh interval")
	tagsDaemonCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	tagsCmd.AddCommand(tagsDaemonCmd)
}

var tagsDaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Keeps the tag dump fresh until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig(configPath)
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			return fmt.Errorf("invalid interval %s", interval)
		}
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if metricsAddr != "" {
			srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Msgf("vndbctl.daemon metrics addr=%s err=%v", metricsAddr, err)
					stop()
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		cache := tags.New(cfg.Tags)
		n, err := cache.RefreshAndLoad(ctx, cfg.DataDir)
		if err != nil {
			log.Warn().Msgf("vndbctl.daemon initial refresh dir=%s err=%v", cfg.DataDir, err)
		}
		log.Info().Msgf("vndbctl.daemon started dir=%s tags=%d interval=%s", cfg.DataDir, n, interval)
		cache.Daemon(ctx, cfg.DataDir, interval)
		log.Info().Msg("vndbctl.daemon stopped")
		return nil
	},
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	return mux
}
