// cmd/roughtimed/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/slowdrip-network/roughtimed/internal/api"
	"github.com/slowdrip-network/roughtimed/internal/cert"
	"github.com/slowdrip-network/roughtimed/internal/config"
	"github.com/slowdrip-network/roughtimed/internal/keyloader"
	"github.com/slowdrip-network/roughtimed/internal/logger"
	"github.com/slowdrip-network/roughtimed/internal/metrics"
	"github.com/slowdrip-network/roughtimed/internal/server"
	"github.com/slowdrip-network/roughtimed/internal/sign"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	lg := logger.New(os.Getenv("LOG_LEVEL"))

	longTermSeed, err := keyloader.Load(cfg)
	if err != nil {
		lg.Error().Err(err).Msg("roughtimed: failed to resolve long-term seed")
		os.Exit(1)
	}
	longTerm := sign.NewFromSeed(longTermSeed)

	certificate, err := cert.Build(longTerm)
	longTerm.Close()
	if err != nil {
		lg.Error().Err(err).Msg("roughtimed: failed to build delegation certificate")
		os.Exit(1)
	}
	defer certificate.Ephemeral.Close()

	// The default registry is the one promhttp.Handler serves on /metrics.
	m := metrics.New(lg, prometheus.DefaultRegisterer)

	addr := fmt.Sprintf("%s:%d", cfg.Interface, cfg.Port)
	loop, err := server.New(lg, addr, int(cfg.BatchSize), cfg.SecondsOffset, certificate, m)
	if err != nil {
		lg.Error().Err(err).Str("addr", addr).Msg("roughtimed: failed to bind socket")
		os.Exit(1)
	}
	defer loop.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go m.Run(ctx, cfg.StatusInterval.Duration)

	apiSrv := api.New()
	apiSrv.MarkReady()

	if cfg.HealthCheckPort != 0 {
		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HealthCheckPort),
			Handler:           apiSrv.Router(true),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				lg.Error().Err(err).Msg("roughtimed: health check listener failed")
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdownCtx)
		}()
	}

	lg.Info().Str("addr", addr).Uint16("batch_size", uint16(cfg.BatchSize)).Msg("roughtimed: starting")
	if err := loop.Run(ctx); err != nil {
		lg.Error().Err(err).Msg("roughtimed: server loop exited with error")
		os.Exit(1)
	}
	lg.Info().Msg("roughtimed: shutdown complete")
}

// loadConfig chooses a loader the same way the original implementation's
// three config sources were selected: an explicit file path argument
// wins, then ROUGHTIMED_CONFIG, then config.yaml in the working
// directory if one exists, falling back to pure environment variables
// so the server can still run in a container with no mounted file.
func loadConfig() (*config.Config, error) {
	if len(os.Args) > 1 {
		return config.LoadFile(os.Args[1])
	}
	if v := os.Getenv("ROUGHTIMED_CONFIG"); v != "" {
		return config.LoadFile(v)
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return config.LoadFile("config.yaml")
	}
	return config.LoadEnv()
}
