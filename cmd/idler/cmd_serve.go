package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/idler/internal/aggregator"
	"github.com/yairfalse/idler/internal/emitter"
	"github.com/yairfalse/idler/internal/plugin"
	"github.com/yairfalse/idler/internal/plugin/aws"
	"github.com/yairfalse/idler/internal/server"
	"github.com/yairfalse/idler/internal/telemetry"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inventory aggregator HTTP server",
	Long: `Run the aggregator. GET /resources lists idle resources,
DELETE /resources/{id} deletes one (acknowledge-only unless delete.mode is "provider").

Also serves /healthz and Prometheus metrics on /metrics.`,
	Example: `  idler serve                          # Listen on :8080
  idler serve --addr :9000             # Custom address
  idler serve --config idler.toml      # Load settings from file`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	tel, err := telemetry.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	awsPlugin, err := aws.New(ctx, aws.Config{Region: cfg.AWS.Region, Profile: cfg.AWS.Profile})
	if err != nil {
		return fmt.Errorf("create aws plugin: %w", err)
	}
	plugin.Register(awsPlugin)

	prom, err := emitter.NewPrometheusEmitter(tel.Meter())
	if err != nil {
		return fmt.Errorf("create emitter: %w", err)
	}
	emit := emitter.NewMultiEmitter(prom, emitter.NewLogEmitter(log.Logger))
	defer func() { _ = emit.Close() }()

	agg := aggregator.New(awsPlugin, emit, tel.Tracer(), aggregator.Options{
		Strict:       cfg.Aggregator.Strict,
		QueryTimeout: cfg.Aggregator.QueryTimeout,
		DeleteMode:   cfg.Delete.Mode,
	})

	srv := server.New(cfg.Server.Addr, agg, server.Info{
		Provider: awsPlugin.Name(),
		Region:   awsPlugin.Region(),
		Account:  awsPlugin.AccountID(),
	}, tel.MetricsHandler())

	log.Info().
		Str("addr", cfg.Server.Addr).
		Str("region", awsPlugin.Region()).
		Str("account", awsPlugin.AccountID()).
		Bool("strict", cfg.Aggregator.Strict).
		Str("delete_mode", cfg.Delete.Mode).
		Dur("query_timeout", cfg.Aggregator.QueryTimeout).
		Msg("idler starting")

	var g run.Group
	g.Add(func() error {
		return srv.Start()
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		log.Info().Str("signal", sig.Signal.String()).Msg("shutting down")
		return nil
	}
	return err
}
