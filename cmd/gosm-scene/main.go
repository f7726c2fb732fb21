package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kuanb/gosm-scene/api"
	"kuanb/gosm-scene/config"
	"kuanb/gosm-scene/logger"
	"kuanb/gosm-scene/metrics"
	"kuanb/gosm-scene/osm"
	"kuanb/gosm-scene/search"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	pbfFile := flag.String("pbf", "", "serve features from a local PBF extract instead of Overpass")
	flag.Parse()

	if err := run(*configPath, *pbfFile); err != nil {
		fmt.Fprintln(os.Stderr, "gosm-scene:", err)
		os.Exit(1)
	}
}

func run(configPath, pbfFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if pbfFile != "" {
		cfg.PBFPath = pbfFile
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return err
	}
	log := logger.Get()
	defer log.Sync()

	log.Info("gosm-scene starting...")

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	source, sourceName, err := featureSource(cfg, log)
	if err != nil {
		return err
	}

	srv := api.NewServer(api.Options{
		Source:       source,
		SourceName:   sourceName,
		Geocoder:     search.NewClient(cfg.Nominatim.URL, cfg.Nominatim.UserAgent, cfg.Nominatim.Timeout, log.Named("nominatim")),
		Metrics:      collector,
		Logger:       log.Named("api"),
		Defaults:     cfg.Defaults,
		SearchLimit:  cfg.Nominatim.Limit,
		FetchTimeout: cfg.Overpass.Timeout,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go api.LogRuntimeMetrics(ctx, log.Named("runtime"), cfg.Server.MetricsInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("source", sourceName))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// featureSource loads the PBF extract when one is configured and falls back
// to the Overpass API otherwise.
func featureSource(cfg *config.Config, log *zap.Logger) (osm.FeatureSource, string, error) {
	if cfg.PBFPath == "" {
		return osm.NewOverpassClient(cfg.Overpass.URL, cfg.Overpass.Timeout, log.Named("overpass")), "overpass", nil
	}

	log.Info("loading features", zap.String("path", cfg.PBFPath))
	start := time.Now()
	fs, err := osm.LoadOsmFile(cfg.PBFPath, log.Named("pbf"))
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", cfg.PBFPath, err)
	}
	log.Info("loaded features", zap.Int("ways", fs.Size()), zap.Duration("took", time.Since(start)))
	return fs, "pbf", nil
}
