// Command merge builds the merged monthly sea ice container: it loads the
// six source datasets, aligns them on the altimetry grid, interpolates
// observation gaps, and writes the result plus a standalone model-thickness
// container.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcticdata/icemerge/internal/adapter/container"
	httpadapter "github.com/arcticdata/icemerge/internal/adapter/http"
	"github.com/arcticdata/icemerge/internal/adapter/source"
	"github.com/arcticdata/icemerge/internal/config"
	"github.com/arcticdata/icemerge/internal/observability"
	"github.com/arcticdata/icemerge/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	regions := source.NewRegionMaskLoader(cfg.RegionMaskPath, cfg.RegionLatsPath, cfg.RegionLonsPath)
	regions.Nx, regions.Ny = cfg.RegionNx, cfg.RegionNy
	model := source.NewModelThicknessLoader(cfg.ModelDir)
	model.Nx, model.Ny = cfg.ModelNx, cfg.ModelNy

	src := pipeline.Sources{
		Altimetry:      source.NewAltimetryLoader(cfg.AltimetryDir),
		Concentration:  source.NewConcentrationLoader(cfg.ConcentrationDir),
		Regions:        regions,
		Reanalysis:     source.NewReanalysisLoader(cfg.ReanalysisPath, cfg.ReanalysisVars),
		ModelThickness: model,
		Drift:          source.NewDriftLoader(cfg.DriftPath),
	}
	opts := pipeline.Options{
		StartYear:      cfg.StartYear,
		EndYear:        cfg.EndYear,
		ModelStartYear: cfg.ModelStartYear,
		MergedPath:     cfg.MergedPath,
		ModelOutPath:   cfg.ModelOutPath,
	}

	p := pipeline.New(src, container.Writer{}, opts, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runErr := p.Run(ctx)
	if runErr != nil {
		logger.Error("pipeline error", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if runErr != nil {
		os.Exit(1)
	}
	logger.Info("merge complete")
}
