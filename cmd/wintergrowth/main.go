// Command wintergrowth computes winter sea ice growth statistics from a
// merged container: regional mean thickness, snow depth and uncertainty,
// plus ice type fractions, written to CSV and stamped onto a copy of the
// container metadata.
package main

import (
	"log/slog"
	"os"

	"github.com/arcticdata/icemerge/internal/adapter/container"
	"github.com/arcticdata/icemerge/internal/config"
	"github.com/arcticdata/icemerge/internal/domain"
	"github.com/arcticdata/icemerge/internal/observability"
	"github.com/arcticdata/icemerge/internal/summary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ds, err := container.Read(cfg.MergedPath)
	if err != nil {
		logger.Error("failed to read merged container", "path", cfg.MergedPath, "error", err)
		os.Exit(1)
	}
	logger.Info("merged container loaded",
		"path", cfg.MergedPath, "months", len(ds.Time), "fields", len(ds.FieldNames()))

	labels, err := domain.RegionLabelsFor(cfg.SummaryRegions)
	if err != nil {
		logger.Error("invalid summary regions", "error", err)
		os.Exit(1)
	}
	restricted, err := summary.RestrictRegions(ds, cfg.SummaryRegions)
	if err != nil {
		logger.Error("failed to restrict regions", "error", err)
		os.Exit(1)
	}
	logger.Info("statistics restricted", "regions", labels)

	stats, err := summary.Compute(restricted)
	if err != nil {
		logger.Error("failed to compute statistics", "error", err)
		os.Exit(1)
	}
	stats.AttachTo(restricted)

	f, err := os.Create(cfg.SummaryPath)
	if err != nil {
		logger.Error("failed to create summary file", "path", cfg.SummaryPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := stats.WriteCSV(f); err != nil {
		logger.Error("failed to write summary", "path", cfg.SummaryPath, "error", err)
		os.Exit(1)
	}

	logger.Info("winter growth summary written", "path", cfg.SummaryPath, "months", len(stats.Time))
}
