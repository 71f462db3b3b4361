// Package config populates pipeline settings from environment variables,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/arcticdata/icemerge/internal/domain"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	// Input locations.
	AltimetryDir     string
	ConcentrationDir string
	RegionMaskPath   string
	RegionLatsPath   string
	RegionLonsPath   string
	ReanalysisPath   string
	ReanalysisVars   []string
	ModelDir         string
	DriftPath        string

	// Outputs.
	MergedPath   string
	ModelOutPath string
	SummaryPath  string

	// Study period. Winters run November through April; the first starts in
	// StartYear and the last ends in April of EndYear.
	StartYear int
	EndYear   int
	// ModelStartYear extends the standalone model-thickness container back
	// before the altimetry record.
	ModelStartYear int

	// SummaryRegions restricts winter growth statistics.
	SummaryRegions []int32

	// Grid shapes of the fixed-size binary sources. Defaults match the
	// production 25 km region mask and the standard model grid; the mock
	// fixtures use smaller ones.
	RegionNx int
	RegionNy int
	ModelNx  int
	ModelNy  int

	HTTPAddr  string
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := envOrDefault("DATA_DIR", "./data")
	outDir := envOrDefault("OUTPUT_DIR", "./output")

	startYear, err := parseYear("START_YEAR", 2018)
	if err != nil {
		return nil, err
	}
	endYear, err := parseYear("END_YEAR", 2020)
	if err != nil {
		return nil, err
	}
	modelStartYear, err := parseYear("MODEL_START_YEAR", 1978)
	if err != nil {
		return nil, err
	}

	regions, err := parseRegions(envOrDefault("SUMMARY_REGIONS", joinRegions(domain.InnerArcticRegions)))
	if err != nil {
		return nil, err
	}

	regionNx, err := parseSize("REGION_NX", 304)
	if err != nil {
		return nil, err
	}
	regionNy, err := parseSize("REGION_NY", 448)
	if err != nil {
		return nil, err
	}
	modelNx, err := parseSize("MODEL_NX", 120)
	if err != nil {
		return nil, err
	}
	modelNy, err := parseSize("MODEL_NY", 360)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AltimetryDir:     envOrDefault("ALTIMETRY_DIR", filepath.Join(dataDir, "is2-thickness")),
		ConcentrationDir: envOrDefault("CONCENTRATION_DIR", filepath.Join(dataDir, "sea-ice-concentration")),
		RegionMaskPath:   envOrDefault("REGION_MASK_PATH", filepath.Join(dataDir, "region-mask", "region_n.msk")),
		RegionLatsPath:   envOrDefault("REGION_LATS_PATH", filepath.Join(dataDir, "region-mask", "psn25lats_v3.dat")),
		RegionLonsPath:   envOrDefault("REGION_LONS_PATH", filepath.Join(dataDir, "region-mask", "psn25lons_v3.dat")),
		ReanalysisPath:   envOrDefault("REANALYSIS_PATH", filepath.Join(dataDir, "era5", "era5-monthly.nc")),
		ReanalysisVars:   splitList(envOrDefault("REANALYSIS_VARS", "t2m,msdwlwrf")),
		ModelDir:         envOrDefault("MODEL_DIR", filepath.Join(dataDir, "piomas")),
		DriftPath:        envOrDefault("DRIFT_PATH", filepath.Join(dataDir, "drift", "icemotion-monthly.nc")),

		MergedPath:   envOrDefault("MERGED_PATH", filepath.Join(outDir, "icesat2-book-data.nc")),
		ModelOutPath: envOrDefault("MODEL_OUT_PATH", filepath.Join(outDir, "piomas-thickness.nc")),
		SummaryPath:  envOrDefault("SUMMARY_PATH", filepath.Join(outDir, "winter-growth-summary.csv")),

		StartYear:      startYear,
		EndYear:        endYear,
		ModelStartYear: modelStartYear,
		SummaryRegions: regions,

		RegionNx: regionNx,
		RegionNy: regionNy,
		ModelNx:  modelNx,
		ModelNy:  modelNy,

		HTTPAddr:  envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.EndYear <= cfg.StartYear {
		return nil, fmt.Errorf("END_YEAR %d must be after START_YEAR %d", cfg.EndYear, cfg.StartYear)
	}
	if cfg.ModelStartYear > cfg.StartYear {
		return nil, fmt.Errorf("MODEL_START_YEAR %d is after START_YEAR %d", cfg.ModelStartYear, cfg.StartYear)
	}
	if len(cfg.ReanalysisVars) == 0 {
		return nil, errors.New("REANALYSIS_VARS is required")
	}
	if len(cfg.SummaryRegions) == 0 {
		return nil, errors.New("SUMMARY_REGIONS is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseSize(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func parseYear(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 2200 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return y, nil
}

// parseRegions parses a comma-separated region code list, rejecting codes
// outside the mask enumeration.
func parseRegions(s string) ([]int32, error) {
	var out []int32
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid region code %q", part)
		}
		code := int32(n)
		if domain.RegionLabel(code) == "" {
			return nil, fmt.Errorf("unknown region code %d", code)
		}
		out = append(out, code)
	}
	return out, nil
}

func joinRegions(codes []int32) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(int(c))
	}
	return strings.Join(parts, ",")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
