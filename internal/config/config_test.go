package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "is2-thickness"), filepath.Clean(cfg.AltimetryDir))
	assert.Equal(t, filepath.Join("data", "era5", "era5-monthly.nc"), filepath.Clean(cfg.ReanalysisPath))
	assert.Equal(t, []string{"t2m", "msdwlwrf"}, cfg.ReanalysisVars)
	assert.Equal(t, filepath.Join("output", "icesat2-book-data.nc"), filepath.Clean(cfg.MergedPath))
	assert.Equal(t, 2018, cfg.StartYear)
	assert.Equal(t, 2020, cfg.EndYear)
	assert.Equal(t, 1978, cfg.ModelStartYear)
	assert.Equal(t, []int32{10, 11, 12, 13, 15}, cfg.SummaryRegions)
	assert.Equal(t, 304, cfg.RegionNx)
	assert.Equal(t, 448, cfg.RegionNy)
	assert.Equal(t, 120, cfg.ModelNx)
	assert.Equal(t, 360, cfg.ModelNy)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/seaice")
	t.Setenv("ALTIMETRY_DIR", "/srv/seaice/custom-is2")
	t.Setenv("REANALYSIS_VARS", "t2m")
	t.Setenv("MERGED_PATH", "/tmp/merged.nc")
	t.Setenv("START_YEAR", "2019")
	t.Setenv("END_YEAR", "2021")
	t.Setenv("MODEL_START_YEAR", "1990")
	t.Setenv("SUMMARY_REGIONS", "8, 9")
	t.Setenv("MODEL_NX", "24")
	t.Setenv("MODEL_NY", "40")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/seaice/custom-is2", cfg.AltimetryDir)
	assert.Equal(t, filepath.Join("/srv/seaice", "piomas"), cfg.ModelDir)
	assert.Equal(t, []string{"t2m"}, cfg.ReanalysisVars)
	assert.Equal(t, "/tmp/merged.nc", cfg.MergedPath)
	assert.Equal(t, 2019, cfg.StartYear)
	assert.Equal(t, 2021, cfg.EndYear)
	assert.Equal(t, 1990, cfg.ModelStartYear)
	assert.Equal(t, []int32{8, 9}, cfg.SummaryRegions)
	assert.Equal(t, 24, cfg.ModelNx)
	assert.Equal(t, 40, cfg.ModelNy)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_InvalidYear(t *testing.T) {
	t.Setenv("START_YEAR", "not-a-year")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "START_YEAR")
}

func TestLoad_ReversedYearRange(t *testing.T) {
	t.Setenv("START_YEAR", "2021")
	t.Setenv("END_YEAR", "2019")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be after START_YEAR")
}

func TestLoad_InvalidGridSize(t *testing.T) {
	t.Setenv("REGION_NX", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGION_NX")
}

func TestLoad_UnknownRegionCode(t *testing.T) {
	t.Setenv("SUMMARY_REGIONS", "10,99")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown region code")
}
