package summary

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcticdata/icemerge/internal/domain"
)

func buildDataset(t *testing.T, codes []int32, thickness, iceType, unc []float64) *domain.Dataset {
	t.Helper()
	nx, ny := 2, 2
	grid := domain.MeshGrid([]float64{-150, -140}, []float64{72, 73})
	months := []time.Time{time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC)}
	ds := domain.NewDataset(grid, months)

	mask, err := domain.NewRegionMask(nx, ny, codes)
	require.NoError(t, err)
	require.NoError(t, ds.SetRegionMask(mask))

	add := func(name string, vals []float64) {
		data := domain.NaNDense(1, nx, ny)
		copy(data.Elements, vals)
		f, err := domain.NewField(name, data)
		require.NoError(t, err)
		require.NoError(t, ds.AddField(f))
	}
	add("ice_thickness_filled", thickness)
	add("ice_type_filled", iceType)
	add("ice_thickness_unc_filled", unc)
	return ds
}

func TestRestrictRegions(t *testing.T) {
	ds := buildDataset(t,
		[]int32{12, 15, 20, 8},
		[]float64{1, 2, 3, 4},
		[]float64{0, 1, 0, 1},
		[]float64{0.1, 0.1, 0.1, 0.1})

	out, err := RestrictRegions(ds, []int32{12, 15})
	require.NoError(t, err)

	f, ok := out.Field("ice_thickness_filled")
	require.True(t, ok)
	assert.Equal(t, 1.0, f.Step(0)[0])
	assert.Equal(t, 2.0, f.Step(0)[1])
	assert.True(t, math.IsNaN(f.Step(0)[2]))
	assert.True(t, math.IsNaN(f.Step(0)[3]))

	labels := out.Attrs.String("regions with data")
	assert.Contains(t, labels, "Chukchi Sea")
	assert.Contains(t, labels, "Arctic Ocean")

	// The source dataset is preserved.
	orig, _ := ds.Field("ice_thickness_filled")
	assert.Equal(t, 3.0, orig.Step(0)[2])
}

func TestRestrictRegionsRejectsUnknownCode(t *testing.T) {
	ds := buildDataset(t,
		[]int32{12, 12, 12, 12},
		[]float64{1, 1, 1, 1},
		[]float64{0, 0, 0, 0},
		[]float64{0, 0, 0, 0})

	_, err := RestrictRegions(ds, []int32{12, 99})
	assert.Error(t, err)
}

func TestComputeMeansByType(t *testing.T) {
	nan := math.NaN()
	ds := buildDataset(t,
		[]int32{12, 12, 12, 12},
		[]float64{1, 3, 2, nan},
		[]float64{MultiYearIce, MultiYearIce, FirstYearIce, FirstYearIce},
		[]float64{0.2, 0.4, 0.6, nan})

	stats, err := Compute(ds)
	require.NoError(t, err)
	require.Len(t, stats.Time, 1)

	assert.InDelta(t, 2.0, stats.MeanThickness[0], 1e-12)
	assert.InDelta(t, 2.0, stats.MeanMYIThickness[0], 1e-12)
	assert.InDelta(t, 2.0, stats.MeanFYIThickness[0], 1e-12)
	assert.InDelta(t, 0.4, stats.MeanUncertainty[0], 1e-12)
}

func TestComputePercentagesSumTo100(t *testing.T) {
	nan := math.NaN()
	ds := buildDataset(t,
		[]int32{12, 12, 12, 12},
		[]float64{1, 2, 3, nan},
		[]float64{MultiYearIce, FirstYearIce, FirstYearIce, MultiYearIce},
		[]float64{0.1, 0.1, 0.1, nan})

	stats, err := Compute(ds)
	require.NoError(t, err)

	assert.InDelta(t, 100.0/3, stats.PercentMYI[0], 1e-9)
	assert.InDelta(t, 200.0/3, stats.PercentFYI[0], 1e-9)
	assert.InDelta(t, 100, stats.PercentMYI[0]+stats.PercentFYI[0], 1e-9)
}

func TestComputeEmptyStepIsNaN(t *testing.T) {
	nan := math.NaN()
	ds := buildDataset(t,
		[]int32{12, 12, 12, 12},
		[]float64{nan, nan, nan, nan},
		[]float64{nan, nan, nan, nan},
		[]float64{nan, nan, nan, nan})

	stats, err := Compute(ds)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(stats.MeanThickness[0]))
	assert.True(t, math.IsNaN(stats.MeanMYIThickness[0]))
	assert.True(t, math.IsNaN(stats.PercentMYI[0]))
	assert.True(t, math.IsNaN(stats.PercentFYI[0]))
}

func TestComputeRequiresFilledFields(t *testing.T) {
	grid := domain.MeshGrid([]float64{-150, -140}, []float64{72, 73})
	ds := domain.NewDataset(grid, []time.Time{time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC)})

	_, err := Compute(ds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ice_thickness_filled")
}

func TestAttachTo(t *testing.T) {
	ds := buildDataset(t,
		[]int32{12, 12, 12, 12},
		[]float64{1, 1, 1, 1},
		[]float64{0, 0, 0, 0},
		[]float64{0.1, 0.1, 0.1, 0.1})

	stats, err := Compute(ds)
	require.NoError(t, err)
	stats.AttachTo(ds)

	v, ok := ds.Attrs.Get("mean_ice_thickness")
	require.True(t, ok)
	assert.Equal(t, []float64{1}, v)
	assert.True(t, ds.Attrs.Has("percent_FYI"))
}

func TestWriteCSV(t *testing.T) {
	nan := math.NaN()
	ds := buildDataset(t,
		[]int32{12, 12, 12, 12},
		[]float64{1, 3, nan, nan},
		[]float64{MultiYearIce, FirstYearIce, nan, nan},
		[]float64{0.25, 0.25, nan, nan})

	stats, err := Compute(ds)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, stats.WriteCSV(&sb))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"month,mean_ice_thickness_m,mean_MYI_thickness_m,mean_FYI_thickness_m,mean_ice_thickness_unc_m,percent_MYI,percent_FYI",
		lines[0])
	assert.Equal(t, "2018-11,2.0000,1.0000,3.0000,0.2500,50.0000,50.0000", lines[1])
}
