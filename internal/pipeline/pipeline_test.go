package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcticdata/icemerge/internal/domain"
	"github.com/arcticdata/icemerge/internal/observability"
	"github.com/arcticdata/icemerge/internal/pipeline"
)

func testGrid() *domain.Grid {
	return domain.MeshGrid([]float64{-150, -140}, []float64{71, 72})
}

// namedConstant describes one field a fake loader serves: a constant value
// everywhere, except a hole at cell 0 of step 0 when holed is set.
type namedConstant struct {
	name  string
	value float64
	holed bool
}

type fakeMonthly struct {
	grid      *fakeGrid
	fields    []namedConstant
	err       error
	gotMonths []time.Time
}

// fakeGrid wraps a grid so multiple fakes can share one construction.
type fakeGrid struct{ g *domain.Grid }

func (f *fakeMonthly) Load(_ context.Context, months []time.Time) (*domain.Dataset, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.gotMonths = months
	ds := domain.NewDataset(f.grid.g, months)
	for _, fc := range f.fields {
		data := sparse.ZerosDense(len(months), f.grid.g.Nx(), f.grid.g.Ny())
		for i := range data.Elements {
			data.Elements[i] = fc.value
		}
		if fc.holed {
			data.Elements[0] = math.NaN()
		}
		fld, err := domain.NewField(fc.name, data)
		if err != nil {
			return nil, err
		}
		if err := ds.AddField(fld); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

type fakeRegions struct {
	grid *fakeGrid
	code int32
}

func (f *fakeRegions) Load(context.Context) (*domain.RegionMask, *domain.Grid, error) {
	g := f.grid.g
	codes := make([]int32, g.Cells())
	for i := range codes {
		codes[i] = f.code
	}
	mask, err := domain.NewRegionMask(g.Nx(), g.Ny(), codes)
	return mask, g, err
}

type fakeModel struct {
	grid     *fakeGrid
	gotStart int
	gotEnd   int
}

func (f *fakeModel) Load(_ context.Context, startYear, endYear int) (*domain.Dataset, error) {
	f.gotStart, f.gotEnd = startYear, endYear
	var months []time.Time
	for y := startYear; y <= endYear; y++ {
		for m := time.January; m <= time.December; m++ {
			months = append(months, time.Date(y, m, 1, 0, 0, 0, 0, time.UTC))
		}
	}
	ds := domain.NewDataset(f.grid.g, months)
	data := sparse.ZerosDense(len(months), f.grid.g.Nx(), f.grid.g.Ny())
	for i := range data.Elements {
		data.Elements[i] = 2.0
	}
	fld, err := domain.NewField("PIOMAS_ice_thickness", data)
	if err != nil {
		return nil, err
	}
	return ds, ds.AddField(fld)
}

type captureWriter struct {
	written map[string]*domain.Dataset
	err     error
}

func (w *captureWriter) Write(path string, ds *domain.Dataset) error {
	if w.err != nil {
		return w.err
	}
	if w.written == nil {
		w.written = make(map[string]*domain.Dataset)
	}
	w.written[path] = ds
	return nil
}

func altimetryFields() []namedConstant {
	out := make([]namedConstant, 0, len(domain.AltimetryVariables))
	for _, name := range domain.AltimetryVariables {
		out = append(out, namedConstant{name: name, value: 3.0, holed: true})
	}
	return out
}

func testSources(grid *fakeGrid) pipeline.Sources {
	return pipeline.Sources{
		Altimetry:     &fakeMonthly{grid: grid, fields: altimetryFields()},
		Concentration: &fakeMonthly{grid: grid, fields: []namedConstant{{name: "seaice_conc_monthly_cdr", value: 0.8}}},
		Regions:       &fakeRegions{grid: grid, code: 13},
		Reanalysis: &fakeMonthly{grid: grid, fields: []namedConstant{
			{name: "t2m", value: -20.0},
			{name: "msdwlwrf", value: 180.0},
		}},
		ModelThickness: &fakeModel{grid: grid},
		Drift: &fakeMonthly{grid: grid, fields: []namedConstant{
			{name: "drifts_uT", value: 1.5},
			{name: "drifts_vT", value: -1.5},
		}},
	}
}

func testOptions() pipeline.Options {
	return pipeline.Options{
		StartYear:      2018,
		EndYear:        2019,
		ModelStartYear: 2017,
		MergedPath:     "merged.nc",
		ModelOutPath:   "model.nc",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunMergesAllSources(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2021, 3, 3, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	grid := &fakeGrid{g: testGrid()}
	src := testSources(grid)
	w := &captureWriter{}
	p := pipeline.New(src, w, testOptions(), discardLogger(), observability.NewMetricsForTesting())

	require.Error(t, p.CheckReadiness(context.Background()), "not ready before the run")
	require.NoError(t, p.Run(context.Background()))
	assert.NoError(t, p.CheckReadiness(context.Background()))

	merged, ok := w.written["merged.nc"]
	require.True(t, ok, "merged container written")

	// One winter span: November 2018 through April 2019.
	require.Len(t, merged.Time, 6)
	assert.Equal(t, time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC), merged.Time[0])
	assert.Equal(t, time.Date(2019, time.April, 1, 0, 0, 0, 0, time.UTC), merged.Time[5])

	names := merged.FieldNames()
	for _, want := range domain.AltimetryVariables {
		assert.Contains(t, names, want)
		assert.Contains(t, names, want+"_filled")
	}
	for _, want := range []string{
		"seaice_conc_monthly_cdr", "t2m", "msdwlwrf",
		"PIOMAS_ice_thickness", "drifts_uT", "drifts_vT",
	} {
		assert.Contains(t, names, want)
	}

	require.NotNil(t, merged.Region)
	assert.Equal(t, int32(13), merged.Region.Code(0))

	desc, _ := merged.Attrs.Get("description")
	assert.Equal(t, "sea ice data monthly merged dataset for the ICESat-2 period", desc)
	created, _ := merged.Attrs.Get("creation date")
	assert.Equal(t, "2021-03-03", created)
}

func TestRunFillsAltimetryGaps(t *testing.T) {
	grid := &fakeGrid{g: testGrid()}
	w := &captureWriter{}
	p := pipeline.New(testSources(grid), w, testOptions(), discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, p.Run(context.Background()))

	merged := w.written["merged.nc"]
	orig, ok := merged.Field("freeboard")
	require.True(t, ok)
	filled, ok := merged.Field("freeboard_filled")
	require.True(t, ok)

	assert.True(t, math.IsNaN(orig.Step(0)[0]), "original keeps its hole")
	assert.Equal(t, 3.0, filled.Step(0)[0], "hole copied from nearest valid cell")
	assert.Equal(t, []float64{3, 3, 3}, filled.Step(0)[1:])

	note, _ := filled.Attrs.Get("note")
	assert.Equal(t, "interpolated from original data", note)
}

func TestRunWritesModelContainer(t *testing.T) {
	grid := &fakeGrid{g: testGrid()}
	src := testSources(grid)
	w := &captureWriter{}
	p := pipeline.New(src, w, testOptions(), discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, p.Run(context.Background()))

	model, ok := w.written["model.nc"]
	require.True(t, ok, "model container written")
	assert.Len(t, model.Time, 36, "every month of 2017 through 2019")
	f, ok := model.Field("PIOMAS_ice_thickness")
	require.True(t, ok)
	assert.Equal(t, 2.0, f.Data.Elements[0], "coincident grids regrid one to one")

	desc, _ := model.Attrs.Get("description")
	assert.Equal(t, "PIOMAS mean monthly ice thickness regridded to the ICESat-2 grid", desc)

	fm := src.ModelThickness.(*fakeModel)
	assert.Equal(t, 2017, fm.gotStart)
	assert.Equal(t, 2019, fm.gotEnd)
}

func TestRunPropagatesLoaderErrors(t *testing.T) {
	grid := &fakeGrid{g: testGrid()}
	src := testSources(grid)
	boom := errors.New("disk on fire")
	src.Concentration = &fakeMonthly{grid: grid, err: boom}

	p := pipeline.New(src, &captureWriter{}, testOptions(), discardLogger(), observability.NewMetricsForTesting())
	err := p.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load:")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestRunRejectsMisshapenRegionMask(t *testing.T) {
	grid := &fakeGrid{g: testGrid()}
	src := testSources(grid)
	src.Regions = &fakeRegions{grid: &fakeGrid{g: domain.MeshGrid([]float64{-150, -140, -130}, []float64{71, 72})}, code: 13}

	p := pipeline.New(src, &captureWriter{}, testOptions(), discardLogger(), observability.NewMetricsForTesting())
	err := p.Run(context.Background())
	var mismatch *domain.ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "region_mask", mismatch.Field)
}

func TestRunPropagatesWriterErrors(t *testing.T) {
	grid := &fakeGrid{g: testGrid()}
	w := &captureWriter{err: errors.New("read-only volume")}
	p := pipeline.New(testSources(grid), w, testOptions(), discardLogger(), observability.NewMetricsForTesting())
	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "align:", "model container write fails first")
}
