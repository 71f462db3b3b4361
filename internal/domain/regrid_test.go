package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegridder(t *testing.T, dst *Grid) *Regridder {
	t.Helper()
	p, err := NewProjection(DefaultSRID)
	require.NoError(t, err)
	r, err := NewRegridder(dst, p)
	require.NoError(t, err)
	return r
}

func TestRegridOutputMatchesTargetShape(t *testing.T) {
	dst := testGrid(t, 4, 5)
	src := testGrid(t, 7, 3)
	r := newTestRegridder(t, dst)

	data := NaNDense(2, 7, 3)
	for i := range data.Elements {
		data.Elements[i] = float64(i % 5)
	}
	f, err := NewField("t2m", data)
	require.NoError(t, err)

	out, err := r.Regrid(f, src)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 5}, out.Data.Shape)
	for _, v := range out.Data.Elements {
		assert.False(t, math.IsNaN(v))
	}
}

func TestRegridCoincidentGridIsIdentity(t *testing.T) {
	// Source and target share the same cell locations, so nearest-neighbor
	// lookup must return each cell's own value.
	grid := testGrid(t, 4, 4)
	r := newTestRegridder(t, grid)

	data := NaNDense(1, 4, 4)
	for i := range data.Elements {
		data.Elements[i] = float64(i) * 1.5
	}
	f, err := NewField("freeboard", data)
	require.NoError(t, err)

	out, err := r.Regrid(f, grid)
	require.NoError(t, err)
	assert.Equal(t, data.Elements, out.Data.Elements)
}

func TestRegridTwoSourcesAgreeAtCoincidentCells(t *testing.T) {
	// The same constant field broadcast from two different native grids
	// must resample to the same values on the target.
	dst := testGrid(t, 5, 5)
	r := newTestRegridder(t, dst)

	coarse := testGrid(t, 3, 3)
	fine := testGrid(t, 9, 9)

	constant := func(nx, ny int) *Field {
		data := NaNDense(1, nx, ny)
		for i := range data.Elements {
			data.Elements[i] = 250.25
		}
		f, err := NewField("t2m", data)
		require.NoError(t, err)
		return f
	}

	a, err := r.Regrid(constant(3, 3), coarse)
	require.NoError(t, err)
	b, err := r.Regrid(constant(9, 9), fine)
	require.NoError(t, err)
	assert.Equal(t, a.Data.Elements, b.Data.Elements)
}

func TestRegridSkipsMissingSourceCells(t *testing.T) {
	grid := testGrid(t, 3, 3)
	r := newTestRegridder(t, grid)

	data := NaNDense(1, 3, 3)
	data.Elements[4] = 7 // single valid cell
	f, err := NewField("snow_depth", data)
	require.NoError(t, err)

	out, err := r.Regrid(f, grid)
	require.NoError(t, err)
	for _, v := range out.Data.Elements {
		assert.Equal(t, 7.0, v)
	}
}

func TestRegridEmptyStepFails(t *testing.T) {
	grid := testGrid(t, 3, 3)
	r := newTestRegridder(t, grid)

	data := NaNDense(2, 3, 3)
	for i := 0; i < 9; i++ {
		data.Elements[i] = 1 // step 0 valid, step 1 all missing
	}
	f, err := NewField("ice_thickness", data)
	require.NoError(t, err)

	_, err = r.Regrid(f, grid)
	var empty *EmptyInterpolationSetError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, 1, empty.Step)
	assert.Equal(t, "ice_thickness", empty.Field)
}

func TestRegridRejectsWrongSourceShape(t *testing.T) {
	r := newTestRegridder(t, testGrid(t, 3, 3))

	data := NaNDense(1, 2, 2)
	f, err := NewField("x", data)
	require.NoError(t, err)

	_, err = r.Regrid(f, testGrid(t, 3, 3))
	var sm *ShapeMismatchError
	require.True(t, errors.As(err, &sm))
}

func TestRegridRecordsProvenance(t *testing.T) {
	grid := testGrid(t, 3, 3)
	r := newTestRegridder(t, grid)

	data := NaNDense(1, 3, 3)
	data.Elements[0] = 1
	f, err := NewField("t2m", data)
	require.NoError(t, err)
	f.Attrs.Set("units", "C")

	out, err := r.Regrid(f, grid)
	require.NoError(t, err)
	assert.Equal(t, "C", out.Attrs.String("units"))
	assert.Contains(t, out.Attrs.String("note"), DefaultSRID)
}
