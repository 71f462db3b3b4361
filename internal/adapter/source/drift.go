package source

import (
	"context"
	"fmt"
	"time"

	"github.com/arcticdata/icemerge/internal/domain"
)

// Merged names of the ice motion components.
const (
	DriftUField = "drifts_uT"
	DriftVField = "drifts_vT"
)

// DriftLoader reads monthly ice motion vectors from one NetCDF file covering
// the full record on its own polar grid, with two-dimensional coordinate
// variables and a CF time axis.
type DriftLoader struct {
	Path string
	// UVar and VVar are the component variable names in the file.
	UVar string
	VVar string
}

// NewDriftLoader returns a loader for the standard component names.
func NewDriftLoader(path string) *DriftLoader {
	return &DriftLoader{Path: path, UVar: "u", VVar: "v"}
}

// Load reads the requested months of both components. A requested month
// outside the file's time axis is a MissingInputError.
func (l *DriftLoader) Load(ctx context.Context, months []time.Time) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nc, err := openGroup(l.Path)
	if err != nil {
		return nil, err
	}
	defer nc.Close()

	lat, err := readVariable(nc, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := readVariable(nc, "longitude")
	if err != nil {
		return nil, err
	}
	grid, err := domain.NewGrid(lat.dense(), lon.dense())
	if err != nil {
		return nil, err
	}
	times, err := readTimeAxis(nc, "time")
	if err != nil {
		return nil, err
	}
	steps, err := monthSteps(times, months, "drift", l.Path)
	if err != nil {
		return nil, err
	}

	ds := domain.NewDataset(grid, months)
	copyAttrs(ds.Attrs, nc.Attributes(), nil)

	components := []struct{ src, dst string }{
		{l.UVar, DriftUField},
		{l.VVar, DriftVField},
	}
	for _, c := range components {
		src, dst := c.src, c.dst
		v, err := readVariable(nc, src)
		if err != nil {
			return nil, err
		}
		want := []int{len(times), grid.Nx(), grid.Ny()}
		if !shapeEqual(v.shape, want) {
			return nil, &domain.ShapeMismatchError{Field: src, Got: v.shape, Want: want}
		}

		cells := grid.Cells()
		stack := domain.NaNDense(len(months), grid.Nx(), grid.Ny())
		for ti, s := range steps {
			copy(stack.Elements[ti*cells:(ti+1)*cells], v.data[s*cells:(s+1)*cells])
		}
		f, err := domain.NewField(dst, stack)
		if err != nil {
			return nil, err
		}
		copyAttrs(f.Attrs, v.attrs, []string{"long_name", "units"})
		if !f.Attrs.Has("units") {
			f.Attrs.Set("units", "cm/s")
		}
		if !f.Attrs.Has("long_name") {
			f.Attrs.Set("long_name", fmt.Sprintf("monthly mean sea ice motion (%s component)", src))
		}
		f.Attrs.Merge(ds.Attrs)
		if err := ds.AddField(f); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
