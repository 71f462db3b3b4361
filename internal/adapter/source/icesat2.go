package source

import (
	"context"
	"fmt"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"

	"github.com/arcticdata/icemerge/internal/domain"
)

// AltimetryLoader reads monthly satellite altimetry files. Each file holds
// one month of thickness, freeboard, snow and ice-type grids on the target
// polar stereographic grid, with two-dimensional latitude and longitude
// coordinate variables.
type AltimetryLoader struct {
	// Dir holds one NetCDF file per month, named with a YYYYMM stamp.
	Dir string
	// Pattern is the glob matched against file names, with {month}
	// replaced by the YYYYMM stamp.
	Pattern string
	// Variables lists the fields read from each file. Defaults to the
	// standard altimetry variable set.
	Variables []string
}

// NewAltimetryLoader returns a loader for the standard altimetry variables.
func NewAltimetryLoader(dir string) *AltimetryLoader {
	return &AltimetryLoader{
		Dir:       dir,
		Pattern:   "*{month}*.nc",
		Variables: domain.AltimetryVariables,
	}
}

// Load reads the requested months into one dataset. The first month's file
// defines the target grid; every later month must match its shape. A month
// with no file yields a MissingInputError.
func (l *AltimetryLoader) Load(ctx context.Context, months []time.Time) (*domain.Dataset, error) {
	if len(months) == 0 {
		return nil, fmt.Errorf("no months requested")
	}
	var (
		ds     *domain.Dataset
		stacks = make(map[string]*sparse.DenseArray, len(l.Variables))
		attrs  = make(map[string]*domain.Attributes, len(l.Variables))
	)
	for ti, month := range months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := findMonthlyFile(l.Dir, l.Pattern, month)
		if err != nil {
			return nil, &domain.MissingInputError{Source: "altimetry", Path: l.Dir, Month: month}
		}
		nc, err := openGroup(path)
		if err != nil {
			return nil, err
		}
		err = func() error {
			defer nc.Close()
			if ds == nil {
				ds, err = l.readFirst(nc, months, stacks, attrs)
				if err != nil {
					return err
				}
			}
			nx, ny := ds.Grid.Nx(), ds.Grid.Ny()
			for _, name := range l.Variables {
				v, err := readVariable(nc, name)
				if err != nil {
					return err
				}
				if len(v.shape) != 2 || v.shape[0] != nx || v.shape[1] != ny {
					return &domain.ShapeMismatchError{Field: name, Got: v.shape, Want: []int{nx, ny}}
				}
				copy(stacks[name].Elements[ti*nx*ny:(ti+1)*nx*ny], v.data)
			}
			return nil
		}()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	for _, name := range l.Variables {
		f, err := domain.NewField(name, stacks[name])
		if err != nil {
			return nil, err
		}
		f.Attrs.Merge(attrs[name])
		f.Attrs.Merge(ds.Attrs)
		if err := ds.AddField(f); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// readFirst builds the dataset skeleton from the first month's file: grid
// coordinates, projection identifier, global attributes, and a NaN time
// stack plus attribute set for each requested variable.
func (l *AltimetryLoader) readFirst(nc api.Group, months []time.Time,
	stacks map[string]*sparse.DenseArray, attrs map[string]*domain.Attributes) (*domain.Dataset, error) {

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

	ds := domain.NewDataset(grid, months)
	copyAttrs(ds.Attrs, nc.Attributes(), nil)
	if !ds.Attrs.Has("srid") {
		if vg, err := nc.GetVarGetter("projection"); err == nil {
			if srid, ok := attrString(vg.Attributes(), "srid"); ok {
				ds.Attrs.Set("srid", srid)
			}
		}
	}
	if !ds.Attrs.Has("srid") {
		ds.Attrs.Set("srid", domain.DefaultSRID)
	}

	for _, name := range l.Variables {
		stacks[name] = domain.NaNDense(len(months), grid.Nx(), grid.Ny())
		va := domain.NewAttributes()
		if vg, err := nc.GetVarGetter(name); err == nil {
			copyAttrs(va, vg.Attributes(), nil)
		}
		va.Delete("_FillValue")
		attrs[name] = va
	}
	return ds, nil
}
