package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ctessum/sparse"

	"github.com/arcticdata/icemerge/internal/domain"
)

// ConcentrationField is the merged name of the passive-microwave sea ice
// concentration variable.
const ConcentrationField = "seaice_conc_monthly_cdr"

// concentrationAttrs are the global attributes worth carrying from the
// concentration product into the merged container.
var concentrationAttrs = []string{
	"title", "references", "contributor_name", "license", "summary",
}

// ConcentrationLoader reads monthly sea ice concentration files. The product
// shares the altimetry grid, so its values attach to the merged dataset
// without regridding.
type ConcentrationLoader struct {
	Dir     string
	Pattern string
	// PoleHoleLatitude is the latitude above which the sensor cannot see.
	// Cells poleward of it are set to full concentration; the pole hole is
	// ice covered year round.
	PoleHoleLatitude float64
}

// NewConcentrationLoader returns a loader with the standard pole hole cutoff.
func NewConcentrationLoader(dir string) *ConcentrationLoader {
	return &ConcentrationLoader{Dir: dir, Pattern: "*{month}*.nc", PoleHoleLatitude: 88}
}

// Load reads the requested months. Flag values outside the physical [0, 1]
// range become NaN before the pole hole fill, so quality flags never leak
// into the merged product as concentrations.
func (l *ConcentrationLoader) Load(ctx context.Context, months []time.Time) (*domain.Dataset, error) {
	var (
		ds    *domain.Dataset
		stack *sparse.DenseArray
		attrs = domain.NewAttributes()
	)
	for ti, month := range months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := findMonthlyFile(l.Dir, l.Pattern, month)
		if err != nil {
			return nil, &domain.MissingInputError{Source: "concentration", Path: l.Dir, Month: month}
		}
		nc, err := openGroup(path)
		if err != nil {
			return nil, err
		}
		err = func() error {
			defer nc.Close()
			if ds == nil {
				lat, err := readVariable(nc, "latitude")
				if err != nil {
					return err
				}
				lon, err := readVariable(nc, "longitude")
				if err != nil {
					return err
				}
				grid, err := domain.NewGrid(lat.dense(), lon.dense())
				if err != nil {
					return err
				}
				ds = domain.NewDataset(grid, months)
				stack = domain.NaNDense(len(months), grid.Nx(), grid.Ny())
				copyAttrs(attrs, nc.Attributes(), concentrationAttrs)
				if vg, err := nc.GetVarGetter(ConcentrationField); err == nil {
					copyAttrs(attrs, vg.Attributes(), []string{"long_name", "units"})
				}
			}
			v, err := readVariable(nc, ConcentrationField)
			if err != nil {
				return err
			}
			nx, ny := ds.Grid.Nx(), ds.Grid.Ny()
			if len(v.shape) == 3 && v.shape[0] == 1 {
				v.shape = v.shape[1:] // some files keep a length-1 time dimension
			}
			if len(v.shape) != 2 || v.shape[0] != nx || v.shape[1] != ny {
				return &domain.ShapeMismatchError{Field: ConcentrationField, Got: v.shape, Want: []int{nx, ny}}
			}
			step := stack.Elements[ti*nx*ny : (ti+1)*nx*ny]
			for i, c := range v.data {
				switch {
				case ds.Grid.Lat.Elements[i] > l.PoleHoleLatitude:
					step[i] = 1
				case c < 0 || c > 1:
					step[i] = math.NaN()
				default:
					step[i] = c
				}
			}
			return nil
		}()
		if err != nil {
			return nil, err
		}
	}
	if ds == nil {
		return nil, fmt.Errorf("no months requested")
	}
	f, err := domain.NewField(ConcentrationField, stack)
	if err != nil {
		return nil, err
	}
	if !attrs.Has("long_name") {
		attrs.Set("long_name", "sea ice concentration")
	}
	if !attrs.Has("units") {
		attrs.Set("units", "fraction")
	}
	f.Attrs = attrs
	if err := ds.AddField(f); err != nil {
		return nil, err
	}
	return ds, nil
}
