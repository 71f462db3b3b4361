package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/arcticdata/icemerge/internal/domain"
)

// kelvinOffset converts 2 m air temperature to degrees Celsius.
const kelvinOffset = 273.15

// reanalysisCitation attributes recorded on the reanalysis dataset.
var reanalysisAttrs = map[string]string{
	"description": "ERA5 monthly averaged atmospheric reanalysis on single levels",
	"website":     "https://cds.climate.copernicus.eu/cdsapp#!/dataset/reanalysis-era5-single-levels-monthly-means",
	"contact":     "copernicus-support@ecmwf.int",
	"citation":    "Hersbach, H. et al. (2020): The ERA5 global reanalysis. Q J R Meteorol Soc.",
}

// ReanalysisLoader reads atmospheric variables from one reanalysis file
// covering the full study period on a regular latitude/longitude grid. Files
// spanning a product transition carry an experiment version dimension; only
// the final (expver 1) values are kept.
type ReanalysisLoader struct {
	Path string
	// Variables are the short names to load, e.g. t2m and msdwlwrf.
	Variables []string
	// MinLatitude drops everything south of it. The merged product covers
	// the Arctic; mid-latitude values would only slow the regrid.
	MinLatitude float64
}

// NewReanalysisLoader returns a loader restricted to the Arctic.
func NewReanalysisLoader(path string, variables []string) *ReanalysisLoader {
	return &ReanalysisLoader{Path: path, Variables: variables, MinLatitude: 50}
}

// Load reads the requested months of every configured variable. A requested
// month outside the file's time axis is a MissingInputError.
func (l *ReanalysisLoader) Load(ctx context.Context, months []time.Time) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nc, err := openGroup(l.Path)
	if err != nil {
		return nil, err
	}
	defer nc.Close()

	lons, err := readAxis(nc, "longitude")
	if err != nil {
		return nil, err
	}
	lats, err := readAxis(nc, "latitude")
	if err != nil {
		return nil, err
	}
	times, err := readTimeAxis(nc, "time")
	if err != nil {
		return nil, err
	}
	steps, err := monthSteps(times, months, "reanalysis", l.Path)
	if err != nil {
		return nil, err
	}
	expver, err := finalExperimentIndex(nc)
	if err != nil {
		return nil, err
	}

	grid := domain.MeshGrid(lons, lats)
	ds := domain.NewDataset(grid, months)
	for k, v := range reanalysisAttrs {
		ds.Attrs.Set(k, v)
	}

	nlat, nlon := len(lats), len(lons)
	for _, name := range l.Variables {
		v, err := readVariable(nc, name)
		if err != nil {
			return nil, err
		}
		want := []int{len(times), nlat, nlon}
		nexp := 0 // length of the experiment version dimension, if any
		ok := shapeEqual(v.shape, want)
		if !ok && expver >= 0 && len(v.shape) == 4 &&
			v.shape[0] == len(times) && v.shape[2] == nlat && v.shape[3] == nlon && expver < v.shape[1] {
			nexp = v.shape[1]
			ok = true
		}
		if !ok {
			return nil, &domain.ShapeMismatchError{Field: name, Got: v.shape, Want: want}
		}

		stack := domain.NaNDense(len(months), nlon, nlat)
		for ti, s := range steps {
			base := s * nlat * nlon
			if nexp > 0 {
				base = (s*nexp + expver) * nlat * nlon
			}
			out := stack.Elements[ti*nlon*nlat:]
			// Source order is (lat, lon); the grid is (lon, lat).
			for j := 0; j < nlat; j++ {
				if lats[j] <= l.MinLatitude {
					for i := 0; i < nlon; i++ {
						out[i*nlat+j] = math.NaN()
					}
					continue
				}
				for i := 0; i < nlon; i++ {
					out[i*nlat+j] = v.data[base+j*nlon+i]
				}
			}
		}

		f, err := domain.NewField(name, stack)
		if err != nil {
			return nil, err
		}
		copyAttrs(f.Attrs, v.attrs, []string{"long_name", "units"})
		if name == "t2m" {
			for i, val := range f.Data.Elements {
				if !math.IsNaN(val) {
					f.Data.Elements[i] = val - kelvinOffset
				}
			}
			f.Attrs.Set("units", "C")
		}
		f.Attrs.Merge(ds.Attrs)
		if err := ds.AddField(f); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// finalExperimentIndex returns the index of expver 1 along the experiment
// version dimension, or -1 when the file has no such dimension.
func finalExperimentIndex(nc api.Group) (int, error) {
	vg, err := nc.GetVarGetter("expver")
	if err != nil {
		return -1, nil
	}
	raw, err := vg.Values()
	if err != nil {
		return -1, fmt.Errorf("variable expver: %w", err)
	}
	vals, _, err := flattenNumeric(raw)
	if err != nil {
		return -1, fmt.Errorf("variable expver: %w", err)
	}
	for i, v := range vals {
		if v == 1 {
			return i, nil
		}
	}
	return -1, fmt.Errorf("no expver 1 among %v", vals)
}
