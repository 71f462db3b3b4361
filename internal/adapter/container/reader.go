package container

import (
	"fmt"
	"os"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/arcticdata/icemerge/internal/domain"
)

// Read loads a merged container back into a dataset. Coordinate variables
// rebuild the grid, time axis and region mask; every remaining variable
// becomes a field with its stored attributes, in file order.
func Read(path string) (*domain.Dataset, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()
	f, err := cdf.Open(fh)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	times, err := readTimes(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lat, err := readFloats(f, latitudeVar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lon, err := readFloats(f, longitudeVar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	grid, err := domain.NewGrid(toDense(f, latitudeVar, lat), toDense(f, longitudeVar, lon))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	ds := domain.NewDataset(grid, times)
	readAttributes(f, "", ds.Attrs)

	for _, name := range f.Header.Variables() {
		switch name {
		case timeVar, latitudeVar, longitudeVar:
			continue
		case regionVar:
			mask, err := readRegionMask(f, grid)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if err := ds.SetRegionMask(mask); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		default:
			vals, err := readFloats(f, name)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			fld, err := domain.NewField(name, toDense(f, name, vals))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			readAttributes(f, name, fld.Attrs)
			if err := ds.AddField(fld); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return ds, nil
}

func readTimes(f *cdf.File) ([]time.Time, error) {
	secs, err := readFloats(f, timeVar)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(secs))
	for i, s := range secs {
		out[i] = time.Unix(int64(s), 0).UTC()
	}
	return out, nil
}

func readFloats(f *cdf.File, name string) ([]float64, error) {
	r := f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	vals, ok := buf.([]float64)
	if !ok {
		return nil, fmt.Errorf("variable %s: want float64 data, got %T", name, buf)
	}
	return vals, nil
}

func readRegionMask(f *cdf.File, grid *domain.Grid) (*domain.RegionMask, error) {
	r := f.Reader(regionVar, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("variable %s: %w", regionVar, err)
	}
	codes, ok := buf.([]int32)
	if !ok {
		return nil, fmt.Errorf("variable %s: want int32 data, got %T", regionVar, buf)
	}
	return domain.NewRegionMask(grid.Nx(), grid.Ny(), codes)
}

// toDense wraps flat values in the variable's declared shape.
func toDense(f *cdf.File, name string, vals []float64) *sparse.DenseArray {
	out := sparse.ZerosDense(f.Header.Lengths(name)...)
	copy(out.Elements, vals)
	return out
}

// readAttributes copies a variable's stored attributes ("" for global) into
// a domain attribute set.
func readAttributes(f *cdf.File, v string, dst *domain.Attributes) {
	for _, key := range f.Header.Attributes(v) {
		switch tv := f.Header.GetAttribute(v, key).(type) {
		case string:
			dst.Set(key, tv)
		case []float64:
			dst.Set(key, tv)
		case []int32:
			dst.Set(key, tv)
		case []float32:
			out := make([]float64, len(tv))
			for i, x := range tv {
				out[i] = float64(x)
			}
			dst.Set(key, out)
		}
	}
}
