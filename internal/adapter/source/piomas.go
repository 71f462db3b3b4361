package source

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ctessum/sparse"

	"github.com/arcticdata/icemerge/internal/domain"
)

// ModelThicknessField is the merged name of the modeled ice thickness.
const ModelThicknessField = "PIOMAS_ice_thickness"

// ModelThicknessLoader reads modeled effective ice thickness from per-year
// flat binary files on the model's curvilinear grid. Each file holds twelve
// little-endian float32 grids, January through December; files may be
// gzipped. The grid file is whitespace-separated text holding every cell's
// longitude followed by every cell's latitude.
type ModelThicknessLoader struct {
	Dir      string
	GridFile string
	Nx       int
	Ny       int
}

// NewModelThicknessLoader returns a loader for the standard model grid.
func NewModelThicknessLoader(dir string) *ModelThicknessLoader {
	return &ModelThicknessLoader{Dir: dir, GridFile: "grid.dat", Nx: 120, Ny: 360}
}

// Load reads every month of the years startYear through endYear inclusive.
// A missing year file is a MissingInputError dated to its January.
func (l *ModelThicknessLoader) Load(ctx context.Context, startYear, endYear int) (*domain.Dataset, error) {
	if endYear < startYear {
		return nil, fmt.Errorf("year range %d-%d is empty", startYear, endYear)
	}
	grid, err := l.loadGrid()
	if err != nil {
		return nil, err
	}

	nyears := endYear - startYear + 1
	months := make([]time.Time, 0, 12*nyears)
	for y := startYear; y <= endYear; y++ {
		for m := time.January; m <= time.December; m++ {
			months = append(months, time.Date(y, m, 1, 0, 0, 0, 0, time.UTC))
		}
	}
	stack := sparse.ZerosDense(len(months), l.Nx, l.Ny)

	cells := l.Nx * l.Ny
	for yi := 0; yi < nyears; yi++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		year := startYear + yi
		vals, err := l.readYear(year)
		if err != nil {
			return nil, err
		}
		copy(stack.Elements[yi*12*cells:], vals)
	}

	ds := domain.NewDataset(grid, months)
	ds.Attrs.Set("description", "PIOMAS monthly mean effective sea ice thickness")
	ds.Attrs.Set("website", "http://psc.apl.uw.edu/research/projects/arctic-sea-ice-volume-anomaly/")
	ds.Attrs.Set("citation", "Zhang, J. and D.A. Rothrock: Modeling global sea ice with a thickness and enthalpy distribution model in generalized curvilinear coordinates, Mon. Wea. Rev., 131, 845-861, 2003.")

	f, err := domain.NewField(ModelThicknessField, stack)
	if err != nil {
		return nil, err
	}
	f.Attrs.Set("long_name", "effective sea ice thickness from the PIOMAS model")
	f.Attrs.Set("units", "meters")
	f.Attrs.Merge(ds.Attrs)
	if err := ds.AddField(f); err != nil {
		return nil, err
	}
	return ds, nil
}

// readYear decodes one year file into 12 x Nx x Ny float64 values. Zero
// thickness marks open water or land in the model output and becomes NaN so
// it never drags regridded averages down.
func (l *ModelThicknessLoader) readYear(year int) ([]float64, error) {
	path := filepath.Join(l.Dir, fmt.Sprintf("heff.H%d", year))
	gzipped := false
	if _, err := os.Stat(path); err != nil {
		path += ".gz"
		gzipped = true
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, &domain.MissingInputError{
			Source: "model thickness", Path: l.Dir,
			Month: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	defer fh.Close()

	var r io.Reader = fh
	if gzipped {
		gz, err := gzip.NewReader(fh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	n := 12 * l.Nx * l.Ny
	raw := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("%s: want %d float32 values: %w", path, n, err)
	}
	out := make([]float64, n)
	for i, v := range raw {
		if v == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(v)
	}
	return out, nil
}

// loadGrid parses the model's text grid file.
func (l *ModelThicknessLoader) loadGrid() (*domain.Grid, error) {
	path := filepath.Join(l.Dir, l.GridFile)
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model grid: %w", err)
	}
	defer fh.Close()

	cells := l.Nx * l.Ny
	vals := make([]float64, 0, 2*cells)
	sc := bufio.NewScanner(fh)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("model grid %s: bad value %q", path, sc.Text())
		}
		vals = append(vals, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("model grid %s: %w", path, err)
	}
	if len(vals) != 2*cells {
		return nil, fmt.Errorf("model grid %s: %d values, want %d", path, len(vals), 2*cells)
	}

	lon := sparse.ZerosDense(l.Nx, l.Ny)
	lat := sparse.ZerosDense(l.Nx, l.Ny)
	copy(lon.Elements, vals[:cells])
	copy(lat.Elements, vals[cells:])
	return domain.NewGrid(lat, lon)
}
