// Command genmock generates a small synthetic copy of every source dataset
// the merge pipeline reads, in each source's native on-disk format. The
// fixtures let the full pipeline run end to end without downloading the real
// archives.
//
// Usage:
//
//	go run ./cmd/genmock -out data -start-year 2018 -end-year 2020
package main

import (
	"compress/gzip"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/cdf"

	"github.com/arcticdata/icemerge/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "directory to write mock source data into")
	startYear := flag.Int("start-year", 2018, "first winter start year")
	endYear := flag.Int("end-year", 2020, "last winter start year")
	nx := flag.Int("nx", 30, "target grid x size")
	ny := flag.Int("ny", 30, "target grid y size")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	winters, err := domain.WinterRange(*startYear, *endYear)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(42))
	g := &generator{out: *out, nx: *nx, ny: *ny, rng: rng}

	if err := g.altimetry(winters); err != nil {
		return fmt.Errorf("altimetry fixtures: %w", err)
	}
	if err := g.concentration(winters); err != nil {
		return fmt.Errorf("concentration fixtures: %w", err)
	}
	if err := g.regionMask(); err != nil {
		return fmt.Errorf("region mask fixtures: %w", err)
	}
	if err := g.reanalysis(winters); err != nil {
		return fmt.Errorf("reanalysis fixture: %w", err)
	}
	if err := g.model(*startYear-2, *endYear+1); err != nil {
		return fmt.Errorf("model fixtures: %w", err)
	}
	if err := g.drift(winters); err != nil {
		return fmt.Errorf("drift fixture: %w", err)
	}

	log.Printf("wrote mock data for %d months under %s", len(winters), *out)
	return nil
}

type generator struct {
	out    string
	nx, ny int
	rng    *rand.Rand
}

// coords builds the shared polar grid: longitudes spanning the circle along
// x, latitudes 68 through 89.5 along y.
func (g *generator) coords() (lat, lon []float64) {
	lat = make([]float64, g.nx*g.ny)
	lon = make([]float64, g.nx*g.ny)
	for i := 0; i < g.nx; i++ {
		for j := 0; j < g.ny; j++ {
			lon[i*g.ny+j] = -180 + 360*float64(i)/float64(g.nx)
			lat[i*g.ny+j] = 68 + 21.5*float64(j)/float64(g.ny-1)
		}
	}
	return lat, lon
}

func (g *generator) altimetry(months []time.Time) error {
	dir := filepath.Join(g.out, "is2-thickness")
	lat, lon := g.coords()
	for _, m := range months {
		path := filepath.Join(dir, fmt.Sprintf("IS2SITMOGR4_01_%s_005_002.nc", m.Format("200601")))
		vars := []mockVar{
			{"latitude", []string{"x", "y"}, lat, attrs{"units": "degrees_north", "long_name": "latitude"}},
			{"longitude", []string{"x", "y"}, lon, attrs{"units": "degrees_east", "long_name": "longitude"}},
		}
		for _, name := range domain.AltimetryVariables {
			vars = append(vars, mockVar{name, []string{"x", "y"}, g.field(name, lat), attrs{
				"units":     varUnits(name),
				"long_name": "monthly gridded " + name,
			}})
		}
		global := attrs{
			"srid":        domain.DefaultSRID,
			"description": "mock monthly gridded sea ice thickness from ICESat-2 freeboards",
			"reference":   "https://nsidc.org/data/is2sitmogr4",
		}
		if err := writeClassic(path, []string{"x", "y"}, []int{g.nx, g.ny}, global, vars); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) concentration(months []time.Time) error {
	dir := filepath.Join(g.out, "sea-ice-concentration")
	lat, lon := g.coords()
	for _, m := range months {
		conc := make([]float64, len(lat))
		for i := range conc {
			switch {
			case lat[i] < 69:
				conc[i] = 254 // flagged: land or coast
			case lat[i] > 88:
				conc[i] = 251 // flagged: pole hole
			default:
				conc[i] = g.rng.Float64()
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("seaice_conc_monthly_nh_%s_v04r00.nc", m.Format("200601")))
		vars := []mockVar{
			{"latitude", []string{"x", "y"}, lat, attrs{"units": "degrees_north"}},
			{"longitude", []string{"x", "y"}, lon, attrs{"units": "degrees_east"}},
			{"seaice_conc_monthly_cdr", []string{"x", "y"}, conc, attrs{
				"units": "fraction", "long_name": "sea ice concentration monthly climate data record",
			}},
		}
		global := attrs{
			"title":            "mock NOAA/NSIDC sea ice concentration CDR",
			"references":       "https://nsidc.org/data/g02202",
			"contributor_name": "mock",
			"license":          "none",
			"summary":          "synthetic concentration fixture",
		}
		if err := writeClassic(path, []string{"x", "y"}, []int{g.nx, g.ny}, global, vars); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) regionMask() error {
	dir := filepath.Join(g.out, "region-mask")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	lat, lon := g.coords()

	codes := make([]byte, len(lat))
	for i := range codes {
		switch {
		case lat[i] < 69:
			codes[i] = byte(domain.RegionLand)
		case lat[i] > 87:
			codes[i] = byte(domain.RegionArcticOcean)
		default:
			regional := []byte{8, 9, 10, 11, 12, 13, 14}
			codes[i] = regional[i%len(regional)]
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "region_n.msk"), codes, 0o600); err != nil {
		return err
	}

	if err := writePacked(filepath.Join(dir, "psn25lats_v3.dat"), lat); err != nil {
		return err
	}
	return writePacked(filepath.Join(dir, "psn25lons_v3.dat"), lon)
}

func (g *generator) reanalysis(months []time.Time) error {
	dir := filepath.Join(g.out, "era5")
	nlat, nlon := 40, 60
	lats := make([]float64, nlat)
	lons := make([]float64, nlon)
	for j := range lats {
		lats[j] = 90 - 89*float64(j)/float64(nlat-1)
	}
	for i := range lons {
		lons[i] = -180 + 360*float64(i)/float64(nlon)
	}

	base := time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	hours := make([]float64, len(months))
	for i, m := range months {
		hours[i] = m.Sub(base).Hours()
	}

	t2m := make([]float64, len(months)*nlat*nlon)
	flux := make([]float64, len(months)*nlat*nlon)
	for i := range t2m {
		t2m[i] = 240 + 40*g.rng.Float64() // Kelvin
		flux[i] = 150 + 100*g.rng.Float64()
	}

	path := filepath.Join(dir, "era5-monthly.nc")
	vars := []mockVar{
		{"time", []string{"time"}, hours, attrs{"units": "hours since 1900-01-01 00:00:00.0"}},
		{"latitude", []string{"latitude"}, lats, attrs{"units": "degrees_north"}},
		{"longitude", []string{"longitude"}, lons, attrs{"units": "degrees_east"}},
		{"t2m", []string{"time", "latitude", "longitude"}, t2m, attrs{"units": "K", "long_name": "2 metre temperature"}},
		{"msdwlwrf", []string{"time", "latitude", "longitude"}, flux, attrs{"units": "W m**-2", "long_name": "mean surface downward long-wave radiation flux"}},
	}
	global := attrs{"Conventions": "CF-1.6", "history": "mock ERA5 monthly means"}
	return writeClassic(path,
		[]string{"time", "latitude", "longitude"}, []int{len(months), nlat, nlon}, global, vars)
}

func (g *generator) model(startYear, endYear int) error {
	dir := filepath.Join(g.out, "piomas")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	nx, ny := 24, 40
	cells := nx * ny

	gf, err := os.Create(filepath.Join(dir, "grid.dat"))
	if err != nil {
		return err
	}
	for i := 0; i < cells; i++ {
		fmt.Fprintf(gf, "%9.3f", -180+360*float64(i%ny)/float64(ny))
		if (i+1)%8 == 0 {
			fmt.Fprintln(gf)
		}
	}
	for i := 0; i < cells; i++ {
		fmt.Fprintf(gf, "%9.3f", 45+45*float64(i/ny)/float64(nx))
		if (i+1)%8 == 0 {
			fmt.Fprintln(gf)
		}
	}
	if err := gf.Close(); err != nil {
		return err
	}

	for year := startYear; year <= endYear; year++ {
		vals := make([]float32, 12*cells)
		for i := range vals {
			if g.rng.Float64() < 0.3 {
				continue // zero, open water
			}
			vals[i] = float32(4 * g.rng.Float64())
		}
		path := filepath.Join(dir, fmt.Sprintf("heff.H%d", year))
		if year%2 == 0 { // exercise the gzip path
			fh, err := os.Create(path + ".gz")
			if err != nil {
				return err
			}
			zw := gzip.NewWriter(fh)
			if err := binary.Write(zw, binary.LittleEndian, vals); err != nil {
				return err
			}
			if err := zw.Close(); err != nil {
				return err
			}
			if err := fh.Close(); err != nil {
				return err
			}
			continue
		}
		fh, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := binary.Write(fh, binary.LittleEndian, vals); err != nil {
			return err
		}
		if err := fh.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) drift(months []time.Time) error {
	dir := filepath.Join(g.out, "drift")
	nx, ny := 25, 25
	lat := make([]float64, nx*ny)
	lon := make([]float64, nx*ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			lon[i*ny+j] = -179 + 360*float64(i)/float64(nx)
			lat[i*ny+j] = 66 + 23*float64(j)/float64(ny-1)
		}
	}

	days := make([]float64, len(months))
	for i, m := range months {
		days[i] = float64(m.Unix()) / 86400
	}
	u := make([]float64, len(months)*nx*ny)
	v := make([]float64, len(months)*nx*ny)
	for i := range u {
		u[i] = 20 * (g.rng.Float64() - 0.5)
		v[i] = 20 * (g.rng.Float64() - 0.5)
	}

	path := filepath.Join(dir, "icemotion-monthly.nc")
	vars := []mockVar{
		{"time", []string{"time"}, days, attrs{"units": "days since 1970-01-01"}},
		{"latitude", []string{"x", "y"}, lat, attrs{"units": "degrees_north"}},
		{"longitude", []string{"x", "y"}, lon, attrs{"units": "degrees_east"}},
		{"u", []string{"time", "x", "y"}, u, attrs{"units": "cm/s", "long_name": "sea ice x velocity"}},
		{"v", []string{"time", "x", "y"}, v, attrs{"units": "cm/s", "long_name": "sea ice y velocity"}},
	}
	global := attrs{"title": "mock polar pathfinder sea ice motion vectors"}
	return writeClassic(path, []string{"time", "x", "y"}, []int{len(months), nx, ny}, global, vars)
}

// field generates one altimetry variable with gaps. The pole and a scatter
// of random cells are missing, exactly the holes the gap filler targets.
func (g *generator) field(name string, lat []float64) []float64 {
	out := make([]float64, len(lat))
	for i := range out {
		if lat[i] > 88 || g.rng.Float64() < 0.1 {
			out[i] = math.NaN()
			continue
		}
		switch name {
		case "ice_type":
			out[i] = float64(g.rng.Intn(2))
		case "snow_density":
			out[i] = 240 + 80*g.rng.Float64()
		case "ice_density":
			out[i] = 900 + 20*g.rng.Float64()
		default:
			out[i] = 3 * g.rng.Float64()
		}
	}
	return out
}

func varUnits(name string) string {
	switch name {
	case "ice_type":
		return "categorical"
	case "snow_density", "ice_density":
		return "kg/m3"
	default:
		return "meters"
	}
}

type attrs map[string]string

type mockVar struct {
	name  string
	dims  []string
	data  []float64
	attrs attrs
}

// writeClassic writes one NetCDF classic file with float64 variables.
func writeClassic(path string, dims []string, lens []int, global attrs, vars []mockVar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	h := cdf.NewHeader(dims, lens)
	for k, v := range global {
		h.AddAttribute("", k, v)
	}
	for _, mv := range vars {
		h.AddVariable(mv.name, mv.dims, []float64{0})
		for k, v := range mv.attrs {
			h.AddAttribute(mv.name, k, v)
		}
	}
	h.Define()

	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()
	f, err := cdf.Create(w, h)
	if err != nil {
		return err
	}
	for _, mv := range vars {
		end := f.Header.Lengths(mv.name)
		start := make([]int, len(end))
		if _, err := f.Writer(mv.name, start, end).Write(mv.data); err != nil {
			return fmt.Errorf("writing %s to %s: %w", mv.name, path, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// writePacked stores degrees as little-endian int32 hundred-thousandths.
func writePacked(path string, degrees []float64) error {
	packed := make([]int32, len(degrees))
	for i, d := range degrees {
		packed[i] = int32(math.Round(d * 1e5))
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	return binary.Write(fh, binary.LittleEndian, packed)
}
