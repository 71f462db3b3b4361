package domain

import (
	"fmt"

	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// Proj4 definitions for the spatial references the pipeline accepts. The
// altimetry product names its grid by SRID; every dataset is aligned in that
// one projection.
var proj4BySRID = map[string]string{
	// NSIDC polar stereographic north, 25 km (Hughes 1980 ellipsoid).
	"EPSG:3411": "+proj=stere +lat_0=90 +lat_ts=70 +lon_0=-45 +k=1 +x_0=0 +y_0=0 +a=6378273 +b=6356889.449 +units=m +no_defs",
	// NSIDC Sea Ice Polar Stereographic North on WGS 84.
	"EPSG:3413": "+proj=stere +lat_0=90 +lat_ts=70 +lon_0=-45 +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs",
}

// DefaultSRID is used when a source does not declare its projection.
const DefaultSRID = "EPSG:3411"

// Grid is a curvilinear 2-D grid: each (x, y) cell has a latitude and a
// longitude. Regular lat/lon sources are meshed into this form by their
// loaders.
type Grid struct {
	Lat *sparse.DenseArray // degrees north, shape x by y
	Lon *sparse.DenseArray // degrees east, shape x by y
}

// NewGrid validates that lat and lon are matching 2-D arrays.
func NewGrid(lat, lon *sparse.DenseArray) (*Grid, error) {
	if len(lat.Shape) != 2 || len(lon.Shape) != 2 {
		return nil, fmt.Errorf("grid coordinates must be 2-D, got lat %v lon %v", lat.Shape, lon.Shape)
	}
	if lat.Shape[0] != lon.Shape[0] || lat.Shape[1] != lon.Shape[1] {
		return nil, fmt.Errorf("grid lat shape %v does not match lon shape %v", lat.Shape, lon.Shape)
	}
	return &Grid{Lat: lat, Lon: lon}, nil
}

// MeshGrid builds a curvilinear grid from regular 1-D axes, with lons as the
// x dimension and lats as the y dimension.
func MeshGrid(lons, lats []float64) *Grid {
	lat := sparse.ZerosDense(len(lons), len(lats))
	lon := sparse.ZerosDense(len(lons), len(lats))
	for i, lo := range lons {
		for j, la := range lats {
			lon.Set(lo, i, j)
			lat.Set(la, i, j)
		}
	}
	return &Grid{Lat: lat, Lon: lon}
}

// Nx returns the size of the first spatial dimension.
func (g *Grid) Nx() int { return g.Lat.Shape[0] }

// Ny returns the size of the second spatial dimension.
func (g *Grid) Ny() int { return g.Lat.Shape[1] }

// Shape returns the spatial dimensions.
func (g *Grid) Shape() []int { return []int{g.Nx(), g.Ny()} }

// Cells returns the number of grid cells.
func (g *Grid) Cells() int { return g.Nx() * g.Ny() }

// Projection is a pure coordinate function from geographic longitude and
// latitude (degrees) to planar x/y (meters) under a fixed spatial reference.
type Projection struct {
	SRID string
	tr   proj.Transformer
}

// NewProjection builds the transform for a known SRID.
func NewProjection(srid string) (*Projection, error) {
	p4, ok := proj4BySRID[srid]
	if !ok {
		return nil, fmt.Errorf("unsupported SRID %q", srid)
	}
	src, err := proj.Parse("+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		return nil, fmt.Errorf("parsing longlat reference: %w", err)
	}
	dst, err := proj.Parse(p4)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", srid, err)
	}
	tr, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("building %s transform: %w", srid, err)
	}
	return &Projection{SRID: srid, tr: tr}, nil
}

// Project transforms one coordinate.
func (p *Projection) Project(lon, lat float64) (x, y float64, err error) {
	return p.tr(lon, lat)
}

// ProjectGrid transforms every cell of g, returning flat row-major planar
// coordinates of length g.Cells().
func (p *Projection) ProjectGrid(g *Grid) (xs, ys []float64, err error) {
	n := g.Cells()
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i], ys[i], err = p.tr(g.Lon.Elements[i], g.Lat.Elements[i])
		if err != nil {
			return nil, nil, fmt.Errorf("projecting cell %d (lon %.3f, lat %.3f): %w",
				i, g.Lon.Elements[i], g.Lat.Elements[i], err)
		}
	}
	return xs, ys, nil
}
