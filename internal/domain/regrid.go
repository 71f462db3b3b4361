package domain

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/sparse"
)

// sample is a known value at a planar location, indexed for nearest-neighbor
// lookup.
type sample struct {
	geom.Point
	value float64
}

// nnIndex is an R-tree of samples supporting nearest-neighbor queries.
type nnIndex struct {
	tree *rtree.Rtree
	n    int
}

func newNNIndex() *nnIndex {
	return &nnIndex{tree: rtree.NewTree(25, 50)}
}

func (ix *nnIndex) add(x, y, v float64) {
	ix.tree.Insert(&sample{Point: geom.Point{X: x, Y: y}, value: v})
	ix.n++
}

func (ix *nnIndex) nearest(x, y float64) float64 {
	return ix.tree.NearestNeighbor(geom.Point{X: x, Y: y}).(*sample).value
}

// Regridder resamples fields from arbitrary native grids onto one fixed
// target grid. The target's projected coordinates are computed once at
// construction and shared by every Regrid call.
type Regridder struct {
	proj       *Projection
	dst        *Grid
	dstX, dstY []float64
}

// NewRegridder projects the target grid's coordinates under p.
func NewRegridder(dst *Grid, p *Projection) (*Regridder, error) {
	xs, ys, err := p.ProjectGrid(dst)
	if err != nil {
		return nil, err
	}
	return &Regridder{proj: p, dst: dst, dstX: xs, dstY: ys}, nil
}

// TargetGrid returns the grid every output field is aligned to.
func (r *Regridder) TargetGrid() *Grid { return r.dst }

// Regrid projects the source grid into the regridder's map projection and
// resamples field onto the target grid by nearest neighbor, independently
// for every time step. Units and attributes carry over, with a provenance
// note recording the resampling. A time step with no finite source values is
// an EmptyInterpolationSetError.
func (r *Regridder) Regrid(field *Field, src *Grid) (*Field, error) {
	if got := field.SpatialShape(); got[0] != src.Nx() || got[1] != src.Ny() {
		return nil, &ShapeMismatchError{Field: field.Name, Got: got, Want: src.Shape()}
	}

	srcX, srcY, err := r.proj.ProjectGrid(src)
	if err != nil {
		return nil, err
	}

	nt := field.Steps()
	cells := r.dst.Cells()
	out := sparse.ZerosDense(nt, r.dst.Nx(), r.dst.Ny())

	for t := 0; t < nt; t++ {
		ix := newNNIndex()
		for i, v := range field.Step(t) {
			if math.IsNaN(v) {
				continue
			}
			ix.add(srcX[i], srcY[i], v)
		}
		if ix.n == 0 {
			return nil, &EmptyInterpolationSetError{Field: field.Name, Step: t}
		}

		step := out.Elements[t*cells : (t+1)*cells]
		for i := range step {
			step[i] = ix.nearest(r.dstX[i], r.dstY[i])
		}
	}

	return field.Derive(field.Name, out, map[string]any{
		"note": "regridded to the " + r.proj.SRID + " target grid by nearest-neighbor interpolation",
	})
}
