package domain

import (
	"math"
)

// FilledSuffix names the derived companion of a gap-filled field.
const FilledSuffix = "_filled"

// FillOptions controls which missing cells the gap filler may replace.
type FillOptions struct {
	// MinConcentration is the sea-ice concentration a cell must exceed to
	// be fillable.
	MinConcentration float64
	// ProtectedCodes are region codes whose cells are never filled.
	ProtectedCodes []int32
	// ZeroBelowConcentration forces cells at or below MinConcentration to
	// exactly zero before the eligibility test. Sparse or absent ice means
	// zero thickness, not unknown thickness; the rule applies to the
	// ice_thickness field only.
	ZeroBelowConcentration bool
}

// DefaultFillOptions returns the fill policy used for the altimetry fields.
func DefaultFillOptions() FillOptions {
	return FillOptions{
		MinConcentration: 0.15,
		ProtectedCodes:   []int32{RegionArcticOcean, RegionLand},
	}
}

// FillMissing interpolates missing cells of field by nearest-neighbor lookup
// among valid cells, one time step at a time. A cell may be replaced only
// when its value is missing, its region code is not protected, and sea-ice
// concentration exceeds the threshold; all other cells, valid or protected,
// pass through untouched. Lookup happens in the grid's longitude/latitude
// coordinate space over the currently-valid cells, so a filled value is
// always one that already exists in the step.
//
// The result is a new "<name>_filled" field with the original's attributes
// plus an interpolation note; the input field is preserved unmodified. A
// time step with zero valid cells is an EmptyInterpolationSetError.
func FillMissing(field, conc *Field, mask *RegionMask, grid *Grid, opts FillOptions) (*Field, error) {
	if got := field.SpatialShape(); got[0] != grid.Nx() || got[1] != grid.Ny() {
		return nil, &ShapeMismatchError{Field: field.Name, Got: got, Want: grid.Shape()}
	}
	if got, want := conc.Data.Shape, field.Data.Shape; got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		return nil, &ShapeMismatchError{Field: conc.Name, Got: got, Want: want}
	}
	if mask.Nx != grid.Nx() || mask.Ny != grid.Ny() {
		return nil, &ShapeMismatchError{Field: "region_mask", Got: mask.Shape(), Want: grid.Shape()}
	}

	protected := make(map[int32]bool, len(opts.ProtectedCodes))
	for _, c := range opts.ProtectedCodes {
		protected[c] = true
	}

	nt := field.Steps()
	cells := grid.Cells()
	out := CloneDense(field.Data)

	for t := 0; t < nt; t++ {
		step := out.Elements[t*cells : (t+1)*cells]
		concStep := conc.Step(t)

		if opts.ZeroBelowConcentration {
			for i := range step {
				if concStep[i] <= opts.MinConcentration {
					step[i] = 0
				}
			}
		}

		eligible := make([]bool, cells)
		ix := newNNIndex()
		for i, v := range step {
			if math.IsNaN(v) && !protected[mask.Code(i)] && concStep[i] > opts.MinConcentration {
				eligible[i] = true
				continue
			}
			if !math.IsNaN(v) {
				ix.add(grid.Lon.Elements[i], grid.Lat.Elements[i], v)
			}
		}
		if ix.n == 0 {
			return nil, &EmptyInterpolationSetError{Field: field.Name, Step: t}
		}

		for i := range step {
			if eligible[i] {
				step[i] = ix.nearest(grid.Lon.Elements[i], grid.Lat.Elements[i])
			}
		}
	}

	return field.Derive(field.Name+FilledSuffix, out, map[string]any{
		"note": "interpolated from original data",
	})
}
