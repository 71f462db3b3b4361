package domain

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// AltimetryVariables are the altimetry product's physical fields, in the
// order they appear in the monthly files. Each one gets a gap-filled
// companion field during the merge.
var AltimetryVariables = []string{
	"ice_type",
	"ice_thickness",
	"snow_depth",
	"freeboard",
	"ice_thickness_unc",
	"snow_density",
	"ice_density",
}

// Field is a named, time-indexed grid of one physical quantity. Data has
// shape time x X x Y and carries the field's units and provenance metadata.
type Field struct {
	Name  string
	Data  *sparse.DenseArray
	Attrs *Attributes
}

// NewField wraps data as a Field with empty attributes. The array must be
// three-dimensional (time x X x Y).
func NewField(name string, data *sparse.DenseArray) (*Field, error) {
	if len(data.Shape) != 3 {
		return nil, fmt.Errorf("field %q: want 3 dimensions (time, x, y), got %d", name, len(data.Shape))
	}
	return &Field{Name: name, Data: data, Attrs: NewAttributes()}, nil
}

// Steps returns the number of time steps.
func (f *Field) Steps() int { return f.Data.Shape[0] }

// SpatialShape returns the non-time dimensions.
func (f *Field) SpatialShape() []int { return []int{f.Data.Shape[1], f.Data.Shape[2]} }

// Step returns the flat row-major values of one time step. The slice aliases
// the field's backing array.
func (f *Field) Step(t int) []float64 {
	n := f.Data.Shape[1] * f.Data.Shape[2]
	return f.Data.Elements[t*n : (t+1)*n]
}

// Derive builds a new field from data, copying this field's attributes and
// then applying overrides in order. Unspecified attributes carry over
// unchanged; the receiver is not modified.
func (f *Field) Derive(name string, data *sparse.DenseArray, overrides map[string]any) (*Field, error) {
	out, err := NewField(name, data)
	if err != nil {
		return nil, err
	}
	out.Attrs = f.Attrs.Copy()
	for k, v := range overrides {
		out.Attrs.Set(k, v)
	}
	return out, nil
}

// CountValid returns the number of finite values at time step t.
func (f *Field) CountValid(t int) int {
	n := 0
	for _, v := range f.Step(t) {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// CloneDense returns an independent copy of a dense array.
func CloneDense(a *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(a.Shape...)
	copy(out.Elements, a.Elements)
	return out
}

// NaNDense returns a dense array of the given shape with every element NaN.
func NaNDense(shape ...int) *sparse.DenseArray {
	out := sparse.ZerosDense(shape...)
	for i := range out.Elements {
		out.Elements[i] = math.NaN()
	}
	return out
}
