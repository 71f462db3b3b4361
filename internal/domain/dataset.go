package domain

import (
	"fmt"
	"time"
)

// Dataset is an ordered collection of fields sharing one grid, one time axis,
// and optionally a region mask coordinate. Insertion enforces the alignment
// invariants: every field's time axis must match the dataset's and its
// spatial shape must match the grid's.
type Dataset struct {
	fields []*Field
	index  map[string]int

	Grid   *Grid
	Time   []time.Time
	Region *RegionMask
	Attrs  *Attributes
}

// NewDataset creates an empty dataset on the given grid and time axis.
func NewDataset(grid *Grid, times []time.Time) *Dataset {
	return &Dataset{
		index: make(map[string]int),
		Grid:  grid,
		Time:  append([]time.Time(nil), times...),
		Attrs: NewAttributes(),
	}
}

// AddField appends f, replacing any existing field with the same name in
// place. Shape disagreement with the grid or time axis is a
// ShapeMismatchError.
func (d *Dataset) AddField(f *Field) error {
	want := []int{len(d.Time), d.Grid.Nx(), d.Grid.Ny()}
	got := f.Data.Shape
	if got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		return &ShapeMismatchError{Field: f.Name, Got: append([]int(nil), got...), Want: want}
	}
	if i, ok := d.index[f.Name]; ok {
		d.fields[i] = f
		return nil
	}
	d.index[f.Name] = len(d.fields)
	d.fields = append(d.fields, f)
	return nil
}

// Field returns the named field.
func (d *Dataset) Field(name string) (*Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.fields[i], true
}

// Fields returns the fields in insertion order. The slice is a copy; the
// fields are shared.
func (d *Dataset) Fields() []*Field {
	out := make([]*Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// FieldNames returns the field names in insertion order.
func (d *Dataset) FieldNames() []string {
	out := make([]string, len(d.fields))
	for i, f := range d.fields {
		out[i] = f.Name
	}
	return out
}

// SetRegionMask attaches the region mask coordinate, which must match the
// grid shape.
func (d *Dataset) SetRegionMask(m *RegionMask) error {
	if m.Nx != d.Grid.Nx() || m.Ny != d.Grid.Ny() {
		return &ShapeMismatchError{Field: "region_mask", Got: m.Shape(), Want: d.Grid.Shape()}
	}
	d.Region = m
	return nil
}

// StepIndex returns the position of month in the time axis.
func (d *Dataset) StepIndex(month time.Time) (int, error) {
	for i, t := range d.Time {
		if t.Equal(month) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("month %s not in dataset time axis", month.Format("2006-01"))
}

// SelectMonths returns a dataset restricted to the given months, in the given
// order. Every requested month must be present.
func (d *Dataset) SelectMonths(months []time.Time) (*Dataset, error) {
	steps := make([]int, len(months))
	for i, m := range months {
		s, err := d.StepIndex(m)
		if err != nil {
			return nil, err
		}
		steps[i] = s
	}

	out := NewDataset(d.Grid, months)
	out.Region = d.Region
	out.Attrs = d.Attrs.Copy()
	n := d.Grid.Cells()
	for _, f := range d.fields {
		data := NaNDense(len(months), d.Grid.Nx(), d.Grid.Ny())
		for i, s := range steps {
			copy(data.Elements[i*n:(i+1)*n], f.Step(s))
		}
		nf, err := f.Derive(f.Name, data, nil)
		if err != nil {
			return nil, err
		}
		if err := out.AddField(nf); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// StampProvenance sets the dataset-level description and creation date. The
// date comes from the package clock so tests are deterministic.
func (d *Dataset) StampProvenance(description string) {
	d.Attrs.Set("description", description)
	d.Attrs.Set("note", "see individual data variables for references")
	d.Attrs.Set("creation date", clock.Now().UTC().Format("2006-01-02"))
}
