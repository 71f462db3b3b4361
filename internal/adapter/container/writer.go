// Package container serializes merged datasets to NetCDF classic files and
// reads them back. The on-disk layout is fixed: dimensions time, x and y;
// float64 coordinate variables time, latitude and longitude; an int32
// region_mask when present; and one float64 variable per field.
package container

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"

	"github.com/arcticdata/icemerge/internal/domain"
)

// Reserved variable names of the container layout.
const (
	timeVar      = "time"
	latitudeVar  = "latitude"
	longitudeVar = "longitude"
	regionVar    = "region_mask"
)

// requiredFieldAttrs must be present on every field before it is written.
// Without them a reader of the merged file cannot tell what a variable is.
var requiredFieldAttrs = []string{"long_name", "units"}

// requiredDatasetAttrs must be present on the dataset itself.
var requiredDatasetAttrs = []string{"description", "creation date"}

// Writer serializes datasets. The zero value is ready to use.
type Writer struct{}

// Write validates provenance and stores ds at path, replacing any existing
// file. Fields are written in their dataset order so repeated runs produce
// identical files.
func (Writer) Write(path string, ds *domain.Dataset) error {
	if err := checkProvenance(ds); err != nil {
		return err
	}

	nt, nx, ny := len(ds.Time), ds.Grid.Nx(), ds.Grid.Ny()
	h := cdf.NewHeader([]string{"time", "x", "y"}, []int{nt, nx, ny})
	addAttributes(h, "", ds.Attrs)

	h.AddVariable(timeVar, []string{"time"}, []float64{0})
	h.AddAttribute(timeVar, "units", "seconds since 1970-01-01")
	h.AddAttribute(timeVar, "long_name", "first day of the data month")

	h.AddVariable(latitudeVar, []string{"x", "y"}, []float64{0})
	h.AddAttribute(latitudeVar, "units", "degrees_north")
	h.AddAttribute(latitudeVar, "long_name", "latitude of grid cell center")
	h.AddVariable(longitudeVar, []string{"x", "y"}, []float64{0})
	h.AddAttribute(longitudeVar, "units", "degrees_east")
	h.AddAttribute(longitudeVar, "long_name", "longitude of grid cell center")

	if ds.Region != nil {
		h.AddVariable(regionVar, []string{"x", "y"}, []int32{0})
		addAttributes(h, regionVar, ds.Region.Attrs)
	}
	for _, f := range ds.Fields() {
		h.AddVariable(f.Name, []string{"time", "x", "y"}, []float64{0})
		addAttributes(h, f.Name, f.Attrs)
	}
	h.Define()

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer w.Close()
	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}

	times := make([]float64, nt)
	for i, t := range ds.Time {
		times[i] = float64(t.Unix())
	}
	if err := writeVar(f, timeVar, times); err != nil {
		return err
	}
	if err := writeVar(f, latitudeVar, ds.Grid.Lat.Elements); err != nil {
		return err
	}
	if err := writeVar(f, longitudeVar, ds.Grid.Lon.Elements); err != nil {
		return err
	}
	if ds.Region != nil {
		if err := writeVar(f, regionVar, ds.Region.Codes); err != nil {
			return err
		}
	}
	for _, fld := range ds.Fields() {
		if err := writeVar(f, fld.Name, fld.Data.Elements); err != nil {
			return err
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return nil
}

// checkProvenance rejects datasets whose required metadata would be lost on
// disk.
func checkProvenance(ds *domain.Dataset) error {
	for _, key := range requiredDatasetAttrs {
		if !ds.Attrs.Has(key) {
			return &domain.AttributeLossError{Field: "", Key: key}
		}
	}
	for _, f := range ds.Fields() {
		for _, key := range requiredFieldAttrs {
			if !f.Attrs.Has(key) {
				return &domain.AttributeLossError{Field: f.Name, Key: key}
			}
		}
	}
	return nil
}

// addAttributes copies an attribute set into the header, coercing scalars to
// the one-element arrays NetCDF classic stores.
func addAttributes(h *cdf.Header, v string, attrs *domain.Attributes) {
	for _, k := range attrs.Keys() {
		val, _ := attrs.Get(k)
		switch tv := val.(type) {
		case string:
			h.AddAttribute(v, k, tv)
		case []float64:
			h.AddAttribute(v, k, tv)
		case []int32:
			h.AddAttribute(v, k, tv)
		case float64:
			h.AddAttribute(v, k, []float64{tv})
		case int:
			h.AddAttribute(v, k, []int32{int32(tv)})
		case int32:
			h.AddAttribute(v, k, []int32{tv})
		}
	}
}

func writeVar[T float64 | int32](f *cdf.File, name string, data []T) error {
	end := f.Header.Lengths(name)
	n := 1
	for _, d := range end {
		n *= d
	}
	if n != len(data) {
		return &domain.ShapeMismatchError{Field: name, Got: []int{len(data)}, Want: end}
	}
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing variable %s: %w", name, err)
	}
	return nil
}
